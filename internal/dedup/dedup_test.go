// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/pkg/types"
)

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "pd 1 blockade in nsclc a phase iii trial",
		NormalizeTitle("  PD-1 Blockade in NSCLC: A Phase III Trial! "))
	assert.Equal(t, "", NormalizeTitle("   "))
}

func TestYearBucket(t *testing.T) {
	assert.Equal(t, "2024", YearBucket("2024-05-01"))
	assert.Equal(t, "1999", YearBucket("Winter 1999"))
	assert.Equal(t, "unknown", YearBucket(""))
	assert.Equal(t, "unknown", YearBucket("n.d."))
}

func TestFingerprint_IdentifierPriority(t *testing.T) {
	tests := []struct {
		name string
		rec  types.RawRecord
		want string
	}{
		{"doi wins", types.RawRecord{DOI: " 10.1/ABC ", PMID: "123", NCTID: "NCT00000001"}, "doi:10.1/abc"},
		{"pmid next", types.RawRecord{PMID: "123", NCTID: "NCT00000001"}, "pmid:123"},
		{"nct last", types.RawRecord{NCTID: "NCT00000001"}, "nct_id:nct00000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.rec))
		})
	}
}

func TestFingerprint_SameDOIIgnoresTitle(t *testing.T) {
	a := types.RawRecord{DOI: "10.1/X", Title: "Osimertinib in EGFR NSCLC"}
	b := types.RawRecord{DOI: "10.1/x", Title: "OSIMERTINIB IN EGFR nsclc (updated)"}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_TitleYearFallback(t *testing.T) {
	a := types.RawRecord{Title: "Adjuvant Therapy: Results", PublishedAt: "2024-01-10"}
	b := types.RawRecord{Title: "adjuvant therapy results", PublishedAt: "2024"}
	c := types.RawRecord{Title: "adjuvant therapy results", PublishedAt: "2025-02-01"}
	d := types.RawRecord{Title: "adjuvant therapy results", UpdatedAt: "2024-12-31"}

	fa := Fingerprint(a)
	require.True(t, strings.HasPrefix(fa, "titleyear:"))
	assert.Len(t, strings.TrimPrefix(fa, "titleyear:"), 16)
	assert.Equal(t, fa, Fingerprint(b))
	assert.NotEqual(t, fa, Fingerprint(c), "year bucket change must change fingerprint")
	assert.Equal(t, fa, Fingerprint(d), "updated_at is the fallback date")
}

func TestDeduplicate_KeepsFirstOccurrence(t *testing.T) {
	in := []types.RawRecord{
		{Source: "pubmed", DOI: "10.1/x", Title: "First"},
		{Source: "europepmc", PMID: "99", Title: "Other"},
		{Source: "europepmc", DOI: "10.1/X", Title: "Second"},
	}
	out := Deduplicate(in)
	require.Len(t, out, len(in)-1)
	assert.Equal(t, "First", out[0].Title)
	assert.Equal(t, "pubmed", out[0].Source)
	assert.Equal(t, "Other", out[1].Title)
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}
