// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package packs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/internal/scoring"
)

const tomlPack = `
specialty = "breast"
global_penalty_terms = ["mouse"]
major_journals = ["Lancet"]

[[subcategories]]
name = "HER2"
pubmed_query = "HER2 breast cancer"
trials_query = "HER2 breast"
include_terms = ["trastuzumab"]
exclude_terms = ["male"]
`

func writePacks(t *testing.T) Dir {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lung.yaml"), []byte(Sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "breast.toml"), []byte(tomlPack), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))
	return Dir(dir)
}

func TestDir_PackYAML(t *testing.T) {
	d := writePacks(t)

	p, err := d.Pack(context.Background(), "Lung", "immunotherapy")
	require.NoError(t, err)
	assert.Equal(t, "lung", p.Specialty)
	assert.Equal(t, "Immunotherapy", p.Subcategory)
	assert.Contains(t, p.PaperQuery, "NSCLC")
	assert.Equal(t, "non-small cell lung cancer immunotherapy", p.TrialQuery)
	assert.Equal(t, []string{"pd-1", "pd-l1", "checkpoint"}, p.IncludeTerms)
	assert.Contains(t, p.GlobalPenaltyTerms, "murine")

	rules := p.Rules()
	assert.Equal(t, p.IncludeTerms, rules.IncludeTerms)
	assert.Equal(t, p.MajorJournals, rules.MajorJournals)
	assert.Nil(t, rules.Query)
}

func TestDir_PackTOML(t *testing.T) {
	d := writePacks(t)

	p, err := d.Pack(context.Background(), "breast", "HER2")
	require.NoError(t, err)
	assert.Equal(t, "breast", p.Specialty)
	assert.Equal(t, "HER2 breast cancer", p.PaperQuery)
	assert.Equal(t, []string{"trastuzumab"}, p.IncludeTerms)
	assert.Equal(t, []string{"male"}, p.ExcludeTerms)
	assert.Equal(t, []string{"Lancet"}, p.MajorJournals)
}

func TestDir_Missing(t *testing.T) {
	d := writePacks(t)

	_, err := d.Pack(context.Background(), "heme", "Myeloma")
	assert.ErrorIs(t, err, ErrNoPack)

	_, err = d.Pack(context.Background(), "lung", "Radiation")
	assert.ErrorIs(t, err, ErrNoSubcategory)
}

func TestDir_Listing(t *testing.T) {
	d := writePacks(t)

	specs, err := d.Specialties()
	require.NoError(t, err)
	assert.Equal(t, []string{"breast", "lung"}, specs)

	subs, err := d.Subcategories("lung")
	require.NoError(t, err)
	assert.Equal(t, []string{"Immunotherapy", "Targeted Therapy"}, subs)

	specs, err = Dir(filepath.Join(t.TempDir(), "absent")).Specialties()
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestSearchRules(t *testing.T) {
	q := &scoring.QueryContext{Raw: "her2"}
	r := SearchRules([]string{"her2"}, q)
	assert.Equal(t, []string{"her2"}, r.IncludeTerms)
	assert.Empty(t, r.ExcludeTerms)
	assert.Equal(t, DefaultPenaltyTerms, r.GlobalPenaltyTerms)
	assert.Equal(t, DefaultMajorJournals, r.MajorJournals)
	assert.Same(t, q, r.Query)

	r.MajorJournals[0] = "changed"
	assert.Equal(t, "NEJM", DefaultMajorJournals[0])
}
