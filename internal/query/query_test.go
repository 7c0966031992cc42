// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/pkg/types"
)

func TestExpand_OncologyTerms(t *testing.T) {
	b := Expand("metastatic NSCLC pembrolizumab phase 3 OS")

	paper := strings.ToLower(b.PaperQuery)
	trial := strings.ToLower(b.TrialQuery)
	assert.Contains(t, paper, "nsclc")
	assert.Contains(t, paper, "non-small cell lung cancer")
	assert.Contains(t, paper, "overall survival")
	assert.Contains(t, trial, "nsclc")
	assert.Contains(t, trial, "pembrolizumab")
	assert.Equal(t, "metastatic NSCLC pembrolizumab phase 3 OS", b.Raw)
}

func TestExpand_Blank(t *testing.T) {
	b := Expand("   ")
	assert.Empty(t, b.PaperQuery)
	assert.Empty(t, b.TrialQuery)
	assert.Empty(t, b.Keywords)
	assert.Empty(t, b.Concepts)
}

func TestExpand_FallsBackToRaw(t *testing.T) {
	b := Expand("the of an")
	assert.Equal(t, "(the of an)", b.PaperQuery)
	assert.Equal(t, "the of an", b.TrialQuery)
}

func TestExpand_GroupFormat(t *testing.T) {
	b := Expand("HER2 pembrolizumab")
	assert.Equal(t, "(HER2 OR ERBB2) AND (her2) AND (pembrolizumab)", b.PaperQuery)
	assert.Equal(t, "HER2 her2 pembrolizumab", b.TrialQuery)
}

func TestKeywords(t *testing.T) {
	terms := Keywords("in oncology and cancer with pembrolizumab randomized survival 2024", 10)
	assert.Contains(t, terms, "pembrolizumab")
	assert.Contains(t, terms, "randomized")
	assert.NotContains(t, terms, "oncology")
	assert.NotContains(t, terms, "cancer")
	assert.NotContains(t, terms, "2024")

	assert.Len(t, Keywords("alpha beta gamma delta epsilon", 3), 3)
	assert.Equal(t, []string{"alpha"}, Keywords("alpha ALPHA Alpha", 10))
}

func TestConcepts_NoRepeats(t *testing.T) {
	groups := Concepts("pneumonitis and immune-related adverse events")
	require.Len(t, groups, 2)
	assert.Equal(t, "pneumonitis", groups[0][0])
	assert.Equal(t, "immune-related adverse event", groups[1][0])
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "query:her2 breast", ScopeKey("  HER2 Breast "))

	long := strings.Repeat("é", 300)
	key := ScopeKey(long)
	assert.Equal(t, 180, len([]rune(strings.TrimPrefix(key, "query:"))))

	s := SearchScope("HER2")
	assert.True(t, s.IsSearch())
	assert.Equal(t, "query:her2", s.Subcategory)
}

func TestRelevant(t *testing.T) {
	ctx := &scoring.QueryContext{
		Raw:      "eye",
		Keywords: []string{"eye"},
		Concepts: [][]string{{"eye", "ocular", "vision", "retina"}},
	}

	eye := types.RawRecord{
		Title:          "Ocular toxicity with checkpoint inhibitor therapy",
		AbstractOrText: "Vision changes and retinal findings were reported.",
	}
	lung := types.RawRecord{
		Title:            "Early non-small cell lung cancer trial",
		AbstractOrText:   "Phase III randomized trial with OS endpoint.",
		Conditions:       "Lung Cancer",
		Interventions:    "Atezolizumab",
		PrimaryEndpoints: "overall survival",
	}

	assert.True(t, Relevant(eye, ctx))
	assert.False(t, Relevant(lung, ctx))
	assert.False(t, Relevant(types.RawRecord{}, ctx))
	assert.True(t, Relevant(lung, nil))
}

func TestRelevant_StructuredFields(t *testing.T) {
	ctx := Expand("atezolizumab").Context()
	r := types.RawRecord{Title: "A study", Interventions: "Atezolizumab"}
	assert.True(t, Relevant(r, ctx))

	out := Filter([]types.RawRecord{{Title: "unrelated"}, r}, ctx)
	require.Len(t, out, 1)
	assert.Equal(t, "Atezolizumab", out[0].Interventions)
}
