// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/pkg/types"
)

func item(title, abstract string) types.Item {
	return types.Item{RawRecord: types.RawRecord{Title: title, AbstractOrText: abstract}}
}

func intPtr(n int) *int { return &n }

func TestScore_PhaseAndRandomized(t *testing.T) {
	score, explain := Score(item("Phase III randomized study", "Overall survival improved."), RuleSet{}, nil)
	// "phase ii" is a substring of "phase iii", so both boosts fire.
	assert.Equal(t, 6+5+3+2, score)
	assert.Equal(t, []string{"+6 phase iii", "+5 randomized", "+3 phase ii", "+2 overall survival"}, explain)
}

func TestScore_IsDeterministic(t *testing.T) {
	it := item("Phase II RCT of X", "A meta-analysis with n = 350 patients. Progression-free survival.")
	it.Venue = "J Clin Oncol"
	it.Citations = intPtr(40)
	rules := RuleSet{
		IncludeTerms:       []string{"rct"},
		GlobalPenaltyTerms: []string{"case report"},
		MajorJournals:      []string{"J Clin Oncol"},
	}
	overrides := map[string]any{"phase_ii": 4}

	s1, e1 := Score(it, rules, overrides)
	s2, e2 := Score(it, rules, overrides)
	assert.Equal(t, s1, s2)
	assert.Equal(t, e1, e2)
}

func TestScore_PhaseIIIBeatsPhaseII(t *testing.T) {
	p3, _ := Score(item("A phase iii trial", "Results."), RuleSet{}, nil)
	p2, _ := Score(item("A phase ii trial", "Results."), RuleSet{}, nil)
	assert.Greater(t, p3, p2)
}

func TestScore_CaseReportIsSubtractive(t *testing.T) {
	alone, _ := Score(item("Phase III trial", ""), RuleSet{}, nil)
	both, explain := Score(item("Phase III trial", "Includes a case report."), RuleSet{}, nil)
	assert.Less(t, both, alone)
	assert.Greater(t, both, 0, "penalty is not a veto")
	assert.Contains(t, explain, "-3 case report")
}

func TestScore_FiresOncePerRule(t *testing.T) {
	score, explain := Score(item("phase 3 trial", "phase 3 again, PHASE 3"), RuleSet{}, nil)
	assert.Equal(t, 6, score)
	assert.Len(t, explain, 1)
}

func TestScore_SampleSize(t *testing.T) {
	big, explain := Score(item("Cohort", "enrolled = 250 and n=40"), RuleSet{}, nil)
	assert.Equal(t, 1, big)
	assert.Equal(t, []string{"+1 sample size >=200"}, explain)

	small, _ := Score(item("Cohort", "n = 120"), RuleSet{}, nil)
	assert.Equal(t, 0, small)
}

func TestScore_MajorJournalMatchesVenueSubstring(t *testing.T) {
	it := item("Update", "")
	it.Venue = "The Lancet Oncology"
	score, explain := Score(it, RuleSet{MajorJournals: []string{"Lancet Oncology"}}, nil)
	assert.Equal(t, 1, score)
	assert.Equal(t, []string{"+1 major journal"}, explain)
}

func TestScore_CitationBonus(t *testing.T) {
	it := item("Paper", "")
	it.Citations = intPtr(100) // log1p(100) = 4.61
	score, explain := Score(it, RuleSet{}, nil)
	assert.Equal(t, 4, score)
	assert.Equal(t, []string{"+4 citations bonus"}, explain)

	score, _ = Score(it, RuleSet{}, map[string]any{"citations_multiplier": 1.5})
	assert.Equal(t, 6, score)

	it.Citations = intPtr(0)
	score, explain = Score(it, RuleSet{}, nil)
	assert.Zero(t, score)
	assert.Empty(t, explain)
}

func TestScore_Penalties(t *testing.T) {
	rules := RuleSet{GlobalPenaltyTerms: []string{"Retracted"}}
	score, explain := Score(item("Murine model", "in vitro work, later retracted"), rules, nil)
	assert.Equal(t, -4-2, score)
	assert.Equal(t, []string{"-4 preclinical signal", "-2 global penalty"}, explain)
}

func TestScore_IncludeExcludeTerms(t *testing.T) {
	rules := RuleSet{
		IncludeTerms: []string{"Pembrolizumab", "pembrolizumab", "nivolumab", "absent"},
		ExcludeTerms: []string{"pediatric"},
	}
	score, explain := Score(item("Pembrolizumab and nivolumab", "in pediatric patients"), rules, nil)
	assert.Equal(t, 1+1-1, score)
	assert.Equal(t, []string{
		"+1 include term: Pembrolizumab",
		"+1 include term: nivolumab",
		"-1 exclude term: pediatric",
	}, explain)
}

func TestResolveWeights(t *testing.T) {
	w := ResolveWeights(map[string]any{
		"phase_iii":     "9",
		"randomized":    true,
		"meta_analysis": "lots",
		"not_a_rule":    100,
		"phase_ii":      2.9,
		"sample_size":   "",
	})
	assert.Equal(t, 9.0, w[WeightPhaseIII])
	assert.Equal(t, 5.0, w[WeightRandomized])
	assert.Equal(t, 4.0, w[WeightMetaAnalysis])
	assert.Equal(t, 1.0, w[WeightSampleSize])
	assert.NotContains(t, w, "not_a_rule")

	// Points truncate toward zero.
	score, explain := ScoreWith(item("phase 2 study", ""), RuleSet{}, w)
	assert.Equal(t, 2, score)
	assert.Equal(t, []string{"+2 phase ii"}, explain)
}

func TestDefaultWeightsIsACopy(t *testing.T) {
	w := DefaultWeights()
	w[WeightPhaseIII] = 100
	assert.Equal(t, 6.0, DefaultWeights()[WeightPhaseIII])
}

func TestScore_QueryRelevance(t *testing.T) {
	q := &QueryContext{
		Raw:      "pembrolizumab pneumonitis",
		Keywords: []string{"pembrolizumab", "pneumonitis", "steroids"},
		Concepts: [][]string{{"pneumonitis", "immune-related adverse event"}, {"PD-1", "programmed death-1"}},
	}
	it := item("Pembrolizumab pneumonitis outcomes", "Managing pneumonitis in practice.")
	score, explain := Score(it, RuleSet{Query: q}, nil)

	require.Equal(t, []string{
		"+8 query phrase match",
		"+1 query concept match (1)",
		"+2 query keyword match (2)",
		"+2 query coverage",
	}, explain)
	assert.Equal(t, 13, score)
}

func TestScore_QueryConceptCapped(t *testing.T) {
	var concepts [][]string
	var text string
	for _, term := range []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"} {
		concepts = append(concepts, []string{term})
		text += term + " "
	}
	_, explain := Score(item(text, ""), RuleSet{Query: &QueryContext{Concepts: concepts}}, nil)
	assert.Equal(t, []string{"+12 query concept match (6)"}, explain)
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, ContainsTerm("improved os in nsclc", "os"))
	assert.False(t, ContainsTerm("chaos theory", "os"))
	assert.True(t, ContainsTerm("pd-l1 high tumors", "PD-L1"))
	assert.False(t, ContainsTerm("anything", "  "))
}
