// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"strings"

	"github.com/spf13/cast"
)

// Weight keys accepted in override maps.
const (
	WeightPhaseIII            = "phase_iii"
	WeightRandomized          = "randomized"
	WeightMetaAnalysis        = "meta_analysis"
	WeightPhaseII             = "phase_ii"
	WeightOverallSurvival     = "overall_survival"
	WeightPFS                 = "progression_free_survival"
	WeightSampleSize          = "sample_size"
	WeightMajorJournal        = "major_journal"
	WeightCitationsMultiplier = "citations_multiplier"
	WeightPreclinicalPenalty  = "preclinical_penalty"
	WeightCaseReportPenalty   = "case_report_penalty"
	WeightGlobalPenalty       = "global_penalty"
	WeightIncludeTerm         = "include_term"
	WeightExcludeTerm         = "exclude_term"
	WeightQueryExactPhrase    = "query_exact_phrase"
	WeightQueryConcept        = "query_concept"
	WeightQueryKeyword        = "query_keyword"
	WeightQueryCoverage       = "query_coverage"
)

// Weights maps rule keys to their point values.
type Weights map[string]float64

var defaultWeights = Weights{
	WeightPhaseIII:            6,
	WeightRandomized:          5,
	WeightMetaAnalysis:        4,
	WeightPhaseII:             3,
	WeightOverallSurvival:     2,
	WeightPFS:                 2,
	WeightSampleSize:          1,
	WeightMajorJournal:        1,
	WeightCitationsMultiplier: 1.0,
	WeightPreclinicalPenalty:  -4,
	WeightCaseReportPenalty:   -3,
	WeightGlobalPenalty:       -2,
	WeightIncludeTerm:         1,
	WeightExcludeTerm:         -1,
	WeightQueryExactPhrase:    8,
	WeightQueryConcept:        3,
	WeightQueryKeyword:        1,
	WeightQueryCoverage:       2,
}

// DefaultWeights returns a copy of the built-in weights.
func DefaultWeights() Weights {
	w := make(Weights, len(defaultWeights))
	for k, v := range defaultWeights {
		w[k] = v
	}
	return w
}

// IsWeightKey reports whether key names a known rule weight.
func IsWeightKey(key string) bool {
	_, ok := defaultWeights[key]
	return ok
}

// ResolveWeights merges overrides onto the defaults. Unknown keys and
// values that are not numbers or numeric strings are ignored.
func ResolveWeights(overrides map[string]any) Weights {
	w := DefaultWeights()
	for k, v := range overrides {
		if !IsWeightKey(k) {
			continue
		}
		if f, ok := toNumber(v); ok {
			w[k] = f
		}
	}
	return w
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, false
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// points truncates a weight toward zero, matching integer scoring.
func (w Weights) points(key string) int {
	return int(w[key])
}
