// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring ranks items with deterministic, additive text rules and
// records every fired rule as a signed explanation line.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// RuleSet is the per-run scoring configuration: pack term lists, the
// journal allowlist and, in free-text search mode, the query context.
type RuleSet struct {
	IncludeTerms       []string `json:"include_terms,omitempty" yaml:"include_terms,omitempty"`
	ExcludeTerms       []string `json:"exclude_terms,omitempty" yaml:"exclude_terms,omitempty"`
	GlobalPenaltyTerms []string `json:"global_penalty_terms,omitempty" yaml:"global_penalty_terms,omitempty"`
	MajorJournals      []string `json:"major_journals,omitempty" yaml:"major_journals,omitempty"`

	Query *QueryContext `json:"query,omitempty" yaml:"query,omitempty"`
}

type phraseRule struct {
	key   string
	label string
	terms []string
}

// phraseBoosts fire at most once each, in this order.
var phraseBoosts = []phraseRule{
	{WeightPhaseIII, "phase iii", []string{"phase iii", "phase 3"}},
	{WeightRandomized, "randomized", []string{"randomized", "rct"}},
	{WeightMetaAnalysis, "meta-analysis", []string{"meta-analysis", "systematic review"}},
	{WeightPhaseII, "phase ii", []string{"phase ii", "phase 2"}},
	{WeightOverallSurvival, "overall survival", []string{"overall survival", " os "}},
	{WeightPFS, "progression-free survival", []string{"progression-free survival", " pfs "}},
}

var (
	preclinicalTerms = []string{"mouse", "murine", "cell line", "in vitro"}
	caseReportTerms  = []string{"case report"}
)

// SampleSizeThreshold is the enrollment count that earns the sample-size boost.
const SampleSizeThreshold = 200

var sampleSizeRe = regexp.MustCompile(`\b(?:n\s*=\s*|enrolled\s*=\s*|patients?\s*=\s*)(\d{2,5})\b`)

// Score resolves overrides onto the default weights and scores item.
func Score(item types.Item, rules RuleSet, overrides map[string]any) (int, []string) {
	return ScoreWith(item, rules, ResolveWeights(overrides))
}

// ScoreWith scores item against rules using already-resolved weights. It is
// pure: identical inputs always give the same score and explanation.
func ScoreWith(item types.Item, rules RuleSet, w Weights) (int, []string) {
	blob := Blob(item.Title, item.AbstractOrText)
	venue := strings.ToLower(item.Venue)

	s := &tally{}

	for _, r := range phraseBoosts {
		if hasAny(blob, r.terms) {
			s.add(w.points(r.key), r.label)
		}
	}

	if maxSampleSize(blob) >= SampleSizeThreshold {
		s.add(w.points(WeightSampleSize), "sample size >=200")
	}

	if venue != "" && hasAny(venue, rules.MajorJournals) {
		s.add(w.points(WeightMajorJournal), "major journal")
	}

	if item.Citations != nil && *item.Citations >= 0 {
		bonus := int(math.Log1p(float64(*item.Citations)) * w[WeightCitationsMultiplier])
		if bonus > 0 {
			s.add(bonus, "citations bonus")
		}
	}

	penalties := []struct {
		key   string
		label string
		terms []string
	}{
		{WeightPreclinicalPenalty, "preclinical signal", preclinicalTerms},
		{WeightCaseReportPenalty, "case report", caseReportTerms},
		{WeightGlobalPenalty, "global penalty", rules.GlobalPenaltyTerms},
	}
	for _, p := range penalties {
		if hasAny(blob, p.terms) {
			s.add(w.points(p.key), p.label)
		}
	}

	for _, term := range distinct(rules.IncludeTerms) {
		if strings.Contains(blob, strings.ToLower(term)) {
			s.add(w.points(WeightIncludeTerm), "include term: "+term)
		}
	}
	for _, term := range distinct(rules.ExcludeTerms) {
		if strings.Contains(blob, strings.ToLower(term)) {
			s.add(w.points(WeightExcludeTerm), "exclude term: "+term)
		}
	}

	if rules.Query != nil {
		queryRelevance(s, blob, rules.Query, w)
	}

	return s.score, s.explain
}

// Blob is the lowercase text the phrase rules run over.
func Blob(title, abstract string) string {
	return strings.ToLower(title) + " " + strings.ToLower(abstract)
}

type tally struct {
	score   int
	explain []string
}

func (t *tally) add(points int, label string) {
	t.score += points
	t.explain = append(t.explain, signed(points)+" "+label)
}

// signed renders points with an explicit plus for non-negative values.
func signed(points int) string {
	if points >= 0 {
		return "+" + strconv.Itoa(points)
	}
	return strconv.Itoa(points)
}

func hasAny(text string, terms []string) bool {
	for _, t := range terms {
		t = strings.ToLower(t)
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func maxSampleSize(blob string) int {
	best := 0
	for _, m := range sampleSizeRe.FindAllStringSubmatch(blob, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}

// distinct drops blank and case-insensitively repeated terms, keeping the
// first spelling.
func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FormatExplain joins explanation lines for single-line display.
func FormatExplain(explain []string) string {
	if len(explain) == 0 {
		return ""
	}
	return fmt.Sprintf("[%s]", strings.Join(explain, "; "))
}

func itoa(n int) string { return strconv.Itoa(n) }
