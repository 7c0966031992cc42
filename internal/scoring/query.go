// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"regexp"
	"strings"
)

// QueryContext carries the free-text query into scoring and relevance
// checks.
type QueryContext struct {
	Raw      string     `json:"raw" yaml:"raw"`
	Keywords []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Concepts [][]string `json:"concepts,omitempty" yaml:"concepts,omitempty"`
}

const (
	minExactPhraseLen = 12
	maxKeywordHits    = 6
	minCoverageTerms  = 3
	coverageRatio     = 0.5

	// conceptCapGroups bounds the concept boost at this many fully matched groups.
	conceptCapGroups = 4
)

var alnumRe = regexp.MustCompile(`^[a-z0-9]+$`)

// ContainsTerm matches purely alphanumeric terms on word boundaries and
// anything else by substring. blob must already be lowercase.
func ContainsTerm(blob, term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return false
	}
	if alnumRe.MatchString(t) {
		return regexp.MustCompile(`\b` + t + `\b`).MatchString(blob)
	}
	return strings.Contains(blob, t)
}

// ConceptHits counts concept groups with at least one matching term.
func ConceptHits(blob string, concepts [][]string) int {
	hits := 0
	for _, group := range concepts {
		for _, t := range group {
			if ContainsTerm(blob, t) {
				hits++
				break
			}
		}
	}
	return hits
}

func queryRelevance(s *tally, blob string, q *QueryContext, w Weights) {
	raw := strings.ToLower(strings.TrimSpace(q.Raw))
	if len(raw) >= minExactPhraseLen && strings.Contains(blob, raw) {
		s.add(w.points(WeightQueryExactPhrase), "query phrase match")
	}

	total := 0
	for _, g := range q.Concepts {
		if len(g) > 0 {
			total++
		}
	}
	if hits := ConceptHits(blob, q.Concepts); hits > 0 && total > 0 {
		weight := w[WeightQueryConcept]
		points := int(weight * float64(hits) * float64(hits) / float64(total))
		if limit := int(weight * conceptCapGroups); points > limit {
			points = limit
		}
		s.add(points, "query concept match ("+itoa(hits)+")")
	}

	keywords := distinct(lowerAll(q.Keywords))
	hit := 0
	for _, k := range keywords {
		if ContainsTerm(blob, k) {
			hit++
		}
	}
	if hit == 0 {
		return
	}
	counted := min(hit, maxKeywordHits)
	s.add(w.points(WeightQueryKeyword)*counted, "query keyword match ("+itoa(counted)+")")

	if len(keywords) >= minCoverageTerms && float64(hit)/float64(len(keywords)) >= coverageRatio {
		s.add(w.points(WeightQueryCoverage), "query coverage")
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
