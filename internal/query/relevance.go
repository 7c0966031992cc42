// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/pkg/types"
)

const minRawMatchLen = 4

// Blob joins the text and structured fields a record is searched over.
func Blob(r types.RawRecord) string {
	return strings.ToLower(strings.Join([]string{
		r.Title, r.AbstractOrText, r.Conditions, r.Interventions,
		r.PrimaryEndpoints, r.StudyType, r.Phase,
	}, " "))
}

// Relevant reports whether r mentions any concept term, any keyword, or
// the raw query itself. Connectors may return broader results than the
// literal query; this keeps a search scope on topic.
func Relevant(r types.RawRecord, q *scoring.QueryContext) bool {
	if q == nil {
		return true
	}
	blob := Blob(r)
	if strings.TrimSpace(blob) == "" {
		return false
	}
	if scoring.ConceptHits(blob, q.Concepts) > 0 {
		return true
	}
	for _, k := range q.Keywords {
		if scoring.ContainsTerm(blob, k) {
			return true
		}
	}
	raw := strings.ToLower(strings.TrimSpace(q.Raw))
	return len(raw) >= minRawMatchLen && strings.Contains(blob, raw)
}

// Filter keeps the relevant records in order.
func Filter(records []types.RawRecord, q *scoring.QueryContext) []types.RawRecord {
	out := make([]types.RawRecord, 0, len(records))
	for _, r := range records {
		if Relevant(r, q) {
			out = append(out, r)
		}
	}
	return out
}
