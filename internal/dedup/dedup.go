// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup assigns identifier-priority fingerprints to records and
// collapses duplicates across sources.
package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	yearRe     = regexp.MustCompile(`(19|20)\d{2}`)
)

// NormalizeTitle lowercases the title, replaces anything that is not an
// ASCII letter, digit or whitespace with a space, and collapses whitespace.
func NormalizeTitle(title string) string {
	t := nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	return strings.Join(strings.Fields(t), " ")
}

// YearBucket returns the first 19xx/20xx year found in date, or "unknown".
func YearBucket(date string) string {
	if y := yearRe.FindString(date); y != "" {
		return y
	}
	return "unknown"
}

// Fingerprint returns the dedup key for r. External identifiers win in the
// order DOI, PMID, NCT id; otherwise a digest of normalized title and year.
func Fingerprint(r types.RawRecord) string {
	ids := []struct{ kind, value string }{
		{"doi", r.DOI},
		{"pmid", r.PMID},
		{"nct_id", r.NCTID},
	}
	for _, id := range ids {
		if v := strings.ToLower(strings.TrimSpace(id.value)); v != "" {
			return id.kind + ":" + v
		}
	}

	date := r.PublishedAt
	if date == "" {
		date = r.UpdatedAt
	}
	raw := "title:" + NormalizeTitle(r.Title) + "|year:" + YearBucket(date)
	sum := sha1.Sum([]byte(raw))
	return "titleyear:" + hex.EncodeToString(sum[:])[:16]
}

// Deduplicate returns records with duplicate fingerprints removed. Order is
// stable and the first occurrence wins; later duplicates are dropped, not
// merged.
func Deduplicate(records []types.RawRecord) []types.RawRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]types.RawRecord, 0, len(records))
	for _, r := range records {
		fp := Fingerprint(r)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, r)
	}
	return out
}
