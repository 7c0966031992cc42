// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Display-ordering constants for HotScore.
const (
	hotCitationWeight = 0.55
	hotRecencyWeight  = 0.45
	hotRecencyDays    = 30.0
	missingAgeDays    = 3650
	minAgeYears       = 1.0 / 12.0
	secondsPerYear    = 365.25 * 86400.0
)

var pubDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParsePubDate parses the loose date formats connectors produce. Dates
// without a zone are taken as UTC.
func ParsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func itemDate(item types.Item) (time.Time, bool) {
	if item.PublishedAt != "" {
		return ParsePubDate(item.PublishedAt)
	}
	return ParsePubDate(item.UpdatedAt)
}

// CitationsPerYear divides the citation count by the item's age in years,
// with a one-month age floor. ok is false when citations are missing or
// negative or there is no parseable date.
func CitationsPerYear(item types.Item, now time.Time) (rate float64, ok bool) {
	if item.Citations == nil || *item.Citations < 0 {
		return 0, false
	}
	dt, ok := itemDate(item)
	if !ok {
		return 0, false
	}
	age := math.Max(now.Sub(dt).Seconds()/secondsPerYear, minAgeYears)
	return round(float64(*item.Citations)/age, 2), true
}

// HotScore blends citation momentum with recency for display ordering. It
// is never persisted. Items without a date count as ten years old.
func HotScore(item types.Item, now time.Time) float64 {
	ageDays := float64(missingAgeDays)
	if dt, ok := itemDate(item); ok {
		ageDays = math.Floor(now.Sub(dt).Hours() / 24)
	}
	recency := 1.0 / (1.0 + math.Max(ageDays, 0)/hotRecencyDays)
	rate, _ := CitationsPerYear(item, now)
	return round(hotCitationWeight*math.Log1p(math.Max(rate, 0))+hotRecencyWeight*recency, 4)
}

// SortHot orders items by descending HotScore, breaking ties by score.
func SortHot(items []types.Item, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		hi, hj := HotScore(items[i], now), HotScore(items[j], now)
		if hi != hj {
			return hi > hj
		}
		return items[i].Score > items[j].Score
	})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
