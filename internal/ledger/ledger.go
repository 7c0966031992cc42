// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger resolves the incremental lookback window for a run from
// the history of previous successful runs.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Key identifies a run history lane. Runs only inform each other when all
// three fields match exactly.
type Key struct {
	Scope      types.Scope
	ModeName   string
	SourcesKey string
}

// Lookup finds the most recent successful run for a key. It returns nil
// without error when there is none.
type Lookup interface {
	LastSuccessfulRun(ctx context.Context, key Key) (*types.RunRecord, error)
}

// ResolveWindow returns the number of days to look back. A forced refresh
// uses requestedDays as is. Otherwise the window covers the time since the
// last successful run for key, rounded up to whole days and clamped to
// [1, capDays]. capDays <= 0 means requestedDays.
func ResolveWindow(ctx context.Context, lookup Lookup, key Key, requestedDays, capDays int, force bool, now time.Time) (int, *types.RunRecord, error) {
	if force {
		return requestedDays, nil, nil
	}
	if capDays <= 0 {
		capDays = requestedDays
	}
	fallback := min(requestedDays, capDays)

	last, err := lookup.LastSuccessfulRun(ctx, key)
	if err != nil {
		return 0, nil, fmt.Errorf("looking up last run for %s: %w", key.Scope, err)
	}
	if last == nil {
		return fallback, nil, nil
	}

	ref := last.FinishedAt
	if ref.IsZero() {
		ref = last.StartedAt
	}
	if ref.IsZero() {
		return fallback, last, nil
	}

	days := int(math.Ceil(now.Sub(ref).Hours() / 24))
	days = max(days, 1)
	days = min(days, capDays)
	return days, last, nil
}
