// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"

	"github.com/pdiddy/oncopulse/internal/watchlist"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// RunBatch runs every watchlist entry in order. An entry that fails is
// recorded and the batch moves on; a cancelled ctx marks the rest failed.
func (p *Pipeline) RunBatch(ctx context.Context, w *watchlist.Watchlist, base types.RunOptions) []watchlist.Result {
	entries := w.Entries()
	results := make([]watchlist.Result, 0, len(entries))
	for _, e := range entries {
		res := watchlist.Result{Entry: e}
		if err := ctx.Err(); err != nil {
			res.Outcome = types.RunOutcome{RunID: -1, Status: types.RunFailed}
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		out, err := p.runEntry(ctx, e, base)
		res.Outcome = out
		if err != nil {
			res.Error = err.Error()
			p.Logger.Warn().Err(err).Str("entry", e.Label()).Msg("batch entry failed")
		}
		results = append(results, res)
	}
	return results
}

func (p *Pipeline) runEntry(ctx context.Context, e watchlist.Entry, base types.RunOptions) (types.RunOutcome, error) {
	opts := base
	if e.Mode != "" {
		var err error
		if opts, err = p.WithMode(ctx, opts, e.Mode); err != nil {
			return types.RunOutcome{RunID: -1, Status: types.RunFailed, Reason: err.Error()}, err
		}
	}
	if e.DaysBack > 0 {
		opts.DaysBack = e.DaysBack
	}
	if e.IsQuery() {
		return p.RunQuery(ctx, e.Query, opts)
	}
	return p.Run(ctx, e.Scope(), opts)
}
