// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/oncopulse/internal/connector"
	"github.com/pdiddy/oncopulse/pkg/types"
)

type connectorResult struct {
	records []types.RawRecord
	err     error
	skipped bool
}

func workers(opts types.RunOptions) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return defaultWorkers
}

// enabled returns the connectors whose category the run switched on.
func (p *Pipeline) enabled(s types.Sources) []connector.Connector {
	var out []connector.Connector
	for _, c := range p.Connectors {
		if s.Enabled(string(c.Category())) {
			out = append(out, c)
		}
	}
	return out
}

// gather calls every enabled connector with at most workers in flight.
// Connectors not yet started when the budget closes are skipped. Failures
// degrade to whatever the connector returned; results keep connector order.
func (p *Pipeline) gather(ctx context.Context, j job, log zerolog.Logger) ([]types.RawRecord, []string) {
	conns := p.enabled(j.opts.Sources)
	results := make([]connectorResult, len(conns))
	now := p.now()

	var g errgroup.Group
	g.SetLimit(workers(j.opts))
	for i, c := range conns {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].skipped = true
				return nil
			}
			q := j.paperQuery
			if connector.UsesTrialQuery(c.Category()) {
				q = j.trialQuery
			}
			req := connector.Request{
				Query:      q,
				WindowDays: j.days,
				Limit:      j.opts.Limit(c.Name()),
				Now:        now,
			}
			results[i].records, results[i].err = p.call(ctx, c, req)
			return nil
		})
	}
	_ = g.Wait()

	var all []types.RawRecord
	var errs []string
	for i, res := range results {
		name := conns[i].Name()
		switch {
		case res.skipped:
			log.Warn().Str("connector", name).Msg("budget exhausted, connector skipped")
			continue
		case res.err != nil:
			errs = append(errs, fmt.Sprintf("%s: %v", name, res.err))
			log.Warn().Err(res.err).Str("connector", name).Int("records", len(res.records)).Msg("connector failed")
		default:
			log.Debug().Str("connector", name).Int("records", len(res.records)).Msg("connector done")
		}
		all = append(all, res.records...)
	}
	return all, errs
}

// call runs one connector, turning a panic into an error.
func (p *Pipeline) call(ctx context.Context, c connector.Connector, req connector.Request) (records []types.RawRecord, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("panic: %v", r)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.Metrics.ObserveConnector(c.Name(), status, len(records), time.Since(start))
	}()
	return c.Search(ctx, req)
}
