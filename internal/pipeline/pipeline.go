// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one ingestion pass for a topic or a free-text
// query: it resolves the lookback window, fans out to the connectors under
// a wall-clock budget, filters, deduplicates, enriches, scores and persists
// the results, and records the run outcome in the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oncopulse/internal/connector"
	"github.com/pdiddy/oncopulse/internal/fulltext"
	"github.com/pdiddy/oncopulse/internal/ledger"
	"github.com/pdiddy/oncopulse/internal/metrics"
	"github.com/pdiddy/oncopulse/internal/mode"
	"github.com/pdiddy/oncopulse/internal/packs"
	"github.com/pdiddy/oncopulse/internal/query"
	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// ErrEmptyQuery is returned by RunQuery for a blank query.
var ErrEmptyQuery = errors.New("empty query")

const defaultWorkers = 4

// Store is the persistence the pipeline needs.
type Store interface {
	ledger.Lookup
	CreateRun(ctx context.Context, r types.RunRecord) (types.RunRecord, error)
	FinishRun(ctx context.Context, id int64, status types.RunStatus, ingested, deduped int, errText string) error
	UpsertItems(ctx context.Context, items []types.Item) ([]int64, error)
	ClearScope(ctx context.Context, scope types.Scope) (int64, error)
}

// CitationLookup returns a citation count and the service that supplied it.
type CitationLookup interface {
	Lookup(ctx context.Context, doi, pmid string, secondary bool) (*int, string, error)
}

// FullTextFetcher returns open-access full text for a record, or nil.
type FullTextFetcher interface {
	Fetch(ctx context.Context, r types.RawRecord) (*fulltext.Result, error)
}

// AbstractSource recovers an abstract for records that arrived without one.
type AbstractSource interface {
	Abstract(ctx context.Context, r types.RawRecord) (string, error)
}

// Pipeline holds the collaborators shared by every run. Citations,
// FullText, Abstracts, Modes and Metrics are optional.
type Pipeline struct {
	Store      Store
	Packs      packs.Lookup
	Modes      mode.Store
	Connectors []connector.Connector
	Citations  CitationLookup
	FullText   FullTextFetcher
	Abstracts  AbstractSource
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger

	// Now overrides the clock for window resolution and connector requests.
	Now func() time.Time

	mu    sync.Mutex
	locks map[types.Scope]*sync.Mutex
}

// job is one resolved unit of work shared by topic and query runs.
type job struct {
	scope      types.Scope
	opts       types.RunOptions
	days       int
	paperQuery string
	trialQuery string
	rules      scoring.RuleSet

	// relevance is set for free-text searches.
	relevance *scoring.QueryContext
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// lock serializes runs against the same scope within this process.
func (p *Pipeline) lock(scope types.Scope) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[types.Scope]*sync.Mutex)
	}
	m, ok := p.locks[scope]
	if !ok {
		m = &sync.Mutex{}
		p.locks[scope] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Run refreshes one topic. The effective window comes from the run
// history unless opts.ForceFullRefresh is set.
func (p *Pipeline) Run(ctx context.Context, scope types.Scope, opts types.RunOptions) (types.RunOutcome, error) {
	pack, err := p.Packs.Pack(ctx, scope.Specialty, scope.Subcategory)
	if err != nil {
		return failedOutcome(scope, err), fmt.Errorf("loading pack for %s: %w", scope, err)
	}
	scope = packScope(scope, pack)

	unlock := p.lock(scope)
	defer unlock()

	key := ledger.Key{Scope: scope, ModeName: opts.ModeName, SourcesKey: opts.Sources.Key()}
	days, _, err := ledger.ResolveWindow(ctx, p.Store, key, opts.DaysBack, opts.CapDays(), opts.ForceFullRefresh, p.now())
	if err != nil {
		return failedOutcome(scope, err), err
	}

	return p.execute(ctx, job{
		scope:      scope,
		opts:       opts,
		days:       days,
		paperQuery: pack.PaperQuery,
		trialQuery: pack.TrialQuery,
		rules:      pack.Rules(),
	})
}

// RunQuery runs a free-text search. Searches always fetch the full window
// and replace whatever the scope held before.
func (p *Pipeline) RunQuery(ctx context.Context, raw string, opts types.RunOptions) (types.RunOutcome, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.RunOutcome{RunID: -1, Status: types.RunFailed, Reason: "empty query"}, ErrEmptyQuery
	}

	bundle := query.Expand(raw)
	scope := query.SearchScope(raw)
	qc := bundle.Context()
	opts.ForceFullRefresh = true

	unlock := p.lock(scope)
	defer unlock()

	if _, err := p.Store.ClearScope(ctx, scope); err != nil {
		return failedOutcome(scope, err), fmt.Errorf("clearing %s: %w", scope, err)
	}

	return p.execute(ctx, job{
		scope:      scope,
		opts:       opts,
		days:       opts.DaysBack,
		paperQuery: bundle.PaperQuery,
		trialQuery: bundle.TrialQuery,
		rules:      packs.SearchRules(bundle.Keywords, qc),
		relevance:  qc,
	})
}

// WithMode applies the named preset or custom profile to base.
func (p *Pipeline) WithMode(ctx context.Context, base types.RunOptions, name string) (types.RunOptions, error) {
	prof, err := mode.Resolve(ctx, p.Modes, name)
	if err != nil {
		return base, err
	}
	return prof.Apply(base), nil
}

// packScope names the scope the way the pack does, so differently cased
// requests for one topic share items and run history. Pack files are keyed
// by lower-case specialty.
func packScope(requested types.Scope, pack packs.Pack) types.Scope {
	scope := types.Scope{
		Specialty:   strings.ToLower(strings.TrimSpace(requested.Specialty)),
		Subcategory: strings.TrimSpace(pack.Subcategory),
	}
	if scope.Subcategory == "" {
		scope.Subcategory = strings.TrimSpace(requested.Subcategory)
	}
	return scope
}

func failedOutcome(scope types.Scope, err error) types.RunOutcome {
	return types.RunOutcome{RunID: -1, Scope: scope, Status: types.RunFailed, Reason: err.Error()}
}

// budgetContext bounds ctx by the run budget. seconds <= 0 disables it.
func budgetContext(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

func (p *Pipeline) execute(ctx context.Context, j job) (types.RunOutcome, error) {
	rec, err := p.Store.CreateRun(ctx, types.RunRecord{
		Scope:            j.scope,
		ModeName:         j.opts.ModeName,
		SourcesKey:       j.opts.Sources.Key(),
		ResolvedDaysBack: j.days,
		ForceFullRefresh: j.opts.ForceFullRefresh,
	})
	if err != nil {
		return failedOutcome(j.scope, err), err
	}

	log := p.Logger.With().
		Int64("run_id", rec.ID).
		Str("scope", j.scope.String()).
		Str("mode", j.opts.ModeName).
		Logger()
	log.Info().Int("days_back", j.days).Str("sources", rec.SourcesKey).Msg("run started")

	start := time.Now()
	budget, cancel := budgetContext(ctx, j.opts.MaxRunSeconds)
	defer cancel()

	out := types.RunOutcome{
		RunID:             rec.ID,
		RunUUID:           rec.UUID,
		Scope:             j.scope,
		EffectiveDaysBack: j.days,
	}

	records, connErrs := p.gather(budget, j, log)
	out.ConnectorErrors = connErrs
	if j.relevance != nil {
		records = query.Filter(records, j.relevance)
	}
	out.IngestedCount = len(records)

	unique := dedupe(Include(records, j.opts))
	items := p.finalize(budget, j, unique, log)

	// Persistence and the ledger write outlive the budget.
	persistCtx := context.WithoutCancel(ctx)
	if err := ctx.Err(); err != nil {
		return p.fail(persistCtx, out, start, fmt.Errorf("run cancelled: %w", err), log)
	}
	if _, err := p.Store.UpsertItems(persistCtx, items); err != nil {
		return p.fail(persistCtx, out, start, fmt.Errorf("persisting items: %w", err), log)
	}
	out.DedupedCount = len(items)

	out.Status = types.RunSuccess
	if errors.Is(budget.Err(), context.DeadlineExceeded) {
		out.Status = types.RunTimeout
		out.TimedOut = true
		out.Reason = fmt.Sprintf("timed out after %ds", j.opts.MaxRunSeconds)
	}
	if err := p.Store.FinishRun(persistCtx, rec.ID, out.Status, out.IngestedCount, out.DedupedCount, out.Reason); err != nil {
		return p.fail(persistCtx, out, start, fmt.Errorf("finishing run: %w", err), log)
	}

	elapsed := time.Since(start)
	p.Metrics.ObserveRun(string(out.Status), out.DedupedCount, elapsed)
	log.Info().
		Str("status", string(out.Status)).
		Int("ingested", out.IngestedCount).
		Int("persisted", out.DedupedCount).
		Int("connector_errors", len(connErrs)).
		Dur("elapsed", elapsed).
		Msg("run finished")
	return out, nil
}

// fail finalizes the run as failed and hands the error back to the caller.
func (p *Pipeline) fail(ctx context.Context, out types.RunOutcome, start time.Time, err error, log zerolog.Logger) (types.RunOutcome, error) {
	out.Status = types.RunFailed
	out.DedupedCount = 0
	out.Reason = err.Error()
	if ferr := p.Store.FinishRun(ctx, out.RunID, types.RunFailed, out.IngestedCount, 0, err.Error()); ferr != nil {
		err = errors.Join(err, ferr)
	}
	p.Metrics.ObserveRun(string(types.RunFailed), 0, time.Since(start))
	log.Error().Err(err).Msg("run failed")
	return out, err
}
