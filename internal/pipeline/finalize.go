// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/oncopulse/internal/dedup"
	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/internal/summary"
	"github.com/pdiddy/oncopulse/pkg/types"
)

var (
	phaseTerms = []string{"phase ii", "phase 2", "phase iii", "phase 3"}
	rctTerms   = []string{"randomized", "rct", "meta-analysis", "systematic review"}
)

// Include applies the coarse phase II/III and RCT/meta-analysis filters
// over lowercase title and abstract.
func Include(records []types.RawRecord, opts types.RunOptions) []types.RawRecord {
	if !opts.Phase23Only && !opts.RCTMetaOnly {
		return records
	}
	out := make([]types.RawRecord, 0, len(records))
	for _, r := range records {
		text := strings.ToLower(r.Title + " " + r.AbstractOrText)
		if opts.Phase23Only && !containsAny(text, phaseTerms) {
			continue
		}
		if opts.RCTMetaOnly && !containsAny(text, rctTerms) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func dedupe(records []types.RawRecord) []types.RawRecord {
	return dedup.Deduplicate(records)
}

// fullTextSources are the records worth an open-access lookup.
var fullTextSources = map[string]bool{
	types.SourcePubMed:    true,
	types.SourceEuropePMC: true,
}

// extra is enrichment output that feeds the summary but is not stored.
type extra struct {
	text     string
	snippets []string
}

// finalize turns unique records into scored, summarized items. Enrichment
// runs while the budget is open; afterwards items are still scored.
func (p *Pipeline) finalize(ctx context.Context, j job, records []types.RawRecord, log zerolog.Logger) []types.Item {
	items := make([]types.Item, len(records))
	extras := make([]extra, len(records))
	for i, r := range records {
		items[i] = types.Item{
			RawRecord:   r,
			Fingerprint: dedup.Fingerprint(r),
			Scope:       j.scope,
			ModeName:    j.opts.ModeName,
		}
	}

	if p.enriching(j.opts) {
		var g errgroup.Group
		g.SetLimit(workers(j.opts))
		for i := range items {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				extras[i] = p.enrich(ctx, j.opts, &items[i], log)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i := range items {
		it := &items[i]
		it.Score, it.ScoreExplain = scoring.Score(*it, j.rules, j.opts.ScoringWeights)
		it.SummaryText = summary.Summarize(summary.Input{
			Abstract: it.AbstractOrText,
			FullText: extras[i].text,
			Status:   it.Status,
			Snippets: extras[i].snippets,
		})
	}
	return items
}

func (p *Pipeline) enriching(opts types.RunOptions) bool {
	return (opts.BackfillAbstracts && p.Abstracts != nil) ||
		(opts.UseFullTextOA && p.FullText != nil) ||
		(opts.EnrichCitations && p.Citations != nil)
}

// enrich fills in what the optional lookups can find. Every failure is
// logged and the item keeps going.
func (p *Pipeline) enrich(ctx context.Context, opts types.RunOptions, it *types.Item, log zerolog.Logger) extra {
	var ex extra
	ilog := log.With().Str("fingerprint", it.Fingerprint).Logger()

	if opts.BackfillAbstracts && p.Abstracts != nil && strings.TrimSpace(it.AbstractOrText) == "" {
		abs, err := p.Abstracts.Abstract(ctx, it.RawRecord)
		if err != nil {
			p.Metrics.EnrichmentFailed("abstract")
			ilog.Debug().Err(err).Msg("abstract backfill failed")
		}
		if abs != "" {
			it.AbstractOrText = abs
		}
	}

	if opts.UseFullTextOA && p.FullText != nil && fullTextSources[it.Source] && ctx.Err() == nil {
		res, err := p.FullText.Fetch(ctx, it.RawRecord)
		switch {
		case err != nil:
			p.Metrics.EnrichmentFailed("fulltext")
			ilog.Debug().Err(err).Msg("full text fetch failed")
		case res != nil:
			it.FullTextSource = res.Source
			if it.PMCID == "" {
				it.PMCID = res.PMCID
			}
			ex = extra{text: res.Text, snippets: res.Snippets}
		}
	}

	if opts.EnrichCitations && p.Citations != nil && ctx.Err() == nil {
		count, source, err := p.Citations.Lookup(ctx, it.DOI, it.PMID, opts.EnableSemanticScholar)
		if err != nil {
			p.Metrics.EnrichmentFailed("citations")
			ilog.Debug().Err(err).Msg("citation lookup failed")
		}
		if count != nil {
			it.Citations = count
			it.CitationsSource = source
		}
	}
	return ex
}
