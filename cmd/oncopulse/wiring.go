// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oncopulse/internal/citations"
	"github.com/pdiddy/oncopulse/internal/connector"
	"github.com/pdiddy/oncopulse/internal/fulltext"
	"github.com/pdiddy/oncopulse/internal/metrics"
	"github.com/pdiddy/oncopulse/internal/packs"
	"github.com/pdiddy/oncopulse/internal/pipeline"
	"github.com/pdiddy/oncopulse/internal/store"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// pipelineMetrics is created once; collectors cannot be registered twice.
var pipelineMetrics *metrics.Metrics

func openStore() (*store.Store, error) {
	return store.NewStore(cfg.Store)
}

// newPipeline wires the connectors, enrichers and store together.
func newPipeline(s *store.Store) *pipeline.Pipeline {
	if pipelineMetrics == nil {
		pipelineMetrics = metrics.New(registry)
	}
	cc := cfg.Connectors
	client := connector.NewClient(cc.HTTPConfig)

	return &pipeline.Pipeline{
		Store:      s,
		Packs:      packs.Dir(cfg.PacksDir),
		Modes:      s,
		Connectors: connector.Defaults(cc, logger),
		Citations: &citations.Enricher{
			Client:             client,
			Cache:              s,
			TTL:                cc.CitationCacheTTL,
			Mailto:             cc.OpenAlexEmail,
			SemanticScholarKey: cc.SemanticScholarAPIKey,
		},
		FullText: &fulltext.Fetcher{
			Client: client,
			Cache:  s,
			TTL:    cc.FullTextCacheTTL,
			APIKey: cc.NCBIAPIKey,
		},
		Abstracts: &connector.AbstractBackfill{
			EuropePMC: &connector.EuropePMC{Client: client},
			Client:    client,
		},
		Metrics: pipelineMetrics,
		Logger:  logger,
	}
}

// addRunFlags registers the flags shared by run, search and batch.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", "", "mode preset or custom profile name")
	f.Int("days-back", 0, "lookback window in days")
	f.Int("cap-days", 0, "upper bound on the incremental window")
	f.Bool("force", false, "ignore run history and fetch the full window")
	f.Int("max-run-seconds", 0, "wall-clock budget for the run (negative disables)")
	f.Int("workers", 0, "concurrent connector calls")
	f.StringSlice("sources", nil, "enabled source categories: papers, trials, preprints, journal_rss, fda")
	f.Bool("citations", false, "look up citation counts")
	f.Bool("semantic-scholar", false, "fall back to Semantic Scholar for citations")
	f.Bool("full-text", false, "pull open-access full text for summaries")
	f.Bool("backfill-abstracts", false, "recover missing abstracts from Europe PMC and landing pages")
	f.Bool("phase-2-3-only", false, "keep only phase II/III items")
	f.Bool("rct-meta-only", false, "keep only randomized trials and meta-analyses")
}

// modeConfigured reports whether run.mode_name came from the config file
// or the environment rather than the built-in default.
func modeConfigured() bool {
	if viper.InConfig("run.mode_name") {
		return true
	}
	_, ok := os.LookupEnv("ONCOPULSE_" + strings.ToUpper(envReplacer.Replace("run.mode_name")))
	return ok
}

// runOptions starts from the configured run options, applies a mode
// profile when one was asked for, then any flag the user set explicitly.
// Without --mode or a configured run.mode_name the configured sources and
// weights are used as is.
func runOptions(cmd *cobra.Command, p *pipeline.Pipeline) (types.RunOptions, error) {
	opts := cfg.Run
	f := cmd.Flags()

	name, _ := f.GetString("mode")
	if name == "" && modeConfigured() {
		name = opts.ModeName
	}
	if name != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		var err error
		if opts, err = p.WithMode(ctx, opts, name); err != nil {
			return opts, err
		}
	}

	if f.Changed("days-back") {
		opts.DaysBack, _ = f.GetInt("days-back")
	}
	if f.Changed("cap-days") {
		opts.IncrementalCapDays, _ = f.GetInt("cap-days")
	}
	if f.Changed("max-run-seconds") {
		opts.MaxRunSeconds, _ = f.GetInt("max-run-seconds")
	}
	if f.Changed("workers") {
		opts.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("sources") {
		list, _ := f.GetStringSlice("sources")
		s, err := parseSources(list)
		if err != nil {
			return opts, err
		}
		opts.Sources = s
	}
	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"force", &opts.ForceFullRefresh},
		{"citations", &opts.EnrichCitations},
		{"semantic-scholar", &opts.EnableSemanticScholar},
		{"full-text", &opts.UseFullTextOA},
		{"backfill-abstracts", &opts.BackfillAbstracts},
		{"phase-2-3-only", &opts.Phase23Only},
		{"rct-meta-only", &opts.RCTMetaOnly},
	}
	for _, b := range boolFlags {
		if f.Changed(b.name) {
			*b.dst, _ = f.GetBool(b.name)
		}
	}
	return opts, nil
}

func parseSources(list []string) (types.Sources, error) {
	var s types.Sources
	for _, name := range list {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "papers":
			s.Papers = true
		case "trials":
			s.Trials = true
		case "preprints":
			s.Preprints = true
		case "journal_rss", "rss":
			s.JournalRSS = true
		case "fda":
			s.FDA = true
		case "":
		default:
			return s, fmt.Errorf("unknown source %q", name)
		}
	}
	return s, nil
}

func printOutcome(w io.Writer, out types.RunOutcome) {
	fmt.Fprintf(w, "Run %d %s: %s\n", out.RunID, out.Scope, out.Status)
	fmt.Fprintf(w, "  window:    %d days\n", out.EffectiveDaysBack)
	fmt.Fprintf(w, "  ingested:  %d\n", out.IngestedCount)
	fmt.Fprintf(w, "  persisted: %d\n", out.DedupedCount)
	if out.Reason != "" {
		fmt.Fprintf(w, "  reason:    %s\n", out.Reason)
	}
	for _, e := range out.ConnectorErrors {
		fmt.Fprintf(w, "  warning:   %s\n", e)
	}
}
