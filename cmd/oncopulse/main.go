// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the oncopulse CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oncopulse/internal/logging"
	"github.com/pdiddy/oncopulse/internal/secrets"
	"github.com/pdiddy/oncopulse/internal/store"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, filled in before each command runs.
	cfg types.Config

	logger = zerolog.Nop()

	// registry collects the metrics of this process for --metrics-file.
	registry = prometheus.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "oncopulse",
	Short: "Oncology literature, trial and regulatory watch",
	Long: `oncopulse pulls recent oncology papers, preprints, journal feed items,
clinical trials and FDA updates for configured topics or free-text queries,
deduplicates and scores them, and keeps them in a local SQLite database.

Topics come from specialty packs in the packs directory. Each refresh only
looks back as far as the last successful run for the same topic, mode and
sources, so repeated runs stay cheap.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("metrics-file")
		if path == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./oncopulse.yaml or ~/.config/oncopulse/oncopulse.yaml)")
	pf.String("db", "", "SQLite database path (default data/oncopulse.db)")
	pf.String("packs-dir", "", "directory of specialty packs (default packs)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human-readable console logs")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")

	_ = viper.BindPFlag("store.path", pf.Lookup("db"))
	_ = viper.BindPFlag("packs_dir", pf.Lookup("packs-dir"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.pretty", pf.Lookup("log-pretty"))

	setDefaults(viper.GetViper())
}

// envReplacer maps "run.days_back" to ONCOPULSE_RUN_DAYS_BACK.
var envReplacer = strings.NewReplacer(".", "_")

// setDefaults registers every configuration key so that environment
// variables can override them.
func setDefaults(v *viper.Viper) {
	run := types.DefaultRunOptions()

	v.SetDefault("store.path", store.DefaultPath)
	v.SetDefault("packs_dir", "packs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.with_caller", false)

	v.SetDefault("connectors.timeout", "8s")
	v.SetDefault("connectors.user_agent", "oncopulse/"+version)
	v.SetDefault("connectors.max_retries", 2)
	v.SetDefault("connectors.ncbi_api_key", "")
	v.SetDefault("connectors.ncbi_email", "")
	v.SetDefault("connectors.ncbi_tool", "oncopulse")
	v.SetDefault("connectors.semantic_scholar_api_key", "")
	v.SetDefault("connectors.openalex_email", "")
	v.SetDefault("connectors.citation_cache_ttl", "336h")
	v.SetDefault("connectors.full_text_cache_ttl", "720h")

	v.SetDefault("run.mode_name", run.ModeName)
	v.SetDefault("run.days_back", run.DaysBack)
	v.SetDefault("run.incremental_cap_days", run.IncrementalCapDays)
	v.SetDefault("run.sources.papers", run.Sources.Papers)
	v.SetDefault("run.sources.trials", run.Sources.Trials)
	v.SetDefault("run.sources.preprints", run.Sources.Preprints)
	v.SetDefault("run.sources.journal_rss", run.Sources.JournalRSS)
	v.SetDefault("run.sources.fda", run.Sources.FDA)
	v.SetDefault("run.limits", run.Limits)
	v.SetDefault("run.enrich_citations", run.EnrichCitations)
	v.SetDefault("run.enable_semantic_scholar", run.EnableSemanticScholar)
	v.SetDefault("run.use_full_text_oa", run.UseFullTextOA)
	v.SetDefault("run.backfill_abstracts", run.BackfillAbstracts)
	v.SetDefault("run.max_run_seconds", run.MaxRunSeconds)
	v.SetDefault("run.workers", run.Workers)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("oncopulse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "oncopulse"))
		}
	}

	viper.SetEnvPrefix("ONCOPULSE")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()
}

// setup loads .env, the config file, the logger and secrets.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	logger = logging.New(cfg.Log, os.Stderr)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug().Str("path", used).Msg("using config file")
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug().Strs("keys", keys).Msg("loaded secrets")
	}
	secrets.Apply(s, &cfg.Connectors)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
