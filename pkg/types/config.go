package types

import (
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by every component that makes
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 8s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "oncopulse/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on 429 and 5xx responses (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Pretty     bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	WithCaller bool   `json:"with_caller" yaml:"with_caller" mapstructure:"with_caller"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	// Path is the database file (default "data/oncopulse.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ConnectorConfig holds upstream credentials and identification.
type ConnectorConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	NCBIAPIKey            string   `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`
	NCBIEmail             string   `json:"ncbi_email" yaml:"ncbi_email" mapstructure:"ncbi_email"`
	NCBITool              string   `json:"ncbi_tool" yaml:"ncbi_tool" mapstructure:"ncbi_tool"`
	SemanticScholarAPIKey string   `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
	OpenAlexEmail         string   `json:"openalex_email" yaml:"openalex_email" mapstructure:"openalex_email"`
	JournalFeeds          []string `json:"journal_feeds,omitempty" yaml:"journal_feeds,omitempty" mapstructure:"journal_feeds"`

	// CitationCacheTTL and FullTextCacheTTL control enrichment cache freshness.
	CitationCacheTTL time.Duration `json:"citation_cache_ttl" yaml:"citation_cache_ttl" mapstructure:"citation_cache_ttl"`
	FullTextCacheTTL time.Duration `json:"full_text_cache_ttl" yaml:"full_text_cache_ttl" mapstructure:"full_text_cache_ttl"`
}

// Sources selects which connector categories take part in a run.
type Sources struct {
	Papers     bool `json:"papers" yaml:"papers" mapstructure:"papers"`
	Trials     bool `json:"trials" yaml:"trials" mapstructure:"trials"`
	Preprints  bool `json:"preprints" yaml:"preprints" mapstructure:"preprints"`
	JournalRSS bool `json:"journal_rss" yaml:"journal_rss" mapstructure:"journal_rss"`
	FDA        bool `json:"fda" yaml:"fda" mapstructure:"fda"`
}

// Key returns the canonical comma-joined list of enabled categories in the
// fixed order papers, trials, preprints, journal_rss, fda, or "none".
func (s Sources) Key() string {
	var parts []string
	if s.Papers {
		parts = append(parts, "papers")
	}
	if s.Trials {
		parts = append(parts, "trials")
	}
	if s.Preprints {
		parts = append(parts, "preprints")
	}
	if s.JournalRSS {
		parts = append(parts, "journal_rss")
	}
	if s.FDA {
		parts = append(parts, "fda")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Enabled reports whether the named category is switched on.
func (s Sources) Enabled(category string) bool {
	switch category {
	case "papers":
		return s.Papers
	case "trials":
		return s.Trials
	case "preprints":
		return s.Preprints
	case "journal_rss":
		return s.JournalRSS
	case "fda":
		return s.FDA
	}
	return false
}

// Default per-connector result limits.
const (
	DefaultPubMedLimit = 200
	DefaultSourceLimit = 100
)

// RunOptions controls a single pipeline run.
type RunOptions struct {
	ModeName           string `json:"mode_name" yaml:"mode_name" mapstructure:"mode_name"`
	DaysBack           int    `json:"days_back" yaml:"days_back" mapstructure:"days_back"`
	IncrementalCapDays int    `json:"incremental_cap_days" yaml:"incremental_cap_days" mapstructure:"incremental_cap_days"`
	ForceFullRefresh   bool   `json:"force_full_refresh" yaml:"force_full_refresh" mapstructure:"force_full_refresh"`

	Sources Sources `json:"sources" yaml:"sources" mapstructure:"sources"`

	// Limits maps connector names to maximum records; missing names fall
	// back to DefaultSourceLimit.
	Limits map[string]int `json:"limits,omitempty" yaml:"limits,omitempty" mapstructure:"limits"`

	Phase23Only bool `json:"phase_2_3_only" yaml:"phase_2_3_only" mapstructure:"phase_2_3_only"`
	RCTMetaOnly bool `json:"rct_meta_only" yaml:"rct_meta_only" mapstructure:"rct_meta_only"`

	EnrichCitations       bool `json:"enrich_citations" yaml:"enrich_citations" mapstructure:"enrich_citations"`
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`
	UseFullTextOA         bool `json:"use_full_text_oa" yaml:"use_full_text_oa" mapstructure:"use_full_text_oa"`
	BackfillAbstracts     bool `json:"backfill_abstracts" yaml:"backfill_abstracts" mapstructure:"backfill_abstracts"`

	// MaxRunSeconds is the wall-clock budget; zero or negative disables it.
	MaxRunSeconds int `json:"max_run_seconds" yaml:"max_run_seconds" mapstructure:"max_run_seconds"`

	// Workers bounds concurrent connector calls (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	ScoringWeights map[string]any `json:"scoring_weights,omitempty" yaml:"scoring_weights,omitempty" mapstructure:"scoring_weights"`
}

// DefaultRunOptions returns the options used when nothing is configured.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		ModeName: "All",
		DaysBack: 14,
		Sources: Sources{
			Papers:     true,
			Trials:     true,
			JournalRSS: true,
			FDA:        true,
		},
		Limits:        map[string]int{"pubmed": DefaultPubMedLimit},
		MaxRunSeconds: 45,
		Workers:       4,
	}
}

// Limit returns the configured limit for the named connector.
func (o RunOptions) Limit(name string) int {
	if n, ok := o.Limits[name]; ok && n > 0 {
		return n
	}
	if name == "pubmed" {
		return DefaultPubMedLimit
	}
	return DefaultSourceLimit
}

// CapDays returns the incremental cap, defaulting to DaysBack.
func (o RunOptions) CapDays() int {
	if o.IncrementalCapDays > 0 {
		return o.IncrementalCapDays
	}
	return o.DaysBack
}

// Config is the root configuration read by the CLI.
type Config struct {
	Store      StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Log        LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Connectors ConnectorConfig `json:"connectors" yaml:"connectors" mapstructure:"connectors"`
	Run        RunOptions      `json:"run" yaml:"run" mapstructure:"run"`

	// PacksDir holds topic pack files (default "packs").
	PacksDir string `json:"packs_dir" yaml:"packs_dir" mapstructure:"packs_dir"`
}
