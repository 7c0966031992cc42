// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watchlist reads the YAML files that list topics and free-text
// queries to refresh in one batch, and writes the batch results back out.
package watchlist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Entry is one topic (specialty and subcategory) or one free-text query.
type Entry struct {
	Specialty   string `yaml:"specialty,omitempty"`
	Subcategory string `yaml:"subcategory,omitempty"`
	Query       string `yaml:"query,omitempty"`

	// Mode and DaysBack override the watchlist defaults for this entry.
	Mode     string `yaml:"mode,omitempty"`
	DaysBack int    `yaml:"days_back,omitempty"`
}

// IsQuery reports whether the entry is a free-text search.
func (e Entry) IsQuery() bool { return strings.TrimSpace(e.Query) != "" }

// Scope returns the topic scope. It is meaningless for queries.
func (e Entry) Scope() types.Scope {
	return types.Scope{Specialty: e.Specialty, Subcategory: e.Subcategory}
}

// Label names the entry in logs and reports.
func (e Entry) Label() string {
	if e.IsQuery() {
		return fmt.Sprintf("query %q", strings.TrimSpace(e.Query))
	}
	return e.Scope().String()
}

// Watchlist is the on-disk batch definition.
type Watchlist struct {
	Mode     string  `yaml:"mode,omitempty"`
	DaysBack int     `yaml:"days_back,omitempty"`
	Topics   []Entry `yaml:"topics,omitempty"`
	Queries  []Entry `yaml:"queries,omitempty"`
}

// Entries returns topics then queries with the watchlist defaults filled
// in where an entry leaves them unset.
func (w Watchlist) Entries() []Entry {
	out := make([]Entry, 0, len(w.Topics)+len(w.Queries))
	for _, group := range [][]Entry{w.Topics, w.Queries} {
		for _, e := range group {
			if e.Mode == "" {
				e.Mode = w.Mode
			}
			if e.DaysBack <= 0 {
				e.DaysBack = w.DaysBack
			}
			out = append(out, e)
		}
	}
	return out
}

// Validate reports every malformed entry.
func (w Watchlist) Validate() error {
	var errs []error
	for i, e := range w.Topics {
		if strings.TrimSpace(e.Specialty) == "" || strings.TrimSpace(e.Subcategory) == "" {
			errs = append(errs, fmt.Errorf("topics[%d]: specialty and subcategory are required", i))
		}
	}
	for i, e := range w.Queries {
		if !e.IsQuery() {
			errs = append(errs, fmt.Errorf("queries[%d]: query is required", i))
		}
	}
	if len(w.Topics)+len(w.Queries) == 0 {
		errs = append(errs, errors.New("watchlist has no topics or queries"))
	}
	return errors.Join(errs...)
}

// Decode parses and validates a watchlist.
func Decode(r io.Reader) (*Watchlist, error) {
	var w Watchlist
	if err := yaml.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("parsing watchlist: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// ReadFile loads a watchlist from disk.
func ReadFile(path string) (*Watchlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Result records the outcome of one entry.
type Result struct {
	Entry   Entry            `yaml:"entry"`
	Outcome types.RunOutcome `yaml:"outcome"`
	Error   string           `yaml:"error,omitempty"`
}

// Report is the YAML document written after a batch.
type Report struct {
	Results   []Result  `yaml:"results"`
	Succeeded int       `yaml:"succeeded"`
	Failed    int       `yaml:"failed"`
	Timestamp time.Time `yaml:"timestamp"`
}

// NewReport tallies results.
func NewReport(results []Result, now time.Time) Report {
	r := Report{Results: results, Timestamp: now}
	for _, res := range results {
		if res.Error == "" && res.Outcome.Status != types.RunFailed {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return r
}

// WriteReport saves a batch report as YAML.
func WriteReport(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling batch report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a previously written batch report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing batch report: %w", err)
	}
	return &r, nil
}
