// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package packs loads topic packs: per-specialty files that define the
// upstream queries and scoring terms for each subcategory.
package packs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/internal/scoring"
)

var (
	// ErrNoPack means no file exists for the specialty.
	ErrNoPack = errors.New("no pack for specialty")
	// ErrNoSubcategory means the pack exists but lacks the subcategory.
	ErrNoSubcategory = errors.New("no such subcategory")
)

// Subcategory is one topic within a specialty pack.
type Subcategory struct {
	Name         string   `yaml:"name" toml:"name" json:"name"`
	PubMedQuery  string   `yaml:"pubmed_query" toml:"pubmed_query" json:"pubmed_query"`
	TrialsQuery  string   `yaml:"trials_query" toml:"trials_query" json:"trials_query"`
	IncludeTerms []string `yaml:"include_terms" toml:"include_terms" json:"include_terms"`
	ExcludeTerms []string `yaml:"exclude_terms" toml:"exclude_terms" json:"exclude_terms"`
}

// File is the on-disk layout of a specialty pack.
type File struct {
	Specialty          string        `yaml:"specialty" toml:"specialty" json:"specialty"`
	Subcategories      []Subcategory `yaml:"subcategories" toml:"subcategories" json:"subcategories"`
	GlobalBoostTerms   []string      `yaml:"global_boost_terms" toml:"global_boost_terms" json:"global_boost_terms"`
	GlobalPenaltyTerms []string      `yaml:"global_penalty_terms" toml:"global_penalty_terms" json:"global_penalty_terms"`
	MajorJournals      []string      `yaml:"major_journals" toml:"major_journals" json:"major_journals"`
}

// Pack is a resolved (specialty, subcategory) pair with the specialty-wide
// term lists attached.
type Pack struct {
	Specialty          string   `json:"specialty" yaml:"specialty"`
	Subcategory        string   `json:"subcategory" yaml:"subcategory"`
	PaperQuery         string   `json:"pubmed_query" yaml:"pubmed_query"`
	TrialQuery         string   `json:"trials_query" yaml:"trials_query"`
	IncludeTerms       []string `json:"include_terms" yaml:"include_terms"`
	ExcludeTerms       []string `json:"exclude_terms" yaml:"exclude_terms"`
	GlobalBoostTerms   []string `json:"global_boost_terms,omitempty" yaml:"global_boost_terms,omitempty"`
	GlobalPenaltyTerms []string `json:"global_penalty_terms" yaml:"global_penalty_terms"`
	MajorJournals      []string `json:"major_journals" yaml:"major_journals"`
}

// Rules builds the scoring rule set for the pack.
func (p Pack) Rules() scoring.RuleSet {
	return scoring.RuleSet{
		IncludeTerms:       p.IncludeTerms,
		ExcludeTerms:       p.ExcludeTerms,
		GlobalPenaltyTerms: p.GlobalPenaltyTerms,
		MajorJournals:      p.MajorJournals,
	}
}

// Default penalty terms and journal allowlist used for free-text searches.
var (
	DefaultPenaltyTerms  = []string{"case report", "in vitro", "murine", "mouse"}
	DefaultMajorJournals = []string{
		"NEJM",
		"J Clin Oncol",
		"Lancet",
		"Lancet Oncology",
		"Annals of Oncology",
		"Nature Medicine",
		"Blood",
	}
)

// SearchRules returns the rule set applied to free-text searches: the
// default penalties and journals, with the query keywords as include terms.
func SearchRules(keywords []string, q *scoring.QueryContext) scoring.RuleSet {
	return scoring.RuleSet{
		IncludeTerms:       append([]string(nil), keywords...),
		GlobalPenaltyTerms: append([]string(nil), DefaultPenaltyTerms...),
		MajorJournals:      append([]string(nil), DefaultMajorJournals...),
		Query:              q,
	}
}

// Lookup resolves (specialty, subcategory) pairs.
type Lookup interface {
	Pack(ctx context.Context, specialty, subcategory string) (Pack, error)
}

// Dir reads packs from a directory of "<specialty>.yaml", ".yml" or ".toml"
// files.
type Dir string

var extensions = []string{".yaml", ".yml", ".toml"}

func (d Dir) path(specialty string) (string, bool) {
	base := strings.ToLower(strings.TrimSpace(specialty))
	if base == "" {
		return "", false
	}
	for _, ext := range extensions {
		p := filepath.Join(string(d), base+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads the whole pack file for a specialty.
func (d Dir) Load(specialty string) (*File, error) {
	p, ok := d.path(specialty)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoPack, specialty)
	}
	return ReadFile(p)
}

// Pack implements Lookup. Subcategory names match case-insensitively.
func (d Dir) Pack(_ context.Context, specialty, subcategory string) (Pack, error) {
	f, err := d.Load(specialty)
	if err != nil {
		return Pack{}, err
	}
	return f.Resolve(specialty, subcategory)
}

// Specialties lists the specialties with a pack file, sorted.
func (d Dir) Specialties() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isPackExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Subcategories lists subcategory names for a specialty in file order.
func (d Dir) Subcategories(specialty string) ([]string, error) {
	f, err := d.Load(specialty)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range f.Subcategories {
		if s.Name != "" {
			out = append(out, s.Name)
		}
	}
	return out, nil
}

func isPackExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ReadFile parses a pack file, choosing the format by extension.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pack %s: %w", path, err)
	}
	var f File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing pack %s: %w", path, err)
	}
	return &f, nil
}

// Resolve picks a subcategory from the file.
func (f *File) Resolve(specialty, subcategory string) (Pack, error) {
	want := strings.TrimSpace(subcategory)
	for _, s := range f.Subcategories {
		if !strings.EqualFold(s.Name, want) {
			continue
		}
		p := Pack{
			Specialty:          f.Specialty,
			Subcategory:        s.Name,
			PaperQuery:         s.PubMedQuery,
			TrialQuery:         s.TrialsQuery,
			IncludeTerms:       s.IncludeTerms,
			ExcludeTerms:       s.ExcludeTerms,
			GlobalBoostTerms:   f.GlobalBoostTerms,
			GlobalPenaltyTerms: f.GlobalPenaltyTerms,
			MajorJournals:      f.MajorJournals,
		}
		if p.Specialty == "" {
			p.Specialty = specialty
		}
		return p, nil
	}
	return Pack{}, fmt.Errorf("%w %q in specialty %q", ErrNoSubcategory, subcategory, specialty)
}

// Sample is written by "mage init" so a fresh checkout can run.
const Sample = `specialty: lung
global_boost_terms: [survival, response]
global_penalty_terms: [case report, in vitro, murine, mouse]
major_journals: [NEJM, J Clin Oncol, Lancet, Lancet Oncology, Annals of Oncology, Nature Medicine]
subcategories:
  - name: Immunotherapy
    pubmed_query: (non-small cell lung cancer OR NSCLC) AND (pembrolizumab OR nivolumab OR atezolizumab OR durvalumab)
    trials_query: non-small cell lung cancer immunotherapy
    include_terms: [pd-1, pd-l1, checkpoint]
    exclude_terms: [pediatric]
  - name: Targeted Therapy
    pubmed_query: (non-small cell lung cancer OR NSCLC) AND (EGFR OR ALK OR KRAS)
    trials_query: non-small cell lung cancer targeted therapy
    include_terms: [egfr, alk, kras]
    exclude_terms: []
`
