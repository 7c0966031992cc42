// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a free-text question into source-specific search
// strings, keywords and synonym concept groups, and decides whether a
// fetched record is topically relevant to it.
package query

import (
	"regexp"
	"strings"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// Bundle is the expansion of one raw query.
type Bundle struct {
	Raw        string     `json:"raw" yaml:"raw"`
	PaperQuery string     `json:"paper_query" yaml:"paper_query"`
	TrialQuery string     `json:"trial_query" yaml:"trial_query"`
	Keywords   []string   `json:"keywords" yaml:"keywords"`
	Concepts   [][]string `json:"concepts" yaml:"concepts"`
}

// Context converts the bundle into the scoring query context.
func (b Bundle) Context() *scoring.QueryContext {
	return &scoring.QueryContext{Raw: b.Raw, Keywords: b.Keywords, Concepts: b.Concepts}
}

const (
	maxKeywords       = 10
	maxKeywordGroups  = 6
	maxQueryGroups    = 8
	maxScopeKeyLength = 180
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be by for from in into is it of on or that the to
		with without vs versus study trial trials cancer oncology`) {
		stopwords[w] = struct{}{}
	}
}

type conceptPattern struct {
	re    *regexp.Regexp
	terms []string
}

var conceptPatterns = []conceptPattern{
	{regexp.MustCompile(`(?i)\bnsclc\b|\bnon[-\s]?small cell lung cancer\b`), []string{"NSCLC", "non-small cell lung cancer"}},
	{regexp.MustCompile(`(?i)\bsclc\b|\bsmall cell lung cancer\b`), []string{"SCLC", "small cell lung cancer"}},
	{regexp.MustCompile(`(?i)\bpd-?1\b`), []string{"PD-1", "programmed death-1"}},
	{regexp.MustCompile(`(?i)\bpd-?l1\b`), []string{"PD-L1", "programmed death-ligand 1"}},
	{regexp.MustCompile(`(?i)\bcheckpoint inhibitor`), []string{"checkpoint inhibitor", "immune checkpoint blockade"}},
	{regexp.MustCompile(`(?i)\bcar[-\s]?t\b`), []string{"CAR-T", "chimeric antigen receptor T cell"}},
	{regexp.MustCompile(`(?i)\bio\b|\bimmunotherapy\b`), []string{"immunotherapy", "immune therapy"}},
	{regexp.MustCompile(`(?i)\bpneumonitis\b`), []string{"pneumonitis", "immune-related adverse event"}},
	{regexp.MustCompile(`(?i)\bir?ae\b|\bimmune[-\s]?related adverse`), []string{"immune-related adverse event", "irAE"}},
	{regexp.MustCompile(`(?i)\bos\b|\boverall survival\b`), []string{"overall survival", "OS"}},
	{regexp.MustCompile(`(?i)\bpfs\b|\bprogression[-\s]?free survival\b`), []string{"progression-free survival", "PFS"}},
	{regexp.MustCompile(`(?i)\borr\b|\bobjective response rate\b`), []string{"objective response rate", "ORR"}},
	{regexp.MustCompile(`(?i)\btriple[-\s]?negative\b|\btnbc\b`), []string{"triple-negative breast cancer", "TNBC"}},
	{regexp.MustCompile(`(?i)\bher2\b`), []string{"HER2", "ERBB2"}},
	{regexp.MustCompile(`(?i)\bcrc\b|\bcolorectal\b`), []string{"colorectal cancer", "CRC"}},
}

var (
	wordRe      = regexp.MustCompile(`[A-Za-z0-9\-+]{3,}`)
	tokenJunkRe = regexp.MustCompile(`[^a-z0-9\-+]`)
	digitsRe    = regexp.MustCompile(`^[0-9]+$`)
)

// Keywords extracts up to max distinct lowercase keywords, skipping
// stopwords and pure numbers.
func Keywords(raw string, max int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(raw), -1) {
		t := tokenJunkRe.ReplaceAllString(w, "")
		if t == "" || digitsRe.MatchString(t) {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) >= max {
			break
		}
	}
	return out
}

// Concepts returns the synonym groups whose pattern matches raw, in table
// order, without repeats.
func Concepts(raw string) [][]string {
	var groups [][]string
	seen := make(map[string]struct{})
	for _, p := range conceptPatterns {
		if !p.re.MatchString(raw) {
			continue
		}
		key := strings.Join(p.terms, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		groups = append(groups, append([]string(nil), p.terms...))
	}
	return groups
}

// Expand builds the paper and trial queries for raw. A blank query gives
// an empty bundle.
func Expand(raw string) Bundle {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Bundle{}
	}

	concepts := Concepts(raw)
	keywords := Keywords(raw, maxKeywords)

	groups := append([][]string(nil), concepts...)
	for i, k := range keywords {
		if i >= maxKeywordGroups {
			break
		}
		groups = append(groups, []string{k})
	}
	if len(groups) == 0 {
		groups = [][]string{{raw}}
	}
	if len(groups) > maxQueryGroups {
		groups = groups[:maxQueryGroups]
	}

	paper := make([]string, 0, len(groups))
	var trial []string
	seenTrial := make(map[string]struct{})
	for _, g := range groups {
		paper = append(paper, "("+strings.Join(g, " OR ")+")")
		if _, ok := seenTrial[g[0]]; !ok {
			seenTrial[g[0]] = struct{}{}
			trial = append(trial, g[0])
		}
	}

	b := Bundle{
		Raw:        raw,
		PaperQuery: strings.Join(paper, " AND "),
		TrialQuery: strings.Join(trial, " "),
		Keywords:   keywords,
		Concepts:   concepts,
	}
	if b.TrialQuery == "" {
		b.TrialQuery = raw
	}
	return b
}

// ScopeKey derives the synthetic subcategory for a free-text search.
func ScopeKey(raw string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(raw)))
	if len(r) > maxScopeKeyLength {
		r = r[:maxScopeKeyLength]
	}
	return "query:" + string(r)
}

// SearchScope is the scope a free-text search is stored under.
func SearchScope(raw string) types.Scope {
	return types.Scope{Specialty: types.SearchSpecialty, Subcategory: ScopeKey(raw)}
}
