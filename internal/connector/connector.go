// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package connector queries the upstream literature, trial, preprint,
// regulatory and journal-feed APIs and maps their payloads onto
// types.RawRecord.
package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/oncopulse/internal/httputil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// Category groups connectors under the source switches of a run.
type Category string

const (
	CategoryPapers     Category = "papers"
	CategoryTrials     Category = "trials"
	CategoryPreprints  Category = "preprints"
	CategoryJournalRSS Category = "journal_rss"
	CategoryFDA        Category = "fda"
)

// Request is one connector call.
type Request struct {
	Query      string
	WindowDays int
	Limit      int

	// Now anchors the window; zero means time.Now.
	Now time.Time
}

func (r Request) now() time.Time {
	if r.Now.IsZero() {
		return time.Now().UTC()
	}
	return r.Now.UTC()
}

// windowStart is the earliest date the request covers.
func (r Request) windowStart() time.Time {
	return r.now().AddDate(0, 0, -r.WindowDays)
}

// Connector searches one upstream. Implementations return whatever they
// gathered along with any error; callers decide how to degrade.
type Connector interface {
	Name() string
	Category() Category
	Search(ctx context.Context, req Request) ([]types.RawRecord, error)
}

// maxBody bounds how much of a response we read.
const maxBody = 32 << 20

// Client carries the HTTP settings shared by every connector.
type Client struct {
	HTTP       *http.Client
	UserAgent  string
	MaxRetries int
}

// NewClient builds a Client from the shared HTTP config.
func NewClient(cfg types.HTTPConfig) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = "oncopulse/0.1"
	}
	return &Client{
		HTTP:       httputil.NewClient(cfg.Timeout),
		UserAgent:  ua,
		MaxRetries: cfg.MaxRetries,
	}
}

// StatusError reports a non-200 upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Get fetches rawURL with params and returns the body of a 200 response.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, header http.Header) ([]byte, error) {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: stripQuery(rawURL), Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// maxTerms and minTermLen shape the post-filter term list.
const (
	maxTerms   = 20
	minTermLen = 4
)

var termReplacer = strings.NewReplacer("(", " ", ")", " ", `"`, " ", "AND", " ", "OR", " ")

// Terms extracts the lowercase filter terms from a boolean query: brackets,
// quotes and the AND/OR operators are dropped and tokens shorter than four
// characters are ignored.
func Terms(query string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range strings.Fields(termReplacer.Replace(query)) {
		if utf8.RuneCountInString(t) < minTermLen {
			continue
		}
		t = strings.ToLower(t)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == maxTerms {
			break
		}
	}
	return out
}

// matchesTerms reports whether text contains any term. An empty term list
// matches everything.
func matchesTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
