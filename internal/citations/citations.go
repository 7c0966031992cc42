// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citations looks up citation counts for records, using OpenAlex by
// DOI first and optionally Semantic Scholar by PMID.
package citations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/pdiddy/oncopulse/internal/connector"
)

// API endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	openAlexBase = "https://api.openalex.org/works"
	semanticBase = "https://api.semanticscholar.org/graph/v1/paper"
)

// Citation source labels stored on items.
const (
	SourceOpenAlex        = "openalex"
	SourceSemanticScholar = "semantic_scholar"
)

// DefaultTTL is how long a cached OpenAlex count stays fresh.
const DefaultTTL = 14 * 24 * time.Hour

// Cache persists OpenAlex lookups keyed by normalized DOI. A nil count
// records a DOI that OpenAlex does not know.
type Cache interface {
	CitationCount(ctx context.Context, key string) (count *int, fetchedAt time.Time, found bool, err error)
	PutCitationCount(ctx context.Context, key string, count *int, fetchedAt time.Time) error
}

// Enricher resolves citation counts.
type Enricher struct {
	Client *connector.Client
	Cache  Cache
	TTL    time.Duration

	// Mailto is sent to OpenAlex for its polite pool.
	Mailto string

	SemanticScholarKey string

	Now func() time.Time
}

func (e *Enricher) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Enricher) ttl() time.Duration {
	if e.TTL > 0 {
		return e.TTL
	}
	return DefaultTTL
}

var doiPrefixRe = regexp.MustCompile(`^(?:https?://(?:dx\.)?doi\.org/|doi:)`)

// NormalizeDOI lowercases a DOI and strips resolver and "doi:" prefixes.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	return strings.TrimSpace(doiPrefixRe.ReplaceAllString(d, ""))
}

// Lookup returns the citation count and the name of the service that
// supplied it. Semantic Scholar is consulted only when secondary is set and
// OpenAlex has no count. A nil count means no service knew the work. The
// error reports failed fetches; a stale cached count may still be returned
// with it.
func (e *Enricher) Lookup(ctx context.Context, doi, pmid string, secondary bool) (*int, string, error) {
	count, err := e.OpenAlex(ctx, doi)
	if count != nil {
		return count, SourceOpenAlex, err
	}
	if !secondary {
		return nil, "", err
	}
	count, secErr := e.SemanticScholar(ctx, pmid)
	err = errors.Join(err, secErr)
	if count != nil {
		return count, SourceSemanticScholar, err
	}
	return nil, "", err
}

// OpenAlex returns the cited_by_count for a DOI, serving fresh cache hits
// without a request. When the fetch fails any cached value is returned
// alongside the error.
func (e *Enricher) OpenAlex(ctx context.Context, doi string) (*int, error) {
	key := NormalizeDOI(doi)
	if key == "" {
		return nil, nil
	}

	var (
		cached    *int
		haveCache bool
	)
	if e.Cache != nil {
		count, fetchedAt, found, err := e.Cache.CitationCount(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading citation cache: %w", err)
		}
		if found && e.now().Sub(fetchedAt) <= e.ttl() {
			return count, nil
		}
		cached, haveCache = count, found
	}

	var params url.Values
	if e.Mailto != "" {
		params = url.Values{"mailto": {e.Mailto}}
	}
	body, err := e.Client.Get(ctx, openAlexBase+"/"+url.QueryEscape("https://doi.org/"+key), params, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, e.store(ctx, key, nil)
		}
		if haveCache {
			return cached, fmt.Errorf("openalex lookup: %w", err)
		}
		return nil, fmt.Errorf("openalex lookup: %w", err)
	}

	var work struct {
		CitedByCount any `json:"cited_by_count"`
	}
	if err := json.Unmarshal(body, &work); err != nil {
		return cached, fmt.Errorf("parsing openalex response: %w", err)
	}
	count := toCount(work.CitedByCount)
	return count, e.store(ctx, key, count)
}

func (e *Enricher) store(ctx context.Context, key string, count *int) error {
	if e.Cache == nil {
		return nil
	}
	if err := e.Cache.PutCitationCount(ctx, key, count, e.now()); err != nil {
		return fmt.Errorf("writing citation cache: %w", err)
	}
	return nil
}

// SemanticScholar returns the citationCount for a PMID. Results are not
// cached.
func (e *Enricher) SemanticScholar(ctx context.Context, pmid string) (*int, error) {
	pmid = strings.TrimSpace(pmid)
	if pmid == "" {
		return nil, nil
	}
	var header http.Header
	if e.SemanticScholarKey != "" {
		header = http.Header{"x-api-key": {e.SemanticScholarKey}}
	}
	body, err := e.Client.Get(ctx, semanticBase+"/PMID:"+url.PathEscape(pmid), url.Values{"fields": {"citationCount"}}, header)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("semantic scholar lookup: %w", err)
	}
	var paper struct {
		CitationCount *int `json:"citationCount"`
	}
	if err := json.Unmarshal(body, &paper); err != nil {
		return nil, fmt.Errorf("parsing semantic scholar response: %w", err)
	}
	return paper.CitationCount, nil
}

func isNotFound(err error) bool {
	var se *connector.StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// toCount accepts JSON numbers and digit strings.
func toCount(v any) *int {
	switch v.(type) {
	case float64, string:
	default:
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
