// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext retrieves open-access article XML from PMC or Europe PMC
// and labels its sections for summaries and supporting snippets.
package fulltext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/oncopulse/internal/connector"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// Upstream endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	idconvBase    = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
	oaBase        = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi"
	efetchBase    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	europePMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest"
)

// Full-text source labels.
const (
	SourcePMC       = "PMC"
	SourceEuropePMC = "Europe PMC"
)

// DefaultTTL is how long a cached article stays fresh.
const DefaultTTL = 30 * 24 * time.Hour

// Cache persists parsed articles keyed by identifier.
type Cache interface {
	FullText(ctx context.Context, key string) (payload []byte, fetchedAt time.Time, found bool, err error)
	PutFullText(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error
}

// Result is the usable part of an open-access article.
type Result struct {
	Source   string   `json:"source"`
	PMCID    string   `json:"pmcid,omitempty"`
	Sections Sections `json:"sections"`

	// Text and Snippets are derived from Sections.
	Text     string   `json:"-"`
	Snippets []string `json:"-"`
}

// Fetcher resolves and downloads open-access full text.
type Fetcher struct {
	Client *connector.Client
	Cache  Cache
	TTL    time.Duration
	APIKey string
	Now    func() time.Time
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}

func (f *Fetcher) ttl() time.Duration {
	if f.TTL > 0 {
		return f.TTL
	}
	return DefaultTTL
}

var pmcidRe = regexp.MustCompile(`PMC\d+`)

// NormalizePMCID extracts a "PMC<digits>" id, or returns "".
func NormalizePMCID(v string) string {
	return pmcidRe.FindString(strings.ToUpper(v))
}

// CacheKey picks the cache key for a record: PMCID, then DOI, then PMID.
func CacheKey(r types.RawRecord, pmcid string) string {
	if pmcid != "" {
		return "pmcid:" + strings.ToUpper(pmcid)
	}
	if doi := strings.TrimSpace(r.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	if pmid := strings.TrimSpace(r.PMID); pmid != "" {
		return "pmid:" + pmid
	}
	return ""
}

// Fetch returns the article's labeled full text, or nil when the record has
// no open-access copy. Errors describe failed lookups; a nil result with a
// nil error means there was nothing to fetch.
func (f *Fetcher) Fetch(ctx context.Context, r types.RawRecord) (*Result, error) {
	pmcid, resolveErr := f.resolvePMCID(ctx, r)
	key := CacheKey(r, pmcid)
	if key == "" {
		return nil, resolveErr
	}

	if res, ok, err := f.cached(ctx, key); err != nil || ok {
		return res, err
	}
	if pmcid == "" {
		return nil, resolveErr
	}

	var (
		body   []byte
		source string
		errs   []error
	)
	if oa, err := f.isOpenAccess(ctx, pmcid); err != nil {
		errs = append(errs, err)
	} else if oa {
		if body, err = f.fetchPMC(ctx, pmcid); err != nil {
			errs = append(errs, err)
		} else if body != nil {
			source = SourcePMC
		}
	}
	if body == nil {
		var err error
		if body, err = f.fetchEuropePMC(ctx, pmcid); err != nil {
			errs = append(errs, err)
		} else if body != nil {
			source = SourceEuropePMC
		}
	}
	if body == nil {
		return nil, errors.Join(errs...)
	}

	sections, err := ParseJATS(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s XML for %s: %w", source, pmcid, err)
	}
	if sections.Text() == "" {
		return nil, nil
	}

	res := &Result{Source: source, PMCID: pmcid, Sections: sections}
	res.derive()
	if err := f.store(ctx, key, res); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Result) derive() {
	r.Text = r.Sections.Text()
	r.Snippets = r.Sections.Snippets()
}

func (f *Fetcher) cached(ctx context.Context, key string) (*Result, bool, error) {
	if f.Cache == nil {
		return nil, false, nil
	}
	payload, fetchedAt, found, err := f.Cache.FullText(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading full-text cache: %w", err)
	}
	if !found || f.now().Sub(fetchedAt) > f.ttl() {
		return nil, false, nil
	}
	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		// Unreadable entries are refetched.
		return nil, false, nil
	}
	res.derive()
	return &res, true, nil
}

func (f *Fetcher) store(ctx context.Context, key string, res *Result) error {
	if f.Cache == nil {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding full-text cache entry: %w", err)
	}
	return f.Cache.PutFullText(ctx, key, payload, f.now())
}

// resolvePMCID uses the record's PMCID or asks the PMC id converter.
func (f *Fetcher) resolvePMCID(ctx context.Context, r types.RawRecord) (string, error) {
	if id := NormalizePMCID(r.PMCID); id != "" {
		return id, nil
	}
	var ids []string
	for _, v := range []string{r.PMID, r.DOI} {
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	body, err := f.Client.Get(ctx, idconvBase, url.Values{"ids": {strings.Join(ids, ",")}, "format": {"json"}}, nil)
	if err != nil {
		return "", fmt.Errorf("pmc id conversion: %w", err)
	}
	var resp struct {
		Records []struct {
			PMCID string `json:"pmcid"`
		} `json:"records"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing id conversion response: %w", err)
	}
	for _, rec := range resp.Records {
		if id := NormalizePMCID(rec.PMCID); id != "" {
			return id, nil
		}
	}
	return "", nil
}

// isOpenAccess asks the PMC OA service whether the article is in the
// open-access subset; it answers with an <error> element when not.
func (f *Fetcher) isOpenAccess(ctx context.Context, pmcid string) (bool, error) {
	body, err := f.Client.Get(ctx, oaBase, url.Values{"id": {pmcid}}, nil)
	if err != nil {
		return false, fmt.Errorf("pmc oa check: %w", err)
	}
	return !strings.Contains(strings.ToLower(string(body)), "<error"), nil
}

func (f *Fetcher) fetchPMC(ctx context.Context, pmcid string) ([]byte, error) {
	params := url.Values{"db": {"pmc"}, "id": {pmcid}, "retmode": {"xml"}}
	if f.APIKey != "" {
		params.Set("api_key", f.APIKey)
	}
	body, err := f.Client.Get(ctx, efetchBase+"/efetch.fcgi", params, nil)
	if err != nil {
		return nil, fmt.Errorf("pmc efetch: %w", err)
	}
	return articleOrNil(body), nil
}

func (f *Fetcher) fetchEuropePMC(ctx context.Context, pmcid string) ([]byte, error) {
	body, err := f.Client.Get(ctx, europePMCBase+"/"+pmcid+"/fullTextXML", nil, nil)
	if err != nil {
		var se *connector.StatusError
		if errors.As(err, &se) {
			return nil, nil
		}
		return nil, fmt.Errorf("europe pmc full text: %w", err)
	}
	return articleOrNil(body), nil
}

func articleOrNil(body []byte) []byte {
	if strings.Contains(strings.ToLower(string(body)), "<article") {
		return body
	}
	return nil
}
