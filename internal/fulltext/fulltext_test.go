// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/internal/connector"
	"github.com/pdiddy/oncopulse/internal/httputil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const (
	abstractPara   = "Background paragraph about adjuvant therapy in lung cancer patients."
	methodsPara    = "We enrolled adults with resected stage II-IIIA disease."
	resultsPara    = "Disease-free survival was significantly improved with osimertinib."
	discussionPara = "These findings support adjuvant targeted therapy in EGFR-mutant disease."
)

const jatsArticle = `<?xml version="1.0"?>
<!DOCTYPE article PUBLIC "-//NLM//DTD JATS (Z39.96) Journal Archiving and Interchange DTD v1.2 20190208//EN" "JATS-archivearticle1.dtd">
<article>
  <front><article-meta><abstract><p>Background paragraph about adjuvant therapy in lung cancer patients.</p></abstract></article-meta></front>
  <body>
    <sec><title>Patients and Methods</title><p>We enrolled adults with resected stage II-IIIA disease.</p></sec>
    <sec><title>Results</title>
      <p>Disease-free survival was <italic>significantly</italic> improved with osimertinib.</p>
      <p>Short.</p>
    </sec>
    <sec><title>Discussion</title><p>These findings support adjuvant targeted therapy in EGFR-mutant disease.</p></sec>
    <sec><title>Acknowledgements</title><p>Thanks to all.</p></sec>
    <fig><caption><title>Figure 1</title><p>Kaplan-Meier curves.</p></caption></fig>
  </body>
</article>`

func TestParseJATS(t *testing.T) {
	s, err := ParseJATS([]byte(jatsArticle))
	require.NoError(t, err)

	assert.Equal(t, []string{abstractPara}, s.Abstract)
	assert.Equal(t, []string{methodsPara}, s.Methods)
	assert.Equal(t, []string{resultsPara, "Short."}, s.Results)
	assert.Equal(t, []string{discussionPara}, s.Discussion)
	assert.Empty(t, s.Conclusion)
	assert.Equal(t, []string{"Figure 1 Kaplan-Meier curves."}, s.Captions)
	assert.False(t, s.Empty())

	assert.Equal(t, []string{resultsPara, discussionPara, methodsPara, abstractPara}, s.Snippets())
	assert.Equal(t,
		abstractPara+" "+methodsPara+" "+resultsPara+" Short. "+discussionPara+" Figure 1 Kaplan-Meier curves.",
		s.Text())
}

func TestParseJATS_Malformed(t *testing.T) {
	_, err := ParseJATS([]byte(`<article><body><sec>`))
	assert.Error(t, err)
}

func TestNormalizePMCID(t *testing.T) {
	assert.Equal(t, "PMC123", NormalizePMCID("pmc123"))
	assert.Equal(t, "PMC9", NormalizePMCID("https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9/"))
	assert.Empty(t, NormalizePMCID("12345"))
}

func TestCacheKey(t *testing.T) {
	r := types.RawRecord{DOI: "10.1/ABC", PMID: "77"}
	assert.Equal(t, "pmcid:PMC5", CacheKey(r, "PMC5"))
	assert.Equal(t, "doi:10.1/abc", CacheKey(r, ""))
	assert.Equal(t, "pmid:77", CacheKey(types.RawRecord{PMID: "77"}, ""))
	assert.Empty(t, CacheKey(types.RawRecord{}, ""))
}

type memCache map[string][]byte

func (m memCache) FullText(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	v, ok := m[key]
	return v, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ok, nil
}

func (m memCache) PutFullText(_ context.Context, key string, payload []byte, _ time.Time) error {
	m[key] = payload
	return nil
}

func newFetcher(t *testing.T, openAccess bool) (*Fetcher, memCache, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/idconv/":
			assert.Equal(t, "77,10.1/abc", r.URL.Query().Get("ids"))
			fmt.Fprint(w, `{"records":[{"pmid":"77","pmcid":"PMC123"}]}`)
		case "/oa":
			if openAccess {
				fmt.Fprint(w, `<OA><records><record id="PMC123"/></records></OA>`)
			} else {
				fmt.Fprint(w, `<OA><error code="idIsNotOpenAccess">not open access</error></OA>`)
			}
		case "/eutils/efetch.fcgi":
			assert.Equal(t, "pmc", r.URL.Query().Get("db"))
			fmt.Fprint(w, jatsArticle)
		case "/epmc/PMC123/fullTextXML":
			fmt.Fprint(w, jatsArticle)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)

	for _, v := range []struct {
		target *string
		value  string
	}{
		{&idconvBase, ts.URL + "/idconv/"},
		{&oaBase, ts.URL + "/oa"},
		{&efetchBase, ts.URL + "/eutils"},
		{&europePMCBase, ts.URL + "/epmc"},
	} {
		old := *v.target
		*v.target = v.value
		t.Cleanup(func() { *v.target = old })
	}

	cache := memCache{}
	f := &Fetcher{
		Client: &connector.Client{HTTP: ts.Client(), UserAgent: "test", MaxRetries: 1},
		Cache:  cache,
		Now:    func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) },
	}
	return f, cache, &calls
}

func TestFetch_PMCAndCache(t *testing.T) {
	f, cache, calls := newFetcher(t, true)
	rec := types.RawRecord{PMID: "77", DOI: "10.1/abc"}

	res, err := f.Fetch(context.Background(), rec)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourcePMC, res.Source)
	assert.Equal(t, "PMC123", res.PMCID)
	assert.Len(t, res.Snippets, 4)
	assert.Contains(t, cache, "pmcid:PMC123")
	assert.Equal(t, int32(3), calls.Load())

	// A record that already carries its PMCID is served from the cache.
	res, err = f.Fetch(context.Background(), types.RawRecord{PMCID: "PMC123"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourcePMC, res.Source)
	assert.Equal(t, res.Sections.Text(), res.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_EuropePMCFallback(t *testing.T) {
	f, _, _ := newFetcher(t, false)
	res, err := f.Fetch(context.Background(), types.RawRecord{PMCID: "PMC123"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceEuropePMC, res.Source)
}

func TestFetch_NothingToFetch(t *testing.T) {
	f, _, calls := newFetcher(t, true)
	res, err := f.Fetch(context.Background(), types.RawRecord{Title: "no ids"})
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, calls.Load())
}

func TestFetch_NotInPMC(t *testing.T) {
	f, _, _ := newFetcher(t, false)
	res, err := f.Fetch(context.Background(), types.RawRecord{PMCID: "PMC999"})
	assert.NoError(t, err)
	assert.Nil(t, res)
}
