// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/oncopulse/internal/textutil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// minAbstractLen is the shortest description accepted as an abstract.
const minAbstractLen = 40

// abstractMetaKeys are checked in order against meta name and property
// attributes.
var abstractMetaKeys = []string{
	"citation_abstract",
	"dc.description",
	"og:description",
	"description",
	"twitter:description",
}

// LandingAbstract fetches an article landing page and extracts an abstract
// from its meta tags or JSON-LD. It returns "" when the page has none.
func (c *Client) LandingAbstract(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", nil
	}
	body, err := c.Get(ctx, pageURL, nil, nil)
	if err != nil {
		return "", err
	}
	return ExtractAbstract(body), nil
}

// ExtractAbstract pulls the first sufficiently long description out of an
// HTML page.
func ExtractAbstract(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	for _, key := range abstractMetaKeys {
		var found string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			name := strings.ToLower(firstNonEmpty(s.AttrOr("name", ""), s.AttrOr("property", "")))
			if name != key {
				return true
			}
			if v := textutil.CleanText(s.AttrOr("content", "")); utf8.RuneCountInString(v) >= minAbstractLen {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return true
		}
		found = jsonLDDescription(data)
		return found == ""
	})
	return found
}

func jsonLDDescription(node any) string {
	switch n := node.(type) {
	case map[string]any:
		if d, ok := n["description"].(string); ok {
			if v := textutil.CleanText(d); utf8.RuneCountInString(v) >= minAbstractLen {
				return v
			}
		}
		for _, child := range n {
			if v := jsonLDDescription(child); v != "" {
				return v
			}
		}
	case []any:
		for _, child := range n {
			if v := jsonLDDescription(child); v != "" {
				return v
			}
		}
	}
	return ""
}

// AbstractBackfill finds abstracts for records that arrived without one:
// Europe PMC by PMID or DOI first, then the record's landing page.
type AbstractBackfill struct {
	EuropePMC *EuropePMC
	Client    *Client
}

// Abstract returns "" when neither lookup yields text. Trial and regulatory
// records are skipped; their text is already structured.
func (b *AbstractBackfill) Abstract(ctx context.Context, r types.RawRecord) (string, error) {
	if r.Source == types.SourceClinicalTrials || r.Source == types.SourceFDA {
		return "", nil
	}
	var errs []error
	if b.EuropePMC != nil && (r.PMID != "" || r.DOI != "") {
		abs, err := b.EuropePMC.AbstractByIDs(ctx, r.PMID, r.DOI)
		if abs != "" {
			return abs, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if b.Client != nil && strings.HasPrefix(r.URL, "http") {
		abs, err := b.Client.LandingAbstract(ctx, r.URL)
		if abs != "" {
			return abs, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return "", errors.Join(errs...)
}
