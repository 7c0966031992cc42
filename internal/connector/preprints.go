// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Preprint server roots. Declared as vars so tests can substitute an
// httptest server.
var (
	biorxivBase = "https://api.biorxiv.org"
	medrxivBase = "https://api.medrxiv.org"
)

const preprintMaxPage = 100

// Preprints lists recent bioRxiv and medRxiv postings and keeps those
// mentioning a query term.
type Preprints struct {
	Client *Client
}

// Name returns the connector identifier.
func (p *Preprints) Name() string { return "biorxiv_medrxiv" }

// Category returns CategoryPreprints.
func (p *Preprints) Category() Category { return CategoryPreprints }

// Search reads both servers in turn. A server that fails contributes what
// it gathered; the first error is reported after both have been tried.
func (p *Preprints) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	start := req.windowStart().Format("2006-01-02")
	end := req.now().Format("2006-01-02")

	var (
		raw      []preprintEntry
		firstErr error
	)
	for _, srv := range []struct{ name, base string }{
		{"biorxiv", biorxivBase},
		{"medrxiv", medrxivBase},
	} {
		entries, err := p.fetchServer(ctx, srv.base, srv.name, start, end, req.Limit)
		raw = append(raw, entries...)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	terms := Terms(req.Query)
	var out []types.RawRecord
	for _, e := range raw {
		title := strings.TrimSpace(e.Title)
		abstract := strings.TrimSpace(e.Abstract)
		if !matchesTerms(title+" "+abstract, terms) {
			continue
		}
		doi := strings.TrimSpace(e.DOI)
		r := types.RawRecord{
			Source:         types.SourcePreprint,
			Title:          firstNonEmpty(title, "Untitled preprint"),
			URL:            "https://www.medrxiv.org",
			PublishedAt:    e.Date,
			DOI:            doi,
			Venue:          strings.ToLower(firstNonEmpty(e.Server, "preprint")),
			Authors:        e.Authors,
			AbstractOrText: abstract,
		}
		if doi != "" {
			r.URL = "https://doi.org/" + doi
		}
		out = append(out, r)
		if len(out) >= req.Limit {
			break
		}
	}
	return out, firstErr
}

func (p *Preprints) fetchServer(ctx context.Context, base, server, start, end string, limit int) ([]preprintEntry, error) {
	pageSize := min(limit, preprintMaxPage)
	var out []preprintEntry
	for cursor := 0; len(out) < limit; cursor += pageSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		u := fmt.Sprintf("%s/details/%s/%s/%s/%d", base, server, start, end, cursor)
		body, err := p.Client.Get(ctx, u, nil, nil)
		if err != nil {
			return out, fmt.Errorf("%s details: %w", server, err)
		}
		var page preprintResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return out, fmt.Errorf("parsing %s response: %w", server, err)
		}
		if len(page.Collection) == 0 {
			break
		}
		out = append(out, page.Collection...)
		if len(page.Collection) < pageSize {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type preprintResponse struct {
	Collection []preprintEntry `json:"collection"`
}

type preprintEntry struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Server   string `json:"server"`
	Abstract string `json:"abstract"`
}
