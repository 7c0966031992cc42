// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// europePMCBase is the Europe PMC REST search endpoint. Declared as a var
// so tests can substitute an httptest server.
var europePMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

const europePMCMaxPage = 1000

// EuropePMC searches Europe PMC for MEDLINE and preprint records. With
// PreprintOnly set it restricts to preprints and reports itself as a
// preprint connector.
type EuropePMC struct {
	Client       *Client
	PreprintOnly bool
}

// Name returns the connector identifier.
func (e *EuropePMC) Name() string {
	if e.PreprintOnly {
		return "europepmc_preprints"
	}
	return types.SourceEuropePMC
}

// Category returns CategoryPreprints or CategoryPapers.
func (e *EuropePMC) Category() Category {
	if e.PreprintOnly {
		return CategoryPreprints
	}
	return CategoryPapers
}

// Search returns records first published within the window whose title or
// abstract mentions a query term.
func (e *EuropePMC) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if strings.TrimSpace(req.Query) == "" || req.Limit <= 0 {
		return nil, nil
	}

	q := fmt.Sprintf("(%s) AND FIRST_PDATE:[%s TO *]", req.Query, req.windowStart().Format("2006-01-02"))
	if e.PreprintOnly {
		q += " AND SRC:PPR"
	} else {
		q += " AND (SRC:MED OR SRC:PPR)"
	}

	results, err := e.search(ctx, q, min(req.Limit, europePMCMaxPage))
	if err != nil {
		return nil, err
	}

	terms := Terms(req.Query)
	var out []types.RawRecord
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		abstract := strings.TrimSpace(r.AbstractText)
		if !matchesTerms(title+" "+abstract, terms) {
			continue
		}
		out = append(out, r.record())
		if len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

// AbstractByIDs looks up a single record by PMID or DOI and returns its
// abstract, or "" when Europe PMC has none.
func (e *EuropePMC) AbstractByIDs(ctx context.Context, pmid, doi string) (string, error) {
	var clauses []string
	if pmid != "" {
		clauses = append(clauses, "EXT_ID:"+pmid)
	}
	if doi != "" {
		clauses = append(clauses, `DOI:"`+doi+`"`)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	results, err := e.search(ctx, strings.Join(clauses, " OR "), 1)
	if err != nil || len(results) == 0 {
		return "", err
	}
	return strings.TrimSpace(results[0].AbstractText), nil
}

func (e *EuropePMC) search(ctx context.Context, q string, pageSize int) ([]europePMCResult, error) {
	params := url.Values{
		"query":      {q},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(pageSize)},
	}
	body, err := e.Client.Get(ctx, europePMCBase, params, nil)
	if err != nil {
		return nil, fmt.Errorf("europe pmc search: %w", err)
	}
	var resp europePMCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing europe pmc response: %w", err)
	}
	return resp.ResultList.Result, nil
}

type europePMCResponse struct {
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	Source               string `json:"source"`
	Title                string `json:"title"`
	AbstractText         string `json:"abstractText"`
	DOI                  string `json:"doi"`
	PMID                 string `json:"pmid"`
	PMCID                string `json:"pmcid"`
	JournalTitle         string `json:"journalTitle"`
	AuthorString         string `json:"authorString"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	PubYear              string `json:"pubYear"`
	DateOfRevision       string `json:"dateOfRevision"`
}

func (r europePMCResult) record() types.RawRecord {
	doi := strings.TrimSpace(r.DOI)
	pmid := strings.TrimSpace(r.PMID)
	pmcid := strings.TrimSpace(r.PMCID)

	rec := types.RawRecord{
		Source:         types.SourceEuropePMC,
		Title:          firstNonEmpty(r.Title, "Untitled article"),
		PublishedAt:    firstNonEmpty(r.FirstPublicationDate, r.PubYear),
		UpdatedAt:      strings.TrimSpace(r.DateOfRevision),
		PMID:           pmid,
		DOI:            doi,
		PMCID:          pmcid,
		Venue:          firstNonEmpty(r.JournalTitle, "Europe PMC"),
		Authors:        strings.TrimSpace(r.AuthorString),
		AbstractOrText: strings.TrimSpace(r.AbstractText),
	}
	if r.Source == "PPR" {
		rec.Source = types.SourcePreprint
	}
	switch {
	case doi != "":
		rec.URL = "https://doi.org/" + doi
	case pmid != "":
		rec.URL = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	case pmcid != "":
		rec.URL = "https://europepmc.org/article/PMC/" + pmcid
	default:
		rec.URL = "https://europepmc.org"
	}
	return rec
}
