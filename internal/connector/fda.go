// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// fdaBase is the openFDA drugs@FDA endpoint. Declared as a var so tests can
// substitute an httptest server.
var fdaBase = "https://api.fda.gov/drug/drugsfda.json"

const (
	fdaMaxPage    = 100
	fdaDateLayout = "20060102"
)

// FDA reads recent drugs@FDA application submissions.
type FDA struct {
	Client *Client
}

// Name returns the connector identifier.
func (f *FDA) Name() string { return "openfda" }

// Category returns CategoryFDA.
func (f *FDA) Category() Category { return CategoryFDA }

// Search asks openFDA for submissions dated inside the window. openFDA
// answers 404 when a search matches nothing, so an empty or failed windowed
// query is retried unfiltered and the window is enforced locally.
func (f *FDA) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	since := req.windowStart().Format(fdaDateLayout)
	params := url.Values{
		"limit": {strconv.Itoa(min(req.Limit, fdaMaxPage))},
		"sort":  {"submissions.submission_status_date:desc"},
	}

	windowed := cloneValues(params)
	windowed.Set("search", "submissions.submission_status_date:["+since+" TO 99991231]")
	results, err := f.fetch(ctx, windowed)
	if err != nil || len(results) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		results, err = f.fetch(ctx, params)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Code >= 400 {
				return nil, nil
			}
			return nil, err
		}
	}

	terms := Terms(req.Query)
	var out []types.RawRecord
	for _, r := range results {
		rec, ok := r.record(since)
		if !ok {
			continue
		}
		if !matchesTerms(r.filterText(), terms) {
			continue
		}
		out = append(out, rec)
		if len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

func (f *FDA) fetch(ctx context.Context, params url.Values) ([]fdaResult, error) {
	body, err := f.Client.Get(ctx, fdaBase, params, nil)
	if err != nil {
		return nil, fmt.Errorf("openfda query: %w", err)
	}
	var resp struct {
		Results []fdaResult `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing openfda response: %w", err)
	}
	return resp.Results, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

type fdaResult struct {
	ApplicationNumber string `json:"application_number"`
	SponsorName       string `json:"sponsor_name"`
	Products          []struct {
		BrandName         string `json:"brand_name"`
		DrugName          string `json:"drug_name"`
		ActiveIngredients []struct {
			Name string `json:"name"`
		} `json:"active_ingredients"`
	} `json:"products"`
	Submissions []struct {
		SubmissionStatus     string `json:"submission_status"`
		SubmissionStatusDate string `json:"submission_status_date"`
	} `json:"submissions"`
}

func (r fdaResult) brand() string {
	if len(r.Products) == 0 {
		return "Unknown product"
	}
	p := r.Products[0]
	return firstNonEmpty(p.BrandName, p.DrugName, "Unknown product")
}

func (r fdaResult) actives() string {
	if len(r.Products) == 0 {
		return ""
	}
	var names []string
	for _, a := range r.Products[0].ActiveIngredients {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func (r fdaResult) status() (status, date string) {
	status = "Status not stated"
	if len(r.Submissions) == 0 {
		return status, ""
	}
	s := r.Submissions[0]
	return firstNonEmpty(s.SubmissionStatus, status), strings.TrimSpace(s.SubmissionStatusDate)
}

func (r fdaResult) sponsor() string { return firstNonEmpty(r.SponsorName, "FDA") }

func (r fdaResult) filterText() string {
	status, _ := r.status()
	return strings.Join([]string{r.brand(), r.actives(), status, r.sponsor()}, " ")
}

// record maps one application. Submissions dated before since are dropped.
func (r fdaResult) record(since string) (types.RawRecord, bool) {
	status, date := r.status()
	if len(date) >= len(fdaDateLayout) && date[:len(fdaDateLayout)] < since {
		return types.RawRecord{}, false
	}

	actives := firstNonEmpty(r.actives(), "Not stated")
	app := strings.TrimSpace(r.ApplicationNumber)
	u := "https://www.fda.gov/drugs"
	if app != "" {
		u = "https://www.accessdata.fda.gov/scripts/cder/daf/index.cfm?event=overview.process&ApplNo=" + url.QueryEscape(app)
	}
	return types.RawRecord{
		Source:         types.SourceFDA,
		Title:          "FDA update: " + r.brand(),
		URL:            u,
		UpdatedAt:      date,
		Venue:          "FDA",
		AbstractOrText: fmt.Sprintf("Sponsor: %s. Status: %s. Active ingredients: %s.", r.sponsor(), status, actives),
		Status:         status,
	}, true
}
