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

// clinicalTrialsBase is the ClinicalTrials.gov v2 studies endpoint.
// Declared as a var so tests can substitute an httptest server.
var clinicalTrialsBase = "https://clinicaltrials.gov/api/v2/studies"

const clinicalTrialsMaxPage = 100

// ClinicalTrials searches the ClinicalTrials.gov registry, most recently
// updated studies first.
type ClinicalTrials struct {
	Client *Client
}

// Name returns the connector identifier.
func (c *ClinicalTrials) Name() string { return types.SourceClinicalTrials }

// Category returns CategoryTrials.
func (c *ClinicalTrials) Category() Category { return CategoryTrials }

// Search pages through the registry with nextPageToken until Limit studies
// are collected. The registry query is not date-bounded; upserts make
// re-fetched studies harmless.
func (c *ClinicalTrials) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if strings.TrimSpace(req.Query) == "" || req.Limit <= 0 {
		return nil, nil
	}

	var (
		out   []types.RawRecord
		token string
	)
	for len(out) < req.Limit {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		params := url.Values{
			"query.term": {req.Query},
			"pageSize":   {strconv.Itoa(min(clinicalTrialsMaxPage, req.Limit))},
			"sort":       {"LastUpdatePostDate:desc"},
			"format":     {"json"},
		}
		if token != "" {
			params.Set("pageToken", token)
		}

		body, err := c.Client.Get(ctx, clinicalTrialsBase, params, nil)
		if err != nil {
			return out, fmt.Errorf("clinicaltrials search: %w", err)
		}
		var page ctgovResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return out, fmt.Errorf("parsing clinicaltrials response: %w", err)
		}

		for _, s := range page.Studies {
			out = append(out, s.record())
			if len(out) >= req.Limit {
				break
			}
		}
		token = page.NextPageToken
		if token == "" {
			break
		}
	}
	return out, nil
}

type ctgovResponse struct {
	Studies       []ctgovStudy `json:"studies"`
	NextPageToken string       `json:"nextPageToken"`
}

type ctgovStudy struct {
	Protocol struct {
		Identification struct {
			NCTID         string `json:"nctId"`
			BriefTitle    string `json:"briefTitle"`
			OfficialTitle string `json:"officialTitle"`
		} `json:"identificationModule"`
		Status struct {
			OverallStatus string `json:"overallStatus"`
			LastUpdate    struct {
				Date string `json:"date"`
			} `json:"lastUpdatePostDateStruct"`
		} `json:"statusModule"`
		Conditions struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		Arms struct {
			Interventions []struct {
				Name string `json:"name"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
		Description struct {
			BriefSummary        string `json:"briefSummary"`
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		Design struct {
			StudyType string   `json:"studyType"`
			Phases    []string `json:"phases"`
		} `json:"designModule"`
		Outcomes struct {
			Primary []struct {
				Measure string `json:"measure"`
			} `json:"primaryOutcomes"`
		} `json:"outcomesModule"`
	} `json:"protocolSection"`
}

func (s ctgovStudy) record() types.RawRecord {
	p := s.Protocol
	nct := strings.TrimSpace(p.Identification.NCTID)

	var interventions, endpoints, text []string
	for _, iv := range p.Arms.Interventions {
		if iv.Name != "" {
			interventions = append(interventions, iv.Name)
		}
	}
	for _, o := range p.Outcomes.Primary {
		if o.Measure != "" {
			endpoints = append(endpoints, o.Measure)
		}
	}
	for _, v := range []string{p.Description.BriefSummary, p.Description.DetailedDescription} {
		if v != "" {
			text = append(text, v)
		}
	}

	r := types.RawRecord{
		Source:           types.SourceClinicalTrials,
		Title:            firstNonEmpty(p.Identification.BriefTitle, p.Identification.OfficialTitle, "Untitled study"),
		URL:              "https://clinicaltrials.gov",
		UpdatedAt:        p.Status.LastUpdate.Date,
		NCTID:            nct,
		Venue:            "ClinicalTrials.gov",
		AbstractOrText:   strings.TrimSpace(strings.Join(text, "\n")),
		Conditions:       strings.Join(p.Conditions.Conditions, ", "),
		Interventions:    strings.Join(interventions, ", "),
		StudyType:        p.Design.StudyType,
		Phase:            strings.Join(p.Design.Phases, ", "),
		Status:           p.Status.OverallStatus,
		PrimaryEndpoints: strings.Join(endpoints, ", "),
	}
	if nct != "" {
		r.URL = "https://clinicaltrials.gov/study/" + nct
	}
	return r
}
