// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the oncopulse pipeline.
package types

import (
	"strings"
	"time"
)

// Source tags written by the connectors.
const (
	SourcePubMed         = "pubmed"
	SourceEuropePMC      = "europepmc"
	SourcePreprint       = "preprint"
	SourceClinicalTrials = "clinicaltrials"
	SourceFDA            = "fda"
	SourceJournalRSS     = "journal_rss"
)

// SearchSpecialty is the specialty under which free-text searches are stored.
const SearchSpecialty = "search"

// RawRecord is one candidate item returned by a connector before merge.
// Empty strings mean the upstream did not supply the field.
type RawRecord struct {
	Source         string `json:"source" yaml:"source"`
	Title          string `json:"title" yaml:"title"`
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	PublishedAt    string `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	PMID           string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	DOI            string `json:"doi,omitempty" yaml:"doi,omitempty"`
	NCTID          string `json:"nct_id,omitempty" yaml:"nct_id,omitempty"`
	PMCID          string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`
	Venue          string `json:"venue,omitempty" yaml:"venue,omitempty"`
	Authors        string `json:"authors,omitempty" yaml:"authors,omitempty"`
	AbstractOrText string `json:"abstract_or_text,omitempty" yaml:"abstract_or_text,omitempty"`

	// Trial and regulatory records carry these structured fields.
	Conditions       string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Interventions    string `json:"interventions,omitempty" yaml:"interventions,omitempty"`
	StudyType        string `json:"study_type,omitempty" yaml:"study_type,omitempty"`
	Phase            string `json:"phase,omitempty" yaml:"phase,omitempty"`
	PrimaryEndpoints string `json:"primary_endpoints,omitempty" yaml:"primary_endpoints,omitempty"`
	Status           string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Scope partitions items and run history. A free-text search uses the
// SearchSpecialty with a derived subcategory key.
type Scope struct {
	Specialty   string `json:"specialty" yaml:"specialty"`
	Subcategory string `json:"subcategory" yaml:"subcategory"`
}

// String renders the scope as "specialty/subcategory".
func (s Scope) String() string {
	return s.Specialty + "/" + s.Subcategory
}

// IsSearch reports whether the scope belongs to a free-text search.
func (s Scope) IsSearch() bool {
	return strings.EqualFold(s.Specialty, SearchSpecialty)
}

// Item is the durable, canonical unit persisted by the store.
type Item struct {
	RawRecord `yaml:",inline"`

	ID              int64     `json:"id" yaml:"id"`
	Fingerprint     string    `json:"fingerprint" yaml:"fingerprint"`
	Scope           Scope     `json:"scope" yaml:"scope"`
	ModeName        string    `json:"mode_name" yaml:"mode_name"`
	Score           int       `json:"score" yaml:"score"`
	ScoreExplain    []string  `json:"score_explain" yaml:"score_explain"`
	Citations       *int      `json:"citations,omitempty" yaml:"citations,omitempty"`
	CitationsSource string    `json:"citations_source,omitempty" yaml:"citations_source,omitempty"`
	SummaryText     string    `json:"summary_text,omitempty" yaml:"summary_text,omitempty"`
	FullTextSource  string    `json:"full_text_source,omitempty" yaml:"full_text_source,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	LastSeenAt      time.Time `json:"last_seen_at" yaml:"last_seen_at"`

	// Starred and Note are joined in from the notes table on reads.
	Starred bool   `json:"starred,omitempty" yaml:"starred,omitempty"`
	Note    string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Note is a reader annotation attached to an item.
type Note struct {
	ItemID    int64     `json:"item_id" yaml:"item_id"`
	Starred   bool      `json:"starred" yaml:"starred"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
