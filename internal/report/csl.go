// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"io"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// CSLItem is one bibliographic entry in CSL-YAML, readable by Pandoc and
// most reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	PMCID          string    `yaml:"PMCID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person or group name.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes items as a CSL-YAML list.
func FormatCSL(items []types.Item, w io.Writer) error {
	out := make([]CSLItem, len(items))
	for i, it := range items {
		out[i] = ToCSL(it)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}

// ToCSL converts a stored item.
func ToCSL(it types.Item) CSLItem {
	c := CSLItem{
		ID:             cslID(it),
		Type:           cslType(it.Source),
		Title:          it.Title,
		ContainerTitle: it.Venue,
		Abstract:       it.AbstractOrText,
		DOI:            it.DOI,
		PMID:           it.PMID,
		PMCID:          it.PMCID,
		URL:            it.URL,
	}
	if it.NCTID != "" {
		c.Note = "ClinicalTrials.gov: " + it.NCTID
	}
	for _, a := range splitAuthors(it.Authors) {
		c.Author = append(c.Author, parseAuthorName(a))
	}
	if dt, ok := scoring.ParsePubDate(displayDate(it)); ok {
		c.Issued = &CSLDate{DateParts: [][]int{{dt.Year(), int(dt.Month()), dt.Day()}}}
	}
	return c
}

func cslID(it types.Item) string {
	switch {
	case it.DOI != "":
		return it.DOI
	case it.PMID != "":
		return "pmid:" + it.PMID
	case it.NCTID != "":
		return it.NCTID
	}
	return it.Fingerprint
}

func cslType(source string) string {
	switch source {
	case types.SourcePreprint:
		return "article"
	case types.SourceClinicalTrials, types.SourceFDA:
		return "report"
	case types.SourceJournalRSS:
		return "webpage"
	}
	return "article-journal"
}

// splitAuthors handles the "Smith J, Doe A" lists PubMed yields and the
// "Smith, J.; Doe, A." lists of the preprint servers.
func splitAuthors(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// parseAuthorName splits a name into CSL family and given parts.
// "Family, Given" and "Family INITIALS" are recognised; otherwise the last
// token is the family name. Single tokens become literals.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	head, tail := name[:idx], name[idx+1:]
	if isInitials(tail) {
		return CSLName{Family: head, Given: tail}
	}
	return CSLName{Given: head, Family: tail}
}

func isInitials(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
