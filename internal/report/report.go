// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders stored items for the terminal, as JSON, and as
// CSL-YAML for reference managers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/internal/summary"
	"github.com/pdiddy/oncopulse/internal/textutil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// Format names an output format accepted by Write.
type Format string

const (
	FormatTableName Format = "table"
	FormatJSONName  Format = "json"
	FormatCSLName   Format = "csl"
)

// Write renders items in the named format.
func Write(w io.Writer, f Format, items []types.Item) error {
	switch f {
	case "", FormatTableName:
		FormatTable(items, w)
		return nil
	case FormatJSONName:
		return FormatJSON(items, w)
	case FormatCSLName:
		return FormatCSL(items, w)
	}
	return fmt.Errorf("unknown format %q (want table, json or csl)", f)
}

// Badges returns the short phase and study-type labels for an item,
// omitting the ones that could not be determined.
func Badges(it types.Item) []string {
	f := summary.Extract(it.Title + " " + it.AbstractOrText)
	var out []string
	if it.Phase != "" {
		out = append(out, it.Phase)
	} else if f.Phase != "Unknown" {
		out = append(out, f.Phase)
	}
	if f.StudyType != "Unknown" {
		out = append(out, f.StudyType)
	}
	if f.SampleSize != "Unknown" {
		out = append(out, f.SampleSize)
	}
	return out
}

// FormatTable writes one line per item with a summary footer.
func FormatTable(items []types.Item, w io.Writer) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-5s  %-5s  %-10s  %-14s  %-60s  %s\n",
		"ID", "Score", "Cites", "Date", "Source", "Title", "Badges")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for _, it := range items {
		cites := "-"
		if it.Citations != nil {
			cites = strconv.Itoa(*it.Citations)
		}
		star := ""
		if it.Starred {
			star = "* "
		}
		fmt.Fprintf(w, "%-6d  %-5d  %-5s  %-10s  %-14s  %-60s  %s\n",
			it.ID, it.Score, cites, textutil.Truncate(displayDate(it), 10),
			textutil.Truncate(it.Source, 14), textutil.Truncate(star+it.Title, 60),
			strings.Join(Badges(it), ", "))
	}

	fmt.Fprintf(w, "\n%d items\n", len(items))
}

// FormatDetail writes the full card for one item.
func FormatDetail(it types.Item, w io.Writer) {
	fmt.Fprintf(w, "%s\n", it.Title)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", min(len([]rune(it.Title)), 100)))

	field := func(label, v string) {
		if v != "" {
			fmt.Fprintf(w, "%-12s %s\n", label+":", v)
		}
	}
	field("ID", strconv.FormatInt(it.ID, 10))
	field("Source", it.Source)
	field("Venue", it.Venue)
	field("Date", displayDate(it))
	field("Authors", it.Authors)
	field("DOI", it.DOI)
	field("PMID", it.PMID)
	field("NCT", it.NCTID)
	field("PMCID", it.PMCID)
	field("Status", it.Status)
	field("URL", it.URL)
	if it.Citations != nil {
		cites := strconv.Itoa(*it.Citations)
		if it.CitationsSource != "" {
			cites += " (" + it.CitationsSource + ")"
		}
		field("Citations", cites)
	}
	field("Full text", it.FullTextSource)
	field("Badges", strings.Join(Badges(it), ", "))
	fmt.Fprintf(w, "%-12s %d %s\n", "Score:", it.Score, scoring.FormatExplain(it.ScoreExplain))

	if it.SummaryText != "" {
		fmt.Fprintf(w, "\n%s\n", it.SummaryText)
	}
	if it.Starred || it.Note != "" {
		fmt.Fprintln(w)
		if it.Starred {
			fmt.Fprintln(w, "Starred")
		}
		field("Note", it.Note)
	}
}

func displayDate(it types.Item) string {
	if it.PublishedAt != "" {
		return it.PublishedAt
	}
	return it.UpdatedAt
}

// FormatJSON writes items as indented JSON.
func FormatJSON(items []types.Item, w io.Writer) error {
	if items == nil {
		items = []types.Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
