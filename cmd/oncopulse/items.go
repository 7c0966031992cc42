// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/query"
	"github.com/pdiddy/oncopulse/internal/report"
	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/internal/store"
	"github.com/pdiddy/oncopulse/pkg/types"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List stored items",
	Long: `Items lists what earlier runs stored, for one topic, one search, or
everything. Order by score, citations, recency, or "hot" (citation momentum
blended with recency). Use --id to show the full card for one item.`,
	Args: cobra.NoArgs,
	RunE: runItems,
}

func init() {
	f := itemsCmd.Flags()
	f.String("specialty", "", "topic specialty")
	f.String("subcategory", "", "topic subcategory")
	f.String("query", "", "show the results of a free-text search")
	f.String("order", "score", "order: score, cited, recent or hot")
	f.String("format", "table", "output format: table, json or csl")
	f.Int("limit", store.DefaultItemLimit, "maximum items")
	f.Bool("starred", false, "only starred items")
	f.StringSlice("source", nil, "only these sources")
	f.StringSlice("exclude-source", nil, "skip these sources")
	f.Int64("id", 0, "show one item in full")
	f.String("export", "", "write the matching items to this YAML file")

	rootCmd.AddCommand(itemsCmd)
}

func scopeFromFlags(cmd *cobra.Command) (types.Scope, error) {
	f := cmd.Flags()
	if q, _ := f.GetString("query"); q != "" {
		return query.SearchScope(q), nil
	}
	specialty, _ := f.GetString("specialty")
	subcategory, _ := f.GetString("subcategory")
	if (specialty == "") != (subcategory == "") {
		return types.Scope{}, fmt.Errorf("--specialty and --subcategory go together")
	}
	return types.Scope{Specialty: specialty, Subcategory: subcategory}, nil
}

func runItems(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	f := cmd.Flags()

	if id, _ := f.GetInt64("id"); id > 0 {
		it, err := s.Item(ctx, id)
		if err != nil {
			return err
		}
		report.FormatDetail(*it, w)
		return nil
	}

	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}
	order, _ := f.GetString("order")
	filter := store.ItemFilter{Scope: scope, Order: store.ItemOrder(order)}
	switch filter.Order {
	case store.OrderScore, store.OrderCited, store.OrderRecent:
	case "hot":
		filter.Order = store.OrderScore
	default:
		return fmt.Errorf("unknown order %q", order)
	}
	filter.Limit, _ = f.GetInt("limit")
	filter.StarredOnly, _ = f.GetBool("starred")
	filter.Sources, _ = f.GetStringSlice("source")
	filter.ExcludeSources, _ = f.GetStringSlice("exclude-source")

	if path, _ := f.GetString("export"); path != "" {
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer out.Close()
		if err := s.ExportYAML(ctx, out, filter); err != nil {
			return err
		}
		fmt.Fprintf(w, "Exported to %s\n", path)
		return nil
	}

	items, err := s.Items(ctx, filter)
	if err != nil {
		return err
	}
	if order == "hot" {
		scoring.SortHot(items, time.Now().UTC())
	}
	format, _ := f.GetString("format")
	return report.Write(w, report.Format(format), items)
}
