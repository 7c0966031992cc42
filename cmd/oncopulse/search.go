// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/report"
	"github.com/pdiddy/oncopulse/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Run a free-text search across all enabled sources",
	Long: `Search expands a free-text question into source-specific queries,
fetches the full window from every enabled source, keeps results that match
the question, and replaces whatever an earlier search for the same text
stored. The top results are printed when it finishes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addRunFlags(searchCmd)
	searchCmd.Flags().Int("show", 20, "number of results to print (0 prints none)")
	searchCmd.Flags().String("format", "table", "output format: table, json or csl")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p := newPipeline(s)
	opts, err := runOptions(cmd, p)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	out, err := p.RunQuery(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		printOutcome(w, out)
		return err
	}

	show, _ := cmd.Flags().GetInt("show")
	format, _ := cmd.Flags().GetString("format")
	if report.Format(format) == report.FormatTableName {
		printOutcome(w, out)
		fmt.Fprintln(w)
	}
	if show <= 0 {
		return nil
	}
	items, err := s.Items(cmd.Context(), store.ItemFilter{Scope: out.Scope, Order: store.OrderScore, Limit: show})
	if err != nil {
		return err
	}
	return report.Write(w, report.Format(format), items)
}
