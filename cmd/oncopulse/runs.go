// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/store"
	"github.com/pdiddy/oncopulse/internal/textutil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show run history",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.String("specialty", "", "topic specialty")
	f.String("subcategory", "", "topic subcategory")
	f.String("query", "", "runs of a free-text search")
	f.String("status", "", "only runs with this status")
	f.Int("limit", store.DefaultRunLimit, "maximum runs")
	f.Bool("json", false, "output as JSON")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.Runs(cmd.Context(), store.RunFilter{Scope: scope, Status: types.RunStatus(status), Limit: limit})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if runs == nil {
			runs = []types.RunRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	fmt.Fprintf(w, "%-5s  %-19s  %-8s  %-40s  %-12s  %-4s  %-8s  %-9s  %s\n",
		"ID", "Started", "Status", "Scope", "Mode", "Days", "Ingested", "Persisted", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d  %-19s  %-8s  %-40s  %-12s  %-4d  %-8d  %-9d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
			textutil.Truncate(r.Scope.String(), 40), textutil.Truncate(r.ModeName, 12),
			r.ResolvedDaysBack, r.IngestedCount, r.DedupedCount, textutil.Truncate(r.ErrorText, 40))
	}
	return nil
}
