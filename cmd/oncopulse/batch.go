// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/watchlist"
)

var batchCmd = &cobra.Command{
	Use:   "batch <watchlist.yaml>",
	Short: "Refresh every topic and query in a watchlist",
	Long: `Batch reads a YAML watchlist of topics and free-text queries and runs
them one after another. A failing entry is reported and the batch carries
on. Use --report to save the outcomes as YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	addRunFlags(batchCmd)
	batchCmd.Flags().String("report", "", "write batch outcomes to this YAML file")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	wl, err := watchlist.ReadFile(args[0])
	if err != nil {
		return err
	}

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
	results := p.RunBatch(cmd.Context(), wl, opts)
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "FAIL  %s: %s\n", r.Entry.Label(), r.Error)
			continue
		}
		fmt.Fprintf(w, "%-7s %s (%d persisted)\n", r.Outcome.Status, r.Entry.Label(), r.Outcome.DedupedCount)
	}

	rep := watchlist.NewReport(results, time.Now().UTC())
	fmt.Fprintf(w, "\n%d succeeded, %d failed\n", rep.Succeeded, rep.Failed)

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := watchlist.WriteReport(path, rep); err != nil {
			return err
		}
		fmt.Fprintf(w, "Report written to %s\n", path)
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d watchlist entr(ies) failed", rep.Failed)
	}
	return nil
}
