// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <specialty> <subcategory>",
	Short: "Refresh one topic from its specialty pack",
	Long: `Run queries every enabled source for the topic's pack queries, then
filters, deduplicates, scores and stores the results. Unless --force is set,
the window only reaches back to the last successful run with the same mode
and sources.`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	out, err := p.Run(cmd.Context(), types.Scope{Specialty: args[0], Subcategory: args[1]}, opts)
	printOutcome(cmd.OutOrStdout(), out)
	return err
}
