// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/pkg/types"
)

var clearCmd = &cobra.Command{
	Use:   "clear [<specialty> <subcategory>]",
	Short: "Delete stored items for a topic, a search, or everything",
	Long: `Clear removes the items (and their notes) of one topic or one free-text
search. With --all it also removes run history and the enrichment caches.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().String("query", "", "clear the results of a free-text search")
	clearCmd.Flags().Bool("all", false, "clear every table")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	var scope types.Scope
	switch {
	case all:
	case len(args) == 2:
		scope = types.Scope{Specialty: args[0], Subcategory: args[1]}
	case len(args) == 0:
		var err error
		if scope, err = scopeFromFlags(cmd); err != nil {
			return err
		}
		if scope.Specialty == "" {
			return fmt.Errorf("name a topic, pass --query, or use --all")
		}
	default:
		return fmt.Errorf("expected <specialty> <subcategory>")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	if all {
		if err := s.ClearAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(w, "Cleared all data.")
		return nil
	}
	n, err := s.ClearScope(cmd.Context(), scope)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %d items from %s.\n", n, scope)
	return nil
}
