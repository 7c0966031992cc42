// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note <item-id> [text...]",
	Short: "Star an item or attach a note to it",
	Long: `Note records a reader annotation on a stored item. Without text the
existing note is kept; --star and --unstar toggle the star.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNote,
}

func init() {
	noteCmd.Flags().Bool("star", false, "star the item")
	noteCmd.Flags().Bool("unstar", false, "remove the star")
	rootCmd.AddCommand(noteCmd)
}

func runNote(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}
	star, _ := cmd.Flags().GetBool("star")
	unstar, _ := cmd.Flags().GetBool("unstar")
	if star && unstar {
		return fmt.Errorf("--star and --unstar are mutually exclusive")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	existing, err := s.Note(ctx, id)
	if err != nil {
		return err
	}
	starred, text := false, ""
	if existing != nil {
		starred, text = existing.Starred, existing.Text
	}
	switch {
	case star:
		starred = true
	case unstar:
		starred = false
	}
	if len(args) > 1 {
		text = strings.Join(args[1:], " ")
	}

	if err := s.SetNote(ctx, id, starred, text); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Item %d: starred=%t note=%q\n", id, starred, text)
	return nil
}
