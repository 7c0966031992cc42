// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/packs"
)

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "Inspect specialty packs",
}

var packsListCmd = &cobra.Command{
	Use:   "list [specialty]",
	Short: "List specialties and their subcategories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := packs.Dir(cfg.PacksDir)
		specialties := args
		if len(specialties) == 0 {
			var err error
			if specialties, err = dir.Specialties(); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if len(specialties) == 0 {
			fmt.Fprintf(w, "No packs in %s. Run \"oncopulse packs init\" to write a sample.\n", cfg.PacksDir)
			return nil
		}
		for _, sp := range specialties {
			subs, err := dir.Subcategories(sp)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, sp)
			for _, sub := range subs {
				fmt.Fprintf(w, "  %s\n", sub)
			}
		}
		return nil
	},
}

var packsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample lung pack if the packs directory has none",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(cfg.PacksDir, "lung.yaml")
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
			return nil
		}
		if err := os.MkdirAll(cfg.PacksDir, 0o755); err != nil {
			return fmt.Errorf("creating packs directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(packs.Sample), 0o644); err != nil {
			return fmt.Errorf("writing sample pack: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	packsCmd.AddCommand(packsListCmd, packsInitCmd)
	rootCmd.AddCommand(packsCmd)
}
