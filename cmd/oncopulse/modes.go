// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oncopulse/internal/mode"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List, show, import and delete mode profiles",
	Long: `A mode controls which sources a run uses, the phase and RCT filters,
full-text enrichment and scoring weight overrides. Built-in presets cannot be
changed; custom profiles are stored in the database.`,
}

var modesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets and custom profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		custom, err := s.ModeProfiles(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, p := range mode.Presets() {
			fmt.Fprintf(w, "%-20s  preset  %s\n", p.Name, p.Sources.Key())
		}
		for _, p := range custom {
			fmt.Fprintf(w, "%-20s  custom  %s\n", p.Name, p.Sources.Key())
		}
		return nil
	},
}

var modesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a profile as YAML",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := mode.Resolve(cmd.Context(), s, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return mode.Encode(cmd.OutOrStdout(), []mode.Profile{p})
	},
}

var modesSaveCmd = &cobra.Command{
	Use:   "save <modes.yaml>",
	Short: "Import custom profiles from a YAML file",
	Long: `Save reads a file with a top-level "modes" list. Each entry starts from
the All preset, so it only needs the keys it changes. Existing profiles with
the same name are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := mode.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		for _, p := range profiles {
			if err := s.SaveModeProfile(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", p.Name)
		}
		return nil
	},
}

var modesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a custom profile",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		if mode.IsReserved(name) {
			return fmt.Errorf("%w: %q", mode.ErrReservedName, name)
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteModeProfile(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
		return nil
	},
}

func init() {
	modesCmd.AddCommand(modesListCmd, modesShowCmd, modesSaveCmd, modesDeleteCmd)
	rootCmd.AddCommand(modesCmd)
}
