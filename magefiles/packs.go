//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/oncopulse/internal/packs"
)

// writeSamplePack writes packs/lung.yaml unless a lung pack exists.
func writeSamplePack() error {
	for _, ext := range []string{".yaml", ".yml", ".toml"} {
		if _, err := os.Stat(filepath.Join("packs", "lung"+ext)); err == nil {
			fmt.Println("Sample pack skipped: packs/lung" + ext + " exists.")
			return nil
		}
	}
	path := filepath.Join("packs", "lung.yaml")
	if err := os.WriteFile(path, []byte(packs.Sample), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Println("Wrote", path)
	return nil
}
