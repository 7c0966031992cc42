// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads upstream credentials from a directory of plain-text
// files. The filename is the key and the trimmed contents are the value.
//
// Recognised keys: ncbi-api-key, ncbi-email, semantic-scholar-api-key,
// openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// Key file names.
const (
	NCBIAPIKey            = "ncbi-api-key"
	NCBIEmail             = "ncbi-email"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAlexEmail         = "openalex-email"
)

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty map. Unreadable files are logged and skipped.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// Apply fills connector credentials that the configuration left empty.
// Values already set by config or environment win.
func Apply(s map[string]string, cfg *types.ConnectorConfig) {
	set := func(dst *string, key string) {
		if *dst == "" {
			*dst = s[key]
		}
	}
	set(&cfg.NCBIAPIKey, NCBIAPIKey)
	set(&cfg.NCBIEmail, NCBIEmail)
	set(&cfg.SemanticScholarAPIKey, SemanticScholarAPIKey)
	set(&cfg.OpenAlexEmail, OpenAlexEmail)
}
