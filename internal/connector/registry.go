// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Defaults builds the standard connector set in merge order: papers, journal
// feeds, preprints, trials, then regulatory.
func Defaults(cfg types.ConnectorConfig, logger zerolog.Logger) []Connector {
	c := NewClient(cfg.HTTPConfig)
	return []Connector{
		&PubMed{Client: c, APIKey: cfg.NCBIAPIKey, Email: cfg.NCBIEmail, Tool: cfg.NCBITool},
		&EuropePMC{Client: c},
		&JournalRSS{Client: c, Feeds: cfg.JournalFeeds, Logger: logger},
		&Preprints{Client: c},
		&EuropePMC{Client: c, PreprintOnly: true},
		&ClinicalTrials{Client: c},
		&FDA{Client: c},
	}
}

// UsesTrialQuery reports whether connectors of the category take the
// trial-oriented query rather than the paper query.
func UsesTrialQuery(c Category) bool {
	return c == CategoryTrials || c == CategoryFDA
}
