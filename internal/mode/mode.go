// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mode defines the named run presets and user-defined profiles that
// select sources, inclusion filters and scoring weights for a run.
package mode

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// Built-in preset names.
const (
	All         = "All"
	Clinician   = "Clinician (Practice-changing)"
	SafetyWatch = "Safety Watch"
	TrialRadar  = "Trial Radar"
	Researcher  = "Researcher"
	Fellow      = "Fellow"
)

// ErrReservedName is returned when a custom profile would shadow a preset.
var ErrReservedName = errors.New("profile name is reserved by a built-in preset")

// ErrUnknownMode is returned by Resolve when neither a preset nor a custom
// profile carries the name.
var ErrUnknownMode = errors.New("unknown mode")

// Profile is the set of run options a mode controls.
type Profile struct {
	Name           string         `json:"name" yaml:"name"`
	Sources        types.Sources  `json:"sources" yaml:"sources"`
	Phase23Only    bool           `json:"phase_2_3_only" yaml:"phase_2_3_only"`
	RCTMetaOnly    bool           `json:"rct_meta_only" yaml:"rct_meta_only"`
	UseFullTextOA  bool           `json:"use_full_text_oa" yaml:"use_full_text_oa"`
	ScoringWeights map[string]any `json:"scoring_weights,omitempty" yaml:"scoring_weights,omitempty"`
}

// Clone returns a deep copy of the weight map so callers cannot alter the
// presets.
func (p Profile) Clone() Profile {
	p.ScoringWeights = maps.Clone(p.ScoringWeights)
	return p
}

// Apply copies the profile's settings onto opts. Other options such as
// the lookback window and budget are left alone.
func (p Profile) Apply(opts types.RunOptions) types.RunOptions {
	opts.ModeName = p.Name
	opts.Sources = p.Sources
	opts.Phase23Only = p.Phase23Only
	opts.RCTMetaOnly = p.RCTMetaOnly
	opts.UseFullTextOA = p.UseFullTextOA
	opts.ScoringWeights = maps.Clone(p.ScoringWeights)
	return opts
}

var presets = []Profile{
	{
		Name:    All,
		Sources: types.Sources{Papers: true, Trials: true, Preprints: true, JournalRSS: true, FDA: true},
	},
	{
		Name:        Clinician,
		Sources:     types.Sources{Papers: true, Trials: true, FDA: true},
		Phase23Only: true,
		RCTMetaOnly: true,
		ScoringWeights: map[string]any{
			"phase_iii":                 10,
			"randomized":                8,
			"overall_survival":          5,
			"progression_free_survival": 4,
			"meta_analysis":             5,
		},
	},
	{
		Name:    SafetyWatch,
		Sources: types.Sources{Papers: true, Trials: true, JournalRSS: true, FDA: true},
		ScoringWeights: map[string]any{
			"meta_analysis":             6,
			"phase_iii":                 6,
			"randomized":                5,
			"overall_survival":          2,
			"progression_free_survival": 2,
		},
	},
	{
		Name:    TrialRadar,
		Sources: types.Sources{Trials: true, FDA: true},
		ScoringWeights: map[string]any{
			"phase_iii":                 8,
			"phase_ii":                  5,
			"randomized":                6,
			"overall_survival":          3,
			"progression_free_survival": 3,
		},
	},
	{
		Name:          Researcher,
		Sources:       types.Sources{Papers: true, Trials: true, Preprints: true, JournalRSS: true},
		UseFullTextOA: true,
		ScoringWeights: map[string]any{
			"meta_analysis":        5,
			"phase_iii":            6,
			"phase_ii":             4,
			"citations_multiplier": 1.5,
		},
	},
	{
		Name:    Fellow,
		Sources: types.Sources{Papers: true, Trials: true, Preprints: true},
		ScoringWeights: map[string]any{
			"phase_iii":            7,
			"randomized":           6,
			"meta_analysis":        5,
			"sample_size":          2,
			"citations_multiplier": 1.2,
		},
	},
}

// Names lists the built-in presets in display order.
func Names() []string {
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = p.Name
	}
	return out
}

// Presets returns copies of all built-in presets.
func Presets() []Profile {
	out := make([]Profile, len(presets))
	for i, p := range presets {
		out[i] = p.Clone()
	}
	return out
}

// Preset looks up a built-in preset by exact name.
func Preset(name string) (Profile, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p.Clone(), true
		}
	}
	return Profile{}, false
}

// Default returns the All preset.
func Default() Profile {
	p, _ := Preset(All)
	return p
}

// IsReserved reports whether name matches a preset, ignoring case and
// surrounding space.
func IsReserved(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Store holds user-defined profiles.
type Store interface {
	ModeProfile(ctx context.Context, name string) (*Profile, error)
}

// Resolve finds a preset or, failing that, a custom profile in s. s may be
// nil when only presets are available.
func Resolve(ctx context.Context, s Store, name string) (Profile, error) {
	if p, ok := Preset(name); ok {
		return p, nil
	}
	if s != nil {
		p, err := s.ModeProfile(ctx, name)
		if err != nil {
			return Profile{}, fmt.Errorf("loading mode %q: %w", name, err)
		}
		if p != nil {
			return p.Clone(), nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Validate checks a custom profile before it is saved.
func Validate(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if IsReserved(p.Name) {
		return fmt.Errorf("%w: %q", ErrReservedName, p.Name)
	}
	return nil
}
