// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mode

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/pkg/types"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{All, Clinician, SafetyWatch, TrialRadar, Researcher, Fellow}, Names())
}

func TestPreset_Clinician(t *testing.T) {
	p, ok := Preset(Clinician)
	require.True(t, ok)
	assert.Equal(t, "papers,trials,fda", p.Sources.Key())
	assert.True(t, p.Phase23Only)
	assert.True(t, p.RCTMetaOnly)
	assert.Equal(t, 10, p.ScoringWeights["phase_iii"])
}

func TestPreset_IsImmutable(t *testing.T) {
	p, _ := Preset(Researcher)
	p.ScoringWeights["phase_iii"] = 99
	p.Sources.FDA = true

	again, _ := Preset(Researcher)
	assert.Equal(t, 6, again.ScoringWeights["phase_iii"])
	assert.False(t, again.Sources.FDA)
}

func TestPreset_Unknown(t *testing.T) {
	_, ok := Preset("nope")
	assert.False(t, ok)
	assert.Equal(t, All, Default().Name)
	assert.Equal(t, "papers,trials,preprints,journal_rss,fda", Default().Sources.Key())
}

func TestApply(t *testing.T) {
	opts := types.DefaultRunOptions()
	opts.DaysBack = 30
	p, _ := Preset(TrialRadar)

	got := p.Apply(opts)
	assert.Equal(t, TrialRadar, got.ModeName)
	assert.Equal(t, "trials,fda", got.Sources.Key())
	assert.Equal(t, 30, got.DaysBack)
	assert.Equal(t, 8, got.ScoringWeights["phase_iii"])

	got.ScoringWeights["phase_iii"] = 1
	again, _ := Preset(TrialRadar)
	assert.Equal(t, 8, again.ScoringWeights["phase_iii"])
}

type fakeStore map[string]Profile

func (f fakeStore) ModeProfile(_ context.Context, name string) (*Profile, error) {
	if name == "broken" {
		return nil, errors.New("db closed")
	}
	p, ok := f[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func TestResolve(t *testing.T) {
	s := fakeStore{"My Mode": {Name: "My Mode", Phase23Only: true}}

	p, err := Resolve(context.Background(), s, Fellow)
	require.NoError(t, err)
	assert.Equal(t, Fellow, p.Name)

	p, err = Resolve(context.Background(), s, "My Mode")
	require.NoError(t, err)
	assert.True(t, p.Phase23Only)

	_, err = Resolve(context.Background(), s, "missing")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = Resolve(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = Resolve(context.Background(), s, "broken")
	assert.ErrorContains(t, err, "db closed")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Profile{Name: "Mine"}))
	assert.Error(t, Validate(Profile{Name: "  "}))
	assert.ErrorIs(t, Validate(Profile{Name: "safety watch"}), ErrReservedName)
}

func TestDecode(t *testing.T) {
	in := `
modes:
  - name: Lung Focus
    phase_2_3_only: true
    sources:
      papers: true
      trials: false
    scoring_weights:
      phase_iii: 11
  - name: Everything
`
	profiles, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "Lung Focus", profiles[0].Name)
	assert.True(t, profiles[0].Phase23Only)
	assert.True(t, profiles[0].Sources.Papers)
	assert.False(t, profiles[0].Sources.Trials)
	assert.Equal(t, 11, profiles[0].ScoringWeights["phase_iii"])

	// Omitted keys keep the All preset's values.
	assert.Equal(t, "papers,trials,preprints,journal_rss,fda", profiles[1].Sources.Key())
	assert.Nil(t, profiles[1].ScoringWeights)
}

func TestDecode_RejectsReservedName(t *testing.T) {
	_, err := Decode(strings.NewReader("modes:\n  - name: Fellow\n"))
	assert.ErrorIs(t, err, ErrReservedName)
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []Profile{{Name: "Mine", Sources: types.Sources{Trials: true}}}))

	profiles, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "trials", profiles[0].Sources.Key())
}
