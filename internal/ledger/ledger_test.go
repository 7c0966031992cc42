// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oncopulse/pkg/types"
)

type fakeLookup struct {
	run   *types.RunRecord
	err   error
	calls int
	key   Key
}

func (f *fakeLookup) LastSuccessfulRun(_ context.Context, key Key) (*types.RunRecord, error) {
	f.calls++
	f.key = key
	return f.run, f.err
}

var (
	now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	key = Key{
		Scope:      types.Scope{Specialty: "lung", Subcategory: "Immunotherapy"},
		ModeName:   "m1",
		SourcesKey: "papers",
	}
)

func TestResolveWindow_Force(t *testing.T) {
	l := &fakeLookup{run: &types.RunRecord{FinishedAt: now.Add(-time.Hour)}}
	days, last, err := ResolveWindow(context.Background(), l, key, 14, 30, true, now)
	require.NoError(t, err)
	assert.Equal(t, 14, days)
	assert.Nil(t, last)
	assert.Zero(t, l.calls)
}

func TestResolveWindow_NoPriorRun(t *testing.T) {
	l := &fakeLookup{}
	days, last, err := ResolveWindow(context.Background(), l, key, 30, 7, false, now)
	require.NoError(t, err)
	assert.Equal(t, 7, days)
	assert.Nil(t, last)
	assert.Equal(t, key, l.key)

	days, _, err = ResolveWindow(context.Background(), l, key, 14, 0, false, now)
	require.NoError(t, err)
	assert.Equal(t, 14, days)
}

func TestResolveWindow_SinceLastSuccess(t *testing.T) {
	l := &fakeLookup{run: &types.RunRecord{ID: 9, FinishedAt: now.Add(-48 * time.Hour)}}
	days, last, err := ResolveWindow(context.Background(), l, key, 30, 30, false, now)
	require.NoError(t, err)
	assert.Contains(t, []int{2, 3}, days)
	require.NotNil(t, last)
	assert.Equal(t, int64(9), last.ID)
}

func TestResolveWindow_RoundsUpAndClamps(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		cap     int
		want    int
	}{
		{"minutes ago", 10 * time.Minute, 30, 1},
		{"just over a day", 25 * time.Hour, 30, 2},
		{"beyond cap", 90 * 24 * time.Hour, 30, 30},
		{"future reference", -time.Hour, 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLookup{run: &types.RunRecord{FinishedAt: now.Add(-tt.elapsed)}}
			days, _, err := ResolveWindow(context.Background(), l, key, 60, tt.cap, false, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestResolveWindow_FallsBackToStartedAt(t *testing.T) {
	l := &fakeLookup{run: &types.RunRecord{StartedAt: now.Add(-72 * time.Hour)}}
	days, _, err := ResolveWindow(context.Background(), l, key, 30, 0, false, now)
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	l = &fakeLookup{run: &types.RunRecord{}}
	days, last, err := ResolveWindow(context.Background(), l, key, 30, 10, false, now)
	require.NoError(t, err)
	assert.Equal(t, 10, days)
	assert.NotNil(t, last)
}

func TestResolveWindow_LookupError(t *testing.T) {
	l := &fakeLookup{err: errors.New("db locked")}
	_, _, err := ResolveWindow(context.Background(), l, key, 14, 0, false, now)
	assert.ErrorContains(t, err, "db locked")
}
