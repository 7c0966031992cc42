// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/internal/ledger"
	"github.com/pdiddy/oncopulse/internal/mode"
	"github.com/pdiddy/oncopulse/pkg/types"
)

var lung = types.Scope{Specialty: "lung", Subcategory: "Immunotherapy"}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// clock returns a controllable time source for s.
func clock(s *Store, start time.Time) *time.Time {
	now := start
	s.now = func() time.Time { return now }
	return &now
}

func intPtr(n int) *int { return &n }

func sampleItem(fp, title string, score int) types.Item {
	return types.Item{
		RawRecord: types.RawRecord{
			Source:         types.SourcePubMed,
			Title:          title,
			URL:            "https://example.org/" + fp,
			PublishedAt:    "2026-02-01",
			AbstractOrText: "phase iii randomized overall survival",
			Venue:          "NEJM",
		},
		Fingerprint:  fp,
		Scope:        lung,
		ModeName:     mode.Clinician,
		Score:        score,
		ScoreExplain: []string{"+1 test"},
	}
}

func TestUpsertItems_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	it := sampleItem("doi:10.1/example", "Example", 7)
	it.Citations = intPtr(12)
	it.CitationsSource = "openalex"
	it.SummaryText = "summary"
	ids, err := s.UpsertItems(ctx, []types.Item{it})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := s.Item(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Title)
	assert.Equal(t, mode.Clinician, got.ModeName)
	assert.Equal(t, lung, got.Scope)
	assert.Equal(t, []string{"+1 test"}, got.ScoreExplain)
	require.NotNil(t, got.Citations)
	assert.Equal(t, 12, *got.Citations)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.Starred)
}

func TestUpsertItems_SameFingerprintUpdatesRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := clock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first := sampleItem("doi:10.1/x", "First", 1)
	ids1, err := s.UpsertItems(ctx, []types.Item{first})
	require.NoError(t, err)

	*now = now.Add(24 * time.Hour)
	second := sampleItem("doi:10.1/x", "Second", 9)
	second.Scope = types.Scope{Specialty: "breast", Subcategory: "HER2"}
	second.ModeName = mode.All
	ids2, err := s.UpsertItems(ctx, []types.Item{second})
	require.NoError(t, err)
	assert.Equal(t, ids1, ids2)

	got, err := s.Item(ctx, ids1[0])
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, 9, got.Score)
	assert.Equal(t, "breast", got.Scope.Specialty)
	assert.Equal(t, mode.All, got.ModeName)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), got.LastSeenAt)

	n, err := s.CountItems(ctx, lung)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertItems_RequiresFingerprint(t *testing.T) {
	s := testStore(t)
	_, err := s.UpsertItems(context.Background(), []types.Item{sampleItem("", "No id", 0)})
	assert.Error(t, err)
}

func TestItems_Ordering(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	low := sampleItem("pmid:1", "Low", 1)
	low.Citations = intPtr(500)
	high := sampleItem("pmid:2", "High", 10)
	mid := sampleItem("pmid:3", "Mid", 5)
	mid.PublishedAt = "2026-03-01"
	trial := sampleItem("nct_id:nct01234567", "Trial", 8)
	trial.Source = types.SourceClinicalTrials
	other := sampleItem("pmid:4", "Elsewhere", 100)
	other.Scope = types.Scope{Specialty: "lung", Subcategory: "Targeted"}

	_, err := s.UpsertItems(ctx, []types.Item{low, high, mid, trial, other})
	require.NoError(t, err)

	titles := func(items []types.Item) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Title)
		}
		return out
	}

	items, err := s.Items(ctx, ItemFilter{Scope: lung})
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Trial", "Mid", "Low"}, titles(items))

	items, err = s.Items(ctx, ItemFilter{Scope: lung, Order: OrderCited})
	require.NoError(t, err)
	assert.Equal(t, "Low", items[0].Title)

	items, err = s.Items(ctx, ItemFilter{Scope: lung, Order: OrderRecent})
	require.NoError(t, err)
	assert.Equal(t, "Mid", items[0].Title)

	items, err = s.Items(ctx, ItemFilter{Scope: lung, ExcludeSources: []string{types.SourceClinicalTrials}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Mid"}, titles(items))

	items, err = s.Items(ctx, ItemFilter{Sources: []string{types.SourceClinicalTrials}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Trial"}, titles(items))

	items, err = s.Items(ctx, ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestItem_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Item(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearScope(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	keep := sampleItem("pmid:9", "Keep", 1)
	keep.Scope = types.Scope{Specialty: "breast", Subcategory: "HER2"}
	ids, err := s.UpsertItems(ctx, []types.Item{sampleItem("pmid:1", "A", 1), sampleItem("pmid:2", "B", 1), keep})
	require.NoError(t, err)
	require.NoError(t, s.SetNote(ctx, ids[0], true, "read later"))

	n, err := s.ClearScope(ctx, lung)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	note, err := s.Note(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, note)

	_, err = s.Item(ctx, ids[2])
	assert.NoError(t, err)
}

func TestRuns_Lifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m1", SourcesKey: "papers", ResolvedDaysBack: 7})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Len(t, r.UUID, 36)
	assert.Equal(t, types.RunRunning, r.Status)
	assert.True(t, r.FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, r.ID, types.RunSuccess, 10, 8, ""))

	got, err := s.Run(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, got.Status)
	assert.Equal(t, 10, got.IngestedCount)
	assert.Equal(t, 8, got.DedupedCount)
	assert.False(t, got.FinishedAt.IsZero())
	assert.Equal(t, r.UUID, got.UUID)

	err = s.FinishRun(ctx, r.ID, types.RunFailed, 0, 0, "again")
	assert.ErrorIs(t, err, ErrRunFinished)

	err = s.FinishRun(ctx, 999, types.RunFailed, 0, 0, "")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.FinishRun(ctx, r.ID, types.RunRunning, 0, 0, "")
	assert.Error(t, err)
}

func TestLastSuccessfulRun_MatchesLane(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := clock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	r1, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m1", SourcesKey: "papers,trials"})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, r1.ID, types.RunSuccess, 10, 8, ""))

	*now = now.Add(time.Hour)
	r2, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m2", SourcesKey: "papers"})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, r2.ID, types.RunSuccess, 10, 8, ""))

	*now = now.Add(time.Hour)
	r3, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m1", SourcesKey: "papers,trials"})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, r3.ID, types.RunTimeout, 3, 3, "timed out after 45s"))

	last, err := s.LastSuccessfulRun(ctx, ledger.Key{Scope: lung, ModeName: "m1", SourcesKey: "papers,trials"})
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, r1.ID, last.ID)
	assert.Equal(t, "m1", last.ModeName)
	assert.Equal(t, "papers,trials", last.SourcesKey)

	last, err = s.LastSuccessfulRun(ctx, ledger.Key{Scope: lung, ModeName: "m3", SourcesKey: "papers"})
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestResolveWindow_FromStore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock(s, start)

	key := ledger.Key{Scope: lung, ModeName: "m1", SourcesKey: "papers"}
	r, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m1", SourcesKey: "papers", ResolvedDaysBack: 30})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, r.ID, types.RunSuccess, 10, 8, ""))

	days, last, err := ledger.ResolveWindow(ctx, s, key, 30, 30, false, start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Contains(t, []int{2, 3}, days)
	require.NotNil(t, last)

	days, last, err = ledger.ResolveWindow(ctx, s, key, 14, 0, true, start)
	require.NoError(t, err)
	assert.Equal(t, 14, days)
	assert.Nil(t, last)
}

func TestRuns_Listing(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := clock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		*now = now.Add(time.Minute)
		r, err := s.CreateRun(ctx, types.RunRecord{Scope: lung, ModeName: "m"})
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, s.FinishRun(ctx, r.ID, types.RunFailed, 0, 0, "boom"))
		}
	}

	runs, err := s.Runs(ctx, RunFilter{Scope: lung})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].StartedAt.After(runs[2].StartedAt))

	runs, err = s.Runs(ctx, RunFilter{Status: types.RunFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].ErrorText)
}

func TestCitationCache(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	_, _, found, err := s.CitationCount(ctx, "doi:10.1/A")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.PutCitationCount(ctx, "doi:10.1/A", intPtr(4), at))
	count, fetched, found, err := s.CitationCount(ctx, "DOI:10.1/a")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, count)
	assert.Equal(t, 4, *count)
	assert.Equal(t, at, fetched)

	require.NoError(t, s.PutCitationCount(ctx, "doi:10.1/a", nil, at))
	count, _, found, err = s.CitationCount(ctx, "doi:10.1/a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, count)
}

func TestFullTextCache(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutFullText(ctx, "pmcid:PMC1", []byte(`{"text":"x"}`), at))
	payload, fetched, found, err := s.FullText(ctx, "pmcid:PMC1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"text":"x"}`, string(payload))
	assert.Equal(t, at, fetched)

	_, _, found, err = s.FullText(ctx, "pmcid:PMC2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestModeProfiles(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := mode.Profile{
		Name:           "My Mode",
		Sources:        types.Sources{Papers: true},
		Phase23Only:    true,
		ScoringWeights: map[string]any{"phase_iii": 11},
	}
	require.NoError(t, s.SaveModeProfile(ctx, p))

	list, err := s.ModeProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "My Mode", list[0].Name)
	assert.True(t, list[0].Phase23Only)
	assert.EqualValues(t, 11, list[0].ScoringWeights["phase_iii"])

	resolved, err := mode.Resolve(ctx, s, "My Mode")
	require.NoError(t, err)
	assert.Equal(t, "papers", resolved.Sources.Key())

	assert.ErrorIs(t, s.SaveModeProfile(ctx, mode.Profile{Name: "Fellow"}), mode.ErrReservedName)

	require.NoError(t, s.DeleteModeProfile(ctx, "My Mode"))
	list, err = s.ModeProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, s.DeleteModeProfile(ctx, "My Mode"), ErrNotFound)
}

func TestNotes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ids, err := s.UpsertItems(ctx, []types.Item{sampleItem("pmid:1", "A", 1), sampleItem("pmid:2", "B", 2)})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetNote(ctx, 999, true, ""), ErrNotFound)

	require.NoError(t, s.SetNote(ctx, ids[0], true, "discuss at tumor board"))
	require.NoError(t, s.SetNote(ctx, ids[0], true, "discussed"))

	n, err := s.Note(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.True(t, n.Starred)
	assert.Equal(t, "discussed", n.Text)

	items, err := s.Items(ctx, ItemFilter{Scope: lung, StarredOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Title)
	assert.Equal(t, "discussed", items[0].Note)
	assert.True(t, items[0].Starred)
}

func TestClearAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.UpsertItems(ctx, []types.Item{sampleItem("pmid:1", "A", 1)})
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, types.RunRecord{Scope: lung})
	require.NoError(t, err)
	require.NoError(t, s.PutCitationCount(ctx, "doi:x", intPtr(1), time.Now()))

	require.NoError(t, s.ClearAll(ctx))

	items, err := s.Items(ctx, ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	runs, err := s.Runs(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, _, found, err := s.CitationCount(ctx, "doi:x")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.UpsertItems(ctx, []types.Item{sampleItem("pmid:1", "A", 1)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, &buf, ItemFilter{Scope: lung}))

	var out []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0]["title"])
	assert.Equal(t, "pmid:1", out[0]["fingerprint"])
}
