package observability

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaultlink/internal/scoring"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "observability.db")
	s, err := Open(dbPath, 90)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndFetchEntityScoreTimeline(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
		NotePath: "notes/a.md", Entity: "Go", TotalScore: 12.5,
		Breakdown: scoring.Breakdown{ContentMatch: 10, HubBoost: 2.5},
		Threshold: 8, Passed: true, Strictness: "balanced",
	}))

	timeline, err := s.EntityScoreTimeline("Go", 7, 10)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Equal(t, "notes/a.md", timeline[0].NotePath)
	require.Equal(t, 12.5, timeline[0].TotalScore)
	require.True(t, timeline[0].Passed)
}

func TestLayerContributionTimeseriesAveragesNotSums(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
			NotePath: "a.md", Entity: "Go", TotalScore: 10,
			Breakdown: scoring.Breakdown{ContentMatch: 10},
			Threshold: 8, Passed: true, Strictness: "balanced", Timestamp: now,
		}))
	}
	require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
		NotePath: "a.md", Entity: "Go", TotalScore: 0,
		Breakdown: scoring.Breakdown{ContentMatch: 0},
		Threshold: 8, Passed: false, Strictness: "balanced", Timestamp: now,
	}))

	series, err := s.LayerContributionTimeseries(GranularityDay, 7)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, 5, series[0].Count)
	require.InDelta(t, 8.0, series[0].Breakdown.ContentMatch, 0.001, "bucket value must be the average, not the sum")
}

func TestCompareGraphSnapshotsComputesDeltas(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Now().UTC().AddDate(0, 0, -7)
	t2 := time.Now().UTC()

	require.NoError(t, s.RecordGraphSnapshot(t1, "avg_degree", 2.0, "{}"))
	require.NoError(t, s.RecordGraphSnapshot(t2, "avg_degree", 3.5, "{}"))

	cmp, err := s.CompareGraphSnapshots(t1, t2)
	require.NoError(t, err)
	require.InDelta(t, 1.5, cmp.MetricChanges["avg_degree"], 0.001)
}

func TestPurgeIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	old := time.Now().UTC().AddDate(0, 0, -200)
	require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
		NotePath: "old.md", Entity: "Legacy", TotalScore: 5, Threshold: 5,
		Passed: true, Strictness: "balanced", Timestamp: old,
	}))

	require.NoError(t, s.Purge())
	require.NoError(t, s.Purge())

	timeline, err := s.EntityScoreTimeline("Legacy", 365, 10)
	require.NoError(t, err)
	require.Empty(t, timeline)
}

func TestRecencyMapReturnsLastTouchedNormalized(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
		NotePath: "a.md", Entity: "Go-Lang", TotalScore: 10, Threshold: 8,
		Passed: true, Strictness: "balanced", Timestamp: now,
	}))

	recency, err := s.RecencyMap()
	require.NoError(t, err)
	touched, ok := recency["go lang"]
	require.True(t, ok)
	require.InDelta(t, now.Unix(), touched, 1)
}

func TestCooccurrenceGraphFindsSharedLinksAcrossNotes(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordNoteLinks("a.md", []string{"Go", "Docker"}))
	require.NoError(t, s.RecordNoteLinks("b.md", []string{"Go", "Docker"}))
	require.NoError(t, s.RecordNoteLinks("c.md", []string{"Rust"}))

	cooccurrence, edgeWeight, err := s.CooccurrenceGraph()
	require.NoError(t, err)
	require.Greater(t, cooccurrence["go"]["docker"], 0.0)
	require.Equal(t, cooccurrence["go"]["docker"], cooccurrence["docker"]["go"])
	require.Equal(t, 1.0, edgeWeight[scoring.EdgeWeightKey("a.md", "b.md")])
}

func TestRecordNoteLinksReplacesPriorRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordNoteLinks("a.md", []string{"Go"}))
	require.NoError(t, s.RecordNoteLinks("a.md", []string{"Rust"}))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM note_links WHERE note_path = ?`, "a.md").Scan(&count))
	require.Equal(t, 1, count)
}

func TestExtendedDashboardDataRanksTopEntities(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
			NotePath: "a.md", Entity: "Go", TotalScore: 10, Threshold: 8,
			Passed: true, Strictness: "balanced", Timestamp: now,
		}))
	}
	require.NoError(t, s.RecordSuggestionEvent(SuggestionEventRow{
		NotePath: "b.md", Entity: "Rust", TotalScore: 9, Threshold: 8,
		Passed: true, Strictness: "balanced", Timestamp: now,
	}))

	data, err := s.ExtendedDashboardData(7)
	require.NoError(t, err)
	require.NotEmpty(t, data.TopEntities)
	require.Equal(t, "Go", data.TopEntities[0].Entity)
	require.Equal(t, 3, data.TopEntities[0].Count)
}
