package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"vaultlink/internal/errkind"
	"vaultlink/internal/observability"
	"vaultlink/internal/strictness"
	"vaultlink/internal/vault"
)

type noopFeedback struct{}

func (noopFeedback) Boost(string) float64                { return 0 }
func (noopFeedback) IsSuppressed(string) bool            { return false }
func (noopFeedback) RecordApplication(_, _ string) error { return nil }
func (noopFeedback) SetHardCutoff(float64)               {}

// cutoffRecordingFeedback wraps noopFeedback and records every cutoff it is
// given, so a test can assert the per-call strictness mode's hard-cutoff was
// actually threaded into the feedback store rather than a stale default.
type cutoffRecordingFeedback struct {
	noopFeedback
	cutoffs []float64
}

func (f *cutoffRecordingFeedback) SetHardCutoff(cutoff float64) {
	f.cutoffs = append(f.cutoffs, cutoff)
}

func buildIndex(t *testing.T, notes map[string]string) *vault.EntityIndex {
	t.Helper()
	root := t.TempDir()
	for rel, content := range notes {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	idx := vault.NewEntityIndex(root, nil)
	require.NoError(t, idx.Initialize(root))
	return idx
}

func TestSuggestReturnsErrorWhenIndexNotReady(t *testing.T) {
	idx := vault.NewEntityIndex(t.TempDir(), nil)
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Balanced)

	_, err := e.Suggest(context.Background(), "some text", Options{})
	require.Error(t, err)
	var kindErr *errkind.Error
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, errkind.IndexNotReady, kindErr.Kind)
}

func TestSuggestNeverSuggestsAlreadyLinkedEntity(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"React.md": "A UI library.",
		"note.md":  "",
	})
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	result, err := e.Suggest(context.Background(), "We use [[React]] here and React elsewhere.", Options{})
	require.NoError(t, err)
	require.NotContains(t, result.Suggestions, "React")
}

func TestSuggestNeverSuggestsOwnBasename(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"React.md": "",
	})
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	result, err := e.Suggest(context.Background(), "This note is about React internals.", Options{NotePath: "React.md"})
	require.NoError(t, err)
	require.NotContains(t, result.Suggestions, "React")
}

func TestSuggestCapsAtModeMaxSuggestions(t *testing.T) {
	notes := map[string]string{}
	text := ""
	for i := 0; i < 20; i++ {
		name := "Entity" + string(rune('A'+i))
		notes[name+".md"] = ""
		text += name + " "
	}
	idx := buildIndex(t, notes)
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	result, err := e.Suggest(context.Background(), text, Options{})
	require.NoError(t, err)
	require.LessOrEqual(t, len(result.Suggestions), strictness.Get(strictness.Aggressive).MaxSuggestionsPerNote)
}

func TestSuggestIsIdempotentModuloTimestamps(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"React.md": "",
	})
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	r1, err := e.Suggest(context.Background(), "Talking about React today.", Options{})
	require.NoError(t, err)
	r2, err := e.Suggest(context.Background(), "Talking about React today.", Options{})
	require.NoError(t, err)
	if diff := cmp.Diff(r1.Suggestions, r2.Suggestions); diff != "" {
		t.Errorf("suggestions differ between identical calls (-first +second):\n%s", diff)
	}
	require.Equal(t, r1.Suffix, r2.Suffix)
}

func TestSuggestAppliesPerCallStrictnessHardCutoff(t *testing.T) {
	idx := buildIndex(t, map[string]string{"React.md": ""})
	obs := openTestObservability(t)
	fb := &cutoffRecordingFeedback{}
	e := New(idx, fb, obs, strictness.Balanced)

	_, err := e.Suggest(context.Background(), "Talking about React today.", Options{Strictness: strictness.Aggressive})
	require.NoError(t, err)

	require.Len(t, fb.cutoffs, 1)
	require.Equal(t, strictness.Get(strictness.Aggressive).SuppressionHardCutoff, fb.cutoffs[0])
}

func TestSuggestBuildsNoteTypeAndLinkedOffsets(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"tech/React.md": "---\ntype: technologies\n---\n",
		"tech/Vue.md":   "---\ntype: technologies\n---\n",
	})
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	noteText := "---\ntype: technologies\n---\nSee [[React]] and also consider Vue."
	result, err := e.Suggest(context.Background(), noteText, Options{NotePath: "tech/note.md"})
	require.NoError(t, err)
	require.Contains(t, result.Suggestions, "Vue")
}

func TestSuggestRecordsNoteLinksForCooccurrence(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"Go.md":     "",
		"Docker.md": "",
	})
	obs := openTestObservability(t)
	e := New(idx, noopFeedback{}, obs, strictness.Aggressive)

	_, err := e.Suggest(context.Background(), "We use [[Go]] and [[Docker]] together.", Options{NotePath: "a.md"})
	require.NoError(t, err)
	_, err = e.Suggest(context.Background(), "We use [[Go]] and [[Docker]] together.", Options{NotePath: "b.md"})
	require.NoError(t, err)

	cooccurrence, _, err := obs.CooccurrenceGraph()
	require.NoError(t, err)
	require.Greater(t, cooccurrence["go"]["docker"], 0.0)
}

func openTestObservability(t *testing.T) *observability.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "obs.db")
	s, err := observability.Open(dbPath, 90)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
