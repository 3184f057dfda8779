package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestInitializeBuildsEntitiesAndHubScores(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "React.md", "---\ntype: technologies\naliases: [ReactJS]\n---\nBody mentions nothing.\n")
	writeNote(t, root, "Reactive.md", "A different concept.\n")
	writeNote(t, root, "notes/Intro.md", "See [[React]] and [[React]] again.\n")

	idx := NewEntityIndex(root, nil)
	require.NoError(t, idx.Initialize(root))
	assert.True(t, idx.IsReady())

	stats := idx.Stats()
	assert.Equal(t, 3, stats.Total)

	cat, ok := idx.CategoryOf("React")
	require.True(t, ok)
	assert.Equal(t, CategoryTechnologies, cat)

	hub, ok := idx.HubScoreOf("React")
	require.True(t, ok)
	assert.Equal(t, 2, hub)
}

func TestInitializeExcludesConfiguredFolders(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "daily/2024-01-01.md", "Journal entry.\n")
	writeNote(t, root, "Keep.md", "Kept note.\n")

	idx := NewEntityIndex(root, DefaultExcludedFolders)
	require.NoError(t, idx.Initialize(root))

	_, ok := idx.CategoryOf("2024-01-01")
	assert.False(t, ok)
	_, ok = idx.CategoryOf("Keep")
	assert.True(t, ok)
}

func TestLookupExactAndAlias(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "TypeScript.md", "---\naliases: [TS, TypeScriptLang]\n---\nbody\n")

	idx := NewEntityIndex(root, nil)
	require.NoError(t, idx.Initialize(root))

	exact := idx.Lookup("typescript")
	require.Len(t, exact, 1)
	assert.Equal(t, MatchExact, exact[0].Kind)

	// "TS" is below the 3-character alias minimum and must not match.
	short := idx.Lookup("ts")
	assert.Empty(t, short)

	alias := idx.Lookup("TypeScriptLang")
	require.Len(t, alias, 1)
	assert.Equal(t, MatchAlias, alias[0].Kind)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "react native", Normalize("React-Native"))
	assert.Equal(t, "foo bar", Normalize("  Foo   Bar  "))
}

func TestMarkStaleKeepsSnapshotUntilRebuild(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Alpha.md", "body\n")

	idx := NewEntityIndex(root, nil)
	require.NoError(t, idx.Initialize(root))
	idx.MarkStale()

	assert.Equal(t, StateStale, idx.State())
	_, ok := idx.CategoryOf("Alpha")
	assert.True(t, ok, "snapshot must remain queryable while stale")

	require.NoError(t, idx.Initialize(root))
	assert.Equal(t, StateReady, idx.State())
}
