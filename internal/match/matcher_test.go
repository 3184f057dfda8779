package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultlink/internal/vault"
)

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

func names(cands []vault.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Entity.Name
	}
	return out
}

func TestExactMatchBeatsStem(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"React.md":   "body",
		"Reactive.md": "body",
	})
	cands := Matches("Working with React today", idx)
	require.Len(t, cands, 1)
	assert.Equal(t, "React", cands[0].Entity.Name)
	assert.Equal(t, vault.MatchExact, cands[0].Kind)
}

func TestLongestMatchWinsAtOverlappingSpan(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"React.md":        "body",
		"React Native.md": "body",
	})
	cands := Matches("Building with React Native this week", idx)
	require.Len(t, cands, 1)
	assert.Equal(t, "React Native", cands[0].Entity.Name)
}

func TestProtectedZonesNeverMatch(t *testing.T) {
	idx := buildIndex(t, map[string]string{"React.md": "body"})
	text := "Discussed React today\n\n```ts\nimport React from 'react';\n```\n"
	cands := Matches(text, idx)
	require.Len(t, cands, 1)
	assert.Less(t, cands[0].Offset, 30, "match should come from the prose, not the fenced block")
}

func TestExistingWikilinkNotMatchedAgain(t *testing.T) {
	idx := buildIndex(t, map[string]string{"React.md": "body"})
	cands := Matches("Already linked [[React]] here", idx)
	assert.Empty(t, cands)
}

func TestShortCodeAliasRequiresUppercaseContext(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"Staging.md": "---\naliases: [STG]\n---\nbody",
	})
	lower := Matches("deploying to stg tonight", idx)
	assert.Empty(t, lower, "lowercase stg must not match the uppercase short-code alias")

	upper := Matches("deploying to STG tonight", idx)
	require.Len(t, upper, 1)
	assert.Equal(t, vault.MatchAlias, upper[0].Kind)
}

func TestExtractWikilinksHandlesPipedDisplay(t *testing.T) {
	got := ExtractWikilinks("see [[React]] and [[TypeScript|TS lang]]")
	assert.Equal(t, []string{"React", "TypeScript"}, got)
}

func TestWikilinkOffsetsMatchesOpeningBracketPositions(t *testing.T) {
	text := "see [[React]] and [[TypeScript|TS lang]]"
	offsets := WikilinkOffsets(text)
	require.Len(t, offsets, 2)
	assert.Equal(t, "[[React]]", text[offsets[0]:offsets[0]+len("[[React]]")])
	assert.Equal(t, "[[TypeScript|TS lang]]", text[offsets[1]:offsets[1]+len("[[TypeScript|TS lang]]")])
}
