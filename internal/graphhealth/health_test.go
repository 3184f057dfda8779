package graphhealth

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOnEmptyGraph(t *testing.T) {
	m, err := Compute(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, m.NoteCount)
}

func TestComputeOnChainGraph(t *testing.T) {
	notes := []Note{
		{Path: "a.md", Links: []string{"b"}},
		{Path: "b.md", Links: []string{"a", "c"}},
		{Path: "c.md", Links: []string{"b"}},
	}
	m, err := Compute(context.Background(), notes, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, m.NoteCount)
	assert.Equal(t, 2, m.LinkCount)
	assert.Equal(t, 0, m.OrphanCount)
	assert.Equal(t, 1.0, m.Connectedness)
	assert.Equal(t, 1, m.ClusterCount)
	assert.InDelta(t, 1.333, m.AvgPathLength, 0.01)
}

func TestComputeDetectsOrphans(t *testing.T) {
	notes := []Note{
		{Path: "a.md", Links: []string{"b"}},
		{Path: "b.md", Links: []string{"a"}},
		{Path: "isolated.md", Links: nil},
	}
	m, err := Compute(context.Background(), notes, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, m.OrphanCount)
	assert.InDelta(t, 0.333, m.OrphanRate, 0.01)
	assert.Equal(t, 2, m.ClusterCount)
}

func TestResolvesHyphenNormalizedLinkTargets(t *testing.T) {
	notes := []Note{
		{Path: "react-native.md", Links: []string{"go lang"}},
		{Path: "go-lang.md", Links: nil},
	}
	m, err := Compute(context.Background(), notes, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.LinkCount)
}

func TestTopologyOutputsAreFinite(t *testing.T) {
	notes := []Note{
		{Path: "a.md", Links: []string{"a"}}, // self-link, ignored
	}
	m, err := Compute(context.Background(), notes, 1)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(m.OrphanRate))
	assert.False(t, math.IsInf(m.OrphanRate, 0))
	assert.GreaterOrEqual(t, m.OrphanRate, 0.0)
	assert.LessOrEqual(t, m.OrphanRate, 1.0)
	assert.GreaterOrEqual(t, m.Connectedness, 0.0)
	assert.LessOrEqual(t, m.Connectedness, 1.0)
}

func TestComputeIsReentrant(t *testing.T) {
	notes := []Note{
		{Path: "a.md", Links: []string{"b"}},
		{Path: "b.md", Links: []string{"c"}},
		{Path: "c.md", Links: []string{"a"}},
	}
	m1, err := Compute(context.Background(), notes, 3)
	require.NoError(t, err)
	m2, err := Compute(context.Background(), notes, 3)
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}
