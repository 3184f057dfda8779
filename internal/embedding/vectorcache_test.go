//go:build !sqlite_vec

package embedding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *VectorCache {
	t.Helper()
	c, err := OpenVectorCache(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestVectorCacheMissReturnsFalse(t *testing.T) {
	c := openTestCache(t)
	vec, ok, err := c.Get(context.Background(), "react")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, vec)
}

func TestVectorCachePutThenGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	want := []float32{0.1, -0.2, 0.375, 1.0}
	require.NoError(t, c.Put(context.Background(), "react", want))

	got, ok, err := c.Get(context.Background(), "react")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestVectorCachePutOverwritesPriorEntry(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put(context.Background(), "react", []float32{1, 2, 3}))
	require.NoError(t, c.Put(context.Background(), "react", []float32{4, 5}))

	got, ok, err := c.Get(context.Background(), "react")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{4, 5}, got)
}

func TestVectorCacheKeysAreIndependent(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put(context.Background(), "react", []float32{1, 1}))
	require.NoError(t, c.Put(context.Background(), "vue", []float32{2, 2}))

	react, _, err := c.Get(context.Background(), "react")
	require.NoError(t, err)
	vue, _, err := c.Get(context.Background(), "vue")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1}, react)
	require.Equal(t, []float32{2, 2}, vue)
}
