package scoring

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultlink/internal/embedding"
	"vaultlink/internal/vault"
)

// countingEmbedder returns a fixed vector per name and records how many
// times Embed was actually invoked, so tests can assert the cache was used.
type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if text == "React" {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := c.Embed(context.Background(), t)
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return 3 }
func (c *countingEmbedder) Name() string    { return "counting" }

func TestSemanticLayerCachesEmbeddingAcrossCalls(t *testing.T) {
	cache, err := embedding.OpenVectorCache(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	defer cache.Close()

	embedder := &countingEmbedder{}
	p := New(Config{
		MinMatchLength: 1,
		Embedding:      embedder,
		EmbeddingCache: cache,
	})
	cand := vault.Candidate{Entity: newEntity("React", 0), Kind: vault.MatchExact}
	note := NoteContext{Embedding: []float32{1, 0, 0}}

	b1, ok := p.Score(context.Background(), cand, note, VaultStats{}, nil)
	require.True(t, ok)
	b2, ok := p.Score(context.Background(), cand, note, VaultStats{}, nil)
	require.True(t, ok)

	assert.Equal(t, 1, embedder.calls, "second Score call should hit the vector cache, not re-embed")
	assert.Equal(t, b1.SemanticBoost, b2.SemanticBoost)
	assert.Greater(t, b1.SemanticBoost, 0.0)
}

func TestSemanticLayerWithoutCacheReembedsEveryCall(t *testing.T) {
	embedder := &countingEmbedder{}
	p := New(Config{MinMatchLength: 1, Embedding: embedder})
	cand := vault.Candidate{Entity: newEntity("React", 0), Kind: vault.MatchExact}
	note := NoteContext{Embedding: []float32{1, 0, 0}}

	_, ok := p.Score(context.Background(), cand, note, VaultStats{}, nil)
	require.True(t, ok)
	_, ok = p.Score(context.Background(), cand, note, VaultStats{}, nil)
	require.True(t, ok)

	assert.Equal(t, 2, embedder.calls)
}
