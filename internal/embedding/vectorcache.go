//go:build !sqlite_vec

// Package embedding's default vector cache persists entity/note embeddings
// in a plain SQLite BLOB column via the pure-Go modernc.org/sqlite driver,
// avoiding a cgo dependency for the common path. Build with the sqlite_vec
// tag to swap in the cgo-accelerated nearest-neighbor variant instead.
package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"vaultlink/internal/logging"

	_ "modernc.org/sqlite"
)

// VectorCache persists computed embeddings keyed by entity name, so the
// semantic scoring layer never re-embeds an unchanged entity.
type VectorCache struct {
	db *sql.DB
}

// OpenVectorCache opens (creating if absent) the vector cache at dbPath.
func OpenVectorCache(dbPath string) (*VectorCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: open vector cache: %w", err)
	}
	c := &VectorCache{db: db}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS embedding_cache (
		key TEXT PRIMARY KEY,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("embedding: init vector cache schema: %w", err)
	}
	return c, nil
}

// Close releases the underlying database handle.
func (c *VectorCache) Close() error { return c.db.Close() }

// Get returns the cached embedding for key, if present.
func (c *VectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT dims, vector FROM embedding_cache WHERE key = ?`, key)
	var dims int
	var blob []byte
	if err := row.Scan(&dims, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("embedding: vector cache get: %w", err)
	}
	return decodeVector(blob, dims), true, nil
}

// Put stores vec under key, overwriting any prior entry.
func (c *VectorCache) Put(ctx context.Context, key string, vec []float32) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO embedding_cache (key, dims, vector) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
		key, len(vec), encodeVector(vec),
	)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("vector cache put for %s failed: %v", key, err)
		return fmt.Errorf("embedding: vector cache put: %w", err)
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) []float32 {
	vec := make([]float32, dims)
	for i := 0; i < dims && (i+1)*4 <= len(blob); i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
