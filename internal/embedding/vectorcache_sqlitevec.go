//go:build sqlite_vec

// This variant of the vector cache trades the pure-Go default for the
// cgo-accelerated sqlite-vec extension, giving the cache a real
// nearest-neighbor index instead of only exact-key lookups. Mirrors the
// teacher's own dual-driver split: pure Go by default, cgo + sqlite-vec
// behind an explicit build tag for workloads that need vector search.
package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"vaultlink/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// VectorCache persists computed embeddings keyed by entity name in a
// sqlite-vec virtual table, enabling nearest-neighbor queries in addition
// to exact-key lookups.
type VectorCache struct {
	db   *sql.DB
	dims int
}

// OpenVectorCache opens (creating if absent) the vector cache at dbPath,
// sized for dims-dimensional vectors.
func OpenVectorCache(dbPath string, dims int) (*VectorCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: open vector cache: %w", err)
	}
	c := &VectorCache{db: db, dims: dims}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS embedding_cache_keys (
		rowid INTEGER PRIMARY KEY,
		key TEXT UNIQUE NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("embedding: init vector cache key table: %w", err)
	}

	vecSchema := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embedding_cache USING vec0(
		embedding float[%d]
	)`, dims)
	if _, err := db.Exec(vecSchema); err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("sqlite-vec virtual table unavailable, vector cache reads and writes will fail: %v", err)
	}

	return c, nil
}

// Close releases the underlying database handle.
func (c *VectorCache) Close() error { return c.db.Close() }

// Get returns the cached embedding for key, if present.
func (c *VectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT v.embedding FROM vec_embedding_cache v
		JOIN embedding_cache_keys k ON k.rowid = v.rowid
		WHERE k.key = ?`, key)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("embedding: vector cache get: %w", err)
	}
	return decodeVector(blob, c.dims), true, nil
}

// Put stores vec under key, overwriting any prior entry.
func (c *VectorCache) Put(ctx context.Context, key string, vec []float32) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("embedding: vector cache put: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO embedding_cache_keys (key) VALUES (?) ON CONFLICT(key) DO UPDATE SET key = excluded.key`, key)
	if err != nil {
		return fmt.Errorf("embedding: vector cache key upsert: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("embedding: vector cache rowid: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_embedding_cache (rowid, embedding) VALUES (?, ?)
		 ON CONFLICT(rowid) DO UPDATE SET embedding = excluded.embedding`,
		rowID, encodeVector(vec)); err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("vector cache put for %s failed: %v", key, err)
		return fmt.Errorf("embedding: vector cache put: %w", err)
	}
	return tx.Commit()
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
