//go:build sqlite_vec

package main

import "vaultlink/internal/embedding"

// openVectorCache opens the cgo-accelerated sqlite-vec cache, which needs
// the embedding dimensionality upfront to create its vec0 virtual table.
func openVectorCache(path string, dims int) (*embedding.VectorCache, error) {
	return embedding.OpenVectorCache(path, dims)
}
