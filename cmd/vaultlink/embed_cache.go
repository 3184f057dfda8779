//go:build !sqlite_vec

package main

import "vaultlink/internal/embedding"

// openVectorCache opens the default pure-Go vector cache. dims is ignored in
// this build; the BLOB-backed variant stores vector length per row.
func openVectorCache(path string, dims int) (*embedding.VectorCache, error) {
	return embedding.OpenVectorCache(path)
}
