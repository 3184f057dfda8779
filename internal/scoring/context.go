package scoring

import "vaultlink/internal/vault"

// FeedbackSource is the subset of FeedbackStore the feedback layer needs.
// Scoring depends on this interface rather than the feedback package
// directly, keeping the pipeline pure and independently testable.
type FeedbackSource interface {
	Boost(entity string) float64
	IsSuppressed(entity string) bool
}

// VaultStats carries vault-wide aggregates the pipeline needs but cannot
// compute from a single note: token IDF, co-occurrence affinities, and the
// optional precomputed note-note edge weight graph. Built by the engine
// from the EntityIndex and ObservabilityStore on every Suggest call; the
// pipeline only reads it.
type VaultStats struct {
	// TokenIDF maps a normalized token to its inverse document frequency
	// across the vault. Missing tokens default to 1.0 (max weight).
	TokenIDF map[string]float64

	// Cooccurrence maps a normalized candidate name to a map of normalized
	// already-linked entity name -> normalized pointwise mutual
	// information in [0,1].
	Cooccurrence map[string]map[string]float64

	// EdgeWeight maps "noteFolder/basename" pairs (order-independent key
	// built by EdgeWeightKey) to a precomputed note-note affinity weight
	// in [0,1]. Nil when the optional layer has no data.
	EdgeWeight map[string]float64

	// LastTouched maps a normalized entity name to its last-touched unix
	// second timestamp, from the entity_recency table.
	LastTouched map[string]int64
}

// EdgeWeightKey builds the order-independent key for two note paths.
func EdgeWeightKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// NoteContext describes the note a suggestion is being produced for.
type NoteContext struct {
	// NotePath is the note's vault-relative path, used for cross_folder
	// and edge_weight lookups. Empty when scoring without a concrete note
	// (e.g. ad-hoc text).
	NotePath string
	// Folder is the note's folder, derived from NotePath.
	Folder string
	// Type is the note's own category from vault.ClassifyNoteText
	// (frontmatter `type`, then the folder rule table, else "other"), used
	// by type_boost.
	Type string
	// LinkedEntities are the normalized names already linked from this
	// note (existing wikilinks in the note text; candidates accepted during
	// the call are not added).
	LinkedEntities []string
	// LinkedCategories counts categories among LinkedEntities, used to
	// find the dominant category for type_boost.
	LinkedCategories map[vault.Category]int
	// LinkedOffsets are byte offsets of each existing wikilink's opening
	// "[[" in the note text, used by context_boost's proximity window.
	LinkedOffsets []int
	// ContextWindowTokens bounds the context_boost proximity window. It is
	// compared against the byte distance between a LinkedOffsets entry and
	// the candidate's byte offset; tokens are not counted.
	ContextWindowTokens int
	// Embedding is the note's own precomputed embedding vector, used by
	// the optional semantic layer. Nil when the embedding provider is
	// absent or the computation timed out.
	Embedding []float32

	Now func() int64 // unix seconds "now", overridable for deterministic tests
}

// dominantCategory returns the most frequent category among linked
// entities, or "" if there are none or it's a tie with no single winner.
func (n NoteContext) dominantCategory() (vault.Category, bool) {
	var best vault.Category
	bestCount := 0
	tie := false
	for cat, count := range n.LinkedCategories {
		if count > bestCount {
			best, bestCount, tie = cat, count, false
		} else if count == bestCount && bestCount > 0 {
			tie = true
		}
	}
	if bestCount == 0 || tie {
		return "", false
	}
	return best, true
}
