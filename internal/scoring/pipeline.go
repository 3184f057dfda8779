package scoring

import (
	"context"
	"math"
	"time"

	"vaultlink/internal/embedding"
	"vaultlink/internal/logging"
	"vaultlink/internal/vault"
)

const (
	baseContentWeight    = 10.0
	stemContentFactor    = 0.40 // stem matches contribute ~40% of exact (§4.3 layer 4)
	cooccurrenceBase     = 6.0
	typeBoostAmount      = 3.0
	contextBoostAmount   = 2.0
	crossFolderBoost     = 1.0
	recencyBoostAmount   = 5.0
	recencyFullWindow    = time.Hour
	recencyZeroWindow    = 30 * 24 * time.Hour
	suppressionBaseExtra = 10.0
	suppressionFloor     = 100.0
)

// Config configures one Pipeline instance. ContentWeight, CooccurrenceWeight
// and HubWeightCap come directly from the active StrictnessProfile (§4.4);
// Weights and Disabled come from engine-level configuration (§4.3's
// per-layer weight and disabledLayers options).
type Config struct {
	Weights            Weights
	Disabled           map[Layer]bool
	MinMatchLength     int
	ContentWeight      float64
	CooccurrenceWeight float64
	HubWeightCap       float64
	Embedding          embedding.EmbeddingEngine
	EmbeddingTimeout   time.Duration
	EmbeddingCache     *embedding.VectorCache // optional; avoids re-embedding unchanged candidate names
}

// Pipeline runs the ordered layer chain of §4.3 over one candidate.
type Pipeline struct {
	cfg Config
}

// New constructs a Pipeline from cfg, filling in weight/disabled defaults.
func New(cfg Config) *Pipeline {
	if cfg.Weights == nil {
		cfg.Weights = Weights{}
	}
	if cfg.Disabled == nil {
		cfg.Disabled = map[Layer]bool{}
	}
	if cfg.ContentWeight == 0 {
		cfg.ContentWeight = 1.0
	}
	if cfg.CooccurrenceWeight == 0 {
		cfg.CooccurrenceWeight = 1.0
	}
	if cfg.EmbeddingTimeout == 0 {
		cfg.EmbeddingTimeout = 250 * time.Millisecond
	}
	return &Pipeline{cfg: cfg}
}

func (p *Pipeline) enabled(l Layer) bool {
	return !p.cfg.Disabled[l]
}

func (p *Pipeline) weight(l Layer) float64 {
	if !p.enabled(l) {
		return 0
	}
	return p.cfg.Weights.of(l)
}

// Score runs every layer in order, producing a full breakdown. passed
// reports whether the length/article filters accepted the candidate; when
// false, breakdown is always zero and no other layer ran.
func (p *Pipeline) Score(ctx context.Context, cand vault.Candidate, note NoteContext, stats VaultStats, fb FeedbackSource) (Breakdown, bool) {
	normalized := vault.Normalize(cand.Entity.Name)

	// 1. length_filter
	if p.enabled(LayerLengthFilter) && len(normalized) < p.cfg.MinMatchLength {
		return Breakdown{}, false
	}
	// 2. article_filter
	if p.enabled(LayerArticleFilter) && articleStopList[normalized] {
		return Breakdown{}, false
	}

	var b Breakdown

	// 3 & 4. exact_match / stem_match
	idf := 1.0
	if v, ok := stats.TokenIDF[normalized]; ok {
		idf = v
	}
	switch cand.Kind {
	case vault.MatchExact:
		b.ContentMatch = p.weight(LayerExactMatch) * p.cfg.ContentWeight * baseContentWeight * idf
	case vault.MatchAlias:
		b.ContentMatch = p.weight(LayerExactMatch) * p.cfg.ContentWeight * baseContentWeight * idf
	case vault.MatchStem:
		b.ContentMatch = p.weight(LayerStemMatch) * p.cfg.ContentWeight * baseContentWeight * idf * stemContentFactor
	}

	// 5. cooccurrence
	if p.enabled(LayerCooccurrence) {
		var npmiSum float64
		if perLinked, ok := stats.Cooccurrence[normalized]; ok {
			for _, linked := range note.LinkedEntities {
				if v, ok := perLinked[linked]; ok {
					npmiSum += clamp01(v)
				}
			}
		}
		b.CooccurrenceBoost = p.weight(LayerCooccurrence) * p.cfg.CooccurrenceWeight * cooccurrenceBase * clamp01(npmiSum)
	}

	// 6. type_boost
	if p.enabled(LayerTypeBoost) {
		matchesNoteType := note.Type != "" && string(cand.Entity.Category) == note.Type
		dominant, ok := note.dominantCategory()
		matchesDominant := ok && cand.Entity.Category == dominant
		if matchesNoteType || matchesDominant {
			b.TypeBoost = p.weight(LayerTypeBoost) * typeBoostAmount
		}
	}

	// 7. context_boost
	if p.enabled(LayerContextBoost) && len(note.LinkedOffsets) > 0 {
		window := note.ContextWindowTokens
		if window <= 0 {
			window = 20
		}
		for _, off := range note.LinkedOffsets {
			if absInt(off-cand.Offset) <= window {
				b.ContextBoost = p.weight(LayerContextBoost) * contextBoostAmount
				break
			}
		}
	}

	// 8. recency
	if p.enabled(LayerRecency) {
		now := time.Now().Unix()
		if note.Now != nil {
			now = note.Now()
		}
		if touched, ok := stats.LastTouched[normalized]; ok {
			b.RecencyBoost = p.weight(LayerRecency) * recencyCurve(now, touched)
		}
	}

	// 9. cross_folder
	if p.enabled(LayerCrossFolder) && note.Folder != "" && cand.Entity.Folder != "" && note.Folder != cand.Entity.Folder {
		b.CrossFolderBoost = p.weight(LayerCrossFolder) * crossFolderBoost
	}

	// 10. hub_boost
	if p.enabled(LayerHubBoost) {
		raw := math.Log(1 + float64(cand.Entity.HubScore))
		if p.cfg.HubWeightCap > 0 && raw > p.cfg.HubWeightCap {
			raw = p.cfg.HubWeightCap
		}
		b.HubBoost = p.weight(LayerHubBoost) * raw
	}

	// 11. feedback
	if p.enabled(LayerFeedback) && fb != nil {
		b.FeedbackAdjustment = p.weight(LayerFeedback) * fb.Boost(cand.Entity.Name)
		if fb.IsSuppressed(cand.Entity.Name) {
			b.SuppressionPenalty = suppressionFloor
		}
	}

	// 12. semantic (optional, degrades to 0 on absence/timeout/error)
	if p.enabled(LayerSemantic) && p.cfg.Embedding != nil && note.Embedding != nil {
		b.SemanticBoost = p.weight(LayerSemantic) * p.semanticScore(ctx, cand, note.Embedding)
	}

	// 13. edge_weight (optional, degrades to 0 when absent)
	if p.enabled(LayerEdgeWeight) && stats.EdgeWeight != nil && note.NotePath != "" {
		key := EdgeWeightKey(note.NotePath, cand.Entity.Path)
		if v, ok := stats.EdgeWeight[key]; ok {
			b.EdgeWeightBoost = p.weight(LayerEdgeWeight) * clamp01(v) * contextBoostAmount
		}
	}

	return b, true
}

// semanticScore embeds the candidate's name and compares it against the
// note's own embedding by cosine similarity, bounded by the configured
// deadline. Any error or timeout contributes 0 per §4.3 layer 12 and §5's
// embedding-deadline rule; nothing here is surfaced as a failing error.
func (p *Pipeline) semanticScore(ctx context.Context, cand vault.Candidate, noteEmbedding []float32) float64 {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbeddingTimeout)
	defer cancel()

	cacheKey := vault.Normalize(cand.Entity.Name)
	if p.cfg.EmbeddingCache != nil {
		if cached, ok, err := p.cfg.EmbeddingCache.Get(timeoutCtx, cacheKey); err == nil && ok {
			sim, err := embedding.CosineSimilarity(cached, noteEmbedding)
			if err != nil {
				logging.Get(logging.CategoryEmbedding).Debug("semantic layer dimension mismatch for %s: %v", cand.Entity.Name, err)
				return 0
			}
			return clamp01(sim) * contextBoostAmount
		}
	}

	vec, err := p.cfg.Embedding.Embed(timeoutCtx, cand.Entity.Name)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Debug("semantic layer degraded for %s: %v", cand.Entity.Name, err)
		return 0
	}
	if p.cfg.EmbeddingCache != nil {
		if err := p.cfg.EmbeddingCache.Put(timeoutCtx, cacheKey, vec); err != nil {
			logging.Get(logging.CategoryEmbedding).Debug("semantic layer cache write failed for %s: %v", cand.Entity.Name, err)
		}
	}

	sim, err := embedding.CosineSimilarity(vec, noteEmbedding)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Debug("semantic layer dimension mismatch for %s: %v", cand.Entity.Name, err)
		return 0
	}
	return clamp01(sim) * contextBoostAmount
}

// recencyCurve implements §4.3 layer 8: full boost within the last hour,
// linearly discounted to zero at 30 days.
func recencyCurve(nowUnix, touchedUnix int64) float64 {
	elapsed := time.Duration(nowUnix-touchedUnix) * time.Second
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed <= recencyFullWindow {
		return recencyBoostAmount
	}
	if elapsed >= recencyZeroWindow {
		return 0
	}
	frac := 1 - float64(elapsed-recencyFullWindow)/float64(recencyZeroWindow-recencyFullWindow)
	return recencyBoostAmount * frac
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
