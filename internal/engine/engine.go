// Package engine implements the top-level SuggestionEngine (§4.8): the one
// entry point that ties the EntityIndex, matcher, scoring pipeline,
// strictness profile, feedback store, and observability store into a
// single `Suggest` call.
package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultlink/internal/errkind"
	"vaultlink/internal/logging"
	"vaultlink/internal/match"
	"vaultlink/internal/observability"
	"vaultlink/internal/scoring"
	"vaultlink/internal/strictness"
	"vaultlink/internal/vault"
)

// FeedbackStore is the subset of feedback.Store the engine needs.
type FeedbackStore interface {
	scoring.FeedbackSource
	RecordApplication(entity, notePath string) error
	SetHardCutoff(cutoff float64)
}

// Engine is the process-wide suggestion orchestrator.
type Engine struct {
	index        *vault.EntityIndex
	feedback     FeedbackStore
	observe      *observability.Store
	defaultMode  strictness.Mode
	embedder     EmbedderConfig
}

// EmbedderConfig carries the optional semantic layer's dependencies,
// threaded into every Pipeline built per-request.
type EmbedderConfig struct {
	Engine           scoring.Config // only Embedding/EmbeddingTimeout/EmbeddingCache fields are read
}

// Options configures one Suggest call, mirroring §6's engine-level
// configuration options 1:1.
type Options struct {
	Strictness     strictness.Mode
	MaxSuggestions int
	DisabledLayers map[scoring.Layer]bool
	NotePath       string
	Detail         bool
}

// Result is the wire shape of §6's suggestion result.
type Result struct {
	Suggestions []string
	Suffix      string
	Detailed    []DetailedResult
	Warning     *string
}

// DetailedResult is one scored candidate's full breakdown, included when
// Options.Detail is true.
type DetailedResult struct {
	Entity     string
	TotalScore float64
	Breakdown  scoring.Breakdown
}

// New constructs an Engine over an already-initialized (or not yet ready)
// EntityIndex, a feedback store, and an observability store.
func New(index *vault.EntityIndex, feedback FeedbackStore, observe *observability.Store, defaultMode strictness.Mode) *Engine {
	return &Engine{index: index, feedback: feedback, observe: observe, defaultMode: defaultMode}
}

// WithEmbedder attaches the optional semantic layer's embedding engine.
func (e *Engine) WithEmbedder(cfg EmbedderConfig) *Engine {
	e.embedder = cfg
	return e
}

// IsEntityIndexReady exposes §4.8 step 1's precondition check.
func (e *Engine) IsEntityIndexReady() bool {
	return e.index.IsReady()
}

// Suggest runs the full §4.8 algorithm over noteText.
func (e *Engine) Suggest(ctx context.Context, noteText string, opts Options) (Result, error) {
	if !e.IsEntityIndexReady() {
		return Result{}, errkind.New(errkind.IndexNotReady, "entity index is not ready")
	}

	requestID := uuid.New().String()[:8]
	logging.Get(logging.CategoryEngine).Debug("suggest[%s]: note=%s textLen=%d", requestID, opts.NotePath, len(noteText))

	mode := opts.Strictness
	if mode == "" {
		mode = e.defaultMode
	}
	profile := strictness.Get(mode)
	e.feedback.SetHardCutoff(profile.SuppressionHardCutoff)

	maxSuggestions := profile.MaxSuggestionsPerNote
	if opts.MaxSuggestions > 0 && opts.MaxSuggestions < maxSuggestions {
		maxSuggestions = opts.MaxSuggestions
	}

	alreadyLinked := match.ExtractWikilinks(noteText)
	linkedSet := make(map[string]bool, len(alreadyLinked))
	for _, name := range alreadyLinked {
		linkedSet[vault.Normalize(name)] = true
	}

	ownBasename := ""
	if opts.NotePath != "" {
		base := strings.TrimSuffix(filepath.Base(opts.NotePath), filepath.Ext(opts.NotePath))
		ownBasename = vault.Normalize(base)
	}

	candidates := match.Matches(noteText, e.index)

	pipelineCfg := profile.ScoringConfig(nil, opts.DisabledLayers)
	pipelineCfg.Embedding = e.embedder.Engine.Embedding
	pipelineCfg.EmbeddingTimeout = e.embedder.Engine.EmbeddingTimeout
	pipelineCfg.EmbeddingCache = e.embedder.Engine.EmbeddingCache
	pipeline := scoring.New(pipelineCfg)

	noteCtx := e.buildNoteContext(noteText, opts.NotePath, alreadyLinked)
	noteCtx.Embedding = e.embedNoteText(ctx, noteText)
	stats := e.vaultStats()

	if e.observe != nil && opts.NotePath != "" {
		if err := e.observe.RecordNoteLinks(opts.NotePath, noteCtx.LinkedEntities); err != nil {
			logging.Get(logging.CategoryEngine).Warn("record note links for %s failed: %v", opts.NotePath, err)
		}
	}

	var results []scoring.Result
	var warning *string

	for _, cand := range candidates {
		normalized := vault.Normalize(cand.Entity.Name)
		if linkedSet[normalized] || (ownBasename != "" && normalized == ownBasename) {
			continue
		}

		breakdown, passed := pipeline.Score(ctx, cand, noteCtx, stats, e.feedback)
		if !passed {
			continue
		}
		total := breakdown.Total()

		if e.observe != nil {
			if err := e.observe.RecordSuggestionEvent(observability.SuggestionEventRow{
				NotePath:   opts.NotePath,
				Entity:     cand.Entity.Name,
				TotalScore: total,
				Breakdown:  breakdown,
				Threshold:  profile.MinScoreToPass,
				Passed:     total >= profile.MinScoreToPass,
				Strictness: string(mode),
			}); err != nil {
				msg := "observability store degraded: " + err.Error()
				warning = &msg
				logging.Get(logging.CategoryEngine).Warn("%s", msg)
			}
		}

		if total < profile.MinScoreToPass {
			continue
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		results = append(results, scoring.Result{
			EntityName: cand.Entity.Name,
			HubScore:   cand.Entity.HubScore,
			Offset:     cand.Offset,
			Total:      total,
			Breakdown:  breakdown,
		})
	}

	scoring.Sort(results)
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}

	out := Result{Warning: warning}
	suffixParts := make([]string, 0, len(results))
	for _, r := range results {
		out.Suggestions = append(out.Suggestions, r.EntityName)
		suffixParts = append(suffixParts, fmt.Sprintf("[[%s]]", r.EntityName))
		if opts.Detail {
			out.Detailed = append(out.Detailed, DetailedResult{
				Entity: r.EntityName, TotalScore: r.Total, Breakdown: r.Breakdown,
			})
		}
	}
	if len(suffixParts) > 0 {
		out.Suffix = "→ " + strings.Join(suffixParts, " ")
	}
	return out, nil
}

// buildNoteContext derives the NoteContext for one Suggest call from the
// note's own text, path, and already-linked entity names.
func (e *Engine) buildNoteContext(noteText, notePath string, linked []string) scoring.NoteContext {
	folder := ""
	if notePath != "" {
		folder = filepath.Dir(notePath)
		if folder == "." {
			folder = ""
		}
	}

	linkedCategories := make(map[vault.Category]int)
	linkedNormalized := make([]string, 0, len(linked))
	for _, name := range linked {
		normalized := vault.Normalize(name)
		linkedNormalized = append(linkedNormalized, normalized)
		if cat, ok := e.index.CategoryOf(name); ok {
			linkedCategories[cat]++
		}
	}

	return scoring.NoteContext{
		NotePath:            notePath,
		Folder:              folder,
		Type:                string(vault.ClassifyNoteText(noteText, folder)),
		LinkedEntities:      linkedNormalized,
		LinkedCategories:    linkedCategories,
		LinkedOffsets:       match.WikilinkOffsets(noteText),
		ContextWindowTokens: 20,
	}
}

// embedNoteText embeds the note's own text for the optional semantic layer,
// bounded by the same deadline the pipeline applies to candidate embedding.
// Returns nil when no provider is configured or the call fails or times
// out; the semantic layer degrades to zero contribution in that case.
func (e *Engine) embedNoteText(ctx context.Context, noteText string) []float32 {
	if e.embedder.Engine.Embedding == nil {
		return nil
	}
	timeout := e.embedder.Engine.EmbeddingTimeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := e.embedder.Engine.Embedding.Embed(timeoutCtx, noteText)
	if err != nil {
		logging.Get(logging.CategoryEngine).Debug("note embedding unavailable: %v", err)
		return nil
	}
	return vec
}

// vaultStats assembles VaultStats from the EntityIndex and ObservabilityStore:
// TokenIDF is derived from each entity's hub score (a frequently-linked
// entity behaves like a low-IDF common term); LastTouched, Cooccurrence, and
// EdgeWeight come from the observability store's entity_recency and
// note_links tables and are left empty when the store is unavailable,
// degrading those layers to zero contribution rather than failing.
func (e *Engine) vaultStats() scoring.VaultStats {
	stats := scoring.VaultStats{
		TokenIDF:    make(map[string]float64),
		LastTouched: make(map[string]int64),
	}

	for _, ent := range e.index.Entities() {
		stats.TokenIDF[vault.Normalize(ent.Name)] = 1.0 / (1.0 + math.Log1p(float64(ent.HubScore)))
	}

	if e.observe == nil {
		return stats
	}

	if recency, err := e.observe.RecencyMap(); err != nil {
		logging.Get(logging.CategoryEngine).Warn("recency map unavailable: %v", err)
	} else {
		stats.LastTouched = recency
	}

	if cooccurrence, edgeWeight, err := e.observe.CooccurrenceGraph(); err != nil {
		logging.Get(logging.CategoryEngine).Warn("cooccurrence graph unavailable: %v", err)
	} else {
		stats.Cooccurrence = cooccurrence
		stats.EdgeWeight = edgeWeight
	}

	return stats
}
