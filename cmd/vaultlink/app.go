package main

import (
	"fmt"
	"path/filepath"

	"vaultlink/internal/config"
	"vaultlink/internal/embedding"
	"vaultlink/internal/engine"
	"vaultlink/internal/feedback"
	"vaultlink/internal/logging"
	"vaultlink/internal/observability"
	"vaultlink/internal/scoring"
	"vaultlink/internal/strictness"
	"vaultlink/internal/vault"
)

// app bundles the components a command needs, built once from the loaded
// config. Stores share a single DSN. Their schemas overlap only in
// wikilink_applications, which both create with CREATE TABLE IF NOT EXISTS;
// the feedback store opens first, so its definition is the one created.
type app struct {
	cfg      *config.Config
	index    *vault.EntityIndex
	feedback *feedback.Store
	observe  *observability.Store
}

func newApp(cfg *config.Config) (*app, error) {
	mode, err := strictness.Parse(cfg.Strictness)
	if err != nil {
		return nil, err
	}

	fb, err := feedback.Open(cfg.Store.DSN, strictness.Get(mode).SuppressionHardCutoff)
	if err != nil {
		return nil, fmt.Errorf("open feedback store: %w", err)
	}

	obs, err := observability.Open(cfg.Store.DSN, cfg.Observability.RetentionDays)
	if err != nil {
		fb.Close()
		return nil, fmt.Errorf("open observability store: %w", err)
	}

	idx := vault.NewEntityIndex(cfg.VaultRoot, cfg.ExcludedFolders)
	return &app{cfg: cfg, index: idx, feedback: fb, observe: obs}, nil
}

func (a *app) close() {
	a.feedback.Close()
	a.observe.Close()
}

func (a *app) strictnessMode() strictness.Mode {
	mode, err := strictness.Parse(a.cfg.Strictness)
	if err != nil {
		return strictness.Balanced
	}
	return mode
}

// newEngine builds a suggestion engine over an already-initialized index,
// wiring the optional semantic layer when the config selects a provider.
func (a *app) newEngine() (*engine.Engine, error) {
	e := engine.New(a.index, a.feedback, a.observe, a.strictnessMode())

	if a.cfg.Embedding.Provider == "none" || a.cfg.Embedding.Provider == "" {
		return e, nil
	}

	eng, err := embedding.NewEngine(embedding.Config{
		Provider:       a.cfg.Embedding.Provider,
		OllamaEndpoint: a.cfg.Embedding.OllamaEndpoint,
		OllamaModel:    a.cfg.Embedding.OllamaModel,
		GenAIAPIKey:    a.cfg.Embedding.GenAIAPIKey,
		GenAIModel:     a.cfg.Embedding.GenAIModel,
		TaskType:       a.cfg.Embedding.TaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedding engine: %w", err)
	}

	cachePath := filepath.Join(filepath.Dir(a.cfg.Store.DSN), "vectors.db")
	cache, err := openVectorCache(cachePath, eng.Dimensions())
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("vector cache unavailable, semantic layer will re-embed every call: %v", err)
		cache = nil
	}

	return e.WithEmbedder(engine.EmbedderConfig{
		Engine: scoring.Config{
			Embedding:        eng,
			EmbeddingTimeout: a.cfg.Embedding.Timeout(),
			EmbeddingCache:   cache,
		},
	}), nil
}
