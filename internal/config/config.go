// Package config loads and validates vaultlink's YAML configuration, with
// environment-variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"vaultlink/internal/logging"
)

// Config holds all vaultlink configuration.
type Config struct {
	// VaultRoot is the directory scanned for Markdown notes.
	VaultRoot string `yaml:"vault_root"`

	// ExcludedFolders are vault-relative folder names never scanned for
	// entities (daily notes, templates, attachments, inbox, clippings).
	ExcludedFolders []string `yaml:"excluded_folders"`

	// Strictness is the default mode name: conservative, balanced, aggressive.
	Strictness string `yaml:"strictness"`

	Store         StoreConfig         `yaml:"store"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Feedback      FeedbackConfig      `yaml:"feedback"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// StoreConfig configures the persistent state store.
type StoreConfig struct {
	// DSN is the database/sql data source name, e.g. "vault.db" or ":memory:".
	DSN string `yaml:"dsn"`
	// MigrationsOnBoot is loaded and saved but not read: both stores create
	// their schema at open time regardless of its value.
	MigrationsOnBoot bool `yaml:"migrations_on_boot"`
}

// EmbeddingConfig configures the optional semantic scoring layer.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: "none", "ollama", or "genai".
	Provider string `yaml:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
	TaskType    string `yaml:"task_type"`

	// TimeoutMS bounds a single embedding lookup; on expiry the semantic
	// layer contributes 0 rather than blocking the suggestion call.
	TimeoutMS int `yaml:"timeout_ms"`
}

// Timeout returns the configured embedding deadline as a duration.
func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// FeedbackConfig configures the Beta-Binomial feedback loop.
type FeedbackConfig struct {
	// HalfLifeDays is the exponential decay half-life for feedback events.
	// It is not passed to the feedback store, which always applies a 30-day
	// half-life.
	HalfLifeDays float64 `yaml:"half_life_days"`
}

// ObservabilityConfig configures the observability store.
type ObservabilityConfig struct {
	// RetentionDays is the purge window for suggestion events and snapshots.
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Enabled    bool            `yaml:"enabled"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultExcludedFolders lists the folder names spec.md §4.1 names by kind.
var DefaultExcludedFolders = []string{"daily", "templates", "attachments", "inbox", "clippings"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		VaultRoot:       ".",
		ExcludedFolders: append([]string(nil), DefaultExcludedFolders...),
		Strictness:      "balanced",

		Store: StoreConfig{
			DSN:              "vaultlink.db",
			MigrationsOnBoot: true,
		},

		Embedding: EmbeddingConfig{
			Provider:       "none",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
			TimeoutMS:      250,
		},

		Feedback: FeedbackConfig{
			HalfLifeDays: 30,
		},

		Observability: ObservabilityConfig{
			RetentionDays: 90,
		},

		Logging: LoggingConfig{
			Enabled: false,
			Dir:     ".vaultlink/logs",
			Level:   "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file is absent. A malformed file is a fatal error: config problems are
// an operator mistake, never a runtime data condition to degrade through.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	logging.Get(logging.CategoryBoot).Info("config loaded from %s (vault=%s strictness=%s)", path, cfg.VaultRoot, cfg.Strictness)
	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies VAULTLINK_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VAULTLINK_VAULT_ROOT"); v != "" {
		c.VaultRoot = v
	}
	if v := os.Getenv("VAULTLINK_STRICTNESS"); v != "" {
		c.Strictness = v
	}
	if v := os.Getenv("VAULTLINK_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("VAULTLINK_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("VAULTLINK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		c.Logging.Enabled = true
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	switch c.Strictness {
	case "conservative", "balanced", "aggressive":
	default:
		return fmt.Errorf("config: invalid strictness %q (want conservative, balanced, or aggressive)", c.Strictness)
	}
	switch c.Embedding.Provider {
	case "none", "ollama", "genai":
	default:
		return fmt.Errorf("config: invalid embedding provider %q", c.Embedding.Provider)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("config: store DSN required")
	}
	return nil
}

// LoggingConfigToLogging converts the config's logging section into the
// logging package's own Config type.
func (c *Config) LoggingConfigToLogging() logging.Config {
	return logging.Config{
		Enabled:    c.Logging.Enabled,
		Dir:        c.Logging.Dir,
		Categories: c.Logging.Categories,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
	}
}
