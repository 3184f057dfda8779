// Package main implements the vaultlink CLI: an entity index, scoring
// pipeline, and feedback loop for wikilink suggestions over a Markdown vault.
//
// # File Index
//
//   - main.go          - entry point, rootCmd, global flags
//   - app.go           - shared app wiring
//   - cmd_index.go     - index build/status/watch
//   - cmd_suggest.go   - suggest
//   - cmd_feedback.go  - feedback record/suppress/journey
//   - cmd_graph.go     - graph health
//   - cmd_dashboard.go - dashboard
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultlink/internal/config"
	"vaultlink/internal/logging"
)

var (
	vaultRoot  string
	configPath string
	strictMode string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vaultlink",
	Short: "vaultlink - wikilink suggestion engine for a Markdown vault",
	Long: `vaultlink indexes the entities in a personal Markdown vault (one note
per linkable entity) and suggests [[wikilinks]] for unlinked mentions in
new or edited notes, scored through a layered pipeline and tuned over time
by a Beta-Binomial feedback loop.

Run "vaultlink index build" once to create the entity index, then
"vaultlink suggest <file>" to get suggestions for a note.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("init console logger: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logCfg := cfg.LoggingConfigToLogging()
		if verbose {
			logCfg.Enabled = true
			logCfg.Level = "debug"
		}
		if err := logging.Initialize(logCfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultRoot, "vault", "", "vault root directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "vaultlink.yml", "path to the vaultlink config file")
	rootCmd.PersistentFlags().StringVar(&strictMode, "strictness", "", "strictness profile: conservative, balanced, aggressive (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// loadConfig loads the config file, layering --vault / --strictness overrides
// on top, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if vaultRoot != "" {
		cfg.VaultRoot = vaultRoot
	}
	if strictMode != "" {
		cfg.Strictness = strictMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
