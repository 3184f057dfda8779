package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vaultlink/internal/logging"
	"vaultlink/internal/vault"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the entity index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the vault and build the entity index",
	RunE:  runIndexBuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show entity index state and per-category counts",
	RunE:  runIndexStatus,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and rebuild the index on change",
	RunE:  runIndexWatch,
}

func init() {
	indexCmd.AddCommand(indexBuildCmd, indexStatusCmd, indexWatchCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.index.Initialize(cfg.VaultRoot); err != nil {
		return fmt.Errorf("build entity index: %w", err)
	}
	stats := a.index.Stats()
	fmt.Printf("indexed %d entities from %s\n", stats.Total, cfg.VaultRoot)
	for cat, n := range stats.PerCategory {
		if n > 0 {
			fmt.Printf("  %-15s %d\n", cat, n)
		}
	}
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.index.Initialize(cfg.VaultRoot); err != nil {
		return fmt.Errorf("build entity index: %w", err)
	}
	fmt.Printf("state: %s\n", a.index.State())
	stats := a.index.Stats()
	fmt.Printf("entities: %d\n", stats.Total)
	return nil
}

func runIndexWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.index.Initialize(cfg.VaultRoot); err != nil {
		return fmt.Errorf("build entity index: %w", err)
	}

	rebuild := func() {
		a.index.MarkStale()
		if err := a.index.Initialize(cfg.VaultRoot); err != nil {
			logging.Get(logging.CategoryIndex).Error("rebuild failed: %v", err)
			return
		}
		logging.Get(logging.CategoryIndex).Info("index rebuilt: %d entities", a.index.Stats().Total)
	}

	w, err := vault.NewWatcher(cfg.VaultRoot, rebuild)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nstopping watcher")
		cancel()
	}()

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", cfg.VaultRoot)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	<-ctx.Done()
	return w.Stop()
}
