package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vaultlink/internal/graphhealth"
	"vaultlink/internal/match"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Compute and track vault graph topology health",
}

var graphHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Compute current graph health metrics and snapshot them",
	RunE:  runGraphHealth,
}

func init() {
	graphCmd.AddCommand(graphHealthCmd)
}

func runGraphHealth(cmd *cobra.Command, args []string) error {
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

	notes, err := scanNoteLinks(cfg.VaultRoot, cfg.ExcludedFolders)
	if err != nil {
		return fmt.Errorf("scan vault for links: %w", err)
	}

	metrics, err := graphhealth.Compute(context.Background(), notes, a.index.Stats().Total)
	if err != nil {
		return fmt.Errorf("compute graph health: %w", err)
	}

	fmt.Printf("notes:                  %d\n", metrics.NoteCount)
	fmt.Printf("links:                  %d\n", metrics.LinkCount)
	fmt.Printf("link density:           %.3f\n", metrics.LinkDensity)
	fmt.Printf("orphans:                %d (%.3f)\n", metrics.OrphanCount, metrics.OrphanRate)
	fmt.Printf("entity coverage:        %.3f\n", metrics.EntityCoverage)
	fmt.Printf("connectedness:          %.3f\n", metrics.Connectedness)
	fmt.Printf("clusters:               %d\n", metrics.ClusterCount)
	fmt.Printf("gini coefficient:       %.3f\n", metrics.GiniCoefficient)
	fmt.Printf("clustering coefficient: %.3f\n", metrics.ClusteringCoefficient)
	fmt.Printf("avg path length:        %.3f\n", metrics.AvgPathLength)
	fmt.Printf("degree stddev:          %.3f\n", metrics.DegreeCentralityStdDev)
	fmt.Printf("betweenness top-5%%:     %.3f\n", metrics.BetweennessTop5PctShare)

	now := time.Now().UTC()
	snapshots := map[string]float64{
		"note_count":                  float64(metrics.NoteCount),
		"link_count":                  float64(metrics.LinkCount),
		"link_density":                metrics.LinkDensity,
		"orphan_rate":                 metrics.OrphanRate,
		"entity_coverage":             metrics.EntityCoverage,
		"connectedness":               metrics.Connectedness,
		"gini_coefficient":            metrics.GiniCoefficient,
		"clustering_coefficient":      metrics.ClusteringCoefficient,
		"avg_path_length":             metrics.AvgPathLength,
		"degree_centrality_stddev":    metrics.DegreeCentralityStdDev,
		"betweenness_top5pct_share":   metrics.BetweennessTop5PctShare,
	}
	for metric, value := range snapshots {
		if err := a.observe.RecordGraphSnapshot(now, metric, value, ""); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to snapshot %s: %v\n", metric, err)
		}
	}
	return nil
}

// scanNoteLinks walks root for Markdown files outside excludedFolders and
// extracts each note's outgoing wikilink targets, the same way the engine
// reads already-linked entities out of note text.
func scanNoteLinks(root string, excludedFolders []string) ([]graphhealth.Note, error) {
	excluded := make(map[string]bool, len(excludedFolders))
	for _, f := range excludedFolders {
		excluded[strings.ToLower(f)] = true
	}

	var notes []graphhealth.Note
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if excluded[strings.ToLower(info.Name())] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		notes = append(notes, graphhealth.Note{
			Path:  rel,
			Links: match.ExtractWikilinks(string(data)),
		})
		return nil
	})
	return notes, err
}
