package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vaultlink/internal/engine"
)

var suggestDetail bool
var suggestMax int

var suggestCmd = &cobra.Command{
	Use:   "suggest <note.md>",
	Short: "Suggest wikilinks for a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestDetail, "detail", false, "print the full layer breakdown for each suggestion")
	suggestCmd.Flags().IntVar(&suggestMax, "max", 0, "cap the number of suggestions (0 uses the strictness profile's default)")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	notePath := args[0]
	text, err := os.ReadFile(notePath)
	if err != nil {
		return fmt.Errorf("read note: %w", err)
	}

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

	eng, err := a.newEngine()
	if err != nil {
		return err
	}

	result, err := eng.Suggest(context.Background(), string(text), engine.Options{
		Strictness:     a.strictnessMode(),
		MaxSuggestions: suggestMax,
		NotePath:       notePath,
		Detail:         suggestDetail,
	})
	if err != nil {
		return fmt.Errorf("suggest: %w", err)
	}

	if result.Warning != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", *result.Warning)
	}
	if len(result.Suggestions) == 0 {
		fmt.Println("no suggestions")
		return nil
	}
	fmt.Println(result.Suffix)
	if suggestDetail {
		for _, d := range result.Detailed {
			fmt.Printf("  %-20s total=%.2f %+v\n", d.Entity, d.TotalScore, d.Breakdown)
		}
	}
	return nil
}
