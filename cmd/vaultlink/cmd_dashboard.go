package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dashboardDays int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show top suggested entities and per-layer activity over a lookback window",
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardDays, "days", 30, "lookback window in days")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.observe.ExtendedDashboardData(dashboardDays)
	if err != nil {
		return fmt.Errorf("load dashboard data: %w", err)
	}

	fmt.Println("top entities:")
	for _, ef := range data.TopEntities {
		fmt.Printf("  %-20s %d suggestion events\n", ef.Entity, ef.Count)
	}

	fmt.Println("layer activity:")
	for layer, status := range data.LayerStatuses {
		fmt.Printf("  %-20s %s\n", layer, status)
	}
	return nil
}
