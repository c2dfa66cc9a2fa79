package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/roadworks/internal/config"
	"github.com/talgya/roadworks/internal/persistence"
)

func newStatsCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "stats [run-id]",
		Short: "List stored runs, or the busiest roads of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				dbPath = cfg.Database.Path
			}
			if dbPath == "" {
				return fmt.Errorf("no database: pass --db or set database.path")
			}
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				runs, err := db.Runs()
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				for _, r := range runs {
					delivered, _ := db.GetMeta(r.ID, "delivered")
					fmt.Printf("%s  %-16s  radius %-3d  started %s  delivered %s\n",
						r.ID, r.Scenario, r.Radius, humanize.Time(r.StartedAt), delivered)
				}
				return nil
			}

			roads, err := db.BusiestRoads(args[0], limit)
			if err != nil {
				return fmt.Errorf("busiest roads: %w", err)
			}
			fmt.Printf("%-6s %-8s %s\n", "road", "workers", "mean congestion")
			for _, r := range roads {
				fmt.Printf("%-6d %-8d %.2f\n", r.RoadID, r.Workers, r.Congestion)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "stats database (default database.path)")
	cmd.Flags().IntVar(&limit, "limit", 10, "roads to show")
	return cmd
}
