package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/roadworks/internal/config"
	"github.com/talgya/roadworks/internal/engine"
	"github.com/talgya/roadworks/internal/pathfind"
)

func newPathCommand() *cobra.Command {
	var scenarioPath, from, to, mode string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Run one search on a scenario's network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			start, err := parseHex(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseHex(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			m, err := pathfind.ParseMode(mode)
			if err != nil {
				return err
			}

			sc, err := loadScenario(cfg, scenarioPath)
			if err != nil {
				return err
			}
			net, _, _, err := buildNetwork(cfg, sc)
			if err != nil {
				return err
			}

			sim := engine.NewSimulation(net, sc.Name)
			res, err := sim.FindPath(start, end, m)
			if err != nil {
				return err
			}
			if !res.Found {
				fmt.Printf("no %s path from %v to %v (%d nodes expanded)\n", m, start, end, res.Expanded)
				return nil
			}

			fmt.Printf("%s path: %d steps, cost %.2f, %d nodes expanded\n", m, res.Steps(), res.Cost, res.Expanded)
			for i, c := range sim.Coords(res.Nodes) {
				fmt.Printf("  %3d  (%d,%d)\n", i, c.Q, c.R)
			}
			if len(res.Roads) > 0 {
				fmt.Printf("roads: %v\n", res.Roads)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (overrides scenario.path)")
	cmd.Flags().StringVar(&from, "from", "", "start hex as q,r")
	cmd.Flags().StringVar(&to, "to", "", "end hex as q,r")
	cmd.Flags().StringVar(&mode, "mode", pathfind.AvoidRoads.String(), "avoid_roads, avoid_objects or on_road")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
