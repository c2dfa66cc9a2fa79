package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/roadworks/internal/config"
	"github.com/talgya/roadworks/internal/scenario"
)

func newScenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Scenario file tools",
	}
	cmd.AddCommand(newScenarioCheckCommand())
	return cmd
}

func newScenarioCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate scenarios by building them on a fresh grid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err == nil {
					var sum scenario.Summary
					_, _, sum, err = buildNetwork(cfg, sc)
					if err == nil {
						fmt.Printf("ok    %s (%s): %d flags, %d roads, %d workers, %d items\n",
							path, sc.Name, sum.Flags, sum.Roads, sum.Workers, sum.Items)
						continue
					}
				}
				failed++
				fmt.Printf("FAIL  %s: %v\n", path, err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}
}
