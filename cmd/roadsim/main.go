// Command roadsim builds a road network from a scenario file and runs its
// haulers tick by tick, serving the state over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "roadsim",
		Short: "Road logistics simulation",
		Long: `roadsim lays out flags, roads and buildings on a hex grid and lets
workers carry items across the network.

Examples:
  roadsim run --scenario scenarios/chain.yaml
  roadsim run --scenario scenarios/chain.yaml --ticks 5000
  roadsim path --scenario scenarios/chain.yaml --from -6,0 --to 6,0 --mode on_road
  roadsim scenario check scenarios/chain.yaml
  roadsim journal dump journal/events-2026-01-01-00.jsonl.zst
  roadsim stats --db data/roadworks.db`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or ./configs/config.yaml)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newPathCommand())
	root.AddCommand(newScenarioCommand())
	root.AddCommand(newJournalCommand())
	root.AddCommand(newStatsCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
