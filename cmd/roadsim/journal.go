package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/roadworks/internal/journal"
	"github.com/talgya/roadworks/internal/transport"
)

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Read event journals",
	}
	cmd.AddCommand(newJournalDumpCommand())
	return cmd
}

func newJournalDumpCommand() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print a journal file as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(os.Stdout)
			counts := make(map[transport.EventKind]int)
			entries := 0

			err := journal.Read(args[0], func(e journal.Entry) error {
				entries++
				if summary {
					for k, v := range transport.CountByKind(e.Events) {
						counts[k] += v
					}
					return nil
				}
				return enc.Encode(e)
			})
			if err != nil {
				return err
			}

			if summary {
				kinds := make([]string, 0, len(counts))
				for k := range counts {
					kinds = append(kinds, string(k))
				}
				sort.Strings(kinds)
				fmt.Printf("%s ticks with events\n", humanize.Comma(int64(entries)))
				for _, k := range kinds {
					fmt.Printf("  %-8s %s\n", k, humanize.Comma(int64(counts[transport.EventKind(k)])))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print event counts instead of entries")
	return cmd
}
