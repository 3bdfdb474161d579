package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "stats",
		Short: "Print cache and icon store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				stats := a.service.Stats()
				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, stats)
				}
				titleColor.Fprintln(out, "Icon store")
				fmt.Fprintf(out, "  backend:  %s\n", a.cfg.IconBackend())
				fmt.Fprintf(out, "  entries:  %d\n", stats.Icon.Entries)
				if stats.Icon.OldestTimestamp > 0 {
					fmt.Fprintf(out, "  oldest:   %d\n", stats.Icon.OldestTimestamp)
				}
				titleColor.Fprintln(out, "Result cache")
				fmt.Fprintf(out, "  capacity: %d\n", stats.Cache.Capacity)
				fmt.Fprintf(out, "  entries:  %d\n", stats.Cache.Size)
				return nil
			})
		},
	}
	c.Flags().BoolVar(&jsonOutput, "json", false, "print statistics as JSON")
	return c
}
