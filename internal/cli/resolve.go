package cmd

import (
	"github.com/spf13/cobra"
)

var jsonOutput bool

func newResolveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve <url>...",
		Short: "Resolve one or more URLs and print their metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				cfg := a.cfg.Resolution()
				records, err := a.service.ResolveAll(cmd.Context(), args, cfg)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					if len(records) == 1 {
						return writeJSON(out, records[0])
					}
					return writeJSON(out, records)
				}
				for _, md := range records {
					writeRecord(out, md, cfg)
				}
				return nil
			})
		},
	}
	c.Flags().BoolVar(&jsonOutput, "json", false, "print records as JSON")
	return c
}
