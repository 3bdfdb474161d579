package cmd

import (
	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the persistent icon cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.service.ClearAll(cmd.Context()); err != nil {
					return err
				}
				warnColor.Fprintln(cmd.OutOrStdout(), "icon cache cleared")
				return nil
			})
		},
	}
}
