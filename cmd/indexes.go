package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the facility store indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if err := a.store.EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Indexes are in place")
			return nil
		},
	}
}
