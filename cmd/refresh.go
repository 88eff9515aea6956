package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh stale place data once",
		Long: `Look up place data again for facilities whose snapshot is missing or
older than ENRICHMENT_TTL. With the postgres result cache backend, expired
cache entries are purged as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), cmd, batch)
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "Facilities per run (overrides REFRESH_BATCH_SIZE)")

	return cmd
}

func runRefresh(ctx context.Context, cmd *cobra.Command, batch int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if batch > 0 {
		a.refresher.SetBatchSize(batch)
	}
	stats, err := a.refresher.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stale candidates : %d\n", stats.Candidates)
	fmt.Fprintf(out, "Refreshed        : %d\n", stats.Refreshed)
	fmt.Fprintf(out, "Not found        : %d\n", stats.Unresolved)
	fmt.Fprintf(out, "Skipped          : %d\n", stats.Skipped)
	fmt.Fprintf(out, "Cache purged     : %d\n", stats.Purged)
	return nil
}
