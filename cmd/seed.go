package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"facility-finder/models"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load facilities from a JSON file",
		Long: `Upsert facilities from a JSON array into the facility store, keyed by
CMS certification number. Existing place data snapshots are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

// loadSeedFile reads facilities and drops entries without a CCN. Columns
// without a dedicated field are kept in Extra.
func loadSeedFile(path string) ([]models.Facility, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("seed: %w", err)
	}

	var raw []models.EnrichedFacility
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("seed: parse %s: %w", path, err)
	}

	facilities := make([]models.Facility, 0, len(raw))
	dropped := 0
	for _, e := range raw {
		f := e.Facility
		f.Extra = models.ExtraColumns(f.Extra)
		f.CCN = strings.TrimSpace(f.CCN)
		if f.CCN == "" {
			dropped++
			continue
		}
		if f.GeoLocation == nil && (f.Latitude != 0 || f.Longitude != 0) {
			f.GeoLocation = models.NewGeoPoint(f.Latitude, f.Longitude)
		}
		facilities = append(facilities, f)
	}
	return facilities, dropped, nil
}

func runSeed(ctx context.Context, cmd *cobra.Command, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	facilities, dropped, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if dropped > 0 {
		a.logger.Warn("[seed] skipped %d entries without a CCN", dropped)
	}
	if err := a.store.EnsureIndexes(ctx); err != nil {
		return err
	}
	n, err := a.store.BulkUpsert(ctx, facilities)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d facilities from %s\n", n, len(facilities), path)
	return nil
}
