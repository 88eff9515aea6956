package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"facility-finder/query"
	"facility-finder/services"
	"facility-finder/storage"
)

type searchFlags struct {
	text      string
	lat       float64
	lng       float64
	radiusKm  float64
	city      string
	state     string
	zip       string
	bedsMin   int
	bedsMax   int
	ownership []string
	ratingMin float64
	place     string
	from      string
	to        string

	variant    string
	csvPath    string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Run a facility search and print a report",
		Long: `Run one search through the full pipeline and print a summary report.
Use --json for the raw results or --csv to export them.

Examples:
  facility-finder search "Springfield"
  facility-finder search --lat 34.05 --lng -118.24 --radius 10 --variant with-reviews
  facility-finder search --from Austin --to Dallas --rating-min 4 --csv out.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.text = args[0]
			}
			return runSearch(cmd.Context(), cmd.Flags(), &f)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&f.lat, "lat", 0, "Latitude of the search center")
	fs.Float64Var(&f.lng, "lng", 0, "Longitude of the search center")
	fs.Float64Var(&f.radiusKm, "radius", 0, "Search radius in km")
	fs.StringVar(&f.city, "city", "", "City filter")
	fs.StringVar(&f.state, "state", "", "State name or code")
	fs.StringVar(&f.zip, "zip", "", "Postal code")
	fs.IntVar(&f.bedsMin, "beds-min", 0, "Minimum certified beds")
	fs.IntVar(&f.bedsMax, "beds-max", 0, "Maximum certified beds")
	fs.StringSliceVar(&f.ownership, "ownership", nil, "Ownership types (comma separated)")
	fs.Float64Var(&f.ratingMin, "rating-min", 0, "Minimum overall rating")
	fs.StringVar(&f.place, "place", "", "Place name to search around (needs --radius)")
	fs.StringVar(&f.from, "from", "", "Route start")
	fs.StringVar(&f.to, "to", "", "Route end")
	fs.StringVar(&f.variant, "variant", string(services.VariantFiltered), "basic, with-reviews or filtered")
	fs.StringVar(&f.csvPath, "csv", "", "Write results to this CSV file")
	fs.BoolVar(&f.jsonOutput, "json", false, "Print results as JSON")

	return cmd
}

// rawQuery maps the flags that were actually set onto a RawQuery.
func (f *searchFlags) rawQuery(fs *pflag.FlagSet) query.RawQuery {
	raw := query.RawQuery{
		Text:         f.text,
		City:         f.city,
		State:        f.state,
		Zip:          f.zip,
		Ownership:    f.ownership,
		LocationName: f.place,
		RouteFrom:    f.from,
		RouteTo:      f.to,
	}
	if fs.Changed("lat") {
		raw.Lat = &f.lat
	}
	if fs.Changed("lng") {
		raw.Lng = &f.lng
	}
	if fs.Changed("radius") {
		raw.RadiusKm = &f.radiusKm
	}
	if fs.Changed("beds-min") {
		raw.BedsMin = &f.bedsMin
	}
	if fs.Changed("beds-max") {
		raw.BedsMax = &f.bedsMax
	}
	if fs.Changed("rating-min") {
		raw.RatingMin = &f.ratingMin
	}
	return raw
}

func parseVariant(s string) (services.Variant, error) {
	switch v := services.Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case services.VariantBasic, services.VariantWithReviews, services.VariantFiltered:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want basic, with-reviews or filtered)", s)
	}
}

func runSearch(ctx context.Context, fs *pflag.FlagSet, f *searchFlags) error {
	variant, err := parseVariant(f.variant)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	results, err := a.search.Search(ctx, f.rawQuery(fs), variant)
	if err != nil {
		return err
	}

	if f.csvPath != "" {
		w, err := storage.NewCSVWriter(f.csvPath)
		if err != nil {
			return err
		}
		if err := w.Write(results); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		a.logger.Info("[search] %d results written to %s", len(results), f.csvPath)
	}

	if f.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	reports := services.NewReportService(a.logger)
	reports.Print(os.Stdout, reports.Generate(results))
	return nil
}
