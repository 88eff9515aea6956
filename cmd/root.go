// Package cmd provides the facility-finder command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facility-finder",
		Short: "Search long-term-care facilities enriched with place data and review summaries",
		Long: `facility-finder searches a facility database by location, text and
attributes, merges each match with place data (name, rating, photos, reviews)
and an AI review summary, and caches the assembled results.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
			if logLevel != "" {
				os.Setenv("LOG_LEVEL", logLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newIndexesCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
