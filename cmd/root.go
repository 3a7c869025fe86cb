// Package cmd implements the trafficast CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/app"
	"github.com/trafficast/trafficast/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format  string
	Out     string
	DBPath  string
	Quiet   bool
	Verbose bool
}

// rootCmd is the base command. Running `trafficast` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "trafficast",
	Short: "trafficast — website traffic analytics and forecasting CLI",
	Long: `trafficast ingests daily website-traffic exports (Search Console CSVs),
analyzes them, and forecasts future clicks with an additive regression model.

Quick start:
  trafficast ingest traffic.csv --name mysite   # load a CSV into the local store
  trafficast analyze summary mysite             # descriptive statistics
  trafficast forecast mysite --horizon 90       # 90-day forecast with bounds
  trafficast chart forecast mysite -o fc.png    # export the forecast chart`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.DBPath != "" {
		cfg.DBPath = globalFlags.DBPath
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.DBPath, "db", "",
		"path to the local database (overrides env TRAFFICAST_DB_PATH and trafficast.json)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
}
