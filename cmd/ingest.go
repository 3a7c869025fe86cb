package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/loader"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/pipeline"
	"github.com/trafficast/trafficast/internal/preprocess"
	"github.com/trafficast/trafficast/internal/render"
)

var (
	ingestName    string
	ingestNoStore bool

	ingestDateCol        string
	ingestClicksCol      string
	ingestImpressionsCol string
	ingestCTRCol         string
	ingestPositionCol    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv>",
	Short: "Load a daily traffic CSV into the local database",
	Long: `Ingest reads a Search Console performance export (or any CSV with date
and clicks columns), canonicalizes it — sorted by date, duplicates removed,
calendar features derived, outliers flagged — and stores it under a dataset
name for the analyze, forecast, and chart commands.

Pass "-" instead of a file to read JSONL records from stdin.

Column headers are matched case-insensitively. Override the expected names
with the --*-col flags or the "columns" map in trafficast.json.`,
	Example: `  trafficast ingest traffic.csv
  trafficast ingest traffic.csv --name mysite
  trafficast ingest export.csv --date-col day --clicks-col visits
  cat records.jsonl | trafficast ingest - --name mysite
  trafficast ingest traffic.csv --no-store --format jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		start := time.Now()

		path := args[0]
		var recs []model.Record
		var warnings []string
		name := ingestName

		if path == "-" {
			if !pipeline.StdinIsPipe() {
				return fmt.Errorf(`ingest - reads JSONL from stdin, but nothing is piped in`)
			}
			pipeName, piped, err := pipeline.ReadRecords(os.Stdin)
			if err != nil {
				return err
			}
			recs = piped
			if name == "" {
				name = pipeName
			}
		} else {
			cols := deps.Config.Columns
			applyColumnFlags(&cols)
			recs, warnings, err = loader.LoadCSV(path, cols)
			if err != nil {
				return err
			}
		}
		if name == "" {
			name = datasetNameFromPath(path)
		}
		if name == "" {
			return fmt.Errorf("dataset name required (use --name)")
		}

		s, preWarnings, err := preprocess.Canonicalize(name, recs, preprocess.Options{
			OutlierZ: deps.Config.OutlierZ,
		})
		if err != nil {
			return err
		}
		warnings = append(warnings, preWarnings...)

		if !ingestNoStore {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			canonical := make([]model.Record, len(s.Rows))
			for i, r := range s.Rows {
				canonical[i] = r.Record
			}
			src := path
			if src == "-" {
				src = ""
			}
			if err := deps.Store.PutDataset(name, src, canonical); err != nil {
				return fmt.Errorf("storing dataset: %w", err)
			}
		}

		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Ingested %d rows into dataset %q (%s → %s)\n",
				len(s.Rows), name,
				s.Start().Format("2006-01-02"), s.End().Format("2006-01-02"))
		}

		format := resolveFormat(deps.Config.Format)
		result := buildResult(model.KindDataset, "ingest "+path, s, warnings, start, len(s.Rows))
		if format != render.FormatTable || globalFlags.Out != "" {
			if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
				return err
			}
		}
		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

// applyColumnFlags overrides header names from the --*-col flags.
func applyColumnFlags(cols *loader.Columns) {
	if ingestDateCol != "" {
		cols.Date = ingestDateCol
	}
	if ingestClicksCol != "" {
		cols.Clicks = ingestClicksCol
	}
	if ingestImpressionsCol != "" {
		cols.Impressions = ingestImpressionsCol
	}
	if ingestCTRCol != "" {
		cols.CTR = ingestCTRCol
	}
	if ingestPositionCol != "" {
		cols.Position = ingestPositionCol
	}
}

// datasetNameFromPath derives a dataset name from the CSV filename:
// lower-cased basename without extension, spaces collapsed to dashes.
func datasetNameFromPath(path string) string {
	if path == "" || path == "-" {
		return ""
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.ReplaceAll(base, " ", "-")
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestName, "name", "",
		"dataset name (default: CSV filename without extension)")
	ingestCmd.Flags().BoolVar(&ingestNoStore, "no-store", false,
		"parse and canonicalize without writing to the local database")
	ingestCmd.Flags().StringVar(&ingestDateCol, "date-col", "", "CSV header for the date column")
	ingestCmd.Flags().StringVar(&ingestClicksCol, "clicks-col", "", "CSV header for the clicks column")
	ingestCmd.Flags().StringVar(&ingestImpressionsCol, "impressions-col", "", "CSV header for the impressions column")
	ingestCmd.Flags().StringVar(&ingestCTRCol, "ctr-col", "", "CSV header for the CTR column")
	ingestCmd.Flags().StringVar(&ingestPositionCol, "position-col", "", "CSV header for the position column")
}
