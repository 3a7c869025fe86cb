package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/pipeline"
	"github.com/trafficast/trafficast/internal/render"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the local database",
	Long: `Commands for inspecting datasets and forecast runs accumulated in the
local database.

Use 'trafficast ingest <file.csv>' to add datasets.
Use 'trafficast forecast <dataset>' to add runs.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets in the local database",
	Example: `  trafficast store list
  trafficast store list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		metas, err := deps.Store.ListDatasets()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No datasets in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: trafficast ingest <file.csv>")
			return nil
		}

		printSimpleTable(cmd.OutOrStdout(), []string{"NAME", "ROWS", "START", "END", "INGESTED AT", "SOURCE"}, func(add func(...string)) {
			for _, m := range metas {
				ingested := ""
				if !m.IngestedAt.IsZero() {
					ingested = m.IngestedAt.Format("2006-01-02 15:04")
				}
				add(m.Name, fmt.Sprintf("%d", m.Rows), m.Start, m.End, ingested, m.SourcePath)
			}
		})
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d datasets  •  %s\n", len(metas), deps.Store.Path())
		return nil
	},
}

// ─── store show ───────────────────────────────────────────────────────────────

var storeShowCmd = &cobra.Command{
	Use:   "show <dataset>",
	Short: "Print a stored dataset's canonical rows",
	Example: `  trafficast store show mysite
  trafficast store show mysite --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		start := time.Now()

		s, warnings, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		result := buildResult(model.KindDataset, "store show "+args[0], s, warnings, start, len(s.Rows))
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}
		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

// ─── store export ─────────────────────────────────────────────────────────────

var storeExportCmd = &cobra.Command{
	Use:   "export <dataset>",
	Short: "Write a dataset's raw records as JSONL for piping",
	Example: `  trafficast store export mysite > records.jsonl
  trafficast store export mysite | trafficast analyze summary -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		recs, _, ok, err := deps.Store.GetDataset(args[0])
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return fmt.Errorf("no dataset %q in local database", args[0])
		}

		w, closeFn, err := outputWriter(os.Stdout)
		if err != nil {
			return err
		}
		defer closeFn()
		return pipeline.WriteJSONL(w, args[0], recs)
	},
}

// ─── store runs ───────────────────────────────────────────────────────────────

var storeRunsCmd = &cobra.Command{
	Use:   "runs [dataset]",
	Short: "List saved forecast runs",
	Example: `  trafficast store runs
  trafficast store runs mysite`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		dataset := ""
		if len(args) == 1 {
			dataset = args[0]
		}
		runs, err := deps.Store.ListRuns(dataset)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No forecast runs in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: trafficast forecast <dataset>")
			return nil
		}

		printSimpleTable(cmd.OutOrStdout(), []string{"DATASET", "GENERATED AT", "HORIZON", "MAE", "MAPE", "COVERAGE"}, func(add func(...string)) {
			for _, r := range runs {
				mae, mape, cov := ".", ".", "."
				if v := r.Validation.Metrics(); v != nil {
					mae = fmt.Sprintf("%.1f", v.MAE)
					mape = fmt.Sprintf("%.1f%%", v.MAPE)
					cov = fmt.Sprintf("%.0f%%", v.Coverage)
				}
				add(r.Dataset, r.GeneratedAt.Format("2006-01-02 15:04"),
					fmt.Sprintf("%d", r.Horizon), mae, mape, cov)
			}
		})
		return nil
	},
}

// ─── store delete ─────────────────────────────────────────────────────────────

var storeDeleteCmd = &cobra.Command{
	Use:     "delete <dataset>",
	Short:   "Remove a dataset from the local database",
	Example: `  trafficast store delete mysite`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if _, _, ok, err := deps.Store.GetDataset(args[0]); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no dataset %q in local database", args[0])
		}
		if err := deps.Store.DeleteDataset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted dataset %q\n", args[0])
		return nil
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show bucket-level storage stats",
	Example: `  trafficast store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ENTRIES", "BYTES"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), fmt.Sprintf("%d", s.Bytes))
			}
		})
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", deps.Store.Path())
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var storeClearYes bool

var storeClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Delete all datasets and runs from the local database",
	Example: `  trafficast store clear --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.ClearAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared local database")
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeRunsCmd)
	storeCmd.AddCommand(storeDeleteCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)

	storeClearCmd.Flags().BoolVar(&storeClearYes, "yes", false,
		"confirm deletion")
}
