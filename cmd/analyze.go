package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/analyze"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a stored traffic dataset",
	Long: `Analyze operators read a dataset from the local database and print results.

Pass "-" as the dataset to read JSONL records from stdin instead:

  trafficast store export mysite | trafficast analyze summary -`,
}

// runAnalysis loads the dataset, applies fn, and renders the result.
// Shared by every analyze subcommand.
func runAnalysis(cmd *cobra.Command, dataset, kind, command string,
	fn func(s *model.Series) (interface{}, int, error)) error {

	deps, err := buildDeps()
	if err != nil {
		return err
	}
	defer deps.Close()
	start := time.Now()

	s, warnings, err := loadSeries(deps, dataset)
	if err != nil {
		return err
	}

	data, items, err := fn(s)
	if err != nil {
		return err
	}

	format := resolveFormat(deps.Config.Format)
	result := buildResult(kind, command+" "+dataset, data, warnings, start, items)
	if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
		return err
	}
	render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
	return nil
}

// ─── analyze summary ─────────────────────────────────────────────────────────

var analyzeSummaryCmd = &cobra.Command{
	Use:   "summary <dataset>",
	Short: "Descriptive statistics: count, mean, std, quartiles, CV, skew",
	Example: `  trafficast analyze summary mysite
  trafficast analyze summary mysite --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindSummary, "analyze summary",
			func(s *model.Series) (interface{}, int, error) {
				return analyze.Summarize(s), len(s.Rows), nil
			})
	},
}

// ─── analyze weekly / monthly ────────────────────────────────────────────────

var analyzeWeeklyCmd = &cobra.Command{
	Use:   "weekly <dataset>",
	Short: "Average clicks by weekday with relative strength",
	Example: `  trafficast analyze weekly mysite
  trafficast analyze weekly mysite --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindWeeklyPattern, "analyze weekly",
			func(s *model.Series) (interface{}, int, error) {
				p := analyze.WeeklyPattern(s)
				return p, len(p), nil
			})
	},
}

var analyzeMonthlyCmd = &cobra.Command{
	Use:     "monthly <dataset>",
	Short:   "Average clicks by calendar month with relative strength",
	Example: `  trafficast analyze monthly mysite`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindMonthlyPattern, "analyze monthly",
			func(s *model.Series) (interface{}, int, error) {
				p := analyze.MonthlyPattern(s)
				return p, len(p), nil
			})
	},
}

// ─── analyze growth ──────────────────────────────────────────────────────────

var analyzeGrowthCmd = &cobra.Command{
	Use:     "growth <dataset>",
	Short:   "First-vs-last-30-days growth and average monthly growth",
	Example: `  trafficast analyze growth mysite`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindGrowth, "analyze growth",
			func(s *model.Series) (interface{}, int, error) {
				g, err := analyze.GrowthMetrics(s)
				return g, g.Months, err
			})
	},
}

// ─── analyze anomalies ───────────────────────────────────────────────────────

var analyzeAnomaliesThreshold float64

var analyzeAnomaliesCmd = &cobra.Command{
	Use:   "anomalies <dataset>",
	Short: "Days whose clicks deviate beyond the z-score threshold",
	Example: `  trafficast analyze anomalies mysite
  trafficast analyze anomalies mysite --threshold 2.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindAnomalies, "analyze anomalies",
			func(s *model.Series) (interface{}, int, error) {
				a := analyze.Anomalies(s, analyzeAnomaliesThreshold)
				return a, len(a), nil
			})
	},
}

// ─── analyze seasonality ─────────────────────────────────────────────────────

var analyzeSeasonalityCmd = &cobra.Command{
	Use:     "seasonality <dataset>",
	Short:   "Weekly and monthly seasonality-strength indicators",
	Example: `  trafficast analyze seasonality mysite`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args[0], model.KindSeasonality, "analyze seasonality",
			func(s *model.Series) (interface{}, int, error) {
				return analyze.SeasonalityStrength(s), len(s.Rows), nil
			})
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeSummaryCmd)
	analyzeCmd.AddCommand(analyzeWeeklyCmd)
	analyzeCmd.AddCommand(analyzeMonthlyCmd)
	analyzeCmd.AddCommand(analyzeGrowthCmd)
	analyzeCmd.AddCommand(analyzeAnomaliesCmd)
	analyzeCmd.AddCommand(analyzeSeasonalityCmd)

	analyzeAnomaliesCmd.Flags().Float64Var(&analyzeAnomaliesThreshold, "threshold", 3.0,
		"absolute z-score above which a day is anomalous")
}
