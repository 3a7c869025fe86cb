package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/forecast"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/pipeline"
	"github.com/trafficast/trafficast/internal/render"
)

var (
	forecastHorizon        int
	forecastGrowth         string
	forecastSeasonality    string
	forecastIntervalWidth  float64
	forecastValidationDays int
	forecastChangepoints   int
	forecastNoSave         bool
	forecastModelSummary   bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <dataset>",
	Short: "Forecast future daily clicks with uncertainty bounds",
	Long: `Forecast fits an additive regression model — trend with automatic
changepoints plus weekly, monthly, and yearly seasonal terms — to the
dataset's click history.

The model is first fitted on all but the last validation-days rows and
scored on that holdout (MAE, MAPE, RMSE, interval coverage), then refitted
on the full history to produce the future predictions. Runs are saved to
the local database for later inspection via 'trafficast store runs'.

Pass "-" as the dataset to read JSONL records from stdin.`,
	Example: `  trafficast forecast mysite
  trafficast forecast mysite --horizon 180 --interval-width 0.8
  trafficast forecast mysite --growth flat --seasonality-mode additive
  trafficast forecast mysite --format jsonl > predictions.jsonl`,
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

		cfg := deps.Config.ForecastConfig()
		applyForecastFlags(&cfg)

		m, err := forecast.New(cfg)
		if err != nil {
			return err
		}
		if err := m.Fit(s); err != nil {
			return err
		}
		fr, err := m.Predict(forecastHorizon)
		if err != nil {
			return err
		}
		fr.Dataset = s.Name

		if !forecastNoSave && args[0] != "-" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			if _, err := deps.Store.PutRun(fr); err != nil {
				warnings = append(warnings, fmt.Sprintf("saving run: %v", err))
			}
		}

		out := cmd.OutOrStdout()
		format := resolveFormat(deps.Config.Format)

		// The holdout banner is chrome, not data: keep it off piped output.
		if v := fr.Validation; v != nil && !deps.Config.Quiet && format == render.FormatTable && pipeline.IsTTY() {
			fmt.Fprintf(out, "Holdout: %d train / %d test rows  •  MAE %.1f  •  MAPE %.1f%%  •  RMSE %.1f  •  coverage %.0f%%\n\n",
				v.TrainRows, v.TestRows, v.MAE, v.MAPE, v.RMSE, v.Coverage)
		}

		result := buildResult(model.KindPredictions, "forecast "+args[0], fr.Future, warnings, start, len(fr.Future))
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}

		if !deps.Config.Quiet && format == render.FormatTable && pipeline.IsTTY() {
			histAvg := 0.0
			for _, r := range s.Rows {
				histAvg += r.Clicks
			}
			histAvg /= float64(len(s.Rows))
			predAvg := 0.0
			for _, p := range fr.Future {
				predAvg += float64(p.Predicted)
			}
			predAvg /= float64(len(fr.Future))
			line := fmt.Sprintf("\n%d days of history (%s → %s)  •  avg %.1f clicks/day  •  forecast avg %.1f",
				len(s.Rows), s.Start().Format("2006-01-02"), s.End().Format("2006-01-02"), histAvg, predAvg)
			if histAvg > 0 {
				line += fmt.Sprintf(" (%+.1f%%)", (predAvg-histAvg)/histAvg*100)
			}
			fmt.Fprintln(out, line)
		}

		if forecastModelSummary {
			fmt.Fprintln(out)
			if err := m.WriteModelSummary(out); err != nil {
				return err
			}
		}

		render.PrintFooter(out, result, deps.Config.Verbose)
		return nil
	},
}

// ─── forecast validate ────────────────────────────────────────────────────────

var forecastValidateCmd = &cobra.Command{
	Use:   "validate <dataset>",
	Short: "Score the model on a holdout without producing a forecast",
	Example: `  trafficast forecast validate mysite
  trafficast forecast validate mysite --validation-days 90`,
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

		cfg := deps.Config.ForecastConfig()
		applyForecastFlags(&cfg)

		m, err := forecast.New(cfg)
		if err != nil {
			return err
		}
		if err := m.Fit(s); err != nil {
			return err
		}
		v := m.Validation()
		if v == nil {
			return fmt.Errorf("validation skipped: series too short for a %d-day holdout", cfg.ValidationDays)
		}

		format := resolveFormat(deps.Config.Format)
		result := buildResult(model.KindValidation, "forecast validate "+args[0], v, warnings, start, v.TestRows)
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}
		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

// applyForecastFlags overrides model config from CLI flags.
// Flags beat trafficast.json which beats the built-in defaults.
func applyForecastFlags(cfg *forecast.Config) {
	if forecastGrowth != "" {
		cfg.Growth = forecastGrowth
	}
	if forecastSeasonality != "" {
		cfg.SeasonalityMode = forecastSeasonality
	}
	if forecastIntervalWidth > 0 {
		cfg.IntervalWidth = forecastIntervalWidth
	}
	if forecastValidationDays > 0 {
		cfg.ValidationDays = forecastValidationDays
	}
	if forecastChangepoints > 0 {
		cfg.Changepoints = forecastChangepoints
	}
}

func registerForecastFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&forecastGrowth, "growth", "",
		"trend growth: linear|flat (default: linear)")
	cmd.Flags().StringVar(&forecastSeasonality, "seasonality-mode", "",
		"seasonality mode: additive|multiplicative (default: multiplicative)")
	cmd.Flags().Float64Var(&forecastIntervalWidth, "interval-width", 0,
		"credible-interval width in (0,1) (default: 0.95)")
	cmd.Flags().IntVar(&forecastValidationDays, "validation-days", 0,
		"holdout tail length in days (default: 60)")
	cmd.Flags().IntVar(&forecastChangepoints, "changepoints", 0,
		"automatic trend changepoint candidates (default: 25)")
}

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastValidateCmd)

	forecastCmd.Flags().IntVar(&forecastHorizon, "horizon", 90,
		"days to forecast past the last observed date")
	forecastCmd.Flags().BoolVar(&forecastNoSave, "no-save", false,
		"don't save the run to the local database")
	forecastCmd.Flags().BoolVar(&forecastModelSummary, "model-summary", false,
		"print the fitted model's coefficient tables after the forecast")
	registerForecastFlags(forecastCmd)
	registerForecastFlags(forecastValidateCmd)
}
