package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/analyze"
	"github.com/trafficast/trafficast/internal/app"
	"github.com/trafficast/trafficast/internal/chart"
	"github.com/trafficast/trafficast/internal/forecast"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/transform"
	"github.com/trafficast/trafficast/internal/util"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render traffic charts to the terminal or to image files",
	Long: `Chart commands read a dataset from the local database and render it.

The term and bars commands draw ASCII charts in the terminal; forecast,
patterns, trend, and histogram export PNG files; dashboard exports an
interactive HTML page of the fitted model.

  trafficast chart term mysite
  trafficast chart forecast mysite -o forecast.png
  trafficast chart export mysite --dir charts/`,
}

// chartSize returns the configured export size.
func chartSize(deps *app.Deps) chart.Size {
	return chart.Size{
		WidthPx:  deps.Config.Chart.WidthPx,
		HeightPx: deps.Config.Chart.HeightPx,
	}
}

// fitForecast runs the configured model over the series for chart commands.
func fitForecast(deps *app.Deps, s *model.Series, horizon int) (*forecast.Model, *model.ForecastResult, error) {
	cfg := deps.Config.ForecastConfig()
	m, err := forecast.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Fit(s); err != nil {
		return nil, nil, err
	}
	fr, err := m.Predict(horizon)
	if err != nil {
		return nil, nil, err
	}
	fr.Dataset = s.Name
	return m, fr, nil
}

func announceChart(cmd *cobra.Command, deps *app.Deps, path string) {
	if !deps.Config.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	}
}

// ─── chart term ──────────────────────────────────────────────────────────────

var (
	chartTermWidth  int
	chartTermHeight int
	chartTermTitle  string
	chartTermAfter  string
	chartTermBefore string
)

var chartTermCmd = &cobra.Command{
	Use:   "term <dataset>",
	Short: "ASCII line chart of daily clicks in the terminal",
	Long: `Renders the click series as a line chart with Y-axis tick labels and
X-axis date labels. Width auto-detects from $COLUMNS (falls back to 80).

--after and --before restrict the plotted range; both bounds are exclusive.`,
	Example: `  trafficast chart term mysite
  trafficast chart term mysite --height 16 --title "Daily Clicks"
  trafficast chart term mysite --after 2025-12-31`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		pts := s.ClickPoints()
		if chartTermAfter != "" || chartTermBefore != "" {
			var opts transform.FilterOptions
			if chartTermAfter != "" {
				if opts.After, err = util.ParseDate(chartTermAfter); err != nil {
					return err
				}
			}
			if chartTermBefore != "" {
				if opts.Before, err = util.ParseDate(chartTermBefore); err != nil {
					return err
				}
			}
			pts = transform.Filter(pts, opts)
		}

		title := chartTermTitle
		if title == "" {
			title = s.Name
		}
		return chart.Plot(os.Stdout, pts, chart.PlotOptions{
			Width:  chartTermWidth,
			Height: chartTermHeight,
			Title:  title,
		})
	},
}

// ─── chart bars ──────────────────────────────────────────────────────────────

var (
	chartBarsBy    string
	chartBarsWidth int
)

var chartBarsCmd = &cobra.Command{
	Use:   "bars <dataset>",
	Short: "ASCII bar chart of the weekly or monthly pattern",
	Long: `Renders the relative-strength pattern as horizontal bars. Negative
strengths (below-average buckets) extend left from a zero baseline.`,
	Example: `  trafficast chart bars mysite
  trafficast chart bars mysite --by month`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		var entries []analyze.PatternEntry
		var title string
		switch chartBarsBy {
		case "weekday":
			entries = analyze.WeeklyPattern(s)
			title = s.Name + " — clicks by weekday (% vs average)"
		case "month":
			entries = analyze.MonthlyPattern(s)
			title = s.Name + " — clicks by month (% vs average)"
		default:
			return fmt.Errorf("unknown --by %q (use weekday or month)", chartBarsBy)
		}

		bars := make([]chart.BarEntry, 0, len(entries))
		for _, e := range entries {
			if e.Days == 0 {
				continue
			}
			bars = append(bars, chart.BarEntry{Label: e.Label, Value: e.RelStrength})
		}
		return chart.Bars(os.Stdout, title, bars, chart.BarOptions{
			Width:  chartBarsWidth,
			Suffix: "%",
		})
	},
}

// ─── chart forecast ──────────────────────────────────────────────────────────

var (
	chartForecastOut     string
	chartForecastHorizon int
)

var chartForecastCmd = &cobra.Command{
	Use:   "forecast <dataset>",
	Short: "Export the forecast chart (history, prediction, bounds) as PNG",
	Example: `  trafficast chart forecast mysite -o forecast.png
  trafficast chart forecast mysite --horizon 180 -o fc.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}
		_, fr, err := fitForecast(deps, s, chartForecastHorizon)
		if err != nil {
			return err
		}

		path := chartForecastOut
		if path == "" {
			path = s.Name + "_forecast.png"
		}
		if err := chart.SaveForecast(path, s, fr, chartSize(deps)); err != nil {
			return err
		}
		announceChart(cmd, deps, path)
		return nil
	},
}

// ─── chart patterns ──────────────────────────────────────────────────────────

var (
	chartPatternsOut string
	chartPatternsBy  string
)

var chartPatternsCmd = &cobra.Command{
	Use:   "patterns <dataset>",
	Short: "Export the weekly or monthly pattern bar chart as PNG",
	Example: `  trafficast chart patterns mysite -o weekly.png
  trafficast chart patterns mysite --by month -o monthly.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		var entries []analyze.PatternEntry
		var title string
		switch chartPatternsBy {
		case "weekday":
			entries = analyze.WeeklyPattern(s)
			title = s.Name + " — average clicks by weekday"
		case "month":
			entries = analyze.MonthlyPattern(s)
			title = s.Name + " — average clicks by month"
		default:
			return fmt.Errorf("unknown --by %q (use weekday or month)", chartPatternsBy)
		}

		bars := make([]chart.BarEntry, len(entries))
		for i, e := range entries {
			bars[i] = chart.BarEntry{Label: e.Label, Value: e.AvgClicks}
		}

		path := chartPatternsOut
		if path == "" {
			path = fmt.Sprintf("%s_%s.png", s.Name, chartPatternsBy)
		}
		if err := chart.SavePattern(path, title, "Average Clicks", bars, chartSize(deps)); err != nil {
			return err
		}
		announceChart(cmd, deps, path)
		return nil
	},
}

// ─── chart trend ─────────────────────────────────────────────────────────────

var chartTrendOut string

var chartTrendCmd = &cobra.Command{
	Use:     "trend <dataset>",
	Short:   "Export the growth-trend chart (daily + 30-day mean) as PNG",
	Example: `  trafficast chart trend mysite -o trend.png`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		raw := s.ClickPoints()
		rolling, err := transform.Roll(raw, 30, 1)
		if err != nil {
			return err
		}

		path := chartTrendOut
		if path == "" {
			path = s.Name + "_trend.png"
		}
		title := s.Name + " — growth trend"
		if err := chart.SaveTrend(path, title, raw, rolling, chartSize(deps)); err != nil {
			return err
		}
		announceChart(cmd, deps, path)
		return nil
	},
}

// ─── chart histogram ─────────────────────────────────────────────────────────

var (
	chartHistogramOut  string
	chartHistogramBins int
)

var chartHistogramCmd = &cobra.Command{
	Use:     "histogram <dataset>",
	Short:   "Export the daily-clicks distribution histogram as PNG",
	Example: `  trafficast chart histogram mysite -o dist.png --bins 40`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		path := chartHistogramOut
		if path == "" {
			path = s.Name + "_histogram.png"
		}
		title := s.Name + " — daily clicks distribution"
		if err := chart.SaveHistogram(path, title, s.Clicks(), chartHistogramBins, chartSize(deps)); err != nil {
			return err
		}
		announceChart(cmd, deps, path)
		return nil
	},
}

// ─── chart dashboard ─────────────────────────────────────────────────────────

var (
	chartDashboardOut     string
	chartDashboardHorizon int
)

var chartDashboardCmd = &cobra.Command{
	Use:   "dashboard <dataset>",
	Short: "Export an interactive HTML dashboard of the fitted model",
	Long: `Fits the forecast model and writes the library's interactive fit and
components plot — trend, changepoints, seasonal terms, residuals — as a
standalone HTML page.`,
	Example: `  trafficast chart dashboard mysite -o dashboard.html`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}
		m, _, err := fitForecast(deps, s, chartDashboardHorizon)
		if err != nil {
			return err
		}

		path := chartDashboardOut
		if path == "" {
			path = s.Name + "_dashboard.html"
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating dashboard file: %w", err)
		}
		defer f.Close()
		if err := m.PlotFitHTML(f); err != nil {
			return err
		}
		announceChart(cmd, deps, path)
		return nil
	},
}

// ─── chart export ────────────────────────────────────────────────────────────

var (
	chartExportDir     string
	chartExportHorizon int
)

var chartExportCmd = &cobra.Command{
	Use:   "export <dataset>",
	Short: "Export the full chart set (PNGs + HTML dashboard) to a directory",
	Example: `  trafficast chart export mysite
  trafficast chart export mysite --dir reports/2026-08`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, _, err := loadSeries(deps, args[0])
		if err != nil {
			return err
		}

		dir := chartExportDir
		if dir == "" {
			dir = deps.Config.Chart.ExportDir
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}

		size := chartSize(deps)
		out := func(name string) string { return filepath.Join(dir, s.Name+"_"+name) }

		m, fr, err := fitForecast(deps, s, chartExportHorizon)
		if err != nil {
			return err
		}
		if err := chart.SaveForecast(out("forecast.png"), s, fr, size); err != nil {
			return err
		}
		announceChart(cmd, deps, out("forecast.png"))

		weekly := patternBars(analyze.WeeklyPattern(s))
		if err := chart.SavePattern(out("weekly.png"), s.Name+" — average clicks by weekday", "Average Clicks", weekly, size); err != nil {
			return err
		}
		announceChart(cmd, deps, out("weekly.png"))

		monthly := patternBars(analyze.MonthlyPattern(s))
		if err := chart.SavePattern(out("monthly.png"), s.Name+" — average clicks by month", "Average Clicks", monthly, size); err != nil {
			return err
		}
		announceChart(cmd, deps, out("monthly.png"))

		raw := s.ClickPoints()
		rolling, err := transform.Roll(raw, 30, 1)
		if err != nil {
			return err
		}
		if err := chart.SaveTrend(out("trend.png"), s.Name+" — growth trend", raw, rolling, size); err != nil {
			return err
		}
		announceChart(cmd, deps, out("trend.png"))

		if err := chart.SaveHistogram(out("histogram.png"), s.Name+" — daily clicks distribution", s.Clicks(), 0, size); err != nil {
			return err
		}
		announceChart(cmd, deps, out("histogram.png"))

		f, err := os.Create(out("dashboard.html"))
		if err != nil {
			return fmt.Errorf("creating dashboard file: %w", err)
		}
		defer f.Close()
		if err := m.PlotFitHTML(f); err != nil {
			return err
		}
		announceChart(cmd, deps, out("dashboard.html"))
		return nil
	},
}

func patternBars(entries []analyze.PatternEntry) []chart.BarEntry {
	out := make([]chart.BarEntry, len(entries))
	for i, e := range entries {
		out[i] = chart.BarEntry{Label: e.Label, Value: e.AvgClicks}
	}
	return out
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartTermCmd)
	chartCmd.AddCommand(chartBarsCmd)
	chartCmd.AddCommand(chartForecastCmd)
	chartCmd.AddCommand(chartPatternsCmd)
	chartCmd.AddCommand(chartTrendCmd)
	chartCmd.AddCommand(chartHistogramCmd)
	chartCmd.AddCommand(chartDashboardCmd)
	chartCmd.AddCommand(chartExportCmd)

	chartTermCmd.Flags().IntVar(&chartTermWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartTermCmd.Flags().IntVar(&chartTermHeight, "height", 12,
		"chart height in rows")
	chartTermCmd.Flags().StringVar(&chartTermTitle, "title", "",
		"chart title (default: dataset name)")
	chartTermCmd.Flags().StringVar(&chartTermAfter, "after", "",
		"only plot days after this date (YYYY-MM-DD, exclusive)")
	chartTermCmd.Flags().StringVar(&chartTermBefore, "before", "",
		"only plot days before this date (YYYY-MM-DD, exclusive)")

	chartBarsCmd.Flags().StringVar(&chartBarsBy, "by", "weekday",
		"bucket: weekday|month")
	chartBarsCmd.Flags().IntVar(&chartBarsWidth, "width", 0,
		"total chart width in characters (default: auto-detect)")

	chartForecastCmd.Flags().StringVarP(&chartForecastOut, "output", "o", "",
		"PNG output path (default: <dataset>_forecast.png)")
	chartForecastCmd.Flags().IntVar(&chartForecastHorizon, "horizon", 90,
		"days to forecast past the last observed date")

	chartPatternsCmd.Flags().StringVarP(&chartPatternsOut, "output", "o", "",
		"PNG output path (default: <dataset>_<by>.png)")
	chartPatternsCmd.Flags().StringVar(&chartPatternsBy, "by", "weekday",
		"bucket: weekday|month")

	chartTrendCmd.Flags().StringVarP(&chartTrendOut, "output", "o", "",
		"PNG output path (default: <dataset>_trend.png)")

	chartHistogramCmd.Flags().StringVarP(&chartHistogramOut, "output", "o", "",
		"PNG output path (default: <dataset>_histogram.png)")
	chartHistogramCmd.Flags().IntVar(&chartHistogramBins, "bins", 30,
		"number of histogram bins")

	chartDashboardCmd.Flags().StringVarP(&chartDashboardOut, "output", "o", "",
		"HTML output path (default: <dataset>_dashboard.html)")
	chartDashboardCmd.Flags().IntVar(&chartDashboardHorizon, "horizon", 90,
		"forecast horizon used when fitting the model")

	chartExportCmd.Flags().StringVar(&chartExportDir, "dir", "",
		"export directory (default: the configured export_dir, \"charts\")")
	chartExportCmd.Flags().IntVar(&chartExportHorizon, "horizon", 90,
		"forecast horizon for the forecast chart")
}
