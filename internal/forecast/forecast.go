// Package forecast wraps the go-forecaster additive regression library:
// it binds trafficast model configuration into forecaster options, runs the
// holdout-validate-then-refit protocol, and reconstitutes raw model output
// into business predictions trimmed to the requested horizon.
//
// The fitting algorithm itself lives entirely in
// github.com/aouyang1/go-forecaster; this package is configuration and
// postprocessing glue.
package forecast

import (
	"fmt"
	"io"
	"math"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
	"github.com/aouyang1/go-forecaster/feature"
	"github.com/aouyang1/go-forecaster/forecast/options"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/transform"
)

// MinRows is the smallest series the wrapper will fit. Below four weeks of
// daily data the weekly seasonal term is unidentifiable.
const MinRows = 28

// Day is the step between consecutive forecast points. Traffic exports are
// daily; timestamps are UTC midnight.
const Day = 24 * time.Hour

// ─── Config ───────────────────────────────────────────────────────────────────

// Config holds the forecasting parameters. Field semantics mirror the
// standard additive-model vocabulary: growth form, seasonal terms with
// Fourier orders, changepoint sensitivity, and credible-interval width.
type Config struct {
	Growth          string `json:"growth"`           // "linear" or "flat"
	SeasonalityMode string `json:"seasonality_mode"` // "additive" or "multiplicative"

	Changepoints int `json:"changepoints"` // auto changepoint candidates

	WeeklySeasonality  bool `json:"weekly_seasonality"`
	YearlySeasonality  bool `json:"yearly_seasonality"`
	WeeklyFourierOrder int  `json:"weekly_fourier_order"`
	YearlyFourierOrder int  `json:"yearly_fourier_order"`

	// Custom monthly seasonal term; MonthlyPeriodDays <= 0 disables it.
	MonthlyPeriodDays   float64 `json:"monthly_period_days"`
	MonthlyFourierOrder int     `json:"monthly_fourier_order"`

	IntervalWidth  float64 `json:"interval_width"`  // credible interval, e.g. 0.95
	ValidationDays int     `json:"validation_days"` // holdout tail length

	Iterations int     `json:"iterations"`
	Tolerance  float64 `json:"tolerance"`
}

// DefaultConfig returns the standard daily-traffic configuration.
func DefaultConfig() Config {
	return Config{
		Growth:              "linear",
		SeasonalityMode:     "multiplicative",
		Changepoints:        25,
		WeeklySeasonality:   true,
		YearlySeasonality:   true,
		WeeklyFourierOrder:  3,
		YearlyFourierOrder:  10,
		MonthlyPeriodDays:   30.5,
		MonthlyFourierOrder: 5,
		IntervalWidth:       0.95,
		ValidationDays:      60,
		Iterations:          500,
		Tolerance:           1e-3,
	}
}

// Validate checks config invariants.
func (c Config) Validate() error {
	if c.Growth != "linear" && c.Growth != "flat" {
		return fmt.Errorf("forecast: unknown growth %q (use linear or flat)", c.Growth)
	}
	if c.SeasonalityMode != "additive" && c.SeasonalityMode != "multiplicative" {
		return fmt.Errorf("forecast: unknown seasonality mode %q (use additive or multiplicative)", c.SeasonalityMode)
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		return fmt.Errorf("forecast: interval width must be in (0, 1), got %g", c.IntervalWidth)
	}
	return nil
}

// IntervalZScore converts the credible-interval width into the two-sided
// normal z-score used for the uncertainty model (0.95 → ≈1.96).
func (c Config) IntervalZScore() float64 {
	return distuv.UnitNormal.Quantile(0.5 + c.IntervalWidth/2)
}

// ─── Model ────────────────────────────────────────────────────────────────────

// Model is a fitted traffic forecaster. Fit must be called before Predict.
type Model struct {
	cfg Config

	f        *forecaster.Forecaster
	logSpace bool // multiplicative mode: fitted on log1p(clicks)

	times      []time.Time
	validation *model.ValidationMetrics
}

// New creates an unfitted Model with the given config.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg, logSpace: cfg.SeasonalityMode == "multiplicative"}, nil
}

// Fit performs the holdout split, validates on the tail, then refits on the
// full history. Validation is skipped when the split leaves no holdout.
func (m *Model) Fit(s *model.Series) error {
	if len(s.Rows) < MinRows {
		return fmt.Errorf("forecast: need at least %d daily rows, got %d", MinRows, len(s.Rows))
	}

	times := s.Times()
	values := m.toModelSpace(s.Clicks())

	trainN := splitIndex(len(times), m.cfg.ValidationDays)
	if trainN < len(times) {
		metrics, err := m.validate(times, values, s.Clicks(), trainN)
		if err != nil {
			return err
		}
		m.validation = metrics
	}

	full, err := m.fitNew(times, values)
	if err != nil {
		return fmt.Errorf("forecast: fitting full history: %w", err)
	}
	m.f = full
	m.times = times
	return nil
}

// Fitted reports whether Fit has completed.
func (m *Model) Fitted() bool {
	return m.f != nil
}

// Validation returns the holdout metrics, or nil when validation was skipped.
func (m *Model) Validation() *model.ValidationMetrics {
	return m.validation
}

// Predict produces the full-range band plus the future-only predictions for
// the next horizon days after the last observed date.
func (m *Model) Predict(horizon int) (*model.ForecastResult, error) {
	if !m.Fitted() {
		return nil, fmt.Errorf("forecast: model must be fitted before prediction")
	}
	if horizon < 1 {
		return nil, fmt.Errorf("forecast: horizon must be >= 1, got %d", horizon)
	}

	last := m.times[len(m.times)-1]
	all := append(append([]time.Time{}, m.times...), FutureDates(last, horizon)...)

	res, err := m.f.Predict(all)
	if err != nil {
		return nil, fmt.Errorf("forecast: predicting: %w", err)
	}

	point := m.fromModelSpace(res.Forecast)
	lower := m.fromModelSpace(res.Lower)
	upper := m.fromModelSpace(res.Upper)

	out := &model.ForecastResult{
		Dataset:     "",
		GeneratedAt: time.Now().UTC(),
		Horizon:     horizon,
		Validation:  m.validation,
		T:           all,
		Point:       point,
		Lower:       lower,
		Upper:       upper,
		Future:      TrimToFuture(all, point, lower, upper, last),
	}
	return out, nil
}

// PlotFitHTML writes the library's interactive fit/components plot to w.
func (m *Model) PlotFitHTML(w io.Writer) error {
	if !m.Fitted() {
		return fmt.Errorf("forecast: model must be fitted before plotting")
	}
	return m.f.PlotFit(w, nil)
}

// WriteModelSummary prints the fitted model's coefficient tables to w.
func (m *Model) WriteModelSummary(w io.Writer) error {
	if !m.Fitted() {
		return fmt.Errorf("forecast: model must be fitted before summarizing")
	}
	mdl, err := m.f.Model()
	if err != nil {
		return err
	}
	return mdl.TablePrint(w)
}

// ─── Fit internals ────────────────────────────────────────────────────────────

// fitNew constructs a fresh forecaster and fits it. The library keeps state
// from a previous fit, so validation and the final fit each get their own
// instance, mirroring the validate-then-refit protocol.
func (m *Model) fitNew(t []time.Time, y []float64) (*forecaster.Forecaster, error) {
	f, err := forecaster.New(m.buildOptions(len(t)))
	if err != nil {
		return nil, err
	}
	if err := f.Fit(t, y); err != nil {
		return nil, err
	}
	return f, nil
}

// validate fits on the first trainN rows and scores the remainder.
// Metrics are computed in click space regardless of seasonality mode.
func (m *Model) validate(t []time.Time, y, clicks []float64, trainN int) (*model.ValidationMetrics, error) {
	f, err := m.fitNew(t[:trainN], y[:trainN])
	if err != nil {
		return nil, fmt.Errorf("forecast: fitting training split: %w", err)
	}
	res, err := f.Predict(t[trainN:])
	if err != nil {
		return nil, fmt.Errorf("forecast: predicting holdout: %w", err)
	}

	pred := m.fromModelSpace(res.Forecast)
	lower := m.fromModelSpace(res.Lower)
	upper := m.fromModelSpace(res.Upper)
	actual := clicks[trainN:]

	metrics := scoreHoldout(actual, pred, lower, upper)
	metrics.TrainRows = trainN
	metrics.TestRows = len(actual)
	return metrics, nil
}

// buildOptions maps Config onto forecaster options. n is the training length,
// used to bound the uncertainty model's residual window.
func (m *Model) buildOptions(n int) *forecaster.Options {
	seriesOpts := m.forecastOptions(m.cfg.Iterations, m.cfg.Tolerance)

	// The uncertainty model fits the rolling residual spread; it needs far
	// fewer iterations than the series model.
	uncertaintyOpts := m.forecastOptions(m.cfg.Iterations/2, m.cfg.Tolerance*10)

	window := 30
	if window > n/2 {
		window = n / 2
	}
	if window < 2 {
		window = 2
	}

	return &forecaster.Options{
		SeriesOptions: &forecaster.SeriesOptions{
			ForecastOptions: seriesOpts,
			OutlierOptions:  forecaster.NewOutlierOptions(),
		},
		UncertaintyOptions: &forecaster.UncertaintyOptions{
			ForecastOptions: uncertaintyOpts,
			ResidualWindow:  window,
			ResidualZscore:  m.cfg.IntervalZScore(),
		},
	}
}

func (m *Model) forecastOptions(iterations int, tolerance float64) *options.Options {
	var configs []options.SeasonalityConfig
	if m.cfg.WeeklySeasonality {
		configs = append(configs, options.NewWeeklySeasonalityConfig(m.cfg.WeeklyFourierOrder))
	}
	if m.cfg.YearlySeasonality {
		configs = append(configs,
			options.NewSeasonalityConfig("yearly", time.Duration(365.25*24)*time.Hour, m.cfg.YearlyFourierOrder))
	}
	if m.cfg.MonthlyPeriodDays > 0 {
		configs = append(configs,
			options.NewSeasonalityConfig("monthly",
				time.Duration(m.cfg.MonthlyPeriodDays*24*float64(time.Hour)),
				m.cfg.MonthlyFourierOrder))
	}

	opts := &options.Options{
		Regularization: []float64{0.0, 1.0, 10.0, 100.0, 1000.0},
		SeasonalityOptions: options.SeasonalityOptions{
			SeasonalityConfigs: configs,
		},
		Iterations: iterations,
		Tolerance:  tolerance,
		ChangepointOptions: options.ChangepointOptions{
			Auto:                true,
			AutoNumChangepoints: m.cfg.Changepoints,
			EnableGrowth:        m.cfg.Growth == "linear",
		},
		WeekendOptions: options.WeekendOptions{
			Enabled: true,
		},
		DSTOptions: options.DSTOptions{
			Enabled: false,
		},
	}
	if m.cfg.Growth == "linear" {
		opts.GrowthType = feature.GrowthLinear
	}
	return opts
}

// ─── Space conversions ────────────────────────────────────────────────────────

// toModelSpace maps clicks into fitting space. Multiplicative mode fits on
// log1p(clicks) so the additive engine models relative seasonal effects.
func (m *Model) toModelSpace(clicks []float64) []float64 {
	if !m.logSpace {
		out := make([]float64, len(clicks))
		copy(out, clicks)
		return out
	}
	pts := make([]model.Point, len(clicks))
	for i, v := range clicks {
		pts[i] = model.Point{Value: v}
	}
	logged, _ := transform.Log1p(pts)
	out := make([]float64, len(logged))
	for i, p := range logged {
		out[i] = p.Value
	}
	return out
}

// fromModelSpace maps model output back into click space.
func (m *Model) fromModelSpace(vals []float64) []float64 {
	if !m.logSpace {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}
	return transform.Expm1(vals)
}

// ─── Postprocessing ───────────────────────────────────────────────────────────

// FutureDates returns horizon consecutive daily dates strictly after last.
func FutureDates(last time.Time, horizon int) []time.Time {
	out := make([]time.Time, horizon)
	for i := range out {
		out[i] = last.Add(time.Duration(i+1) * Day)
	}
	return out
}

// TrimToFuture extracts the dates strictly after lastHistorical and rounds
// point and bounds to non-negative integers. Bounds are reordered if the
// uncertainty model inverted them and the lower bound never exceeds the
// point prediction.
func TrimToFuture(t []time.Time, point, lower, upper []float64, lastHistorical time.Time) []model.Prediction {
	var out []model.Prediction
	for i, ts := range t {
		if !ts.After(lastHistorical) {
			continue
		}
		lo, hi := lower[i], upper[i]
		if lo > hi {
			lo, hi = hi, lo
		}
		p := model.Prediction{
			Date:       ts,
			Predicted:  roundCount(point[i]),
			LowerBound: roundCount(lo),
			UpperBound: roundCount(hi),
		}
		if p.LowerBound > p.Predicted {
			p.LowerBound = p.Predicted
		}
		if p.UpperBound < p.Predicted {
			p.UpperBound = p.Predicted
		}
		out = append(out, p)
	}
	return out
}

// roundCount rounds to the nearest integer, clamping at zero: a click count
// can never be negative.
func roundCount(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return int(math.Round(v))
}

// splitIndex returns the train length for a holdout of validationDays,
// keeping at least 80% of rows in training.
func splitIndex(n, validationDays int) int {
	if validationDays <= 0 {
		return n
	}
	trainN := n - validationDays
	if floor := n * 4 / 5; trainN < floor {
		trainN = floor
	}
	if trainN < 1 {
		trainN = 1
	}
	return trainN
}

// scoreHoldout computes MAE, MAPE, RMSE, and interval coverage over the
// holdout. MAPE skips zero-click days; NaN predictions are skipped entirely.
func scoreHoldout(actual, pred, lower, upper []float64) *model.ValidationMetrics {
	var absSum, sqSum, pctSum float64
	var nAbs, nPct, inBand int
	for i := range actual {
		if math.IsNaN(pred[i]) {
			continue
		}
		diff := pred[i] - actual[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
		nAbs++
		if actual[i] != 0 {
			pctSum += math.Abs(diff / actual[i])
			nPct++
		}
		lo, hi := lower[i], upper[i]
		if lo > hi {
			lo, hi = hi, lo
		}
		if actual[i] >= lo && actual[i] <= hi {
			inBand++
		}
	}

	metrics := &model.ValidationMetrics{}
	if nAbs > 0 {
		metrics.MAE = absSum / float64(nAbs)
		metrics.RMSE = math.Sqrt(sqSum / float64(nAbs))
		metrics.Coverage = float64(inBand) / float64(nAbs) * 100
	}
	if nPct > 0 {
		metrics.MAPE = pctSum / float64(nPct) * 100
	}
	return metrics
}
