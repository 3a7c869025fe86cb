// Package transform implements stateless operators over (date, value) points.
// Each operator is a pure function; no side effects, no I/O.
package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/trafficast/trafficast/internal/model"
)

// ─── Percent Change ───────────────────────────────────────────────────────────

// PctChange computes (v[t] - v[t-period]) / |v[t-period]| * 100.
// Leading points that have no prior period are dropped.
// NaN inputs propagate as NaN outputs.
func PctChange(pts []model.Point, period int) ([]model.Point, error) {
	if period < 1 {
		return nil, fmt.Errorf("pct-change: period must be >= 1, got %d", period)
	}
	if len(pts) <= period {
		return nil, fmt.Errorf("pct-change: need more than %d points, got %d", period, len(pts))
	}
	out := make([]model.Point, 0, len(pts)-period)
	for i := period; i < len(pts); i++ {
		curr := pts[i].Value
		prev := pts[i-period].Value
		var val float64
		if math.IsNaN(curr) || math.IsNaN(prev) || prev == 0 {
			val = math.NaN()
		} else {
			val = (curr - prev) / math.Abs(prev) * 100
		}
		out = append(out, model.Point{Date: pts[i].Date, Value: val})
	}
	return out, nil
}

// ─── Log / Expm1 ─────────────────────────────────────────────────────────────

// Log1p computes log(1 + v) for each point. Click counts are non-negative,
// so the +1 shift keeps zero-traffic days finite. Negative values produce
// NaN with a warning.
func Log1p(pts []model.Point) ([]model.Point, []string) {
	out := make([]model.Point, len(pts))
	var warnings []string
	for i, p := range pts {
		var val float64
		switch {
		case math.IsNaN(p.Value):
			val = math.NaN()
		case p.Value < 0:
			val = math.NaN()
			warnings = append(warnings, fmt.Sprintf("%s: log1p(%g) is undefined, set to NaN",
				p.Date.Format("2006-01-02"), p.Value))
		default:
			val = math.Log1p(p.Value)
		}
		out[i] = model.Point{Date: p.Date, Value: val}
	}
	return out, warnings
}

// Expm1 inverts Log1p: exp(v) - 1 for each value in vals, in place-safe copy.
func Expm1(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = math.Expm1(v)
	}
	return out
}

// ─── Resample ─────────────────────────────────────────────────────────────────

// ResampleFreq is the target frequency for resampling.
type ResampleFreq string

const (
	ResampleMonthly   ResampleFreq = "monthly"
	ResampleQuarterly ResampleFreq = "quarterly"
	ResampleAnnual    ResampleFreq = "annual"
)

// ResampleMethod is the aggregation method for resampling.
type ResampleMethod string

const (
	ResampleMean ResampleMethod = "mean"
	ResampleLast ResampleMethod = "last"
	ResampleSum  ResampleMethod = "sum"
)

// Resample aggregates points to a lower frequency.
// Points are grouped by period; NaN values are skipped in aggregation.
func Resample(pts []model.Point, freq ResampleFreq, method ResampleMethod) ([]model.Point, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("resample: empty input")
	}

	groups := make(map[string][]float64)
	keys := make(map[string]time.Time) // period key → period start date

	for _, p := range pts {
		key, start := periodKey(p.Date, freq)
		if !math.IsNaN(p.Value) {
			groups[key] = append(groups[key], p.Value)
		}
		if _, exists := keys[key]; !exists {
			keys[key] = start
		}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make([]model.Point, 0, len(sorted))
	for _, k := range sorted {
		vals := groups[k]
		var val float64
		if len(vals) == 0 {
			val = math.NaN()
		} else {
			switch method {
			case ResampleMean:
				val = mean(vals)
			case ResampleLast:
				val = vals[len(vals)-1]
			case ResampleSum:
				val = floats.Sum(vals)
			default:
				return nil, fmt.Errorf("resample: unknown method %q (use mean, last, sum)", method)
			}
		}
		out = append(out, model.Point{Date: keys[k], Value: val})
	}
	return out, nil
}

// periodKey returns a sortable string key and canonical start date for a period.
func periodKey(t time.Time, freq ResampleFreq) (string, time.Time) {
	switch freq {
	case ResampleQuarterly:
		q := (t.Month()-1)/3 + 1
		start := time.Date(t.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-Q%d", t.Year(), q), start
	case ResampleAnnual:
		start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d", t.Year()), start
	default: // monthly
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-%02d", t.Year(), t.Month()), start
	}
}

// ─── Filter ───────────────────────────────────────────────────────────────────

// FilterOptions describes a date filter predicate.
type FilterOptions struct {
	After       time.Time // keep points with date > After (zero = no lower bound)
	Before      time.Time // keep points with date < Before (zero = no upper bound)
	DropMissing bool      // drop NaN points
}

// Filter returns points matching all non-zero criteria in opts.
func Filter(pts []model.Point, opts FilterOptions) []model.Point {
	out := make([]model.Point, 0, len(pts))
	for _, p := range pts {
		if !opts.After.IsZero() && !p.Date.After(opts.After) {
			continue
		}
		if !opts.Before.IsZero() && !p.Date.Before(opts.Before) {
			continue
		}
		if opts.DropMissing && math.IsNaN(p.Value) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ─── Rolling Window ───────────────────────────────────────────────────────────

// Roll computes a rolling mean. The window includes the current point and the
// (window-1) preceding points; NaN values are skipped. If fewer than
// minPeriods non-NaN values exist in a window, the output is NaN.
func Roll(pts []model.Point, window, minPeriods int) ([]model.Point, error) {
	if window < 1 {
		return nil, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	if minPeriods < 1 {
		minPeriods = 1
	}
	if minPeriods > window {
		return nil, fmt.Errorf("roll: min-periods (%d) cannot exceed window (%d)", minPeriods, window)
	}

	out := make([]model.Point, len(pts))
	for i, p := range pts {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var vals []float64
		for _, w := range pts[start : i+1] {
			if !math.IsNaN(w.Value) {
				vals = append(vals, w.Value)
			}
		}
		val := math.NaN()
		if len(vals) >= minPeriods {
			val = mean(vals)
		}
		out[i] = model.Point{Date: p.Date, Value: val}
	}
	return out, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
