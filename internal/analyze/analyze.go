// Package analyze computes descriptive analytics over a canonical traffic
// series: central tendency and dispersion, weekly and monthly seasonal
// patterns, growth metrics, anomaly flags, and seasonality-strength
// indicators. All functions are pure; no I/O.
package analyze

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/transform"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for the click series.
type Summary struct {
	Dataset string    `json:"dataset"`
	Count   int       `json:"count"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Mean    float64   `json:"mean"`
	Median  float64   `json:"median"`
	Std     float64   `json:"std"`
	Min     float64   `json:"min"`
	P25     float64   `json:"p25"`
	P75     float64   `json:"p75"`
	Max     float64   `json:"max"`
	CV      float64   `json:"cv"` // coefficient of variation: std/mean
	Skew    float64   `json:"skew"`
}

// MarshalJSON writes CV and Skew as null when they are NaN, which happens
// for zero-mean and constant series.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		CV   *float64 `json:"cv"`
		Skew *float64 `json:"skew"`
	}{alias(s), model.NullFloat(s.CV), model.NullFloat(s.Skew)})
}

// Summarize computes descriptive statistics over the series clicks.
func Summarize(s *model.Series) Summary {
	out := Summary{Dataset: s.Name, Count: len(s.Rows), Start: s.Start(), End: s.End()}
	if len(s.Rows) == 0 {
		return out
	}

	vals := s.Clicks()
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	out.Mean, out.Std = stat.MeanStdDev(vals, nil)
	out.Median = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	out.P25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	out.P75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	out.Min = sorted[0]
	out.Max = sorted[len(sorted)-1]
	out.Skew = stat.Skew(vals, nil)
	if out.Mean != 0 {
		out.CV = out.Std / out.Mean
	} else {
		out.CV = math.NaN()
	}
	return out
}

// ─── Weekly / Monthly Patterns ────────────────────────────────────────────────

// PatternEntry is one bucket (weekday or calendar month) of a seasonal
// pattern table. RelStrength is the percent deviation of the bucket mean
// from the mean of all bucket means.
type PatternEntry struct {
	Label       string  `json:"label"`
	AvgClicks   float64 `json:"avg_clicks"`
	RelStrength float64 `json:"rel_strength"`
	Days        int     `json:"days"`
}

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// WeeklyPattern computes per-weekday average clicks, Monday first.
func WeeklyPattern(s *model.Series) []PatternEntry {
	sums := make([]float64, 7)
	counts := make([]int, 7)
	for _, r := range s.Rows {
		d := r.Features.DayOfWeek
		sums[d] += r.Clicks
		counts[d]++
	}
	return buildPattern(dayNames, sums, counts)
}

// MonthlyPattern computes per-calendar-month average clicks, January first.
// Months with no data report a zero mean and are excluded from the
// relative-strength baseline.
func MonthlyPattern(s *model.Series) []PatternEntry {
	sums := make([]float64, 12)
	counts := make([]int, 12)
	for _, r := range s.Rows {
		m := r.Features.Month - 1
		sums[m] += r.Clicks
		counts[m]++
	}
	return buildPattern(monthNames, sums, counts)
}

func buildPattern(labels []string, sums []float64, counts []int) []PatternEntry {
	means := make([]float64, len(labels))
	var present []float64
	for i := range labels {
		if counts[i] > 0 {
			means[i] = sums[i] / float64(counts[i])
			present = append(present, means[i])
		}
	}
	baseline := stat.Mean(present, nil)

	out := make([]PatternEntry, len(labels))
	for i, label := range labels {
		e := PatternEntry{Label: label, AvgClicks: means[i], Days: counts[i]}
		if counts[i] > 0 && baseline != 0 {
			e.RelStrength = (means[i]/baseline - 1) * 100
		}
		out[i] = e
	}
	return out
}

// ─── Growth ───────────────────────────────────────────────────────────────────

// Growth holds growth-related metrics for the series.
type Growth struct {
	Dataset          string  `json:"dataset"`
	First30Avg       float64 `json:"first_30_days_avg"`
	Last30Avg        float64 `json:"last_30_days_avg"`
	TotalGrowthPct   float64 `json:"total_growth_pct"`
	AvgMonthlyGrowth float64 `json:"avg_monthly_growth_pct"`
	Months           int     `json:"months"`
}

// MarshalJSON writes the growth percentages as null when they are NaN:
// a zero-click start or a single-month history has no defined growth.
func (g Growth) MarshalJSON() ([]byte, error) {
	type alias Growth
	return json.Marshal(struct {
		alias
		TotalGrowthPct   *float64 `json:"total_growth_pct"`
		AvgMonthlyGrowth *float64 `json:"avg_monthly_growth_pct"`
	}{alias(g), model.NullFloat(g.TotalGrowthPct), model.NullFloat(g.AvgMonthlyGrowth)})
}

// GrowthMetrics compares the first and last 30 days and averages
// month-over-month growth of monthly mean clicks.
func GrowthMetrics(s *model.Series) (Growth, error) {
	g := Growth{Dataset: s.Name}
	if len(s.Rows) == 0 {
		return g, fmt.Errorf("growth: empty series")
	}

	n := len(s.Rows)
	head := n
	if head > 30 {
		head = 30
	}
	g.First30Avg = meanClicks(s.Rows[:head])
	g.Last30Avg = meanClicks(s.Rows[n-head:])
	if g.First30Avg != 0 {
		g.TotalGrowthPct = (g.Last30Avg/g.First30Avg - 1) * 100
	} else {
		g.TotalGrowthPct = math.NaN()
	}

	monthly, err := transform.Resample(s.ClickPoints(), transform.ResampleMonthly, transform.ResampleMean)
	if err != nil {
		return g, fmt.Errorf("growth: %w", err)
	}
	g.Months = len(monthly)
	if len(monthly) >= 2 {
		changes, err := transform.PctChange(monthly, 1)
		if err != nil {
			return g, fmt.Errorf("growth: %w", err)
		}
		var vals []float64
		for _, p := range changes {
			if !math.IsNaN(p.Value) {
				vals = append(vals, p.Value)
			}
		}
		if len(vals) > 0 {
			g.AvgMonthlyGrowth = stat.Mean(vals, nil)
		} else {
			g.AvgMonthlyGrowth = math.NaN()
		}
	} else {
		g.AvgMonthlyGrowth = math.NaN()
	}
	return g, nil
}

// ─── Anomalies ────────────────────────────────────────────────────────────────

// Anomaly is one day whose clicks deviate beyond the z-score threshold.
type Anomaly struct {
	Date   time.Time `json:"date"`
	Clicks float64   `json:"clicks"`
	ZScore float64   `json:"z_score"`
}

// Anomalies returns the days where |z| exceeds threshold (default 3.0),
// in date order.
func Anomalies(s *model.Series, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = 3.0
	}
	mean, std := stat.MeanStdDev(s.Clicks(), nil)
	var out []Anomaly
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for _, r := range s.Rows {
		z := (r.Clicks - mean) / std
		if math.Abs(z) > threshold {
			out = append(out, Anomaly{Date: r.Date, Clicks: r.Clicks, ZScore: z})
		}
	}
	return out
}

// ─── Seasonality Strength ─────────────────────────────────────────────────────

// Seasonality holds variance-ratio seasonality-strength indicators.
// Strength is sqrt(var(bucket means) / var(series)): 0 means the buckets
// explain none of the variance, values near 1 mean the pattern dominates.
type Seasonality struct {
	Dataset         string  `json:"dataset"`
	WeeklyStrength  float64 `json:"weekly_strength"`
	MonthlyStrength float64 `json:"monthly_strength"`
}

// SeasonalityStrength computes the weekly and monthly strength indicators.
func SeasonalityStrength(s *model.Series) Seasonality {
	out := Seasonality{Dataset: s.Name}
	total := stat.Variance(s.Clicks(), nil)
	if total == 0 || math.IsNaN(total) {
		return out
	}
	out.WeeklyStrength = strengthOf(patternMeans(WeeklyPattern(s)), total)
	out.MonthlyStrength = strengthOf(patternMeans(MonthlyPattern(s)), total)
	return out
}

func strengthOf(means []float64, totalVar float64) float64 {
	if len(means) < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(means, nil) / totalVar)
}

func patternMeans(entries []PatternEntry) []float64 {
	var out []float64
	for _, e := range entries {
		if e.Days > 0 {
			out = append(out, e.AvgClicks)
		}
	}
	return out
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func meanClicks(rows []model.Row) float64 {
	if len(rows) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, r := range rows {
		sum += r.Clicks
	}
	return sum / float64(len(rows))
}
