// Package model defines the canonical data types used throughout trafficast.
// These types are the single source of truth for ingested traffic series,
// analysis output, forecast output, and the result envelope that every
// command returns.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// NullFloat lowers NaN to null for JSON output. encoding/json rejects NaN,
// so every nullable metric goes through this on the wire.
func NullFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// ─── Traffic Series Types ─────────────────────────────────────────────────────

// Record is a single day of website-traffic metrics after canonicalization.
// CTR is a fraction in [0, 1]; CTR and Position are NaN when the export did
// not carry them or they failed to parse.
type Record struct {
	Date        time.Time `json:"date"`
	Clicks      float64   `json:"clicks"`
	Impressions float64   `json:"impressions"`
	CTR         float64   `json:"ctr"`
	Position    float64   `json:"position"`
}

// Features holds the calendar and derived features the preprocessor attaches
// to each record.
type Features struct {
	DayOfWeek  int  `json:"day_of_week"` // 0 = Monday … 6 = Sunday
	DayOfMonth int  `json:"day_of_month"`
	ISOWeek    int  `json:"iso_week"`
	Month      int  `json:"month"` // 1–12
	Quarter    int  `json:"quarter"`
	Year       int  `json:"year"`
	Weekend    bool `json:"weekend"`
	MonthStart bool `json:"month_start"`
	MonthEnd   bool `json:"month_end"`

	ClicksPerImpression float64 `json:"clicks_per_impression"` // NaN when impressions == 0
	PositionImpact      float64 `json:"position_impact"`       // 1/position, NaN when position <= 0

	ZScore  float64 `json:"z_score"`
	Outlier bool    `json:"outlier"`
}

// MarshalJSON writes the derived ratios as null when they are NaN.
func (f Features) MarshalJSON() ([]byte, error) {
	type alias Features
	return json.Marshal(struct {
		alias
		ClicksPerImpression *float64 `json:"clicks_per_impression"`
		PositionImpact      *float64 `json:"position_impact"`
	}{alias(f), NullFloat(f.ClicksPerImpression), NullFloat(f.PositionImpact)})
}

// MarshalJSON writes the optional metrics as null when they are NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordWire(r, nil))
}

// Row pairs a canonical record with its derived features.
type Row struct {
	Record
	Features Features `json:"features"`
}

// MarshalJSON flattens the record fields and lowers NaN metrics to null.
// Row needs its own marshaler: the embedded Record's would otherwise be
// promoted and drop the features.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordWire(r.Record, &r.Features))
}

func recordWire(r Record, f *Features) interface{} {
	return struct {
		Date        time.Time `json:"date"`
		Clicks      float64   `json:"clicks"`
		Impressions *float64  `json:"impressions"`
		CTR         *float64  `json:"ctr"`
		Position    *float64  `json:"position"`
		Features    *Features `json:"features,omitempty"`
	}{r.Date, r.Clicks, NullFloat(r.Impressions), NullFloat(r.CTR), NullFloat(r.Position), f}
}

// Series is the canonical dataset: rows sorted ascending by date with no
// duplicate dates. Name identifies the dataset in the store.
type Series struct {
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path,omitempty"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`
	Rows       []Row     `json:"rows"`
}

// Times returns the row dates in order.
func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Date
	}
	return out
}

// Clicks returns the target values in order.
func (s *Series) Clicks() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Clicks
	}
	return out
}

// ClickPoints returns the rows as (date, clicks) points for the transform
// and chart operators.
func (s *Series) ClickPoints() []Point {
	out := make([]Point, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = Point{Date: r.Date, Value: r.Clicks}
	}
	return out
}

// Start returns the first row date, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if len(s.Rows) == 0 {
		return time.Time{}
	}
	return s.Rows[0].Date
}

// End returns the last row date, or the zero time for an empty series.
func (s *Series) End() time.Time {
	if len(s.Rows) == 0 {
		return time.Time{}
	}
	return s.Rows[len(s.Rows)-1].Date
}

// ─── Pipe Point ───────────────────────────────────────────────────────────────

// Point is the minimal (date, value) pair used by the JSONL pipe format and
// the transform operators. Value is NaN for missing data.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// IsMissing returns true if the point value is NaN.
func (p Point) IsMissing() bool {
	return math.IsNaN(p.Value)
}

// ─── Forecast Types ───────────────────────────────────────────────────────────

// Prediction is one future day of the trimmed forecast. Bounds are rounded to
// non-negative integers because clicks are counts.
type Prediction struct {
	Date       time.Time `json:"date"`
	Predicted  int       `json:"predicted"`
	LowerBound int       `json:"lower_bound"`
	UpperBound int       `json:"upper_bound"`
}

// ValidationMetrics reports holdout accuracy of the fitted model.
type ValidationMetrics struct {
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	MAE       float64 `json:"mae"`
	MAPE      float64 `json:"mape"` // percent
	RMSE      float64 `json:"rmse"`
	Coverage  float64 `json:"coverage"` // percent of holdout values inside the interval
}

// ForecastResult bundles everything a forecast run produces: the full-range
// band (history + horizon, for charts) and the future-only predictions.
type ForecastResult struct {
	Dataset     string             `json:"dataset"`
	GeneratedAt time.Time          `json:"generated_at"`
	Horizon     int                `json:"horizon"`
	Validation  *ValidationMetrics `json:"validation,omitempty"`

	T     []time.Time `json:"t"`
	Point []float64   `json:"point"`
	Lower []float64   `json:"lower"`
	Upper []float64   `json:"upper"`

	Future []Prediction `json:"future"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and size metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindDataset        = "dataset"
	KindSummary        = "summary"
	KindWeeklyPattern  = "weekly_pattern"
	KindMonthlyPattern = "monthly_pattern"
	KindGrowth         = "growth"
	KindAnomalies      = "anomalies"
	KindSeasonality    = "seasonality"
	KindPredictions    = "predictions"
	KindValidation     = "validation"
	KindStoreStats     = "store_stats"
)
