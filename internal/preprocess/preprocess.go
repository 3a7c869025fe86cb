// Package preprocess turns raw traffic records into the canonical Series:
// sorted, deduplicated, with calendar features, derived ratios, and outlier
// flags attached to every row. All functions are pure; no I/O.
package preprocess

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/trafficast/trafficast/internal/model"
)

// Options controls canonicalization.
type Options struct {
	// OutlierZ is the |z-score| threshold above which a row is flagged.
	// Zero means the default of 3.0.
	OutlierZ float64
}

// DefaultOutlierZ is the z-score threshold used when none is configured.
const DefaultOutlierZ = 3.0

// Canonicalize builds a Series from raw records: sorts ascending by date,
// drops duplicate dates (keeping the last occurrence, matching export
// re-download behavior), and attaches features to every row.
// Duplicate drops are reported as warnings.
func Canonicalize(name string, recs []model.Record, opts Options) (*model.Series, []string, error) {
	if len(recs) == 0 {
		return nil, nil, fmt.Errorf("preprocess: no records to canonicalize")
	}

	sorted := make([]model.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var warnings []string
	deduped := sorted[:0]
	for _, r := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(r.Date) {
			warnings = append(warnings, fmt.Sprintf("duplicate date %s: kept later row",
				r.Date.Format("2006-01-02")))
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}

	s := &model.Series{
		Name: name,
		Rows: make([]model.Row, len(deduped)),
	}
	for i, r := range deduped {
		s.Rows[i] = model.Row{Record: r, Features: deriveFeatures(r)}
	}
	flagOutliers(s, opts.OutlierZ)
	return s, warnings, nil
}

// deriveFeatures computes the calendar and ratio features for one record.
func deriveFeatures(r model.Record) model.Features {
	d := r.Date
	f := model.Features{
		DayOfWeek:  mondayIndexed(d.Weekday()),
		DayOfMonth: d.Day(),
		Month:      int(d.Month()),
		Quarter:    (int(d.Month())-1)/3 + 1,
		Year:       d.Year(),
		MonthStart: d.Day() == 1,
		MonthEnd:   d.Day() == daysInMonth(d),
	}
	_, f.ISOWeek = d.ISOWeek()
	f.Weekend = f.DayOfWeek >= 5

	if r.Impressions > 0 {
		f.ClicksPerImpression = r.Clicks / r.Impressions
	} else {
		f.ClicksPerImpression = math.NaN()
	}
	if r.Position > 0 {
		f.PositionImpact = 1 / r.Position
	} else {
		f.PositionImpact = math.NaN()
	}
	return f
}

// flagOutliers computes per-row z-scores over clicks and marks rows whose
// |z| exceeds the threshold.
func flagOutliers(s *model.Series, threshold float64) {
	if threshold <= 0 {
		threshold = DefaultOutlierZ
	}
	mean, std := stat.MeanStdDev(s.Clicks(), nil)
	for i := range s.Rows {
		if std == 0 || math.IsNaN(std) {
			s.Rows[i].Features.ZScore = 0
			continue
		}
		z := (s.Rows[i].Clicks - mean) / std
		s.Rows[i].Features.ZScore = z
		s.Rows[i].Features.Outlier = math.Abs(z) > threshold
	}
}

// mondayIndexed converts Go's Sunday-first weekday to the 0=Monday … 6=Sunday
// convention used by the feature set.
func mondayIndexed(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func daysInMonth(d time.Time) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
