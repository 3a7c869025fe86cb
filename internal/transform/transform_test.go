package transform_test

import (
	"math"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/transform"
)

// makeDaily builds daily points starting at a date.
func makeDaily(start time.Time, values ...float64) []model.Point {
	out := make([]model.Point, len(values))
	for i, v := range values {
		out[i] = model.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func jan1() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ─── PctChange ────────────────────────────────────────────────────────────────

func TestPctChange(t *testing.T) {
	pts := makeDaily(jan1(), 100, 110, 99)
	out, err := transform.PctChange(pts, 1)
	if err != nil {
		t.Fatalf("PctChange: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 points, got %d", len(out))
	}
	if !approxEqual(out[0].Value, 10.0, 1e-9) {
		t.Errorf("expected +10%%, got %g", out[0].Value)
	}
	if !approxEqual(out[1].Value, -10.0, 1e-9) {
		t.Errorf("expected -10%%, got %g", out[1].Value)
	}
}

func TestPctChangeZeroBase(t *testing.T) {
	pts := makeDaily(jan1(), 0, 50)
	out, err := transform.PctChange(pts, 1)
	if err != nil {
		t.Fatalf("PctChange: %v", err)
	}
	if !math.IsNaN(out[0].Value) {
		t.Errorf("expected NaN for zero base, got %g", out[0].Value)
	}
}

func TestPctChangeTooShort(t *testing.T) {
	if _, err := transform.PctChange(makeDaily(jan1(), 1), 1); err == nil {
		t.Fatal("expected error for too-short input")
	}
}

// ─── Log1p / Expm1 ────────────────────────────────────────────────────────────

func TestLog1pRoundTrip(t *testing.T) {
	pts := makeDaily(jan1(), 0, 10, 1234)
	logged, warnings := transform.Log1p(pts)
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	vals := make([]float64, len(logged))
	for i, p := range logged {
		vals[i] = p.Value
	}
	back := transform.Expm1(vals)
	for i, p := range pts {
		if !approxEqual(back[i], p.Value, 1e-9) {
			t.Errorf("round trip %g: got %g", p.Value, back[i])
		}
	}
}

func TestLog1pNegative(t *testing.T) {
	out, warnings := transform.Log1p(makeDaily(jan1(), -5))
	if !math.IsNaN(out[0].Value) {
		t.Errorf("expected NaN for negative input, got %g", out[0].Value)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

// ─── Resample ─────────────────────────────────────────────────────────────────

func TestResampleMonthlyMean(t *testing.T) {
	pts := []model.Point{
		{Date: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Value: 10},
		{Date: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), Value: 30},
		{Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), Value: 50},
	}
	out, err := transform.Resample(pts, transform.ResampleMonthly, transform.ResampleMean)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(out))
	}
	if !approxEqual(out[0].Value, 20, 1e-9) {
		t.Errorf("Jan mean: expected 20, got %g", out[0].Value)
	}
	if !out[0].Date.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Jan period start: got %v", out[0].Date)
	}
	if !approxEqual(out[1].Value, 50, 1e-9) {
		t.Errorf("Feb mean: expected 50, got %g", out[1].Value)
	}
}

func TestResampleSumSkipsNaN(t *testing.T) {
	pts := makeDaily(jan1(), 10, math.NaN(), 20)
	out, err := transform.Resample(pts, transform.ResampleMonthly, transform.ResampleSum)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if !approxEqual(out[0].Value, 30, 1e-9) {
		t.Errorf("expected sum 30, got %g", out[0].Value)
	}
}

func TestResampleUnknownMethod(t *testing.T) {
	if _, err := transform.Resample(makeDaily(jan1(), 1), transform.ResampleMonthly, "median"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

// ─── Filter ───────────────────────────────────────────────────────────────────

func TestFilterAfterBefore(t *testing.T) {
	pts := makeDaily(jan1(), 1, 2, 3, 4, 5)
	out := transform.Filter(pts, transform.FilterOptions{
		After:  jan1(),
		Before: jan1().AddDate(0, 0, 4),
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 points, got %d", len(out))
	}
	if out[0].Value != 2 || out[2].Value != 4 {
		t.Errorf("unexpected bounds: %v", out)
	}
}

func TestFilterDropMissing(t *testing.T) {
	pts := makeDaily(jan1(), 1, math.NaN(), 3)
	out := transform.Filter(pts, transform.FilterOptions{DropMissing: true})
	if len(out) != 2 {
		t.Errorf("expected 2 points, got %d", len(out))
	}
}

// ─── Roll ─────────────────────────────────────────────────────────────────────

func TestRollMean(t *testing.T) {
	pts := makeDaily(jan1(), 1, 2, 3, 4)
	out, err := transform.Roll(pts, 2, 1)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	want := []float64{1, 1.5, 2.5, 3.5}
	for i, w := range want {
		if !approxEqual(out[i].Value, w, 1e-9) {
			t.Errorf("point %d: expected %g, got %g", i, w, out[i].Value)
		}
	}
}

func TestRollMinPeriods(t *testing.T) {
	pts := makeDaily(jan1(), 1, 2, 3)
	out, err := transform.Roll(pts, 3, 3)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if !math.IsNaN(out[0].Value) || !math.IsNaN(out[1].Value) {
		t.Error("expected NaN until window fills")
	}
	if !approxEqual(out[2].Value, 2, 1e-9) {
		t.Errorf("expected 2, got %g", out[2].Value)
	}
}

func TestRollBadArgs(t *testing.T) {
	pts := makeDaily(jan1(), 1)
	if _, err := transform.Roll(pts, 0, 1); err == nil {
		t.Error("expected error for window 0")
	}
	if _, err := transform.Roll(pts, 2, 3); err == nil {
		t.Error("expected error for min-periods > window")
	}
}
