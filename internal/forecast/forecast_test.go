package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/model"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ─── Config ───────────────────────────────────────────────────────────────────

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad growth", func(c *Config) { c.Growth = "exponential" }},
		{"bad mode", func(c *Config) { c.SeasonalityMode = "mixed" }},
		{"interval zero", func(c *Config) { c.IntervalWidth = 0 }},
		{"interval one", func(c *Config) { c.IntervalWidth = 1 }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestIntervalZScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IntervalWidth = 0.95
	if z := cfg.IntervalZScore(); !approxEqual(z, 1.96, 0.01) {
		t.Errorf("95%% interval: expected z ≈ 1.96, got %g", z)
	}
	cfg.IntervalWidth = 0.80
	if z := cfg.IntervalZScore(); !approxEqual(z, 1.2816, 0.01) {
		t.Errorf("80%% interval: expected z ≈ 1.28, got %g", z)
	}
}

// ─── FutureDates ──────────────────────────────────────────────────────────────

func TestFutureDates(t *testing.T) {
	last := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	out := FutureDates(last, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(out))
	}
	for i, want := range []string{"2025-07-01", "2025-07-02", "2025-07-03"} {
		if got := out[i].Format("2006-01-02"); got != want {
			t.Errorf("date %d: expected %s, got %s", i, want, got)
		}
	}
}

// ─── TrimToFuture ─────────────────────────────────────────────────────────────

func TestTrimToFuture(t *testing.T) {
	last := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), // historical, dropped
		last,                                        // historical, dropped
		time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	point := []float64{10, 20, 100.4, 200.6}
	lower := []float64{5, 15, 90.2, 180}
	upper := []float64{15, 25, 110.8, 220}

	out := TrimToFuture(dates, point, lower, upper, last)
	if len(out) != 2 {
		t.Fatalf("expected 2 future predictions, got %d", len(out))
	}
	if out[0].Predicted != 100 || out[0].LowerBound != 90 || out[0].UpperBound != 111 {
		t.Errorf("unexpected first prediction: %+v", out[0])
	}
	if out[1].Predicted != 201 {
		t.Errorf("expected rounding up, got %d", out[1].Predicted)
	}
}

func TestTrimToFutureReordersInvertedBounds(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	out := TrimToFuture(dates, []float64{50}, []float64{80}, []float64{30}, last)
	if len(out) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(out))
	}
	p := out[0]
	if p.LowerBound > p.Predicted || p.UpperBound < p.Predicted {
		t.Errorf("bounds should bracket the point: %+v", p)
	}
}

func TestTrimToFutureClampsNegatives(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	out := TrimToFuture(dates, []float64{5}, []float64{-20}, []float64{10}, last)
	if out[0].LowerBound != 0 {
		t.Errorf("negative lower bound should clamp to 0, got %d", out[0].LowerBound)
	}
}

// ─── splitIndex ───────────────────────────────────────────────────────────────

func TestSplitIndex(t *testing.T) {
	cases := []struct {
		n, days, want int
	}{
		{365, 60, 305},
		{100, 60, 80}, // 80% floor kicks in
		{100, 0, 100}, // no validation requested
		{10, 60, 8},
	}
	for _, c := range cases {
		if got := splitIndex(c.n, c.days); got != c.want {
			t.Errorf("splitIndex(%d, %d): expected %d, got %d", c.n, c.days, c.want)
		}
	}
}

// ─── scoreHoldout ─────────────────────────────────────────────────────────────

func TestScoreHoldout(t *testing.T) {
	actual := []float64{100, 200}
	pred := []float64{110, 190}
	lower := []float64{90, 170}
	upper := []float64{130, 185} // second actual falls outside

	m := scoreHoldout(actual, pred, lower, upper)
	if !approxEqual(m.MAE, 10, 1e-9) {
		t.Errorf("MAE: expected 10, got %g", m.MAE)
	}
	if !approxEqual(m.RMSE, 10, 1e-9) {
		t.Errorf("RMSE: expected 10, got %g", m.RMSE)
	}
	// MAPE = mean(10/100, 10/200)*100 = 7.5
	if !approxEqual(m.MAPE, 7.5, 1e-9) {
		t.Errorf("MAPE: expected 7.5, got %g", m.MAPE)
	}
	if !approxEqual(m.Coverage, 50, 1e-9) {
		t.Errorf("Coverage: expected 50, got %g", m.Coverage)
	}
}

func TestScoreHoldoutSkipsNaNAndZeros(t *testing.T) {
	actual := []float64{0, 100}
	pred := []float64{math.NaN(), 110}
	lower := []float64{0, 90}
	upper := []float64{0, 130}

	m := scoreHoldout(actual, pred, lower, upper)
	if !approxEqual(m.MAE, 10, 1e-9) {
		t.Errorf("MAE should skip NaN prediction: got %g", m.MAE)
	}
	if !approxEqual(m.MAPE, 10, 1e-9) {
		t.Errorf("MAPE should use only nonzero actuals: got %g", m.MAPE)
	}
}

// ─── Model state ──────────────────────────────────────────────────────────────

func TestPredictRequiresFit(t *testing.T) {
	m, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Predict(30); err == nil {
		t.Fatal("expected error predicting before fit")
	}
}

func TestFitRejectsShortSeries(t *testing.T) {
	m, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := &model.Series{Name: "short", Rows: make([]model.Row, MinRows-1)}
	for i := range s.Rows {
		s.Rows[i].Date = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		s.Rows[i].Clicks = 10
	}
	if err := m.Fit(s); err == nil {
		t.Fatal("expected error for series below the minimum length")
	}
}
