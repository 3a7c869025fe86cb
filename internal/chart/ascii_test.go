package chart_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/chart"
	"github.com/trafficast/trafficast/internal/model"
)

func TestBarsPositive(t *testing.T) {
	var buf bytes.Buffer
	entries := []chart.BarEntry{
		{Label: "Monday", Value: 200},
		{Label: "Tuesday", Value: 100},
	}
	if err := chart.Bars(&buf, "weekly pattern", entries, chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"weekly pattern", "Monday", "Tuesday", "█"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBarsNegativeBaseline(t *testing.T) {
	var buf bytes.Buffer
	entries := []chart.BarEntry{
		{Label: "Saturday", Value: -21.7},
		{Label: "Monday", Value: 12.4},
	}
	if err := chart.Bars(&buf, "", entries, chart.BarOptions{Width: 60, Suffix: "%"}); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "│") {
		t.Errorf("expected zero baseline marker in output:\n%s", out)
	}
	if !strings.Contains(out, "%") {
		t.Errorf("expected suffix on value labels:\n%s", out)
	}
}

func TestBarsSkipsNaN(t *testing.T) {
	var buf bytes.Buffer
	entries := []chart.BarEntry{
		{Label: "Jan", Value: 100},
		{Label: "Feb", Value: math.NaN()},
	}
	if err := chart.Bars(&buf, "", entries, chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if strings.Contains(buf.String(), "Feb") {
		t.Errorf("NaN entry should be dropped:\n%s", buf.String())
	}
}

func TestBarsNoValues(t *testing.T) {
	var buf bytes.Buffer
	entries := []chart.BarEntry{{Label: "x", Value: math.NaN()}}
	if err := chart.Bars(&buf, "", entries, chart.BarOptions{}); err == nil {
		t.Fatal("expected error for all-NaN entries")
	}
}

func makePoints(start time.Time, vals ...float64) []model.Point {
	pts := make([]model.Point, len(vals))
	for i, v := range vals {
		pts[i] = model.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return pts
}

func TestPlotBasic(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := makePoints(start, 10, 20, 15, 30, 25, 40, 35, 50)

	var buf bytes.Buffer
	err := chart.Plot(&buf, pts, chart.PlotOptions{Width: 70, Height: 8, Title: "daily clicks"})
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "daily clicks") {
		t.Errorf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "2025-01-01") || !strings.Contains(out, "2025-01-08") {
		t.Errorf("missing axis date labels:\n%s", out)
	}
	// body + bottom axis + label row, plus title
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8+3 {
		t.Errorf("expected 11 lines, got %d:\n%s", len(lines), out)
	}
}

func TestPlotHandlesNaNGaps(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := makePoints(start, 10, math.NaN(), 30, 40)

	var buf bytes.Buffer
	if err := chart.Plot(&buf, pts, chart.PlotOptions{Width: 40, Height: 6}); err != nil {
		t.Fatalf("Plot with NaN gap: %v", err)
	}
}

func TestPlotTooFewPoints(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := makePoints(start, 10, math.NaN())

	var buf bytes.Buffer
	if err := chart.Plot(&buf, pts, chart.PlotOptions{}); err == nil {
		t.Fatal("expected error with a single valid point")
	}
}

func TestPlotConstantSeries(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := makePoints(start, 100, 100, 100, 100)

	var buf bytes.Buffer
	if err := chart.Plot(&buf, pts, chart.PlotOptions{Width: 40, Height: 6}); err != nil {
		t.Fatalf("Plot of flat series: %v", err)
	}
}
