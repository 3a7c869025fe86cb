package render_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/analyze"
	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/render"
)

func predictionsResult() *model.Result {
	return &model.Result{
		Kind:        model.KindPredictions,
		GeneratedAt: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Command:     "forecast mysite",
		Data: []model.Prediction{
			{Date: time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC), Predicted: 100, LowerBound: 80, UpperBound: 120},
			{Date: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), Predicted: 105, LowerBound: 82, UpperBound: 128},
		},
	}
}

func TestRenderPredictionsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, predictionsResult(), render.FormatTable); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"DATE", "PREDICTED", "LOWER BOUND", "UPPER BOUND", "2025-08-02", "100", "120"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPredictionsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, predictionsResult(), render.FormatCSV); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "date,predicted,lower_bound,upper_bound" {
		t.Errorf("unexpected CSV header: %q", lines[0])
	}
	if lines[1] != "2025-08-02,100,80,120" {
		t.Errorf("unexpected CSV row: %q", lines[1])
	}
}

func TestRenderPredictionsJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, predictionsResult(), render.FormatJSONL); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"predicted":100`) {
		t.Errorf("unexpected JSONL line: %q", lines[0])
	}
}

func TestRenderSummaryTable(t *testing.T) {
	result := &model.Result{
		Kind:        model.KindSummary,
		GeneratedAt: time.Now(),
		Command:     "analyze summary mysite",
		Data: analyze.Summary{
			Dataset: "mysite", Count: 365,
			Start: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
			Mean:  120.5, Median: 118, Std: 14.2,
		},
	}
	var buf bytes.Buffer
	if err := render.Render(&buf, result, render.FormatTable); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"mean", "120.5", "median", "count", "365"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, predictionsResult(), render.FormatMD); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + separator + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "| DATE |") {
		t.Errorf("unexpected markdown header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "----") {
		t.Errorf("expected separator row, got %q", lines[1])
	}
}

func TestRenderJSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, predictionsResult(), render.FormatJSON); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"kind": "predictions"`, `"command": "forecast mysite"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %q", want)
		}
	}
}

func TestRenderJSONMissingMetrics(t *testing.T) {
	s := &model.Series{
		Name: "mysite",
		Rows: []model.Row{{
			Record: model.Record{
				Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				Clicks:      42,
				Impressions: math.NaN(),
				CTR:         math.NaN(),
				Position:    math.NaN(),
			},
			Features: model.Features{
				ClicksPerImpression: math.NaN(),
				PositionImpact:      math.NaN(),
			},
		}},
	}
	result := &model.Result{
		Kind:        model.KindDataset,
		GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Command:     "ingest traffic.csv",
		Data:        s,
	}
	var buf bytes.Buffer
	if err := render.Render(&buf, result, render.FormatJSON); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"ctr": null`, `"position": null`, `"impressions": null`, `"clicks_per_impression": null`, `"clicks": 42`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintFooterWarnings(t *testing.T) {
	result := predictionsResult()
	result.Warnings = []string{"duplicate date 2025-01-01: kept later row"}

	var buf bytes.Buffer
	render.PrintFooter(&buf, result, false)
	if !strings.Contains(buf.String(), "duplicate date") {
		t.Errorf("footer missing warning: %q", buf.String())
	}

	buf.Reset()
	render.PrintFooter(&buf, result, true)
	if !strings.Contains(buf.String(), "items") {
		t.Errorf("verbose footer missing stats: %q", buf.String())
	}
}
