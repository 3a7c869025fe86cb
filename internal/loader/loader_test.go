package loader_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/loader"
)

const sampleCSV = `Date,Clicks,Impressions,CTR,Position
2025-01-01,120,3400,3.53%,12.4
2025-01-02,135,3600,3.75%,11.9
2025-01-03,98,3100,3.16%,13.2
`

func TestReadBasic(t *testing.T) {
	recs, warnings, err := loader.Read(strings.NewReader(sampleCSV), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	r := recs[0]
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.Date.Equal(want) {
		t.Errorf("Date: expected %v, got %v", want, r.Date)
	}
	if r.Clicks != 120 {
		t.Errorf("Clicks: expected 120, got %g", r.Clicks)
	}
	if r.Impressions != 3400 {
		t.Errorf("Impressions: expected 3400, got %g", r.Impressions)
	}
	if math.Abs(r.CTR-0.0353) > 1e-9 {
		t.Errorf("CTR: expected 0.0353, got %g", r.CTR)
	}
	if r.Position != 12.4 {
		t.Errorf("Position: expected 12.4, got %g", r.Position)
	}
}

func TestReadCaseInsensitiveHeader(t *testing.T) {
	csv := "date,CLICKS,impressions,ctr,POSITION\n2025-01-01,10,100,10%,5.0\n"
	recs, _, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 1 || recs[0].Clicks != 10 {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestReadCustomColumns(t *testing.T) {
	csv := "day,visits,views,rate,rank\n2025-01-01,10,100,10%,5.0\n"
	cols := loader.Columns{
		Date:        "day",
		Clicks:      "visits",
		Impressions: "views",
		CTR:         "rate",
		Position:    "rank",
	}
	recs, _, err := loader.Read(strings.NewReader(csv), cols)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 1 || recs[0].Impressions != 100 {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestReadMissingColumnsNamesAll(t *testing.T) {
	csv := "Date,Clicks\n2025-01-01,10\n"
	_, _, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	msg := err.Error()
	for _, col := range []string{"Impressions", "CTR", "Position"} {
		if !strings.Contains(msg, col) {
			t.Errorf("error should name missing column %s: %v", col, err)
		}
	}
}

func TestReadBadRowsBecomeWarnings(t *testing.T) {
	csv := `Date,Clicks,Impressions,CTR,Position
2025-01-01,120,3400,3.5%,12.4
not-a-date,100,3000,3%,12.0
2025-01-03,oops,3100,3.1%,13.2
2025-01-04,90,2900,3.1%,13.0
`
	recs, warnings, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 good records, got %d", len(recs))
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestReadBlankRowsSkipped(t *testing.T) {
	csv := "Date,Clicks,Impressions,CTR,Position\n2025-01-01,10,100,10%,5.0\n,,,,\n"
	recs, warnings, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings for blank row, got %v", warnings)
	}
}

func TestReadNoDataRows(t *testing.T) {
	csv := "Date,Clicks,Impressions,CTR,Position\nnope,x,,,\n"
	if _, _, err := loader.Read(strings.NewReader(csv), loader.Columns{}); err == nil {
		t.Fatal("expected error when no rows parse")
	}
}

func TestReadMissingOptionalMetrics(t *testing.T) {
	csv := "Date,Clicks,Impressions,CTR,Position\n2025-01-01,10,,,\n"
	recs, _, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	r := recs[0]
	if !math.IsNaN(r.Impressions) || !math.IsNaN(r.CTR) || !math.IsNaN(r.Position) {
		t.Errorf("expected NaN optional metrics, got %+v", r)
	}
}

func TestLoadCSVFileNotFound(t *testing.T) {
	_, _, err := loader.LoadCSV("/nonexistent/traffic.csv", loader.Columns{})
	if err == nil || !strings.Contains(err.Error(), "data file not found") {
		t.Errorf("expected data file not found error, got %v", err)
	}
}

func TestReadThousandsSeparators(t *testing.T) {
	csv := "Date,Clicks,Impressions,CTR,Position\n2025-01-01,\"1,234\",\"56,789\",2.17%,8.1\n"
	recs, _, err := loader.Read(strings.NewReader(csv), loader.Columns{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if recs[0].Clicks != 1234 || recs[0].Impressions != 56789 {
		t.Errorf("expected comma-stripped counts, got %+v", recs[0])
	}
}
