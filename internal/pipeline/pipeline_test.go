package pipeline_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/pipeline"
)

func TestReadRecordsBasic(t *testing.T) {
	input := `{"dataset":"mysite","date":"2025-01-01","clicks":120,"impressions":3400,"ctr":0.035,"position":12.4}
{"dataset":"mysite","date":"2025-01-02","clicks":135,"impressions":null,"ctr":null,"position":null}
`
	dataset, recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if dataset != "mysite" {
		t.Errorf("dataset: expected mysite, got %q", dataset)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	r := recs[0]
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.Date.Equal(want) {
		t.Errorf("Date: expected %v, got %v", want, r.Date)
	}
	if r.Clicks != 120 || r.Impressions != 3400 {
		t.Errorf("unexpected first record: %+v", r)
	}

	if !math.IsNaN(recs[1].Impressions) || !math.IsNaN(recs[1].CTR) {
		t.Errorf("null metrics should become NaN: %+v", recs[1])
	}
}

func TestReadRecordsSkipsBlankAndComments(t *testing.T) {
	input := "\n// a comment\n{\"date\":\"2025-01-01\",\"clicks\":10}\n"
	_, recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
}

func TestReadRecordsErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"invalid json", "not json\n"},
		{"bad date", `{"date":"01-01-2025","clicks":10}` + "\n"},
		{"missing clicks", `{"date":"2025-01-01"}` + "\n"},
		{"string clicks", `{"date":"2025-01-01","clicks":"ten"}` + "\n"},
	}
	for _, c := range cases {
		if _, _, err := pipeline.ReadRecords(strings.NewReader(c.input)); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	recs := []model.Record{
		{
			Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Clicks: 42,
			Impressions: 900, CTR: 0.046, Position: 7.5,
		},
		{
			Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Clicks: 0,
			Impressions: math.NaN(), CTR: math.NaN(), Position: math.NaN(),
		},
	}

	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, "mysite", recs); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	dataset, back, err := pipeline.ReadRecords(&buf)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if dataset != "mysite" {
		t.Errorf("dataset: expected mysite, got %q", dataset)
	}
	if len(back) != 2 {
		t.Fatalf("expected 2 records, got %d", len(back))
	}
	if back[0].Clicks != 42 || back[0].Impressions != 900 {
		t.Errorf("unexpected first record: %+v", back[0])
	}
	if !math.IsNaN(back[1].Impressions) {
		t.Errorf("NaN should survive the round trip as null: %+v", back[1])
	}
}
