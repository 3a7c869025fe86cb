// Package pipeline provides helpers for reading and writing daily traffic
// records via stdin/stdout in JSONL format — the canonical pipe format.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/trafficast/trafficast/internal/model"
)

// ReadRecords reads JSONL records from r (stdin) and returns the dataset
// name and slice of Records. Each line must be a JSON object with at least
// "date" and "clicks" fields; impressions, ctr, and position are optional
// and null means missing.
func ReadRecords(r io.Reader) (string, []model.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var recs []model.Record
	dataset := ""

	type row struct {
		Dataset     string      `json:"dataset"`
		Date        string      `json:"date"`
		Clicks      interface{} `json:"clicks"`
		Impressions *float64    `json:"impressions"`
		CTR         *float64    `json:"ctr"`
		Position    *float64    `json:"position"`
	}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec row
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return "", nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		if dataset == "" && rec.Dataset != "" {
			dataset = rec.Dataset
		}

		date, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			return "", nil, fmt.Errorf("line %d: invalid date %q", lineNum, rec.Date)
		}

		var clicks float64
		switch v := rec.Clicks.(type) {
		case float64:
			clicks = v
		case nil:
			return "", nil, fmt.Errorf("line %d: clicks is required", lineNum)
		default:
			return "", nil, fmt.Errorf("line %d: unexpected clicks type %T", lineNum, rec.Clicks)
		}

		recs = append(recs, model.Record{
			Date:        date.UTC(),
			Clicks:      clicks,
			Impressions: orNaN(rec.Impressions),
			CTR:         orNaN(rec.CTR),
			Position:    orNaN(rec.Position),
		})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("reading input: %w", err)
	}
	if len(recs) == 0 {
		return "", nil, fmt.Errorf("no records read from input (is stdin empty?)")
	}
	return dataset, recs, nil
}

// WriteJSONL writes records as JSONL to w. Missing metrics become null.
func WriteJSONL(w io.Writer, dataset string, recs []model.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		rec := map[string]interface{}{
			"dataset":     dataset,
			"date":        r.Date.Format("2006-01-02"),
			"clicks":      r.Clicks,
			"impressions": nilIfNaN(r.Impressions),
			"ctr":         nilIfNaN(r.CTR),
			"position":    nilIfNaN(r.Position),
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func nilIfNaN(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StdinIsPipe returns true if stdin has piped data rather than a terminal.
func StdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
