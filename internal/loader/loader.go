// Package loader reads tabular traffic exports and validates their schema.
// It fails fast on a missing file or missing required columns; individual
// malformed rows are reported as warnings, not errors.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/util"
)

// Columns maps logical fields to header names in the export. Matching is
// case-insensitive. Zero values fall back to the Search Console defaults.
type Columns struct {
	Date        string `json:"date"`
	Clicks      string `json:"clicks"`
	Impressions string `json:"impressions"`
	CTR         string `json:"ctr"`
	Position    string `json:"position"`
}

// DefaultColumns returns the Search Console export header names.
func DefaultColumns() Columns {
	return Columns{
		Date:        "Date",
		Clicks:      "Clicks",
		Impressions: "Impressions",
		CTR:         "CTR",
		Position:    "Position",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Date == "" {
		c.Date = d.Date
	}
	if c.Clicks == "" {
		c.Clicks = d.Clicks
	}
	if c.Impressions == "" {
		c.Impressions = d.Impressions
	}
	if c.CTR == "" {
		c.CTR = d.CTR
	}
	if c.Position == "" {
		c.Position = d.Position
	}
	return c
}

// LoadCSV reads a traffic export from path.
// Returns the parsed records in file order plus per-row warnings.
func LoadCSV(path string, cols Columns) ([]model.Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("data file not found: %s", path)
		}
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, warnings, err := Read(f, cols)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, warnings, nil
}

// Read parses a traffic export from r. The first row must be a header
// containing all required columns.
func Read(r io.Reader, cols Columns) ([]model.Record, []string, error) {
	cols = cols.withDefaults()

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // ragged rows handled per-row below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	idx, err := resolveHeader(header, cols)
	if err != nil {
		return nil, nil, err
	}

	var recs []model.Record
	var warnings []string
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if blankRow(row) {
			continue
		}
		rec, warn := parseRow(row, idx, line)
		if warn != "" {
			warnings = append(warnings, warn)
			continue
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, warnings, fmt.Errorf("no parseable data rows")
	}
	return recs, warnings, nil
}

// columnIndex holds the resolved position of each required column.
type columnIndex struct {
	date, clicks, impressions, ctr, position int
}

// resolveHeader matches required column names against the header row,
// case-insensitively. All five columns are required; the error names every
// missing one.
func resolveHeader(header []string, cols Columns) (columnIndex, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		date:        find(cols.Date),
		clicks:      find(cols.Clicks),
		impressions: find(cols.Impressions),
		ctr:         find(cols.CTR),
		position:    find(cols.Position),
	}

	var missing []string
	for _, c := range []struct {
		name string
		pos  int
	}{
		{cols.Date, idx.date},
		{cols.Clicks, idx.clicks},
		{cols.Impressions, idx.impressions},
		{cols.CTR, idx.ctr},
		{cols.Position, idx.position},
	} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("missing required columns: %s (header: %s)",
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return idx, nil
}

func parseRow(row []string, idx columnIndex, line int) (model.Record, string) {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	date, err := util.ParseDate(get(idx.date))
	if err != nil {
		return model.Record{}, fmt.Sprintf("line %d: %v", line, err)
	}

	clicks := util.ParseCount(get(idx.clicks))
	if math.IsNaN(clicks) {
		return model.Record{}, fmt.Sprintf("line %d: unparseable clicks value %q", line, get(idx.clicks))
	}

	return model.Record{
		Date:        date,
		Clicks:      clicks,
		Impressions: util.ParseCount(get(idx.impressions)),
		CTR:         util.ParseCTR(get(idx.ctr)),
		Position:    util.ParseFloat(get(idx.position)),
	}, ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
