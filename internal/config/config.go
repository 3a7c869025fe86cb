// Package config handles loading and resolving trafficast configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags
//  2. Environment variables (TRAFFICAST_*)
//  3. trafficast.json in the current working directory
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trafficast/trafficast/internal/forecast"
	"github.com/trafficast/trafficast/internal/loader"
	"github.com/trafficast/trafficast/internal/preprocess"
)

const (
	DefaultConfigFile = "trafficast.json"
	DefaultFormat     = "table"
	DefaultExportDir  = "charts"
	EnvDBPath         = "TRAFFICAST_DB_PATH"
	EnvFormat         = "TRAFFICAST_FORMAT"
)

// ModelFile is the forecast-model section of trafficast.json.
// Zero values mean "use the built-in default".
type ModelFile struct {
	Growth          string  `json:"growth"`
	SeasonalityMode string  `json:"seasonality_mode"`
	Changepoints    int     `json:"changepoints"`
	IntervalWidth   float64 `json:"interval_width"`
	ValidationDays  int     `json:"validation_days"`
	WeeklyOrder     int     `json:"weekly_fourier_order"`
	YearlyOrder     int     `json:"yearly_fourier_order"`
	MonthlyOrder    int     `json:"monthly_fourier_order"`
	Iterations      int     `json:"iterations"`
}

// ChartFile is the chart-export section of trafficast.json.
type ChartFile struct {
	WidthPx   int    `json:"width_px"`
	HeightPx  int    `json:"height_px"`
	ExportDir string `json:"export_dir"`
}

// File is the on-disk representation of trafficast.json.
type File struct {
	DefaultFormat string            `json:"default_format"`
	DBPath        string            `json:"db_path"`
	OutlierZ      float64           `json:"outlier_z"`
	Columns       map[string]string `json:"columns"`
	Model         ModelFile         `json:"model"`
	Chart         ChartFile         `json:"chart"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Format     string
	DBPath     string
	OutlierZ   float64
	Columns    loader.Columns
	Model      ModelFile
	Chart      ChartFile
	ConfigPath string // path of the trafficast.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
}

// Load resolves configuration from all sources.
func Load() (*Config, error) {
	cfg := &Config{
		Format:   DefaultFormat,
		OutlierZ: preprocess.DefaultOutlierZ,
		Columns:  loader.DefaultColumns(),
		Chart:    ChartFile{ExportDir: DefaultExportDir},
	}

	// Layer 1: trafficast.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}

	// CLI flags are applied by the command layer after Load().

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".trafficast", "trafficast.db")
		}
	}

	return cfg, nil
}

// ForecastConfig builds a forecast.Config from the defaults overlaid with
// any model settings from trafficast.json.
func (c *Config) ForecastConfig() forecast.Config {
	fc := forecast.DefaultConfig()
	m := c.Model
	if m.Growth != "" {
		fc.Growth = m.Growth
	}
	if m.SeasonalityMode != "" {
		fc.SeasonalityMode = m.SeasonalityMode
	}
	if m.Changepoints > 0 {
		fc.Changepoints = m.Changepoints
	}
	if m.IntervalWidth > 0 {
		fc.IntervalWidth = m.IntervalWidth
	}
	if m.ValidationDays > 0 {
		fc.ValidationDays = m.ValidationDays
	}
	if m.WeeklyOrder > 0 {
		fc.WeeklyFourierOrder = m.WeeklyOrder
	}
	if m.YearlyOrder > 0 {
		fc.YearlyFourierOrder = m.YearlyOrder
	}
	if m.MonthlyOrder > 0 {
		fc.MonthlyFourierOrder = m.MonthlyOrder
	}
	if m.Iterations > 0 {
		fc.Iterations = m.Iterations
	}
	return fc
}

// loadFile attempts to read trafficast.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("trafficast.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading trafficast.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing trafficast.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.OutlierZ > 0 {
		cfg.OutlierZ = f.OutlierZ
	}
	if len(f.Columns) > 0 {
		applyColumns(&cfg.Columns, f.Columns)
	}
	cfg.Model = f.Model
	if f.Chart.WidthPx > 0 {
		cfg.Chart.WidthPx = f.Chart.WidthPx
	}
	if f.Chart.HeightPx > 0 {
		cfg.Chart.HeightPx = f.Chart.HeightPx
	}
	if f.Chart.ExportDir != "" {
		cfg.Chart.ExportDir = f.Chart.ExportDir
	}
}

// applyColumns overrides CSV header names from the "columns" map.
// Keys: date, clicks, impressions, ctr, position.
func applyColumns(cols *loader.Columns, m map[string]string) {
	if v := m["date"]; v != "" {
		cols.Date = v
	}
	if v := m["clicks"]; v != "" {
		cols.Clicks = v
	}
	if v := m["impressions"]; v != "" {
		cols.Impressions = v
	}
	if v := m["ctr"]; v != "" {
		cols.CTR = v
	}
	if v := m["position"]; v != "" {
		cols.Position = v
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial trafficast.json via `trafficast config init`.
func Template() File {
	cols := loader.DefaultColumns()
	return File{
		DefaultFormat: DefaultFormat,
		OutlierZ:      preprocess.DefaultOutlierZ,
		Columns: map[string]string{
			"date":        cols.Date,
			"clicks":      cols.Clicks,
			"impressions": cols.Impressions,
			"ctr":         cols.CTR,
			"position":    cols.Position,
		},
		Model: ModelFile{
			Growth:          "linear",
			SeasonalityMode: "multiplicative",
			Changepoints:    25,
			IntervalWidth:   0.95,
			ValidationDays:  60,
		},
		Chart: ChartFile{
			WidthPx:   1000,
			HeightPx:  600,
			ExportDir: DefaultExportDir,
		},
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
