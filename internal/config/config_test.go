package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trafficast/trafficast/internal/config"
)

func TestTemplateDefaults(t *testing.T) {
	f := config.Template()
	if f.DefaultFormat != "table" {
		t.Errorf("DefaultFormat: expected table, got %q", f.DefaultFormat)
	}
	if f.Model.Growth != "linear" || f.Model.SeasonalityMode != "multiplicative" {
		t.Errorf("unexpected model defaults: %+v", f.Model)
	}
	if f.Model.IntervalWidth != 0.95 || f.Model.ValidationDays != 60 {
		t.Errorf("unexpected model defaults: %+v", f.Model)
	}
	if f.Chart.WidthPx != 1000 || f.Chart.HeightPx != 600 {
		t.Errorf("unexpected chart defaults: %+v", f.Chart)
	}
	if f.Columns["date"] == "" || f.Columns["clicks"] == "" {
		t.Errorf("expected column defaults, got %v", f.Columns)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "table" {
		t.Errorf("Format: expected table, got %q", cfg.Format)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty with no file, got %q", cfg.ConfigPath)
	}
	if cfg.Columns.Date == "" || cfg.Columns.Clicks == "" {
		t.Errorf("expected default columns, got %+v", cfg.Columns)
	}
}

func TestLoadLayersFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := config.File{
		DefaultFormat: "json",
		DBPath:        filepath.Join(dir, "custom.db"),
		OutlierZ:      2.5,
		Columns:       map[string]string{"clicks": "total_clicks"},
		Model:         config.ModelFile{Changepoints: 10, IntervalWidth: 0.8},
	}
	if err := config.WriteFile(config.DefaultConfigFile, file); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format: expected json, got %q", cfg.Format)
	}
	if cfg.DBPath != file.DBPath {
		t.Errorf("DBPath: expected %q, got %q", file.DBPath, cfg.DBPath)
	}
	if cfg.OutlierZ != 2.5 {
		t.Errorf("OutlierZ: expected 2.5, got %g", cfg.OutlierZ)
	}
	if cfg.Columns.Clicks != "total_clicks" {
		t.Errorf("Columns.Clicks: expected total_clicks, got %q", cfg.Columns.Clicks)
	}
	if cfg.Columns.Date == "" {
		t.Error("unmapped columns should keep their defaults")
	}
	if cfg.ConfigPath == "" {
		t.Error("ConfigPath should record the loaded file")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := config.File{DefaultFormat: "json", DBPath: "/from/file.db"}
	if err := config.WriteFile(config.DefaultConfigFile, file); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(config.EnvFormat, "csv")
	t.Setenv(config.EnvDBPath, "/from/env.db")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "csv" {
		t.Errorf("env should beat file: expected csv, got %q", cfg.Format)
	}
	if cfg.DBPath != "/from/env.db" {
		t.Errorf("env should beat file: expected /from/env.db, got %q", cfg.DBPath)
	}
}

func TestForecastConfigOverlay(t *testing.T) {
	cfg := &config.Config{
		Model: config.ModelFile{
			Growth:        "flat",
			Changepoints:  10,
			IntervalWidth: 0.8,
		},
	}
	fc := cfg.ForecastConfig()
	if fc.Growth != "flat" {
		t.Errorf("Growth: expected flat, got %q", fc.Growth)
	}
	if fc.Changepoints != 10 {
		t.Errorf("Changepoints: expected 10, got %d", fc.Changepoints)
	}
	if fc.IntervalWidth != 0.8 {
		t.Errorf("IntervalWidth: expected 0.8, got %g", fc.IntervalWidth)
	}
	// Fields not set in the file keep the built-in defaults.
	if fc.SeasonalityMode == "" || fc.ValidationDays == 0 {
		t.Errorf("unset fields should fall back to defaults: %+v", fc)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trafficast.json")
	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Error("expected trailing newline in written config")
	}
}
