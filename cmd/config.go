package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trafficast/trafficast/internal/config"
	"github.com/trafficast/trafficast/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage trafficast configuration",
	Long:  `Read and write trafficast configuration stored in trafficast.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template trafficast.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("trafficast.json already exists at %s (delete it first to re-initialise)", path)
		}
		tmpl := config.Template()
		if err := config.WriteFile(path, tmpl); err != nil {
			return err
		}
		fmt.Printf("✓ Created %s\n", path)
		fmt.Println("  Edit the columns map if your CSV headers differ from Search Console's.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		format := resolveFormat(cfg.Format)
		if format == "json" {
			type configOut struct {
				Format     string            `json:"default_format"`
				DBPath     string            `json:"db_path"`
				OutlierZ   float64           `json:"outlier_z"`
				Columns    map[string]string `json:"columns"`
				Model      config.ModelFile  `json:"model"`
				Chart      config.ChartFile  `json:"chart"`
				ConfigFile string            `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				Format:   cfg.Format,
				DBPath:   cfg.DBPath,
				OutlierZ: cfg.OutlierZ,
				Columns: map[string]string{
					"date":        cfg.Columns.Date,
					"clicks":      cfg.Columns.Clicks,
					"impressions": cfg.Columns.Impressions,
					"ctr":         cfg.Columns.CTR,
					"position":    cfg.Columns.Position,
				},
				Model:      cfg.Model,
				Chart:      cfg.Chart,
				ConfigFile: src,
			})
		}

		fc := cfg.ForecastConfig()
		rows := [][]string{
			{"default_format", cfg.Format},
			{"db_path", cfg.DBPath},
			{"outlier_z", util.FormatValue(cfg.OutlierZ)},
			{"date_col", cfg.Columns.Date},
			{"clicks_col", cfg.Columns.Clicks},
			{"growth", fc.Growth},
			{"seasonality_mode", fc.SeasonalityMode},
			{"changepoints", fmt.Sprintf("%d", fc.Changepoints)},
			{"interval_width", fmt.Sprintf("%.2f", fc.IntervalWidth)},
			{"validation_days", fmt.Sprintf("%d", fc.ValidationDays)},
			{"chart_export_dir", cfg.Chart.ExportDir},
			{"config_file", src},
		}
		printKVTableTo(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
