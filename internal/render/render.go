// Package render converts Result values into human-readable or
// machine-parseable output. Every kind lowers to a header+rows table; the
// table, csv, tsv, and md renderers share that tabulation, while json and
// jsonl serialize the payload directly.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/trafficast/trafficast/internal/analyze"
	"github.com/trafficast/trafficast/internal/model"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON / JSONL ─────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case *model.Series:
		for _, r := range data.Rows {
			rec := map[string]interface{}{
				"dataset": data.Name,
				"date":    r.Date.Format("2006-01-02"),
				"clicks":  r.Clicks,
			}
			if !math.IsNaN(r.Impressions) {
				rec["impressions"] = r.Impressions
			}
			if !math.IsNaN(r.CTR) {
				rec["ctr"] = r.CTR
			}
			if !math.IsNaN(r.Position) {
				rec["position"] = r.Position
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	case []model.Prediction:
		for _, p := range data {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Tabulation ───────────────────────────────────────────────────────────────

// tabulate lowers a result payload to headers plus rows of strings.
func tabulate(result *model.Result) ([]string, [][]string, error) {
	switch data := result.Data.(type) {
	case *model.Series:
		headers := []string{"DATE", "CLICKS", "IMPRESSIONS", "CTR", "POSITION", "OUTLIER"}
		rows := make([][]string, 0, len(data.Rows))
		for _, r := range data.Rows {
			outlier := ""
			if r.Features.Outlier {
				outlier = fmt.Sprintf("z=%.2f", r.Features.ZScore)
			}
			rows = append(rows, []string{
				r.Date.Format("2006-01-02"),
				fmtNum(r.Clicks),
				fmtNum(r.Impressions),
				fmtPct(r.CTR * 100),
				fmtNum(r.Position),
				outlier,
			})
		}
		return headers, rows, nil

	case analyze.Summary:
		return kvRows([][2]string{
			{"dataset", data.Dataset},
			{"count", fmt.Sprintf("%d", data.Count)},
			{"start", data.Start.Format("2006-01-02")},
			{"end", data.End.Format("2006-01-02")},
			{"mean", fmtNum(data.Mean)},
			{"median", fmtNum(data.Median)},
			{"std", fmtNum(data.Std)},
			{"min", fmtNum(data.Min)},
			{"p25", fmtNum(data.P25)},
			{"p75", fmtNum(data.P75)},
			{"max", fmtNum(data.Max)},
			{"cv", fmtNum(data.CV)},
			{"skew", fmtNum(data.Skew)},
		})

	case []analyze.PatternEntry:
		headers := []string{"PERIOD", "AVG CLICKS", "REL STRENGTH", "DAYS"}
		rows := make([][]string, 0, len(data))
		for _, e := range data {
			rows = append(rows, []string{
				e.Label,
				fmtNum(e.AvgClicks),
				fmtPct(e.RelStrength),
				fmt.Sprintf("%d", e.Days),
			})
		}
		return headers, rows, nil

	case analyze.Growth:
		return kvRows([][2]string{
			{"dataset", data.Dataset},
			{"first_30_days_avg", fmtNum(data.First30Avg)},
			{"last_30_days_avg", fmtNum(data.Last30Avg)},
			{"total_growth_pct", fmtPct(data.TotalGrowthPct)},
			{"avg_monthly_growth_pct", fmtPct(data.AvgMonthlyGrowth)},
			{"months", fmt.Sprintf("%d", data.Months)},
		})

	case []analyze.Anomaly:
		headers := []string{"DATE", "CLICKS", "Z-SCORE"}
		rows := make([][]string, 0, len(data))
		for _, a := range data {
			rows = append(rows, []string{
				a.Date.Format("2006-01-02"),
				fmtNum(a.Clicks),
				fmt.Sprintf("%+.2f", a.ZScore),
			})
		}
		return headers, rows, nil

	case analyze.Seasonality:
		return kvRows([][2]string{
			{"dataset", data.Dataset},
			{"weekly_strength", fmtNum(data.WeeklyStrength)},
			{"monthly_strength", fmtNum(data.MonthlyStrength)},
		})

	case []model.Prediction:
		headers := []string{"DATE", "PREDICTED", "LOWER BOUND", "UPPER BOUND"}
		rows := make([][]string, 0, len(data))
		for _, p := range data {
			rows = append(rows, []string{
				p.Date.Format("2006-01-02"),
				fmt.Sprintf("%d", p.Predicted),
				fmt.Sprintf("%d", p.LowerBound),
				fmt.Sprintf("%d", p.UpperBound),
			})
		}
		return headers, rows, nil

	case *model.ValidationMetrics:
		if data == nil {
			return kvRows([][2]string{{"validation", "skipped (no holdout)"}})
		}
		return kvRows([][2]string{
			{"train_rows", fmt.Sprintf("%d", data.TrainRows)},
			{"test_rows", fmt.Sprintf("%d", data.TestRows)},
			{"mae", fmtNum(data.MAE)},
			{"mape", fmtPct(data.MAPE)},
			{"rmse", fmtNum(data.RMSE)},
			{"coverage", fmtPct(data.Coverage)},
		})

	default:
		return nil, nil, fmt.Errorf("render: no tabulation for kind %q", result.Kind)
	}
}

func kvRows(pairs [][2]string) ([]string, [][]string, error) {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}
	return []string{"FIELD", "VALUE"}, rows, nil
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	headers, rows, err := tabulate(result)
	if err != nil {
		// Fallback: JSON
		return renderJSON(w, result)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	headers, rows, err := tabulate(result)
	if err != nil {
		b, _ := json.Marshal(result.Data)
		fmt.Fprintln(w, string(b))
		return nil
	}

	cw := csv.NewWriter(w)
	cw.Comma = sep

	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.ReplaceAll(h, " ", "_"))
	}
	_ = cw.Write(lower)
	for _, r := range rows {
		_ = cw.Write(r)
	}
	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	headers, rows, err := tabulate(result)
	if err != nil {
		return renderJSON(w, result)
	}

	fmt.Fprintf(w, "| %s |\n", strings.Join(headers, " | "))
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "----"
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, r := range rows {
		escaped := make([]string, len(r))
		for i, c := range r {
			escaped[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// fmtNum formats a metric for display. Always shows at least one decimal
// place; trims unnecessary trailing zeros. Missing values (NaN) render as ".".
func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	s := strings.TrimRight(fmt.Sprintf("%.4f", v), "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func fmtPct(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%+.2f%%", v)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
