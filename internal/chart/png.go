package chart

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/trafficast/trafficast/internal/model"
)

// Palette for the static charts.
var (
	colorHistory  = color.RGBA{R: 70, G: 130, B: 180, A: 255}  // steel blue
	colorForecast = color.RGBA{R: 214, G: 96, B: 77, A: 255}   // brick
	colorBound    = color.RGBA{R: 214, G: 96, B: 77, A: 110}   // translucent brick
	colorBar      = color.RGBA{R: 102, G: 166, B: 30, A: 255}  // olive
	colorRolling  = color.RGBA{R: 230, G: 145, B: 56, A: 255}  // orange
	colorHist     = color.RGBA{R: 117, G: 112, B: 179, A: 255} // violet
)

// Size is the pixel size of an exported chart.
type Size struct {
	WidthPx  int
	HeightPx int
}

// DefaultSize matches a 1000×600 on-screen chart.
var DefaultSize = Size{WidthPx: 1000, HeightPx: 600}

func (s Size) dims() (vg.Length, vg.Length) {
	w, h := s.WidthPx, s.HeightPx
	if w <= 0 {
		w = DefaultSize.WidthPx
	}
	if h <= 0 {
		h = DefaultSize.HeightPx
	}
	// Rendered at 96 DPI equivalent.
	return vg.Points(float64(w) * 72 / 96), vg.Points(float64(h) * 72 / 96)
}

func dateAxis(p *plot.Plot) {
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Label.Text = "Date"
}

// ─── Forecast chart ───────────────────────────────────────────────────────────

// SaveForecast writes the forecast chart: historical clicks as a scatter,
// the point forecast as a line, and the credible-interval bounds as dashed
// lines, matching the classic additive-model fit plot.
func SaveForecast(path string, s *model.Series, fr *model.ForecastResult, size Size) error {
	if len(fr.T) == 0 {
		return fmt.Errorf("chart forecast: empty forecast result")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Traffic Forecast — %s", s.Name)
	p.Y.Label.Text = "Daily Clicks"
	dateAxis(p)

	hist := make(plotter.XYs, len(s.Rows))
	for i, r := range s.Rows {
		hist[i].X = float64(r.Date.Unix())
		hist[i].Y = r.Clicks
	}
	scatter, err := plotter.NewScatter(hist)
	if err != nil {
		return fmt.Errorf("chart forecast: %w", err)
	}
	scatter.GlyphStyle.Color = colorHistory
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	line, err := timeLine(fr.T, fr.Point, colorForecast, nil)
	if err != nil {
		return fmt.Errorf("chart forecast: %w", err)
	}
	dashes := []vg.Length{vg.Points(4), vg.Points(3)}
	lower, err := timeLine(fr.T, fr.Lower, colorBound, dashes)
	if err != nil {
		return fmt.Errorf("chart forecast: %w", err)
	}
	upper, err := timeLine(fr.T, fr.Upper, colorBound, dashes)
	if err != nil {
		return fmt.Errorf("chart forecast: %w", err)
	}

	p.Add(scatter, line, lower, upper)
	p.Legend.Add("history", scatter)
	p.Legend.Add("forecast", line)
	p.Legend.Add("interval", lower)
	p.Legend.Top = true

	w, h := size.dims()
	return p.Save(w, h, path)
}

func timeLine(t []time.Time, vals []float64, c color.Color, dashes []vg.Length) (*plotter.Line, error) {
	xys := make(plotter.XYs, 0, len(t))
	for i := range t {
		if math.IsNaN(vals[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(t[i].Unix()), Y: vals[i]})
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	line.Dashes = dashes
	return line, nil
}

// ─── Pattern bar chart ────────────────────────────────────────────────────────

// SavePattern writes a bar chart of a weekly or monthly pattern table.
func SavePattern(path, title, yLabel string, entries []BarEntry, size Size) error {
	if len(entries) == 0 {
		return fmt.Errorf("chart pattern: no entries")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	values := make(plotter.Values, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.Value
		labels[i] = e.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("chart pattern: %w", err)
	}
	bars.Color = colorBar
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)

	w, h := size.dims()
	return p.Save(w, h, path)
}

// ─── Distribution histogram ───────────────────────────────────────────────────

// SaveHistogram writes a histogram of daily clicks.
func SaveHistogram(path, title string, values []float64, bins int, size Size) error {
	var clean plotter.Values
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return fmt.Errorf("chart histogram: no values")
	}
	if bins <= 0 {
		bins = 30
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Daily Clicks"
	p.Y.Label.Text = "Days"

	h, err := plotter.NewHist(clean, bins)
	if err != nil {
		return fmt.Errorf("chart histogram: %w", err)
	}
	h.FillColor = colorHist

	p.Add(h)

	w, ht := size.dims()
	return p.Save(w, ht, path)
}

// ─── Growth trend ─────────────────────────────────────────────────────────────

// SaveTrend writes the growth-trend chart: raw daily clicks as a faint line
// with the 30-day rolling mean on top.
func SaveTrend(path, title string, raw, rolling []model.Point, size Size) error {
	if len(raw) == 0 {
		return fmt.Errorf("chart trend: no points")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Daily Clicks"
	dateAxis(p)

	rawLine, err := pointLine(raw, color.RGBA{R: 70, G: 130, B: 180, A: 90})
	if err != nil {
		return fmt.Errorf("chart trend: %w", err)
	}
	rollLine, err := pointLine(rolling, colorRolling)
	if err != nil {
		return fmt.Errorf("chart trend: %w", err)
	}
	rollLine.Width = vg.Points(2)

	p.Add(rawLine, rollLine)
	p.Legend.Add("daily", rawLine)
	p.Legend.Add("30-day mean", rollLine)
	p.Legend.Top = true

	w, h := size.dims()
	return p.Save(w, h, path)
}

func pointLine(pts []model.Point, c color.Color) (*plotter.Line, error) {
	xys := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if pt.IsMissing() {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(pt.Date.Unix()), Y: pt.Value})
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = c
	return line, nil
}
