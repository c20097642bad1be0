// Package charts renders report figures as PNG files.
package charts

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/miradorstack/mirador-churn/internal/models"
)

var (
	churnColor = color.RGBA{R: 214, G: 69, B: 65, A: 255}
	baseColor  = color.RGBA{R: 52, G: 101, B: 164, A: 255}
	lineColors = []color.Color{
		color.RGBA{R: 52, G: 101, B: 164, A: 255},
		color.RGBA{R: 78, G: 154, B: 6, A: 255},
		color.RGBA{R: 196, G: 160, B: 0, A: 255},
		color.RGBA{R: 117, G: 80, B: 123, A: 255},
		color.RGBA{R: 206, G: 92, B: 0, A: 255},
		color.RGBA{R: 85, G: 87, B: 83, A: 255},
	}
)

// ChurnRateBar draws the churn rate of every value of one field.
func ChurnRateBar(path, field string, rates []models.GroupRate, baseline float64) error {
	if len(rates) == 0 {
		return fmt.Errorf("chart %s: no groups", field)
	}
	values := make(plotter.Values, len(rates))
	labels := make([]string, len(rates))
	for i, r := range rates {
		values[i] = r.Rate
		labels[i] = r.Value
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Churn rate by %s", field)
	p.Y.Label.Text = "Churn rate"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(28))
	if err != nil {
		return fmt.Errorf("chart %s: %w", field, err)
	}
	bars.Color = churnColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	if baseline > 0 {
		line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: baseline}, {X: float64(len(rates)) - 0.5, Y: baseline}})
		if err != nil {
			return fmt.Errorf("chart %s: %w", field, err)
		}
		line.Color = baseColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("overall", line)
	}

	width := vg.Length(len(rates)+2) * vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	return save(p, width, 4*vg.Inch, path)
}

// TenureLines draws churn rate and service adoption against tenure.
func TenureLines(path string, profile []models.TenureAggregate, services []string) error {
	if len(profile) == 0 {
		return fmt.Errorf("tenure chart: empty profile")
	}

	p := plot.New()
	p.Title.Text = "Customer lifecycle by tenure"
	p.X.Label.Text = "Tenure (months)"
	p.Y.Label.Text = "Share of customers"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Legend.Top = true

	churn := make(plotter.XYs, len(profile))
	for i, agg := range profile {
		churn[i].X = float64(agg.Tenure)
		churn[i].Y = agg.ChurnRate
	}
	line, err := plotter.NewLine(churn)
	if err != nil {
		return fmt.Errorf("tenure chart: %w", err)
	}
	line.Color = churnColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("churn rate", line)

	for k, service := range services {
		pts := make(plotter.XYs, len(profile))
		for i, agg := range profile {
			pts[i].X = float64(agg.Tenure)
			pts[i].Y = agg.Adoption[service]
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("tenure chart %s: %w", service, err)
		}
		l.Color = lineColors[k%len(lineColors)]
		p.Add(l)
		p.Legend.Add(service, l)
	}

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// ImportanceBar draws normalised feature importance, highest first.
func ImportanceBar(path, model string, importance []models.FeatureImportance) error {
	if len(importance) == 0 {
		return fmt.Errorf("importance chart: no features")
	}
	values := make(plotter.Values, len(importance))
	labels := make([]string, len(importance))
	for i, fi := range importance {
		// Horizontal bars are drawn bottom-up.
		k := len(importance) - 1 - i
		values[k] = fi.Normalized
		labels[k] = fi.Field
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Feature importance (%s)", model)
	p.X.Label.Text = "Share of mean decrease in Gini"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("importance chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = baseColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	return save(p, 7*vg.Inch, vg.Length(len(importance))*0.3*vg.Inch+vg.Inch, path)
}

func save(p *plot.Plot, width, height vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
