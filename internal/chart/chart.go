// Package chart renders the explanation and evaluation figures as PNG bytes.
package chart

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	barColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	positiveColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	negativeColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

const (
	width  = 7 * vg.Inch
	height = 4 * vg.Inch
)

// HorizontalBars draws one bar per label, bottom to top in the given order.
func HorizontalBars(title, xLabel string, labels []string, values []float64) ([]byte, error) {
	if len(labels) != len(values) || len(values) == 0 {
		return nil, fmt.Errorf("chart: %d labels for %d values", len(labels), len(values))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	return render(p)
}

// SignedBars draws horizontal bars coloured by sign: green for positive
// values and red for negative ones.
func SignedBars(title, xLabel string, labels []string, values []float64) ([]byte, error) {
	if len(labels) != len(values) || len(values) == 0 {
		return nil, fmt.Errorf("chart: %d labels for %d values", len(labels), len(values))
	}

	pos := make(plotter.Values, len(values))
	neg := make(plotter.Values, len(values))
	for i, v := range values {
		if v >= 0 {
			pos[i] = v
		} else {
			neg[i] = v
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel

	for _, set := range []struct {
		vals plotter.Values
		c    color.Color
	}{{pos, positiveColor}, {neg, negativeColor}} {
		bars, err := plotter.NewBarChart(set.vals, vg.Points(12))
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		bars.Horizontal = true
		bars.Color = set.c
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.Add(plotter.NewGrid())
	p.NominalY(labels...)

	return render(p)
}

// grid adapts a row-major matrix to plotter.GridXYZ.
// Column c is drawn at x = c and row r at y = r.
type grid struct {
	z [][]float64
}

func (g grid) Dims() (c, r int)   { return len(g.z[0]), len(g.z) }
func (g grid) Z(c, r int) float64 { return g.z[r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// Heatmap draws z as coloured cells annotated with their values.
// Rows follow yLabels and columns follow xLabels.
func Heatmap(title, xLabel, yLabel string, xLabels, yLabels []string, z [][]float64) ([]byte, error) {
	if len(z) == 0 || len(z) != len(yLabels) {
		return nil, fmt.Errorf("chart: %d rows for %d row labels", len(z), len(yLabels))
	}
	for _, row := range z {
		if len(row) != len(xLabels) {
			return nil, fmt.Errorf("chart: row has %d cells for %d column labels", len(row), len(xLabels))
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	hm := plotter.NewHeatMap(grid{z: z}, palette.Heat(12, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	var annotations plotter.XYLabels
	for r, row := range z {
		for c, v := range row {
			annotations.XYs = append(annotations.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			annotations.Labels = append(annotations.Labels, fmt.Sprintf("%g", v))
		}
	}
	labels, err := plotter.NewLabels(annotations)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	p.Add(labels)

	p.NominalX(xLabels...)
	p.NominalY(yLabels...)

	return render(p)
}

func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart: render png: %w", err)
	}
	return buf.Bytes(), nil
}
