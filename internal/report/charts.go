package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/qualitylens/internal/analysis"
	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/KaramelBytes/qualitylens/internal/utils"
)

var (
	pointColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	lineColor  = color.RGBA{R: 200, G: 40, B: 40, A: 255}
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn
// at the top so the heatmap reads like the printed matrix.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) {
	n := len(g.m.Columns)
	return n, n
}

func (g corrGrid) Z(c, r int) float64 { return g.m.Values[len(g.m.Columns)-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrelationHeatmap draws the matrix with a diverging blue-red palette
// fixed to [-1, 1] and each coefficient printed in its cell.
func CorrelationHeatmap(m *analysis.CorrMatrix) (*plot.Plot, error) {
	n := len(m.Columns)
	if n == 0 {
		return nil, fmt.Errorf("heatmap: empty correlation matrix")
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	h := plotter.NewHeatMap(corrGrid{m}, cmap.Palette(255))
	h.Min, h.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(h)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	var cells plotter.XYLabels
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
		for j := range m.Columns {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.2f", m.Values[i][j]))
		}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)
	return p, nil
}

// PCAScatter plots the first two component scores of every row PCA used.
// With a single component the second axis is zero.
func PCAScatter(pca *analysis.PCAResult) (*plot.Plot, error) {
	if len(pca.Coords) == 0 {
		return nil, fmt.Errorf("pca scatter: no coordinates")
	}
	pts := make(plotter.XYs, len(pca.Coords))
	for i, c := range pca.Coords {
		pts[i].X = c[0]
		if len(c) > 1 {
			pts[i].Y = c[1]
		}
	}
	p := plot.New()
	p.Title.Text = "PCA: PC1 vs PC2"
	p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", 100*pca.ExplainedVarianceRatio[0])
	if pca.NumComponents() > 1 {
		p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", 100*pca.ExplainedVarianceRatio[1])
	} else {
		p.Y.Label.Text = "PC2 (n/a)"
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("pca scatter: %w", err)
	}
	s.Color = pointColor
	p.Add(s, plotter.NewGrid())
	return p, nil
}

// TimeSeries plots column over the timestamp key of t, skipping missing cells.
func TimeSeries(t *table.Table, key, column string) (*plot.Plot, error) {
	ki, ci := t.ColumnIndex(key), t.ColumnIndex(column)
	if ki < 0 || ci < 0 {
		return nil, fmt.Errorf("time series: table %q lacks %q or %q", t.Name, key, column)
	}
	var pts plotter.XYs
	for _, row := range t.Rows {
		if row[ki].IsMissing() || row[ci].IsMissing() {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(row[ki].Time.Unix()), Y: row[ci].Num})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("time series: column %q has no values", column)
	}
	p := plot.New()
	p.Title.Text = column + " over time"
	p.X.Label.Text = key
	p.Y.Label.Text = column
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("time series: %w", err)
	}
	line.Color = lineColor
	line.LineStyle.Width = vg.Points(1)
	points.Color = lineColor
	points.Radius = vg.Points(2)
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// Scatter plots y against x over the rows where both are present.
func Scatter(t *table.Table, x, y string) (*plot.Plot, error) {
	xi, yi := t.ColumnIndex(x), t.ColumnIndex(y)
	if xi < 0 || yi < 0 {
		return nil, fmt.Errorf("scatter: table %q lacks %q or %q", t.Name, x, y)
	}
	var pts plotter.XYs
	for _, row := range t.Rows {
		if row[xi].IsMissing() || row[yi].IsMissing() {
			continue
		}
		pts = append(pts, plotter.XY{X: row[xi].Num, Y: row[yi].Num})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("scatter: %q and %q never overlap", x, y)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", y, x)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.Color = pointColor
	s.Shape = draw.CircleGlyph{}
	p.Add(s, plotter.NewGrid())
	return p, nil
}

// savePNG renders p and writes it atomically to path.
func savePNG(p *plot.Plot, w, h vg.Length, path string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
