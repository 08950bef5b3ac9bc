package report

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/qualitylens/internal/pipeline"
	"github.com/KaramelBytes/qualitylens/internal/utils"
)

// Writer presents a run as Markdown plus PNG charts.
type Writer struct {
	// Out receives the Markdown when OutputPath is empty.
	Out io.Writer
	// OutputPath, when set, receives the Markdown atomically instead of Out.
	OutputPath string
	// ChartsDir is the parent directory of per-run chart folders. Empty
	// disables charts.
	ChartsDir string
	HeadRows  int
	// Chart size in inches.
	Width, Height float64
	// Status, when set, receives one confirmation line per written file.
	Status io.Writer
}

// Present renders charts first so the Markdown can list them, then writes
// the report.
func (w *Writer) Present(rep *pipeline.Report) error {
	charts, err := w.writeCharts(rep)
	if err != nil {
		return err
	}
	md := Markdown(rep, w.HeadRows, charts)
	if w.OutputPath != "" {
		if err := utils.SafeWriteFile(w.OutputPath, []byte(md)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		w.status("✓ Wrote report to %s\n", w.OutputPath)
		return nil
	}
	if w.Out == nil {
		return nil
	}
	_, err = io.WriteString(w.Out, md)
	return err
}

func (w *Writer) status(format string, args ...any) {
	if w.Status != nil {
		fmt.Fprintf(w.Status, format, args...)
	}
}

type chartJob struct {
	file  string
	build func() (*plot.Plot, error)
}

func (w *Writer) writeCharts(rep *pipeline.Report) ([]string, error) {
	if w.ChartsDir == "" || rep.Analysis == nil || rep.Merged == nil {
		return nil, nil
	}
	dir := filepath.Join(w.ChartsDir, rep.RunID)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create charts dir: %w", err)
	}
	width, height := w.Width, w.Height
	if width <= 0 {
		width = 6
	}
	if height <= 0 {
		height = 4
	}

	res, sel := rep.Analysis, rep.Selection
	jobs := []chartJob{
		{"correlation_heatmap.png", func() (*plot.Plot, error) { return CorrelationHeatmap(res.Corr) }},
		{"pca_scatter.png", func() (*plot.Plot, error) { return PCAScatter(res.PCA) }},
	}
	if sel.Series != "" {
		jobs = append(jobs, chartJob{"series_" + fileSafe(sel.Series) + ".png", func() (*plot.Plot, error) {
			return TimeSeries(rep.Merged, rep.TimeColumn, sel.Series)
		}})
	}
	if sel.ScatterX != "" && sel.ScatterY != "" {
		jobs = append(jobs, chartJob{"scatter_" + fileSafe(sel.ScatterX) + "_" + fileSafe(sel.ScatterY) + ".png", func() (*plot.Plot, error) {
			return Scatter(rep.Merged, sel.ScatterX, sel.ScatterY)
		}})
	}

	var written []string
	for _, j := range jobs {
		p, err := j.build()
		if err != nil {
			// a chart without data is skipped, not fatal
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("chart %s skipped: %v", j.file, err))
			continue
		}
		path := filepath.Join(dir, j.file)
		if err := savePNG(p, vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, path); err != nil {
			return written, err
		}
		written = append(written, path)
		w.status("✓ Wrote chart %s\n", path)
	}
	return written, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileSafe(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "column"
	}
	return s
}
