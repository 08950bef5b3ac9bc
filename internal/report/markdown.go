package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/qualitylens/internal/pipeline"
)

// maxCell caps the width of a head-row cell.
const maxCell = 80

// Markdown renders a run report. charts lists chart files to reference;
// headRows limits the merged-table preview (0 disables it).
func Markdown(rep *pipeline.Report, headRows int, charts []string) string {
	var b strings.Builder
	res := rep.Analysis

	b.WriteString("[MERGED DATA SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", rep.RunID))
	b.WriteString(fmt.Sprintf("Environment: %s (%d rows)\n", rep.EnvTable, rep.EnvRows))
	b.WriteString(fmt.Sprintf("Quality: %s (%d rows)\n", rep.QualTable, rep.QualRows))
	b.WriteString(fmt.Sprintf("Time column: %s\n", rep.TimeColumn))
	if m := rep.Merged; m != nil {
		b.WriteString(fmt.Sprintf("Merged rows: %d", m.Len()))
		if k := m.ColumnIndex(rep.TimeColumn); k >= 0 && m.Len() > 0 {
			b.WriteString(fmt.Sprintf(" (%s to %s)", m.Rows[0][k], m.Rows[m.Len()-1][k]))
		}
		b.WriteString(fmt.Sprintf("\nColumns: %d\n", len(m.Columns)))
	}
	if res != nil {
		b.WriteString(fmt.Sprintf("Numeric features: %d (complete rows %d, correlations %s)\n", len(res.Features), res.CompleteRows, res.Policy))
	}

	if res != nil && len(res.Summary) > 0 {
		b.WriteString("\n[DESCRIBE]\n")
		b.WriteString("| column | count | missing | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range res.Summary {
			if s.NonNull == 0 {
				b.WriteString(fmt.Sprintf("| %s | 0 | %d | | | | | | | |\n", safeName(s.Name), s.Missing))
				continue
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				safeName(s.Name), s.NonNull, s.Missing, s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max))
		}
	}

	if res != nil && res.Corr != nil {
		c := res.Corr
		b.WriteString("\n[CORRELATION MATRIX]\n")
		b.WriteString("| |")
		for _, name := range c.Columns {
			b.WriteString(" " + safeName(name) + " |")
		}
		b.WriteString("\n| --- |")
		for range c.Columns {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for i, name := range c.Columns {
			b.WriteString("| " + safeName(name) + " |")
			for j := range c.Columns {
				b.WriteString(fmt.Sprintf(" %.3f |", c.Values[i][j]))
			}
			b.WriteString("\n")
		}
		if pairs := res.TopPairs(10); len(pairs) > 0 {
			b.WriteString("\n[TOP CORRELATIONS]\n")
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", p.A, p.B, p.R, p.N))
			}
		}
	}

	if res != nil && res.PCA != nil && res.PCA.NumComponents() > 0 {
		p := res.PCA
		b.WriteString("\n[PCA]\n")
		b.WriteString(fmt.Sprintf("Rows used: %d of %d\n", len(p.Coords), res.Rows))
		b.WriteString("| component | eigenvalue | explained | cumulative |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for c := 0; c < p.NumComponents(); c++ {
			b.WriteString(fmt.Sprintf("| PC%d | %.4g | %.1f%% | %.1f%% |\n",
				c+1, p.ExplainedVariance[c], 100*p.ExplainedVarianceRatio[c], 100*p.CumulativeRatio(c+1)))
		}
		k := 2
		if p.NumComponents() < k {
			k = p.NumComponents()
		}
		b.WriteString(fmt.Sprintf("First %d component(s) explain %.1f%% of the variance.\n", k, 100*p.CumulativeRatio(k)))
		b.WriteString("\nLoadings:\n")
		b.WriteString("| feature |")
		for c := 0; c < k; c++ {
			b.WriteString(fmt.Sprintf(" PC%d |", c+1))
		}
		b.WriteString("\n| --- |")
		for c := 0; c < k; c++ {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for j, f := range p.Features {
			b.WriteString("| " + safeName(f) + " |")
			for c := 0; c < k; c++ {
				b.WriteString(fmt.Sprintf(" %.3f |", p.Components[c][j]))
			}
			b.WriteString("\n")
		}
	}

	if m := rep.Merged; m != nil && headRows > 0 && m.Len() > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		b.WriteString("| ")
		for i, c := range m.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range m.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range m.Head(headRows) {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(truncateCell(val)))
			}
			b.WriteString(" |\n")
		}
	}

	if len(charts) > 0 {
		b.WriteString("\n[CHARTS]\n")
		for _, c := range charts {
			b.WriteString("- " + c + "\n")
		}
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range rep.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// truncateCell shortens s to maxCell runes so multi-byte letters stay whole.
func truncateCell(s string) string {
	if utf8.RuneCountInString(s) <= maxCell {
		return s
	}
	return string([]rune(s)[:maxCell-3]) + "..."
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
