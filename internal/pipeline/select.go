package pipeline

import (
	"fmt"

	"github.com/KaramelBytes/qualitylens/internal/analysis"
	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/KaramelBytes/qualitylens/internal/timeseries"
)

// Selection names the columns the charts are drawn for.
type Selection struct {
	Series   string // plotted over time
	ScatterX string
	ScatterY string
}

// SuggestTimeColumn picks the first column of t whose non-empty values all
// parse as timestamps, or the first column when none does. It returns ""
// only for a table without columns.
func SuggestTimeColumn(t *table.Table) string {
	if len(t.Columns) == 0 {
		return ""
	}
	for j, c := range t.Columns {
		if c.Kind == table.KindTime {
			return c.Name
		}
		if c.Kind != table.KindText {
			continue
		}
		seen := 0
		ok := true
		for _, row := range t.Rows {
			v := row[j]
			if v.IsMissing() || v.Text == "" {
				continue
			}
			if _, err := timeseries.ParseTimestamp(v.Text); err != nil {
				ok = false
				break
			}
			seen++
		}
		if ok && seen > 0 {
			return c.Name
		}
	}
	return t.Columns[0].Name
}

// Select resolves the chart columns of in against the analyzed features.
// Unknown or non-numeric choices fall back to the first (or second)
// feature with a warning.
func Select(res *analysis.Result, in Input) (Selection, []string) {
	var warnings []string
	if len(res.Features) == 0 {
		return Selection{}, nil
	}
	first := res.Features[0]
	second := first
	if len(res.Features) > 1 {
		second = res.Features[1]
	}
	pick := func(role, want, fallback string) string {
		if want == "" {
			return fallback
		}
		for _, f := range res.Features {
			if f == want {
				return want
			}
		}
		warnings = append(warnings, fmt.Sprintf("%s column %q is not a numeric column of the merged table; using %q", role, want, fallback))
		return fallback
	}
	sel := Selection{
		Series:   pick("series", in.Series, first),
		ScatterX: pick("scatter x", in.ScatterX, first),
		ScatterY: pick("scatter y", in.ScatterY, second),
	}
	return sel, warnings
}
