package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ColumnSummary captures descriptive statistics of one numeric column.
type ColumnSummary struct {
	Name    string
	NonNull int
	Missing int
	Mean    float64
	Std     float64 // sample standard deviation; 0 with fewer than two values
	Min     float64
	Q25     float64
	Median  float64
	Q75     float64
	Max     float64
}

// describe summarizes every column of block; NaN marks a missing cell.
func describe(names []string, block [][]float64) []ColumnSummary {
	out := make([]ColumnSummary, len(names))
	for j, name := range names {
		var vals []float64
		for _, r := range block {
			if !math.IsNaN(r[j]) {
				vals = append(vals, r[j])
			}
		}
		s := ColumnSummary{Name: name, NonNull: len(vals), Missing: len(block) - len(vals)}
		if len(vals) > 0 {
			sort.Float64s(vals)
			s.Min = vals[0]
			s.Max = vals[len(vals)-1]
			s.Q25 = quantile(vals, 0.25)
			s.Median = quantile(vals, 0.5)
			s.Q75 = quantile(vals, 0.75)
			s.Mean = stat.Mean(vals, nil)
			if len(vals) > 1 {
				s.Std = stat.StdDev(vals, nil)
			}
		}
		out[j] = s
	}
	return out
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
