package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MissingPolicy selects which rows feed a correlation coefficient.
type MissingPolicy int

const (
	// MissingPairwise uses, for each pair, every row where both values exist.
	MissingPairwise MissingPolicy = iota
	// MissingListwise uses only rows where every feature exists.
	MissingListwise
)

func (p MissingPolicy) String() string {
	if p == MissingListwise {
		return "listwise"
	}
	return "pairwise"
}

// ParseMissingPolicy accepts "pairwise" or "listwise" (empty means pairwise).
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "", "pairwise":
		return MissingPairwise, nil
	case "listwise", "rowwise":
		return MissingListwise, nil
	default:
		return 0, fmt.Errorf("unknown missing policy %q (use pairwise|listwise)", s)
	}
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	// N holds the number of rows each coefficient was computed from.
	N [][]int
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
	N    int
}

// At returns the coefficient between two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// TopPairs lists off-diagonal pairs ranked by |r|, ties by name.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j], N: m.N[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// correlate computes Pearson coefficients over block, where NaN marks a
// missing cell. Pairs with fewer than two usable rows or zero variance get
// 0 and a warning; the diagonal is always 1.
func correlate(names []string, block [][]float64, policy MissingPolicy) (*CorrMatrix, []string) {
	d := len(names)
	m := &CorrMatrix{Columns: names, Values: make([][]float64, d), N: make([][]int, d)}
	for i := range m.Values {
		m.Values[i] = make([]float64, d)
		m.N[i] = make([]int, d)
	}
	rows := block
	if policy == MissingListwise {
		rows = completeRows(block)
	}
	var warnings []string
	for a := 0; a < d; a++ {
		m.Values[a][a] = 1
		m.N[a][a] = countPresent(rows, a)
		for b := a + 1; b < d; b++ {
			x, y := pairwise(rows, a, b)
			r := 0.0
			switch {
			case len(x) < 2:
				warnings = append(warnings, fmt.Sprintf("correlation %s ~ %s: only %d overlapping rows, reported as 0", names[a], names[b], len(x)))
			default:
				r = stat.Correlation(x, y, nil)
				if math.IsNaN(r) || math.IsInf(r, 0) {
					warnings = append(warnings, fmt.Sprintf("correlation %s ~ %s: undefined (zero variance), reported as 0", names[a], names[b]))
					r = 0
				}
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			m.Values[a][b], m.Values[b][a] = r, r
			m.N[a][b], m.N[b][a] = len(x), len(x)
		}
	}
	return m, warnings
}

func pairwise(rows [][]float64, a, b int) (x, y []float64) {
	for _, r := range rows {
		if math.IsNaN(r[a]) || math.IsNaN(r[b]) {
			continue
		}
		x = append(x, r[a])
		y = append(y, r[b])
	}
	return x, y
}

func countPresent(rows [][]float64, a int) int {
	n := 0
	for _, r := range rows {
		if !math.IsNaN(r[a]) {
			n++
		}
	}
	return n
}

func completeRows(block [][]float64) [][]float64 {
	out := make([][]float64, 0, len(block))
	for _, r := range block {
		if isComplete(r) {
			out = append(out, r)
		}
	}
	return out
}

func isComplete(r []float64) bool {
	for _, v := range r {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
