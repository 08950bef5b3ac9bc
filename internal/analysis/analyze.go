package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/qualitylens/internal/table"
)

// Options controls the statistical analysis of a merged table.
type Options struct {
	// Missing selects the row policy for correlations. Standardization and
	// PCA always use only rows complete across every numeric feature.
	Missing MissingPolicy
}

// DefaultOptions returns pairwise-complete correlations.
func DefaultOptions() Options {
	return Options{Missing: MissingPairwise}
}

// Result bundles the descriptive statistics of one analysis run.
type Result struct {
	Table        string
	Features     []string
	Rows         int // rows in the analyzed table
	CompleteRows int // rows with every feature present; these feed PCA
	Policy       MissingPolicy
	Summary      []ColumnSummary
	Corr         *CorrMatrix
	PCA          *PCAResult
	Degenerate   []*DegenerateFeatureError
	Warnings     []string
}

// Analyze selects the numeric columns of t, computes their Pearson
// correlation matrix, standardizes the complete rows and decomposes them
// into principal components. Zero-variance features do not fail the run;
// they are standardized to 0 and listed in Result.Degenerate.
func Analyze(t *table.Table, opt Options) (*Result, error) {
	idx := t.NumericColumns()
	if len(idx) == 0 {
		return nil, &InsufficientDataError{Table: t.Name, Reason: "no numeric columns"}
	}
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = t.Columns[c].Name
	}

	block := make([][]float64, len(t.Rows))
	var complete [][]float64
	var rowIndex []int
	for i, row := range t.Rows {
		vals := make([]float64, len(idx))
		for j, c := range idx {
			if row[c].IsMissing() {
				vals[j] = math.NaN()
				continue
			}
			vals[j] = row[c].Num
		}
		block[i] = vals
		if isComplete(vals) {
			complete = append(complete, vals)
			rowIndex = append(rowIndex, i)
		}
	}
	if len(complete) == 0 {
		return nil, &InsufficientDataError{Table: t.Name, Reason: fmt.Sprintf("no row has a value in all %d numeric columns", len(idx))}
	}

	res := &Result{
		Table:        t.Name,
		Features:     names,
		Rows:         len(t.Rows),
		CompleteRows: len(complete),
		Policy:       opt.Missing,
		Summary:      describe(names, block),
	}
	if res.CompleteRows < res.Rows {
		res.Warnings = append(res.Warnings, fmt.Sprintf("PCA uses %d/%d rows; rows with a missing numeric value are excluded", res.CompleteRows, res.Rows))
	}

	corr, warns := correlate(names, block, opt.Missing)
	res.Corr = corr
	res.Warnings = append(res.Warnings, warns...)

	z, means, scales, degenerate := Standardize(complete)
	for _, j := range degenerate {
		d := &DegenerateFeatureError{Column: names[j], Value: means[j]}
		res.Degenerate = append(res.Degenerate, d)
		res.Warnings = append(res.Warnings, d.Error())
	}

	components, coords, variance, ratio, err := decompose(z)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", t.Name, err)
	}
	res.PCA = &PCAResult{
		Features:               names,
		Means:                  means,
		Scales:                 scales,
		Components:             components,
		Coords:                 coords,
		RowIndex:               rowIndex,
		ExplainedVariance:      variance,
		ExplainedVarianceRatio: ratio,
	}
	return res, nil
}

// TopPairs ranks the off-diagonal correlation pairs by |r|; limit <= 0 keeps all.
func (r *Result) TopPairs(limit int) []PairCorr {
	if r.Corr == nil {
		return nil
	}
	return r.Corr.TopPairs(limit)
}
