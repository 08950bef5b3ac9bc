package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/qualitylens/internal/analysis"
	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/KaramelBytes/qualitylens/internal/timeseries"
)

// Loader resolves a dataset name to a table.
type Loader interface {
	Load(name string) (*table.Table, error)
}

// Presenter receives the finished report of a run.
type Presenter interface {
	Present(r *Report) error
}

// Input names the two datasets of a run and the user's column choices.
// Empty fields fall back to defaults.
type Input struct {
	EnvFile     string
	QualityFile string
	TimeColumn  string
	Series      string
	ScatterX    string
	ScatterY    string
	Analysis    analysis.Options
}

// Report is everything a run produced. It is discarded after presentation.
type Report struct {
	RunID      string
	Started    time.Time
	EnvTable   string
	QualTable  string
	EnvRows    int
	QualRows   int
	TimeColumn string
	Merged     *table.Table
	Analysis   *analysis.Result
	Selection  Selection
	Warnings   []string
}

// Runner executes the load, normalize, align, analyze and present stages
// in order. A Runner holds no state between runs and may be shared by
// concurrent callers as long as its Loader and Presenter allow it.
type Runner struct {
	Loader    Loader
	Presenter Presenter
	// Debugf, when set, receives per-stage diagnostics.
	Debugf func(format string, args ...any)
}

func (r *Runner) debugf(format string, args ...any) {
	if r.Debugf != nil {
		r.Debugf(format, args...)
	}
}

// Run executes one analysis. Fatal errors abort before presentation.
func (r *Runner) Run(in Input) (*Report, error) {
	if r.Loader == nil {
		return nil, fmt.Errorf("pipeline: no loader configured")
	}
	rep := &Report{RunID: uuid.NewString(), Started: time.Now()}

	env, err := r.Loader.Load(in.EnvFile)
	if err != nil {
		return nil, err
	}
	qual, err := r.Loader.Load(in.QualityFile)
	if err != nil {
		return nil, err
	}
	rep.EnvTable, rep.QualTable = env.Name, qual.Name
	rep.EnvRows, rep.QualRows = env.Len(), qual.Len()
	r.debugf("loaded %s (%d rows, %d cols) and %s (%d rows, %d cols)",
		env.Name, env.Len(), len(env.Columns), qual.Name, qual.Len(), len(qual.Columns))

	key := in.TimeColumn
	if key == "" {
		key = SuggestTimeColumn(env)
		if key == "" {
			return nil, fmt.Errorf("table %q has no columns", env.Name)
		}
		r.debugf("time column not configured; using %q", key)
	}
	rep.TimeColumn = key

	env, err = timeseries.NormalizeTime(env, key)
	if err != nil {
		return nil, err
	}
	qual, err = timeseries.NormalizeTime(qual, key)
	if err != nil {
		return nil, err
	}
	merged, err := timeseries.Align(env, qual, key)
	if err != nil {
		return nil, err
	}
	rep.Merged = merged
	r.debugf("aligned on %q: %d merged rows", key, merged.Len())
	if n := unmatched(merged, len(env.Columns), env.ColumnIndex(key)); n > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d of %d merged rows have no counterpart in the other table", n, merged.Len()))
	}

	res, err := analysis.Analyze(merged, in.Analysis)
	if err != nil {
		return nil, err
	}
	rep.Analysis = res
	rep.Warnings = append(rep.Warnings, res.Warnings...)
	r.debugf("analyzed %d features over %d rows (%d complete)", len(res.Features), res.Rows, res.CompleteRows)

	sel, warns := Select(res, in)
	rep.Selection = sel
	rep.Warnings = append(rep.Warnings, warns...)

	if r.Presenter != nil {
		if err := r.Presenter.Present(rep); err != nil {
			return rep, fmt.Errorf("present: %w", err)
		}
	}
	return rep, nil
}

// unmatched counts merged rows the outer join padded: rows whose left
// non-key cells or whose right cells are all missing. nl is the number of
// left columns, which precede the right ones.
func unmatched(merged *table.Table, nl, key int) int {
	n := 0
	for _, row := range merged.Rows {
		leftEmpty := nl > 1
		for j := 0; j < nl; j++ {
			if j != key && !row[j].IsMissing() {
				leftEmpty = false
				break
			}
		}
		rightEmpty := len(row) > nl
		for _, v := range row[nl:] {
			if !v.IsMissing() {
				rightEmpty = false
				break
			}
		}
		if leftEmpty || rightEmpty {
			n++
		}
	}
	return n
}
