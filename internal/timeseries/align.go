package timeseries

import (
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/qualitylens/internal/table"
)

// Suffixes appended to non-key columns present in both inputs.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// Align full-outer-joins left and right on the timestamp column key and
// returns the merged table sorted ascending by key. Left rows keep their
// order and are expanded once per matching right row; right rows without a
// match follow. Cells from the side lacking a match are missing. The sort is
// stable, so equal keys keep that relative order.
func Align(left, right *table.Table, key string) (*table.Table, error) {
	li := left.ColumnIndex(key)
	if li < 0 {
		return nil, &MissingKeyColumnError{Table: left.Name, Column: key}
	}
	ri := right.ColumnIndex(key)
	if ri < 0 {
		return nil, &MissingKeyColumnError{Table: right.Name, Column: key}
	}
	if left.Columns[li].Kind != table.KindTime {
		return nil, fmt.Errorf("align: table %q column %q: %w", left.Name, key, ErrKeyNotNormalized)
	}
	if right.Columns[ri].Kind != table.KindTime {
		return nil, fmt.Errorf("align: table %q column %q: %w", right.Name, key, ErrKeyNotNormalized)
	}

	cols, rightIdx, err := mergedColumns(left, right, li, ri)
	if err != nil {
		return nil, err
	}
	out := table.New(left.Name+"+"+right.Name, cols)
	width := len(cols)

	byKey := make(map[instant][]int, len(right.Rows))
	for j, row := range right.Rows {
		k := instantOf(row[ri].Time)
		byKey[k] = append(byKey[k], j)
	}
	matched := make([]bool, len(right.Rows))

	fillRight := func(dst []table.Value, src []table.Value) {
		for n, c := range rightIdx {
			dst[len(left.Columns)+n] = src[c]
		}
	}
	missingRight := func(dst []table.Value) {
		for n, c := range rightIdx {
			dst[len(left.Columns)+n] = table.Missing(right.Columns[c].Kind)
		}
	}

	for _, lrow := range left.Rows {
		matches := byKey[instantOf(lrow[li].Time)]
		if len(matches) == 0 {
			row := make([]table.Value, width)
			copy(row, lrow)
			missingRight(row)
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, j := range matches {
			matched[j] = true
			row := make([]table.Value, width)
			copy(row, lrow)
			fillRight(row, right.Rows[j])
			out.Rows = append(out.Rows, row)
		}
	}
	for j, rrow := range right.Rows {
		if matched[j] {
			continue
		}
		row := make([]table.Value, width)
		for c, col := range left.Columns {
			row[c] = table.Missing(col.Kind)
		}
		row[li] = rrow[ri]
		fillRight(row, rrow)
		out.Rows = append(out.Rows, row)
	}

	sort.SliceStable(out.Rows, func(a, b int) bool {
		return out.Rows[a][li].Time.Before(out.Rows[b][li].Time)
	})
	return out, nil
}

// instant identifies a point in time independent of location. UnixNano
// overflows outside 1678-2262, which Excel serials can exceed.
type instant struct {
	sec  int64
	nsec int
}

func instantOf(t time.Time) instant { return instant{sec: t.Unix(), nsec: t.Nanosecond()} }

// mergedColumns lays out all left columns followed by the non-key right
// columns, suffixing names that collide. rightIdx maps each appended column
// to its index in right. A suffixed name that clashes with another merged
// column is an error.
func mergedColumns(left, right *table.Table, li, ri int) ([]table.Column, []int, error) {
	leftNames := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		leftNames[c.Name] = true
	}
	rightNames := make(map[string]bool, len(right.Columns))
	for j, c := range right.Columns {
		if j != ri {
			rightNames[c.Name] = true
		}
	}

	cols := make([]table.Column, 0, len(left.Columns)+len(right.Columns)-1)
	for i, c := range left.Columns {
		if i != li && rightNames[c.Name] {
			c.Name += LeftSuffix
		}
		cols = append(cols, c)
	}
	var rightIdx []int
	for j, c := range right.Columns {
		if j == ri {
			continue
		}
		if leftNames[c.Name] {
			c.Name += RightSuffix
		}
		cols = append(cols, c)
		rightIdx = append(rightIdx, j)
	}

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, nil, &DuplicateColumnError{Left: left.Name, Right: right.Name, Column: c.Name}
		}
		seen[c.Name] = true
	}
	return cols, rightIdx, nil
}
