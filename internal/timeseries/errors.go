package timeseries

import (
	"errors"
	"fmt"
)

// DateParseError reports a timestamp cell that could not be interpreted.
// Row is 1-based over data rows (the header is not counted).
type DateParseError struct {
	Table  string
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *DateParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("table %q, column %q, row %d: missing timestamp", e.Table, e.Column, e.Row)
	}
	return fmt.Sprintf("table %q, column %q, row %d: cannot parse %q as a date/time", e.Table, e.Column, e.Row, e.Value)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// MissingKeyColumnError reports a join/time key absent from a table.
type MissingKeyColumnError struct {
	Table  string
	Column string
}

func (e *MissingKeyColumnError) Error() string {
	return fmt.Sprintf("table %q has no column %q", e.Table, e.Column)
}

// DuplicateColumnError reports a merged column name produced twice, e.g. a
// suffixed "v_y" meeting an existing "v_y" column.
type DuplicateColumnError struct {
	Left   string
	Right  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("joining %q and %q yields duplicate column %q; rename it in one of the inputs", e.Left, e.Right, e.Column)
}

// ErrKeyNotNormalized is returned by Align when a key column still holds
// raw values; run NormalizeTime on both tables first.
var ErrKeyNotNormalized = errors.New("key column is not normalized to timestamps")
