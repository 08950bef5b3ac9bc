package table

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the declared type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindTime:
		return "datetime"
	default:
		return "text"
	}
}

// Value is a single typed cell. Valid=false is the explicit missing marker.
type Value struct {
	Kind  Kind
	Num   float64
	Text  string
	Time  time.Time
	Valid bool
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f, Valid: true} }
func Text(s string) Value { return Value{Kind: KindText, Text: s, Valid: true} }
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t, Valid: true} }
func Missing(k Kind) Value { return Value{Kind: k} }
func (v Value) IsMissing() bool { return !v.Valid }

// String renders the value for reports; missing values render as "".
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return v.Text
	}
}

// Column describes a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an ordered sequence of rows; every row is aligned with Columns.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Value
}

// New returns an empty table with the given schema.
func New(name string, cols []Column) *Table {
	cp := make([]Column, len(cols))
	copy(cp, cols)
	return &Table{Name: name, Columns: cp}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames lists the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Append adds a row after checking its width and cell kinds.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %q: row has %d cells, want %d", t.Name, len(row), len(t.Columns))
	}
	for j, v := range row {
		if v.Kind != t.Columns[j].Kind {
			return fmt.Errorf("table %q: column %q holds %s, got %s", t.Name, t.Columns[j].Name, t.Columns[j].Kind, v.Kind)
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Clone returns a deep copy; mutating the copy never touches t.
func (t *Table) Clone() *Table {
	out := New(t.Name, t.Columns)
	out.Rows = make([][]Value, len(t.Rows))
	for i, r := range t.Rows {
		cp := make([]Value, len(r))
		copy(cp, r)
		out.Rows[i] = cp
	}
	return out
}

// NumericColumns returns the indexes of KindNumber columns in order.
func (t *Table) NumericColumns() []int {
	var idx []int
	for i, c := range t.Columns {
		if c.Kind == KindNumber {
			idx = append(idx, i)
		}
	}
	return idx
}

// Head returns at most n leading rows rendered as strings.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([][]string, 0, n)
	for _, r := range t.Rows[:n] {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = v.String()
		}
		out = append(out, cells)
	}
	return out
}
