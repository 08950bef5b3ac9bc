package timeseries

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/araddon/dateparse"
)

// layouts are tried before the generic parser so that day-first European
// dates (01.12.2023) are never read month-first.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"02.01.06 15:04",
	"02.01.06",
}

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

var errUnparseable = errors.New("unrecognized date/time format")

// ParseTimestamp interprets a string as a point in time. Values without an
// explicit offset are read as UTC wall-clock time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseable
	}
	for _, l := range layouts {
		if ts, err := time.Parse(l, s); err == nil {
			return ts, nil
		}
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// FromExcelSerial converts a spreadsheet serial date (days since 1899-12-30,
// fraction = time of day) to a timestamp rounded to the millisecond.
// Integral values in YYYYMMDD form are read as compact dates.
func FromExcelSerial(f float64) (time.Time, error) {
	if f == math.Trunc(f) && f >= 10000101 && f <= 99991231 {
		if ts, err := time.Parse("20060102", strconv.FormatInt(int64(f), 10)); err == nil {
			return ts, nil
		}
	}
	if f < 0 || f > maxExcelSerial || math.IsNaN(f) {
		return time.Time{}, errUnparseable
	}
	return table.SerialTime(f, false), nil
}

// NormalizeTime returns a copy of t whose column is retyped to timestamps.
// Text cells go through ParseTimestamp, numeric cells are spreadsheet
// serial dates and timestamp cells are kept, so the operation is
// idempotent. The first missing or unparseable cell aborts with a
// *DateParseError and no table is returned.
func NormalizeTime(t *table.Table, column string) (*table.Table, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, &MissingKeyColumnError{Table: t.Name, Column: column}
	}
	out := t.Clone()
	out.Columns[idx].Kind = table.KindTime
	for i, row := range out.Rows {
		v := row[idx]
		if v.IsMissing() {
			return nil, &DateParseError{Table: t.Name, Column: column, Row: i + 1, Err: errUnparseable}
		}
		var (
			ts  time.Time
			err error
			raw string
		)
		switch v.Kind {
		case table.KindTime:
			continue
		case table.KindNumber:
			raw = strconv.FormatFloat(v.Num, 'g', -1, 64)
			ts, err = FromExcelSerial(v.Num)
		default:
			raw = v.Text
			ts, err = ParseTimestamp(v.Text)
		}
		if err != nil {
			return nil, &DateParseError{Table: t.Name, Column: column, Row: i + 1, Value: raw, Err: err}
		}
		row[idx] = table.Time(ts)
	}
	return out, nil
}
