package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions controls how raw files are turned into Tables.
type LoadOptions struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultLoadOptions returns auto-detecting options reading the first sheet.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{SheetIndex: 1}
}

// LoadError reports a file that could not be turned into a Table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrUnsupported indicates a file format without a registered reader.
var ErrUnsupported = errors.New("unsupported table format")

// Reader turns a file on disk into raw string records, header first.
type Reader interface {
	CanRead(filename string) bool
	ReadRecords(path string, opt LoadOptions) ([][]string, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// Load reads path with the first matching reader and infers column kinds.
// Every failure is returned as *LoadError.
func Load(path string, opt LoadOptions) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	for _, r := range registry {
		if !r.CanRead(path) {
			continue
		}
		recs, err := r.ReadRecords(path, opt)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		t, err := FromRecords(filepath.Base(path), recs, opt)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		return t, nil
	}
	return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))}
}

// DirLoader loads named files from a data directory.
type DirLoader struct {
	Dir     string
	Options LoadOptions
}

// Load reads name relative to the loader's directory. Absolute names are used as-is.
func (l DirLoader) Load(name string) (*Table, error) {
	path := name
	if !filepath.IsAbs(name) && l.Dir != "" {
		path = filepath.Join(l.Dir, name)
	}
	return Load(path, l.Options)
}

// FromRecords builds a Table from a header row plus data rows. A column is
// numeric when every non-empty cell parses as a number, text otherwise.
// Rows that are entirely empty are skipped.
func FromRecords(name string, recs [][]string, opt LoadOptions) (*Table, error) {
	for len(recs) > 0 && blankRecord(recs[0]) {
		recs = recs[1:]
	}
	if len(recs) == 0 {
		return nil, errors.New("no header row")
	}
	header := recs[0]
	ncol := len(header)
	if ncol == 0 {
		return nil, errors.New("empty header row")
	}
	seen := make(map[string]struct{}, ncol)
	cols := make([]Column, ncol)
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate column name %q", n)
		}
		seen[n] = struct{}{}
		cols[i] = Column{Name: n}
	}

	var body [][]string
	for _, rec := range recs[1:] {
		row := make([]string, ncol)
		empty := true
		for j := 0; j < ncol && j < len(rec); j++ {
			row[j] = strings.TrimSpace(rec[j])
			if row[j] != "" {
				empty = false
			}
		}
		if !empty {
			body = append(body, row)
		}
	}

	for j := range cols {
		nonEmpty, numeric := 0, 0
		for _, row := range body {
			if row[j] == "" {
				continue
			}
			nonEmpty++
			if _, ok := ParseNumber(row[j], opt); ok {
				numeric++
			}
		}
		if nonEmpty > 0 && numeric == nonEmpty {
			cols[j].Kind = KindNumber
		}
	}

	t := New(name, cols)
	t.Rows = make([][]Value, 0, len(body))
	for _, row := range body {
		vals := make([]Value, ncol)
		for j, s := range row {
			switch {
			case s == "":
				vals[j] = Missing(cols[j].Kind)
			case cols[j].Kind == KindNumber:
				f, _ := ParseNumber(s, opt)
				vals[j] = Number(f)
			default:
				vals[j] = Text(s)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
