package table

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30 (1900 system, which
// absorbs the 1900 leap-year bug) or from 1904-01-01.
var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// SerialTime converts a spreadsheet serial date to UTC, rounding the
// time-of-day fraction to the millisecond.
func SerialTime(f float64, date1904 bool) time.Time {
	base := epoch1900
	if date1904 {
		base = epoch1904
	}
	days := math.Floor(f)
	ms := math.Round((f - days) * 24 * 60 * 60 * 1000)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// ReadRecords extracts every row of the selected sheet. SheetName wins over
// the 1-based SheetIndex. Numeric cells styled with a date format come back
// as ISO timestamps so they are typed as text, not measurements.
func (xlsxReader) ReadRecords(p string, opt LoadOptions) ([][]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	wb, err := openWorkbook(&zr.Reader)
	if err != nil {
		return nil, err
	}
	target, err := wb.sheetPart(opt)
	if err != nil {
		return nil, fmt.Errorf("workbook '%s': %w", filepath.Base(p), err)
	}
	f, err := zr.Open(target)
	if err != nil {
		return nil, fmt.Errorf("worksheet %s missing from workbook", target)
	}
	defer f.Close()

	recs, err := wb.readRows(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("sheet %s has no rows", target)
	}
	return recs, nil
}

type xlsxSheetRef struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

type xlsxWorkbookPart struct {
	Props struct {
		Date1904 bool `xml:"date1904,attr"`
	} `xml:"workbookPr"`
	Sheets []xlsxSheetRef `xml:"sheets>sheet"`
}

type xlsxRelsPart struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxStylesPart struct {
	NumFmts []struct {
		ID   int    `xml:"numFmtId,attr"`
		Code string `xml:"formatCode,attr"`
	} `xml:"numFmts>numFmt"`
	CellXfs []struct {
		NumFmtID int `xml:"numFmtId,attr"`
	} `xml:"cellXfs>xf"`
}

// xlsxText is a shared or inline string: plain <t> or rich-text runs.
type xlsxText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (t xlsxText) String() string {
	if len(t.Runs) == 0 {
		return t.T
	}
	var b strings.Builder
	b.WriteString(t.T)
	for _, r := range t.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxSharedPart struct {
	Items []xlsxText `xml:"si"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Style  int       `xml:"s,attr"`
	V      string    `xml:"v"`
	Inline *xlsxText `xml:"is"`
}

// workbook holds the parts needed to decode one worksheet.
type workbook struct {
	sheets     []xlsxSheetRef
	rels       map[string]string
	shared     []string
	dateStyles map[int]bool
	date1904   bool
}

func openWorkbook(zr *zip.Reader) (*workbook, error) {
	var wp xlsxWorkbookPart
	if err := decodePart(zr, "xl/workbook.xml", &wp); err != nil {
		return nil, err
	}
	var rp xlsxRelsPart
	if err := decodePart(zr, "xl/_rels/workbook.xml.rels", &rp); err != nil {
		return nil, err
	}
	var sp xlsxSharedPart
	if err := decodePart(zr, "xl/sharedStrings.xml", &sp); err != nil {
		return nil, err
	}
	var st xlsxStylesPart
	if err := decodePart(zr, "xl/styles.xml", &st); err != nil {
		return nil, err
	}

	wb := &workbook{
		sheets:     wp.Sheets,
		rels:       make(map[string]string, len(rp.Rels)),
		shared:     make([]string, len(sp.Items)),
		dateStyles: map[int]bool{},
		date1904:   wp.Props.Date1904,
	}
	for _, r := range rp.Rels {
		if r.ID != "" && r.Target != "" {
			wb.rels[r.ID] = r.Target
		}
	}
	for i, it := range sp.Items {
		wb.shared[i] = it.String()
	}
	custom := make(map[int]string, len(st.NumFmts))
	for _, nf := range st.NumFmts {
		custom[nf.ID] = nf.Code
	}
	for i, xf := range st.CellXfs {
		if code, ok := custom[xf.NumFmtID]; ok {
			wb.dateStyles[i] = isDateFormat(code)
		} else {
			wb.dateStyles[i] = builtinDateFormat(xf.NumFmtID)
		}
	}
	return wb, nil
}

// decodePart unmarshals a workbook part; absent optional parts leave v zero.
func decodePart(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// sheetPart resolves the ZIP entry of the worksheet selected by opt.
func (wb *workbook) sheetPart(opt LoadOptions) (string, error) {
	if opt.SheetName != "" {
		names := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			names[i] = s.Name
			if strings.EqualFold(s.Name, opt.SheetName) {
				if rel, ok := wb.rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
		}
		return "", fmt.Errorf("sheet '%s' not found; available sheets: %s", opt.SheetName, strings.Join(names, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	for _, s := range wb.sheets {
		if s.SheetID != idx {
			continue
		}
		if rel, ok := wb.rels[s.RID]; ok {
			return normalizeRelPath(rel), nil
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", idx), nil
}

// readRows decodes <row> elements one at a time into dense records.
func (wb *workbook) readRows(r io.Reader) ([][]string, error) {
	dec := xml.NewDecoder(r)
	var recs [][]string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row xlsxRow
		if err := dec.DecodeElement(&row, &se); err != nil {
			return recs, err
		}
		var rec []string
		for _, c := range row.Cells {
			col := len(rec)
			if c.Ref != "" {
				col = colIndexFromRef(c.Ref)
			}
			if col < 0 {
				continue
			}
			for len(rec) <= col {
				rec = append(rec, "")
			}
			rec[col] = wb.cellText(c)
		}
		recs = append(recs, rec)
	}
}

func (wb *workbook) cellText(c xlsxCell) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || i < 0 || i >= len(wb.shared) {
			return ""
		}
		return wb.shared[i]
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
		return ""
	case "b":
		if c.V == "1" {
			return "TRUE"
		}
		return "FALSE"
	case "e":
		return ""
	case "", "n":
		if wb.dateStyles[c.Style] {
			if f, err := strconv.ParseFloat(c.V, 64); err == nil {
				return formatSerial(SerialTime(f, wb.date1904))
			}
		}
	}
	return c.V
}

func formatSerial(ts time.Time) string {
	if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 && ts.Nanosecond() == 0 {
		return ts.Format("2006-01-02")
	}
	if ts.Nanosecond() != 0 {
		return ts.Format("2006-01-02 15:04:05.000")
	}
	return ts.Format("2006-01-02 15:04:05")
}

// builtinDateFormat reports whether a predefined number format id renders
// a date or time (ECMA-376 18.8.30, including the East Asian ids).
func builtinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat inspects a custom format code for date/time tokens outside
// quoted literals, escapes and bracketed sections such as [Red] or [$-407].
func isDateFormat(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == ';':
			// only the positive section decides
			return false
		default:
			switch c | 0x20 {
			case 'd', 'm', 'y', 'h', 's':
				return true
			}
		}
	}
	return false
}

// colIndexFromRef maps refs like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		n = n*26 + int(r-'A') + 1
	}
	return n - 1
}

// normalizeRelPath converts relationship targets to ZIP entry names.
// Targets may carry a leading slash or be relative to xl/.
func normalizeRelPath(rel string) string {
	p := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if !strings.HasPrefix(p, "xl/") {
		p = path.Join("xl", p)
	}
	return p
}
