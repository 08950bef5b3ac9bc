package table

import (
	"math"
	"strconv"
	"strings"
)

// groupMarks are always digit-grouping characters: apostrophes (Swiss
// 1'234.5) and the no-break spaces spreadsheets export.
const groupMarks = "'\u2019\u00a0\u202f"

// ParseNumber parses a locale-formatted number. A zero DecimalSeparator
// auto-detects per value: when both ',' and '.' appear the last one is the
// decimal mark; a lone ',' is a decimal comma. A trailing '%' is dropped,
// U+2212 is read as a minus sign and accounting parentheses negate.
func ParseNumber(s string, opt LoadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	neg := false
	if len(raw) > 2 && raw[0] == '(' && raw[len(raw)-1] == ')' {
		neg = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" {
		return 0, false
	}

	dec, group := separators(raw, opt)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == dec:
			b.WriteByte('.')
		case r == group, strings.ContainsRune(groupMarks, r):
		case group == 0 && (r == ',' || r == '.' || r == ' '):
		case r == '\u2212':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// separators picks the decimal and grouping marks for one value. A zero
// group means any of ',', '.' and ' ' other than the decimal mark groups.
func separators(raw string, opt LoadOptions) (dec, group rune) {
	dec, group = opt.DecimalSeparator, opt.ThousandsSeparator
	if dec == 0 {
		comma, dot := strings.LastIndexByte(raw, ','), strings.LastIndexByte(raw, '.')
		switch {
		case comma >= 0 && dot >= 0 && comma > dot:
			dec, group = ',', '.'
		case comma >= 0 && dot >= 0:
			dec, group = '.', ','
		case comma >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if group == dec {
		group = 0
	}
	return dec, group
}
