package timeseries

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/qualitylens/internal/table"
)

func textTable(t *testing.T, name string, cols []table.Column, rows ...[]table.Value) *table.Table {
	t.Helper()
	tab := table.New(name, cols)
	for _, r := range rows {
		require.NoError(t, tab.Append(r))
	}
	return tab
}

func day(s string) time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return ts
}

func scenarioTables(t *testing.T) (*table.Table, *table.Table) {
	a := textTable(t, "env", []table.Column{{Name: "t"}, {Name: "temp", Kind: table.KindNumber}},
		[]table.Value{table.Text("2024-01-01"), table.Number(20)},
		[]table.Value{table.Text("2024-01-02"), table.Number(22)},
	)
	b := textTable(t, "quality", []table.Column{{Name: "t"}, {Name: "quality", Kind: table.KindNumber}},
		[]table.Value{table.Text("2024-01-01"), table.Number(0.9)},
		[]table.Value{table.Text("2024-01-03"), table.Number(0.8)},
	)
	return a, b
}

func TestParseTimestampFormats(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-01":           day("2024-01-01"),
		"2024-01-01 06:30":     time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC),
		"2024-01-01T06:30:15":  time.Date(2024, 1, 1, 6, 30, 15, 0, time.UTC),
		"01.12.2023 14:00":     time.Date(2023, 12, 1, 14, 0, 0, 0, time.UTC),
		"1.2.2024":             day("2024-02-01"),
		"2024/03/05":           day("2024-03-05"),
		"March 5, 2024":        day("2024-03-05"),
		"2024-01-01T06:30:00Z": time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s want %s", in, got, want)
	}
	_, err := ParseTimestamp("not-a-date")
	assert.Error(t, err)
}

func TestFromExcelSerial(t *testing.T) {
	ts, err := FromExcelSerial(45292)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), ts)

	ts, err = FromExcelSerial(45292.25)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), ts)

	ts, err = FromExcelSerial(20240115)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-15"), ts)

	_, err = FromExcelSerial(-1)
	assert.Error(t, err)
}

func TestNormalizeTimeRetypesColumnWithoutMutatingInput(t *testing.T) {
	a, _ := scenarioTables(t)
	out, err := NormalizeTime(a, "t")
	require.NoError(t, err)
	assert.Equal(t, table.KindTime, out.Columns[0].Kind)
	assert.Equal(t, day("2024-01-02"), out.Rows[1][0].Time)
	assert.Equal(t, table.KindText, a.Columns[0].Kind, "input schema must be untouched")
	assert.Equal(t, "2024-01-01", a.Rows[0][0].Text, "input rows must be untouched")
}

func TestNormalizeTimeIdempotent(t *testing.T) {
	a, _ := scenarioTables(t)
	once, err := NormalizeTime(a, "t")
	require.NoError(t, err)
	twice, err := NormalizeTime(once, "t")
	require.NoError(t, err)
	assert.Equal(t, once.Columns, twice.Columns)
	assert.Equal(t, once.Rows, twice.Rows)
}

func TestNormalizeTimeSerialNumbers(t *testing.T) {
	tab := textTable(t, "xlsx", []table.Column{{Name: "Datum", Kind: table.KindNumber}},
		[]table.Value{table.Number(45292.5)},
	)
	out, err := NormalizeTime(tab, "Datum")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), out.Rows[0][0].Time)
}

func TestNormalizeTimeRejectsBadValue(t *testing.T) {
	tab := textTable(t, "env", []table.Column{{Name: "t"}, {Name: "v", Kind: table.KindNumber}},
		[]table.Value{table.Text("2024-01-01"), table.Number(1)},
		[]table.Value{table.Text("not-a-date"), table.Number(2)},
	)
	out, err := NormalizeTime(tab, "t")
	assert.Nil(t, out, "no partial table on failure")
	var dpe *DateParseError
	require.True(t, errors.As(err, &dpe), "got %v", err)
	assert.Equal(t, "env", dpe.Table)
	assert.Equal(t, "t", dpe.Column)
	assert.Equal(t, 2, dpe.Row)
	assert.Equal(t, "not-a-date", dpe.Value)
	assert.Contains(t, err.Error(), `"env"`)
	assert.Equal(t, "2024-01-01", tab.Rows[0][0].Text)
}

func TestNormalizeTimeRejectsMissingValue(t *testing.T) {
	tab := textTable(t, "env", []table.Column{{Name: "t"}},
		[]table.Value{table.Missing(table.KindText)},
	)
	_, err := NormalizeTime(tab, "t")
	var dpe *DateParseError
	require.ErrorAs(t, err, &dpe)
	assert.Contains(t, err.Error(), "missing timestamp")
}

func TestNormalizeTimeMissingColumn(t *testing.T) {
	a, _ := scenarioTables(t)
	_, err := NormalizeTime(a, "Datum")
	var mk *MissingKeyColumnError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, "env", mk.Table)
}

func normalizedScenario(t *testing.T) (*table.Table, *table.Table) {
	a, b := scenarioTables(t)
	na, err := NormalizeTime(a, "t")
	require.NoError(t, err)
	nb, err := NormalizeTime(b, "t")
	require.NoError(t, err)
	return na, nb
}

func TestAlignScenario(t *testing.T) {
	a, b := normalizedScenario(t)
	m, err := Align(a, b, "t")
	require.NoError(t, err)
	require.Equal(t, []string{"t", "temp", "quality"}, m.ColumnNames())
	require.Equal(t, 3, m.Len())

	assert.Equal(t, day("2024-01-01"), m.Rows[0][0].Time)
	assert.Equal(t, 20.0, m.Rows[0][1].Num)
	assert.Equal(t, 0.9, m.Rows[0][2].Num)

	assert.Equal(t, day("2024-01-02"), m.Rows[1][0].Time)
	assert.Equal(t, 22.0, m.Rows[1][1].Num)
	assert.True(t, m.Rows[1][2].IsMissing())

	assert.Equal(t, day("2024-01-03"), m.Rows[2][0].Time)
	assert.True(t, m.Rows[2][1].IsMissing())
	assert.Equal(t, 0.8, m.Rows[2][2].Num)
}

func TestAlignMissingKeyColumn(t *testing.T) {
	a, b := normalizedScenario(t)
	_, err := Align(a, b, "zeit")
	var mk *MissingKeyColumnError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, "env", mk.Table)

	b.Columns[0].Name = "time"
	_, err = Align(a, b, "t")
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, "quality", mk.Table)
}

func TestAlignRequiresNormalizedKey(t *testing.T) {
	a, b := scenarioTables(t)
	_, err := Align(a, b, "t")
	assert.ErrorIs(t, err, ErrKeyNotNormalized)
}

func TestAlignSuffixesCollidingColumns(t *testing.T) {
	cols := []table.Column{{Name: "t", Kind: table.KindTime}, {Name: "v", Kind: table.KindNumber}}
	a := textTable(t, "a", cols, []table.Value{table.Time(day("2024-01-01")), table.Number(1)})
	b := textTable(t, "b", cols, []table.Value{table.Time(day("2024-01-01")), table.Number(2)})
	m, err := Align(a, b, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "v_x", "v_y"}, m.ColumnNames())
	assert.Equal(t, 1.0, m.Rows[0][1].Num)
	assert.Equal(t, 2.0, m.Rows[0][2].Num)
}

func TestAlignRejectsSuffixClash(t *testing.T) {
	num := func(n string) table.Column { return table.Column{Name: n, Kind: table.KindNumber} }
	key := table.Column{Name: "t", Kind: table.KindTime}
	d := table.Time(day("2024-01-01"))
	a := textTable(t, "a", []table.Column{key, num("v"), num("v_y")}, []table.Value{d, table.Number(1), table.Number(2)})
	b := textTable(t, "b", []table.Column{key, num("v")}, []table.Value{d, table.Number(3)})

	_, err := Align(a, b, "t")
	var dup *DuplicateColumnError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "v_y", dup.Column)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestAlignKeysOutsideNanosecondRange(t *testing.T) {
	cols := func(n string) []table.Column {
		return []table.Column{{Name: "t", Kind: table.KindTime}, {Name: n, Kind: table.KindNumber}}
	}
	late := time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC)
	// exactly 2^64 ns earlier; int64 nanoseconds wrap onto late
	early := time.Unix(late.Unix()-18446744074, 290448384).UTC()
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	a := textTable(t, "a", cols("x"),
		[]table.Value{table.Time(late), table.Number(1)},
		[]table.Value{table.Time(end), table.Number(2)})
	b := textTable(t, "b", cols("y"),
		[]table.Value{table.Time(early), table.Number(10)},
		[]table.Value{table.Time(end), table.Number(20)})
	m, err := Align(a, b, "t")
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	assert.True(t, early.Equal(m.Rows[0][0].Time))
	assert.True(t, m.Rows[0][1].IsMissing())
	assert.True(t, late.Equal(m.Rows[1][0].Time))
	assert.True(t, m.Rows[1][2].IsMissing())
	assert.Equal(t, 2.0, m.Rows[2][1].Num)
	assert.Equal(t, 20.0, m.Rows[2][2].Num)
}

func TestAlignDuplicateKeysCrossExpand(t *testing.T) {
	cols := func(n string) []table.Column {
		return []table.Column{{Name: "t", Kind: table.KindTime}, {Name: n, Kind: table.KindNumber}}
	}
	d := table.Time(day("2024-01-01"))
	a := textTable(t, "a", cols("x"), []table.Value{d, table.Number(1)}, []table.Value{d, table.Number(2)})
	b := textTable(t, "b", cols("y"), []table.Value{d, table.Number(10)}, []table.Value{d, table.Number(20)}, []table.Value{d, table.Number(30)})
	m, err := Align(a, b, "t")
	require.NoError(t, err)
	require.Equal(t, 6, m.Len())
	// ties keep left-major order
	want := [][2]float64{{1, 10}, {1, 20}, {1, 30}, {2, 10}, {2, 20}, {2, 30}}
	for i, w := range want {
		assert.Equal(t, w[0], m.Rows[i][1].Num)
		assert.Equal(t, w[1], m.Rows[i][2].Num)
	}
}

// referenceOuterJoinCount counts rows of a textbook outer join.
func referenceOuterJoinCount(left, right []int) int {
	lc, rc := map[int]int{}, map[int]int{}
	for _, k := range left {
		lc[k]++
	}
	for _, k := range right {
		rc[k]++
	}
	n := 0
	for k, l := range lc {
		if r := rc[k]; r > 0 {
			n += l * r
		} else {
			n += l
		}
	}
	for k, r := range rc {
		if lc[k] == 0 {
			n += r
		}
	}
	return n
}

func keyedTable(t *testing.T, name string, keys []int) *table.Table {
	tab := table.New(name, []table.Column{{Name: "t", Kind: table.KindTime}, {Name: name, Kind: table.KindNumber}})
	base := day("2024-01-01")
	for i, k := range keys {
		require.NoError(t, tab.Append([]table.Value{table.Time(base.AddDate(0, 0, k)), table.Number(float64(i))}))
	}
	return tab
}

func TestAlignMatchesReferenceOuterJoin(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	shapes := map[string]func() ([]int, []int){
		"disjoint": func() ([]int, []int) { return []int{0, 1, 2}, []int{10, 11} },
		"full":     func() ([]int, []int) { return []int{3, 1, 2}, []int{2, 3, 1} },
		"empty":    func() ([]int, []int) { return nil, []int{4, 4} },
		"random": func() ([]int, []int) {
			l := make([]int, 25)
			r := make([]int, 18)
			for i := range l {
				l[i] = rng.Intn(12)
			}
			for i := range r {
				r[i] = rng.Intn(12)
			}
			return l, r
		},
	}
	for name, shape := range shapes {
		for trial := 0; trial < 5; trial++ {
			lk, rk := shape()
			m, err := Align(keyedTable(t, "l", lk), keyedTable(t, "r", rk), "t")
			require.NoError(t, err)
			assert.Equal(t, referenceOuterJoinCount(lk, rk), m.Len(), fmt.Sprintf("%s trial %d", name, trial))
			assert.True(t, sort.SliceIsSorted(m.Rows, func(a, b int) bool {
				return m.Rows[a][0].Time.Before(m.Rows[b][0].Time)
			}), "%s: output must be ascending", name)
		}
	}
}
