package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/qualitylens/internal/table"
)

// numericTable builds a table with a leading timestamp key, the given
// numeric columns (NaN marks missing) and a trailing text column.
func numericTable(t *testing.T, names []string, rows [][]float64) *table.Table {
	t.Helper()
	cols := []table.Column{{Name: "t", Kind: table.KindTime}}
	for _, n := range names {
		cols = append(cols, table.Column{Name: n, Kind: table.KindNumber})
	}
	cols = append(cols, table.Column{Name: "note", Kind: table.KindText})
	tab := table.New("merged", cols)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range rows {
		vals := []table.Value{table.Time(base.Add(time.Duration(i) * time.Hour))}
		for _, v := range r {
			if math.IsNaN(v) {
				vals = append(vals, table.Missing(table.KindNumber))
				continue
			}
			vals = append(vals, table.Number(v))
		}
		vals = append(vals, table.Text("ok"))
		require.NoError(t, tab.Append(vals))
	}
	return tab
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[j]
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func correlation(a, b []float64) float64 {
	ma, mb := mean(a), mean(b)
	var num, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	if da2 == 0 || db2 == 0 {
		return 0
	}
	return num / math.Sqrt(da2*db2)
}

func randomRows(seed int64, n int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		temp := 18 + 6*rng.Float64()
		hum := 40 + 20*rng.Float64()
		thick := 80 - 0.8*temp + 0.1*hum + rng.NormFloat64()
		gloss := 90 + 0.05*hum - 0.3*thick + rng.NormFloat64()
		rows[i] = []float64{temp, hum, thick, gloss}
	}
	return rows
}

var features = []string{"temp", "humidity", "thickness", "gloss"}

func TestAnalyzeCorrelationMatchesReference(t *testing.T) {
	rows := randomRows(1, 60)
	res, err := Analyze(numericTable(t, features, rows), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, features, res.Features)
	require.Equal(t, 60, res.Rows)
	require.Equal(t, 60, res.CompleteRows)

	for a := range features {
		assert.Equal(t, 1.0, res.Corr.Values[a][a])
		for b := range features {
			assert.Equal(t, res.Corr.Values[a][b], res.Corr.Values[b][a], "symmetric")
			if a != b {
				want := correlation(column(rows, a), column(rows, b))
				assert.InDelta(t, want, res.Corr.Values[a][b], 1e-9)
				assert.Equal(t, 60, res.Corr.N[a][b])
			}
		}
	}
	r, ok := res.Corr.At("temp", "thickness")
	require.True(t, ok)
	assert.Less(t, r, -0.5, "thickness is built to fall with temperature")
}

func TestAnalyzeMissingPolicies(t *testing.T) {
	nan := math.NaN()
	rows := [][]float64{
		{1, 2, 10},
		{2, nan, 11},
		{3, 6, nan},
		{4, 8, 15},
		{5, 9, 13},
		{nan, 12, 20},
	}
	tab := numericTable(t, []string{"a", "b", "c"}, rows)

	pw, err := Analyze(tab, Options{Missing: MissingPairwise})
	require.NoError(t, err)
	// a~b overlap on rows 0,2,3,4
	assert.InDelta(t, correlation([]float64{1, 3, 4, 5}, []float64{2, 6, 8, 9}), pw.Corr.Values[0][1], 1e-12)
	assert.Equal(t, 4, pw.Corr.N[0][1])

	lw, err := Analyze(tab, Options{Missing: MissingListwise})
	require.NoError(t, err)
	// complete rows are 0,3,4
	assert.InDelta(t, correlation([]float64{1, 4, 5}, []float64{2, 8, 9}), lw.Corr.Values[0][1], 1e-12)
	assert.Equal(t, 3, lw.Corr.N[0][1])

	assert.Equal(t, 3, pw.CompleteRows)
	assert.Equal(t, []int{0, 3, 4}, pw.PCA.RowIndex)
	assert.Len(t, pw.PCA.Coords, 3)
	assert.Contains(t, pw.Warnings, "PCA uses 3/6 rows; rows with a missing numeric value are excluded")
}

func TestAnalyzeConstantColumnIsNeutralized(t *testing.T) {
	rows := randomRows(2, 30)
	for _, r := range rows {
		r[1] = 55
	}
	res, err := Analyze(numericTable(t, features, rows), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Degenerate, 1)
	assert.Equal(t, "humidity", res.Degenerate[0].Column)
	assert.InDelta(t, 55, res.Degenerate[0].Value, 1e-9)
	var de *DegenerateFeatureError
	assert.True(t, errors.As(res.Degenerate[0], &de))

	assert.Equal(t, 1.0, res.PCA.Scales[1])
	assert.Equal(t, 1.0, res.Corr.Values[1][1])
	assert.Equal(t, 0.0, res.Corr.Values[0][1])

	for _, row := range res.PCA.Coords {
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "coordinates must be finite")
		}
	}
	for _, r := range res.PCA.ExplainedVarianceRatio {
		assert.False(t, math.IsNaN(r))
		assert.GreaterOrEqual(t, r, 0.0)
	}
	assert.LessOrEqual(t, res.PCA.CumulativeRatio(len(features)), 1+1e-6)
	last := res.PCA.ExplainedVarianceRatio[len(features)-1]
	assert.InDelta(t, 0, last, 1e-9, "the neutralized feature carries no variance")
}

func TestAnalyzeInsufficientData(t *testing.T) {
	textOnly := table.New("env", []table.Column{{Name: "t", Kind: table.KindTime}, {Name: "hall"}})
	require.NoError(t, textOnly.Append([]table.Value{table.Time(time.Now()), table.Text("H1")}))
	_, err := Analyze(textOnly, DefaultOptions())
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Contains(t, err.Error(), "no numeric columns")

	nan := math.NaN()
	gappy := numericTable(t, []string{"a", "b"}, [][]float64{{1, nan}, {nan, 2}})
	_, err = Analyze(gappy, DefaultOptions())
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "merged", ide.Table)
}

func TestAnalyzeSingleCompleteRow(t *testing.T) {
	res, err := Analyze(numericTable(t, []string{"a", "b"}, [][]float64{{1, 2}}), DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, res.Degenerate, 2)
	assert.Equal(t, 1, res.PCA.NumComponents())
	assert.Equal(t, 0.0, res.PCA.ExplainedVarianceRatio[0])
	assert.Equal(t, 0.0, res.Corr.Values[0][1])
}

func TestPCAProperties(t *testing.T) {
	rows := randomRows(3, 80)
	res, err := Analyze(numericTable(t, features, rows), DefaultOptions())
	require.NoError(t, err)
	p := res.PCA
	require.Equal(t, len(features), p.NumComponents())

	for c := 1; c < p.NumComponents(); c++ {
		assert.GreaterOrEqual(t, p.ExplainedVarianceRatio[c-1], p.ExplainedVarianceRatio[c], "ratios non-increasing")
	}
	assert.InDelta(t, 1.0, p.CumulativeRatio(p.NumComponents()), 1e-6)

	for a := range p.Components {
		for b := range p.Components {
			var dot float64
			for j := range p.Components[a] {
				dot += p.Components[a][j] * p.Components[b][j]
			}
			want := 0.0
			if a == b {
				want = 1
			}
			assert.InDelta(t, want, dot, 1e-9, "components orthonormal")
		}
	}

	for c := 0; c < p.NumComponents(); c++ {
		scores := column(p.Coords, c)
		m := mean(scores)
		var ss float64
		for _, s := range scores {
			ss += (s - m) * (s - m)
		}
		assert.InDelta(t, 0, m, 1e-9)
		assert.InDelta(t, p.ExplainedVariance[c], ss/float64(len(scores)-1), 1e-9)
	}
}

func TestPCAPerfectlyCorrelatedPair(t *testing.T) {
	var rows [][]float64
	for i := 0; i < 10; i++ {
		x := float64(i)
		rows = append(rows, []float64{x, 2*x + 1})
	}
	res, err := Analyze(numericTable(t, []string{"x", "y"}, rows), DefaultOptions())
	require.NoError(t, err)
	p := res.PCA
	assert.InDelta(t, 1.0, p.ExplainedVarianceRatio[0], 1e-9)
	assert.InDelta(t, 0.0, p.ExplainedVarianceRatio[1], 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, p.Components[0][0], 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, p.Components[0][1], 1e-9)
	assert.InDelta(t, 1.0, res.Corr.Values[0][1], 1e-12)
}

func TestPCAFewerRowsThanFeatures(t *testing.T) {
	rows := randomRows(4, 3)
	res, err := Analyze(numericTable(t, features, rows), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, res.PCA.NumComponents())
	assert.LessOrEqual(t, res.PCA.CumulativeRatio(3), 1+1e-6)
	for _, c := range res.PCA.Coords {
		assert.Len(t, c, 3)
	}
}

func TestStandardize(t *testing.T) {
	z, means, scales, degenerate := Standardize([][]float64{{1, 7}, {2, 7}, {3, 7}, {4, 7}})
	assert.Equal(t, []int{1}, degenerate)
	assert.InDelta(t, 2.5, means[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), scales[0], 1e-12)
	assert.Equal(t, 1.0, scales[1])
	var sum, sq float64
	for _, r := range z {
		sum += r[0]
		sq += r[0] * r[0]
		assert.Equal(t, 0.0, r[1])
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, 1, sq/4, 1e-12)
}

func TestDescribe(t *testing.T) {
	nan := math.NaN()
	s := describe([]string{"v"}, [][]float64{{5}, {1}, {nan}, {3}, {2}, {4}})
	require.Len(t, s, 1)
	assert.Equal(t, 5, s[0].NonNull)
	assert.Equal(t, 1, s[0].Missing)
	assert.Equal(t, 1.0, s[0].Min)
	assert.Equal(t, 5.0, s[0].Max)
	assert.Equal(t, 2.0, s[0].Q25)
	assert.Equal(t, 3.0, s[0].Median)
	assert.Equal(t, 4.0, s[0].Q75)
	assert.InDelta(t, 3.0, s[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s[0].Std, 1e-12)
}

func TestTopPairsRanksByMagnitude(t *testing.T) {
	m := &CorrMatrix{
		Columns: []string{"a", "b", "c"},
		Values:  [][]float64{{1, 0.2, -0.9}, {0.2, 1, 0.5}, {-0.9, 0.5, 1}},
		N:       [][]int{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}},
	}
	pairs := m.TopPairs(2)
	require.Len(t, pairs, 2)
	assert.Equal(t, PairCorr{A: "a", B: "c", R: -0.9, N: 3}, pairs[0])
	assert.Equal(t, "b", pairs[1].A)
	assert.Equal(t, "c", pairs[1].B)
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("listwise")
	require.NoError(t, err)
	assert.Equal(t, MissingListwise, p)
	p, err = ParseMissingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissingPairwise, p)
	_, err = ParseMissingPolicy("drop")
	assert.Error(t, err)
}
