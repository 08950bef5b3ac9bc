package analysis

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCAResult holds the principal-component decomposition of the
// standardized feature block.
type PCAResult struct {
	Features []string
	// Means and Scales are the standardization parameters per feature.
	// A degenerate feature has Scale 1.
	Means  []float64
	Scales []float64
	// Components[c] is the unit loading vector of component c over Features.
	Components [][]float64
	// Coords[i] holds the component scores of merged-table row RowIndex[i].
	Coords   [][]float64
	RowIndex []int
	// ExplainedVariance is the eigenvalue per component, descending.
	ExplainedVariance      []float64
	ExplainedVarianceRatio []float64
}

// NumComponents returns the number of retained components.
func (p *PCAResult) NumComponents() int { return len(p.ExplainedVarianceRatio) }

// CumulativeRatio sums the explained-variance ratios of the first k components.
func (p *PCAResult) CumulativeRatio(k int) float64 {
	if k > len(p.ExplainedVarianceRatio) {
		k = len(p.ExplainedVarianceRatio)
	}
	var s float64
	for _, r := range p.ExplainedVarianceRatio[:k] {
		s += r
	}
	return s
}

// Standardize centers every column of x to zero mean and scales it to unit
// population variance. A column with zero variance keeps scale 1, so it
// standardizes to all zeros; its index is reported in degenerate.
func Standardize(x [][]float64) (z [][]float64, means, scales []float64, degenerate []int) {
	if len(x) == 0 {
		return nil, nil, nil, nil
	}
	n, d := len(x), len(x[0])
	means = make([]float64, d)
	scales = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		m, v := stat.PopMeanVariance(col, nil)
		means[j] = m
		sd := math.Sqrt(v)
		if sd <= 1e-12*math.Max(1, math.Abs(m)) || math.IsNaN(sd) {
			scales[j] = 1
			degenerate = append(degenerate, j)
			continue
		}
		scales[j] = sd
	}
	z = make([][]float64, n)
	deg := make(map[int]bool, len(degenerate))
	for _, j := range degenerate {
		deg[j] = true
	}
	for i := range x {
		z[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			if deg[j] {
				continue
			}
			z[i][j] = (x[i][j] - means[j]) / scales[j]
		}
	}
	return z, means, scales, degenerate
}

// decompose runs an eigen-decomposition of the covariance of the centered
// block z and returns min(rows, features) components ordered by
// descending variance, together with the projected coordinates. Each
// loading vector is sign-normalized so its largest-magnitude entry is
// positive.
func decompose(z [][]float64) (components, coords [][]float64, variance, ratio []float64, err error) {
	n := len(z)
	if n == 0 || len(z[0]) == 0 {
		return nil, nil, nil, nil, errors.New("pca: empty block")
	}
	d := len(z[0])
	flat := make([]float64, 0, n*d)
	for _, r := range z {
		flat = append(flat, r...)
	}
	zm := mat.NewDense(n, d, flat)

	den := float64(n - 1)
	if n < 2 {
		den = 1
	}
	var cov mat.SymDense
	cov.SymOuterK(1/den, zm.T())

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, nil, nil, nil, errors.New("pca: eigen decomposition did not converge")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	order := make([]int, d)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })

	var total float64
	for _, v := range vals {
		if v > 0 {
			total += v
		}
	}

	k := d
	if n < k {
		k = n
	}
	loadings := mat.NewDense(d, k, nil)
	components = make([][]float64, k)
	variance = make([]float64, k)
	ratio = make([]float64, k)
	for c := 0; c < k; c++ {
		src := order[c]
		vec := make([]float64, d)
		best := 0.0
		for j := 0; j < d; j++ {
			vec[j] = vecs.At(j, src)
			if math.Abs(vec[j]) > math.Abs(best) {
				best = vec[j]
			}
		}
		if best < 0 {
			for j := range vec {
				vec[j] = -vec[j]
			}
		}
		for j := 0; j < d; j++ {
			loadings.Set(j, c, vec[j])
		}
		components[c] = vec
		if vals[src] > 0 {
			variance[c] = vals[src]
		}
		if total > 0 {
			ratio[c] = variance[c] / total
		}
	}

	var proj mat.Dense
	proj.Mul(zm, loadings)
	coords = make([][]float64, n)
	for i := 0; i < n; i++ {
		coords[i] = mat.Row(nil, i, &proj)
	}
	return components, coords, variance, ratio, nil
}
