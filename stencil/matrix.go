package stencil

import (
	"sort"

	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Matrix is the assembled global operator. Dense feeds the factorizations
// of the implicit schemes; CSR drives the matrix-vector products of the
// explicit scheme. Both hold the same entries and are read-only after
// assembly.
type Matrix struct {
	Dense *mat.Dense
	CSR   *sparse.CSR
}

func newMatrix(n int, tab *neighbors.Table, gammas [][]float64) *Matrix {
	var (
		K    = mat.NewDense(n, n, nil)
		ia   = make([]int, n+1)
		ja   []int
		data []float64
	)
	type entry struct {
		col int
		val float64
	}
	for i := 0; i < n; i++ {
		nbrs := tab.Neighbors(i)
		row := make([]entry, 0, len(nbrs)+1)
		var sum float64
		for k, j := range nbrs {
			K.Set(i, j, gammas[i][k])
			row = append(row, entry{j, gammas[i][k]})
			sum += gammas[i][k]
		}
		K.Set(i, i, -sum)
		row = append(row, entry{i, -sum})
		sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
		for _, e := range row {
			ja = append(ja, e.col)
			data = append(data, e.val)
		}
		ia[i+1] = len(ja)
	}
	return &Matrix{Dense: K, CSR: sparse.NewCSR(n, n, ia, ja, data)}
}

// NewMatrix wraps a square dense operator, storing its non-zero entries in
// compressed row form
func NewMatrix(K *mat.Dense) *Matrix {
	r, c := K.Dims()
	ia := make([]int, r+1)
	var (
		ja   []int
		data []float64
	)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := K.At(i, j); v != 0 {
				ja = append(ja, j)
				data = append(data, v)
			}
		}
		ia[i+1] = len(ja)
	}
	return &Matrix{Dense: K, CSR: sparse.NewCSR(r, c, ia, ja, data)}
}

// Dims returns the size of the operator
func (m *Matrix) Dims() (r, c int) { return m.Dense.Dims() }

// NNZ returns the number of stored entries
func (m *Matrix) NNZ() int { return m.CSR.NNZ() }

// MulVecTo sets dst = K x using the sparse form
func (m *Matrix) MulVecTo(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	m.CSR.DoNonZero(func(i, j int, v float64) {
		dst[i] += v * x[j]
	})
}
