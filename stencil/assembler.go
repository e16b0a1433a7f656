// Package stencil computes generalized finite difference weights by weighted
// least squares over each node's neighbors and assembles them into the
// global operator matrix K.
package stencil

import (
	"fmt"
	"math"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultTolerance drops singular values below this fraction of the
	// largest one when forming the pseudo-inverse
	DefaultTolerance = 1e-12
	// MinNeighbors is the smallest neighbor count accepted for a 2D second
	// order stencil
	MinNeighbors = 3
	// DefaultMinRank is the smallest effective rank accepted for the local
	// normal matrix
	DefaultMinRank = 3
)

// Assembler builds K from coordinates, a neighbor table and an operator.
// The zero value uses the defaults above.
type Assembler struct {
	Tolerance float64 // Relative singular value cutoff
	MinRank   int     // Smallest accepted effective rank, at most NumTerms
	Workers   int     // Zero selects utils.DefaultWorkers
}

func (a *Assembler) tolerance() float64 {
	if a.Tolerance == 0 {
		return DefaultTolerance
	}
	return a.Tolerance
}

func (a *Assembler) minRank() int {
	if a.MinRank == 0 {
		return DefaultMinRank
	}
	return a.MinRank
}

func (a *Assembler) validate() error {
	tol := a.tolerance()
	if !(tol > 0 && tol < 1) {
		return utils.NewConfigError("tolerance", "%g not in (0, 1)", tol)
	}
	if r := a.minRank(); r < 1 || r > NumTerms {
		return utils.NewConfigError("min-rank", "%d not in [1, %d]", r, NumTerms)
	}
	return nil
}

// Assemble solves one local least-squares problem per node, in parallel, and
// writes K[i,j] = gamma_j for each neighbor j and K[i,i] = -sum(gamma). The
// first degenerate node, in index order, fails the whole assembly.
func (a *Assembler) Assemble(pc *cloud.PointCloud, tab *neighbors.Table, L Operator) (*Matrix, *Report, error) {
	if err := a.validate(); err != nil {
		return nil, nil, err
	}
	if tab.Len() != pc.Len() {
		return nil, nil, utils.NewSolveError(utils.GeometryError,
			fmt.Errorf("neighbor table has %d rows for %d nodes", tab.Len(), pc.Len()))
	}

	var (
		n      = pc.Len()
		gammas = make([][]float64, n)
		report = &Report{Tolerance: a.tolerance(), Nodes: make([]NodeReport, n)}
	)
	err := utils.ParallelFor(n, a.Workers, func(i int) error {
		g, nr, err := a.NodeWeights(pc, i, tab.Neighbors(i), L)
		report.Nodes[i] = nr
		if err != nil {
			return err
		}
		gammas[i] = g
		return nil
	})
	if err != nil {
		return nil, report, err
	}
	return newMatrix(n, tab, gammas), report, nil
}

// NodeWeights returns the weights gamma of node i over nbrs such that
// sum_j gamma_j (u_j - u_i) approximates L applied at node i.
//
// Offsets are measured in units of h, the distance to the farthest neighbor,
// so rank and conditioning depend only on the shape of the stencil. With rows
// a_j = [dx, dy, dx^2, dx dy, dy^2] of the scaled offsets and weights
// w_j = 1/d_j^3 the weights are gamma = (D L)^T (A^T W^2 A)^+ A^T W^2, where
// D = diag(1/h, 1/h, 1/h^2, 1/h^2, 1/h^2) and the pseudo-inverse is taken by
// SVD with the assembler tolerance.
func (a *Assembler) NodeWeights(pc *cloud.PointCloud, i int, nbrs []int, L Operator) ([]float64, NodeReport, error) {
	nr := NodeReport{Neighbors: len(nbrs)}
	if len(nbrs) < MinNeighbors {
		return nil, nr, utils.NewNodeError(utils.StencilError, i,
			fmt.Errorf("%w: %d neighbors, need %d", utils.ErrDegenerateStencil, len(nbrs), MinNeighbors))
	}

	var (
		pi   = pc.Point(i)
		h    float64
		rows = make([][NumTerms]float64, len(nbrs))
		w2   = make([]float64, len(nbrs))
		M    = mat.NewSymDense(NumTerms, nil)
	)
	for _, j := range nbrs {
		h = math.Max(h, pc.Distance(i, j))
	}
	for k, j := range nbrs {
		pj := pc.Point(j)
		dx, dy := (pj.X-pi.X)/h, (pj.Y-pi.Y)/h
		d := math.Sqrt(dx*dx + dy*dy)
		w := 1 / (d * d * d)
		rows[k] = taylorRow(dx, dy)
		w2[k] = w * w
		for r := 0; r < NumTerms; r++ {
			for c := r; c < NumTerms; c++ {
				M.SetSym(r, c, M.At(r, c)+w2[k]*rows[k][r]*rows[k][c])
			}
		}
	}

	v, err := a.pseudoSolve(M, scaleOperator(L, h), &nr)
	if err != nil {
		return nil, nr, utils.NewNodeError(utils.StencilError, i, err)
	}
	if nr.Rank < a.minRank() {
		return nil, nr, utils.NewNodeError(utils.StencilError, i,
			fmt.Errorf("%w: effective rank %d below %d", utils.ErrDegenerateStencil, nr.Rank, a.minRank()))
	}

	// gamma_j = w_j^2 a_j . (M^+ D L) since M^+ is symmetric
	gamma := make([]float64, len(nbrs))
	for k := range nbrs {
		var s float64
		for r := 0; r < NumTerms; r++ {
			s += rows[k][r] * v[r]
		}
		gamma[k] = w2[k] * s
	}
	return gamma, nr, nil
}

// scaleOperator expresses L in offsets measured in units of h
func scaleOperator(L Operator, h float64) Operator {
	h2 := h * h
	return Operator{L[0] / h, L[1] / h, L[2] / h2, L[3] / h2, L[4] / h2}
}

// pseudoSolve returns M^+ L and records the singular values and rank of M,
// the normal matrix of the scaled offsets
func (a *Assembler) pseudoSolve(M *mat.SymDense, L Operator, nr *NodeReport) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(M, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD did not converge", utils.ErrDegenerateStencil)
	}
	s := svd.Values(nil)
	copy(nr.Singular[:], s)

	cut := a.tolerance() * s[0]
	for _, sv := range s {
		if sv > cut {
			nr.Rank++
		}
	}
	if nr.Rank == 0 {
		return nil, fmt.Errorf("%w: zero normal matrix", utils.ErrDegenerateStencil)
	}
	nr.Condition = s[0] / s[nr.Rank-1]

	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)

	// M^+ L = V S^+ U^T L over the kept singular values
	Lv := mat.NewVecDense(NumTerms, L[:])
	var utl mat.VecDense
	utl.MulVec(U.T(), Lv)
	for k := 0; k < NumTerms; k++ {
		if k < nr.Rank {
			utl.SetVec(k, utl.AtVec(k)/s[k])
		} else {
			utl.SetVec(k, 0)
		}
	}
	var x mat.VecDense
	x.MulVec(&V, &utl)
	return x.RawVector().Data, nil
}
