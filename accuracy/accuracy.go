// Package accuracy compares an approximate trajectory with its reference.
package accuracy

import (
	"fmt"
	"math"
	"strings"

	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the error norms of a trajectory
type Summary struct {
	RMS      []float64 // Root mean square error over the nodes, per level
	Max      float64   // Largest pointwise error
	MaxNode  int
	MaxLevel int
	Mean     float64 // Mean of RMS over the levels
}

// Compare measures approx against exact, both nodes by levels. A nil nodes
// compares every row, otherwise only the listed ones.
func Compare(approx, exact mat.Matrix, nodes []int) (*Summary, error) {
	n, levels := approx.Dims()
	if r, c := exact.Dims(); r != n || c != levels {
		return nil, utils.NewConfigError("reference", "%dx%d trajectory against %dx%d reference", n, levels, r, c)
	}
	if nodes == nil {
		nodes = make([]int, n)
		for i := range nodes {
			nodes[i] = i
		}
	}
	if len(nodes) == 0 || levels == 0 {
		return nil, utils.NewConfigError("nodes", "nothing to compare")
	}
	var (
		s  = &Summary{RMS: make([]float64, levels), MaxNode: utils.NoNode}
		ap = make([]float64, len(nodes))
		ex = make([]float64, len(nodes))
		d  = make([]float64, len(nodes))
	)
	for k := 0; k < levels; k++ {
		for m, i := range nodes {
			if i < 0 || i >= n {
				return nil, utils.NewConfigError("nodes", "node %d out of range [0, %d)", i, n)
			}
			ap[m], ex[m] = approx.At(i, k), exact.At(i, k)
		}
		s.RMS[k] = RMS(ap, ex)
		floats.SubTo(d, ap, ex)
		for m, e := range d {
			if e = math.Abs(e); e > s.Max || s.MaxNode == utils.NoNode {
				s.Max, s.MaxNode, s.MaxLevel = e, nodes[m], k
			}
		}
	}
	s.Mean = stat.Mean(s.RMS, nil)
	return s, nil
}

// RMS returns the root mean square difference of two equal length vectors
func RMS(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}

// Final returns the RMS error at the last level
func (s *Summary) Final() float64 { return s.RMS[len(s.RMS)-1] }

func (s *Summary) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Levels: %d\n", len(s.RMS)))
	sb.WriteString(fmt.Sprintf("Mean RMS error: %.6e\n", s.Mean))
	sb.WriteString(fmt.Sprintf("Final RMS error: %.6e\n", s.Final()))
	sb.WriteString(fmt.Sprintf("Max error: %.6e at node %d, level %d\n", s.Max, s.MaxNode, s.MaxLevel))
	return sb.String()
}
