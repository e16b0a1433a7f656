package stencil

import (
	"fmt"
	"strings"
)

// NodeReport records the conditioning of one local least-squares system
type NodeReport struct {
	Neighbors int
	Rank      int               // Singular values kept by the pseudo-inverse
	Singular  [NumTerms]float64 // Descending, offsets in units of the stencil radius
	Condition float64           // Ratio of largest to smallest kept singular value
}

// Report exposes how every node's local system was resolved, so rank
// deficiency absorbed by the pseudo-inverse stays visible to callers.
type Report struct {
	Tolerance float64
	Nodes     []NodeReport
}

// RankDeficient returns the nodes whose local system did not have full rank
func (r *Report) RankDeficient() []int {
	var nodes []int
	for i, nr := range r.Nodes {
		if nr.Rank < NumTerms {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// MaxCondition returns the largest local condition number and its node
func (r *Report) MaxCondition() (cond float64, node int) {
	node = -1
	for i, nr := range r.Nodes {
		if nr.Condition > cond {
			cond, node = nr.Condition, i
		}
	}
	return
}

// String returns a summary of the report
func (r *Report) String() string {
	var sb strings.Builder
	cond, node := r.MaxCondition()
	sb.WriteString("=== Stencil Report ===\n")
	sb.WriteString(fmt.Sprintf("  Nodes: %d\n", len(r.Nodes)))
	sb.WriteString(fmt.Sprintf("  Pseudo-inverse tolerance: %g\n", r.Tolerance))
	sb.WriteString(fmt.Sprintf("  Rank deficient nodes: %d\n", len(r.RankDeficient())))
	if node >= 0 {
		sb.WriteString(fmt.Sprintf("  Worst local condition: %.3e at node %d\n", cond, node))
	}
	return sb.String()
}
