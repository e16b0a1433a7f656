package neighbors

import (
	"fmt"
	"strings"
)

// Sentinel fills the unused slots of a neighbor table row
const Sentinel = -1

// Table holds up to NVec neighbor indices per node. Every row has length
// NVec; used slots come first, unused slots hold Sentinel.
type Table struct {
	NVec int
	Rows [][]int
}

// NewTable allocates a table for n nodes with every slot set to Sentinel
func NewTable(n, nvec int) *Table {
	t := &Table{NVec: nvec, Rows: make([][]int, n)}
	backing := make([]int, n*nvec)
	for k := range backing {
		backing[k] = Sentinel
	}
	for i := range t.Rows {
		t.Rows[i] = backing[i*nvec : (i+1)*nvec : (i+1)*nvec]
	}
	return t
}

// Len returns the number of nodes
func (t *Table) Len() int { return len(t.Rows) }

// Count returns the number of neighbors of node i
func (t *Table) Count(i int) int {
	for k, j := range t.Rows[i] {
		if j == Sentinel {
			return k
		}
	}
	return t.NVec
}

// Neighbors returns the used slots of row i. The slice aliases the table.
func (t *Table) Neighbors(i int) []int {
	return t.Rows[i][:t.Count(i)]
}

// Validate checks the table invariants: entries are valid node indices or
// Sentinel, sentinels only trail, and no row contains its own node or a
// repeated neighbor.
func (t *Table) Validate() error {
	n := t.Len()
	for i, row := range t.Rows {
		if len(row) != t.NVec {
			return fmt.Errorf("row %d has %d slots, want %d", i, len(row), t.NVec)
		}
		seen := make(map[int]bool, len(row))
		tail := false
		for k, j := range row {
			switch {
			case j == Sentinel:
				tail = true
				continue
			case tail:
				return fmt.Errorf("row %d slot %d: neighbor %d after sentinel", i, k, j)
			case j < 0 || j >= n:
				return fmt.Errorf("row %d slot %d: index %d out of range", i, k, j)
			case j == i:
				return fmt.Errorf("row %d slot %d: self reference", i, k)
			case seen[j]:
				return fmt.Errorf("row %d slot %d: duplicate neighbor %d", i, k, j)
			}
			seen[j] = true
		}
	}
	return nil
}

// Equal reports whether two tables hold the same rows
func (t *Table) Equal(o *Table) bool {
	if t.NVec != o.NVec || t.Len() != o.Len() {
		return false
	}
	for i := range t.Rows {
		for k := range t.Rows[i] {
			if t.Rows[i][k] != o.Rows[i][k] {
				return false
			}
		}
	}
	return true
}

// String returns a summary of the table
func (t *Table) String() string {
	var sb strings.Builder
	minCount, maxCount, total := t.NVec, 0, 0
	for i := range t.Rows {
		c := t.Count(i)
		minCount = min(minCount, c)
		maxCount = max(maxCount, c)
		total += c
	}
	sb.WriteString("=== Neighbor Table Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Nodes: %d\n", t.Len()))
	sb.WriteString(fmt.Sprintf("  Capacity (nvec): %d\n", t.NVec))
	if t.Len() > 0 {
		sb.WriteString(fmt.Sprintf("  Neighbors per node: min %d, max %d, mean %.2f\n",
			minCount, maxCount, float64(total)/float64(t.Len())))
	}
	return sb.String()
}
