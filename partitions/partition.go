package partitions

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Partition is the set of nodes falling in one square cell of the layout
// grid. Cells are processed as a batch by the spatially batched neighbor
// search.
type Partition struct {
	// Unique identifier for this partition, equal to CellY*Nx + CellX
	ID int

	// Cell coordinates within the layout grid
	CellX, CellY int

	// Node membership, ascending global node indices
	Nodes    []int
	NumNodes int

	// Extent of the cell
	Box r2.Box
}

// PartitionLayout manages the complete decomposition of a point cloud into
// uniform square cells
type PartitionLayout struct {
	// All partitions, row-major over the cell grid. Empty cells are kept so
	// that a cell is addressed directly by its coordinates.
	Partitions []Partition

	// Grid geometry
	Origin   r2.Vec  // Lower-left corner of cell (0, 0)
	CellSize float64 // Side length of every cell
	Nx, Ny   int     // Cells along x and y

	// Global sizing information
	MaxNodes      int // max(NumNodes) across all partitions
	TotalNodes    int // Sum of all nodes across partitions
	NumPartitions int // Nx * Ny

	// Node to partition mapping
	NToP []int // Length TotalNodes: node n belongs to partition NToP[n]
}

// GetPartition returns the partition containing node n
func (pl *PartitionLayout) GetPartition(node int) int {
	if node < 0 || node >= len(pl.NToP) {
		return -1
	}
	return pl.NToP[node]
}

// CellOf returns the cell coordinates of a point, which may lie outside the
// grid
func (pl *PartitionLayout) CellOf(p r2.Vec) (cx, cy int) {
	cx = int(math.Floor((p.X - pl.Origin.X) / pl.CellSize))
	cy = int(math.Floor((p.Y - pl.Origin.Y) / pl.CellSize))
	return
}

// PartitionAt returns the partition ID of cell (cx, cy) or -1 when the cell
// is outside the grid
func (pl *PartitionLayout) PartitionAt(cx, cy int) int {
	if cx < 0 || cy < 0 || cx >= pl.Nx || cy >= pl.Ny {
		return -1
	}
	return cy*pl.Nx + cx
}

// Neighborhood returns the IDs of the partitions in the 3x3 block of cells
// centred on partition id, in ascending order. Any point closer than
// CellSize to a point of partition id lies in one of them.
func (pl *PartitionLayout) Neighborhood(id int) []int {
	p := pl.Partitions[id]
	ids := make([]int, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if q := pl.PartitionAt(p.CellX+dx, p.CellY+dy); q >= 0 {
				ids = append(ids, q)
			}
		}
	}
	return ids
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if pl.NumPartitions != pl.Nx*pl.Ny || len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("partition count %d does not match %dx%d grid",
			len(pl.Partitions), pl.Nx, pl.Ny)
	}
	actualMax, total := 0, 0
	for id, p := range pl.Partitions {
		if p.ID != id {
			return fmt.Errorf("partition at slot %d has ID %d", id, p.ID)
		}
		if p.NumNodes != len(p.Nodes) {
			return fmt.Errorf("partition %d: NumNodes %d != len(Nodes) %d",
				p.ID, p.NumNodes, len(p.Nodes))
		}
		for _, n := range p.Nodes {
			if pl.GetPartition(n) != p.ID {
				return fmt.Errorf("partition %d: node %d mapped to partition %d",
					p.ID, n, pl.GetPartition(n))
			}
		}
		actualMax = max(actualMax, p.NumNodes)
		total += p.NumNodes
	}
	if actualMax != pl.MaxNodes {
		return fmt.Errorf("computed MaxNodes %d != stored MaxNodes %d",
			actualMax, pl.MaxNodes)
	}
	if total != pl.TotalNodes || len(pl.NToP) != pl.TotalNodes {
		return fmt.Errorf("partitions hold %d nodes, layout expects %d", total, pl.TotalNodes)
	}
	return nil
}

type PartitionStats struct {
	NumPartitions int
	NonEmpty      int
	MinNodes      int // Over non-empty partitions
	MaxNodes      int
	AvgNodes      float64 // Over non-empty partitions
	Imbalance     float64 // MaxNodes / AvgNodes
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinNodes:      math.MaxInt32,
	}
	for _, p := range pl.Partitions {
		if p.NumNodes == 0 {
			continue
		}
		stats.NonEmpty++
		stats.MinNodes = min(stats.MinNodes, p.NumNodes)
		stats.MaxNodes = max(stats.MaxNodes, p.NumNodes)
	}
	if stats.NonEmpty == 0 {
		stats.MinNodes = 0
		return stats
	}
	stats.AvgNodes = float64(pl.TotalNodes) / float64(stats.NonEmpty)
	stats.Imbalance = float64(stats.MaxNodes) / stats.AvgNodes
	return stats
}
