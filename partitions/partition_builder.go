package partitions

import (
	"fmt"
	"math"

	"github.com/gstinoco/WaveGFD/cloud"
	"gonum.org/v1/gonum/spatial/r2"
)

// MaxCellsPerNode bounds the size of the cell grid relative to the number of
// nodes; the builder widens the cells when the requested size would exceed it.
const MaxCellsPerNode = 4

// PartitionBuilder constructs a cell layout from node coordinates
type PartitionBuilder struct {
	Cloud *cloud.PointCloud

	// Requested cell side length. Neighbor searches use their cutoff radius.
	CellSize float64
}

// BuildPartitions creates a partition layout covering every node of the
// cloud
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Cloud == nil || pb.Cloud.Len() == 0 {
		return nil, fmt.Errorf("partition builder: empty cloud")
	}
	if !(pb.CellSize > 0) || math.IsInf(pb.CellSize, 0) {
		return nil, fmt.Errorf("partition builder: invalid cell size %g", pb.CellSize)
	}

	// Determine the cell grid
	box := pb.Cloud.Bounds()
	cellSize := pb.calculateCellSize(box)
	nx, ny := cellCount(box, cellSize)

	layout := &PartitionLayout{
		Origin:        box.Min,
		CellSize:      cellSize,
		Nx:            nx,
		Ny:            ny,
		NumPartitions: nx * ny,
		TotalNodes:    pb.Cloud.Len(),
	}

	// Partition the nodes
	layout.NToP = pb.partitionNodes(layout)

	// Create partition structures
	layout.Partitions = pb.createPartitions(layout)
	layout.MaxNodes = calculateMaxNodes(layout.Partitions)

	// Validate the layout
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateCellSize widens the requested cell size when the grid would hold
// more than MaxCellsPerNode cells per node
func (pb *PartitionBuilder) calculateCellSize(box r2.Box) float64 {
	cellSize := pb.CellSize
	limit := MaxCellsPerNode * pb.Cloud.Len()
	for {
		nx, ny := cellCount(box, cellSize)
		if nx*ny <= limit {
			return cellSize
		}
		cellSize *= 2
	}
}

func cellCount(box r2.Box, cellSize float64) (nx, ny int) {
	nx = int(math.Floor((box.Max.X-box.Min.X)/cellSize)) + 1
	ny = int(math.Floor((box.Max.Y-box.Min.Y)/cellSize)) + 1
	return
}

// partitionNodes assigns nodes to cells
func (pb *PartitionBuilder) partitionNodes(layout *PartitionLayout) []int {
	nToP := make([]int, pb.Cloud.Len())
	for n := range nToP {
		cx, cy := layout.CellOf(pb.Cloud.Point(n))
		// Points on the far edge of the box round into the last cell
		cx = min(max(cx, 0), layout.Nx-1)
		cy = min(max(cy, 0), layout.Ny-1)
		nToP[n] = layout.PartitionAt(cx, cy)
	}
	return nToP
}

// createPartitions builds partition structures from node assignments
func (pb *PartitionBuilder) createPartitions(layout *PartitionLayout) []Partition {
	partitions := make([]Partition, layout.NumPartitions)

	// Initialize partitions
	for id := range partitions {
		cx, cy := id%layout.Nx, id/layout.Nx
		lo := r2.Vec{
			X: layout.Origin.X + float64(cx)*layout.CellSize,
			Y: layout.Origin.Y + float64(cy)*layout.CellSize,
		}
		partitions[id] = Partition{
			ID:    id,
			CellX: cx,
			CellY: cy,
			Box:   r2.Box{Min: lo, Max: r2.Add(lo, r2.Vec{X: layout.CellSize, Y: layout.CellSize})},
		}
	}

	// Assign nodes in ascending order so each partition lists them sorted
	for node, part := range layout.NToP {
		partitions[part].Nodes = append(partitions[part].Nodes, node)
		partitions[part].NumNodes++
	}

	return partitions
}

// calculateMaxNodes finds maximum nodes across all partitions
func calculateMaxNodes(partitions []Partition) int {
	maxNodes := 0
	for _, p := range partitions {
		maxNodes = max(maxNodes, p.NumNodes)
	}
	return maxNodes
}
