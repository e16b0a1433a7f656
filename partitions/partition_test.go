package partitions

import (
	"testing"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestBuildPartitionsOnGrid(t *testing.T) {
	// 5x5 lattice with unit spacing, cells of size 2
	pc, _, err := cloud.RegularGrid(5, 5, r2.Box{Max: r2.Vec{X: 4, Y: 4}})
	require.NoError(t, err)

	pb := &PartitionBuilder{Cloud: pc, CellSize: 2}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)

	assert.Equal(t, 3, layout.Nx)
	assert.Equal(t, 3, layout.Ny)
	assert.Equal(t, 9, layout.NumPartitions)
	assert.Equal(t, 25, layout.TotalNodes)
	// Cell (0,0) holds x,y in {0,1}
	assert.Equal(t, []int{0, 1, 5, 6}, layout.Partitions[0].Nodes)
	assert.Equal(t, 4, layout.MaxNodes)
	// Node 24 at (4,4) lies in the last cell
	assert.Equal(t, 8, layout.GetPartition(24))
	assert.Equal(t, -1, layout.GetPartition(25))
	assert.Equal(t, []int{24}, layout.Partitions[8].Nodes)

	assert.Equal(t, []int{0, 1, 3, 4}, layout.Neighborhood(0))
	assert.Len(t, layout.Neighborhood(4), 9)

	stats := layout.PartitionStatistics()
	assert.Equal(t, 9, stats.NonEmpty)
	assert.Equal(t, 1, stats.MinNodes)
	assert.Equal(t, 4, stats.MaxNodes)
	assert.InDelta(t, 25.0/9.0, stats.AvgNodes, 1e-12)
}

func TestBuildPartitionsNeighborhoodCoversCellSize(t *testing.T) {
	pc, _, err := cloud.RegularGrid(7, 4, r2.Box{Min: r2.Vec{X: -1, Y: 2}, Max: r2.Vec{X: 2, Y: 3.5}})
	require.NoError(t, err)
	layout, err := (&PartitionBuilder{Cloud: pc, CellSize: 0.6}).BuildPartitions()
	require.NoError(t, err)

	for i := 0; i < pc.Len(); i++ {
		block := map[int]bool{}
		for _, id := range layout.Neighborhood(layout.GetPartition(i)) {
			block[id] = true
		}
		for j := 0; j < pc.Len(); j++ {
			if pc.Distance(i, j) < layout.CellSize {
				assert.True(t, block[layout.GetPartition(j)], "node %d not reachable from %d", j, i)
			}
		}
	}
}

func TestBuildPartitionsWidensTinyCells(t *testing.T) {
	pc, err := cloud.NewPointCloud([]float64{0, 100}, []float64{0, 100}, []int{1, 1})
	require.NoError(t, err)
	layout, err := (&PartitionBuilder{Cloud: pc, CellSize: 0.01}).BuildPartitions()
	require.NoError(t, err)
	assert.LessOrEqual(t, layout.NumPartitions, MaxCellsPerNode*pc.Len())
	assert.GreaterOrEqual(t, layout.CellSize, 0.01)

	_, err = (&PartitionBuilder{Cloud: pc, CellSize: 0}).BuildPartitions()
	assert.Error(t, err)
}

func TestValidateLayoutDetectsCorruption(t *testing.T) {
	pc, _, err := cloud.RegularGrid(3, 3, r2.Box{Max: r2.Vec{X: 1, Y: 1}})
	require.NoError(t, err)
	layout, err := (&PartitionBuilder{Cloud: pc, CellSize: 1}).BuildPartitions()
	require.NoError(t, err)
	require.NoError(t, layout.ValidateLayout())

	layout.MaxNodes++
	assert.Error(t, layout.ValidateLayout())
	layout.MaxNodes--

	layout.NToP[0] = layout.NumPartitions - 1
	assert.Error(t, layout.ValidateLayout())
}
