package neighbors

import (
	"log/slog"
	"math"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/partitions"
	"github.com/gstinoco/WaveGFD/utils"
)

// SpatialBatchFinder bins the nodes into square cells and searches cell by
// cell. Nearest distances come from growing rings of cells around each node;
// neighbor candidates come from the 3x3 block of cutoff-sized cells around
// each cell.
type SpatialBatchFinder struct {
	NVec    int
	Workers int
	Logger  *slog.Logger // Nil selects slog.Default
}

func (f *SpatialBatchFinder) Find(pc *cloud.PointCloud) (*Table, error) {
	if err := requireTwoNodes(pc); err != nil {
		return nil, err
	}

	coarse, err := (&partitions.PartitionBuilder{Cloud: pc, CellSize: meanSpacing(pc)}).BuildPartitions()
	if err != nil {
		return nil, err
	}
	nearest := make([]float64, pc.Len())
	_ = utils.ParallelFor(pc.Len(), f.Workers, func(i int) error {
		nearest[i] = ringNearest(pc, coarse, i)
		return nil
	})
	cutoff := Cutoff(nearest)

	layout, err := (&partitions.PartitionBuilder{Cloud: pc, CellSize: cutoff}).BuildPartitions()
	if err != nil {
		return nil, err
	}
	f.logLayout(layout)
	t := NewTable(pc.Len(), f.NVec)
	_ = utils.ParallelFor(layout.NumPartitions, f.Workers, func(id int) error {
		part := layout.Partitions[id]
		if part.NumNodes == 0 {
			return nil
		}
		var cands []int
		for _, q := range layout.Neighborhood(id) {
			cands = append(cands, layout.Partitions[q].Nodes...)
		}
		for _, i := range part.Nodes {
			selectClosest(pc, i, cands, cutoff, t.Rows[i])
		}
		return nil
	})
	if err := checkCounts(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (f *SpatialBatchFinder) logLayout(layout *partitions.PartitionLayout) {
	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	stats := layout.PartitionStatistics()
	log.Debug("search cells built", "cells", stats.NumPartitions, "occupied", stats.NonEmpty,
		"cell_size", layout.CellSize, "max_nodes", stats.MaxNodes, "imbalance", stats.Imbalance)
}

// meanSpacing estimates the node spacing from the bounding box
func meanSpacing(pc *cloud.PointCloud) float64 {
	box := pc.Bounds()
	w, h := box.Max.X-box.Min.X, box.Max.Y-box.Min.Y
	if w > 0 && h > 0 {
		return math.Sqrt(w * h / float64(pc.Len()))
	}
	// Collinear along an axis
	return math.Max(w, h) / float64(pc.Len())
}

// ringNearest returns the distance from node i to its nearest other node by
// scanning rings of cells of growing Chebyshev radius r. Any node outside the
// rings scanned so far is at least r*CellSize away, which bounds the search.
func ringNearest(pc *cloud.PointCloud, layout *partitions.PartitionLayout, i int) float64 {
	home := layout.Partitions[layout.GetPartition(i)]
	best := math.Inf(1)
	maxRing := max(layout.Nx, layout.Ny)
	for r := 0; r <= maxRing; r++ {
		for cy := home.CellY - r; cy <= home.CellY+r; cy++ {
			for cx := home.CellX - r; cx <= home.CellX+r; cx++ {
				// Only the outline of the ring is new
				if r > 0 && cy != home.CellY-r && cy != home.CellY+r &&
					cx != home.CellX-r && cx != home.CellX+r {
					continue
				}
				q := layout.PartitionAt(cx, cy)
				if q < 0 {
					continue
				}
				for _, j := range layout.Partitions[q].Nodes {
					if j != i {
						best = math.Min(best, pc.Distance(i, j))
					}
				}
			}
		}
		if best <= float64(r)*layout.CellSize {
			break
		}
	}
	return best
}
