// Package neighbors selects, for every node of a point cloud, the nodes used
// to build its finite difference stencil.
//
// With a triangulation the neighbors of a node are the other vertices of the
// triangles containing it. Without one, a global cutoff radius of 1.5 times
// the largest nearest-neighbor distance is computed and each node keeps the
// NVec closest nodes strictly inside that radius, ordered by distance and
// then by node index. Three coordinate strategies implement that rule with
// different search structures and produce identical tables.
package neighbors

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
)

// CutoffFactor scales the largest nearest-neighbor distance into the search
// radius
const CutoffFactor = 1.5

// DefaultNVec is the neighbor capacity used by the original wave examples
const DefaultNVec = 8

// Strategy selects the search structure for coordinate based searches
type Strategy uint8

const (
	BruteForce   Strategy = iota // Pairwise scan
	SpatialBatch                 // Uniform cell binning, processed cell by cell
	KDTree                       // gonum kd-tree radius queries
)

func (s Strategy) String() string {
	switch s {
	case BruteForce:
		return "brute-force"
	case SpatialBatch:
		return "spatial-batch"
	case KDTree:
		return "kd-tree"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy converts a strategy name as printed by String
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range []Strategy{BruteForce, SpatialBatch, KDTree} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, utils.NewConfigError("strategy", "unknown neighbor strategy %q", name)
}

// Options configures a neighbor search
type Options struct {
	NVec     int
	Strategy Strategy     // Ignored when a triangulation is supplied
	Workers  int          // Zero selects utils.DefaultWorkers
	Logger   *slog.Logger // Nil selects slog.Default
}

// Finder produces the neighbor table of a point cloud
type Finder interface {
	Find(pc *cloud.PointCloud) (*Table, error)
}

// NewFinder returns the triangulation finder when tt is not nil and the
// coordinate finder named by opts.Strategy otherwise.
func NewFinder(tt cloud.Triangulation, opts Options) (Finder, error) {
	if opts.NVec < 1 {
		return nil, utils.NewConfigError("nvec", "need at least one neighbor slot, got %d", opts.NVec)
	}
	if tt != nil {
		return &TriangulationFinder{Triangles: tt, NVec: opts.NVec, Workers: opts.Workers}, nil
	}
	switch opts.Strategy {
	case BruteForce:
		return &BruteForceFinder{NVec: opts.NVec, Workers: opts.Workers}, nil
	case SpatialBatch:
		return &SpatialBatchFinder{NVec: opts.NVec, Workers: opts.Workers, Logger: opts.Logger}, nil
	case KDTree:
		return &KDTreeFinder{NVec: opts.NVec, Workers: opts.Workers}, nil
	}
	return nil, utils.NewConfigError("strategy", "unknown neighbor strategy %d", opts.Strategy)
}

// Find is a convenience wrapper around NewFinder
func Find(pc *cloud.PointCloud, tt cloud.Triangulation, opts Options) (*Table, error) {
	f, err := NewFinder(tt, opts)
	if err != nil {
		return nil, err
	}
	return f.Find(pc)
}

// Cutoff returns the search radius for a set of nearest-neighbor distances
func Cutoff(nearest []float64) float64 {
	dmax := 0.0
	for _, d := range nearest {
		dmax = math.Max(dmax, d)
	}
	return CutoffFactor * dmax
}

type candidate struct {
	node int
	dist float64
}

// selectClosest writes into row the nvec nodes of cands closest to node i
// and strictly inside cutoff, ordered by distance and then index. cands may
// contain i, repeats and nodes beyond the cutoff.
func selectClosest(pc *cloud.PointCloud, i int, cands []int, cutoff float64, row []int) {
	kept := make([]candidate, 0, len(cands))
	for _, j := range cands {
		if j == i {
			continue
		}
		if d := pc.Distance(i, j); d < cutoff {
			kept = append(kept, candidate{node: j, dist: d})
		}
	}
	slices.SortFunc(kept, func(a, b candidate) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return a.node - b.node
	})
	kept = slices.CompactFunc(kept, func(a, b candidate) bool { return a.node == b.node })
	for k := range row {
		if k < len(kept) {
			row[k] = kept[k].node
		} else {
			row[k] = Sentinel
		}
	}
}

// checkCounts reports the first node without any neighbor
func checkCounts(t *Table) error {
	for i := range t.Rows {
		if t.Count(i) == 0 {
			return utils.NewNodeError(utils.GeometryError, i, utils.ErrInsufficientNeighbors)
		}
	}
	return nil
}

// requireTwoNodes guards the coordinate searches, which need a second node to
// measure a nearest distance
func requireTwoNodes(pc *cloud.PointCloud) error {
	if pc.Len() < 2 {
		return utils.NewNodeError(utils.GeometryError, 0, utils.ErrInsufficientNeighbors)
	}
	return nil
}
