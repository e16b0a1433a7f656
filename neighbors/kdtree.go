package neighbors

import (
	"math"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// radiusSlack widens the kd-tree query radius so that rounding in the squared
// distances it uses never drops a node the exact distance keeps
const radiusSlack = 1e-9

// KDTreeFinder answers nearest and radius queries with a gonum kd-tree
type KDTreeFinder struct {
	NVec    int
	Workers int
}

func (f *KDTreeFinder) Find(pc *cloud.PointCloud) (*Table, error) {
	if err := requireTwoNodes(pc); err != nil {
		return nil, err
	}
	n := pc.Len()

	// The tree reorders its points, so coordinates map back to node indices.
	// Coordinates are unique in a valid cloud.
	pts := make(kdtree.Points, n)
	index := make(map[[2]float64]int, n)
	for i := 0; i < n; i++ {
		p := pc.Point(i)
		pts[i] = kdtree.Point{p.X, p.Y}
		index[[2]float64{p.X, p.Y}] = i
	}
	tree := kdtree.New(pts, false)
	query := func(i int) kdtree.Point {
		p := pc.Point(i)
		return kdtree.Point{p.X, p.Y}
	}
	collect := func(heap kdtree.Heap) []int {
		nodes := make([]int, 0, len(heap))
		for _, cd := range heap {
			// Keepers hold a sentinel entry without a point
			if cd.Comparable == nil {
				continue
			}
			p := cd.Comparable.(kdtree.Point)
			nodes = append(nodes, index[[2]float64{p[0], p[1]}])
		}
		return nodes
	}

	nearest := make([]float64, n)
	_ = utils.ParallelFor(n, f.Workers, func(i int) error {
		// The closest point found is the query node itself
		keep := kdtree.NewNKeeper(2)
		tree.NearestSet(keep, query(i))
		d := math.Inf(1)
		for _, j := range collect(keep.Heap) {
			if j != i {
				d = math.Min(d, pc.Distance(i, j))
			}
		}
		nearest[i] = d
		return nil
	})
	cutoff := Cutoff(nearest)

	r := cutoff * (1 + radiusSlack)
	t := NewTable(n, f.NVec)
	_ = utils.ParallelFor(n, f.Workers, func(i int) error {
		keep := kdtree.NewDistKeeper(r * r)
		tree.NearestSet(keep, query(i))
		selectClosest(pc, i, collect(keep.Heap), cutoff, t.Rows[i])
		return nil
	})
	if err := checkCounts(t); err != nil {
		return nil, err
	}
	return t, nil
}
