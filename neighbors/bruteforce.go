package neighbors

import (
	"math"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
)

// BruteForceFinder compares every pair of nodes. It is the reference the
// other coordinate strategies are tested against.
type BruteForceFinder struct {
	NVec    int
	Workers int
}

func (f *BruteForceFinder) Find(pc *cloud.PointCloud) (*Table, error) {
	if err := requireTwoNodes(pc); err != nil {
		return nil, err
	}
	n := pc.Len()

	nearest := make([]float64, n)
	_ = utils.ParallelFor(n, f.Workers, func(i int) error {
		d := math.Inf(1)
		for j := 0; j < n; j++ {
			if j != i {
				d = math.Min(d, pc.Distance(i, j))
			}
		}
		nearest[i] = d
		return nil
	})
	cutoff := Cutoff(nearest)

	all := make([]int, n)
	for j := range all {
		all[j] = j
	}
	t := NewTable(n, f.NVec)
	_ = utils.ParallelFor(n, f.Workers, func(i int) error {
		selectClosest(pc, i, all, cutoff, t.Rows[i])
		return nil
	})
	if err := checkCounts(t); err != nil {
		return nil, err
	}
	return t, nil
}
