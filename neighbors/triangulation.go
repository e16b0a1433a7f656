package neighbors

import (
	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
)

// TriangulationFinder takes the neighbors of a node from the triangles that
// contain it. Neighbors are kept in the order they are first met walking the
// triangles, then the vertices of each triangle, and the row is truncated at
// NVec.
type TriangulationFinder struct {
	Triangles cloud.Triangulation
	NVec      int
	Workers   int
}

func (f *TriangulationFinder) Find(pc *cloud.PointCloud) (*Table, error) {
	if err := f.Triangles.Validate(pc); err != nil {
		return nil, err
	}
	// Triangles of each node, in triangulation order
	incident := make([][]int, pc.Len())
	for k, tri := range f.Triangles {
		for _, v := range tri {
			if l := len(incident[v]); l == 0 || incident[v][l-1] != k {
				incident[v] = append(incident[v], k)
			}
		}
	}

	t := NewTable(pc.Len(), f.NVec)
	_ = utils.ParallelFor(pc.Len(), f.Workers, func(v int) error {
		row, count := t.Rows[v], 0
		for _, k := range incident[v] {
			for _, u := range f.Triangles[k] {
				if count == f.NVec {
					return nil
				}
				if u == v || contains(row[:count], u) {
					continue
				}
				row[count] = u
				count++
			}
		}
		return nil
	})
	if err := checkCounts(t); err != nil {
		return nil, err
	}
	return t, nil
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
