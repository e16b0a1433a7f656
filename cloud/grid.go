package cloud

import (
	"fmt"

	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/spatial/r2"
)

// RegularGrid builds an Nx by Ny lattice covering box, ordered row by row
// (x fastest), with every node on the outer edge flagged Boundary1. The
// returned triangulation splits each lattice cell along the diagonal that
// points at the grid centre, so every corner node lies in two triangles.
func RegularGrid(Nx, Ny int, box r2.Box) (*PointCloud, Triangulation, error) {
	if Nx < 2 || Ny < 2 {
		return nil, nil, utils.NewConfigError("grid", "need at least 2x2 nodes, got %dx%d", Nx, Ny)
	}
	if box.Max.X <= box.Min.X || box.Max.Y <= box.Min.Y {
		return nil, nil, utils.NewConfigError("grid", "empty box %v", box)
	}
	var (
		N     = Nx * Ny
		X     = make([]float64, N)
		Y     = make([]float64, N)
		flags = make([]int, N)
		hx    = (box.Max.X - box.Min.X) / float64(Nx-1)
		hy    = (box.Max.Y - box.Min.Y) / float64(Ny-1)
	)
	for j := 0; j < Ny; j++ {
		for i := 0; i < Nx; i++ {
			k := j*Nx + i
			X[k] = box.Min.X + float64(i)*hx
			Y[k] = box.Min.Y + float64(j)*hy
			if i == 0 || j == 0 || i == Nx-1 || j == Ny-1 {
				flags[k] = int(Boundary1)
			}
		}
	}
	pc, err := NewPointCloud(X, Y, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("regular grid: %w", err)
	}

	tt := make(Triangulation, 0, 2*(Nx-1)*(Ny-1))
	for j := 0; j < Ny-1; j++ {
		for i := 0; i < Nx-1; i++ {
			v00 := j*Nx + i
			v10 := v00 + 1
			v01 := v00 + Nx
			v11 := v01 + 1
			left, below := 2*i+1 < Nx-1, 2*j+1 < Ny-1
			if left == below {
				tt = append(tt, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
			} else {
				tt = append(tt, [3]int{v00, v10, v01}, [3]int{v10, v11, v01})
			}
		}
	}
	return pc, tt, nil
}
