package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
	meshreaders "github.com/notargets/gocfd/DG3D/mesh/readers"
)

// IsMeshFile reports whether path names a Gambit neutral or Gmsh file
func IsMeshFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".neu", ".msh":
		return true
	}
	return false
}

// ReadMeshFile reads a planar triangle mesh written by Gambit or Gmsh. The
// mesh vertices become the nodes and its triangles the triangulation. Nodes
// on an edge used by a single triangle are flagged as outer boundary.
func ReadMeshFile(path string) (*cloud.PointCloud, cloud.Triangulation, error) {
	m, err := meshreaders.ReadMeshFile(path)
	if err != nil {
		return nil, nil, utils.NewSolveError(utils.GeometryError, fmt.Errorf("%s: %w", path, err))
	}

	n := len(m.Vertices)
	X, Y := make([]float64, n), make([]float64, n)
	for i, v := range m.Vertices {
		if v[2] != 0 {
			return nil, nil, utils.NewNodeError(utils.GeometryError, i,
				fmt.Errorf("%s: vertex is off the z=0 plane", path))
		}
		X[i], Y[i] = v[0], v[1]
	}
	tt := make(cloud.Triangulation, len(m.EtoV))
	for k, verts := range m.EtoV {
		if len(verts) != 3 {
			return nil, nil, utils.NewSolveError(utils.GeometryError,
				fmt.Errorf("%w: %s: element %d has %d vertices", utils.ErrBadTriangle, path, k, len(verts)))
		}
		copy(tt[k][:], verts)
	}
	pc, tt, err := MeshCloud(X, Y, tt)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return pc, tt, nil
}

// MeshCloud builds a point cloud from triangle mesh vertices, flagging the
// vertices of unshared edges as outer boundary.
func MeshCloud(X, Y []float64, tt cloud.Triangulation) (*cloud.PointCloud, cloud.Triangulation, error) {
	type edge struct{ a, b int }
	uses := make(map[edge]int, 3*len(tt))
	for k, tri := range tt {
		for n := 0; n < 3; n++ {
			a, b := tri[n], tri[(n+1)%3]
			if a < 0 || a >= len(X) || b < 0 || b >= len(X) {
				return nil, nil, utils.NewSolveError(utils.GeometryError,
					fmt.Errorf("%w: triangle %d vertex out of range", utils.ErrBadTriangle, k))
			}
			if a > b {
				a, b = b, a
			}
			uses[edge{a, b}]++
		}
	}
	flags := make([]int, len(X))
	for e, count := range uses {
		if count == 1 {
			flags[e.a], flags[e.b] = int(cloud.Boundary1), int(cloud.Boundary1)
		}
	}
	pc, err := cloud.NewPointCloud(X, Y, flags)
	if err != nil {
		return nil, nil, err
	}
	return pc, tt, nil
}
