package cloud

import (
	"fmt"
	"math"
	"strings"

	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/spatial/r2"
)

// BoundaryType classifies a node of the cloud
type BoundaryType uint8

const (
	Interior  BoundaryType = iota // Updated by the stencil
	Boundary1                     // Outer boundary
	Boundary2                     // Inner boundary (holes)
)

func (b BoundaryType) String() string {
	switch b {
	case Interior:
		return "interior"
	case Boundary1:
		return "boundary-1"
	case Boundary2:
		return "boundary-2"
	}
	return fmt.Sprintf("BoundaryType(%d)", uint8(b))
}

// IsBoundary reports whether the node value is driven by the boundary
// condition rather than the stencil update
func (b BoundaryType) IsBoundary() bool {
	return b == Boundary1 || b == Boundary2
}

// Node is a single sample location. Nodes are never modified after the cloud
// is built.
type Node struct {
	Index    int
	P        r2.Vec
	Boundary BoundaryType
}

// Triangulation is a list of node index triples. It is only read to derive
// adjacency.
type Triangulation [][3]int

// PointCloud is the ordered set of nodes. Node order defines the global
// indexing used by the neighbor table, the operator and the solution arrays.
type PointCloud struct {
	nodes    []Node
	interior []int
	boundary []int
}

// NewPointCloud builds a cloud from coordinate and flag columns. Flags use
// the 0/1/2 convention of Interior/Boundary1/Boundary2.
func NewPointCloud(X, Y []float64, flags []int) (*PointCloud, error) {
	if len(X) != len(Y) || len(X) != len(flags) {
		return nil, utils.NewSolveError(utils.GeometryError,
			fmt.Errorf("column lengths differ: x=%d y=%d flags=%d", len(X), len(Y), len(flags)))
	}
	if len(X) == 0 {
		return nil, utils.NewSolveError(utils.GeometryError, fmt.Errorf("empty point cloud"))
	}
	pc := &PointCloud{nodes: make([]Node, len(X))}
	seen := make(map[r2.Vec]int, len(X))
	for i := range X {
		if math.IsNaN(X[i]) || math.IsNaN(Y[i]) || math.IsInf(X[i], 0) || math.IsInf(Y[i], 0) {
			return nil, utils.NewNodeError(utils.GeometryError, i,
				fmt.Errorf("non-finite coordinate (%g, %g)", X[i], Y[i]))
		}
		if flags[i] < int(Interior) || flags[i] > int(Boundary2) {
			return nil, utils.NewNodeError(utils.GeometryError, i,
				fmt.Errorf("unknown boundary flag %d", flags[i]))
		}
		p := r2.Vec{X: X[i], Y: Y[i]}
		if j, dup := seen[p]; dup {
			return nil, utils.NewNodeError(utils.GeometryError, i,
				fmt.Errorf("%w: same coordinates as node %d", utils.ErrDuplicateNode, j))
		}
		seen[p] = i
		b := BoundaryType(flags[i])
		pc.nodes[i] = Node{Index: i, P: p, Boundary: b}
		if b.IsBoundary() {
			pc.boundary = append(pc.boundary, i)
		} else {
			pc.interior = append(pc.interior, i)
		}
	}
	return pc, nil
}

// Len returns the number of nodes
func (pc *PointCloud) Len() int { return len(pc.nodes) }

// Node returns node i
func (pc *PointCloud) Node(i int) Node { return pc.nodes[i] }

// Point returns the coordinate of node i
func (pc *PointCloud) Point(i int) r2.Vec { return pc.nodes[i].P }

// InteriorNodes returns the indices of interior nodes in global order. The
// returned slice must not be modified.
func (pc *PointCloud) InteriorNodes() []int { return pc.interior }

// BoundaryNodes returns the indices of boundary nodes in global order. The
// returned slice must not be modified.
func (pc *PointCloud) BoundaryNodes() []int { return pc.boundary }

// IsBoundary reports whether node i is a boundary node
func (pc *PointCloud) IsBoundary(i int) bool { return pc.nodes[i].Boundary.IsBoundary() }

// Distance is the Euclidean distance between nodes i and j. Every neighbor
// search strategy measures distance through this function so their results
// agree bit for bit.
func (pc *PointCloud) Distance(i, j int) float64 {
	return Distance(pc.nodes[i].P, pc.nodes[j].P)
}

// Distance is the Euclidean distance between two points
func Distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Bounds returns the axis aligned bounding box of the cloud
func (pc *PointCloud) Bounds() r2.Box {
	box := r2.Box{Min: pc.nodes[0].P, Max: pc.nodes[0].P}
	for _, n := range pc.nodes[1:] {
		box.Min.X = math.Min(box.Min.X, n.P.X)
		box.Min.Y = math.Min(box.Min.Y, n.P.Y)
		box.Max.X = math.Max(box.Max.X, n.P.X)
		box.Max.Y = math.Max(box.Max.Y, n.P.Y)
	}
	return box
}

// Validate checks that every triangle references nodes of pc
func (tt Triangulation) Validate(pc *PointCloud) error {
	for k, tri := range tt {
		for _, v := range tri {
			if v < 0 || v >= pc.Len() {
				return utils.NewSolveError(utils.GeometryError,
					fmt.Errorf("%w: triangle %d vertex %d", utils.ErrBadTriangle, k, v))
			}
		}
	}
	return nil
}

// String returns a summary of the cloud
func (pc *PointCloud) String() string {
	var sb strings.Builder
	box := pc.Bounds()
	sb.WriteString("=== PointCloud Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Nodes: %d\n", pc.Len()))
	sb.WriteString(fmt.Sprintf("  Interior: %d\n", len(pc.interior)))
	sb.WriteString(fmt.Sprintf("  Boundary: %d\n", len(pc.boundary)))
	sb.WriteString(fmt.Sprintf("  Bounds: [%g, %g] x [%g, %g]\n",
		box.Min.X, box.Max.X, box.Min.Y, box.Max.Y))
	return sb.String()
}
