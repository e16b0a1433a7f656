package neighbors

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var coordinateStrategies = []Strategy{BruteForce, SpatialBatch, KDTree}

// randomCloud scatters n nodes in the unit square with the outer ring of a
// coarse lattice as boundary
func randomCloud(t *testing.T, n int, seed int64) *cloud.PointCloud {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var X, Y []float64
	var flags []int
	for k := 0; k <= 10; k++ {
		s := float64(k) / 10
		for _, p := range [][2]float64{{s, 0}, {s, 1}, {0, s}, {1, s}} {
			X, Y, flags = append(X, p[0]), append(Y, p[1]), append(flags, 1)
		}
	}
	for len(X) < n {
		X = append(X, 0.02+0.96*rng.Float64())
		Y = append(Y, 0.02+0.96*rng.Float64())
		flags = append(flags, 0)
	}
	// The lattice ring repeats its corners; drop repeats
	seen := map[[2]float64]bool{}
	var x2, y2 []float64
	var f2 []int
	for i := range X {
		key := [2]float64{X[i], Y[i]}
		if seen[key] {
			continue
		}
		seen[key] = true
		x2, y2, f2 = append(x2, X[i]), append(y2, Y[i]), append(f2, flags[i])
	}
	pc, err := cloud.NewPointCloud(x2, y2, f2)
	require.NoError(t, err)
	return pc
}

func TestCoordinateStrategiesAgree(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		pc := randomCloud(t, 150, seed)
		reference, err := Find(pc, nil, Options{NVec: DefaultNVec, Strategy: BruteForce, Workers: 1})
		require.NoError(t, err)
		require.NoError(t, reference.Validate())

		for _, s := range coordinateStrategies {
			for _, workers := range []int{1, 4} {
				tab, err := Find(pc, nil, Options{NVec: DefaultNVec, Strategy: s, Workers: workers})
				require.NoError(t, err, s.String())
				require.NoError(t, tab.Validate(), s.String())
				assert.True(t, tab.Equal(reference), "%s with %d workers differs from brute force (seed %d)",
					s, workers, seed)
			}
		}
	}
}

func TestCoordinateSearchOnLattice(t *testing.T) {
	// Unit lattice: nearest distance 1 everywhere, cutoff 1.5, so interior
	// nodes keep the 4 edge neighbors then the 4 diagonal neighbors.
	pc, _, err := cloud.RegularGrid(4, 4, r2.Box{Max: r2.Vec{X: 3, Y: 3}})
	require.NoError(t, err)

	for _, s := range coordinateStrategies {
		tab, err := Find(pc, nil, Options{NVec: 8, Strategy: s})
		require.NoError(t, err)
		// Node 5 at (1,1): edges 1,4,6,9 then diagonals 0,2,8,10
		assert.Equal(t, []int{1, 4, 6, 9, 0, 2, 8, 10}, tab.Rows[5], s.String())
		// Corner 0 at (0,0): 1 and 4 at distance 1, then 5 at sqrt(2)
		assert.Equal(t, []int{1, 4, 5, Sentinel, Sentinel, Sentinel, Sentinel, Sentinel}, tab.Rows[0], s.String())
		assert.Equal(t, 3, tab.Count(0))
		assert.Equal(t, []int{1, 4, 5}, tab.Neighbors(0))
	}
}

func TestTieBreakKeepsLowerIndex(t *testing.T) {
	// Four neighbors at exactly the same distance from the centre, capacity 2
	pc, err := cloud.NewPointCloud(
		[]float64{0, 1, -1, 0, 0},
		[]float64{0, 0, 0, 1, -1},
		[]int{0, 1, 1, 1, 1})
	require.NoError(t, err)
	for _, s := range coordinateStrategies {
		tab, err := Find(pc, nil, Options{NVec: 2, Strategy: s})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, tab.Rows[0], s.String())
	}
}

func TestTriangulationFinder(t *testing.T) {
	pc, err := cloud.NewPointCloud(
		[]float64{0, 1, 1, 0, 0.5},
		[]float64{0, 0, 1, 1, 0.5},
		[]int{1, 1, 1, 1, 0})
	require.NoError(t, err)
	tt := cloud.Triangulation{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}}

	tab, err := Find(pc, tt, Options{NVec: 8, Strategy: KDTree})
	require.NoError(t, err)
	require.NoError(t, tab.Validate())
	// First-encountered order across triangles
	assert.Equal(t, []int{0, 1, 2, 3}, tab.Neighbors(4))
	assert.Equal(t, []int{1, 4, 3}, tab.Neighbors(0))

	tab, err = Find(pc, tt, Options{NVec: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, tab.Neighbors(4))

	// Node 4 appears in no triangle
	_, err = Find(pc, cloud.Triangulation{{0, 1, 2}, {0, 2, 3}}, Options{NVec: 8})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrInsufficientNeighbors))
	var se *utils.SolveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 4, se.Node)
	assert.Equal(t, utils.GeometryError, se.Kind)
}

func TestTriangulationFinderWorkers(t *testing.T) {
	pc, tt, err := cloud.RegularGrid(9, 7, r2.Box{Max: r2.Vec{X: 1, Y: 1}})
	require.NoError(t, err)

	// Walk the triangles once, in order, for every node
	want := NewTable(pc.Len(), 5)
	count := make([]int, pc.Len())
	for _, tri := range tt {
		for _, v := range tri {
			for _, u := range tri {
				if u != v && count[v] < 5 && !contains(want.Rows[v][:count[v]], u) {
					want.Rows[v][count[v]] = u
					count[v]++
				}
			}
		}
	}
	for _, workers := range []int{1, 4, 32} {
		tab, err := Find(pc, tt, Options{NVec: 5, Workers: workers})
		require.NoError(t, err)
		assert.True(t, want.Equal(tab), "workers=%d", workers)
	}
}

func TestSpatialBatchLogsCells(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	pc := randomCloud(t, 200, 5)

	_, err := Find(pc, nil, Options{NVec: 8, Strategy: SpatialBatch, Logger: log})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "search cells built")
	assert.Contains(t, buf.String(), "imbalance=")
}

func TestFinderErrors(t *testing.T) {
	_, err := NewFinder(nil, Options{NVec: 0})
	assert.True(t, errors.Is(err, utils.ErrConfiguration))

	_, err = NewFinder(nil, Options{NVec: 4, Strategy: Strategy(9)})
	assert.True(t, errors.Is(err, utils.ErrConfiguration))

	single, err := cloud.NewPointCloud([]float64{0}, []float64{0}, []int{0})
	require.NoError(t, err)
	for _, s := range coordinateStrategies {
		_, err = Find(single, nil, Options{NVec: 4, Strategy: s})
		assert.True(t, errors.Is(err, utils.ErrInsufficientNeighbors), s.String())
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range coordinateStrategies {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("octree")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestTableValidate(t *testing.T) {
	tab := NewTable(3, 3)
	tab.Rows[0][0], tab.Rows[0][1] = 1, 2
	tab.Rows[1][0] = 0
	tab.Rows[2][0] = 0
	require.NoError(t, tab.Validate())
	assert.Contains(t, tab.String(), "min 1, max 2")

	tab.Rows[2][1] = 0
	assert.ErrorContains(t, tab.Validate(), "duplicate")
	tab.Rows[2][1] = 2
	assert.ErrorContains(t, tab.Validate(), "self reference")
	tab.Rows[2][1] = Sentinel
	tab.Rows[2][2] = 1
	assert.ErrorContains(t, tab.Validate(), "after sentinel")
}
