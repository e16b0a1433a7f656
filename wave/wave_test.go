package wave

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/gstinoco/WaveGFD/stencil"
	"github.com/gstinoco/WaveGFD/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

// standing is u = cos(pi t) sin(pi (x + y)), a solution for c^2 = 1/2
var standing = EvaluatorFunc(func(x, y, t float64, _ Params) float64 {
	return math.Cos(math.Pi*t) * math.Sin(math.Pi*(x+y))
})

var standingVelocity = EvaluatorFunc(func(x, y, t float64, _ Params) float64 {
	return -math.Pi * math.Sin(math.Pi*t) * math.Sin(math.Pi*(x+y))
})

// fiveNodes is a square of side 0.5 with its centre as the only interior node
func fiveNodes(t *testing.T) *cloud.PointCloud {
	t.Helper()
	pc, err := cloud.NewPointCloud(
		[]float64{0, 0.5, 0, 0.5, 0.25},
		[]float64{0, 0, 0.5, 0.5, 0.25},
		[]int{1, 1, 1, 1, 0})
	require.NoError(t, err)
	return pc
}

func unitGrid(t *testing.T, N int) (*cloud.PointCloud, cloud.Triangulation) {
	t.Helper()
	pc, tt, err := cloud.RegularGrid(N, N, r2.Box{Max: r2.Vec{X: 1, Y: 1}})
	require.NoError(t, err)
	return pc, tt
}

func testConfig(steps int, scheme Scheme) Config {
	cfg := DefaultConfig()
	cfg.Steps = steps
	cfg.Scheme = scheme
	return cfg
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		param  string
		mutate func(*Config)
	}{
		{"c", func(c *Config) { c.C = 0 }},
		{"c", func(c *Config) { c.C = math.Inf(1) }},
		{"c", func(c *Config) { c.C = math.NaN() }},
		{"steps", func(c *Config) { c.Steps = 1 }},
		{"mode", func(c *Config) { c.Mode = 7 }},
		{"scheme", func(c *Config) { c.Scheme = 9 }},
		{"lambda", func(c *Config) { c.Lambda = -0.1 }},
		{"lambda", func(c *Config) { c.Lambda = 1.5 }},
		{"nvec", func(c *Config) { c.NVec = 2 }},
		{"strategy", func(c *Config) { c.Strategy = 12 }},
		{"tolerance", func(c *Config) { c.Tolerance = -1e-9 }},
		{"tolerance", func(c *Config) { c.Tolerance = 1 }},
		{"min-rank", func(c *Config) { c.MinRank = 6 }},
		{"workers", func(c *Config) { c.Workers = -2 }},
	}
	for _, tc := range tests {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		require.Error(t, err, tc.param)
		assert.True(t, errors.Is(err, utils.ErrConfiguration))
		var se *utils.SolveError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.param, se.Param)
	}
}

func TestConfigTimes(t *testing.T) {
	cfg := testConfig(5, Explicit)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, cfg.Times())
	assert.Equal(t, 0.25, cfg.Dt())
	cfg.C = 2
	assert.Equal(t, stencil.Operator{0, 0, 0.5, 0, 0.5}, cfg.Operator())
}

func TestParseNames(t *testing.T) {
	m, err := ParseBoundaryMode("zero")
	require.NoError(t, err)
	assert.Equal(t, ZeroBoundary, m)
	s, err := ParseScheme("implicit")
	require.NoError(t, err)
	assert.Equal(t, Implicit, s)

	_, err = ParseScheme("crank-nicolson")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
	_, err = ParseBoundaryMode("periodic")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestConfigurationErrorsBeforeGeometry(t *testing.T) {
	pc := fiveNodes(t)
	calls := 0
	counting := EvaluatorFunc(func(_, _, _ float64, _ Params) float64 {
		calls++
		return 0
	})
	prob := Problem{Cloud: pc, Triangles: cloud.Triangulation{{0, 1, 99}}, F: counting, G: counting}

	cfg := testConfig(10, Implicit)
	cfg.Lambda = 2
	_, err := Solve(cfg, prob, quiet)
	var se *utils.SolveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, utils.ConfigurationError, se.Kind)
	assert.Equal(t, "lambda", se.Param)
	assert.Zero(t, calls)

	// With a valid configuration the broken triangle is reported
	cfg.Lambda = 0.5
	_, err = Solve(cfg, prob, quiet)
	assert.True(t, errors.Is(err, utils.ErrGeometry))
	assert.True(t, errors.Is(err, utils.ErrBadTriangle))
	assert.Zero(t, calls)

	_, err = Solve(cfg, Problem{Cloud: pc, F: standing}, quiet)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestZeroDataStaysZero(t *testing.T) {
	pc, _ := unitGrid(t, 6)
	for _, scheme := range []Scheme{Explicit, Implicit} {
		for _, mode := range []BoundaryMode{ZeroBoundary, FunctionBoundary} {
			cfg := testConfig(30, scheme)
			cfg.Mode = mode
			sol, err := Solve(cfg, Problem{Cloud: pc, F: Zero, G: Zero}, quiet)
			require.NoError(t, err)
			assert.True(t, mat.Equal(sol.Approx, mat.NewDense(pc.Len(), 30, nil)),
				"%s/%s", scheme, mode)
		}
	}
}

func TestFiveNodeEndToEnd(t *testing.T) {
	pc := fiveNodes(t)
	prob := Problem{Cloud: pc, F: standing, G: standingVelocity}

	firstStepError := func(steps int) float64 {
		sol, err := Solve(testConfig(steps, Explicit), prob, quiet)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, sol.Neighbors.Neighbors(4))
		for _, b := range pc.BoundaryNodes() {
			for k := 0; k < steps; k++ {
				require.Equal(t, sol.Exact.At(b, k), sol.Approx.At(b, k))
				require.Equal(t, standing(pc.Point(b).X, pc.Point(b).Y, sol.Times[k], Params{}),
					sol.Approx.At(b, k))
			}
		}
		return math.Abs(sol.Approx.At(4, 1) - sol.Exact.At(4, 1))
	}
	coarse, fine := firstStepError(51), firstStepError(201)
	assert.Greater(t, coarse, 0.0)
	assert.Less(t, fine, coarse/8, "first step error should fall like dt^2")
}

func TestZeroBoundaryMode(t *testing.T) {
	pc := fiveNodes(t)
	cfg := testConfig(20, Implicit)
	cfg.Mode = ZeroBoundary
	sol, err := Solve(cfg, Problem{Cloud: pc, F: standing, G: standingVelocity}, quiet)
	require.NoError(t, err)
	for _, b := range pc.BoundaryNodes() {
		assert.Equal(t, sol.Exact.At(b, 0), sol.Approx.At(b, 0))
		for k := 1; k < cfg.Steps; k++ {
			assert.Zero(t, sol.Approx.At(b, k))
		}
	}
	// The interior keeps moving
	assert.NotEqual(t, sol.Approx.At(4, 0), sol.Approx.At(4, cfg.Steps-1))
}

func maxAbs(m *mat.Dense) float64 {
	var peak float64
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			v := m.At(i, k)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			peak = math.Max(peak, math.Abs(v))
		}
	}
	return peak
}

func TestStability(t *testing.T) {
	pc, _ := unitGrid(t, 5)
	prob := Problem{Cloud: pc, F: standing, G: standingVelocity}

	cfg := testConfig(2000, Implicit)
	sol, err := Solve(cfg, prob, quiet)
	require.NoError(t, err)
	assert.Less(t, maxAbs(sol.Approx), 1.5)

	cfg = testConfig(100, Explicit)
	cfg.C = 40
	sol, err = Solve(cfg, prob, quiet)
	require.NoError(t, err)
	assert.Greater(t, maxAbs(sol.Approx), 1e6)
}

func TestFullyExplicitLambdaMatchesExplicit(t *testing.T) {
	pc, _ := unitGrid(t, 6)
	prob := Problem{Cloud: pc, F: standing, G: standingVelocity}
	explicit, err := Solve(testConfig(40, Explicit), prob, quiet)
	require.NoError(t, err)

	cfg := testConfig(40, Implicit)
	cfg.Lambda = 1
	implicit, err := Solve(cfg, prob, quiet)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(explicit.Approx, implicit.Approx, 1e-12))
}

func TestTriangulationNeighbors(t *testing.T) {
	pc, tt := unitGrid(t, 6)
	cfg := testConfig(50, Implicit)
	sol, err := Solve(cfg, Problem{Cloud: pc, Triangles: tt, F: standing, G: standingVelocity}, quiet)
	require.NoError(t, err)
	want, err := neighbors.Find(pc, tt, neighbors.Options{NVec: cfg.NVec})
	require.NoError(t, err)
	assert.True(t, want.Equal(sol.Neighbors))

	// Interior error stays small for the smooth standing wave
	for _, i := range pc.InteriorNodes() {
		assert.InDelta(t, sol.Exact.At(i, 49), sol.Approx.At(i, 49), 0.15, "node %d", i)
	}
	assert.Contains(t, sol.String(), "36 nodes, 50 levels")
}

func TestIntegratorStates(t *testing.T) {
	var zero Integrator
	assert.Equal(t, Uninitialized, zero.State())
	assert.True(t, errors.Is(zero.Step(), ErrState))

	pc := fiveNodes(t)
	cfg := testConfig(3, Explicit)
	tab, err := neighbors.Find(pc, nil, neighbors.Options{NVec: cfg.NVec})
	require.NoError(t, err)
	K, _, err := (&stencil.Assembler{}).Assemble(pc, tab, cfg.Operator())
	require.NoError(t, err)

	it, err := NewIntegrator(cfg, Problem{Cloud: pc, F: standing, G: Zero}, K, quiet)
	require.NoError(t, err)
	for _, want := range []State{Initialized, Bootstrapping, Stepping, Complete} {
		assert.Equal(t, want, it.State())
		if want != Complete {
			require.NoError(t, it.Step())
		}
	}
	assert.Equal(t, 3, it.Level())
	assert.True(t, errors.Is(it.Step(), ErrState))
	assert.True(t, errors.Is(it.Run(), ErrState))

	// Two levels finish straight after the start step
	cfg.Steps = 2
	it, err = NewIntegrator(cfg, Problem{Cloud: pc, F: standing, G: Zero}, K, quiet)
	require.NoError(t, err)
	require.NoError(t, it.Run())
	assert.Equal(t, Complete, it.State())
	assert.Equal(t, 2, it.Level())
}

func TestSingularImplicitSystem(t *testing.T) {
	pc := fiveNodes(t)
	K := mat.NewDense(5, 5, nil)
	for i := 0; i < 5; i++ {
		K.Set(i, i, 2)
	}
	cfg := testConfig(10, Implicit)
	prob := Problem{Cloud: pc, F: standing, G: Zero}

	// I - 0.5 (2I) vanishes
	it, err := NewIntegrator(cfg, prob, stencil.NewMatrix(K), quiet)
	assert.Nil(t, it)
	assert.True(t, errors.Is(err, utils.ErrLinearSolve))
	assert.True(t, errors.Is(err, utils.ErrSingularSystem))

	// The explicit scheme never factorizes
	cfg.Scheme = Explicit
	_, err = NewIntegrator(cfg, prob, stencil.NewMatrix(K), quiet)
	assert.NoError(t, err)

	_, err = NewIntegrator(cfg, prob, stencil.NewMatrix(mat.NewDense(4, 4, nil)), quiet)
	assert.True(t, errors.Is(err, utils.ErrGeometry))
}
