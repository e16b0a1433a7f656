package wave

import (
	"fmt"
	"math"
	"strings"

	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/gstinoco/WaveGFD/stencil"
	"github.com/gstinoco/WaveGFD/utils"
)

// BoundaryMode selects how boundary nodes evolve
type BoundaryMode uint8

const (
	// ZeroBoundary leaves boundary rows at their initialized value
	ZeroBoundary BoundaryMode = iota
	// FunctionBoundary sets boundary rows from the boundary evaluator at
	// every time level
	FunctionBoundary
)

func (m BoundaryMode) String() string {
	switch m {
	case ZeroBoundary:
		return "zero"
	case FunctionBoundary:
		return "function"
	}
	return fmt.Sprintf("BoundaryMode(%d)", uint8(m))
}

// Scheme selects the time integration formula
type Scheme uint8

const (
	Explicit Scheme = iota
	Implicit
)

func (s Scheme) String() string {
	switch s {
	case Explicit:
		return "explicit"
	case Implicit:
		return "implicit"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

// ParseBoundaryMode converts a mode name as printed by String
func ParseBoundaryMode(name string) (BoundaryMode, error) {
	for _, m := range []BoundaryMode{ZeroBoundary, FunctionBoundary} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, utils.NewConfigError("mode", "unknown boundary mode %q", name)
}

// ParseScheme converts a scheme name as printed by String
func ParseScheme(name string) (Scheme, error) {
	for _, s := range []Scheme{Explicit, Implicit} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, utils.NewConfigError("scheme", "unknown scheme %q", name)
}

// MinNVec is the smallest neighbor capacity that can hold a second order
// stencil
const MinNVec = stencil.MinNeighbors

// Config is the immutable parameter record of one problem instance
type Config struct {
	C      float64 // Wave speed
	Steps  int     // Time levels over [0, 1], including t = 0
	Mode   BoundaryMode
	Scheme Scheme
	Lambda float64 // Blend parameter of the implicit scheme, in [0, 1]

	NVec     int                // Neighbor capacity
	Strategy neighbors.Strategy // Coordinate search used without a triangulation

	Tolerance float64 // Pseudo-inverse tolerance, zero selects stencil.DefaultTolerance
	MinRank   int     // Accepted local rank, zero selects stencil.DefaultMinRank
	Workers   int     // Per-node parallelism, zero selects utils.DefaultWorkers
}

// DefaultConfig returns the parameters of the original examples
func DefaultConfig() Config {
	return Config{
		C:        math.Sqrt(0.5),
		Steps:    2000,
		Mode:     FunctionBoundary,
		Scheme:   Explicit,
		Lambda:   0.5,
		NVec:     neighbors.DefaultNVec,
		Strategy: neighbors.SpatialBatch,
	}
}

// Validate checks every parameter before any geometric or numeric work
func (c Config) Validate() error {
	switch {
	case !(c.C > 0) || math.IsInf(c.C, 0):
		return utils.NewConfigError("c", "wave speed %g must be positive and finite", c.C)
	case c.Steps < 2:
		return utils.NewConfigError("steps", "%d time levels, need at least 2", c.Steps)
	case c.Mode > FunctionBoundary:
		return utils.NewConfigError("mode", "unknown boundary mode %d", c.Mode)
	case c.Scheme > Implicit:
		return utils.NewConfigError("scheme", "unknown scheme %d", c.Scheme)
	case !(c.Lambda >= 0 && c.Lambda <= 1):
		return utils.NewConfigError("lambda", "%g not in [0, 1]", c.Lambda)
	case c.NVec < MinNVec:
		return utils.NewConfigError("nvec", "%d neighbor slots, need at least %d", c.NVec, MinNVec)
	case c.Strategy > neighbors.KDTree:
		return utils.NewConfigError("strategy", "unknown neighbor strategy %d", c.Strategy)
	case c.Tolerance != 0 && !(c.Tolerance > 0 && c.Tolerance < 1):
		return utils.NewConfigError("tolerance", "%g not in (0, 1)", c.Tolerance)
	case c.MinRank < 0 || c.MinRank > stencil.NumTerms:
		return utils.NewConfigError("min-rank", "%d not in [0, %d]", c.MinRank, stencil.NumTerms)
	case c.Workers < 0:
		return utils.NewConfigError("workers", "%d workers", c.Workers)
	}
	return nil
}

// Times returns the uniform time levels over [0, 1]
func (c Config) Times() []float64 {
	T := make([]float64, c.Steps)
	for k := range T {
		T[k] = float64(k) / float64(c.Steps-1)
	}
	return T
}

// Dt returns the time step
func (c Config) Dt() float64 {
	return 1 / float64(c.Steps-1)
}

// Operator returns the stencil target c^2 dt^2 Lap
func (c Config) Operator() stencil.Operator {
	return stencil.WaveOperator(c.C, c.Dt())
}

func (c Config) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("c=%g steps=%d dt=%g mode=%s scheme=%s",
		c.C, c.Steps, c.Dt(), c.Mode, c.Scheme))
	if c.Scheme == Implicit {
		sb.WriteString(fmt.Sprintf(" lambda=%g", c.Lambda))
	}
	sb.WriteString(fmt.Sprintf(" nvec=%d strategy=%s", c.NVec, c.Strategy))
	return sb.String()
}
