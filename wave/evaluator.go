package wave

import (
	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
)

// Params is the fixed parameter set handed to every evaluator call
type Params struct {
	C     float64
	Mode  BoundaryMode
	Extra []float64 // Problem specific values, e.g. a source position
}

// Evaluator computes a boundary, initial or velocity value at a point and
// time
type Evaluator interface {
	Evaluate(x, y, t float64, p Params) float64
}

// EvaluatorFunc adapts a function to the Evaluator interface
type EvaluatorFunc func(x, y, t float64, p Params) float64

func (f EvaluatorFunc) Evaluate(x, y, t float64, p Params) float64 { return f(x, y, t, p) }

// Zero evaluates to zero everywhere
var Zero Evaluator = EvaluatorFunc(func(_, _, _ float64, _ Params) float64 { return 0 })

// Problem holds the geometry and the evaluators of one instance. F gives
// the initial condition, the boundary values and the reference solution; G
// gives the initial velocity.
type Problem struct {
	Cloud     *cloud.PointCloud
	Triangles cloud.Triangulation // Optional
	F, G      Evaluator
	Extra     []float64
}

func (p Problem) validate() error {
	switch {
	case p.Cloud == nil:
		return utils.NewConfigError("cloud", "no point cloud")
	case p.F == nil:
		return utils.NewConfigError("f", "no boundary evaluator")
	case p.G == nil:
		return utils.NewConfigError("g", "no velocity evaluator")
	}
	return nil
}
