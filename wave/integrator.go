package wave

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gstinoco/WaveGFD/metrics"
	"github.com/gstinoco/WaveGFD/stencil"
	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/mat"
)

// State is the lifecycle position of an Integrator
type State uint8

const (
	Uninitialized State = iota
	Initialized         // Operators ready, no level computed
	Bootstrapping       // Level 0 stored, next step is the first order start
	Stepping            // Levels 0 and 1 stored, next step is a leapfrog step
	Complete            // Every time level stored
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	case Bootstrapping:
		return "Bootstrapping"
	case Stepping:
		return "Stepping"
	case Complete:
		return "Complete"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ErrState is returned when Step is called out of sequence
var ErrState = errors.New("wave: integrator cannot step")

// MaxCondition is the largest accepted condition number of an implicit
// system, 1/eps
const MaxCondition = 1 / 0x1p-52

type options struct {
	log *slog.Logger
}

// Option customizes Solve and NewIntegrator
type Option func(*options)

// WithLogger routes stage records to log instead of slog.Default()
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Integrator advances the discrete wave equation one time level per Step.
// Approximate and reference levels are stored column-wise, one row per node.
type Integrator struct {
	cfg    Config
	prob   Problem
	K      *stencil.Matrix
	params Params
	times  []float64
	log    *slog.Logger

	state State
	k     int // Next level to compute

	// Factorizations of I - (1-lambda)/2 K and I - (1-lambda) K
	start, leap *mat.LU

	Approx, Exact *mat.Dense

	prev, curr, raw, rhs, ku []float64
}

// NewIntegrator prepares the time stepping of prob with the operator K,
// which must be built for cfg.Operator(). Implicit systems are factorized
// here, once.
func NewIntegrator(cfg Config, prob Problem, K *stencil.Matrix, opts ...Option) (*Integrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := prob.validate(); err != nil {
		return nil, err
	}
	n := prob.Cloud.Len()
	if K == nil {
		return nil, utils.NewConfigError("operator", "no operator")
	}
	if r, c := K.Dims(); r != n || c != n {
		return nil, utils.NewSolveError(utils.GeometryError,
			fmt.Errorf("operator is %dx%d for %d nodes", r, c, n))
	}
	o := newOptions(opts)
	it := &Integrator{
		cfg:    cfg,
		prob:   prob,
		K:      K,
		params: Params{C: cfg.C, Mode: cfg.Mode, Extra: prob.Extra},
		times:  cfg.Times(),
		log:    o.log,
		Approx: mat.NewDense(n, cfg.Steps, nil),
		Exact:  mat.NewDense(n, cfg.Steps, nil),
		prev:   make([]float64, n),
		curr:   make([]float64, n),
		raw:    make([]float64, n),
		rhs:    make([]float64, n),
		ku:     make([]float64, n),
	}
	if cfg.Scheme == Implicit {
		began := time.Now()
		var err error
		if it.start, err = factorize(K.Dense, (1-cfg.Lambda)/2); err != nil {
			return nil, err
		}
		if it.leap, err = factorize(K.Dense, 1-cfg.Lambda); err != nil {
			return nil, err
		}
		metrics.ObserveStage(metrics.StageFactorize, began)
		it.log.Debug("implicit systems factorized",
			"stage", metrics.StageFactorize, "nodes", n, "lambda", cfg.Lambda,
			"elapsed", time.Since(began))
	}
	it.state = Initialized
	return it, nil
}

// factorize returns the LU factors of I - a K
func factorize(K *mat.Dense, a float64) (*mat.LU, error) {
	n, _ := K.Dims()
	A := mat.NewDense(n, n, nil)
	A.Scale(-a, K)
	for i := 0; i < n; i++ {
		A.Set(i, i, A.At(i, i)+1)
	}
	lu := &mat.LU{}
	lu.Factorize(A)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > MaxCondition {
		return nil, utils.NewSolveError(utils.LinearSolveError,
			fmt.Errorf("%w: I - %g K has condition number %g", utils.ErrSingularSystem, a, cond))
	}
	return lu, nil
}

// State returns the lifecycle position
func (it *Integrator) State() State { return it.state }

// Level returns the number of time levels stored so far
func (it *Integrator) Level() int { return it.k }

// Times returns the time of every level
func (it *Integrator) Times() []float64 { return it.times }

// Step computes exactly one time level
func (it *Integrator) Step() error {
	switch it.state {
	case Initialized:
		it.initial()
		it.state = Bootstrapping
		return nil
	case Bootstrapping:
		if err := it.bootstrap(); err != nil {
			return err
		}
	case Stepping:
		if err := it.leapfrog(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: state %s", ErrState, it.state)
	}
	it.state = Stepping
	if it.k == it.cfg.Steps {
		it.state = Complete
	}
	return nil
}

// Run steps until every level is stored
func (it *Integrator) Run() error {
	if it.state == Uninitialized || it.state == Complete {
		return fmt.Errorf("%w: state %s", ErrState, it.state)
	}
	began := time.Now()
	for it.state != Complete {
		if err := it.Step(); err != nil {
			return err
		}
	}
	metrics.ObserveStage(metrics.StageStep, began)
	it.log.Info("time stepping complete",
		"stage", metrics.StageStep, "scheme", it.cfg.Scheme, "levels", it.cfg.Steps,
		"elapsed", time.Since(began))
	return nil
}

func (it *Integrator) eval(e Evaluator, i int, t float64) float64 {
	p := it.prob.Cloud.Point(i)
	return e.Evaluate(p.X, p.Y, t, it.params)
}

func (it *Integrator) initial() {
	T := it.times[0]
	for i := range it.curr {
		v := it.eval(it.prob.F, i, T)
		it.curr[i] = v
		it.Exact.Set(i, 0, v)
	}
	it.Approx.SetCol(0, it.curr)
	it.k = 1
}

func (it *Integrator) bootstrap() error {
	var (
		T  = it.times[1]
		dt = it.cfg.Dt()
		u0 = it.curr
	)
	it.K.MulVecTo(it.ku, u0)
	switch it.cfg.Scheme {
	case Explicit:
		for i := range it.raw {
			it.raw[i] = u0[i] + 0.5*it.ku[i] + dt*it.eval(it.prob.G, i, T)
		}
	case Implicit:
		for i := range it.rhs {
			it.rhs[i] = u0[i] + 0.5*it.cfg.Lambda*it.ku[i] + dt*it.eval(it.prob.G, i, T)
		}
		if err := solve(it.start, it.raw, it.rhs); err != nil {
			return err
		}
	}
	it.commit()
	return nil
}

func (it *Integrator) leapfrog() error {
	u1, u2 := it.curr, it.prev
	it.K.MulVecTo(it.ku, u1)
	switch it.cfg.Scheme {
	case Explicit:
		for i := range it.raw {
			it.raw[i] = 2*u1[i] + it.ku[i] - u2[i]
		}
	case Implicit:
		for i := range it.rhs {
			it.rhs[i] = 2*u1[i] + it.cfg.Lambda*it.ku[i] - u2[i]
		}
		if err := solve(it.leap, it.raw, it.rhs); err != nil {
			return err
		}
	}
	it.commit()
	return nil
}

func solve(lu *mat.LU, dst, b []float64) error {
	x := mat.NewVecDense(len(dst), dst)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(len(b), b)); err != nil {
		return utils.NewSolveError(utils.LinearSolveError, fmt.Errorf("%w: %v", utils.ErrSingularSystem, err))
	}
	return nil
}

// commit stores level k from the interior rows of raw and the boundary
// rule, then rotates the working levels
func (it *Integrator) commit() {
	var (
		k    = it.k
		T    = it.times[k]
		next = it.prev
	)
	for i := range next {
		exact := it.eval(it.prob.F, i, T)
		it.Exact.Set(i, k, exact)
		switch {
		case !it.prob.Cloud.IsBoundary(i):
			next[i] = it.raw[i]
		case it.cfg.Mode == FunctionBoundary:
			next[i] = exact
		default:
			next[i] = it.Approx.At(i, k)
		}
	}
	it.Approx.SetCol(k, next)
	it.prev, it.curr = it.curr, next
	it.k++
}
