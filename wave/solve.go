// Package wave integrates u_tt = c^2 Lap u in time on a point cloud, using a
// generalized finite difference operator for the spatial part.
package wave

import (
	"fmt"
	"strings"
	"time"

	"github.com/gstinoco/WaveGFD/metrics"
	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/gstinoco/WaveGFD/stencil"
	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/gonum/mat"
)

// Solution is the outcome of one solve. Approx and Exact have one row per
// node and one column per time level.
type Solution struct {
	Config    Config
	Approx    *mat.Dense
	Exact     *mat.Dense
	Neighbors *neighbors.Table
	Times     []float64
	Report    *stencil.Report
}

// Level returns the approximate values at time level k
func (s *Solution) Level(k int) []float64 {
	return mat.Col(nil, k, s.Approx)
}

// ExactLevel returns the reference values at time level k
func (s *Solution) ExactLevel(k int) []float64 {
	return mat.Col(nil, k, s.Exact)
}

func (s *Solution) String() string {
	var sb strings.Builder
	n, levels := s.Approx.Dims()
	sb.WriteString(fmt.Sprintf("Solution: %d nodes, %d levels\n", n, levels))
	sb.WriteString(fmt.Sprintf("  %s\n", s.Config))
	if s.Report != nil {
		cond, node := s.Report.MaxCondition()
		sb.WriteString(fmt.Sprintf("  Rank deficient stencils: %d, worst condition %.3g at node %d\n",
			len(s.Report.RankDeficient()), cond, node))
	}
	return sb.String()
}

// Solve runs the whole pipeline: configuration checks, neighbor search,
// stencil assembly and time integration. Configuration is validated before
// any geometry is touched.
func Solve(cfg Config, prob Problem, opts ...Option) (sol *Solution, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			if kind, ok := utils.KindOf(err); ok {
				result = kind.String()
			}
		}
		metrics.SolvesTotal.WithLabelValues(cfg.Scheme.String(), result).Inc()
	}()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	if err = prob.validate(); err != nil {
		return nil, err
	}
	var (
		o  = newOptions(opts)
		pc = prob.Cloud
	)
	metrics.CloudNodes.Observe(float64(pc.Len()))
	o.log.Debug("solve started", "nodes", pc.Len(), "config", cfg.String())

	began := time.Now()
	tab, err := neighbors.Find(pc, prob.Triangles, neighbors.Options{
		NVec:     cfg.NVec,
		Strategy: cfg.Strategy,
		Workers:  cfg.Workers,
		Logger:   o.log,
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage(metrics.StageNeighbors, began)
	o.log.Debug("neighbor table built", "stage", metrics.StageNeighbors,
		"strategy", searchName(prob, cfg), "elapsed", time.Since(began))

	began = time.Now()
	asm := &stencil.Assembler{Tolerance: cfg.Tolerance, MinRank: cfg.MinRank, Workers: cfg.Workers}
	K, rep, err := asm.Assemble(pc, tab, cfg.Operator())
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage(metrics.StageStencil, began)
	deficient := rep.RankDeficient()
	metrics.RankDeficientNodes.Add(float64(len(deficient)))
	o.log.Debug("operator assembled", "stage", metrics.StageStencil,
		"nnz", K.NNZ(), "elapsed", time.Since(began))
	if len(deficient) > 0 {
		o.log.Warn("rank deficient stencils resolved by pseudo-inverse",
			"stage", metrics.StageStencil, "count", len(deficient), "first", deficient[0])
	}

	it, err := NewIntegrator(cfg, prob, K, opts...)
	if err != nil {
		return nil, err
	}
	if err = it.Run(); err != nil {
		return nil, err
	}
	return &Solution{
		Config:    cfg,
		Approx:    it.Approx,
		Exact:     it.Exact,
		Neighbors: tab,
		Times:     it.Times(),
		Report:    rep,
	}, nil
}

func searchName(prob Problem, cfg Config) string {
	if prob.Triangles != nil {
		return "triangulation"
	}
	return cfg.Strategy.String()
}
