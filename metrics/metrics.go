package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Solver metrics, registered on the default registry at start-up.

var (
	// StageDuration measures each setup stage and the time stepping loop
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavegfd_stage_duration_seconds",
			Help:    "Duration of solver stages in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
		},
		[]string{"stage"},
	)

	// SolvesTotal counts finished solves by scheme and outcome
	SolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavegfd_solves_total",
			Help: "Total number of wave solves by scheme and result",
		},
		[]string{"scheme", "result"},
	)

	// RankDeficientNodes counts nodes whose local least-squares system was
	// resolved by the pseudo-inverse with less than full rank
	RankDeficientNodes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wavegfd_rank_deficient_nodes_total",
			Help: "Nodes whose stencil was built from a rank deficient local system",
		},
	)

	// CloudNodes tracks the size of the clouds being solved
	CloudNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wavegfd_cloud_nodes",
			Help:    "Number of nodes per solved point cloud",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12),
		},
	)
)

// Stage names
const (
	StageNeighbors = "neighbors"
	StageStencil   = "stencil"
	StageFactorize = "factorize"
	StageStep      = "step"
)

// ObserveStage records the time elapsed since start for a stage
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
