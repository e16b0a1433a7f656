// Package batch solves many independent wave problems in parallel.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gstinoco/WaveGFD/accuracy"
	"github.com/gstinoco/WaveGFD/utils"
	"github.com/gstinoco/WaveGFD/wave"
	"golang.org/x/sync/errgroup"
)

// Job is one problem instance
type Job struct {
	Name    string
	Config  wave.Config
	Problem wave.Problem

	HasExact bool // Problem.F solves the wave equation; otherwise accuracy is not measured
}

// Result is the outcome of one Job. Err is set instead of Solution when the
// job failed; other jobs are unaffected.
type Result struct {
	Job      string
	Solution *wave.Solution
	Accuracy *accuracy.Summary // Interior nodes against the reference, nil without one
	Elapsed  time.Duration
	Err      error
}

// Runner runs jobs with at most Workers in flight
type Runner struct {
	Workers int          // Zero selects utils.DefaultWorkers
	Logger  *slog.Logger // Nil selects slog.Default
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run solves every job and returns the results in job order. Jobs not yet
// started when ctx is cancelled report the context error.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	var (
		results = make([]Result, len(jobs))
		log     = r.logger()
		g       errgroup.Group
	)
	workers := r.Workers
	if workers <= 0 {
		workers = utils.DefaultWorkers()
	}
	g.SetLimit(workers)
	for i := range jobs {
		g.Go(func() error {
			results[i] = r.run(ctx, jobs[i], log)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) run(ctx context.Context, job Job, log *slog.Logger) (res Result) {
	res.Job = job.Name
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	began := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Solution, res.Accuracy = nil, nil
			res.Err = fmt.Errorf("batch: job %s panicked: %v", job.Name, p)
		}
		res.Elapsed = time.Since(began)
		if res.Err != nil {
			log.Error("job failed", "job", job.Name, "error", res.Err)
			return
		}
		if res.Accuracy == nil {
			log.Info("job complete", "job", job.Name, "elapsed", res.Elapsed)
			return
		}
		log.Info("job complete", "job", job.Name, "elapsed", res.Elapsed,
			"mean_rms", res.Accuracy.Mean, "final_rms", res.Accuracy.Final())
	}()

	jobLog := log.With("job", job.Name)
	sol, err := wave.Solve(job.Config, job.Problem, wave.WithLogger(jobLog))
	if err != nil {
		res.Err = err
		return res
	}
	res.Solution = sol
	if !job.HasExact {
		return res
	}
	nodes := job.Problem.Cloud.InteriorNodes()
	if len(nodes) == 0 {
		nodes = nil
	}
	summary, err := accuracy.Compare(sol.Approx, sol.Exact, nodes)
	if err != nil {
		res.Solution, res.Err = nil, err
		return res
	}
	res.Accuracy = summary
	return res
}

// Failed returns the results that carry an error
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Report formats one line per result
func Report(results []Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %12s %14s %14s\n", "Job", "Elapsed", "Mean RMS", "Final RMS"))
	for _, r := range results {
		if r.Err != nil {
			sb.WriteString(fmt.Sprintf("%-32s %12s  FAILED: %v\n", r.Job, r.Elapsed.Round(time.Millisecond), r.Err))
			continue
		}
		if r.Accuracy == nil {
			sb.WriteString(fmt.Sprintf("%-32s %12s %14s %14s\n", r.Job, r.Elapsed.Round(time.Millisecond), "-", "-"))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-32s %12s %14.6e %14.6e\n",
			r.Job, r.Elapsed.Round(time.Millisecond), r.Accuracy.Mean, r.Accuracy.Final()))
	}
	return sb.String()
}
