package coord

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/gridsched/revs/core/logger"
	"github.com/gridsched/revs/core/metrics"
	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/solver"
)

// Individual runs each home's subproblem once with a neutral price signal: a
// pure tariff-cost minimization with no network feedback. Given identical
// inputs it always produces the same schedules.
type Individual struct {
	solver  solver.HomeSolver
	workers int
	log     logger.Logger
	metrics metrics.Sink
}

// NewIndividual builds the per-home strategy. workers <= 0 uses NumCPU.
func NewIndividual(s solver.HomeSolver, workers int, log logger.Logger, sink metrics.Sink) (*Individual, error) {
	if s == nil {
		return nil, fmt.Errorf("coord: nil solver")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Individual{solver: s, workers: workers, log: log, metrics: sink}, nil
}

// Run solves all homes independently. Per-home infeasibilities are collected
// in the result; the call fails only when no home could be solved.
func (s *Individual) Run(ctx context.Context, tariff model.Tariff, homes map[string]model.Home) (model.Result, error) {
	start := time.Now()
	if err := validateInputs(tariff, homes); err != nil {
		return model.Result{}, err
	}

	schedules, failed, err := solveHomes(ctx, s.solver, tariff, homes, func(string) []float64 { return nil }, s.workers)
	if err != nil {
		return model.Result{}, err
	}
	if len(homes) > 0 && len(failed) == len(homes) {
		return model.Result{}, fmt.Errorf("coord: every home subproblem failed")
	}

	s.metrics.RecordSolve(model.StrategyIndividual, time.Since(start), len(homes), len(failed), true)
	s.log.Infof("solved %d home schedules, %d failed", len(schedules), len(failed))
	return model.Result{
		Strategy:  model.StrategyIndividual,
		RunID:     uuid.NewString(),
		Schedules: schedules,
		Failed:    failed,
	}, nil
}
