package coord

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridsched/revs/core/logger"
	"github.com/gridsched/revs/core/metrics"
	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/powerflow"
	"github.com/gridsched/revs/core/solver"
)

// Central runs the single-shot global optimization: one network solve with
// hard voltage bounds, no dual variables, no iteration loop.
type Central struct {
	solver  solver.NetworkSolver
	bounds  solver.VoltageBounds
	log     logger.Logger
	metrics metrics.Sink
}

// NewCentral builds the centralized strategy against the given voltage band.
func NewCentral(s solver.NetworkSolver, bounds solver.VoltageBounds, log logger.Logger, sink metrics.Sink) (*Central, error) {
	if s == nil {
		return nil, fmt.Errorf("coord: nil solver")
	}
	if bounds.VMin >= bounds.VMax {
		return nil, fmt.Errorf("coord: vmin %.3f >= vmax %.3f", bounds.VMin, bounds.VMax)
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Central{solver: s, bounds: bounds, log: log, metrics: sink}, nil
}

// Run performs the joint solve. The voltage bounds are hard constraints, so
// any infeasibility fails the whole run.
func (s *Central) Run(ctx context.Context, tariff model.Tariff, homes map[string]model.Home, grid *powerflow.Grid) (model.Result, error) {
	start := time.Now()
	if err := validateInputs(tariff, homes); err != nil {
		return model.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}

	schedules, err := s.solver.SolveNetwork(tariff, homes, grid, s.bounds)
	if err != nil {
		s.metrics.RecordSolve(model.StrategyCentralized, time.Since(start), len(homes), len(homes), false)
		return model.Result{}, fmt.Errorf("coord: centralized solve: %w", err)
	}

	s.metrics.RecordSolve(model.StrategyCentralized, time.Since(start), len(homes), 0, true)
	s.log.Infof("centralized solve scheduled %d homes", len(schedules))
	return model.Result{
		Strategy:  model.StrategyCentralized,
		RunID:     uuid.NewString(),
		Schedules: schedules,
		Failed:    map[string]error{},
	}, nil
}
