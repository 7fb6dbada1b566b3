// Package coord implements the scheduling strategies over the shared data
// model: per-home independent optimization, a single centralized network
// solve, and the distributed price-coordination loop that reconciles per-home
// subproblems with network voltage limits.
package coord

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gridsched/revs/core/logger"
	"github.com/gridsched/revs/core/metrics"
	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/powerflow"
	"github.com/gridsched/revs/core/solver"
)

// Config tunes the distributed coordination loop.
type Config struct {
	Kappa     float64 `json:"kappa"`     // dual step size
	IterMax   int     `json:"iterMax"`   // hard iteration cap
	Tolerance float64 `json:"tolerance"` // residual convergence threshold
	Decay     float64 `json:"decay"`     // in-band price decay per iteration, in [0,1]
	VSet      float64 `json:"vset"`      // target voltage, per unit
	VLow      float64 `json:"vlow"`      // coordination band, looser than the network's hard bounds
	VHigh     float64 `json:"vhigh"`
	Workers   int     `json:"workers"` // parallel subproblem solves, 0 means NumCPU
}

// SetDefaults fills unset fields with the standard coordination parameters.
func (c *Config) SetDefaults() {
	if c.Kappa == 0 {
		c.Kappa = 5.0
	}
	if c.IterMax == 0 {
		c.IterMax = 15
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-3
	}
	if c.Decay == 0 {
		c.Decay = 0.5
	}
	if c.VSet == 0 {
		c.VSet = 1.03
	}
	if c.VLow == 0 {
		c.VLow = 0.95
	}
	if c.VHigh == 0 {
		c.VHigh = 1.05
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.Kappa < 0 {
		return fmt.Errorf("coord: negative kappa %.3f", c.Kappa)
	}
	if c.IterMax < 0 {
		return fmt.Errorf("coord: negative iteration cap %d", c.IterMax)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("coord: non-positive tolerance %g", c.Tolerance)
	}
	if c.Decay < 0 || c.Decay > 1 {
		return fmt.Errorf("coord: decay %.3f outside [0,1]", c.Decay)
	}
	if c.VLow >= c.VHigh {
		return fmt.Errorf("coord: vlow %.3f >= vhigh %.3f", c.VLow, c.VHigh)
	}
	return nil
}

// Coordinator drives the distributed strategy: repeated rounds of independent
// per-home solves with a barrier, voltage aggregation and a dual price update
// in between. The subproblem solver is a black box to it.
type Coordinator struct {
	solver  solver.HomeSolver
	cfg     Config
	log     logger.Logger
	metrics metrics.Sink
}

// New builds a Coordinator. The config is used as given so an explicit
// IterMax of zero is honored; call Config.SetDefaults first to fill in the
// standard parameters. A nil logger or sink disables that output.
func New(s solver.HomeSolver, cfg Config, log logger.Logger, sink metrics.Sink) (*Coordinator, error) {
	if s == nil {
		return nil, fmt.Errorf("coord: nil solver")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Coordinator{solver: s, cfg: cfg, log: log, metrics: sink}, nil
}

// Run executes the coordination protocol. The returned result always carries
// the last computed schedules; callers must inspect Residual, Iterations and
// Converged to tell true convergence from a forced stop at the iteration cap.
func (c *Coordinator) Run(ctx context.Context, tariff model.Tariff, homes map[string]model.Home, grid *powerflow.Grid) (model.Result, error) {
	start := time.Now()
	if err := validateInputs(tariff, homes); err != nil {
		return model.Result{}, err
	}
	// An unmapped home would ride along with a neutral price and no voltage
	// contribution; surface the topology gap instead.
	for id := range homes {
		if _, ok := grid.HomeRow(id); !ok {
			return model.Result{}, fmt.Errorf("coord: home %s has no network node", id)
		}
	}

	horizon := tariff.Horizon()
	nodes, _ := grid.Sensitivity().Dims()
	st := newState(nodes, horizon)
	runID := uuid.NewString()

	price := func(id string) []float64 {
		row, ok := grid.HomeRow(id)
		if !ok {
			return nil
		}
		return st.priceRow(row)
	}

	var schedules map[string]model.Schedule
	var failed map[string]error
	var err error
	converged := false
	for iter := 1; iter <= c.cfg.IterMax; iter++ {
		schedules, failed, err = solveHomes(ctx, c.solver, tariff, homes, price, c.cfg.Workers)
		if err != nil {
			return c.finish(start, st, schedules, failed, false, runID), err
		}
		if len(homes) > 0 && len(failed) == len(homes) {
			return c.finish(start, st, schedules, failed, false, runID),
				fmt.Errorf("coord: every home subproblem failed at iteration %d", iter)
		}

		volts := grid.NodeVoltages(c.cfg.VSet, grid.LoadMatrix(homes, schedules, horizon))
		res := st.update(volts, c.cfg)
		st.iteration = iter
		st.history = append(st.history, res)
		c.metrics.RecordIteration(model.StrategyDistributed, iter, res)
		c.log.Debugw("price update", map[string]any{
			"run_id": runID, "iteration": iter, "residual": res,
		})
		if res < c.cfg.Tolerance {
			converged = true
			break
		}
	}

	// With a zero iteration cap the loop never ran; the neutral-price
	// schedules are still the contract's best-effort result.
	if c.cfg.IterMax == 0 {
		schedules, failed, err = solveHomes(ctx, c.solver, tariff, homes, price, c.cfg.Workers)
		if err != nil {
			return c.finish(start, st, schedules, failed, false, runID), err
		}
		if len(homes) > 0 && len(failed) == len(homes) {
			return c.finish(start, st, schedules, failed, false, runID),
				fmt.Errorf("coord: every home subproblem failed")
		}
	}

	if !converged && c.cfg.IterMax > 0 {
		c.log.Warnf("reached iteration cap %d without convergence, residual %.4g", c.cfg.IterMax, st.residual())
	} else {
		c.log.Infof("converged after %d iterations, residual %.4g", st.iteration, st.residual())
	}
	return c.finish(start, st, schedules, failed, converged, runID), nil
}

func (c *Coordinator) finish(start time.Time, st *state, schedules map[string]model.Schedule, failed map[string]error, converged bool, runID string) model.Result {
	c.metrics.RecordSolve(model.StrategyDistributed, time.Since(start), len(schedules)+len(failed), len(failed), converged)
	history := make([]float64, len(st.history))
	copy(history, st.history)
	return model.Result{
		Strategy:   model.StrategyDistributed,
		RunID:      runID,
		Schedules:  schedules,
		Failed:     failed,
		Residual:   st.residual(),
		Iterations: st.iteration,
		Converged:  converged,
		History:    history,
	}
}

// validateInputs rejects malformed data before any solver invocation.
func validateInputs(tariff model.Tariff, homes map[string]model.Home) error {
	if err := tariff.Validate(); err != nil {
		return err
	}
	for _, h := range homes {
		if err := h.Validate(tariff.Horizon()); err != nil {
			return err
		}
	}
	return nil
}

// solveHomes maps the subproblem solver over all homes in parallel and
// collects results at the barrier. Subproblems are independent given a fixed
// price signal, so the only synchronization is the result map itself.
// Per-home failures are collected, not propagated; only context cancellation
// aborts the map.
func solveHomes(ctx context.Context, s solver.HomeSolver, tariff model.Tariff, homes map[string]model.Home, price func(id string) []float64, workers int) (map[string]model.Schedule, map[string]error, error) {
	ids := make([]string, 0, len(homes))
	for id := range homes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	schedules := make(map[string]model.Schedule, len(homes))
	failed := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, id := range ids {
		h := homes[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sched, err := s.SolveHome(tariff, h, price(h.ID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[h.ID] = err
				return nil
			}
			schedules[h.ID] = sched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schedules, failed, err
	}
	return schedules, failed, nil
}

// nopLogger keeps the coordinator free of a hard logging dependency.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
