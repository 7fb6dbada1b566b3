// Package solver defines the optimization subproblem contract consumed by the
// scheduling strategies, together with an LP-backed implementation. The
// coordination protocol treats implementations as black-box minimizers: calls
// carry no hidden state, so any convex backend can sit behind the interfaces.
package solver

import (
	"errors"

	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/powerflow"
)

// ErrInfeasible reports a charging requirement that cannot be met within the
// home's window and rating, regardless of prices.
var ErrInfeasible = errors.New("solver: infeasible charging requirement")

// HomeSolver solves one residence's charging subproblem. price is an hourly
// adder on top of the tariff (the coordination dual signal); a nil price means
// a neutral, tariff-only solve.
type HomeSolver interface {
	SolveHome(tariff model.Tariff, home model.Home, price []float64) (model.Schedule, error)
}

// VoltageBounds are the explicit limits of a centralized network solve.
type VoltageBounds struct {
	VSet float64
	VMin float64
	VMax float64
}

// NetworkSolver solves all homes jointly against hard voltage bounds.
type NetworkSolver interface {
	SolveNetwork(tariff model.Tariff, homes map[string]model.Home, grid *powerflow.Grid, bounds VoltageBounds) (map[string]model.Schedule, error)
}
