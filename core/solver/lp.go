package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gridsched/revs/core/model"
)

const simplexTol = 1e-7

// feasSlack absorbs float rounding when comparing required energy against the
// window's deliverable maximum.
const feasSlack = 1e-9

// LPSolver implements HomeSolver and NetworkSolver with the simplex algorithm.
type LPSolver struct{}

// NewLPSolver returns the default LP-backed subproblem solver.
func NewLPSolver() LPSolver { return LPSolver{} }

// simplexSolve points to the function used to solve the LP. It can be
// overridden in tests to simulate solver failures.
var simplexSolve = solveSimplex

// solveSimplex minimizes cost·p subject to 0 <= p <= caps element-wise, the
// optional extra inequality rows gext·p <= hext, and aeq·p = beq.
func solveSimplex(cost, caps []float64, gext *mat.Dense, hext []float64, aeq *mat.Dense, beq []float64) ([]float64, error) {
	n := len(cost)
	extra := 0
	if gext != nil {
		extra, _ = gext.Dims()
	}

	g := mat.NewDense(2*n+extra, n, nil)
	h := make([]float64, 2*n+extra)
	for i, c := range caps {
		g.Set(i, i, 1)
		h[i] = c
		g.Set(n+i, i, -1)
		h[n+i] = 0
	}
	for r := 0; r < extra; r++ {
		for j := 0; j < n; j++ {
			g.Set(2*n+r, j, gext.At(r, j))
		}
		h[2*n+r] = hext[r]
	}

	cStd, aStd, bStd := lp.Convert(cost, g, h, aeq, beq)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		return nil, err
	}
	return sol[:n], nil
}

// SolveHome returns the cheapest feasible charging schedule for one home under
// the tariff plus the hourly price adder. Homes without an EV get a zero
// charging plan.
func (LPSolver) SolveHome(tariff model.Tariff, home model.Home, price []float64) (model.Schedule, error) {
	horizon := tariff.Horizon()
	if err := home.Validate(horizon); err != nil {
		return model.Schedule{}, err
	}
	if price != nil && len(price) != horizon {
		return model.Schedule{}, fmt.Errorf("solver: price signal has %d hours, horizon is %d", len(price), horizon)
	}

	charging := make([]float64, horizon)
	if home.HasEV {
		need := home.RequiredEnergyKWh()
		window := windowHours(home)
		if need > home.EV.RatingKW*float64(len(window))+feasSlack {
			return model.Schedule{}, fmt.Errorf("home %s needs %.3f kWh in a %d h window at %.3f kW: %w",
				home.ID, need, len(window), home.EV.RatingKW, ErrInfeasible)
		}
		if need > feasSlack {
			cost := make([]float64, len(window))
			caps := make([]float64, len(window))
			for i, t := range window {
				cost[i] = tariff.Prices[t]
				if price != nil {
					cost[i] += price[t]
				}
				caps[i] = home.EV.RatingKW
			}
			aeq := mat.NewDense(1, len(window), nil)
			for i := range window {
				aeq.Set(0, i, 1)
			}

			sol, err := simplexSolve(cost, caps, nil, nil, aeq, []float64{need})
			if err != nil {
				return model.Schedule{}, fmt.Errorf("home %s subproblem: %w", home.ID, err)
			}
			for i, t := range window {
				p := sol[i]
				// Guard against simplex round-off outside the box.
				if p < 0 {
					p = 0
				}
				if p > home.EV.RatingKW {
					p = home.EV.RatingKW
				}
				charging[t] = p
			}
		}
	}

	residual := make([]float64, horizon)
	copy(residual, home.Baseline)
	return model.Schedule{
		Charging: charging,
		Residual: residual,
		SoC:      model.SoCTrajectory(home, charging),
	}, nil
}

func windowHours(h model.Home) []int {
	hours := make([]int, 0, h.WindowHours())
	for t := h.EV.WindowStart; t < h.EV.WindowEnd; t++ {
		hours = append(hours, t)
	}
	return hours
}
