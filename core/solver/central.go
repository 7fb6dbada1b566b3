package solver

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/powerflow"
)

// varRef names one decision variable of the joint network program: the
// charging power of a home at an hour inside its window.
type varRef struct {
	home string
	hour int
}

// SolveNetwork schedules every home jointly as a single LP whose voltage
// constraints bound each node at each hour to [VMin, VMax]. Unlike the
// price-coordinated strategy, these bounds are hard: an unsatisfiable band
// fails the whole solve rather than returning a best effort.
func (LPSolver) SolveNetwork(tariff model.Tariff, homes map[string]model.Home, grid *powerflow.Grid, bounds VoltageBounds) (map[string]model.Schedule, error) {
	horizon := tariff.Horizon()
	if bounds.VMin >= bounds.VMax {
		return nil, fmt.Errorf("solver: vmin %.3f >= vmax %.3f", bounds.VMin, bounds.VMax)
	}

	// Deterministic home order keeps the program, and therefore degenerate
	// optima, stable across runs.
	ids := make([]string, 0, len(homes))
	for id := range homes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var vars []varRef
	var cost, caps []float64
	rowOfHome := make(map[string]int, len(homes))
	var need []float64
	for _, id := range ids {
		h := homes[id]
		if err := h.Validate(horizon); err != nil {
			return nil, err
		}
		if !h.HasEV {
			continue
		}
		e := h.RequiredEnergyKWh()
		if e > h.EV.RatingKW*float64(h.WindowHours())+feasSlack {
			return nil, fmt.Errorf("home %s needs %.3f kWh in a %d h window at %.3f kW: %w",
				id, e, h.WindowHours(), h.EV.RatingKW, ErrInfeasible)
		}
		if e <= feasSlack {
			continue
		}
		rowOfHome[id] = len(need)
		need = append(need, e)
		for t := h.EV.WindowStart; t < h.EV.WindowEnd; t++ {
			vars = append(vars, varRef{home: id, hour: t})
			cost = append(cost, tariff.Prices[t])
			caps = append(caps, h.EV.RatingKW)
		}
	}

	schedules := make(map[string]model.Schedule, len(homes))
	if len(vars) == 0 {
		for _, id := range ids {
			schedules[id] = neutralSchedule(homes[id], horizon)
		}
		return schedules, nil
	}

	sens := grid.Sensitivity()
	nodes, _ := sens.Dims()

	// Voltage drop caused by the baseline load alone; the EV variables only
	// need to cover the remaining headroom.
	baseLoad := grid.LoadMatrix(homes, nil, horizon)
	var baseDrop mat.Dense
	baseDrop.Mul(sens, baseLoad)

	gext := mat.NewDense(2*nodes*horizon, len(vars), nil)
	hext := make([]float64, 2*nodes*horizon)
	for i := 0; i < nodes; i++ {
		for t := 0; t < horizon; t++ {
			lo := i*horizon + t
			hi := nodes*horizon + lo
			for j, v := range vars {
				if v.hour != t {
					continue
				}
				row, ok := grid.HomeRow(v.home)
				if !ok {
					return nil, fmt.Errorf("solver: home %s has no network node", v.home)
				}
				coeff := sens.At(i, row)
				gext.Set(lo, j, coeff)
				gext.Set(hi, j, -coeff)
			}
			// vset - drop >= vmin and vset - drop <= vmax.
			hext[lo] = bounds.VSet - bounds.VMin - baseDrop.At(i, t)
			hext[hi] = baseDrop.At(i, t) - (bounds.VSet - bounds.VMax)
		}
	}

	aeq := mat.NewDense(len(need), len(vars), nil)
	for j, v := range vars {
		aeq.Set(rowOfHome[v.home], j, 1)
	}

	sol, err := simplexSolve(cost, caps, gext, hext, aeq, need)
	if err != nil {
		return nil, fmt.Errorf("centralized solve: %w", err)
	}

	charging := make(map[string][]float64, len(rowOfHome))
	for id := range rowOfHome {
		charging[id] = make([]float64, horizon)
	}
	for j, v := range vars {
		p := sol[j]
		if p < 0 {
			p = 0
		}
		if p > caps[j] {
			p = caps[j]
		}
		charging[v.home][v.hour] = p
	}

	for _, id := range ids {
		h := homes[id]
		if c, ok := charging[id]; ok {
			residual := make([]float64, horizon)
			copy(residual, h.Baseline)
			schedules[id] = model.Schedule{Charging: c, Residual: residual, SoC: model.SoCTrajectory(h, c)}
			continue
		}
		schedules[id] = neutralSchedule(h, horizon)
	}
	return schedules, nil
}

// neutralSchedule is the no-charging plan: baseline load only.
func neutralSchedule(h model.Home, horizon int) model.Schedule {
	residual := make([]float64, horizon)
	copy(residual, h.Baseline)
	charging := make([]float64, horizon)
	return model.Schedule{Charging: charging, Residual: residual, SoC: model.SoCTrajectory(h, charging)}
}
