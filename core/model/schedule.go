package model

// Strategy names shared by solvers, results and the output layout.
const (
	StrategyIndividual  = "individual"
	StrategyCentralized = "centralized"
	StrategyDistributed = "distributed"
)

// Schedule is the solved plan for one home over the scheduling horizon.
type Schedule struct {
	Charging []float64 `json:"charging"` // EV charging power per hour, kW
	Residual []float64 `json:"residual"` // non-EV residential load per hour, kW
	SoC      []float64 `json:"soc"`      // state of charge at the end of each hour
}

// TotalLoad returns the combined residential and charging load at hour t.
func (s Schedule) TotalLoad(t int) float64 {
	return s.Residual[t] + s.Charging[t]
}

// EnergyKWh returns the total scheduled charging energy.
func (s Schedule) EnergyKWh() float64 {
	var e float64
	for _, p := range s.Charging {
		e += p
	}
	return e
}

// SoCTrajectory integrates a charging series into a state-of-charge series
// for the given home. Values are clamped to [0,1] against float drift.
func SoCTrajectory(h Home, charging []float64) []float64 {
	soc := make([]float64, len(charging))
	cur := 0.0
	if h.HasEV {
		cur = h.EV.InitialSoC
	}
	for t, p := range charging {
		if h.HasEV && h.EV.CapacityKWh > 0 {
			cur += p / h.EV.CapacityKWh
		}
		if cur > 1 {
			cur = 1
		}
		if cur < 0 {
			cur = 0
		}
		soc[t] = cur
	}
	return soc
}

// Result is the uniform output shape of all three strategies. Residual,
// Iterations and Converged are meaningful for the distributed strategy only;
// callers must inspect them to tell true convergence from a forced stop.
type Result struct {
	Strategy   string
	RunID      string
	Schedules  map[string]Schedule
	Failed     map[string]error
	Residual   float64
	Iterations int
	Converged  bool
	History    []float64
}

// FailedIDs lists the homes whose subproblem could not be solved.
func (r Result) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	return ids
}
