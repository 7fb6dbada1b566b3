package model

import "fmt"

// EVParams describes the charging hardware and session constraints of a home
// that owns an electric vehicle.
type EVParams struct {
	RatingKW    float64 // max charging power in kW
	CapacityKWh float64 // battery capacity in kWh
	InitialSoC  float64 // state of charge at window start, between 0 and 1
	WindowStart int     // first hour charging is allowed, inclusive
	WindowEnd   int     // hour charging must stop, exclusive
}

// Home represents one residence: its baseline hourly load and, if it owns an
// EV, the charging parameters attached by adoption sampling.
type Home struct {
	ID       string
	Baseline []float64 // non-EV hourly load in kW over the scheduling horizon
	HasEV    bool
	EV       EVParams
}

// RequiredEnergyKWh returns the energy the EV must absorb to reach full
// charge from its initial state.
func (h Home) RequiredEnergyKWh() float64 {
	if !h.HasEV {
		return 0
	}
	return h.EV.CapacityKWh * (1 - h.EV.InitialSoC)
}

// WindowHours returns the number of hours in the charging window.
func (h Home) WindowHours() int {
	if !h.HasEV {
		return 0
	}
	return h.EV.WindowEnd - h.EV.WindowStart
}

// InWindow reports whether hour t falls inside the charging window.
func (h Home) InWindow(t int) bool {
	return h.HasEV && t >= h.EV.WindowStart && t < h.EV.WindowEnd
}

// Validate checks the home against the scheduling horizon. It rejects the
// invalid configurations before any solver sees them.
func (h Home) Validate(horizon int) error {
	if h.ID == "" {
		return fmt.Errorf("home: empty identifier")
	}
	if len(h.Baseline) != horizon {
		return fmt.Errorf("home %s: baseline has %d hours, horizon is %d", h.ID, len(h.Baseline), horizon)
	}
	for t, p := range h.Baseline {
		if p < 0 {
			return fmt.Errorf("home %s: negative baseline load %.3f at hour %d", h.ID, p, t)
		}
	}
	if !h.HasEV {
		return nil
	}
	ev := h.EV
	if ev.RatingKW <= 0 {
		return fmt.Errorf("home %s: non-positive EV rating %.3f", h.ID, ev.RatingKW)
	}
	if ev.CapacityKWh <= 0 {
		return fmt.Errorf("home %s: non-positive EV capacity %.3f", h.ID, ev.CapacityKWh)
	}
	if ev.InitialSoC < 0 || ev.InitialSoC > 1 {
		return fmt.Errorf("home %s: initial SoC %.3f outside [0,1]", h.ID, ev.InitialSoC)
	}
	if ev.WindowStart < 0 || ev.WindowEnd > horizon || ev.WindowStart >= ev.WindowEnd {
		return fmt.Errorf("home %s: charging window [%d,%d) outside horizon %d", h.ID, ev.WindowStart, ev.WindowEnd, horizon)
	}
	return nil
}
