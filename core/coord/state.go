package coord

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// state is the mutable coordination record of one distributed run: the
// per-node hourly price signal, the iteration counter and the residual
// history. It is created at the start of Run and never outlives it, so
// concurrent runs on different networks cannot interfere. Only the
// coordinator mutates it, strictly between the parallel solve phases.
type state struct {
	prices    *mat.Dense // nodes x horizon dual signal
	iteration int
	history   []float64
}

func newState(nodes, horizon int) *state {
	return &state{prices: mat.NewDense(nodes, horizon, nil)}
}

// update applies the dual step against the voltage estimate and returns the
// residual: the 2-norm of the price change. Out-of-band node hours move
// proportionally to their signed violation relative to vset; in-band node
// hours decay toward zero so stale prices cannot drift the schedule forever.
func (s *state) update(volts *mat.Dense, cfg Config) float64 {
	nodes, horizon := s.prices.Dims()
	delta := make([]float64, 0, nodes*horizon)
	for i := 0; i < nodes; i++ {
		for t := 0; t < horizon; t++ {
			v := volts.At(i, t)
			p := s.prices.At(i, t)
			var next float64
			if v < cfg.VLow || v > cfg.VHigh {
				next = p + cfg.Kappa*(cfg.VSet-v)
			} else {
				next = p * (1 - cfg.Decay)
			}
			delta = append(delta, next-p)
			s.prices.Set(i, t, next)
		}
	}
	return floats.Norm(delta, 2)
}

// residual returns the latest recorded residual, zero before any update.
func (s *state) residual() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return s.history[len(s.history)-1]
}

// priceRow copies the hourly price signal of one node row.
func (s *state) priceRow(row int) []float64 {
	_, horizon := s.prices.Dims()
	out := make([]float64, horizon)
	mat.Row(out, row, s.prices)
	return out
}
