package coord

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/solver"
)

func TestIndividualDeterministic(t *testing.T) {
	strat, err := NewIndividual(solver.NewLPSolver(), 4, nil, nil)
	require.NoError(t, err)

	tariff := model.Tariff{ID: "t", Prices: []float64{3, 1, 2, 5}}
	homes := map[string]model.Home{
		"h1": evHome("h1", 0, 4, 4),
		"h2": evHome("h2", 1, 3, 4),
		"h3": {ID: "h3", Baseline: []float64{1, 1, 1, 1}},
	}

	first, err := strat.Run(context.Background(), tariff, homes)
	require.NoError(t, err)
	second, err := strat.Run(context.Background(), tariff, homes)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first.Schedules, second.Schedules))
	assert.Equal(t, model.StrategyIndividual, first.Strategy)
}

func TestIndividualScheduleProperties(t *testing.T) {
	strat, err := NewIndividual(solver.NewLPSolver(), 0, nil, nil)
	require.NoError(t, err)

	tariff := model.Tariff{ID: "t", Prices: []float64{3, 1, 2, 5}}
	homes := map[string]model.Home{
		"h1": evHome("h1", 0, 4, 4),
		"h2": evHome("h2", 1, 3, 4),
	}

	res, err := strat.Run(context.Background(), tariff, homes)
	require.NoError(t, err)

	for id, sched := range res.Schedules {
		h := homes[id]
		prev := h.EV.InitialSoC
		for tt, p := range sched.Charging {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, h.EV.RatingKW+1e-9)
			if !h.InWindow(tt) {
				assert.Zerof(t, p, "home %s charging outside window at hour %d", id, tt)
			}
			assert.GreaterOrEqual(t, sched.SoC[tt], prev)
			assert.LessOrEqual(t, sched.SoC[tt], 1.0)
			prev = sched.SoC[tt]
		}
		assert.InDeltaf(t, h.RequiredEnergyKWh(), sched.EnergyKWh(), 1e-6, "home %s", id)
	}
}

func TestIndividualAllFail(t *testing.T) {
	strat, err := NewIndividual(solver.NewLPSolver(), 1, nil, nil)
	require.NoError(t, err)

	h := evHome("h1", 0, 1, 2)
	h.EV.CapacityKWh = 50 // cannot fit in one hour at 2 kW
	_, err = strat.Run(context.Background(), model.Tariff{ID: "t", Prices: []float64{1, 2}}, map[string]model.Home{"h1": h})
	assert.Error(t, err)
}
