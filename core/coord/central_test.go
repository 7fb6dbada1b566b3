package coord

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/solver"
)

func TestCentralRun(t *testing.T) {
	bounds := solver.VoltageBounds{VSet: 1.0, VMin: 0.95, VMax: 1.05}
	strat, err := NewCentral(solver.NewLPSolver(), bounds, nil, nil)
	require.NoError(t, err)

	tariff := model.Tariff{ID: "t", Prices: []float64{1, 1}}
	homes := map[string]model.Home{
		"h1": evHome("h1", 0, 2, 2),
		"h2": evHome("h2", 0, 2, 2),
	}
	grid := sharedFeeder("h1", "h2")

	res, err := strat.Run(context.Background(), tariff, homes, grid)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyCentralized, res.Strategy)
	assert.Empty(t, res.Failed)

	volts := grid.NodeVoltages(bounds.VSet, grid.LoadMatrix(homes, res.Schedules, tariff.Horizon()))
	rows, cols := volts.Dims()
	for i := 0; i < rows; i++ {
		for tt := 0; tt < cols; tt++ {
			assert.GreaterOrEqual(t, volts.At(i, tt), bounds.VMin-1e-6)
			assert.LessOrEqual(t, volts.At(i, tt), bounds.VMax+1e-6)
		}
	}
}

func TestCentralRunHardFailure(t *testing.T) {
	// The band is unsatisfiable; unlike the distributed strategy there is no
	// best-effort result.
	bounds := solver.VoltageBounds{VSet: 1.0, VMin: 0.99, VMax: 1.05}
	strat, err := NewCentral(solver.NewLPSolver(), bounds, nil, nil)
	require.NoError(t, err)

	tariff := model.Tariff{ID: "t", Prices: []float64{1, 1}}
	homes := map[string]model.Home{
		"h1": evHome("h1", 0, 2, 2),
		"h2": evHome("h2", 0, 2, 2),
	}
	_, err = strat.Run(context.Background(), tariff, homes, sharedFeeder("h1", "h2"))
	assert.Error(t, err)
}

func TestNewCentralRejectsInvertedBand(t *testing.T) {
	_, err := NewCentral(solver.NewLPSolver(), solver.VoltageBounds{VSet: 1.0, VMin: 1.05, VMax: 0.95}, nil, nil)
	assert.Error(t, err)
}
