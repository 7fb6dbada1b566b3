package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsched/revs/core/model"
)

func sampleResult() model.Result {
	return model.Result{
		Strategy: model.StrategyDistributed,
		RunID:    "run-1",
		Schedules: map[string]model.Schedule{
			"H2": {Charging: []float64{0, 2}, Residual: []float64{1, 1}, SoC: []float64{0.2, 0.7}},
			"H1": {Charging: []float64{2, 0}, Residual: []float64{0.5, 0.5}, SoC: []float64{0.6, 0.6}},
		},
		Failed:     map[string]error{"H3": errors.New("infeasible window")},
		Residual:   0.125,
		Iterations: 3,
		Converged:  true,
		History:    []float64{2, 0.5, 0.125},
	}
}

func TestWriteCombined(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCombined(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8) // 3 series per home, failed list, residual

	// Homes are emitted in sorted order, series in res/ev/soc order.
	assert.Equal(t, "H1 res 0.5 0.5", lines[0])
	assert.Equal(t, "H1 ev 2 0", lines[1])
	assert.Equal(t, "H1 soc 0.6 0.6", lines[2])
	assert.Equal(t, "H2 res 1 1", lines[3])
	assert.Equal(t, "failed H3", lines[6])
	assert.Equal(t, "residual 0.125", lines[7])
}

func TestWriteCombinedIndividualOmitsResidual(t *testing.T) {
	res := sampleResult()
	res.Strategy = model.StrategyIndividual
	res.Failed = nil

	var buf bytes.Buffer
	require.NoError(t, WriteCombined(&buf, res))
	assert.NotContains(t, buf.String(), "residual")
	assert.NotContains(t, buf.String(), "failed")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5) // header + 2 homes x 2 hours
	assert.Equal(t, "home_id,hour,residual_kw,charging_kw,soc", lines[0])
	assert.Equal(t, "H1,0,0.5,2,0.6", lines[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var got jsonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, model.StrategyDistributed, got.Strategy)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, "infeasible window", got.Failed["H3"])
	assert.InDelta(t, 0.125, got.Residual, 1e-12)
}

func TestOutputNaming(t *testing.T) {
	dir := OutputDir("out", 121144, 2, model.StrategyDistributed)
	assert.Contains(t, dir, "121144-com2")
	assert.Contains(t, dir, model.StrategyDistributed)
	assert.Equal(t, "adopt90-rating4800-seed1234.txt", Filename(90, 4800, 1234))
}
