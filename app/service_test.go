package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsched/revs/config"
)

// writeDataDir lays out a minimal region: three homes on a two-segment
// feeder, of which only the first two form the selected community.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"tariff-DVP.csv":  "hour,price\n0,1\n1,2\n2,1\n3,1\n",
		"7-home-load.csv": "H1,0,0,0,0\nH2,0,0,0,0\nH3,1,1,1,1\n",
		"9-net.json": `{"id":9,"root":0,"nodes":[0,1,2],` +
			`"edges":[{"from":0,"to":1,"resistance":0.1},{"from":1,"to":2,"resistance":0.1}],` +
			`"vmin":0.95,"vmax":1.05,"homes":{"H1":1,"H2":1,"H3":2}}`,
		"9-com.txt": "H1 H2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testCfg(dir string) *config.Config {
	return &config.Config{
		DataDir: dir,
		Scenario: config.ScenarioConfig{
			RegionID:    7,
			NetworkID:   9,
			Community:   0,
			TariffID:    "DVP",
			RatingW:     4800,
			CapacityKWh: 20,
			InitialSoC:  0.2,
			WindowStart: 0,
			WindowEnd:   2,
			EVHomes:     []string{"H1"},
		},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

// Every home the network knows enters the solve set; EV parameters land only
// on the community's adopters.
func TestLoadInputsCoversWholeNetwork(t *testing.T) {
	svc, err := New(testCfg(writeDataDir(t)))
	require.NoError(t, err)

	tariff, homes, _, err := svc.loadInputs()
	require.NoError(t, err)

	assert.Equal(t, 4, tariff.Horizon())
	require.Len(t, homes, 3)
	assert.True(t, homes["H1"].HasEV)
	assert.InDelta(t, 4.8, homes["H1"].EV.RatingKW, 1e-12)
	assert.False(t, homes["H2"].HasEV)
	assert.False(t, homes["H3"].HasEV)
}

// H3 sits outside the community and never charges, but its baseline load
// still pulls down the voltage estimate along the shared feeder path.
func TestLoadInputsOutsideBaselineMovesVoltage(t *testing.T) {
	svc, err := New(testCfg(writeDataDir(t)))
	require.NoError(t, err)

	tariff, homes, grid, err := svc.loadInputs()
	require.NoError(t, err)

	volts := grid.NodeVoltages(1.03, grid.LoadMatrix(homes, nil, tariff.Horizon()))
	row, ok := grid.NodeRow(1)
	require.True(t, ok)
	// H3's 1 kW at node 2 drops node 1 by the shared 0.1 ohm segment.
	assert.InDelta(t, 1.03-0.1, volts.At(row, 0), 1e-9)
}

func TestLoadInputsRejectsCommunityHomeOffNetwork(t *testing.T) {
	dir := writeDataDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "9-com.txt"), []byte("H1 H4\n"), 0o644))

	svc, err := New(testCfg(dir))
	require.NoError(t, err)

	_, _, _, err = svc.loadInputs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "H4")
}

func TestLoadInputsRejectsNetworkHomeWithoutLoad(t *testing.T) {
	dir := writeDataDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7-home-load.csv"),
		[]byte("H1,0,0,0,0\nH2,0,0,0,0\n"), 0o644))

	svc, err := New(testCfg(dir))
	require.NoError(t, err)

	_, _, _, err = svc.loadInputs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "H3")
}
