// Package config loads and validates the run configuration from a YAML or
// JSON file with optional REVS_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridsched/revs/core/coord"
	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/solver"
)

// Config is the full run configuration.
type Config struct {
	DataDir      string         `json:"dataDir"`
	OutDir       string         `json:"outDir"`
	Scenario     ScenarioConfig `json:"scenario"`
	Coordination coord.Config   `json:"coordination"`
	Central      CentralConfig  `json:"central"`
	Logging      LoggingConfig  `json:"logging"`
	Metrics      MetricsConfig  `json:"metrics"`
}

// ScenarioConfig selects the input data and the EV adoption parameters.
type ScenarioConfig struct {
	RegionID    int      `json:"regionId"`
	NetworkID   int      `json:"networkId"`
	Community   int      `json:"community"`
	TariffID    string   `json:"tariffId"`
	ShiftHours  int      `json:"shiftHours"`
	AdoptionPct float64  `json:"adoptionPct"`
	RatingW     float64  `json:"ratingW"` // charger rating in watts
	CapacityKWh float64  `json:"capacityKwh"`
	InitialSoC  float64  `json:"initialSoc"`
	WindowStart int      `json:"windowStart"`
	WindowEnd   int      `json:"windowEnd"`
	Seed        int64    `json:"seed"`
	EVHomes     []string `json:"evHomes"` // explicit adopter list, skips sampling
}

// CentralConfig is the voltage band of the centralized strategy. These are
// the network's hard bounds, tighter than the coordination band.
type CentralConfig struct {
	VSet float64 `json:"vset"`
	VMin float64 `json:"vmin"`
	VMax float64 `json:"vmax"`
}

// LoggingConfig selects the minimum log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

// MetricsConfig enables the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Load reads the configuration file, applies environment overrides, fills
// defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, REVS_SCENARIO__SEED=99 style. The
	// callback maps "__" to the koanf delimiter, so the provider must split
	// on "." for the keys to unflatten into the nested config map.
	if err := k.Load(env.Provider("REVS_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "revs_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields with the standard scenario.
func (c *Config) SetDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.OutDir == "" {
		c.OutDir = "out"
	}
	s := &c.Scenario
	if s.RegionID == 0 {
		s.RegionID = 121
	}
	if s.NetworkID == 0 {
		s.NetworkID = 121144
	}
	if s.Community == 0 {
		s.Community = 2
	}
	if s.TariffID == "" {
		s.TariffID = "DVP"
	}
	if s.ShiftHours == 0 {
		s.ShiftHours = 6
	}
	if s.AdoptionPct == 0 {
		s.AdoptionPct = 90
	}
	if s.RatingW == 0 {
		s.RatingW = 4800
	}
	if s.CapacityKWh == 0 {
		s.CapacityKWh = 20
	}
	if s.InitialSoC == 0 {
		s.InitialSoC = 0.2
	}
	if s.WindowStart == 0 && s.WindowEnd == 0 {
		s.WindowStart = 11
		s.WindowEnd = 23
	}
	if s.Seed == 0 {
		s.Seed = 1234
	}
	c.Coordination.SetDefaults()
	if c.Central.VSet == 0 {
		c.Central.VSet = 1.03
	}
	if c.Central.VMin == 0 {
		c.Central.VMin = 0.90
	}
	if c.Central.VMax == 0 {
		c.Central.VMax = 1.05
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate rejects invalid configurations before any data is loaded.
func (c Config) Validate() error {
	s := c.Scenario
	if s.AdoptionPct < 0 || s.AdoptionPct > 100 {
		return fmt.Errorf("config: adoption %.1f%% outside [0,100]", s.AdoptionPct)
	}
	if s.RatingW <= 0 {
		return fmt.Errorf("config: non-positive rating %.1f W", s.RatingW)
	}
	if s.CapacityKWh <= 0 {
		return fmt.Errorf("config: non-positive capacity %.1f kWh", s.CapacityKWh)
	}
	if s.InitialSoC < 0 || s.InitialSoC > 1 {
		return fmt.Errorf("config: initial SoC %.2f outside [0,1]", s.InitialSoC)
	}
	if s.WindowStart < 0 || s.WindowStart >= s.WindowEnd {
		return fmt.Errorf("config: charging window [%d,%d) is empty or negative", s.WindowStart, s.WindowEnd)
	}
	if s.ShiftHours < 0 {
		return fmt.Errorf("config: negative hour shift %d", s.ShiftHours)
	}
	if err := c.Coordination.Validate(); err != nil {
		return err
	}
	if c.Central.VMin >= c.Central.VMax {
		return fmt.Errorf("config: central vmin %.3f >= vmax %.3f", c.Central.VMin, c.Central.VMax)
	}
	return nil
}

// EVParams converts the scenario's charger description to model units.
func (s ScenarioConfig) EVParams() model.EVParams {
	return model.EVParams{
		RatingKW:    s.RatingW * 1e-3,
		CapacityKWh: s.CapacityKWh,
		InitialSoC:  s.InitialSoC,
		WindowStart: s.WindowStart,
		WindowEnd:   s.WindowEnd,
	}
}

// CentralBounds converts the centralized section to solver bounds.
func (c CentralConfig) CentralBounds() solver.VoltageBounds {
	return solver.VoltageBounds{VSet: c.VSet, VMin: c.VMin, VMax: c.VMax}
}
