// Package app wires the loaders, solver, strategies and exporters into one
// runnable service.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridsched/revs/config"
	"github.com/gridsched/revs/core/coord"
	coremetrics "github.com/gridsched/revs/core/metrics"
	"github.com/gridsched/revs/core/model"
	"github.com/gridsched/revs/core/powerflow"
	"github.com/gridsched/revs/core/solver"
	"github.com/gridsched/revs/infra/extract"
	"github.com/gridsched/revs/infra/logger"
	"github.com/gridsched/revs/infra/metrics"
	"github.com/gridsched/revs/pkg/export"
)

// Service runs one scheduling strategy end to end: load inputs, solve,
// persist results.
type Service struct {
	cfg  *config.Config
	log  logger.Logger
	sink coremetrics.Sink
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetGlobalLevel(cfg.Logging.Level)
	logg := logger.New("service")

	var sink coremetrics.Sink = coremetrics.NopSink{}
	if cfg.Metrics.Enabled {
		prom, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sink = prom
	}
	return &Service{cfg: cfg, log: logg, sink: sink}, nil
}

// Run executes the named strategy and writes the result files.
func (s *Service) Run(ctx context.Context, strategy string) error {
	if s.cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Addr); err != nil {
				s.log.Errorf("metrics server: %v", err)
			}
		}()
	}

	tariff, homes, grid, err := s.loadInputs()
	if err != nil {
		return err
	}
	s.log.Infof("loaded %d homes over a %d h horizon", len(homes), tariff.Horizon())

	lp := solver.NewLPSolver()
	var res model.Result
	switch strategy {
	case model.StrategyIndividual:
		strat, err := coord.NewIndividual(lp, s.cfg.Coordination.Workers, logger.New("individual"), s.sink)
		if err != nil {
			return err
		}
		res, err = strat.Run(ctx, tariff, homes)
		if err != nil {
			return err
		}
	case model.StrategyCentralized:
		strat, err := coord.NewCentral(lp, s.cfg.Central.CentralBounds(), logger.New("central"), s.sink)
		if err != nil {
			return err
		}
		res, err = strat.Run(ctx, tariff, homes, grid)
		if err != nil {
			return err
		}
	case model.StrategyDistributed:
		strat, err := coord.New(lp, s.cfg.Coordination, logger.New("coordinator"), s.sink)
		if err != nil {
			return err
		}
		res, err = strat.Run(ctx, tariff, homes, grid)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("app: unknown strategy %q", strategy)
	}

	if len(res.Failed) > 0 {
		s.log.Warnf("%d homes failed to solve: %v", len(res.Failed), res.FailedIDs())
	}
	return s.writeResult(res)
}

// loadInputs assembles the validated run inputs: shifted tariff, every home
// of the region with EV parameters stamped onto the adopters sampled from the
// selected community, and the feeder sensitivity grid.
func (s *Service) loadInputs() (model.Tariff, map[string]model.Home, *powerflow.Grid, error) {
	sc := s.cfg.Scenario

	tariff, err := extract.LoadTariff(s.cfg.DataDir, sc.TariffID, sc.ShiftHours)
	if err != nil {
		return model.Tariff{}, nil, nil, err
	}
	all, err := extract.LoadHomes(s.cfg.DataDir, sc.RegionID, sc.ShiftHours)
	if err != nil {
		return model.Tariff{}, nil, nil, err
	}
	net, err := extract.LoadNetwork(s.cfg.DataDir, sc.NetworkID)
	if err != nil {
		return model.Tariff{}, nil, nil, err
	}
	community, err := extract.LoadCommunity(s.cfg.DataDir, sc.NetworkID, sc.Community)
	if err != nil {
		return model.Tariff{}, nil, nil, err
	}

	evHomes := sc.EVHomes
	if len(evHomes) == 0 {
		evHomes = extract.SampleAdopters(community, sc.AdoptionPct, sc.Seed)
	}
	s.log.Infof("%d of %d community homes adopt an EV", len(evHomes), len(community))

	// Every home on the network participates in the run: homes outside the
	// selected community never get an EV, but their baseline load still
	// shapes the feeder voltages. The regional load file may cover other
	// feeders, so the solve set is scoped to the network's home mapping.
	homes := make(map[string]model.Home, len(net.HomeNode))
	for id := range net.HomeNode {
		h, ok := all[id]
		if !ok {
			return model.Tariff{}, nil, nil, fmt.Errorf("app: network home %s has no load data", id)
		}
		homes[id] = h
	}
	for _, id := range community {
		if _, ok := homes[id]; !ok {
			return model.Tariff{}, nil, nil, fmt.Errorf("app: community home %s is not on network %d", id, sc.NetworkID)
		}
	}
	if err := extract.AttachEV(homes, evHomes, sc.EVParams()); err != nil {
		return model.Tariff{}, nil, nil, err
	}

	grid, err := powerflow.New(net)
	if err != nil {
		return model.Tariff{}, nil, nil, err
	}
	return tariff, homes, grid, nil
}

// writeResult persists the combined text format next to a JSON copy under
// {outDir}/{networkID}-com{C}/{strategy}/.
func (s *Service) writeResult(res model.Result) error {
	sc := s.cfg.Scenario
	dir := export.OutputDir(s.cfg.OutDir, sc.NetworkID, sc.Community, res.Strategy)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("app: create output dir: %w", err)
	}

	name := export.Filename(int(sc.AdoptionPct), int(sc.RatingW), sc.Seed)
	combined, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("app: create result file: %w", err)
	}
	defer combined.Close()
	if err := export.WriteCombined(combined, res); err != nil {
		return fmt.Errorf("app: write result: %w", err)
	}

	jsonName := name[:len(name)-len(filepath.Ext(name))] + ".json"
	jf, err := os.Create(filepath.Join(dir, jsonName))
	if err != nil {
		return fmt.Errorf("app: create json result: %w", err)
	}
	defer jf.Close()
	if err := export.WriteJSON(jf, res); err != nil {
		return fmt.Errorf("app: write json result: %w", err)
	}

	s.log.Infof("wrote %s results to %s", res.Strategy, filepath.Join(dir, name))
	return nil
}
