package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/roadworks/internal/config"
	"github.com/talgya/roadworks/internal/scenario"
	"github.com/talgya/roadworks/internal/transport"
	"github.com/talgya/roadworks/internal/world"
)

// setupLogging installs the default slog handler.
func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadScenario prefers the flag over the configured path.
func loadScenario(cfg *config.Config, flagPath string) (*scenario.Scenario, error) {
	path := flagPath
	if path == "" {
		path = cfg.Scenario.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no scenario: pass --scenario or set scenario.path")
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return sc, nil
}

// genConfig merges the scenario's world overrides into the configured world.
func genConfig(cfg *config.Config, sc *scenario.Scenario) world.GenConfig {
	gen := world.GenConfig{
		Radius:    cfg.World.Radius,
		Seed:      cfg.World.Seed,
		Roughness: cfg.World.Roughness,
		MaxHeight: cfg.World.MaxHeight,
	}
	if sc.World != nil {
		gen.Radius = sc.World.Radius
		if sc.World.Seed != 0 {
			gen.Seed = sc.World.Seed
		}
	}
	return gen
}

func networkConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		WorkerSpeed:       cfg.Sim.WorkerSpeed,
		AutoStaff:         !cfg.Sim.ManualStaffing,
		MaxWorkersPerRoad: cfg.Sim.MaxWorkersPerRoad,
		SpawnCongestion:   cfg.Sim.SpawnCongestion,
	}
}

// buildNetwork generates the grid and applies the scenario to it.
func buildNetwork(cfg *config.Config, sc *scenario.Scenario) (*transport.Network, world.GenConfig, scenario.Summary, error) {
	gen := genConfig(cfg, sc)
	grid := world.Generate(gen)
	net := transport.NewNetwork(grid, networkConfig(cfg))

	sum, err := sc.Apply(net)
	if err != nil {
		return nil, gen, sum, fmt.Errorf("apply scenario %s: %w", sc.Name, err)
	}
	return net, gen, sum, nil
}

// parseHex reads "q,r".
func parseHex(s string) (world.HexCoord, error) {
	qs, rs, ok := strings.Cut(s, ",")
	if !ok {
		return world.HexCoord{}, fmt.Errorf("want q,r, got %q", s)
	}
	q, err := strconv.Atoi(strings.TrimSpace(qs))
	if err != nil {
		return world.HexCoord{}, fmt.Errorf("q: %w", err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return world.HexCoord{}, fmt.Errorf("r: %w", err)
	}
	return world.HexCoord{Q: q, R: r}, nil
}
