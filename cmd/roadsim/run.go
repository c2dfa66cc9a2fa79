package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/talgya/roadworks/internal/api"
	"github.com/talgya/roadworks/internal/config"
	"github.com/talgya/roadworks/internal/engine"
	"github.com/talgya/roadworks/internal/journal"
	"github.com/talgya/roadworks/internal/metrics"
	"github.com/talgya/roadworks/internal/persistence"
)

func newRunCommand() *cobra.Command {
	var (
		scenarioPath string
		ticks        uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario",
		Long: `Build the scenario's network and tick it in real time until interrupted,
or headless for a fixed number of ticks with --ticks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)
			return runScenario(cmd.Context(), cfg, scenarioPath, ticks)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (overrides scenario.path)")
	cmd.Flags().Uint64Var(&ticks, "ticks", 0, "run this many ticks without waiting, then exit")
	return cmd
}

func runScenario(ctx context.Context, cfg *config.Config, scenarioPath string, ticks uint64) error {
	sc, err := loadScenario(cfg, scenarioPath)
	if err != nil {
		return err
	}
	net, gen, sum, err := buildNetwork(cfg, sc)
	if err != nil {
		return err
	}
	slog.Info("network built",
		"scenario", sc.Name,
		"radius", gen.Radius,
		"flags", sum.Flags,
		"roads", sum.Roads,
		"workers", sum.Workers,
		"items", sum.Items,
	)

	// ── Sinks ─────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	col := metrics.NewCollector()
	if err := col.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	opts := []engine.Option{engine.WithMetrics(col)}

	if cfg.Journal.Enabled {
		jw := journal.NewWriter(cfg.Journal.Dir, "events")
		defer func() {
			if err := jw.Close(); err != nil {
				slog.Error("close journal", "error", err)
			}
		}()
		opts = append(opts, engine.WithJournal(jw))
		slog.Info("journal enabled", "dir", cfg.Journal.Dir)
	}

	var db *persistence.DB
	if cfg.Database.Path != "" {
		if dir := filepath.Dir(cfg.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create database dir: %w", err)
			}
		}
		db, err = persistence.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, engine.WithStore(db))
		slog.Info("database opened", "path", cfg.Database.Path)
	}

	sim := engine.NewSimulation(net, sc.Name, opts...)
	if db != nil {
		run := persistence.Run{
			ID:        sim.RunID,
			StartedAt: time.Now().UTC(),
			Scenario:  sc.Name,
			Seed:      gen.Seed,
			Radius:    gen.Radius,
		}
		if err := db.StartRun(run); err != nil {
			return err
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.Sim.TickInterval
	eng.Speed = cfg.Sim.Speed
	eng.ReportInterval = cfg.Sim.ReportInterval
	eng.OnTick = sim.TickMinute
	eng.OnReport = sim.Report

	started := time.Now()
	if ticks > 0 {
		slog.Info("running headless", "ticks", ticks)
		if err := eng.Advance(ticks); err != nil {
			return err
		}
	} else {
		if err := serve(ctx, cfg, sim, eng, db, reg); err != nil {
			return err
		}
	}

	st := sim.Status()
	fmt.Printf("\n%s: %s items delivered over %s ticks (%s), %s still in transit, %d workers on %d roads.\n",
		sc.Name,
		humanize.Comma(int64(st.Delivered)),
		humanize.Comma(int64(st.Tick)),
		time.Since(started).Round(time.Millisecond),
		humanize.Comma(int64(st.InTransit)),
		st.Workers, st.Roads,
	)
	return nil
}

// serve runs the engine in real time with the HTTP API up until a signal
// arrives or a tick fails.
func serve(ctx context.Context, cfg *config.Config, sim *engine.Simulation, eng *engine.Engine, db *persistence.DB, reg *prometheus.Registry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.API.Port > 0 {
		srv := (&api.Server{
			Sim:               sim,
			Eng:               eng,
			DB:                db,
			Gatherer:          reg,
			Port:              cfg.API.Port,
			PathRatePerMinute: cfg.API.PathRatePerMinute,
		}).Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP shutdown", "error", err)
			}
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	fmt.Println("Starting simulation... (Ctrl+C to stop)")
	return eng.Run(ctx)
}
