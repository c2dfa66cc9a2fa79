// Package engine drives a transport network tick by tick and exposes its
// state to concurrent readers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	Tick           uint64        // Current tick counter (monotonic, never resets)
	Speed          int           // Multiplier: 1 = one tick per Interval
	Interval       time.Duration // Base tick interval
	ReportInterval uint64        // Ticks between OnReport calls; 0 disables

	// OnTick runs every tick. An error stops the engine.
	OnTick func(tick uint64) error
	// OnReport runs every ReportInterval ticks and once more on stop.
	OnReport func(tick uint64)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:          1,
		Interval:       100 * time.Millisecond,
		ReportInterval: 600,
	}
}

// Run ticks in real time until ctx is done, Stop is called, or a tick fails.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed, "interval", e.Interval)

	speed := max(e.Speed, 1)
	ticker := time.NewTicker(e.Interval / time.Duration(speed))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.finish()
			return nil
		case <-stop:
			e.finish()
			return nil
		case <-ticker.C:
			if err := e.step(); err != nil {
				slog.Error("simulation halted", "tick", e.Tick, "error", err)
				e.finish()
				return err
			}
		}
	}
}

// Advance runs n ticks back to back without waiting.
func (e *Engine) Advance(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := e.step(); err != nil {
			slog.Error("simulation halted", "tick", e.Tick, "error", err)
			e.finish()
			return err
		}
	}
	e.finish()
	return nil
}

// Stop halts a running loop. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// step advances the simulation by one tick.
func (e *Engine) step() error {
	e.Tick++

	if e.OnTick != nil {
		if err := e.OnTick(e.Tick); err != nil {
			return fmt.Errorf("tick %d: %w", e.Tick, err)
		}
	}

	if e.ReportInterval > 0 && e.Tick%e.ReportInterval == 0 && e.OnReport != nil {
		e.OnReport(e.Tick)
	}
	return nil
}

func (e *Engine) finish() {
	if e.OnReport != nil && (e.ReportInterval == 0 || e.Tick%e.ReportInterval != 0) {
		e.OnReport(e.Tick)
	}
	slog.Info("simulation engine stopped", "tick", e.Tick)
}
