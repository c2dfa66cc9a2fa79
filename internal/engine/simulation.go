package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/roadworks/internal/journal"
	"github.com/talgya/roadworks/internal/metrics"
	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/persistence"
	"github.com/talgya/roadworks/internal/transport"
	"github.com/talgya/roadworks/internal/world"
)

const maxRecentEvents = 1000

// Simulation owns a network and serializes access to it: ticks take the write
// lock, readers the read lock.
type Simulation struct {
	RunID    string
	Scenario string

	mu       sync.RWMutex
	net      *transport.Network
	lastTick uint64
	recent   []transport.Event // ring of the latest events, oldest first
	pending  []transport.Event // events since the last report
	counts   map[transport.EventKind]int

	metrics *metrics.Collector
	journal *journal.Writer
	store   *persistence.DB
}

// Option configures optional sinks.
type Option func(*Simulation)

// WithMetrics records searches, steps and gauges.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Simulation) { s.metrics = c }
}

// WithJournal writes every tick that has events.
func WithJournal(w *journal.Writer) Option {
	return func(s *Simulation) { s.journal = w }
}

// WithStore saves road samples and events on every report.
func WithStore(db *persistence.DB) Option {
	return func(s *Simulation) { s.store = db }
}

// NewSimulation wraps a built network.
func NewSimulation(net *transport.Network, scenario string, opts ...Option) *Simulation {
	s := &Simulation{
		RunID:    uuid.NewString(),
		Scenario: scenario,
		net:      net,
		counts:   make(map[transport.EventKind]int),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics != nil {
		prev := net.OnSearch
		net.OnSearch = func(res pathfind.Result) {
			s.metrics.RecordSearch(res)
			if prev != nil {
				prev(res)
			}
		}
		s.metrics.Observe(net)
	}
	return s
}

// TickMinute advances the network one step. An invariant violation is
// returned as is so the engine stops.
func (s *Simulation) TickMinute(tick uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	events, err := s.net.Step(tick)
	s.record(events)

	if s.metrics != nil {
		s.metrics.RecordStep(events)
		s.metrics.Observe(s.net)
	}
	if s.journal != nil && len(events) > 0 {
		if jerr := s.journal.Write(journal.Entry{RunID: s.RunID, Tick: tick, Events: events}); jerr != nil {
			slog.Warn("journal write failed", "tick", tick, "error", jerr)
		}
	}

	if err != nil {
		if transport.IsInvariant(err) {
			slog.Error("network invariant violated", "tick", tick, "error", err)
		}
		return err
	}
	return nil
}

func (s *Simulation) record(events []transport.Event) {
	for _, e := range events {
		s.counts[e.Kind]++
	}
	s.pending = append(s.pending, events...)
	s.recent = append(s.recent, events...)
	if len(s.recent) > maxRecentEvents {
		s.recent = append([]transport.Event(nil), s.recent[len(s.recent)-maxRecentEvents:]...)
	}
}

// Report logs a traffic summary and saves stats when a store is attached.
func (s *Simulation) Report(tick uint64) {
	s.mu.Lock()
	snap := s.net.Snapshot()
	pending := s.pending
	s.pending = nil
	counts := make(map[transport.EventKind]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	s.mu.Unlock()

	busiest, load := transport.RoadID(0), 0.0
	for _, r := range snap.Roads {
		if r.Congestion > load {
			busiest, load = r.ID, r.Congestion
		}
	}

	slog.Info("traffic report",
		"run", s.RunID,
		"tick", humanize.Comma(int64(tick)),
		"roads", len(snap.Roads),
		"workers", len(snap.Workers),
		"items", snap.Items,
		"delivered", humanize.Comma(int64(snap.Delivered)),
		"swaps", counts[transport.EventSwap],
		"blocked", counts[transport.EventBlocked],
		"busiest_road", busiest,
		"busiest_load", fmt.Sprintf("%.1f", load),
	)

	if s.store != nil {
		if err := s.store.SaveTick(s.RunID, tick, snap, pending); err != nil {
			slog.Error("save traffic stats", "tick", tick, "error", err)
		}
	}
}

// Status is a one-line summary of the run.
type Status struct {
	RunID     string                      `json:"run_id"`
	Scenario  string                      `json:"scenario"`
	Tick      uint64                      `json:"tick"`
	Flags     int                         `json:"flags"`
	Roads     int                         `json:"roads"`
	Workers   int                         `json:"workers"`
	InTransit int                         `json:"items_in_transit"`
	Delivered int                         `json:"items_delivered"`
	Events    map[transport.EventKind]int `json:"events"`
}

// Status returns the current summary.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[transport.EventKind]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	return Status{
		RunID:     s.RunID,
		Scenario:  s.Scenario,
		Tick:      s.lastTick,
		Flags:     len(s.net.Flags()),
		Roads:     len(s.net.Roads()),
		Workers:   len(s.net.Workers()),
		InTransit: len(s.net.Items()),
		Delivered: s.net.Delivered(),
		Events:    counts,
	}
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// Snapshot returns the presentation view of the network.
func (s *Simulation) Snapshot() transport.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.net.Snapshot()
}

// RecentEvents returns up to limit of the latest events, newest last.
func (s *Simulation) RecentEvents(limit int) []transport.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.recent) > limit {
		start = len(s.recent) - limit
	}
	return append([]transport.Event(nil), s.recent[start:]...)
}

// FindPath runs a search between two coordinates under the read lock.
func (s *Simulation) FindPath(from, to world.HexCoord, mode pathfind.Mode) (pathfind.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.net.Grid()
	start, ok := g.Lookup(from)
	if !ok {
		return pathfind.Result{}, fmt.Errorf("from (%d,%d): %w", from.Q, from.R, world.ErrUnknownNode)
	}
	end, ok := g.Lookup(to)
	if !ok {
		return pathfind.Result{}, fmt.Errorf("to (%d,%d): %w", to.Q, to.R, world.ErrUnknownNode)
	}
	res, err := s.net.Finder().FindPath(start, end, mode)
	if err == nil && s.metrics != nil {
		s.metrics.RecordSearch(res)
	}
	return res, err
}

// Coords maps grid nodes to coordinates for presentation.
func (s *Simulation) Coords(nodes []world.NodeID) []world.HexCoord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]world.HexCoord, len(nodes))
	for i, id := range nodes {
		out[i] = s.net.Grid().Coord(id)
	}
	return out
}
