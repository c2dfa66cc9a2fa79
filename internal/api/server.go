// Package api provides the read-only HTTP API the presentation layer polls
// for network state, plus Prometheus metrics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/roadworks/internal/engine"
	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/persistence"
	"github.com/talgya/roadworks/internal/world"
)

// Server serves the network state over HTTP.
type Server struct {
	Sim               *engine.Simulation
	Eng               *engine.Engine
	DB                *persistence.DB     // optional stats history
	Gatherer          prometheus.Gatherer // optional; enables /metrics
	Port              int
	PathRatePerMinute int
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	h, _ := s.routes()
	return h
}

func (s *Server) routes() (http.Handler, *RateLimiter) {
	pathLimiter := NewRateLimiter(s.PathRatePerMinute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", getOnly(s.handleStatus))
	mux.HandleFunc("/api/v1/snapshot", getOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/roads", getOnly(s.handleRoads))
	mux.HandleFunc("/api/v1/flags", getOnly(s.handleFlags))
	mux.HandleFunc("/api/v1/workers", getOnly(s.handleWorkers))
	mux.HandleFunc("/api/v1/events", getOnly(s.handleEvents))
	mux.HandleFunc("/api/v1/path", getOnly(RateLimitMiddleware(pathLimiter, s.handlePath)))
	mux.HandleFunc("/api/v1/stats/roads/", getOnly(s.handleRoadHistory))
	mux.HandleFunc("/api/v1/stats/busiest", getOnly(s.handleBusiest))
	mux.HandleFunc("/api/v1/runs", getOnly(s.handleRuns))
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return corsMiddleware(mux), pathLimiter
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	h, pathLimiter := s.routes()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := make(chan struct{})
	srv.RegisterOnShutdown(func() { close(stop) })
	go sweep(pathLimiter, time.Hour, stop)
	slog.Info("HTTP API starting", "addr", addr, "metrics", s.Gatherer != nil, "stats", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// sweep drops idle rate limit clients every interval until stop is closed.
func sweep(rl *RateLimiter, every time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			rl.Cleanup(every)
		}
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// RW_CORS_ORIGINS holds a comma-separated list of extra origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("RW_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type status struct {
		engine.Status
		Running bool `json:"running"`
		Speed   int  `json:"speed"`
	}
	out := status{Status: s.Sim.Status()}
	if s.Eng != nil {
		out.Running = s.Eng.Running()
		out.Speed = s.Eng.Speed
	}
	writeJSON(w, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot())
}

func (s *Server) handleRoads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Roads)
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Flags)
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Workers)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(limit)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := events[:0]
		for _, e := range events {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

// handlePath runs a search: GET /api/v1/path?from=q,r&to=q,r&mode=on_road
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseHex(q.Get("from"))
	if err != nil {
		http.Error(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseHex(q.Get("to"))
	if err != nil {
		http.Error(w, "to: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode := pathfind.AvoidRoads
	if m := q.Get("mode"); m != "" {
		if mode, err = pathfind.ParseMode(m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := s.Sim.FindPath(from, to, mode)
	switch {
	case errors.Is(err, world.ErrUnknownNode):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, pathfind.ErrNotFlag):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		slog.Error("path search failed", "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	type pathResponse struct {
		Found    bool             `json:"found"`
		Mode     string           `json:"mode"`
		Path     []world.HexCoord `json:"path"`
		Roads    []int            `json:"roads,omitempty"`
		Cost     float64          `json:"cost"`
		Expanded int              `json:"expanded"`
	}
	writeJSON(w, pathResponse{
		Found:    res.Found,
		Mode:     res.Mode.String(),
		Path:     s.Sim.Coords(res.Nodes),
		Roads:    res.Roads,
		Cost:     res.Cost,
		Expanded: res.Expanded,
	})
}

// handleRoadHistory returns stored load samples: GET /api/v1/stats/roads/{id}
func (s *Server) handleRoadHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/v1/stats/roads/"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid road id", http.StatusBadRequest)
		return
	}

	rows, err := s.DB.RoadHistory(s.Sim.RunID, id)
	if err != nil {
		slog.Error("road history query failed", "road", id, "error", err)
		writeJSON(w, []persistence.RoadStat{})
		return
	}
	if rows == nil {
		rows = []persistence.RoadStat{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleBusiest(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.DB.BusiestRoads(s.Sim.RunID, limit)
	if err != nil {
		slog.Error("busiest roads query failed", "error", err)
		rows = nil
	}
	if rows == nil {
		rows = []persistence.RoadStat{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
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

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
