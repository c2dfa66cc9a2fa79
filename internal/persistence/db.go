// Package persistence keeps a SQLite history of traffic statistics: per-road
// load samples and notable worker events, grouped by run. It is not a save
// format; a network cannot be restored from it.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/roadworks/internal/transport"
)

// DB wraps a SQLite connection for traffic statistics.
type DB struct {
	conn *sqlx.DB
}

// Run describes one simulation run.
type Run struct {
	ID        string    `db:"id" json:"id"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	Scenario  string    `db:"scenario" json:"scenario"`
	Seed      int64     `db:"seed" json:"seed"`
	Radius    int       `db:"radius" json:"radius"`
}

// RoadStat is one load sample of a road.
type RoadStat struct {
	RunID      string  `db:"run_id" json:"run_id"`
	Tick       uint64  `db:"tick" json:"tick"`
	RoadID     int     `db:"road_id" json:"road_id"`
	Workers    int     `db:"workers" json:"workers"`
	Congestion float64 `db:"congestion" json:"congestion"`
}

// EventRow is a stored worker event.
type EventRow struct {
	RunID    string `db:"run_id" json:"run_id"`
	Tick     uint64 `db:"tick" json:"tick"`
	Kind     string `db:"kind" json:"kind"`
	RoadID   int    `db:"road_id" json:"road_id"`
	WorkerID int    `db:"worker_id" json:"worker_id"`
	ItemID   int    `db:"item_id" json:"item_id"`
	Reason   string `db:"reason" json:"reason"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		radius INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS road_stats (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		road_id INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		congestion REAL NOT NULL,
		PRIMARY KEY (run_id, tick, road_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		road_id INTEGER NOT NULL,
		worker_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_road_stats_road ON road_stats(run_id, road_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run.
func (db *DB) StartRun(r Run) error {
	_, err := db.conn.NamedExec(`INSERT INTO runs (id, started_at, scenario, seed, radius)
		VALUES (:id, :started_at, :scenario, :seed, :radius)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Runs lists runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, started_at, scenario, seed, radius FROM runs ORDER BY started_at DESC")
	return runs, err
}

// SaveRoadStats samples every road of a snapshot at tick.
func (db *DB) SaveRoadStats(runID string, tick uint64, roads []transport.RoadSnapshot) error {
	if len(roads) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO road_stats
		(run_id, tick, road_id, workers, congestion) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range roads {
		if _, err := stmt.Exec(runID, tick, int(r.ID), r.Workers, r.Congestion); err != nil {
			return fmt.Errorf("insert stats of road %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the run's history.
func (db *DB) SaveEvents(runID string, events []transport.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			`INSERT INTO events (run_id, tick, kind, road_id, worker_id, item_id, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, e.Tick, string(e.Kind), int(e.Road), int(e.Worker), int(e.Item), e.Reason,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair for a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	return value, err
}

// SaveTick stores the road samples and events of one report.
func (db *DB) SaveTick(runID string, tick uint64, snap transport.Snapshot, events []transport.Event) error {
	if err := db.SaveRoadStats(runID, tick, snap.Roads); err != nil {
		return fmt.Errorf("save road stats: %w", err)
	}
	if err := db.SaveEvents(runID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta(runID, "last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta(runID, "delivered", fmt.Sprintf("%d", snap.Delivered)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	slog.Debug("traffic stats saved", "run", runID, "tick", tick, "roads", len(snap.Roads), "events", len(events))
	return nil
}

// RecentEvents returns the most recent events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		`SELECT run_id, tick, kind, road_id, worker_id, item_id, reason
		FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}

// RoadHistory returns the samples of one road in tick order.
func (db *DB) RoadHistory(runID string, roadID int) ([]RoadStat, error) {
	var stats []RoadStat
	err := db.conn.Select(&stats,
		`SELECT run_id, tick, road_id, workers, congestion
		FROM road_stats WHERE run_id = ? AND road_id = ? ORDER BY tick`,
		runID, roadID,
	)
	return stats, err
}

// BusiestRoads ranks roads by mean congestion over a run.
func (db *DB) BusiestRoads(runID string, limit int) ([]RoadStat, error) {
	var stats []RoadStat
	err := db.conn.Select(&stats,
		`SELECT run_id, MAX(tick) AS tick, road_id, MAX(workers) AS workers, AVG(congestion) AS congestion
		FROM road_stats WHERE run_id = ? GROUP BY run_id, road_id
		ORDER BY congestion DESC, road_id LIMIT ?`,
		runID, limit,
	)
	return stats, err
}
