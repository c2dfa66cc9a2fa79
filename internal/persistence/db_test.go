package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/roadworks/internal/transport"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunsAndMeta(t *testing.T) {
	db := openTemp(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.StartRun(Run{ID: "a", StartedAt: started, Scenario: "chain", Seed: 3, Radius: 8}))
	require.NoError(t, db.StartRun(Run{ID: "b", StartedAt: started.Add(time.Hour), Scenario: "grid", Radius: 4}))
	assert.Error(t, db.StartRun(Run{ID: "a", StartedAt: started}))

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "chain", runs[1].Scenario)
	assert.Equal(t, int64(3), runs[1].Seed)

	require.NoError(t, db.SaveMeta("a", "last_tick", "10"))
	require.NoError(t, db.SaveMeta("a", "last_tick", "20"))
	v, err := db.GetMeta("a", "last_tick")
	require.NoError(t, err)
	assert.Equal(t, "20", v)

	_, err = db.GetMeta("b", "last_tick")
	assert.Error(t, err)
}

func TestSaveTick(t *testing.T) {
	db := openTemp(t)

	for tick, load := range map[uint64][2]float64{10: {1, 4}, 20: {3, 2}} {
		snap := transport.Snapshot{
			Roads: []transport.RoadSnapshot{
				{ID: 1, Workers: 1, Congestion: load[0]},
				{ID: 2, Workers: 2, Congestion: load[1]},
			},
			Delivered: int(tick),
		}
		events := []transport.Event{
			{Tick: tick, Kind: transport.EventSwap, Road: 1, Worker: 1},
			{Tick: tick, Kind: transport.EventBlocked, Road: 2, Worker: 3, Reason: "flag reserved"},
		}
		require.NoError(t, db.SaveTick("run", tick, snap, events))
	}

	hist, err := db.RoadHistory("run", 1)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, uint64(10), hist[0].Tick)
	assert.Equal(t, 3.0, hist[1].Congestion)

	busiest, err := db.BusiestRoads("run", 1)
	require.NoError(t, err)
	require.Len(t, busiest, 1)
	assert.Equal(t, 2, busiest[0].RoadID)
	assert.Equal(t, 3.0, busiest[0].Congestion)

	recent, err := db.RecentEvents("run", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	delivered, err := db.GetMeta("run", "delivered")
	require.NoError(t, err)
	assert.Contains(t, []string{"10", "20"}, delivered)
}

func TestEmptyBatchesAreNoops(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveEvents("run", nil))
	require.NoError(t, db.SaveRoadStats("run", 1, nil))
	events, err := db.RecentEvents("run", 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}
