package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/roadworks/internal/transport"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run")
	w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC) }
	assert.Empty(t, w.Path())

	require.NoError(t, w.Write(Entry{RunID: "r1", Tick: 1, Events: []transport.Event{
		{Tick: 1, Kind: transport.EventSpawn, Road: 1, Worker: 1, Point: 2},
	}}))
	require.NoError(t, w.Write(Entry{RunID: "r1", Tick: 2, Events: []transport.Event{
		{Tick: 2, Kind: transport.EventSwap, Road: 1, Worker: 1, Other: 2, Point: 3},
		{Tick: 2, Kind: transport.EventBlocked, Road: 1, Worker: 3, Reason: "flag reserved"},
	}}))
	path := w.Path()
	assert.Equal(t, filepath.Join(dir, "run-2026-03-01-10.jsonl.zst"), path)
	require.NoError(t, w.Close())

	var got []Entry
	require.NoError(t, Read(path, func(e Entry) error {
		got = append(got, e)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[1].Tick)
	require.Len(t, got[1].Events, 2)
	assert.Equal(t, transport.EventSwap, got[1].Events[0].Kind)
	assert.Equal(t, transport.WorkerID(2), got[1].Events[0].Other)
	assert.Equal(t, "flag reserved", got[1].Events[1].Reason)
}

func TestRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "run")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(Entry{Tick: 1}))
	first := w.Path()
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(Entry{Tick: 2}))
	second := w.Path()
	require.NoError(t, w.Close())

	assert.NotEqual(t, first, second)
	for path, tick := range map[string]uint64{first: 1, second: 2} {
		var ticks []uint64
		require.NoError(t, Read(path, func(e Entry) error {
			ticks = append(ticks, e.Tick)
			return nil
		}))
		assert.Equal(t, []uint64{tick}, ticks)
	}
}

func TestReopenAppends(t *testing.T) {
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	for tick := uint64(1); tick <= 2; tick++ {
		w := NewWriter(dir, "run")
		w.now = clock
		require.NoError(t, w.Write(Entry{Tick: tick}))
		require.NoError(t, w.Close())
	}

	var ticks []uint64
	require.NoError(t, Read(filepath.Join(dir, "run-2026-03-01-10.jsonl.zst"), func(e Entry) error {
		ticks = append(ticks, e.Tick)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2}, ticks)
}
