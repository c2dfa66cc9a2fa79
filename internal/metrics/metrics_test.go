package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/transport"
	"github.com/talgya/roadworks/internal/world"
)

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
}

func TestRecordSearch(t *testing.T) {
	c := NewCollector()
	c.RecordSearch(pathfind.Result{Found: true, Mode: pathfind.OnRoad, Expanded: 3})
	c.RecordSearch(pathfind.Result{Found: true, Mode: pathfind.OnRoad, Expanded: 5})
	c.RecordSearch(pathfind.Result{Found: false, Mode: pathfind.AvoidRoads, Expanded: 40})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.searches.WithLabelValues("on_road", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues("avoid_roads", "not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.searchExpanded))
}

func TestRecordStepAndObserve(t *testing.T) {
	c := NewCollector()
	c.RecordStep([]transport.Event{
		{Kind: transport.EventSwap},
		{Kind: transport.EventBlocked},
		{Kind: transport.EventBlocked},
		{Kind: transport.EventDeliver},
	})
	c.RecordStep(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.delivered))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("swap")))

	n := transport.NewNetwork(world.NewGrid(3), transport.Config{WorkerSpeed: 0.5})
	g := n.Grid()
	west, _ := g.Lookup(world.HexCoord{Q: -2, R: 0})
	mid, _ := g.Lookup(world.HexCoord{Q: -1, R: 0})
	east, _ := g.Lookup(world.HexCoord{Q: 0, R: 0})
	fw, err := n.PlaceFlag(west)
	require.NoError(t, err)
	fe, err := n.PlaceFlag(east)
	require.NoError(t, err)
	r, err := n.BuildRoad([]world.NodeID{west, mid, east})
	require.NoError(t, err)
	_, err = n.Spawn(r, 1)
	require.NoError(t, err)
	_, err = n.Dispatch(fw, world.NoNode, fe)
	require.NoError(t, err)

	c.Observe(n)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.workers))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inTransit))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.congestion.WithLabelValues("1")))
}
