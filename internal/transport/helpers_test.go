package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/roadworks/internal/world"
)

func manualConfig(speed float64) Config {
	return Config{WorkerSpeed: speed}
}

func at(t *testing.T, g *world.Grid, q, r int) world.NodeID {
	t.Helper()
	id, ok := g.Lookup(world.HexCoord{Q: q, R: r})
	require.True(t, ok, "no node at (%d,%d)", q, r)
	return id
}

// flagAt returns the flag on (q,r), placing one if needed.
func flagAt(t *testing.T, n *Network, q, r int) *Flag {
	t.Helper()
	id := at(t, n.Grid(), q, r)
	if f := n.FlagAt(id); f != nil {
		return f
	}
	f, err := n.PlaceFlag(id)
	require.NoError(t, err)
	return f
}

// line builds a road of length waypoints from (q,r) stepping in direction d,
// with flags on both ends.
func line(t *testing.T, n *Network, q, r int, d world.Direction, length int) *Road {
	t.Helper()
	c := world.HexCoord{Q: q, R: r}
	nodes := make([]world.NodeID, 0, length)
	for i := 0; i < length; i++ {
		id, ok := n.Grid().Lookup(c)
		require.True(t, ok, "no node at %v", c)
		nodes = append(nodes, id)
		c = c.Add(world.HexNeighborDirections[d])
	}
	first := n.Grid().Coord(nodes[0])
	last := n.Grid().Coord(nodes[len(nodes)-1])
	flagAt(t, n, first.Q, first.R)
	flagAt(t, n, last.Q, last.R)

	road, err := n.BuildRoad(nodes)
	require.NoError(t, err)
	return road
}

func spawn(t *testing.T, n *Network, r *Road, point int) *Worker {
	t.Helper()
	w, err := n.Spawn(r, point)
	require.NoError(t, err)
	return w
}

// run steps the network from tick from to tick to inclusive, checking
// invariants after every step.
func run(t *testing.T, n *Network, from, to uint64) []Event {
	t.Helper()
	var all []Event
	for tick := from; tick <= to; tick++ {
		events, err := n.Step(tick)
		require.NoError(t, err, "tick %d", tick)
		require.NoError(t, n.CheckInvariants(), "tick %d", tick)
		all = append(all, events...)
	}
	return all
}

func ofKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
