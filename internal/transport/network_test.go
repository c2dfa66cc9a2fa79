package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/world"
)

func TestBuildRoadRejectsBadLayouts(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	g := n.Grid()
	a := flagAt(t, n, -2, 0)
	b := flagAt(t, n, 2, 0)
	require.NoError(t, n.PlaceBuilding(at(t, g, 0, 1)))

	cases := []struct {
		name  string
		nodes []world.NodeID
		want  error
	}{
		{"single node", []world.NodeID{a.Node}, ErrRoadTooShort},
		{"unflagged end", []world.NodeID{at(t, g, -1, 0), at(t, g, 0, 0)}, ErrNoFlag},
		{"same flag", []world.NodeID{a.Node, at(t, g, -1, 0), a.Node}, ErrRoadLoop},
		{"gap", []world.NodeID{a.Node, at(t, g, 0, 0), b.Node}, ErrNotAdjacent},
		{"through building", []world.NodeID{a.Node, at(t, g, -2, 1), at(t, g, -1, 1), at(t, g, 0, 1), at(t, g, 1, 0), b.Node}, world.ErrOccupied},
		{"unknown node", []world.NodeID{a.Node, world.NodeID(9999)}, world.ErrUnknownNode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.BuildRoad(tc.nodes)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, n.Roads())
	assert.Equal(t, world.OccupantNone, g.Occupant(at(t, g, -1, 0)))
}

func TestBuildRoadMarksInterior(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	r := line(t, n, -2, 0, 0, 5)
	g := n.Grid()

	assert.Equal(t, world.OccupantFlag, g.Occupant(r.Nodes[0]))
	for _, id := range r.Nodes[1:4] {
		assert.Equal(t, world.OccupantRoad, g.Occupant(id))
	}
	assert.Equal(t, world.OccupantFlag, g.Occupant(r.Nodes[4]))
	assert.Equal(t, []*Road{r}, r.Ends[0].Roads())
	assert.Equal(t, []*Road{r}, r.Ends[1].Roads())

	// A second road may not cross the first.
	flagAt(t, n, 0, -1)
	flagAt(t, n, 0, 1)
	_, err := n.BuildRoad([]world.NodeID{at(t, g, 0, -1), at(t, g, 0, 0), at(t, g, 0, 1)})
	assert.ErrorIs(t, err, world.ErrOccupied)
}

func TestPlanRoadSplitsAtFlags(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	west := flagAt(t, n, -3, 0)
	mid := flagAt(t, n, 0, 0)
	east := flagAt(t, n, 3, 0)

	roads, err := n.PlanRoad(west, east)
	require.NoError(t, err)
	require.Len(t, roads, 2)

	assert.Equal(t, west, roads[0].Ends[0])
	assert.Equal(t, mid, roads[0].Ends[1])
	assert.Equal(t, mid, roads[1].Ends[0])
	assert.Equal(t, east, roads[1].Ends[1])
	assert.Equal(t, 4, roads[0].Len())
	assert.Equal(t, 4, roads[1].Len())
	assert.Len(t, mid.Roads(), 2)

	_, err = n.PlanRoad(west, west)
	assert.ErrorIs(t, err, ErrRoadLoop)
}

func TestPlanRoadAvoidsExistingRoads(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	direct := line(t, n, -2, 0, 0, 5)
	north := flagAt(t, n, 0, -2)

	roads, err := n.PlanRoad(direct.Ends[0], north)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, direct.Nodes[0], roads[0].Nodes[0])
	for _, id := range roads[0].Nodes[1:] {
		assert.Equal(t, -1, direct.NodeIndex(id))
	}
}

func TestDispatchErrors(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	r := line(t, n, -2, 0, 0, 5)
	island := flagAt(t, n, 0, 3)

	_, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[0])
	assert.ErrorIs(t, err, ErrSameFlag)

	_, err = n.Dispatch(r.Ends[0], world.NoNode, island)
	assert.ErrorIs(t, err, ErrNoRoute)

	for i := 0; i < FlagCapacity; i++ {
		_, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
		require.NoError(t, err)
	}
	_, err = n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
	assert.ErrorIs(t, err, ErrFlagFull)
	assert.Len(t, n.Items(), FlagCapacity)
}

func TestDispatchPrefersUncongestedDetour(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	direct := line(t, n, -2, 0, 0, 5) // cost 4
	a, c := direct.Ends[0], direct.Ends[1]
	b := flagAt(t, n, 0, -2)

	ab, err := n.PlanRoad(a, b)
	require.NoError(t, err)
	bc, err := n.PlanRoad(b, c)
	require.NoError(t, err)
	require.Len(t, ab, 1)
	require.Len(t, bc, 1)
	require.Equal(t, 3, ab[0].Len())
	require.Equal(t, 5, bc[0].Len()) // detour cost 2+4

	// Direct costs 4, 5 and 6 (a tie goes to the road found first), then 7.
	var routes [][]*Road
	for i := 0; i < 4; i++ {
		it, err := n.Dispatch(a, world.NoNode, c)
		require.NoError(t, err)
		routes = append(routes, it.Route)
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, []*Road{direct}, routes[i], "item %d", i+1)
	}
	assert.Equal(t, []*Road{ab[0], bc[0]}, routes[3])

	assert.Equal(t, 3.0, direct.Congestion())
	assert.Equal(t, 1.0, ab[0].Congestion())
	assert.Equal(t, 0.0, bc[0].Congestion())

	res, err := n.Finder().FindPath(a.Node, c.Node, pathfind.OnRoad)
	require.NoError(t, err)
	require.True(t, res.Found)
	sum := 0.0
	for _, id := range res.Roads {
		r, err := n.Road(RoadID(id))
		require.NoError(t, err)
		sum += float64(r.Len()-1) + r.Congestion()
	}
	assert.Equal(t, sum, res.Cost)
}

func TestStaffingFollowsCongestion(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), Config{
		WorkerSpeed:       0.5,
		AutoStaff:         true,
		MaxWorkersPerRoad: 2,
		SpawnCongestion:   4,
	})
	r := line(t, n, -2, 0, 0, 5)
	for i := 0; i < 4; i++ {
		_, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
		require.NoError(t, err)
	}

	events := run(t, n, 1, 1)
	spawns := ofKind(events, EventSpawn)
	require.Len(t, spawns, 1)
	assert.Equal(t, 2, spawns[0].Point)
	// A worker spawned this tick waits for the next one.
	assert.Empty(t, ofKind(events, EventClaim))

	events = run(t, n, 2, 2)
	spawns = ofKind(events, EventSpawn)
	require.Len(t, spawns, 1)
	assert.Equal(t, 1, spawns[0].Point)

	events = run(t, n, 3, 10)
	assert.Empty(t, ofKind(events, EventSpawn))
	assert.Len(t, r.Workers(), 2)
}

func TestStaffingGivesEveryRoadAWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerSpeed = 0.5
	n := NewNetwork(world.NewGrid(4), cfg)
	r1 := line(t, n, -4, 0, 0, 5)
	r2 := line(t, n, 0, 0, 0, 5)

	events := run(t, n, 1, 1)
	require.Len(t, ofKind(events, EventSpawn), 2)
	assert.Len(t, r1.Workers(), 1)
	assert.Len(t, r2.Workers(), 1)
	assert.Equal(t, r1.Midpoint(), r1.Workers()[0].Current())
}

func TestRemoveRoadNeedsEviction(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	r := line(t, n, -2, 0, 0, 5)
	w := spawn(t, n, r, 0)
	_, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
	require.NoError(t, err)

	assert.ErrorIs(t, n.RemoveRoad(r), ErrRoadBusy)

	// Tick 1 claims the item at the start flag; tick 2 picks it up.
	run(t, n, 1, 2)
	require.Equal(t, CarryToDeliver, w.Carry())
	assert.ErrorIs(t, n.EvictWorkers(r), ErrWorkerBusy)

	// Tick 3 starts the walk.
	run(t, n, 3, 3)
	assert.ErrorIs(t, n.EvictWorkers(r), ErrInTransit)
}

func TestEvictReleasesClaimsAndRemoveClearsGrid(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	r := line(t, n, -2, 0, 0, 5)
	w := spawn(t, n, r, 2)
	it, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
	require.NoError(t, err)

	run(t, n, 1, 1)
	require.Equal(t, w, it.Carrier())
	require.Equal(t, CarryToPickup, w.Carry())

	require.NoError(t, n.EvictWorkers(r))
	assert.Nil(t, it.Carrier())
	assert.Nil(t, w.Road())
	assert.Empty(t, r.Workers())
	assert.Equal(t, r.Ends[0], it.Flag())

	require.NoError(t, n.RemoveRoad(r))
	for _, id := range r.Nodes[1:4] {
		assert.Equal(t, world.OccupantNone, n.Grid().Occupant(id))
	}
	assert.Empty(t, n.Roads())
	assert.Empty(t, r.Ends[0].Roads())
	assert.ErrorIs(t, n.RemoveRoad(r), ErrUnknownRoad)

	_, err = n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
	assert.ErrorIs(t, err, ErrNoRoute)
}

// buildChain lays two five-waypoint roads west-mid-east and queues four items
// each way.
func buildChain(t *testing.T) *Network {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorkerSpeed = 0.5
	n := NewNetwork(world.NewGrid(5), cfg)
	west := line(t, n, -4, 0, 0, 5)
	east := line(t, n, 0, 0, 0, 5)
	for i := 0; i < 4; i++ {
		_, err := n.Dispatch(west.Ends[0], world.NoNode, east.Ends[1])
		require.NoError(t, err)
		_, err = n.Dispatch(east.Ends[1], world.NoNode, west.Ends[0])
		require.NoError(t, err)
	}
	return n
}

func TestTwoWayTrafficDelivers(t *testing.T) {
	n := buildChain(t)
	var sunk []ItemID
	n.OnDelivered = func(it *Item) { sunk = append(sunk, it.ID) }

	var all []Event
	for tick := uint64(1); tick <= 3000 && n.Delivered() < 8; tick++ {
		all = append(all, run(t, n, tick, tick)...)
	}

	assert.Equal(t, 8, n.Delivered())
	assert.Len(t, sunk, 8)
	assert.Empty(t, n.Items())
	counts := CountByKind(all)
	assert.Equal(t, 8, counts[EventDeliver])
	assert.Equal(t, 16, counts[EventPickup])
	for _, f := range n.Flags() {
		assert.Zero(t, f.Count(), "flag %d", f.ID)
	}
}

func TestStepIsDeterministic(t *testing.T) {
	a := buildChain(t)
	b := buildChain(t)

	for tick := uint64(1); tick <= 200; tick++ {
		ea, err := a.Step(tick)
		require.NoError(t, err)
		eb, err := b.Step(tick)
		require.NoError(t, err)
		require.Equal(t, ea, eb, "tick %d", tick)
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestSnapshotReflectsState(t *testing.T) {
	n := NewNetwork(world.NewGrid(4), manualConfig(0.5))
	r := line(t, n, -2, 0, 0, 5)
	w := spawn(t, n, r, 0)
	it, err := n.Dispatch(r.Ends[0], world.NoNode, r.Ends[1])
	require.NoError(t, err)

	s := n.Snapshot()
	require.Len(t, s.Flags, 2)
	require.Len(t, s.Roads, 1)
	require.Len(t, s.Workers, 1)
	assert.Equal(t, it.ID, s.Flags[0].Slots[0])
	assert.Equal(t, w.ID, s.Flags[0].User)
	assert.Equal(t, w.ID, s.Roads[0].Occupancy[0])
	assert.Equal(t, 1.0, s.Roads[0].Congestion)
	assert.Equal(t, n.Grid().Position(r.Nodes[0]), s.Workers[0].Position)
	assert.Equal(t, "none", s.Workers[0].Carry)
	assert.Equal(t, 1, s.Items)
}
