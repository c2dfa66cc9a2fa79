// Package transport moves items over the road network: flags buffer them,
// roads are single lanes of waypoints, and workers bound to one road each
// haul items between its ends while negotiating for waypoints.
package transport

import (
	"errors"
	"fmt"

	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/world"
)

// Config holds the tunables of a Network.
type Config struct {
	WorkerSpeed       float64 // walk progress per tick (0, 1]
	AutoStaff         bool    // spawn workers on roads that need them
	MaxWorkersPerRoad int     // cap for congestion-driven spawns
	SpawnCongestion   float64 // waiting items per worker that trigger a spawn; 0 disables
}

// DefaultConfig returns the tunables used by the simulation.
func DefaultConfig() Config {
	return Config{
		WorkerSpeed:       0.25,
		AutoStaff:         true,
		MaxWorkersPerRoad: 3,
		SpawnCongestion:   4,
	}
}

// Network is the registry of flags, buildings, roads, workers and items that
// sit on one grid. It is not safe for concurrent use; callers serialize access.
type Network struct {
	grid   *world.Grid
	cfg    Config
	finder *pathfind.Finder

	flags     []*Flag
	flagAt    map[world.NodeID]*Flag
	buildings map[world.NodeID]bool
	roads     []*Road
	items     map[ItemID]*Item

	nextFlag   FlagID
	nextRoad   RoadID
	nextWorker WorkerID
	nextItem   ItemID
	steps      uint64
	delivered  int

	// OnDelivered receives items that completed their route.
	OnDelivered func(*Item)
	// OnSearch sees every search run by PlanRoad and Dispatch.
	OnSearch func(pathfind.Result)
}

// NewNetwork creates an empty network on the grid.
func NewNetwork(g *world.Grid, cfg Config) *Network {
	if cfg.WorkerSpeed <= 0 {
		cfg.WorkerSpeed = DefaultConfig().WorkerSpeed
	}
	n := &Network{
		grid:       g,
		cfg:        cfg,
		flagAt:     make(map[world.NodeID]*Flag),
		buildings:  make(map[world.NodeID]bool),
		items:      make(map[ItemID]*Item),
		nextFlag:   1,
		nextRoad:   1,
		nextWorker: 1,
		nextItem:   1,
	}
	n.finder = pathfind.New(g, n)
	return n
}

// Grid returns the grid the network is built on.
func (n *Network) Grid() *world.Grid { return n.grid }

// Finder returns a pathfinder over this network's grid and roads.
func (n *Network) Finder() *pathfind.Finder { return n.finder }

// Delivered returns the number of items that completed their route.
func (n *Network) Delivered() int { return n.delivered }

// IsFlag reports whether a flag stands on the node.
func (n *Network) IsFlag(node world.NodeID) bool {
	_, ok := n.flagAt[node]
	return ok
}

// Edges lists the roads leaving the flag at node, oldest road first.
func (n *Network) Edges(node world.NodeID) []pathfind.Edge {
	f, ok := n.flagAt[node]
	if !ok {
		return nil
	}
	edges := make([]pathfind.Edge, 0, len(f.roads))
	for _, r := range f.roads {
		edges = append(edges, pathfind.Edge{
			Road: int(r.ID),
			To:   r.Other(f).Node,
			Cost: float64(r.Len()-1) + r.Congestion(),
		})
	}
	return edges
}

// PlaceFlag puts a flag on a free node.
func (n *Network) PlaceFlag(node world.NodeID) (*Flag, error) {
	if err := n.grid.SetOccupant(node, world.OccupantFlag); err != nil {
		return nil, fmt.Errorf("place flag: %w", err)
	}
	if _, ok := n.flagAt[node]; ok {
		return nil, fmt.Errorf("place flag at node %d: %w", node, world.ErrOccupied)
	}
	f := newFlag(n.nextFlag, node)
	n.nextFlag++
	n.flags = append(n.flags, f)
	n.flagAt[node] = f
	return f, nil
}

// PlaceBuilding marks a free node as a building, the final destination of items.
func (n *Network) PlaceBuilding(node world.NodeID) error {
	if n.buildings[node] {
		return fmt.Errorf("place building at node %d: %w", node, world.ErrOccupied)
	}
	if err := n.grid.SetOccupant(node, world.OccupantBuilding); err != nil {
		return fmt.Errorf("place building: %w", err)
	}
	n.buildings[node] = true
	return nil
}

// FlagAt returns the flag on a node, or nil.
func (n *Network) FlagAt(node world.NodeID) *Flag {
	return n.flagAt[node]
}

// Flags returns all flags in placement order.
func (n *Network) Flags() []*Flag {
	return append([]*Flag(nil), n.flags...)
}

// Roads returns all roads in build order.
func (n *Network) Roads() []*Road {
	return append([]*Road(nil), n.roads...)
}

// Road looks up a road by ID.
func (n *Network) Road(id RoadID) (*Road, error) {
	for _, r := range n.roads {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("road %d: %w", id, ErrUnknownRoad)
}

// Items returns the items still travelling, in ID order.
func (n *Network) Items() []*Item {
	out := make([]*Item, 0, len(n.items))
	for id := ItemID(1); id < n.nextItem; id++ {
		if it, ok := n.items[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Workers returns every worker, road by road in roster order.
func (n *Network) Workers() []*Worker {
	var out []*Worker
	for _, r := range n.roads {
		out = append(out, r.roster...)
	}
	return out
}

// BuildRoad lays a road along consecutive adjacent nodes. Both ends must be
// flags and every interior node must be free.
func (n *Network) BuildRoad(nodes []world.NodeID) (*Road, error) {
	if len(nodes) < 2 {
		return nil, ErrRoadTooShort
	}
	for _, id := range nodes {
		if !n.grid.Valid(id) {
			return nil, fmt.Errorf("build road: node %d: %w", id, world.ErrUnknownNode)
		}
	}
	from, to := n.flagAt[nodes[0]], n.flagAt[nodes[len(nodes)-1]]
	if from == nil || to == nil {
		return nil, fmt.Errorf("build road: %w", ErrNoFlag)
	}
	if from == to {
		return nil, fmt.Errorf("build road: %w", ErrRoadLoop)
	}
	seen := make(map[world.NodeID]bool, len(nodes))
	for i, id := range nodes {
		if seen[id] {
			return nil, fmt.Errorf("build road: node %d repeats: %w", id, world.ErrOccupied)
		}
		seen[id] = true
		if i > 0 && !n.grid.Adjacent(nodes[i-1], id) {
			return nil, fmt.Errorf("build road: nodes %d and %d: %w", nodes[i-1], id, ErrNotAdjacent)
		}
		if i > 0 && i < len(nodes)-1 && n.grid.Occupant(id) != world.OccupantNone {
			return nil, fmt.Errorf("build road: node %d holds %s: %w", id, n.grid.Occupant(id), world.ErrOccupied)
		}
	}

	for _, id := range nodes[1 : len(nodes)-1] {
		if err := n.grid.SetOccupant(id, world.OccupantRoad); err != nil {
			return nil, fmt.Errorf("build road: %w", err)
		}
	}
	r := newRoad(n.nextRoad, nodes, from, to)
	n.nextRoad++
	n.roads = append(n.roads, r)
	from.roads = append(from.roads, r)
	to.roads = append(to.roads, r)
	return r, nil
}

// PlanRoad searches a terrain path between two flags that avoids existing
// roads and buildings, then builds it. A path that crosses other flags is
// split there, so one road per leg is returned.
func (n *Network) PlanRoad(from, to *Flag) ([]*Road, error) {
	if from == to {
		return nil, fmt.Errorf("plan road: %w", ErrRoadLoop)
	}
	res, err := n.search(from.Node, to.Node, pathfind.AvoidRoads)
	if err != nil {
		return nil, fmt.Errorf("plan road: %w", err)
	}
	if !res.Found {
		return nil, fmt.Errorf("plan road from flag %d to flag %d: %w", from.ID, to.ID, ErrNoRoute)
	}

	var legs [][]world.NodeID
	start := 0
	for i := 1; i < len(res.Nodes); i++ {
		if n.IsFlag(res.Nodes[i]) {
			legs = append(legs, res.Nodes[start:i+1])
			start = i
		}
	}

	var built []*Road
	for _, leg := range legs {
		r, err := n.BuildRoad(leg)
		if err != nil {
			return built, err
		}
		built = append(built, r)
	}
	return built, nil
}

// EvictWorkers detaches every worker from the road. Claimed items go back to
// waiting; a worker with an item in hand or mid-walk blocks the eviction.
func (n *Network) EvictWorkers(r *Road) error {
	for _, w := range r.roster {
		if w.transit {
			return fmt.Errorf("evict worker %d: %w", w.ID, ErrInTransit)
		}
		if w.carry == CarryToDeliver {
			return fmt.Errorf("evict worker %d: %w", w.ID, ErrWorkerBusy)
		}
	}
	for _, w := range r.Workers() {
		if w.item != nil {
			w.item.carrier = nil
			w.item = nil
			w.carry = CarryNone
		}
		if w.trade != nil {
			w.trade.carrier = nil
			w.trade = nil
		}
		w.unbook()
		if err := r.Detach(w); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRoad tears a road down. Its workers must have been evicted.
func (n *Network) RemoveRoad(r *Road) error {
	if len(r.roster) > 0 {
		return fmt.Errorf("remove road %d: %w", r.ID, ErrRoadBusy)
	}
	idx := -1
	for i, x := range n.roads {
		if x == r {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("remove road %d: %w", r.ID, ErrUnknownRoad)
	}
	for _, id := range r.Nodes[1 : len(r.Nodes)-1] {
		n.grid.ClearOccupant(id)
	}
	r.Ends[0].removeRoad(r)
	r.Ends[1].removeRoad(r)
	n.roads = append(n.roads[:idx], n.roads[idx+1:]...)
	return nil
}

// Spawn attaches a new worker at the given waypoint of a road.
func (n *Network) Spawn(r *Road, point int) (*Worker, error) {
	w := newWorker(n.nextWorker)
	if err := r.Attach(w, point); err != nil {
		return nil, err
	}
	n.nextWorker++
	return w, nil
}

// Dispatch routes a new item over the road network from one flag to another
// and queues it on the first. destination is the building that consumes it.
func (n *Network) Dispatch(from *Flag, destination world.NodeID, to *Flag) (*Item, error) {
	if from == to {
		return nil, ErrSameFlag
	}
	if from.Room() <= 0 {
		return nil, fmt.Errorf("dispatch from flag %d: %w", from.ID, ErrFlagFull)
	}
	res, err := n.search(from.Node, to.Node, pathfind.OnRoad)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if !res.Found || len(res.Roads) == 0 {
		return nil, fmt.Errorf("dispatch from flag %d to flag %d: %w", from.ID, to.ID, ErrNoRoute)
	}

	route := make([]*Road, 0, len(res.Roads))
	for _, id := range res.Roads {
		r, err := n.Road(RoadID(id))
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		route = append(route, r)
	}

	it := &Item{ID: n.nextItem, Destination: destination, Route: route}
	if _, ok := from.Store(it); !ok {
		return nil, fmt.Errorf("dispatch from flag %d: %w", from.ID, ErrFlagFull)
	}
	n.nextItem++
	n.items[it.ID] = it
	return it, nil
}

func (n *Network) search(from, to world.NodeID, mode pathfind.Mode) (pathfind.Result, error) {
	res, err := n.finder.FindPath(from, to, mode)
	if err == nil && n.OnSearch != nil {
		n.OnSearch(res)
	}
	return res, err
}

func (n *Network) deliver(it *Item) {
	delete(n.items, it.ID)
	n.delivered++
	if n.OnDelivered != nil {
		n.OnDelivered(it)
	}
}

// tickState carries the per-step context through worker updates.
type tickState struct {
	net    *Network
	tick   uint64
	step   uint64
	speed  float64
	events []Event
}

func (ts *tickState) emit(e Event) {
	e.Tick = ts.tick
	ts.events = append(ts.events, e)
}

// Step advances every worker by one tick. Roads go in build order and
// workers in roster order, so the outcome is reproducible. A worker moved out
// of turn by a swap does not act again in the same step. An InvariantError
// aborts the step.
func (n *Network) Step(tick uint64) ([]Event, error) {
	n.steps++
	ts := &tickState{net: n, tick: tick, step: n.steps, speed: n.cfg.WorkerSpeed}

	if n.cfg.AutoStaff {
		if err := n.staff(ts); err != nil {
			return ts.events, err
		}
	}

	for _, r := range n.Roads() {
		for _, w := range r.Workers() {
			if w.road != r {
				continue
			}
			if err := w.step(ts); err != nil {
				return ts.events, fmt.Errorf("tick %d, road %d, worker %d: %w", tick, r.ID, w.ID, err)
			}
		}
	}
	return ts.events, nil
}

// staff gives every road a worker and adds one to congested roads.
func (n *Network) staff(ts *tickState) error {
	for _, r := range n.roads {
		crew := len(r.roster)
		need := crew == 0
		if !need && n.cfg.SpawnCongestion > 0 && crew < n.cfg.MaxWorkersPerRoad {
			need = r.Congestion() >= n.cfg.SpawnCongestion*float64(crew)
		}
		if !need {
			continue
		}
		p := r.freePoint()
		if p < 0 {
			continue
		}
		w, err := n.Spawn(r, p)
		if errors.Is(err, ErrRoadFull) || errors.Is(err, ErrWaypointOccupied) {
			continue
		}
		if err != nil {
			return err
		}
		w.lastStep = ts.step
		ts.emit(Event{Kind: EventSpawn, Road: r.ID, Worker: w.ID, Point: p})
	}
	return nil
}

// CheckInvariants verifies occupancy on every road, item placement and slot
// bookings.
func (n *Network) CheckInvariants() error {
	booked := make(map[*Flag]int)
	for _, r := range n.roads {
		if err := r.CheckOccupancy(); err != nil {
			return err
		}
		for _, w := range r.roster {
			if w.booked != nil {
				booked[w.booked]++
			}
		}
	}
	for _, f := range n.flags {
		if f.incoming < 0 || f.incoming != booked[f] {
			return invariant("booking check", "flag %d promises %d slots, workers hold %d", f.ID, f.incoming, booked[f])
		}
	}
	for _, it := range n.items {
		inHand := it.carrier != nil && it.carrier.item == it && it.carrier.carry == CarryToDeliver
		if it.flag != nil && inHand {
			return invariant("item check", "item %d is on flag %d and in hand of worker %d", it.ID, it.flag.ID, it.carrier.ID)
		}
		if it.flag == nil && !inHand {
			return invariant("item check", "item %d is neither on a flag nor carried", it.ID)
		}
	}
	return nil
}
