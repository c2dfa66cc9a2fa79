package transport

import (
	"fmt"

	"github.com/talgya/roadworks/internal/world"
)

// RoadID identifies a road within a Network.
type RoadID int

// Road is a fixed lane of waypoints between two flags. Each waypoint holds at
// most one worker.
type Road struct {
	ID    RoadID
	Nodes []world.NodeID
	Ends  [2]*Flag

	occupancy []*Worker
	roster    []*Worker // attach order; drives per-tick iteration
}

func newRoad(id RoadID, nodes []world.NodeID, from, to *Flag) *Road {
	return &Road{
		ID:        id,
		Nodes:     append([]world.NodeID(nil), nodes...),
		Ends:      [2]*Flag{from, to},
		occupancy: make([]*Worker, len(nodes)),
	}
}

// Len returns the number of waypoints, flags included.
func (r *Road) Len() int {
	return len(r.Nodes)
}

// NodeIndex returns the waypoint index of a grid node, or -1.
func (r *Road) NodeIndex(node world.NodeID) int {
	for i, n := range r.Nodes {
		if n == node {
			return i
		}
	}
	return -1
}

// EndFlag returns the flag at end 0 or end 1.
func (r *Road) EndFlag(end int) *Flag {
	return r.Ends[end]
}

// EndIndex returns the waypoint index of end 0 or end 1.
func (r *Road) EndIndex(end int) int {
	if end == 0 {
		return 0
	}
	return len(r.Nodes) - 1
}

// Midpoint is where an idle worker waits.
func (r *Road) Midpoint() int {
	return len(r.Nodes) / 2
}

// endAt returns which end sits at waypoint i, or -1 for interior waypoints.
func (r *Road) endAt(i int) int {
	switch i {
	case 0:
		return 0
	case len(r.Nodes) - 1:
		return 1
	}
	return -1
}

// flagAt returns the flag at waypoint i, or nil for interior waypoints.
func (r *Road) flagAt(i int) *Flag {
	if e := r.endAt(i); e >= 0 {
		return r.Ends[e]
	}
	return nil
}

// Other returns the flag at the far end from f.
func (r *Road) Other(f *Flag) *Flag {
	if r.Ends[0] == f {
		return r.Ends[1]
	}
	return r.Ends[0]
}

// Congestion counts the items queued at either end that want this road next.
func (r *Road) Congestion() float64 {
	n := len(r.Ends[0].Waiting(r)) + len(r.Ends[1].Waiting(r))
	return float64(n)
}

// Occupant returns the worker resting on or heading into waypoint i.
func (r *Road) Occupant(i int) *Worker {
	if i < 0 || i >= len(r.occupancy) {
		return nil
	}
	return r.occupancy[i]
}

// Workers returns the roster in attach order.
func (r *Road) Workers() []*Worker {
	return append([]*Worker(nil), r.roster...)
}

// Attach places w at waypoint point. A waypoint that is a flag must also be
// free for reservation.
func (r *Road) Attach(w *Worker, point int) error {
	if w.road != nil {
		return fmt.Errorf("worker %d on road %d: %w", w.ID, w.road.ID, ErrAlreadyAttached)
	}
	if point < 0 || point >= len(r.Nodes) {
		return fmt.Errorf("point %d of road %d: %w", point, r.ID, ErrPointOutOfRange)
	}
	if len(r.roster) >= len(r.Nodes) {
		return fmt.Errorf("road %d: %w", r.ID, ErrRoadFull)
	}
	if r.occupancy[point] != nil {
		return fmt.Errorf("point %d of road %d: %w", point, r.ID, ErrWaypointOccupied)
	}
	if f := r.flagAt(point); f != nil && !f.Reserve(w) {
		return fmt.Errorf("flag %d at point %d of road %d: %w", f.ID, point, r.ID, ErrWaypointOccupied)
	}

	w.road = r
	w.current = point
	w.goal = point
	w.walkFrom, w.walkTo = point, point
	w.transit = false
	w.wished = NoWish
	r.occupancy[point] = w
	r.roster = append(r.roster, w)
	return nil
}

// Detach removes a resting worker from the road.
func (r *Road) Detach(w *Worker) error {
	if w.road != r {
		return fmt.Errorf("worker %d, road %d: %w", w.ID, r.ID, ErrNotAttached)
	}
	if w.transit {
		return fmt.Errorf("worker %d: %w", w.ID, ErrInTransit)
	}
	if r.occupancy[w.current] != w {
		return invariant("road detach", "worker %d at point %d of road %d: %w", w.ID, w.current, r.ID, ErrOccupancyMismatch)
	}
	r.occupancy[w.current] = nil
	for i, x := range r.roster {
		if x == w {
			r.roster = append(r.roster[:i], r.roster[i+1:]...)
			break
		}
	}
	r.Ends[0].Free(w)
	r.Ends[1].Free(w)
	w.road = nil
	w.wished = NoWish
	return nil
}

// freePoint returns the free waypoint closest to the midpoint, preferring
// interior waypoints, or -1.
func (r *Road) freePoint() int {
	mid := r.Midpoint()
	for d := 0; d < len(r.Nodes); d++ {
		for _, p := range [2]int{mid - d, mid + d} {
			if p < 0 || p >= len(r.Nodes) || r.occupancy[p] != nil {
				continue
			}
			if f := r.flagAt(p); f != nil && f.User() != nil {
				continue
			}
			return p
		}
	}
	return -1
}

// CheckOccupancy verifies that every rostered worker sits at its occupancy
// slot and no slot holds a stranger.
func (r *Road) CheckOccupancy() error {
	seen := 0
	for i, w := range r.occupancy {
		if w == nil {
			continue
		}
		seen++
		if w.road != r || w.current != i {
			return invariant("occupancy check", "point %d of road %d: %w", i, r.ID, ErrOccupancyMismatch)
		}
	}
	if seen != len(r.roster) {
		return invariant("occupancy check", "road %d has %d placed and %d rostered: %w", r.ID, seen, len(r.roster), ErrOccupancyMismatch)
	}
	return nil
}
