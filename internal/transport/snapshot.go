package transport

import "github.com/talgya/roadworks/internal/world"

// FlagSnapshot is a read-only view of a flag for inventory displays.
type FlagSnapshot struct {
	ID       FlagID         `json:"id"`
	Node     world.NodeID   `json:"node"`
	Coord    world.HexCoord `json:"coord"`
	Slots    []ItemID       `json:"slots"` // 0 marks an empty slot
	User     WorkerID       `json:"user,omitempty"`
	Incoming int            `json:"incoming"` // slots booked by inbound workers
	Roads    []RoadID       `json:"roads"`
}

// RoadSnapshot is a read-only view of a road for panel displays.
type RoadSnapshot struct {
	ID         RoadID         `json:"id"`
	Nodes      []world.NodeID `json:"nodes"`
	Ends       [2]FlagID      `json:"ends"`
	Occupancy  []WorkerID     `json:"occupancy"` // 0 marks a free waypoint
	Workers    int            `json:"workers"`
	Congestion float64        `json:"congestion"`
}

// WorkerSnapshot is a read-only view of a worker for rendering.
type WorkerSnapshot struct {
	ID       WorkerID   `json:"id"`
	Road     RoadID     `json:"road"`
	Current  int        `json:"current"`
	Goal     int        `json:"goal"`
	Wished   int        `json:"wished"`
	Transit  bool       `json:"transit"`
	Progress float64    `json:"progress"`
	Carry    string     `json:"carry"`
	Item     ItemID     `json:"item,omitempty"`
	Trade    ItemID     `json:"trade,omitempty"`
	Position world.Vec3 `json:"position"`
}

// Snapshot is the complete presentation view of a network at one tick.
type Snapshot struct {
	Flags     []FlagSnapshot   `json:"flags"`
	Roads     []RoadSnapshot   `json:"roads"`
	Workers   []WorkerSnapshot `json:"workers"`
	Items     int              `json:"items_in_transit"`
	Delivered int              `json:"items_delivered"`
}

// Snapshot returns a view of the flag.
func (f *Flag) Snapshot(g *world.Grid) FlagSnapshot {
	s := FlagSnapshot{
		ID:       f.ID,
		Node:     f.Node,
		Coord:    g.Coord(f.Node),
		Slots:    make([]ItemID, FlagCapacity),
		Incoming: f.incoming,
	}
	for i, it := range f.slots {
		if it != nil {
			s.Slots[i] = it.ID
		}
	}
	if f.user != nil {
		s.User = f.user.ID
	}
	for _, r := range f.roads {
		s.Roads = append(s.Roads, r.ID)
	}
	return s
}

// Snapshot returns a view of the road.
func (r *Road) Snapshot() RoadSnapshot {
	s := RoadSnapshot{
		ID:         r.ID,
		Nodes:      append([]world.NodeID(nil), r.Nodes...),
		Ends:       [2]FlagID{r.Ends[0].ID, r.Ends[1].ID},
		Occupancy:  make([]WorkerID, len(r.occupancy)),
		Workers:    len(r.roster),
		Congestion: r.Congestion(),
	}
	for i, w := range r.occupancy {
		if w != nil {
			s.Occupancy[i] = w.ID
		}
	}
	return s
}

// Snapshot returns a view of the worker.
func (w *Worker) Snapshot(g *world.Grid) WorkerSnapshot {
	s := WorkerSnapshot{
		ID:       w.ID,
		Current:  w.current,
		Goal:     w.goal,
		Wished:   w.wished,
		Transit:  w.transit,
		Progress: w.progress,
		Carry:    w.carry.String(),
		Position: w.Position(g),
	}
	if w.road != nil {
		s.Road = w.road.ID
	}
	if w.item != nil {
		s.Item = w.item.ID
	}
	if w.trade != nil {
		s.Trade = w.trade.ID
	}
	return s
}

// Snapshot returns the presentation view of the whole network.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{
		Items:     len(n.items),
		Delivered: n.delivered,
	}
	for _, f := range n.flags {
		s.Flags = append(s.Flags, f.Snapshot(n.grid))
	}
	for _, r := range n.roads {
		s.Roads = append(s.Roads, r.Snapshot())
		for _, w := range r.roster {
			s.Workers = append(s.Workers, w.Snapshot(n.grid))
		}
	}
	return s
}
