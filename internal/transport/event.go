package transport

// EventKind names a traffic event.
type EventKind string

const (
	EventSpawn   EventKind = "spawn"   // worker created on a road
	EventRetire  EventKind = "retire"  // idle redundant worker removed
	EventClaim   EventKind = "claim"   // worker reserved a waiting item
	EventPickup  EventKind = "pickup"  // item lifted off a flag
	EventDeposit EventKind = "deposit" // item put on a flag
	EventDeliver EventKind = "deliver" // item reached the end of its route
	EventSwap    EventKind = "swap"    // two workers exchanged waypoints
	EventBlocked EventKind = "blocked" // step refused this tick
)

// Event is a notable occurrence during a network step.
type Event struct {
	Tick   uint64    `json:"tick"`
	Kind   EventKind `json:"kind"`
	Road   RoadID    `json:"road"`
	Worker WorkerID  `json:"worker"`
	Other  WorkerID  `json:"other,omitempty"`
	Item   ItemID    `json:"item,omitempty"`
	Flag   FlagID    `json:"flag,omitempty"`
	Slot   int       `json:"slot,omitempty"` // -1 when a delivered item skipped a full flag
	Point  int       `json:"point"`
	Reason string    `json:"reason,omitempty"`
}

// CountByKind tallies events per kind.
func CountByKind(events []Event) map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range events {
		counts[e.Kind]++
	}
	return counts
}
