package transport

import "github.com/talgya/roadworks/internal/world"

// ItemID identifies an item within a Network.
type ItemID int

// Item is a unit of cargo travelling a precomputed route of roads towards a
// destination building.
type Item struct {
	ID          ItemID
	Destination world.NodeID
	Route       []*Road
	Progress    int // roads already travelled
	Delivered   bool

	flag    *Flag
	carrier *Worker
}

// NextRoad returns the road the item has to travel next, or nil once the
// route is complete.
func (it *Item) NextRoad() *Road {
	if it.Progress < 0 || it.Progress >= len(it.Route) {
		return nil
	}
	return it.Route[it.Progress]
}

// Remaining returns the number of roads still ahead.
func (it *Item) Remaining() int {
	return len(it.Route) - it.Progress
}

// Flag returns the flag holding the item, or nil while carried.
func (it *Item) Flag() *Flag {
	return it.flag
}

// Carrier returns the worker that claimed or carries the item, or nil.
func (it *Item) Carrier() *Worker {
	return it.carrier
}
