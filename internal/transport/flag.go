package transport

import (
	"fmt"

	"github.com/talgya/roadworks/internal/world"
)

// FlagCapacity is the number of item slots on every flag.
const FlagCapacity = 8

// FlagID identifies a flag within a Network.
type FlagID int

// Flag is a bounded item buffer where roads meet. At most one worker, the
// user, may be handing items on or off it at a time.
//
// incoming counts slots promised to workers that claimed an item bound for
// this flag. A worker only claims such an item while Room is positive, so the
// item always finds a slot on arrival.
type Flag struct {
	ID   FlagID
	Node world.NodeID

	slots    [FlagCapacity]*Item
	user     *Worker
	roads    []*Road
	incoming int
}

func newFlag(id FlagID, node world.NodeID) *Flag {
	return &Flag{ID: id, Node: node}
}

// Store puts the item into the first free slot. It fails when all slots are
// taken and leaves the flag unchanged.
func (f *Flag) Store(item *Item) (int, bool) {
	for i, s := range f.slots {
		if s == nil {
			f.slots[i] = item
			item.flag = f
			return i, true
		}
	}
	return -1, false
}

// Release removes the item from its slot. An item that is not on the flag is
// a caller bug.
func (f *Flag) Release(item *Item) error {
	for i, s := range f.slots {
		if s == item {
			f.slots[i] = nil
			item.flag = nil
			return nil
		}
	}
	return &InvariantError{
		Op:  "flag release",
		Err: fmt.Errorf("item %d on flag %d: %w", item.ID, f.ID, ErrItemNotOnFlag),
	}
}

// Reserve gives w the handoff slot if it is free or already w's.
func (f *Flag) Reserve(w *Worker) bool {
	if f.user != nil && f.user != w {
		return false
	}
	f.user = w
	return true
}

// Free drops the reservation if w holds it.
func (f *Flag) Free(w *Worker) {
	if f.user == w {
		f.user = nil
	}
}

// User returns the worker holding the reservation, or nil.
func (f *Flag) User() *Worker {
	return f.user
}

// Count returns the number of occupied slots.
func (f *Flag) Count() int {
	n := 0
	for _, s := range f.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Full reports whether no slot is free.
func (f *Flag) Full() bool {
	return f.Count() == FlagCapacity
}

// Incoming returns the number of slots promised to inbound workers.
func (f *Flag) Incoming() int {
	return f.incoming
}

// Room returns the number of slots that are neither taken nor promised. It
// goes negative while an exchange waits for its pickup.
func (f *Flag) Room() int {
	return FlagCapacity - f.Count() - f.incoming
}

// Slot returns the item in slot i, or nil.
func (f *Flag) Slot(i int) *Item {
	if i < 0 || i >= FlagCapacity {
		return nil
	}
	return f.slots[i]
}

// Items returns the stored items in slot order.
func (f *Flag) Items() []*Item {
	var out []*Item
	for _, s := range f.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Waiting returns the stored items whose next hop is road r, in slot order.
func (f *Flag) Waiting(r *Road) []*Item {
	var out []*Item
	for _, s := range f.slots {
		if s != nil && s.NextRoad() == r {
			out = append(out, s)
		}
	}
	return out
}

// Roads returns the roads that end at this flag, oldest first.
func (f *Flag) Roads() []*Road {
	return append([]*Road(nil), f.roads...)
}

func (f *Flag) removeRoad(r *Road) {
	for i, x := range f.roads {
		if x == r {
			f.roads = append(f.roads[:i], f.roads[i+1:]...)
			return
		}
	}
}
