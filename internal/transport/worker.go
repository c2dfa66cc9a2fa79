package transport

import (
	"github.com/talgya/roadworks/internal/world"
)

// WorkerID identifies a worker within a Network.
type WorkerID int

// NoWish marks a worker that is not waiting to enter a waypoint.
const NoWish = -1

// Carry is the two-phase hauling state of a worker.
type Carry uint8

const (
	CarryNone      Carry = iota // empty-handed
	CarryToPickup               // item claimed, walking to the flag holding it
	CarryToDeliver              // item in hand, walking to the far end
)

// String returns a human-readable carry state.
func (c Carry) String() string {
	switch c {
	case CarryNone:
		return "none"
	case CarryToPickup:
		return "to_pickup"
	case CarryToDeliver:
		return "to_deliver"
	default:
		return "unknown"
	}
}

// Worker ferries one item at a time between the two ends of its road.
//
// current is authoritative: the worker owns occupancy[current] from the tick
// it commits to a step, while walkFrom/walkTo/progress only animate the walk.
//
// booked is the flag holding a slot for the item the worker will drop there.
// trade is the item an exchange picks up at the far end once item is dropped.
type Worker struct {
	ID WorkerID

	road     *Road
	current  int
	goal     int
	walkFrom int
	walkTo   int
	progress float64
	transit  bool
	item     *Item
	trade    *Item
	booked   *Flag
	carry    Carry
	wished   int
	lastStep uint64
}

func newWorker(id WorkerID) *Worker {
	return &Worker{ID: id, wished: NoWish}
}

// Road returns the road the worker belongs to, or nil once retired.
func (w *Worker) Road() *Road { return w.road }

// Current returns the waypoint index the worker occupies.
func (w *Worker) Current() int { return w.current }

// Goal returns the waypoint index the worker is heading for.
func (w *Worker) Goal() int { return w.goal }

// Wished returns the waypoint the worker is waiting to enter, or NoWish.
func (w *Worker) Wished() int { return w.wished }

// Item returns the claimed or carried item, or nil.
func (w *Worker) Item() *Item { return w.item }

// Trade returns the item an exchange will pick up at the drop flag, or nil.
func (w *Worker) Trade() *Item { return w.trade }

// Carry returns the hauling phase.
func (w *Worker) Carry() Carry { return w.carry }

// InTransit reports whether the worker is walking between two waypoints.
func (w *Worker) InTransit() bool { return w.transit }

// Progress returns the walk fraction towards walkTo.
func (w *Worker) Progress() float64 { return w.progress }

// AtRest reports whether the worker stands on a waypoint.
func (w *Worker) AtRest() bool { return !w.transit }

// Position interpolates the worker's world position for rendering.
func (w *Worker) Position(g *world.Grid) world.Vec3 {
	if w.road == nil {
		return world.Vec3{}
	}
	if !w.transit {
		return g.Position(w.road.Nodes[w.current])
	}
	from := g.Position(w.road.Nodes[w.walkFrom])
	to := g.Position(w.road.Nodes[w.walkTo])
	return world.Lerp(from, to, w.progress)
}

// wishedNode returns the grid node the worker is waiting to enter.
func (w *Worker) wishedNode() world.NodeID {
	if w.road == nil || w.wished == NoWish {
		return world.NoNode
	}
	return w.road.Nodes[w.wished]
}

// step runs one tick of the state machine.
func (w *Worker) step(ts *tickState) error {
	if w.road == nil || w.lastStep == ts.step {
		return nil
	}
	w.lastStep = ts.step

	switch {
	case w.transit:
		w.advance(ts.speed)
		return nil
	case w.current == w.goal:
		return w.findGoal(ts)
	default:
		return w.nextStep(ts)
	}
}

// advance moves the walk forward. The overshoot past 1 carries over into the
// next walk.
func (w *Worker) advance(speed float64) {
	w.progress += speed
	if w.progress < 1 {
		return
	}
	w.progress -= 1
	w.transit = false
	w.walkFrom = w.current
	w.walkTo = w.current
}

// findGoal decides what to do on reaching the goal waypoint. A worker that
// is not about to pick up where it stands gives up its flag reservation, so
// a worker parked or done on a flag never blocks the other roads.
func (w *Worker) findGoal(ts *tickState) error {
	err := w.decide(ts)
	if r := w.road; r != nil && (w.carry != CarryToPickup || w.goal != w.current) {
		if f := r.flagAt(w.current); f != nil {
			f.Free(w)
		}
	}
	return err
}

func (w *Worker) decide(ts *tickState) error {
	r := w.road
	switch w.carry {
	case CarryToPickup:
		return w.pickup(ts)
	case CarryToDeliver:
		return w.drop(ts)
	}

	if w.claimWork(ts) || w.claimExchange(ts) {
		return nil
	}
	if len(r.roster) > 1 {
		return w.retire(ts)
	}
	w.goal = r.Midpoint()
	return nil
}

func (w *Worker) pickup(ts *tickState) error {
	r := w.road
	f := r.flagAt(w.current)
	if f == nil || w.item == nil {
		return invariant("pickup", "worker %d at point %d of road %d holds no pickup target", w.ID, w.current, r.ID)
	}
	if err := f.Release(w.item); err != nil {
		return err
	}
	w.carry = CarryToDeliver
	w.goal = r.EndIndex(1 - r.endAt(w.current))
	ts.emit(Event{Kind: EventPickup, Road: r.ID, Worker: w.ID, Item: w.item.ID, Flag: f.ID, Point: w.current})
	return nil
}

func (w *Worker) drop(ts *tickState) error {
	r := w.road
	f := r.flagAt(w.current)
	it := w.item
	if f == nil || it == nil {
		return invariant("drop", "worker %d at point %d of road %d has nothing to drop", w.ID, w.current, r.ID)
	}
	if w.trade != nil {
		return w.exchange(ts, f)
	}

	slot, ok := f.Store(it)
	switch {
	case ok:
	case it.Remaining() == 1:
		// Delivered items leave at once and need no slot.
		slot = -1
	default:
		return invariant("drop", "worker %d at flag %d with item %d: %w", w.ID, f.ID, it.ID, ErrFlagFull)
	}
	w.unbook()
	w.item = nil
	w.carry = CarryNone
	return w.deposit(ts, f, it, slot)
}

// exchange swaps the carried item for the claimed one waiting on f. The
// carried item takes the freed slot.
func (w *Worker) exchange(ts *tickState, f *Flag) error {
	r := w.road
	it, next := w.item, w.trade
	if next.carrier != w {
		return invariant("exchange", "worker %d lost item %d", w.ID, next.ID)
	}
	if err := f.Release(next); err != nil {
		return err
	}
	slot, ok := f.Store(it)
	if !ok {
		return invariant("exchange", "worker %d at flag %d with item %d: %w", w.ID, f.ID, it.ID, ErrFlagFull)
	}
	if err := w.deposit(ts, f, it, slot); err != nil {
		return err
	}
	w.item = next
	w.trade = nil
	w.goal = r.EndIndex(1 - r.endAt(w.current))
	ts.emit(Event{Kind: EventPickup, Road: r.ID, Worker: w.ID, Item: next.ID, Flag: f.ID, Point: w.current})
	return nil
}

// deposit hands it over to f and delivers it when its route is complete. A
// slot of -1 means the item never entered the flag.
func (w *Worker) deposit(ts *tickState, f *Flag, it *Item, slot int) error {
	r := w.road
	it.Progress++
	it.carrier = nil
	ts.emit(Event{Kind: EventDeposit, Road: r.ID, Worker: w.ID, Item: it.ID, Flag: f.ID, Slot: slot, Point: w.current})

	if it.Progress < len(it.Route) {
		return nil
	}
	if slot >= 0 {
		if err := f.Release(it); err != nil {
			return err
		}
	}
	it.Delivered = true
	ts.emit(Event{Kind: EventDeliver, Road: r.ID, Worker: w.ID, Item: it.ID, Flag: f.ID, Slot: slot, Point: w.current})
	ts.net.deliver(it)
	return nil
}

// claimWork looks for an unclaimed item waiting for this road, end 0 first.
// An item that continues past the far flag is only taken while that flag has
// room, and the worker books the slot.
func (w *Worker) claimWork(ts *tickState) bool {
	r := w.road
	for end := 0; end < 2; end++ {
		f, far := r.Ends[end], r.Ends[1-end]
		for _, it := range f.Waiting(r) {
			if it.carrier != nil {
				continue
			}
			if it.Remaining() > 1 {
				if far.Room() <= 0 {
					continue
				}
				w.book(far)
			}
			w.claim(ts, it, end)
			return true
		}
	}
	return false
}

// claimExchange pairs an item waiting at one end with one waiting at the
// other when neither end has room. The worker carries the first across, drops
// it into the slot the second leaves and carries the second back.
func (w *Worker) claimExchange(ts *tickState) bool {
	r := w.road
	for end := 0; end < 2; end++ {
		it := unclaimed(r.Ends[end].Waiting(r))
		back := unclaimed(r.Ends[1-end].Waiting(r))
		if it == nil || back == nil {
			continue
		}
		if back.Remaining() > 1 {
			w.book(r.Ends[end])
		}
		back.carrier = w
		w.trade = back
		w.claim(ts, it, end)
		return true
	}
	return false
}

func unclaimed(items []*Item) *Item {
	for _, it := range items {
		if it.carrier == nil {
			return it
		}
	}
	return nil
}

func (w *Worker) claim(ts *tickState, it *Item, end int) {
	r := w.road
	it.carrier = w
	w.item = it
	w.carry = CarryToPickup
	w.goal = r.EndIndex(end)
	ts.emit(Event{Kind: EventClaim, Road: r.ID, Worker: w.ID, Item: it.ID, Flag: r.Ends[end].ID, Point: w.current})
}

func (w *Worker) book(f *Flag) {
	f.incoming++
	w.booked = f
}

func (w *Worker) unbook() {
	if w.booked != nil {
		w.booked.incoming--
		w.booked = nil
	}
}

// retire removes an idle worker from its road.
func (w *Worker) retire(ts *tickState) error {
	r := w.road
	point := w.current
	if err := r.Detach(w); err != nil {
		return err
	}
	ts.emit(Event{Kind: EventRetire, Road: r.ID, Worker: w.ID, Point: point})
	return nil
}
