package transport

// nextStep tries to move the worker one waypoint towards its goal.
//
// The worker first records the waypoint it wants. A move into a flag is
// refused while the flag is reserved by a worker that does not want the
// waypoint we stand on. A move into an occupied waypoint succeeds only as a
// swap with an occupant that wants our waypoint; otherwise the worker yields
// and its wish lets the occupant resolve the swap on its own turn.
func (w *Worker) nextStep(ts *tickState) error {
	r := w.road
	c := w.current
	n := c + 1
	if w.goal < c {
		n = c - 1
	}
	w.wished = n
	cNode := r.Nodes[c]

	if f := r.flagAt(n); f != nil {
		if u := f.user; u != nil && u != w && u.wishedNode() != cNode {
			ts.emit(Event{Kind: EventBlocked, Road: r.ID, Worker: w.ID, Other: u.ID, Flag: f.ID, Point: c, Reason: "flag reserved"})
			return nil
		}
		f.user = w
	}

	if b := r.occupancy[n]; b != nil {
		if b.wished == c {
			return r.swap(w, b, ts)
		}
		ts.emit(Event{Kind: EventBlocked, Road: r.ID, Worker: w.ID, Other: b.ID, Point: c, Reason: "waypoint occupied"})
		return nil
	}

	r.occupancy[c] = nil
	r.occupancy[n] = w
	if f := r.flagAt(c); f != nil {
		f.Free(w)
	}
	w.beginWalk(c, n)
	return nil
}

// beginWalk commits the worker to waypoint to and starts the walk animation.
func (w *Worker) beginWalk(from, to int) {
	w.current = to
	w.walkFrom = from
	w.walkTo = to
	w.transit = true
	w.wished = NoWish
}

// swap exchanges the waypoints of w and b in one step. b wants w's waypoint
// and w wants b's; both start walking and b counts as having acted this tick.
func (r *Road) swap(w, b *Worker, ts *tickState) error {
	c, n := w.current, b.current
	if b.road != r || r.occupancy[n] != b || r.occupancy[c] != w {
		return invariant("swap", "workers %d and %d on road %d: %w", w.ID, b.ID, r.ID, ErrOccupancyMismatch)
	}
	if d := b.wished - n; d != 1 && d != -1 {
		return invariant("swap", "worker %d at point %d wishes %d: %w", b.ID, n, b.wished, ErrWishNotAdjacent)
	}
	if b.transit {
		return invariant("swap", "worker %d wishes while walking: %w", b.ID, ErrInTransit)
	}

	// b walks into c; a third worker's reservation there keeps b out.
	fc := r.flagAt(c)
	if fc != nil && fc.user != nil && fc.user != w && fc.user != b {
		ts.emit(Event{Kind: EventBlocked, Road: r.ID, Worker: w.ID, Other: b.ID, Flag: fc.ID, Point: c, Reason: "swap target reserved"})
		return nil
	}

	r.occupancy[c] = b
	r.occupancy[n] = w
	if fn := r.flagAt(n); fn != nil {
		fn.user = w
	}
	if fc != nil {
		fc.user = b
	}
	w.beginWalk(c, n)
	b.beginWalk(n, c)
	b.lastStep = ts.step

	ts.emit(Event{Kind: EventSwap, Road: r.ID, Worker: w.ID, Other: b.ID, Point: c})
	return nil
}
