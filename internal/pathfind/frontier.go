package pathfind

import (
	"container/heap"

	"github.com/talgya/roadworks/internal/world"
)

// record is the per-session search state of one node.
type record struct {
	node  world.NodeID
	g     float64
	f     float64
	prev  *record
	via   int // road taken from prev, -1 on terrain
	seq   int // frontier insertion order
	index int // heap slot, -1 once popped
	done  bool
}

// frontier is a min-heap on f. Equal f pops in insertion order, which is the
// order a linear scan over the open list would have picked.
type frontier []*record

func (q frontier) Len() int { return len(q) }

func (q frontier) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}

func (q frontier) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *frontier) Push(x any) {
	r := x.(*record)
	r.index = len(*q)
	*q = append(*q, r)
}

func (q *frontier) Pop() any {
	old := *q
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*q = old[:n-1]
	return r
}

// relax lowers the cost of a queued record in place. Its insertion order is
// kept.
func (q *frontier) relax(r *record, g, f float64, prev *record, via int) {
	r.g = g
	r.f = f
	r.prev = prev
	r.via = via
	heap.Fix(q, r.index)
}
