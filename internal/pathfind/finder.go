// Package pathfind computes routes over the hex grid or over the road network
// with A*. Every call runs its own search session; nothing is cached on the
// grid between searches.
package pathfind

import (
	"container/heap"
	"fmt"

	"github.com/talgya/roadworks/internal/world"
)

// Edge is a road leaving the flag at some node.
type Edge struct {
	Road int          // Road identifier reported back in Result.Roads
	To   world.NodeID // Flag node at the far end
	Cost float64      // Traversal cost, at least the hex distance covered
}

// RoadGraph exposes flags and their incident roads to OnRoad searches.
type RoadGraph interface {
	IsFlag(node world.NodeID) bool
	Edges(node world.NodeID) []Edge
}

// Result is the outcome of one search. Found is false when the frontier was
// exhausted without reaching the target; that is not an error.
type Result struct {
	Found    bool           `json:"found"`
	Mode     Mode           `json:"-"`
	Nodes    []world.NodeID `json:"nodes,omitempty"` // start..end inclusive
	Roads    []int          `json:"roads,omitempty"` // OnRoad only, in travel order
	Cost     float64        `json:"cost"`            // g of the target
	Expanded int            `json:"expanded"`        // nodes popped from the frontier
}

// Steps returns the number of moves along the path.
func (r Result) Steps() int {
	if len(r.Nodes) == 0 {
		return 0
	}
	return len(r.Nodes) - 1
}

// Finder runs searches against a grid and, for OnRoad, a road graph.
type Finder struct {
	grid  *world.Grid
	roads RoadGraph
}

// New returns a Finder. roads may be nil when only terrain modes are used.
func New(grid *world.Grid, roads RoadGraph) *Finder {
	return &Finder{grid: grid, roads: roads}
}

// FindPath searches from start to end under the given mode.
func (f *Finder) FindPath(start, end world.NodeID, mode Mode) (Result, error) {
	if !f.grid.Valid(start) {
		return Result{}, fmt.Errorf("start %d: %w", start, world.ErrUnknownNode)
	}
	if !f.grid.Valid(end) {
		return Result{}, fmt.Errorf("end %d: %w", end, world.ErrUnknownNode)
	}
	switch mode {
	case AvoidRoads, AvoidObjects:
	case OnRoad:
		if f.roads == nil {
			return Result{}, ErrNoRoadGraph
		}
		if !f.roads.IsFlag(start) {
			return Result{}, fmt.Errorf("start %d: %w", start, ErrNotFlag)
		}
		if !f.roads.IsFlag(end) {
			return Result{}, fmt.Errorf("end %d: %w", end, ErrNotFlag)
		}
	default:
		return Result{}, fmt.Errorf("mode %d: %w", mode, ErrUnknownMode)
	}

	s := &session{
		grid:    f.grid,
		roads:   f.roads,
		mode:    mode,
		target:  end,
		records: make(map[world.NodeID]*record),
	}
	return s.run(start), nil
}

// session is the transient state of a single search.
type session struct {
	grid    *world.Grid
	roads   RoadGraph
	mode    Mode
	target  world.NodeID
	records map[world.NodeID]*record
	open    frontier
	seq     int
}

func (s *session) run(start world.NodeID) Result {
	s.visit(nil, start, 0, -1)
	expanded := 0

	for s.open.Len() > 0 {
		cur := heap.Pop(&s.open).(*record)
		cur.done = true
		expanded++

		if cur.node == s.target {
			res := s.reconstruct(cur)
			res.Expanded = expanded
			return res
		}

		if s.mode == OnRoad {
			for _, e := range s.roads.Edges(cur.node) {
				s.visit(cur, e.To, cur.g+e.Cost, e.Road)
			}
			continue
		}

		for _, nb := range s.grid.Neighbors(cur.node) {
			if nb == world.NoNode {
				continue
			}
			if nb != s.target && !s.mode.passable(s.grid.Occupant(nb)) {
				continue
			}
			s.visit(cur, nb, cur.g+1, -1)
		}
	}

	return Result{Found: false, Mode: s.mode, Expanded: expanded}
}

// visit inserts a node into the frontier or relaxes it when reached cheaper.
func (s *session) visit(prev *record, node world.NodeID, g float64, via int) {
	h := float64(s.grid.Distance(node, s.target))
	r, seen := s.records[node]
	if !seen {
		r = &record{node: node, g: g, f: g + h, prev: prev, via: via, seq: s.seq}
		s.seq++
		s.records[node] = r
		heap.Push(&s.open, r)
		return
	}
	if r.done || g >= r.g {
		return
	}
	s.open.relax(r, g, g+h, prev, via)
}

func (s *session) reconstruct(end *record) Result {
	var nodes []world.NodeID
	var roads []int
	for r := end; r != nil; r = r.prev {
		nodes = append(nodes, r.node)
		if r.prev != nil && r.via >= 0 {
			roads = append(roads, r.via)
		}
	}
	reverse(nodes)
	reverse(roads)
	return Result{
		Found: true,
		Mode:  s.mode,
		Nodes: nodes,
		Roads: roads,
		Cost:  end.g,
	}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
