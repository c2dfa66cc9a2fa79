package world

import (
	"errors"
	"fmt"
)

// NodeID indexes a node in a Grid's arena.
type NodeID int

// NoNode marks a missing neighbour or an unset node reference.
const NoNode NodeID = -1

// Occupant tags what sits on a node. A node holds at most one.
type Occupant uint8

const (
	OccupantNone     Occupant = iota // Open terrain
	OccupantBuilding                 // Construction site or finished building
	OccupantFlag                     // Road junction buffer
	OccupantRoad                     // Interior waypoint of a road
)

// String returns a human-readable occupant name.
func (o Occupant) String() string {
	switch o {
	case OccupantNone:
		return "none"
	case OccupantBuilding:
		return "building"
	case OccupantFlag:
		return "flag"
	case OccupantRoad:
		return "road"
	default:
		return "unknown"
	}
}

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrOccupied    = errors.New("node already occupied")
)

// Node is a single grid cell. Neighbour links are indices into the owning
// Grid, never pointers.
type Node struct {
	ID        NodeID                 `json:"id"`
	Coord     HexCoord               `json:"coord"`
	Neighbors [DirectionCount]NodeID `json:"neighbors"`
	Occupant  Occupant               `json:"occupant"`
	Height    float64                `json:"height"`
}

// Grid owns every node of a hexagonal map. A grid of radius R contains the
// hexes where max(|q|, |r|, |s|) <= R.
type Grid struct {
	nodes  []Node
	index  map[HexCoord]NodeID
	Radius int `json:"radius"`
}

// NewGrid builds a hexagon of the given radius with symmetric neighbour links.
// Node IDs are assigned in (q, r) row-major order so they are stable for a
// given radius.
func NewGrid(radius int) *Grid {
	g := &Grid{
		index:  make(map[HexCoord]NodeID),
		Radius: radius,
	}
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := HexCoord{Q: q, R: r}
			if c.Ring() > radius {
				continue
			}
			id := NodeID(len(g.nodes))
			g.nodes = append(g.nodes, Node{ID: id, Coord: c})
			g.index[c] = id
		}
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		for d, nc := range n.Coord.Neighbors() {
			if id, ok := g.index[nc]; ok {
				n.Neighbors[d] = id
			} else {
				n.Neighbors[d] = NoNode
			}
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Grid) Len() int {
	return len(g.nodes)
}

// Valid reports whether id names a node of this grid.
func (g *Grid) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns a copy of the node, or false for an unknown id.
func (g *Grid) Node(id NodeID) (Node, bool) {
	if !g.Valid(id) {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Lookup finds the node at the given coordinate.
func (g *Grid) Lookup(c HexCoord) (NodeID, bool) {
	id, ok := g.index[c]
	return id, ok
}

// Coord returns the axial coordinate of a node.
func (g *Grid) Coord(id NodeID) HexCoord {
	return g.nodes[id].Coord
}

// Neighbor returns the node in direction d, or NoNode at the map edge.
func (g *Grid) Neighbor(id NodeID, d Direction) NodeID {
	return g.nodes[id].Neighbors[d]
}

// Neighbors returns the six neighbour slots of a node in direction order.
func (g *Grid) Neighbors(id NodeID) [DirectionCount]NodeID {
	return g.nodes[id].Neighbors
}

// Distance returns the hex distance between two nodes.
func (g *Grid) Distance(a, b NodeID) int {
	return Distance(g.nodes[a].Coord, g.nodes[b].Coord)
}

// Adjacent reports whether a and b share an edge.
func (g *Grid) Adjacent(a, b NodeID) bool {
	for _, n := range g.nodes[a].Neighbors {
		if n == b {
			return true
		}
	}
	return false
}

// Occupant returns what currently sits on the node.
func (g *Grid) Occupant(id NodeID) Occupant {
	return g.nodes[id].Occupant
}

// SetOccupant places an occupant on a free node.
func (g *Grid) SetOccupant(id NodeID, o Occupant) error {
	if !g.Valid(id) {
		return fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	n := &g.nodes[id]
	if n.Occupant != OccupantNone && n.Occupant != o {
		return fmt.Errorf("node %d holds %s: %w", id, n.Occupant, ErrOccupied)
	}
	n.Occupant = o
	return nil
}

// ClearOccupant frees the node.
func (g *Grid) ClearOccupant(id NodeID) {
	if g.Valid(id) {
		g.nodes[id].Occupant = OccupantNone
	}
}

// Height returns the terrain elevation of a node.
func (g *Grid) Height(id NodeID) float64 {
	return g.nodes[id].Height
}

// SetHeight sets the terrain elevation of a node.
func (g *Grid) SetHeight(id NodeID, h float64) {
	g.nodes[id].Height = h
}

// Position returns the continuous world position of a node, height on Z.
func (g *Grid) Position(id NodeID) Vec3 {
	n := &g.nodes[id]
	x, y := n.Coord.Cartesian()
	return Vec3{X: x, Y: y, Z: n.Height}
}

// OccupantCounts returns a summary of occupant distribution.
func (g *Grid) OccupantCounts() map[Occupant]int {
	counts := make(map[Occupant]int)
	for i := range g.nodes {
		counts[g.nodes[i].Occupant]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(radius=%d, nodes=%d)", g.Radius, g.Len())
}
