package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridSize(t *testing.T) {
	// A hexagon of radius R has 3R(R+1)+1 cells.
	for _, radius := range []int{0, 1, 2, 5} {
		g := NewGrid(radius)
		assert.Equal(t, 3*radius*(radius+1)+1, g.Len(), "radius %d", radius)
	}
}

func TestNeighborLinksAreSymmetric(t *testing.T) {
	g := NewGrid(4)
	for id := NodeID(0); int(id) < g.Len(); id++ {
		for d := Direction(0); d < DirectionCount; d++ {
			nb := g.Neighbor(id, d)
			if nb == NoNode {
				continue
			}
			assert.Equal(t, id, g.Neighbor(nb, d.Opposite()), "node %d dir %d", id, d)
			assert.Equal(t, 1, g.Distance(id, nb))
		}
	}
}

func TestEdgeNodesHaveMissingNeighbors(t *testing.T) {
	g := NewGrid(2)
	id, ok := g.Lookup(HexCoord{Q: 2, R: 0})
	require.True(t, ok)

	missing := 0
	for _, nb := range g.Neighbors(id) {
		if nb == NoNode {
			missing++
		}
	}
	assert.Equal(t, 3, missing)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b HexCoord
		want int
	}{
		{HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{HexCoord{0, 0}, HexCoord{3, 0}, 3},
		{HexCoord{0, 0}, HexCoord{1, 1}, 2},
		{HexCoord{-2, 1}, HexCoord{2, -1}, 4},
		{HexCoord{1, -3}, HexCoord{-1, 2}, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "%v-%v", tt.a, tt.b)
		assert.Equal(t, tt.want, Distance(tt.b, tt.a), "%v-%v", tt.b, tt.a)
	}
}

func TestSetOccupantRejectsSecondOccupant(t *testing.T) {
	g := NewGrid(1)
	id, _ := g.Lookup(HexCoord{})

	require.NoError(t, g.SetOccupant(id, OccupantFlag))
	require.NoError(t, g.SetOccupant(id, OccupantFlag))
	assert.ErrorIs(t, g.SetOccupant(id, OccupantBuilding), ErrOccupied)
	assert.Equal(t, OccupantFlag, g.Occupant(id))

	g.ClearOccupant(id)
	assert.NoError(t, g.SetOccupant(id, OccupantBuilding))
	assert.ErrorIs(t, g.SetOccupant(NodeID(999), OccupantRoad), ErrUnknownNode)
}

func TestPositionUsesHeight(t *testing.T) {
	g := NewGrid(1)
	id, _ := g.Lookup(HexCoord{Q: 0, R: 1})
	g.SetHeight(id, 2.5)

	p := g.Position(id)
	assert.InDelta(t, 0.5, p.X, 1e-9)
	assert.InDelta(t, 0.8660254, p.Y, 1e-6)
	assert.Equal(t, 2.5, p.Z)
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	require.Equal(t, a.Len(), b.Len())
	for id := NodeID(0); int(id) < a.Len(); id++ {
		assert.Equal(t, a.Height(id), b.Height(id))
		assert.LessOrEqual(t, a.Height(id), cfg.MaxHeight)
	}
}
