// Package world provides the hex grid that roads, flags and buildings sit on.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns h shifted by d.
func (h HexCoord) Add(d HexCoord) HexCoord {
	return HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
}

// Direction indexes HexNeighborDirections.
type Direction int

// DirectionCount is the number of neighbours a hex has.
const DirectionCount = 6

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
// Opposite directions are three apart.
var HexNeighborDirections = [DirectionCount]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Opposite returns the direction pointing back along d.
func (d Direction) Opposite() Direction {
	return (d + 3) % DirectionCount
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [DirectionCount]HexCoord {
	var result [DirectionCount]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = h.Add(dir)
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

// Ring returns the hex radius of h measured from the origin.
func (h HexCoord) Ring() int {
	return Distance(h, HexCoord{})
}

// Vec3 is a continuous world position handed to the presentation layer.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Lerp interpolates between a and b by t in [0,1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// Cartesian converts axial coords to continuous plane space.
// x = q + r*0.5, y = r * sqrt(3)/2
func (h HexCoord) Cartesian() (float64, float64) {
	x := float64(h.Q) + float64(h.R)*0.5
	y := float64(h.R) * math.Sqrt(3.0) / 2.0
	return x, y
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
