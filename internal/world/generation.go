// Terrain height generation using layered simplex noise.
// Stands in for the map generator that normally hands the grid over.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Radius    int     // Hex grid radius
	Seed      int64   // Random seed (0 = random)
	Roughness float64 // Octave persistence (0.0–1.0)
	MaxHeight float64 // Peak elevation in world units
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:    16,
		Seed:      0,
		Roughness: 0.5,
		MaxHeight: 4.0,
	}
}

// SmallTestConfig returns a tiny flat-ish grid for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:    5,
		Seed:      42,
		Roughness: 0.4,
		MaxHeight: 1.0,
	}
}

// Generate creates a grid with elevation on every node.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	elevNoise := opensimplex.NewNormalized(seed)

	g := NewGrid(cfg.Radius)
	for i := range g.nodes {
		x, y := g.nodes[i].Coord.Cartesian()
		elev := octaveNoise(elevNoise, x, y, 4, 0.08, cfg.Roughness)

		// Flatten towards the rim so the map edge reads as lowland.
		if cfg.Radius > 0 {
			dist := math.Sqrt(x*x+y*y) / float64(cfg.Radius)
			falloff := 1.0 - math.Pow(dist, 3.5)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff
		}
		g.nodes[i].Height = elev * cfg.MaxHeight
	}
	return g
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
