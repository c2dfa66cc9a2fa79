// Package scenario reads road layouts from yaml and lays them out on a
// transport network.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/talgya/roadworks/internal/transport"
	"github.com/talgya/roadworks/internal/world"
)

var (
	ErrOffGrid     = errors.New("coordinate is off the grid")
	ErrBadRoad     = errors.New("road needs either a path or from and to")
	ErrNoRoadAtHex = errors.New("no road runs through the coordinate")
)

// Scenario is a network layout: flags, buildings, roads, workers and the
// items to dispatch once everything is built.
type Scenario struct {
	Name      string           `yaml:"name" validate:"required"`
	World     *WorldSpec       `yaml:"world,omitempty"`
	Flags     []world.HexCoord `yaml:"flags"`
	Buildings []world.HexCoord `yaml:"buildings"`
	Roads     []RoadSpec       `yaml:"roads" validate:"dive"`
	Workers   []WorkerSpec     `yaml:"workers" validate:"dive"`
	Items     []ItemSpec       `yaml:"items" validate:"dive"`
}

// WorldSpec overrides the configured grid for this scenario.
type WorldSpec struct {
	Radius int   `yaml:"radius" validate:"min=1,max=256"`
	Seed   int64 `yaml:"seed"`
}

// RoadSpec is either an explicit path of adjacent hexes or a pair of flags
// the road planner connects.
type RoadSpec struct {
	Path []world.HexCoord `yaml:"path,omitempty"`
	From *world.HexCoord  `yaml:"from,omitempty"`
	To   *world.HexCoord  `yaml:"to,omitempty"`
}

// WorkerSpec places a worker on the interior hex of a road.
type WorkerSpec struct {
	At world.HexCoord `yaml:"at"`
}

// ItemSpec dispatches Count items between two flags.
type ItemSpec struct {
	From     world.HexCoord  `yaml:"from"`
	To       world.HexCoord  `yaml:"to"`
	Building *world.HexCoord `yaml:"building,omitempty"`
	Count    int             `yaml:"count" validate:"min=0,max=64"`
}

// Summary counts what Apply built.
type Summary struct {
	Flags   int
	Roads   int
	Workers int
	Items   int
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document.
func Parse(b []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks field constraints and road shapes.
func (sc *Scenario) Validate() error {
	if err := validator.New().Struct(sc); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid scenario: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	for i, r := range sc.Roads {
		hasPath := len(r.Path) > 0
		hasEnds := r.From != nil && r.To != nil
		if hasPath == hasEnds || (hasPath && len(r.Path) < 2) {
			return fmt.Errorf("road %d: %w", i, ErrBadRoad)
		}
	}
	return nil
}

// Apply builds the scenario on n. Road endpoints get flags when they have
// none. Items are dispatched last so routes see every road.
func (sc *Scenario) Apply(n *transport.Network) (Summary, error) {
	var sum Summary
	g := n.Grid()

	node := func(c world.HexCoord) (world.NodeID, error) {
		id, ok := g.Lookup(c)
		if !ok {
			return world.NoNode, fmt.Errorf("(%d,%d): %w", c.Q, c.R, ErrOffGrid)
		}
		return id, nil
	}
	flag := func(c world.HexCoord) (*transport.Flag, error) {
		id, err := node(c)
		if err != nil {
			return nil, err
		}
		if f := n.FlagAt(id); f != nil {
			return f, nil
		}
		f, err := n.PlaceFlag(id)
		if err != nil {
			return nil, err
		}
		sum.Flags++
		return f, nil
	}

	for _, c := range sc.Flags {
		if _, err := flag(c); err != nil {
			return sum, fmt.Errorf("flag: %w", err)
		}
	}
	for _, c := range sc.Buildings {
		id, err := node(c)
		if err != nil {
			return sum, fmt.Errorf("building: %w", err)
		}
		if err := n.PlaceBuilding(id); err != nil {
			return sum, err
		}
	}

	for i, r := range sc.Roads {
		if len(r.Path) > 0 {
			nodes := make([]world.NodeID, 0, len(r.Path))
			for _, c := range r.Path {
				id, err := node(c)
				if err != nil {
					return sum, fmt.Errorf("road %d: %w", i, err)
				}
				nodes = append(nodes, id)
			}
			if _, err := flag(r.Path[0]); err != nil {
				return sum, fmt.Errorf("road %d: %w", i, err)
			}
			if _, err := flag(r.Path[len(r.Path)-1]); err != nil {
				return sum, fmt.Errorf("road %d: %w", i, err)
			}
			if _, err := n.BuildRoad(nodes); err != nil {
				return sum, fmt.Errorf("road %d: %w", i, err)
			}
			sum.Roads++
			continue
		}

		from, err := flag(*r.From)
		if err != nil {
			return sum, fmt.Errorf("road %d: %w", i, err)
		}
		to, err := flag(*r.To)
		if err != nil {
			return sum, fmt.Errorf("road %d: %w", i, err)
		}
		built, err := n.PlanRoad(from, to)
		sum.Roads += len(built)
		if err != nil {
			return sum, fmt.Errorf("road %d: %w", i, err)
		}
	}

	for i, w := range sc.Workers {
		id, err := node(w.At)
		if err != nil {
			return sum, fmt.Errorf("worker %d: %w", i, err)
		}
		r, point := roadThrough(n, id)
		if r == nil {
			return sum, fmt.Errorf("worker %d at (%d,%d): %w", i, w.At.Q, w.At.R, ErrNoRoadAtHex)
		}
		if _, err := n.Spawn(r, point); err != nil {
			return sum, fmt.Errorf("worker %d: %w", i, err)
		}
		sum.Workers++
	}

	for i, it := range sc.Items {
		from, err := flag(it.From)
		if err != nil {
			return sum, fmt.Errorf("item %d: %w", i, err)
		}
		to, err := flag(it.To)
		if err != nil {
			return sum, fmt.Errorf("item %d: %w", i, err)
		}
		dest := world.NoNode
		if it.Building != nil {
			if dest, err = node(*it.Building); err != nil {
				return sum, fmt.Errorf("item %d: %w", i, err)
			}
		}
		count := max(it.Count, 1)
		for k := 0; k < count; k++ {
			if _, err := n.Dispatch(from, dest, to); err != nil {
				return sum, fmt.Errorf("item %d: %w", i, err)
			}
			sum.Items++
		}
	}
	return sum, nil
}

// roadThrough finds the road with id as an interior waypoint, or the first
// road ending at it.
func roadThrough(n *transport.Network, id world.NodeID) (*transport.Road, int) {
	var end *transport.Road
	endPoint := -1
	for _, r := range n.Roads() {
		i := r.NodeIndex(id)
		switch {
		case i < 0:
		case i > 0 && i < r.Len()-1:
			return r, i
		case end == nil:
			end, endPoint = r, i
		}
	}
	return end, endPoint
}
