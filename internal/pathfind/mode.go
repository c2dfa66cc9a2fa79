package pathfind

import (
	"errors"
	"fmt"

	"github.com/talgya/roadworks/internal/world"
)

// Mode selects the traversal policy of a search.
type Mode uint8

const (
	AvoidRoads   Mode = iota // Terrain walk that skips road and building nodes
	AvoidObjects             // Terrain walk that skips building nodes only
	OnRoad                   // Road-graph walk between flags
)

var (
	ErrNotFlag     = errors.New("on-road search endpoint is not a flag")
	ErrNoRoadGraph = errors.New("on-road search needs a road graph")
	ErrUnknownMode = errors.New("unknown search mode")
)

// String returns the mode name used in logs, metrics and the API.
func (m Mode) String() string {
	switch m {
	case AvoidRoads:
		return "avoid_roads"
	case AvoidObjects:
		return "avoid_objects"
	case OnRoad:
		return "on_road"
	default:
		return "unknown"
	}
}

// ParseMode turns a mode name back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "avoid_roads":
		return AvoidRoads, nil
	case "avoid_objects":
		return AvoidObjects, nil
	case "on_road":
		return OnRoad, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownMode)
}

// passable applies the terrain filter of a mode to an occupant.
func (m Mode) passable(o world.Occupant) bool {
	switch m {
	case AvoidRoads:
		return o != world.OccupantRoad && o != world.OccupantBuilding
	case AvoidObjects:
		return o != world.OccupantBuilding
	}
	return true
}
