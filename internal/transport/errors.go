package transport

import (
	"errors"
	"fmt"
)

// Configuration errors. Callers are expected to avoid these.
var (
	ErrRoadTooShort      = errors.New("road needs at least two waypoints")
	ErrRoadLoop          = errors.New("road ends on the flag it starts from")
	ErrNotAdjacent       = errors.New("waypoints are not adjacent")
	ErrNoFlag            = errors.New("road endpoint has no flag")
	ErrRoadFull          = errors.New("every waypoint of the road is occupied")
	ErrWaypointOccupied  = errors.New("waypoint already occupied")
	ErrPointOutOfRange   = errors.New("waypoint index out of range")
	ErrAlreadyAttached   = errors.New("worker already belongs to a road")
	ErrNotAttached       = errors.New("worker does not belong to this road")
	ErrInTransit         = errors.New("worker is between waypoints")
	ErrWorkerBusy        = errors.New("worker is carrying an item")
	ErrRoadBusy          = errors.New("road still has workers")
	ErrUnknownRoad       = errors.New("unknown road")
	ErrFlagFull          = errors.New("flag has no free slot")
	ErrSameFlag          = errors.New("item already at its destination flag")
	ErrNoRoute           = errors.New("no route between flags")
	ErrItemNotOnFlag     = errors.New("item is not on the flag")
	ErrWishNotAdjacent   = errors.New("wished waypoint is not adjacent to the current one")
	ErrOccupancyMismatch = errors.New("occupancy does not match worker position")
)

// InvariantError reports a broken internal invariant. It signals a bug, not a
// recoverable condition; the tick that hits one must stop.
type InvariantError struct {
	Op  string
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %v", e.Op, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(op string, format string, args ...any) error {
	return &InvariantError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsInvariant reports whether err carries an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
