package model

// Orientation describes how a vehicle travels along a path.
type Orientation int

const (
	OrientationForward Orientation = iota
	OrientationBackward
)

func (o Orientation) String() string {
	if o == OrientationBackward {
		return "BACKWARD"
	}
	return "FORWARD"
}

// MarshalText encodes the orientation by name.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Step is one traversal of a path.
type Step struct {
	Path        Path        `json:"path"`
	Source      Point       `json:"source"`
	Destination Point       `json:"destination"`
	Orientation Orientation `json:"orientation"`
	Index       int         `json:"index"`
}

// Route is an ordered, costed sequence of steps. A route from a point to
// itself has no steps and zero cost.
type Route struct {
	Steps []Step `json:"steps"`
	Cost  int64  `json:"cost"`
}

// Destination returns the final point of the route and false for an empty route.
func (r *Route) Destination() (Point, bool) {
	if r == nil || len(r.Steps) == 0 {
		return Point{}, false
	}
	return r.Steps[len(r.Steps)-1].Destination, true
}

// PointNames lists the visited points in order, source first.
func (r *Route) PointNames() []string {
	if r == nil || len(r.Steps) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Steps)+1)
	names = append(names, r.Steps[0].Source.Name)
	for _, s := range r.Steps {
		names = append(names, s.Destination.Name)
	}
	return names
}

// Operation names understood by the execution loop.
const (
	OperationNOP    = "NOP"
	OperationMove   = "MOVE"
	OperationLoad   = "Load"
	OperationUnload = "Unload"
)

// MovementCommand is a step plus the operation to perform on arrival.
type MovementCommand struct {
	Step       Step              `json:"step"`
	Operation  string            `json:"operation"`
	Properties map[string]string `json:"properties,omitempty"`
	// FinalDestination is the last point of the route the command belongs to.
	FinalDestination string `json:"final_destination"`
}

// IsWithoutOperation reports whether nothing has to happen on arrival.
func (c MovementCommand) IsWithoutOperation() bool {
	return c.Operation == "" || c.Operation == OperationNOP
}
