package events

import "time"

// Event is anything published on the fleet bus.
type Event interface {
	VehicleName() string
}

// VehicleChanged mirrors one process model change. The trailing fields
// describe the vehicle right after the change.
type VehicleChanged struct {
	Vehicle  string
	Property string
	Old, New any

	State            string
	Position         string
	Connected        bool
	Loaded           bool
	CommandsExecuted int
	At               time.Time
}

// RouteAssigned is published when a vehicle accepts a new route.
type RouteAssigned struct {
	Vehicle     string
	Operation   string
	Destination string
	Points      []string
	Cost        int64
	At          time.Time
}

// CommandExecuted is published for each completed movement command.
type CommandExecuted struct {
	Vehicle     string
	Destination string
	Operation   string
	Index       int
	At          time.Time
}

// OrderReceived is published for each transport request taken from the bus.
type OrderReceived struct {
	Vehicle   string
	Target    string
	Operation string
	Err       error
	At        time.Time
}

func (e VehicleChanged) VehicleName() string  { return e.Vehicle }
func (e RouteAssigned) VehicleName() string   { return e.Vehicle }
func (e CommandExecuted) VehicleName() string { return e.Vehicle }
func (e OrderReceived) VehicleName() string   { return e.Vehicle }
