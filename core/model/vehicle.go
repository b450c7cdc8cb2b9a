package model

import "fmt"

// Vehicle is a plant-model vehicle. Class selects which paths it may use.
type Vehicle struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Length int    `json:"length"` // mm, informational
	// MaxVelocity and MaxReverseVelocity are in mm/s; zero means unlimited.
	MaxVelocity        int `json:"max_velocity"`
	MaxReverseVelocity int `json:"max_reverse_velocity"`
	// InitialPosition seeds the process model until telemetry resolves it.
	InitialPosition string `json:"initial_position"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("vehicle name is required")
	}
	if v.MaxVelocity < 0 || v.MaxReverseVelocity < 0 {
		return fmt.Errorf("vehicle %s: negative velocity", v.Name)
	}
	return nil
}

// VehicleState is the coarse execution state reported for a vehicle.
type VehicleState int

const (
	StateUnknown VehicleState = iota
	StateIdle
	StateExecuting
	StateCharging
	StateFinished
	StateError
)

// String returns a human-readable representation of the state.
func (s VehicleState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateExecuting:
		return "EXECUTING"
	case StateCharging:
		return "CHARGING"
	case StateFinished:
		return "FINISHED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// VehicleStates lists every state in declaration order.
func VehicleStates() []VehicleState {
	return []VehicleState{StateUnknown, StateIdle, StateExecuting, StateCharging, StateFinished, StateError}
}

// MarshalText encodes the state by name.
func (s VehicleState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseVehicleState maps a state name back to the enum. Unknown names map to
// StateUnknown.
func ParseVehicleState(name string) VehicleState {
	switch name {
	case "IDLE":
		return StateIdle
	case "EXECUTING":
		return StateExecuting
	case "CHARGING":
		return StateCharging
	case "FINISHED":
		return StateFinished
	case "ERROR":
		return StateError
	default:
		return StateUnknown
	}
}

// LoadHandlingDevice reports whether a load handling device carries a load.
type LoadHandlingDevice struct {
	Label string `json:"label"`
	Full  bool   `json:"full"`
}
