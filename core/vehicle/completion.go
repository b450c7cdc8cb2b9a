package vehicle

import (
	"sync"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/protocol"
)

// DeviceStatus is the raw lift and load state from the handshake block.
type DeviceStatus struct {
	Lift uint16 `json:"lift"`
	Load uint16 `json:"load"`
}

func (d DeviceStatus) LiftRaised() bool  { return d.Lift == protocol.LiftRaised }
func (d DeviceStatus) LiftLowered() bool { return d.Lift == protocol.LiftLowered }
func (d DeviceStatus) LoadPresent() bool { return d.Load == protocol.LoadPresent }
func (d DeviceStatus) LoadAbsent() bool  { return d.Load == protocol.LoadAbsent }

// Telemetry is the result of one successful poll.
type Telemetry struct {
	State    model.VehicleState
	Devices  DeviceStatus
	Position string // empty when unresolved
}

// StateFromCode maps a handshake status code to a vehicle state.
func StateFromCode(code uint16) model.VehicleState {
	switch code {
	case protocol.StatusIdle:
		return model.StateIdle
	case protocol.StatusExecuting:
		return model.StateExecuting
	case protocol.StatusFinished:
		return model.StateFinished
	default:
		return model.StateUnknown
	}
}

// CodeFromState is the inverse of StateFromCode for the states the
// handshake block can express.
func CodeFromState(s model.VehicleState) (uint16, bool) {
	switch s {
	case model.StateIdle:
		return protocol.StatusIdle, true
	case model.StateExecuting:
		return protocol.StatusExecuting, true
	case model.StateFinished:
		return protocol.StatusFinished, true
	}
	return 0, false
}

// CompletionRule decides whether an operation finished given telemetry that
// already reports FINISHED.
type CompletionRule func(Telemetry) bool

// CompletionPolicy decides when a movement command is done. Operations
// without a registered rule complete once the vehicle reports FINISHED.
type CompletionPolicy struct {
	mu    sync.RWMutex
	rules map[string]CompletionRule
}

// DefaultCompletionPolicy knows Load and Unload.
func DefaultCompletionPolicy() *CompletionPolicy {
	p := &CompletionPolicy{rules: map[string]CompletionRule{}}
	p.Register(model.OperationLoad, func(t Telemetry) bool {
		return t.Devices.LiftRaised() && t.Devices.LoadPresent()
	})
	p.Register(model.OperationUnload, func(t Telemetry) bool {
		return t.Devices.LiftLowered() && t.Devices.LoadAbsent()
	})
	return p
}

// Register sets the rule for operation, replacing any previous one.
func (p *CompletionPolicy) Register(operation string, rule CompletionRule) {
	p.mu.Lock()
	p.rules[operation] = rule
	p.mu.Unlock()
}

// OperationCompleted reports whether cmd's operation is finished.
func (p *CompletionPolicy) OperationCompleted(cmd model.MovementCommand, t Telemetry) bool {
	if cmd.IsWithoutOperation() {
		return true
	}
	if t.State != model.StateFinished {
		return false
	}
	p.mu.RLock()
	rule, ok := p.rules[cmd.Operation]
	p.mu.RUnlock()
	return !ok || rule(t)
}

// CommandCompleted reports whether the vehicle reached cmd's destination
// and finished its operation.
func (p *CompletionPolicy) CommandCompleted(cmd model.MovementCommand, t Telemetry) bool {
	return t.Position != "" && t.Position == cmd.Step.Destination.Name && p.OperationCompleted(cmd, t)
}
