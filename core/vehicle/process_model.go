package vehicle

import (
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/fleetcore/core/model"
)

// Property names a process model attribute in change notifications.
type Property string

const (
	PropState           Property = "state"
	PropPosition        Property = "position"
	PropConnected       Property = "connected"
	PropLoadDevices     Property = "loadHandlingDevices"
	PropDeviceStatus    Property = "deviceStatus"
	PropCommandExecuted Property = "commandExecuted"
)

// Change is emitted for every attribute a mutator actually changed.
type Change struct {
	Vehicle  string
	Property Property
	Old, New any
	At       time.Time
}

// Snapshot is a consistent view of a process model.
type Snapshot struct {
	Vehicle          string                     `json:"vehicle"`
	State            model.VehicleState         `json:"state"`
	Position         string                     `json:"position,omitempty"`
	Connected        bool                       `json:"connected"`
	LoadDevices      []model.LoadHandlingDevice `json:"loadHandlingDevices"`
	Devices          DeviceStatus               `json:"devices"`
	CommandsExecuted int                        `json:"commandsExecuted"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

// ProcessModel is the authoritative runtime state of one vehicle. Mutators
// deliver change notifications synchronously on the caller's goroutine, in
// the order the mutations happened. Observers must not call mutators.
type ProcessModel struct {
	name string

	notifyMu  sync.Mutex // orders delivery across concurrent mutators
	mu        sync.RWMutex
	state     Snapshot
	observers []func(Change)

	now func() time.Time
}

// NewProcessModel returns a model in state UNKNOWN at the given position.
func NewProcessModel(name, position string) *ProcessModel {
	return &ProcessModel{
		name: name,
		state: Snapshot{
			Vehicle:  name,
			State:    model.StateUnknown,
			Position: position,
		},
		now: time.Now,
	}
}

// Name returns the vehicle name.
func (m *ProcessModel) Name() string { return m.name }

// AddObserver registers fn for every subsequent change.
func (m *ProcessModel) AddObserver(fn func(Change)) {
	m.notifyMu.Lock()
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
	m.notifyMu.Unlock()
}

// Snapshot returns a copy of the current state.
func (m *ProcessModel) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.LoadDevices = slices.Clone(s.LoadDevices)
	return s
}

// State returns the current vehicle state.
func (m *ProcessModel) State() model.VehicleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.State
}

// Position returns the current position, empty when unresolved.
func (m *ProcessModel) Position() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Position
}

// update runs fn under the state lock and then delivers the changes it
// returned while still holding the delivery lock.
func (m *ProcessModel) update(fn func(s *Snapshot) []Change) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	changes := fn(&m.state)
	if len(changes) > 0 {
		at := m.now()
		m.state.UpdatedAt = at
		for i := range changes {
			changes[i].Vehicle = m.name
			changes[i].At = at
		}
	}
	observers := m.observers
	m.mu.Unlock()

	for _, c := range changes {
		for _, fn := range observers {
			fn(c)
		}
	}
}

func setState(s *Snapshot, v model.VehicleState) []Change {
	if s.State == v {
		return nil
	}
	old := s.State
	s.State = v
	return []Change{{Property: PropState, Old: old, New: v}}
}

func setPosition(s *Snapshot, v string) []Change {
	if s.Position == v {
		return nil
	}
	old := s.Position
	s.Position = v
	return []Change{{Property: PropPosition, Old: old, New: v}}
}

func setDevices(s *Snapshot, v []model.LoadHandlingDevice) []Change {
	if slices.Equal(s.LoadDevices, v) {
		return nil
	}
	old := s.LoadDevices
	s.LoadDevices = slices.Clone(v)
	return []Change{{Property: PropLoadDevices, Old: old, New: slices.Clone(v)}}
}

// SetState changes the vehicle state.
func (m *ProcessModel) SetState(v model.VehicleState) {
	m.update(func(s *Snapshot) []Change { return setState(s, v) })
}

// SetPosition changes the vehicle position; empty means unresolved.
func (m *ProcessModel) SetPosition(v string) {
	m.update(func(s *Snapshot) []Change { return setPosition(s, v) })
}

// SetConnected changes the communication flag.
func (m *ProcessModel) SetConnected(v bool) {
	m.update(func(s *Snapshot) []Change {
		if s.Connected == v {
			return nil
		}
		s.Connected = v
		return []Change{{Property: PropConnected, Old: !v, New: v}}
	})
}

// SetLoadHandlingDevices replaces the load handling device flags.
func (m *ProcessModel) SetLoadHandlingDevices(v []model.LoadHandlingDevice) {
	m.update(func(s *Snapshot) []Change { return setDevices(s, v) })
}

// CommandExecuted records a completed movement command.
func (m *ProcessModel) CommandExecuted(cmd model.MovementCommand) {
	m.update(func(s *Snapshot) []Change {
		s.CommandsExecuted++
		return []Change{{Property: PropCommandExecuted, New: cmd}}
	})
}

// ApplyTelemetry updates position, state and device status from one poll.
// An unresolved position keeps the last known one. Changes are delivered in
// the order position, state, devices.
func (m *ProcessModel) ApplyTelemetry(t Telemetry) {
	m.update(func(s *Snapshot) []Change {
		var changes []Change
		if t.Position != "" {
			changes = append(changes, setPosition(s, t.Position)...)
		}
		changes = append(changes, setState(s, t.State)...)
		if s.Devices != t.Devices {
			old := s.Devices
			s.Devices = t.Devices
			changes = append(changes, Change{Property: PropDeviceStatus, Old: old, New: t.Devices})
		}
		changes = append(changes, setDevices(s, []model.LoadHandlingDevice{{Label: "default", Full: t.Devices.LoadPresent()}})...)
		return changes
	})
}
