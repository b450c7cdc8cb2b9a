// Package loopback simulates a vehicle in memory. A commanded destination is
// reached after a fixed number of status polls; Load and Unload operations
// move the lift and load devices on arrival.
package loopback

import (
	"context"
	"errors"
	"sync"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/protocol"
	"github.com/kilianp07/fleetcore/core/vehicle"
)

// ErrOffline is returned while the simulated vehicle is disconnected or
// faulted.
var ErrOffline = errors.New("loopback vehicle offline")

// Config tunes the simulation.
type Config struct {
	InitialPosition string `json:"initial_position"`
	// PollsPerStep is the number of status polls a step takes.
	PollsPerStep int  `json:"polls_per_step"`
	Loaded       bool `json:"loaded"`
}

func (c *Config) SetDefaults() {
	if c.PollsPerStep <= 0 {
		c.PollsPerStep = 2
	}
}

// Vehicle implements vehicle.Transport.
type Vehicle struct {
	cfg Config

	mu        sync.Mutex
	connected bool
	fault     bool
	status    uint16
	position  string
	devices   vehicle.DeviceStatus
	pending   *model.MovementCommand
	remaining int
	received  []model.MovementCommand
}

func New(c Config) *Vehicle {
	c.SetDefaults()
	v := &Vehicle{cfg: c, status: protocol.StatusIdle, position: c.InitialPosition}
	v.devices = vehicle.DeviceStatus{Lift: protocol.LiftLowered, Load: protocol.LoadAbsent}
	if c.Loaded {
		v.devices = vehicle.DeviceStatus{Lift: protocol.LiftRaised, Load: protocol.LoadPresent}
	}
	return v
}

func (v *Vehicle) Connect(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

func (v *Vehicle) Disconnect(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
	return nil
}

// SetFault makes every call fail until cleared.
func (v *Vehicle) SetFault(fault bool) {
	v.mu.Lock()
	v.fault = fault
	v.mu.Unlock()
}

func (v *Vehicle) online() error {
	if !v.connected || v.fault {
		return ErrOffline
	}
	return nil
}

// Send starts a step. A step to the current position arrives on the next
// poll.
func (v *Vehicle) Send(_ context.Context, cmd model.MovementCommand) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.online(); err != nil {
		return err
	}
	v.received = append(v.received, cmd)
	v.pending = &cmd
	v.remaining = v.cfg.PollsPerStep
	v.status = protocol.StatusExecuting
	return nil
}

// ReadVehicleStatus advances the simulation by one poll.
func (v *Vehicle) ReadVehicleStatus(context.Context) (uint16, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.online(); err != nil {
		return 0, err
	}
	if v.pending != nil {
		v.remaining--
		if v.remaining <= 0 {
			v.arrive()
		}
	}
	return v.status, nil
}

func (v *Vehicle) arrive() {
	cmd := v.pending
	v.pending = nil
	v.position = cmd.Step.Destination.Name
	switch cmd.Operation {
	case model.OperationLoad:
		v.devices = vehicle.DeviceStatus{Lift: protocol.LiftRaised, Load: protocol.LoadPresent}
	case model.OperationUnload:
		v.devices = vehicle.DeviceStatus{Lift: protocol.LiftLowered, Load: protocol.LoadAbsent}
	}
	v.status = protocol.StatusFinished
}

func (v *Vehicle) ReadDeviceStatus(context.Context) (vehicle.DeviceStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.online(); err != nil {
		return vehicle.DeviceStatus{}, err
	}
	return v.devices, nil
}

func (v *Vehicle) ReadPosition(context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.online(); err != nil {
		return "", err
	}
	return v.position, nil
}

// Received returns the commands sent so far.
func (v *Vehicle) Received() []model.MovementCommand {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.MovementCommand(nil), v.received...)
}

var _ vehicle.Transport = (*Vehicle)(nil)
