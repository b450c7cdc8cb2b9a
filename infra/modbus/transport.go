// Package modbus drives vehicle controllers that expose the fleet register
// map over Modbus TCP.
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goburrow/modbus"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/protocol"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/logger"
)

// ErrVerifyFailed is returned when the destination register does not hold
// the commanded point after a write.
var ErrVerifyFailed = errors.New("destination read-back mismatch")

type registerClient interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

type connector interface {
	Connect() error
	Close() error
}

// Transport implements vehicle.Transport. Reads may run concurrently;
// command writes are serialized.
type Transport struct {
	cfg    Config
	conn   connector
	client registerClient
	log    logger.Logger

	sendMu sync.Mutex
}

// NewTransport prepares a TCP handler for c.Address. The connection is
// opened by Connect.
func NewTransport(c Config) (*Transport, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	h := modbus.NewTCPClientHandler(c.Address)
	h.Timeout = c.timeout()
	h.SlaveId = c.SlaveID
	return newTransport(c, h, modbus.NewClient(h)), nil
}

func newTransport(c Config, conn connector, client registerClient) *Transport {
	return &Transport{cfg: c, conn: conn, client: client, log: logger.New("modbus").With("address", c.Address)}
}

func (t *Transport) Connect(context.Context) error {
	if err := t.conn.Connect(); err != nil {
		return fmt.Errorf("modbus connect %s: %w", t.cfg.Address, err)
	}
	t.log.Infof("connected, slave %d", t.cfg.SlaveID)
	return nil
}

func (t *Transport) Disconnect(context.Context) error {
	return t.conn.Close()
}

// Send writes destination, direction and speed, starts the command and
// verifies the destination register.
func (t *Transport) Send(_ context.Context, cmd model.MovementCommand) error {
	dest, err := protocol.PointNumber(cmd.Step.Destination.Name)
	if err != nil {
		return err
	}
	direction := protocol.DirectionForward
	velocity := cmd.Step.Path.MaxVelocity
	if cmd.Step.Orientation == model.OrientationBackward {
		direction = protocol.DirectionBackward
		velocity = cmd.Step.Path.MaxReverseVelocity
	}
	speed := clampSpeed(velocity, t.cfg.MaxSpeed)

	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	writes := []struct {
		reg   protocol.Register
		value uint16
	}{
		{protocol.SetDestination, dest},
		{protocol.SetDirection, direction},
		{protocol.SetSpeed, speed},
		{protocol.SetCommand, protocol.CommandStart},
	}
	for _, w := range writes {
		if err := t.write(w.reg, w.value); err != nil {
			return err
		}
	}
	got, err := t.readInput(protocol.Destination)
	if err != nil {
		return err
	}
	if got != dest {
		return fmt.Errorf("%w: wrote %d, read %d", ErrVerifyFailed, dest, got)
	}
	t.log.Debugw("command sent", map[string]any{"dest": dest, "direction": direction, "speed": speed})
	return nil
}

func clampSpeed(v, limit int) uint16 {
	if v < 0 {
		v = -v
	}
	if v > limit {
		v = limit
	}
	return uint16(v)
}

func (t *Transport) write(reg protocol.Register, v uint16) error {
	if _, err := t.client.WriteMultipleRegisters(reg.Address, 1, protocol.EncodeRegisters(v)); err != nil {
		return fmt.Errorf("write %s: %w", reg.Name, err)
	}
	return nil
}

func (t *Transport) readInput(reg protocol.Register) (uint16, error) {
	frame, err := t.client.ReadInputRegisters(reg.Address, 1)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", reg.Name, err)
	}
	return protocol.DecodeRegister(frame)
}

func (t *Transport) readHolding(addr, qty uint16) ([]uint16, error) {
	frame, err := t.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, fmt.Errorf("read handshake %d: %w", addr, err)
	}
	return protocol.DecodeRegisters(frame, int(qty))
}

func (t *Transport) ReadVehicleStatus(context.Context) (uint16, error) {
	v, err := t.readHolding(protocol.HandshakeVehicleStatus, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadDeviceStatus reads lift and load in one request.
func (t *Transport) ReadDeviceStatus(context.Context) (vehicle.DeviceStatus, error) {
	v, err := t.readHolding(protocol.HandshakeLiftStatus, 2)
	if err != nil {
		return vehicle.DeviceStatus{}, err
	}
	return vehicle.DeviceStatus{Lift: v[0], Load: v[1]}, nil
}

func (t *Transport) ReadPosition(context.Context) (string, error) {
	v, err := t.readInput(protocol.Position)
	if err != nil {
		return "", err
	}
	name, _ := protocol.PointName(v)
	return name, nil
}

var _ vehicle.Transport = (*Transport)(nil)
