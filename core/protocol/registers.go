// Package protocol describes the vehicle field protocol: the Modbus register
// map, the handshake block and the decoding of 16-bit register frames.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// Register is a named 16-bit Modbus register.
type Register struct {
	Name    string
	Address uint16
}

// Read block, served with function 0x04 (read input registers).
var (
	HeartBit    = Register{"HEART_BIT", 300}
	Direction   = Register{"DIRECTION", 301}
	Fork        = Register{"FORK", 302}
	Speed       = Register{"SPEED", 303}
	Obstacle    = Register{"OBSTACLE", 304}
	Status      = Register{"STATUS", 305}
	ErrorCode   = Register{"ERROR_CODE", 306}
	Destination = Register{"DESTINATION", 308}
	MarkNo      = Register{"MARK_NO", 309}
	Position    = Register{"POSITION", 310}
	IOIn        = Register{"IO_IN", 318}
	IOOut       = Register{"IO_OUT", 319}
)

// Write block, served with function 0x10 (write multiple registers).
var (
	SetHeartBit    = Register{"SET_HEART_BIT", 300}
	SetDirection   = Register{"SET_DIRECTION", 301}
	SetFork        = Register{"SET_FORK", 302}
	SetSpeed       = Register{"SET_SPEED", 303}
	SetObstacle    = Register{"SET_OBSTACLE", 304}
	SetCommand     = Register{"SET_COMMAND", 305}
	SetMode        = Register{"SET_MODE", 306}
	SetDestination = Register{"SET_DESTINATION", 308}
	SetJogMove     = Register{"SET_JOG_MOVE", 312}
)

// ReadBlock and WriteBlock list the register map in address order.
func ReadBlock() []Register {
	return []Register{HeartBit, Direction, Fork, Speed, Obstacle, Status, ErrorCode, Destination, MarkNo, Position, IOIn, IOOut}
}

func WriteBlock() []Register {
	return []Register{SetHeartBit, SetDirection, SetFork, SetSpeed, SetObstacle, SetCommand, SetMode, SetDestination, SetJogMove}
}

// Handshake block (holding registers) polled by the movement monitor.
const (
	HandshakeVehicleStatus uint16 = 105
	HandshakeLiftStatus    uint16 = 106
	HandshakeLoadStatus    uint16 = 107
)

// Vehicle status codes reported in the handshake block. Any other code is
// an unknown state.
const (
	StatusIdle      uint16 = 0
	StatusExecuting uint16 = 1
	StatusFinished  uint16 = 2
)

// Lift and load device codes.
const (
	LiftLowered  uint16 = 0
	LiftRaised   uint16 = 2
	LoadPresent  uint16 = 1
	LoadAbsent   uint16 = 2
	CommandStart uint16 = 1
)

// Direction codes written to SET_DIRECTION.
const (
	DirectionForward  uint16 = 0
	DirectionBackward uint16 = 1
)

// ErrShortFrame reports a response carrying fewer bytes than requested.
var ErrShortFrame = errors.New("short register frame")

// DecodeRegisters splits a big-endian frame into qty 16-bit values.
func DecodeRegisters(frame []byte, qty int) ([]uint16, error) {
	if len(frame) < 2*qty {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrShortFrame, 2*qty, len(frame))
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(frame[2*i:])
	}
	return out, nil
}

// DecodeRegister decodes the first register of frame.
func DecodeRegister(frame []byte) (uint16, error) {
	v, err := DecodeRegisters(frame, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// EncodeRegisters encodes values as a big-endian frame.
func EncodeRegisters(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// PointNumber converts a point name to the numeric id written to the
// destination register.
func PointNumber(name string) (uint16, error) {
	n, err := strconv.ParseUint(name, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("point %q is not addressable: %w", name, err)
	}
	return uint16(n), nil
}

// PointName converts a position register value back to a point name. Zero
// means the position is unresolved.
func PointName(v uint16) (string, bool) {
	if v == 0 {
		return "", false
	}
	return strconv.FormatUint(uint64(v), 10), true
}
