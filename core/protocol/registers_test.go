package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMap(t *testing.T) {
	want := map[string]uint16{
		"HEART_BIT": 300, "DIRECTION": 301, "FORK": 302, "SPEED": 303, "OBSTACLE": 304,
		"STATUS": 305, "ERROR_CODE": 306, "DESTINATION": 308, "MARK_NO": 309,
		"POSITION": 310, "IO_IN": 318, "IO_OUT": 319,
		"SET_HEART_BIT": 300, "SET_DIRECTION": 301, "SET_FORK": 302, "SET_SPEED": 303,
		"SET_OBSTACLE": 304, "SET_COMMAND": 305, "SET_MODE": 306, "SET_DESTINATION": 308,
		"SET_JOG_MOVE": 312,
	}
	got := map[string]uint16{}
	for _, r := range append(ReadBlock(), WriteBlock()...) {
		got[r.Name] = r.Address
	}
	assert.Equal(t, want, got)
}

func TestDecodeRegisters(t *testing.T) {
	v, err := DecodeRegisters([]byte{0x00, 0x02, 0x01, 0x00}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2, 256}, v)

	_, err = DecodeRegister([]byte{0x01})
	assert.True(t, errors.Is(err, ErrShortFrame))

	assert.Equal(t, []byte{0x00, 0x07, 0xff, 0xff}, EncodeRegisters(7, 0xffff))
}

func TestPointConversion(t *testing.T) {
	n, err := PointNumber("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
	_, err = PointNumber("Dock-A")
	assert.Error(t, err)

	name, ok := PointName(42)
	assert.True(t, ok)
	assert.Equal(t, "42", name)
	_, ok = PointName(0)
	assert.False(t, ok)
}
