package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordRoute(RouteEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordCommand(CommandEvent) error {
	r.count++
	return r.err
}

// routeOnly implements only the base interface.
type routeOnly struct{ count int }

func (r *routeOnly) RecordRoute(RouteEvent) error { r.count++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &routeOnly{}
	m := NewMultiSink(s1, s2)
	assert.NoError(t, m.RecordRoute(RouteEvent{Vehicle: "v1"}))
	assert.NoError(t, m.RecordCommand(CommandEvent{Vehicle: "v1"}))
	assert.NoError(t, m.RecordVehicleState(VehicleStateEvent{Vehicle: "v1"}))
	assert.Equal(t, 2, s1.count)
	assert.Equal(t, 1, s2.count)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordRoute(RouteEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.count, "later sinks still receive the event")
}
