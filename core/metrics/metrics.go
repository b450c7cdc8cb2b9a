package metrics

import "time"

// RouteEvent is recorded when a vehicle accepts a route.
type RouteEvent struct {
	Vehicle     string
	Operation   string
	Destination string
	Steps       int
	Cost        int64
	Time        time.Time
}

// MetricsSink records fleet activity for observability purposes.
type MetricsSink interface {
	RecordRoute(ev RouteEvent) error
}

// CommandEvent is one completed movement command.
type CommandEvent struct {
	Vehicle     string
	Destination string
	Operation   string
	Index       int
	Time        time.Time
}

// CommandRecorder records executed movement commands.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
}

// VehicleStateEvent is a snapshot of a vehicle process model.
type VehicleStateEvent struct {
	Vehicle          string
	State            string
	Position         string
	Connected        bool
	Loaded           bool
	CommandsExecuted int
	// Context names the change that triggered the snapshot.
	Context string
	Time    time.Time
}

// VehicleStateRecorder records vehicle state snapshots.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRoute(RouteEvent) error               { return nil }
func (NopSink) RecordCommand(CommandEvent) error           { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error { return nil }
