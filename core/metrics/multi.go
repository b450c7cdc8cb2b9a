package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink is called; the
// errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordRoute(ev RouteEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRoute(ev))
	}
	return errors.Join(errs...)
}

// RecordCommand forwards to the sinks implementing CommandRecorder.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			errs = append(errs, rec.RecordCommand(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordVehicleState forwards to the sinks implementing VehicleStateRecorder.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(VehicleStateRecorder); ok {
			errs = append(errs, rec.RecordVehicleState(ev))
		}
	}
	return errors.Join(errs...)
}
