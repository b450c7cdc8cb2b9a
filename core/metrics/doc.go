package metrics

// Package metrics defines the observability sinks of the fleet. Sinks like
// PromSink and InfluxSink record route assignments, executed commands and
// vehicle snapshots and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are
// configured.
