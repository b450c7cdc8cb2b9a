package vehicle

import "github.com/prometheus/client_golang/prometheus"

var (
	pollTicks               *prometheus.CounterVec
	commandsExecuted        *prometheus.CounterVec
	commandDeliveryFailures *prometheus.CounterVec
	telemetryDecodeFailures *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	ticks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_poll_ticks_total",
			Help: "Number of polling ticks per vehicle, by outcome",
		},
		[]string{"vehicle", "result"},
	)
	exec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_commands_executed_total",
			Help: "Number of movement commands completed",
		},
		[]string{"vehicle"},
	)
	delivery := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_command_delivery_failures_total",
			Help: "Number of movement commands the transport failed to deliver",
		},
		[]string{"vehicle"},
	)
	decode := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_telemetry_decode_failures_total",
			Help: "Number of telemetry frames that could not be decoded",
		},
		[]string{"vehicle"},
	)
	return ticks, exec, delivery, decode
}

func init() {
	pollTicks, commandsExecuted, commandDeliveryFailures, telemetryDecodeFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers vehicle metrics on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(pollTicks, commandsExecuted, commandDeliveryFailures, telemetryDecodeFailures)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	pollTicks, commandsExecuted, commandDeliveryFailures, telemetryDecodeFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
