// Package monitoring is the process-wide error reporting facade. The fleet
// reports failures that would otherwise only reach the logs: panics inside
// polling cycles, journal write errors and undeliverable bus messages.
package monitoring

import "time"

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation. A nil monitor is ignored.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// VehicleTags builds the tag set attached to failures of one vehicle.
func VehicleTags(module, vehicle string) map[string]string {
	tags := map[string]string{"module": module}
	if vehicle != "" {
		tags["vehicle"] = vehicle
	}
	return tags
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	current.CaptureException(err, tags)
}

// Recover captures panics in goroutines.
func Recover() { current.Recover() }

// Flush flushes buffered events.
func Flush(d time.Duration) { current.Flush(d) }
