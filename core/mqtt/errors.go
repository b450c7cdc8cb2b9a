package mqtt

import "errors"

var (
	// ErrPublishFailed is returned once every publish attempt failed.
	ErrPublishFailed = errors.New("mqtt publish failed")
	// ErrNoTelemetry is returned when a vehicle has not reported status yet
	// or its last report is stale.
	ErrNoTelemetry = errors.New("no recent vehicle telemetry")
	// ErrInvalidOrder is returned for order messages that cannot be used.
	ErrInvalidOrder = errors.New("invalid transport order")
)
