package vehicle

import (
	"context"

	"github.com/kilianp07/fleetcore/core/model"
)

// Transport is the field connection to one vehicle. Reads may be issued
// concurrently.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, cmd model.MovementCommand) error
	ReadVehicleStatus(ctx context.Context) (uint16, error)
	ReadDeviceStatus(ctx context.Context) (DeviceStatus, error)
	// ReadPosition returns the current point name, empty when unresolved.
	ReadPosition(ctx context.Context) (string, error)
}

// ConnectionNotifier is implemented by transports whose underlying session
// can drop and recover without Connect being called again. The link
// registers fn once and mirrors it into the process model.
type ConnectionNotifier interface {
	OnConnectionChange(fn func(connected bool))
}
