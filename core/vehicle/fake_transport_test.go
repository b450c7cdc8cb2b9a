package vehicle

import (
	"context"
	"errors"
	"sync"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/protocol"
)

// fakeTransport behaves like a vehicle that reaches the commanded point
// immediately and reports its operation finished.
type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	sendErr    error
	readErr    error
	readFails  int
	position   string
	status     uint16
	devices    DeviceStatus
	sent       []model.MovementCommand
	frozen     bool
	reads      int
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeTransport) Disconnect(context.Context) error { return nil }

func (f *fakeTransport) Send(_ context.Context, cmd model.MovementCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, cmd)
	if f.frozen {
		return nil
	}
	f.position = cmd.Step.Destination.Name
	f.status = protocol.StatusFinished
	switch cmd.Operation {
	case model.OperationLoad:
		f.devices = DeviceStatus{Lift: protocol.LiftRaised, Load: protocol.LoadPresent}
	case model.OperationUnload:
		f.devices = DeviceStatus{Lift: protocol.LiftLowered, Load: protocol.LoadAbsent}
	}
	return nil
}

func (f *fakeTransport) fail() error {
	if f.readFails > 0 {
		f.readFails--
		return f.readErr
	}
	return nil
}

func (f *fakeTransport) ReadVehicleStatus(context.Context) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.status, nil
}

func (f *fakeTransport) ReadDeviceStatus(context.Context) (DeviceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

func (f *fakeTransport) ReadPosition(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, nil
}

func (f *fakeTransport) sentDestinations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, c := range f.sent {
		out[i] = c.Step.Destination.Name
	}
	return out
}

func (f *fakeTransport) sentCommands() []model.MovementCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MovementCommand(nil), f.sent...)
}

func (f *fakeTransport) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeTransport) set(fn func(f *fakeTransport)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

var errBus = errors.New("bus timeout")

func linearRoute(names ...string) *model.Route {
	r := &model.Route{}
	for i := 1; i < len(names); i++ {
		r.Steps = append(r.Steps, model.Step{
			Path:        model.Path{Name: names[i-1] + "--" + names[i], Length: 1, MaxVelocity: 1000},
			Source:      model.Point{Name: names[i-1]},
			Destination: model.Point{Name: names[i]},
			Index:       i - 1,
		})
		r.Cost++
	}
	return r
}
