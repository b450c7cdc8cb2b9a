package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/fleetcore/core/model"
	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/logger"
)

// TransportConfig is the per-vehicle part of an mqtt transport.
type TransportConfig struct {
	// StaleAfterMS rejects status reports older than this; zero disables.
	StaleAfterMS int `json:"stale_after_ms"`
}

// Transport drives a vehicle over the message bus. Commands are published on
// the vehicle's command topic; reads return the latest status report.
type Transport struct {
	vehicle    string
	bus        coremqtt.Messenger
	cmdTopic   string
	statTopic  string
	staleAfter time.Duration
	log        logger.Logger

	mu       sync.RWMutex
	last     coremqtt.StatusMessage
	lastSeen time.Time
	now      func() time.Time
	session  func(bool)
	unwatch  func()
}

// NewTransport returns a transport for vehicle on bus using the topic
// templates of cfg.
func NewTransport(vehicleName string, bus coremqtt.Messenger, cfg Config, tc TransportConfig) *Transport {
	cfg.SetDefaults()
	return &Transport{
		vehicle:    vehicleName,
		bus:        bus,
		cmdTopic:   cfg.CommandTopicFor(vehicleName),
		statTopic:  cfg.StatusTopicFor(vehicleName),
		staleAfter: time.Duration(tc.StaleAfterMS) * time.Millisecond,
		log:        logger.New("mqtt_transport").With("vehicle", vehicleName),
		now:        time.Now,
	}
}

// Connect subscribes to the vehicle's status topic and, when the bus
// reports broker connection changes, starts forwarding them.
func (t *Transport) Connect(context.Context) error {
	if err := t.bus.Subscribe(coremqtt.KindStatus, t.statTopic, t.onStatus); err != nil {
		return err
	}
	if w, ok := t.bus.(coremqtt.ConnectionWatcher); ok {
		cancel := w.OnConnectionChange(t.brokerChanged)
		t.mu.Lock()
		if t.unwatch != nil {
			t.unwatch()
		}
		t.unwatch = cancel
		t.mu.Unlock()
	}
	return nil
}

// Disconnect drops the status subscription.
func (t *Transport) Disconnect(context.Context) error {
	t.mu.Lock()
	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}
	t.mu.Unlock()
	return t.bus.Unsubscribe(t.statTopic)
}

// OnConnectionChange registers fn for broker connection drops and
// recoveries seen while connected.
func (t *Transport) OnConnectionChange(fn func(connected bool)) {
	t.mu.Lock()
	t.session = fn
	t.mu.Unlock()
}

func (t *Transport) brokerChanged(up bool) {
	t.mu.RLock()
	fn := t.session
	t.mu.RUnlock()
	if up {
		t.log.Infof("broker connection restored")
	} else {
		t.log.Warnf("broker connection lost")
	}
	if fn != nil {
		fn(up)
	}
}

func (t *Transport) onStatus(_ string, payload []byte) {
	var m coremqtt.StatusMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		t.log.Warnf("decode status: %v", err)
		return
	}
	if m.VehicleID != "" && m.VehicleID != t.vehicle {
		t.log.Warnf("status for %s on %s ignored", m.VehicleID, t.statTopic)
		return
	}
	t.mu.Lock()
	t.last = m
	t.lastSeen = t.now()
	t.mu.Unlock()
}

// Send publishes {"dest", "path": [src, dst]}.
func (t *Transport) Send(_ context.Context, cmd model.MovementCommand) error {
	payload, err := json.Marshal(coremqtt.CommandMessage{
		Dest: cmd.Step.Destination.Name,
		Path: []string{cmd.Step.Source.Name, cmd.Step.Destination.Name},
	})
	if err != nil {
		return err
	}
	return t.bus.Publish(coremqtt.KindCommand, t.cmdTopic, payload)
}

func (t *Transport) latest() (coremqtt.StatusMessage, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastSeen.IsZero() {
		return coremqtt.StatusMessage{}, fmt.Errorf("%w: %s", coremqtt.ErrNoTelemetry, t.vehicle)
	}
	if t.staleAfter > 0 && t.now().Sub(t.lastSeen) > t.staleAfter {
		return coremqtt.StatusMessage{}, fmt.Errorf("%w: %s last seen %s", coremqtt.ErrNoTelemetry, t.vehicle, t.lastSeen.Format(time.RFC3339))
	}
	return t.last, nil
}

func (t *Transport) ReadVehicleStatus(context.Context) (uint16, error) {
	m, err := t.latest()
	return m.Status, err
}

func (t *Transport) ReadDeviceStatus(context.Context) (vehicle.DeviceStatus, error) {
	m, err := t.latest()
	return vehicle.DeviceStatus{Lift: m.Lift, Load: m.Load}, err
}

func (t *Transport) ReadPosition(context.Context) (string, error) {
	m, err := t.latest()
	return m.Position, err
}

var (
	_ vehicle.Transport          = (*Transport)(nil)
	_ vehicle.ConnectionNotifier = (*Transport)(nil)
)
