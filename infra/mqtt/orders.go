package mqtt

import (
	"context"
	"encoding/json"

	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/infra/logger"
)

// OrderHandler processes one decoded transport request.
type OrderHandler func(ctx context.Context, o coremqtt.OrderMessage) error

// OrderListener feeds inbound transport requests to a handler.
type OrderListener struct {
	bus     coremqtt.Messenger
	topic   string
	handler OrderHandler
	log     logger.Logger
}

// NewOrderListener listens on topic.
func NewOrderListener(bus coremqtt.Messenger, topic string, h OrderHandler) *OrderListener {
	return &OrderListener{bus: bus, topic: topic, handler: h, log: logger.New("order_listener")}
}

// Start subscribes and processes orders until ctx is done.
func (l *OrderListener) Start(ctx context.Context) error {
	if err := l.bus.Subscribe(coremqtt.KindOrder, l.topic, func(_ string, payload []byte) {
		o, err := coremqtt.DecodeOrder(payload)
		if err != nil {
			l.log.Warnf("drop order: %v", err)
			return
		}
		if err := l.handler(ctx, o); err != nil {
			l.log.Errorf("order %s -> %s: %v", o.VehicleID, o.TargetPoint, err)
		}
	}); err != nil {
		return err
	}
	l.log.Infof("listening for orders on %s", l.topic)
	go func() {
		<-ctx.Done()
		_ = l.bus.Unsubscribe(l.topic)
	}()
	return nil
}

// PublishOrder sends a transport request on topic.
func PublishOrder(bus coremqtt.Messenger, topic string, o coremqtt.OrderMessage) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return bus.Publish(coremqtt.KindOrder, topic, payload)
}
