package metrics

import (
	"context"

	"github.com/kilianp07/fleetcore/core/events"
	coremetrics "github.com/kilianp07/fleetcore/core/metrics"
	"github.com/kilianp07/fleetcore/infra/logger"
	"github.com/kilianp07/fleetcore/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has unsubscribed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.RouteAssigned:
		return sink.RecordRoute(coremetrics.RouteEvent{
			Vehicle:     e.Vehicle,
			Operation:   e.Operation,
			Destination: e.Destination,
			Steps:       max(len(e.Points)-1, 0),
			Cost:        e.Cost,
			Time:        e.At,
		})
	case events.CommandExecuted:
		if r, ok := sink.(coremetrics.CommandRecorder); ok {
			return r.RecordCommand(coremetrics.CommandEvent{
				Vehicle:     e.Vehicle,
				Destination: e.Destination,
				Operation:   e.Operation,
				Index:       e.Index,
				Time:        e.At,
			})
		}
	case events.VehicleChanged:
		if r, ok := sink.(coremetrics.VehicleStateRecorder); ok {
			return r.RecordVehicleState(coremetrics.VehicleStateEvent{
				Vehicle:          e.Vehicle,
				State:            e.State,
				Position:         e.Position,
				Connected:        e.Connected,
				Loaded:           e.Loaded,
				CommandsExecuted: e.CommandsExecuted,
				Context:          e.Property,
				Time:             e.At,
			})
		}
	}
	return nil
}
