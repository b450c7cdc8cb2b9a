// Package app wires the configured plant, routing, vehicle links and
// message bus into a running fleet service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fleetcore/app/plugins"
	"github.com/kilianp07/fleetcore/config"
	"github.com/kilianp07/fleetcore/core/events"
	"github.com/kilianp07/fleetcore/core/fleet"
	"github.com/kilianp07/fleetcore/core/journal"
	coremetrics "github.com/kilianp07/fleetcore/core/metrics"
	coremon "github.com/kilianp07/fleetcore/core/monitoring"
	"github.com/kilianp07/fleetcore/core/plant"
	"github.com/kilianp07/fleetcore/core/routing"
	"github.com/kilianp07/fleetcore/infra/logger"
	"github.com/kilianp07/fleetcore/infra/metrics"
	"github.com/kilianp07/fleetcore/infra/monitoring"
	"github.com/kilianp07/fleetcore/infra/mqtt"
	"github.com/kilianp07/fleetcore/internal/eventbus"
)

// Planner is the offline part of the service: the plant model and the
// routing service over it.
type Planner struct {
	Plant   *plant.Model
	Routing *routing.Service
}

// NewPlanner builds the plant model and routing service of cfg.
func NewPlanner(cfg *config.Config) (*Planner, error) {
	pm, err := plant.New(cfg.Plant)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	svc, err := routing.NewService(pm, cfg.Routing, logger.New("routing"))
	if err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}
	return &Planner{Plant: pm, Routing: svc}, nil
}

// Service orchestrates the fleet manager and its collaborators.
type Service struct {
	*Planner
	Fleet *fleet.Manager

	cfg     *config.Config
	bus     *eventbus.TypedBus[events.Event]
	client  *mqtt.PahoClient
	journal journal.Store
	sink    coremetrics.MetricsSink
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	planner, err := NewPlanner(cfg)
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	s := &Service{
		Planner: planner,
		cfg:     cfg,
		bus:     eventbus.NewTypedBuffered[events.Event](64),
		journal: store,
		sink:    sink,
		log:     logg,
	}
	env := plugins.Env{MQTT: cfg.MQTT}
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		env.Bus = client
	}

	s.Fleet = fleet.NewManager(planner.Routing, cfg.Polling, logger.New("fleet"),
		fleet.WithJournal(store), fleet.WithBus(s.bus))
	for _, v := range planner.Plant.Vehicles() {
		b := cfg.Binding(v.Name)
		t, err := plugins.NewTransport(v, b.Transport, env)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if _, err := s.Fleet.AddVehicle(v, t); err != nil {
			_ = s.Close()
			return nil, err
		}
		logg.Infof("vehicle %s on %s transport", v.Name, b.Transport.Type)
	}
	return s, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if err := s.Fleet.Start(ctx); err != nil {
		s.log.Errorf("fleet start: %v", err)
	}
	if s.client != nil {
		l := mqtt.NewOrderListener(s.client, s.client.Config().OrderTopic, s.Fleet.HandleOrder)
		if err := l.Start(ctx); err != nil {
			return fmt.Errorf("order listener: %w", err)
		}
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.Fleet.Stop(stopCtx)
	<-collected
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return s.journal.Close()
}
