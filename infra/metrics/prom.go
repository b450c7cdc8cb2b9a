package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/fleetcore/core/metrics"
	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/infra/logger"
)

// PromSink records fleet events in Prometheus metrics.
type PromSink struct {
	routes    *prometheus.CounterVec
	cost      *prometheus.HistogramVec
	state     *prometheus.GaugeVec
	connected *prometheus.GaugeVec
}

// NewPromSink registers the fleet metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	routes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_routes_assigned_total",
		Help: "Routes handed to vehicles",
	}, []string{"vehicle", "operation"})
	cost := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_route_cost",
		Help:    "Cost of assigned routes",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 12),
	}, []string{"vehicle"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicle_state",
		Help: "1 for the current state of each vehicle",
	}, []string{"vehicle", "state"})
	connected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicle_connected",
		Help: "Whether the vehicle link is connected",
	}, []string{"vehicle"})

	var err error
	if routes, err = register(reg, routes); err != nil {
		return nil, err
	}
	if cost, err = register(reg, cost); err != nil {
		return nil, err
	}
	if state, err = register(reg, state); err != nil {
		return nil, err
	}
	if connected, err = register(reg, connected); err != nil {
		return nil, err
	}
	return &PromSink{routes: routes, cost: cost, state: state, connected: connected}, nil
}

// register reuses an already registered collector of the same shape.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordRoute(ev coremetrics.RouteEvent) error {
	s.routes.WithLabelValues(ev.Vehicle, ev.Operation).Inc()
	s.cost.WithLabelValues(ev.Vehicle).Observe(float64(ev.Cost))
	return nil
}

// RecordVehicleState sets the state gauge one-hot.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	for _, st := range model.VehicleStates() {
		v := 0.0
		if st.String() == ev.State {
			v = 1
		}
		s.state.WithLabelValues(ev.Vehicle, st.String()).Set(v)
	}
	c := 0.0
	if ev.Connected {
		c = 1
	}
	s.connected.WithLabelValues(ev.Vehicle).Set(c)
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the given address.
// The server runs until the provided context is canceled.
func StartPromServer(ctx context.Context, addr string) error {
	return servePromHandler(ctx, addr, promhttp.Handler())
}

func servePromHandler(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("prom-server")
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
