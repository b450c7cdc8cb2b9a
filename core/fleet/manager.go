// Package fleet owns the vehicle links of a running installation and turns
// transport requests into routes handed to them.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetcore/core/events"
	"github.com/kilianp07/fleetcore/core/journal"
	"github.com/kilianp07/fleetcore/core/logger"
	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/monitoring"
	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/internal/eventbus"
)

var (
	// ErrPositionUnknown is returned when a vehicle has not reported where it is.
	ErrPositionUnknown = errors.New("vehicle position unknown")
	// ErrNoRoute is returned when the target cannot be reached.
	ErrNoRoute = errors.New("no route to target")
)

// RouteComputer is the routing service as seen by the fleet.
type RouteComputer interface {
	ComputeRoutes(vehicleName, source string, destinations []string, avoid []model.ResourceRef) (map[string]*model.Route, error)
}

// Status is the externally visible state of one vehicle.
type Status struct {
	vehicle.Snapshot
	Connection string `json:"connection"`
	Queue      string `json:"queue"`
	Cursor     int    `json:"cursor"`
	Steps      int    `json:"steps"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithJournal persists route assignments and executed commands in s.
func WithJournal(s journal.Store) Option { return func(m *Manager) { m.journal = s } }

// WithBus publishes fleet events on b.
func WithBus(b *eventbus.TypedBus[events.Event]) Option { return func(m *Manager) { m.bus = b } }

// WithCompletionPolicy shares p between all links.
func WithCompletionPolicy(p *vehicle.CompletionPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// Manager holds one link per vehicle.
type Manager struct {
	routes  RouteComputer
	cfg     vehicle.Config
	journal journal.Store
	bus     *eventbus.TypedBus[events.Event]
	policy  *vehicle.CompletionPolicy
	log     logger.Logger

	mu    sync.RWMutex
	links map[string]*vehicle.Link
}

func NewManager(routes RouteComputer, cfg vehicle.Config, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	m := &Manager{
		routes:  routes,
		cfg:     cfg,
		journal: journal.NopStore{},
		policy:  vehicle.DefaultCompletionPolicy(),
		log:     log,
		links:   make(map[string]*vehicle.Link),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AddVehicle creates the process model and link of v on transport t.
func (m *Manager) AddVehicle(v model.Vehicle, t vehicle.Transport) (*vehicle.Link, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.links[v.Name]; dup {
		return nil, fmt.Errorf("vehicle %s already registered", v.Name)
	}
	pm := vehicle.NewProcessModel(v.Name, v.InitialPosition)
	pm.AddObserver(func(c vehicle.Change) { m.publishChange(pm, c) })
	l := vehicle.NewLink(pm, t, m.cfg, m.log,
		vehicle.WithCompletionPolicy(m.policy),
		vehicle.WithCommandListener(func(cmd model.MovementCommand) { m.commandExecuted(v.Name, cmd) }),
	)
	m.links[v.Name] = l
	return l, nil
}

// Vehicles lists the registered vehicle names in order.
func (m *Manager) Vehicles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.links))
	for n := range m.links {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Link returns the link of the named vehicle.
func (m *Manager) Link(name string) (*vehicle.Link, error) {
	m.mu.RLock()
	l, ok := m.links[name]
	m.mu.RUnlock()
	if !ok {
		return nil, &model.ObjectUnknownError{Kind: model.KindVehicle, Name: name}
	}
	return l, nil
}

// Start connects every vehicle concurrently and starts telemetry monitoring
// on those that connected. Failures are joined; the other vehicles keep
// running.
func (m *Manager) Start(ctx context.Context) error {
	names := m.Vehicles()
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, n := range names {
		l, _ := m.Link(n)
		g.Go(func() error {
			if err := <-l.Connect(ctx); err != nil {
				errs[i] = err
				return nil
			}
			l.StartMonitoring()
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Stop disconnects every vehicle and waits for the links to settle.
func (m *Manager) Stop(ctx context.Context) error {
	names := m.Vehicles()
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, n := range names {
		l, _ := m.Link(n)
		g.Go(func() error {
			errs[i] = <-l.Disconnect(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// MoveTo routes the vehicle from its current position to target and hands
// the route over. The operation is performed at target; empty means MOVE.
// A delivery failure still leaves the route assigned; see ResendCurrent.
func (m *Manager) MoveTo(ctx context.Context, name, target, operation string, avoid ...model.ResourceRef) (*model.Route, error) {
	if operation == "" {
		operation = model.OperationMove
	}
	l, err := m.Link(name)
	if err != nil {
		return nil, err
	}
	pos := l.Model().Position()
	if pos == "" {
		return nil, fmt.Errorf("%w: %s", ErrPositionUnknown, name)
	}
	routes, err := m.routes.ComputeRoutes(name, pos, []string{target}, avoid)
	if err != nil {
		return nil, err
	}
	route := routes[target]
	if route == nil {
		return nil, fmt.Errorf("%w: %s from %s to %s", ErrNoRoute, name, pos, target)
	}

	sendErr := l.SubmitRoute(ctx, route, operation)

	rec := journal.NewRecord(journal.KindRouteAssigned, name)
	rec.Operation = operation
	rec.Destination = target
	rec.Points = route.PointNames()
	rec.Cost = route.Cost
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	m.append(ctx, rec)
	m.publish(events.RouteAssigned{
		Vehicle:     name,
		Operation:   operation,
		Destination: target,
		Points:      rec.Points,
		Cost:        route.Cost,
		At:          rec.Timestamp,
	})
	m.log.Infof("%s: %s to %s via %v (cost %d)", name, operation, target, rec.Points, route.Cost)
	return route, sendErr
}

// HandleOrder executes an inbound transport request. Rejected orders are
// journaled.
func (m *Manager) HandleOrder(ctx context.Context, o coremqtt.OrderMessage) error {
	_, err := m.MoveTo(ctx, o.VehicleID, o.TargetPoint, o.Operation)
	if err != nil && !errors.Is(err, vehicle.ErrCommandDelivery) {
		rec := journal.NewRecord(journal.KindOrderRejected, o.VehicleID)
		rec.Destination = o.TargetPoint
		rec.Operation = o.Operation
		rec.Error = err.Error()
		m.append(ctx, rec)
	}
	m.publish(events.OrderReceived{
		Vehicle:   o.VehicleID,
		Target:    o.TargetPoint,
		Operation: o.Operation,
		Err:       err,
		At:        time.Now(),
	})
	return err
}

// Withdraw drops the vehicle's route and stops monitoring it.
func (m *Manager) Withdraw(name string) error {
	l, err := m.Link(name)
	if err != nil {
		return err
	}
	l.StopMonitoring()
	m.log.Infof("%s: route withdrawn", name)
	return nil
}

// ResendCurrent transmits the vehicle's pending command again.
func (m *Manager) ResendCurrent(ctx context.Context, name string) error {
	l, err := m.Link(name)
	if err != nil {
		return err
	}
	return l.ResendCurrent(ctx)
}

// Status returns the state of one vehicle.
func (m *Manager) Status(name string) (Status, error) {
	l, err := m.Link(name)
	if err != nil {
		return Status{}, err
	}
	cursor, steps := l.Progress()
	return Status{
		Snapshot:   l.Model().Snapshot(),
		Connection: l.ConnectionState().String(),
		Queue:      l.QueueState().String(),
		Cursor:     cursor,
		Steps:      steps,
	}, nil
}

// Statuses returns the state of every vehicle ordered by name.
func (m *Manager) Statuses() []Status {
	names := m.Vehicles()
	out := make([]Status, 0, len(names))
	for _, n := range names {
		if s, err := m.Status(n); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// History queries the journal.
func (m *Manager) History(ctx context.Context, q journal.Query) ([]journal.Record, error) {
	return m.journal.Query(ctx, q)
}

func (m *Manager) commandExecuted(name string, cmd model.MovementCommand) {
	rec := journal.NewRecord(journal.KindCommandExecuted, name)
	rec.Destination = cmd.Step.Destination.Name
	rec.Operation = cmd.Operation
	rec.Index = cmd.Step.Index
	m.append(context.Background(), rec)
	m.publish(events.CommandExecuted{
		Vehicle:     name,
		Destination: rec.Destination,
		Operation:   cmd.Operation,
		Index:       cmd.Step.Index,
		At:          rec.Timestamp,
	})
}

func (m *Manager) publishChange(pm *vehicle.ProcessModel, c vehicle.Change) {
	if m.bus == nil {
		return
	}
	s := pm.Snapshot()
	m.bus.Publish(events.VehicleChanged{
		Vehicle:          c.Vehicle,
		Property:         string(c.Property),
		Old:              c.Old,
		New:              c.New,
		State:            s.State.String(),
		Position:         s.Position,
		Connected:        s.Connected,
		Loaded:           slices.ContainsFunc(s.LoadDevices, func(d model.LoadHandlingDevice) bool { return d.Full }),
		CommandsExecuted: s.CommandsExecuted,
		At:               c.At,
	})
}

func (m *Manager) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

func (m *Manager) append(ctx context.Context, rec journal.Record) {
	if err := m.journal.Append(ctx, rec); err != nil {
		m.log.Errorf("journal %s for %s: %v", rec.Kind, rec.Vehicle, err)
		monitoring.CaptureException(err, monitoring.VehicleTags("journal", rec.Vehicle))
	}
}
