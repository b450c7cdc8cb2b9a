package fleet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcore/core/events"
	"github.com/kilianp07/fleetcore/core/journal"
	"github.com/kilianp07/fleetcore/core/model"
	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/core/plant"
	"github.com/kilianp07/fleetcore/core/routing"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/loopback"
	"github.com/kilianp07/fleetcore/internal/eventbus"
)

var fastPolling = vehicle.Config{IntervalMS: 5, StopTimeoutMS: 500}

func path(name, src, dst string, reverse bool) model.Path {
	p := model.Path{Name: name, Source: src, Destination: dst, Length: 1000, MaxVelocity: 1000}
	if reverse {
		p.MaxReverseVelocity = 1000
	}
	return p
}

type fixture struct {
	m     *Manager
	store journal.Store
	bus   *eventbus.TypedBus[events.Event]
	sims  map[string]*loopback.Vehicle
}

// newFixture runs two vehicles on A <-> B <-> C -> D, where D is a dead end.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	vehicles := []model.Vehicle{
		{Name: "agv-1", InitialPosition: "A"},
		{Name: "agv-2", InitialPosition: "C"},
	}
	pm, err := plant.New(plant.Config{
		Points:   []model.Point{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}},
		Paths:    []model.Path{path("A--B", "A", "B", true), path("B--C", "B", "C", true), path("C--D", "C", "D", false)},
		Vehicles: vehicles,
	})
	require.NoError(t, err)
	svc, err := routing.NewService(pm, routing.Config{}, nil)
	require.NoError(t, err)

	store, err := journal.NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"))
	require.NoError(t, err)
	bus := eventbus.NewTypedBuffered[events.Event](256)
	f := &fixture{
		m:     NewManager(svc, fastPolling, nil, WithJournal(store), WithBus(bus)),
		store: store,
		bus:   bus,
		sims:  map[string]*loopback.Vehicle{},
	}
	for _, v := range vehicles {
		sim := loopback.New(loopback.Config{InitialPosition: v.InitialPosition, PollsPerStep: 2})
		f.sims[v.Name] = sim
		_, err := f.m.AddVehicle(v, sim)
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = f.m.Stop(context.Background()) })
	return f
}

func (f *fixture) waitIdleAt(t *testing.T, name, pos string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := f.m.Status(name)
		return err == nil && s.Position == pos && s.State == model.StateIdle && s.Queue == vehicle.QueueIdle.String()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAddVehicleRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.AddVehicle(model.Vehicle{Name: "agv-1"}, loopback.New(loopback.Config{}))
	assert.Error(t, err)
	_, err = f.m.AddVehicle(model.Vehicle{}, loopback.New(loopback.Config{}))
	assert.Error(t, err)
	assert.Equal(t, []string{"agv-1", "agv-2"}, f.m.Vehicles())
}

func TestMoveToRunsRoute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.bus.Subscribe()
	require.NoError(t, f.m.Start(ctx))

	route, err := f.m.MoveTo(ctx, "agv-1", "C", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, route.PointNames())
	f.waitIdleAt(t, "agv-1", "C")

	s, err := f.m.Status("agv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.CommandsExecuted)
	assert.Equal(t, "CONNECTED", s.Connection)

	sent := f.sims["agv-1"].Received()
	require.Len(t, sent, 2)
	assert.Equal(t, model.OperationNOP, sent[0].Operation)
	assert.Equal(t, model.OperationMove, sent[1].Operation)

	recs, err := f.m.History(ctx, journal.Query{Vehicle: "agv-1"})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, journal.KindRouteAssigned, recs[0].Kind)
	assert.Equal(t, []string{"A", "B", "C"}, recs[0].Points)
	assert.EqualValues(t, 2000, recs[0].Cost)
	assert.Equal(t, journal.KindCommandExecuted, recs[1].Kind)
	assert.Equal(t, "B", recs[1].Destination)
	assert.Equal(t, "C", recs[2].Destination)

	var assigned, executed, changed int
	for len(sub) > 0 {
		switch (<-sub).(type) {
		case events.RouteAssigned:
			assigned++
		case events.CommandExecuted:
			executed++
		case events.VehicleChanged:
			changed++
		}
	}
	assert.Equal(t, 1, assigned)
	assert.Equal(t, 2, executed)
	assert.Positive(t, changed)
}

func TestMoveToLoadOperation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.m.Start(ctx))
	_, err := f.m.MoveTo(ctx, "agv-2", "A", model.OperationLoad)
	require.NoError(t, err)
	f.waitIdleAt(t, "agv-2", "A")
	s, _ := f.m.Status("agv-2")
	require.Len(t, s.LoadDevices, 1)
	assert.True(t, s.LoadDevices[0].Full)
}

func TestMoveToErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.m.Start(ctx))

	_, err := f.m.MoveTo(ctx, "ghost", "A", "")
	assert.ErrorIs(t, err, model.ErrObjectUnknown)

	_, err = f.m.MoveTo(ctx, "agv-1", "Z", "")
	assert.ErrorIs(t, err, model.ErrObjectUnknown)

	// D is a dead end: nothing leads back to A
	_, err = f.m.MoveTo(ctx, "agv-2", "D", "")
	require.NoError(t, err)
	f.waitIdleAt(t, "agv-2", "D")
	_, err = f.m.MoveTo(ctx, "agv-2", "A", "")
	assert.ErrorIs(t, err, ErrNoRoute)

	// avoiding B leaves no way from A to C
	_, err = f.m.MoveTo(ctx, "agv-1", "C", "", model.ResourceRef{Kind: model.KindPoint, Name: "B"})
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestMoveToUnknownPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.m.AddVehicle(model.Vehicle{Name: "agv-3"}, loopback.New(loopback.Config{}))
	require.NoError(t, err)
	require.NoError(t, f.m.Start(ctx))
	_, err = f.m.MoveTo(ctx, "agv-3", "A", "")
	assert.ErrorIs(t, err, ErrPositionUnknown)
}

func TestHandleOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.bus.Subscribe()
	require.NoError(t, f.m.Start(ctx))

	require.NoError(t, f.m.HandleOrder(ctx, coremqtt.OrderMessage{VehicleID: "agv-1", TargetPoint: "B"}))
	f.waitIdleAt(t, "agv-1", "B")

	err := f.m.HandleOrder(ctx, coremqtt.OrderMessage{VehicleID: "agv-1", TargetPoint: "nowhere"})
	assert.ErrorIs(t, err, model.ErrObjectUnknown)

	rejected, err := f.m.History(ctx, journal.Query{Kinds: []journal.Kind{journal.KindOrderRejected}})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "nowhere", rejected[0].Destination)
	assert.NotEmpty(t, rejected[0].Error)

	var orders []events.OrderReceived
	for len(sub) > 0 {
		if o, ok := (<-sub).(events.OrderReceived); ok {
			orders = append(orders, o)
		}
	}
	require.Len(t, orders, 2)
	assert.NoError(t, orders[0].Err)
	assert.Error(t, orders[1].Err)
}

func TestDeliveryFailureAndResend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.m.Start(ctx))
	sim := f.sims["agv-1"]

	sim.SetFault(true)
	_, err := f.m.MoveTo(ctx, "agv-1", "B", "")
	assert.ErrorIs(t, err, vehicle.ErrCommandDelivery)

	recs, err := f.m.History(ctx, journal.Query{Kinds: []journal.Kind{journal.KindRouteAssigned}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].Error)

	sim.SetFault(false)
	require.NoError(t, f.m.ResendCurrent(ctx, "agv-1"))
	f.waitIdleAt(t, "agv-1", "B")
	assert.ErrorIs(t, f.m.ResendCurrent(ctx, "agv-1"), vehicle.ErrNoCommand)
	assert.ErrorIs(t, f.m.ResendCurrent(ctx, "ghost"), model.ErrObjectUnknown)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.m.Start(ctx))

	_, err := f.m.MoveTo(ctx, "agv-1", "C", "")
	require.NoError(t, err)
	require.NoError(t, f.m.Withdraw("agv-1"))
	l, err := f.m.Link("agv-1")
	require.NoError(t, err)
	assert.False(t, l.Monitoring())
	assert.Equal(t, vehicle.QueueIdle, l.QueueState())
	assert.Error(t, f.m.Withdraw("ghost"))
}

type failingTransport struct{ *loopback.Vehicle }

func (failingTransport) Connect(context.Context) error { return errors.New("no route to host") }

func TestStartReportsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.m.AddVehicle(model.Vehicle{Name: "agv-3", InitialPosition: "A"}, failingTransport{loopback.New(loopback.Config{})})
	require.NoError(t, err)

	err = f.m.Start(ctx)
	assert.ErrorIs(t, err, vehicle.ErrConnectionFailed)

	statuses := f.m.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "agv-1", statuses[0].Vehicle)
	assert.True(t, statuses[0].Connected)
	assert.Equal(t, "agv-3", statuses[2].Vehicle)
	assert.False(t, statuses[2].Connected)
	assert.Equal(t, "DISCONNECTED", statuses[2].Connection)
}
