package vehicle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/protocol"
)

var fastPolling = Config{IntervalMS: 5, StopTimeoutMS: 500}

func newTestLink(t *testing.T, ft *fakeTransport, opts ...Option) *Link {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	l := NewLink(NewProcessModel("v1", "A"), ft, fastPolling, nil, opts...)
	t.Cleanup(l.StopMonitoring)
	return l
}

func TestConnect(t *testing.T) {
	l := newTestLink(t, &fakeTransport{})
	require.NoError(t, <-l.Connect(context.Background()))
	assert.Equal(t, Connected, l.ConnectionState())
	assert.True(t, l.Model().Snapshot().Connected)

	assert.NoError(t, <-l.Disconnect(context.Background()))
	assert.Equal(t, Disconnected, l.ConnectionState())
	assert.False(t, l.Model().Snapshot().Connected)
}

func TestConnectFailure(t *testing.T) {
	l := newTestLink(t, &fakeTransport{connectErr: errors.New("refused")})
	err := <-l.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.Equal(t, Disconnected, l.ConnectionState())
	assert.False(t, l.Model().Snapshot().Connected)
}

// sessionTransport reports session changes like a broker-backed transport.
type sessionTransport struct {
	*fakeTransport
	notify func(bool)
}

func (s *sessionTransport) OnConnectionChange(fn func(bool)) { s.notify = fn }

func TestSessionChangesFollowConnection(t *testing.T) {
	st := &sessionTransport{fakeTransport: &fakeTransport{}}
	ResetMetrics(prometheus.NewRegistry())
	l := NewLink(NewProcessModel("v1", "A"), st, fastPolling, nil)
	require.NotNil(t, st.notify)

	// Ignored before Connect.
	st.notify(true)
	assert.False(t, l.Model().Snapshot().Connected)

	require.NoError(t, <-l.Connect(context.Background()))
	st.notify(false)
	assert.False(t, l.Model().Snapshot().Connected)
	assert.Equal(t, Connected, l.ConnectionState())
	st.notify(true)
	assert.True(t, l.Model().Snapshot().Connected)

	require.NoError(t, <-l.Disconnect(context.Background()))
	st.notify(true)
	assert.False(t, l.Model().Snapshot().Connected)
}

func TestSubmitRouteRunsToCompletion(t *testing.T) {
	ft := &fakeTransport{}
	var executed []string
	l := newTestLink(t, ft, WithCommandListener(func(c model.MovementCommand) {
		executed = append(executed, c.Step.Destination.Name)
	}))

	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B", "C"), model.OperationLoad))
	require.Eventually(t, func() bool { return l.Model().State() == model.StateIdle }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"B", "C"}, ft.sentDestinations())
	cmds := ft.sentCommands()
	assert.Equal(t, model.OperationNOP, cmds[0].Operation)
	assert.Equal(t, model.OperationLoad, cmds[1].Operation)
	assert.Equal(t, []string{"B", "C"}, executed)

	s := l.Model().Snapshot()
	assert.Equal(t, "C", s.Position)
	assert.Equal(t, 2, s.CommandsExecuted)
	assert.Equal(t, QueueIdle, l.QueueState())
	assert.False(t, l.Monitoring())
	assert.Equal(t, 2.0, testutil.ToFloat64(commandsExecuted.WithLabelValues("v1")))
}

func TestLoadWaitsForDevices(t *testing.T) {
	ft := &fakeTransport{frozen: true}
	l := newTestLink(t, ft)
	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B"), model.OperationLoad))

	// Arrived and finished, but the fork is still down.
	ft.set(func(f *fakeTransport) { f.position = "B"; f.status = protocol.StatusFinished })
	reads := ft.readCount()
	require.Eventually(t, func() bool { return ft.readCount() > reads+3 }, time.Second, time.Millisecond)
	assert.Equal(t, model.StateFinished, l.Model().State())
	assert.Equal(t, AwaitingConfirmation, l.QueueState())

	ft.set(func(f *fakeTransport) { f.devices = DeviceStatus{Lift: protocol.LiftRaised, Load: protocol.LoadPresent} })
	require.Eventually(t, func() bool { return l.Model().State() == model.StateIdle }, time.Second, time.Millisecond)
}

func TestReadFailuresDoNotEndCycle(t *testing.T) {
	ft := &fakeTransport{readErr: errBus, readFails: 3}
	l := newTestLink(t, ft)
	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B"), ""))
	require.Eventually(t, func() bool { return l.Model().State() == model.StateIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(pollTicks.WithLabelValues("v1", "read_error")))
}

func TestShortFrameKeepsPreviousValues(t *testing.T) {
	ft := &fakeTransport{
		position: "B",
		status:   protocol.StatusExecuting,
		devices:  DeviceStatus{Lift: protocol.LiftRaised, Load: protocol.LoadPresent},
	}
	l := newTestLink(t, ft)
	l.StartMonitoring()
	require.Eventually(t, func() bool { return l.Model().Snapshot().Position == "B" }, time.Second, time.Millisecond)
	before := l.Model().Snapshot()

	ft.set(func(f *fakeTransport) {
		f.readErr, f.readFails = protocol.ErrShortFrame, 1<<20
		f.position = "C"
		f.status = protocol.StatusFinished
		f.devices = DeviceStatus{Lift: protocol.LiftLowered, Load: protocol.LoadAbsent}
	})
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(telemetryDecodeFailures.WithLabelValues("v1")) >= 3
	}, time.Second, time.Millisecond)

	after := l.Model().Snapshot()
	assert.Equal(t, model.StateExecuting, after.State)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, "B", after.Position)
	assert.Equal(t, before.Devices, after.Devices)
	assert.Equal(t, before.LoadDevices, after.LoadDevices)
	assert.True(t, l.Monitoring())

	ft.set(func(f *fakeTransport) { f.readFails = 0 })
	require.Eventually(t, func() bool { return l.Model().Snapshot().Position == "C" }, time.Second, time.Millisecond)
}

func TestConcurrentSubmitLeavesOnePoller(t *testing.T) {
	ft := &fakeTransport{frozen: true, status: protocol.StatusExecuting}
	l := newTestLink(t, ft)
	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = l.SubmitRoute(context.Background(), linearRoute("A", "B", "C"), "")
			}()
		}
		wg.Wait()
		require.True(t, l.Monitoring())
		l.StopMonitoring()
		assert.False(t, l.Monitoring())

		reads := ft.readCount()
		time.Sleep(6 * fastPolling.Interval())
		require.Equal(t, reads, ft.readCount(), "a poll cycle survived StopMonitoring")
	}
}

func TestStopDuringSubmitIsSafe(t *testing.T) {
	ft := &fakeTransport{frozen: true, status: protocol.StatusExecuting}
	l := newTestLink(t, ft)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.SubmitRoute(context.Background(), linearRoute("A", "B"), "")
		}()
		go func() {
			defer wg.Done()
			l.StopMonitoring()
		}()
	}
	wg.Wait()
	l.StopMonitoring()
	reads := ft.readCount()
	time.Sleep(6 * fastPolling.Interval())
	assert.Equal(t, reads, ft.readCount())
}

func TestDeliveryFailureAndResend(t *testing.T) {
	ft := &fakeTransport{sendErr: errBus, status: protocol.StatusExecuting}
	l := newTestLink(t, ft)

	err := l.SubmitRoute(context.Background(), linearRoute("A", "B"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandDelivery))
	assert.Equal(t, CommandInFlight, l.QueueState())
	assert.True(t, l.Monitoring())

	ft.set(func(f *fakeTransport) { f.sendErr = nil })
	require.NoError(t, l.ResendCurrent(context.Background()))
	require.Eventually(t, func() bool { return l.Model().Snapshot().CommandsExecuted == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(commandDeliveryFailures.WithLabelValues("v1")))
}

func TestSubmitRouteReplacesQueue(t *testing.T) {
	ft := &fakeTransport{frozen: true}
	l := newTestLink(t, ft)
	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B", "C"), ""))
	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "D"), model.OperationUnload))

	cursor, total := l.Progress()
	assert.Equal(t, 0, cursor)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"B", "D"}, ft.sentDestinations())
}

func TestStopMonitoringIdempotent(t *testing.T) {
	l := newTestLink(t, &fakeTransport{frozen: true})
	l.StopMonitoring()
	assert.ErrorIs(t, l.ResendCurrent(context.Background()), ErrNoCommand)

	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B"), ""))
	l.StopMonitoring()
	l.StopMonitoring()
	assert.False(t, l.Monitoring())
	assert.Equal(t, QueueIdle, l.QueueState())
	cursor, total := l.Progress()
	assert.Zero(t, cursor)
	assert.Zero(t, total)
}

func TestPanicInTickIsContained(t *testing.T) {
	policy := DefaultCompletionPolicy()
	calls := 0
	policy.Register("Explode", func(Telemetry) bool {
		calls++
		if calls == 1 {
			panic("rule exploded")
		}
		return true
	})
	ft := &fakeTransport{}
	l := newTestLink(t, ft, WithCompletionPolicy(policy))
	require.NoError(t, l.SubmitRoute(context.Background(), linearRoute("A", "B"), "Explode"))
	require.Eventually(t, func() bool { return l.Model().State() == model.StateIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(pollTicks.WithLabelValues("v1", "panic")))
}

func TestEmptyRouteSetsIdle(t *testing.T) {
	ft := &fakeTransport{}
	l := newTestLink(t, ft)
	require.NoError(t, l.SubmitRoute(context.Background(), &model.Route{}, model.OperationMove))
	assert.Equal(t, model.StateIdle, l.Model().State())
	assert.Empty(t, ft.sentDestinations())
	assert.False(t, l.Monitoring())
}
