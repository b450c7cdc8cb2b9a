// Package vehicle drives one vehicle through a route: it queues movement
// commands, sends them over a Transport, polls telemetry on a fixed interval
// and publishes the result into a ProcessModel.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetcore/core/logger"
	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/monitoring"
	"github.com/kilianp07/fleetcore/core/protocol"
)

var (
	// ErrConnectionFailed is returned on the Connect result channel.
	ErrConnectionFailed = errors.New("vehicle connection failed")
	// ErrCommandDelivery reports a command the transport did not accept.
	ErrCommandDelivery = errors.New("command delivery failed")
	// ErrNoCommand is returned by ResendCurrent when nothing is queued.
	ErrNoCommand = errors.New("no command in flight")
)

// ConnectionState of a link.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// QueueState is the command sub-state of a link.
type QueueState int32

const (
	QueueIdle QueueState = iota
	CommandInFlight
	AwaitingConfirmation
)

func (s QueueState) String() string {
	switch s {
	case CommandInFlight:
		return "COMMAND_IN_FLIGHT"
	case AwaitingConfirmation:
		return "AWAITING_CONFIRMATION"
	default:
		return "IDLE"
	}
}

// Option configures a Link.
type Option func(*Link)

// WithCompletionPolicy replaces the default completion policy.
func WithCompletionPolicy(p *CompletionPolicy) Option {
	return func(l *Link) { l.policy = p }
}

// WithCommandListener registers fn to be called for every executed command.
func WithCommandListener(fn func(model.MovementCommand)) Option {
	return func(l *Link) { l.listeners = append(l.listeners, fn) }
}

// pollCycle owns the command queue of one submitted route.
type pollCycle struct {
	mu      sync.Mutex
	queue   *CommandQueue
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Link connects one vehicle's transport to its process model.
type Link struct {
	name      string
	transport Transport
	model     *ProcessModel
	policy    *CompletionPolicy
	cfg       Config
	log       logger.Logger
	listeners []func(model.MovementCommand)

	conn   atomic.Int32
	qstate atomic.Int32

	// lifecycle serializes installing and stopping poll cycles so at most
	// one cycle ever acts on the vehicle.
	lifecycle sync.Mutex
	mu        sync.Mutex
	cycle     *pollCycle
}

// NewLink returns a disconnected link.
func NewLink(pm *ProcessModel, t Transport, cfg Config, log logger.Logger, opts ...Option) *Link {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	l := &Link{
		name:      pm.Name(),
		transport: t,
		model:     pm,
		policy:    DefaultCompletionPolicy(),
		cfg:       cfg,
		log:       log.With("vehicle", pm.Name()),
	}
	for _, o := range opts {
		o(l)
	}
	if n, ok := t.(ConnectionNotifier); ok {
		n.OnConnectionChange(l.sessionChanged)
	}
	return l
}

// sessionChanged mirrors transport session drops into the process model
// while the link is connected.
func (l *Link) sessionChanged(up bool) {
	if l.ConnectionState() != Connected {
		return
	}
	l.model.SetConnected(up)
	if up {
		l.log.Infof("session restored")
	} else {
		l.log.Warnf("session lost")
	}
}

// Name returns the vehicle name.
func (l *Link) Name() string { return l.name }

// Model returns the process model the link publishes into.
func (l *Link) Model() *ProcessModel { return l.model }

// ConnectionState returns the current connection state.
func (l *Link) ConnectionState() ConnectionState { return ConnectionState(l.conn.Load()) }

// QueueState returns the current command sub-state.
func (l *Link) QueueState() QueueState { return QueueState(l.qstate.Load()) }

// Monitoring reports whether a poll cycle is running.
func (l *Link) Monitoring() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycle != nil && l.cycle.running.Load()
}

// Progress returns the cursor and length of the current queue.
func (l *Link) Progress() (cursor, total int) {
	l.mu.Lock()
	c := l.cycle
	l.mu.Unlock()
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue == nil {
		return 0, 0
	}
	return c.queue.Cursor(), c.queue.Len()
}

// Connect opens the transport asynchronously. The channel receives nil or
// an error wrapping ErrConnectionFailed, then closes.
func (l *Link) Connect(ctx context.Context) <-chan error {
	res := make(chan error, 1)
	l.conn.Store(int32(Connecting))
	go func() {
		defer close(res)
		if err := l.transport.Connect(ctx); err != nil {
			l.conn.Store(int32(Disconnected))
			l.model.SetConnected(false)
			l.log.Errorf("connect failed: %v", err)
			res <- fmt.Errorf("%w: %s: %w", ErrConnectionFailed, l.name, err)
			return
		}
		l.conn.Store(int32(Connected))
		l.model.SetConnected(true)
		l.log.Infof("connected")
		res <- nil
	}()
	return res
}

// Disconnect stops monitoring and closes the transport asynchronously. The
// link always ends Disconnected; teardown errors are reported on the channel.
func (l *Link) Disconnect(ctx context.Context) <-chan error {
	res := make(chan error, 1)
	go func() {
		defer close(res)
		l.StopMonitoring()
		err := l.transport.Disconnect(ctx)
		if err != nil {
			l.log.Warnf("disconnect: %v", err)
		}
		l.conn.Store(int32(Disconnected))
		l.model.SetConnected(false)
		res <- err
	}()
	return res
}

// SubmitRoute replaces any running route with route. The first command is
// sent immediately and monitoring starts even if that send fails, in which
// case the error wraps ErrCommandDelivery and ResendCurrent can retry it.
func (l *Link) SubmitRoute(ctx context.Context, route *model.Route, operation string) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.stopCycle()

	q := NewCommandQueue(route, operation)
	if q.Done() {
		l.model.SetState(model.StateIdle)
		l.log.Infof("route has no steps, nothing to do")
		return nil
	}
	c := l.newCycle(q)

	l.mu.Lock()
	l.cycle = c
	l.mu.Unlock()

	l.model.SetState(model.StateExecuting)
	c.mu.Lock()
	first, _ := q.Current()
	err := l.send(ctx, first)
	c.mu.Unlock()

	l.start(c)
	return err
}

// StartMonitoring starts polling telemetry if no cycle is running. Without a
// submitted route the cycle only refreshes the process model.
func (l *Link) StartMonitoring() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.mu.Lock()
	if l.cycle != nil && l.cycle.running.Load() {
		l.mu.Unlock()
		return
	}
	c := l.newCycle(nil)
	l.cycle = c
	l.mu.Unlock()
	l.start(c)
}

// StopMonitoring stops the poll cycle, waits for it within the configured
// stop timeout and drops the queue. It is safe to call repeatedly.
func (l *Link) StopMonitoring() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.stopCycle()
}

// stopCycle must be called with l.lifecycle held.
func (l *Link) stopCycle() {
	l.mu.Lock()
	c := l.cycle
	l.cycle = nil
	l.mu.Unlock()
	if c == nil {
		return
	}
	c.running.Store(false)
	c.cancel()
	select {
	case <-c.done:
	case <-time.After(l.cfg.StopTimeout()):
		l.log.Warnf("poll cycle did not stop within %s", l.cfg.StopTimeout())
	}
	c.mu.Lock()
	c.queue = nil
	c.mu.Unlock()
	l.qstate.Store(int32(QueueIdle))
}

// ResendCurrent transmits the command at the cursor again.
func (l *Link) ResendCurrent(ctx context.Context) error {
	l.mu.Lock()
	c := l.cycle
	l.mu.Unlock()
	if c == nil {
		return ErrNoCommand
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue == nil {
		return ErrNoCommand
	}
	cmd, ok := c.queue.Current()
	if !ok {
		return ErrNoCommand
	}
	return l.send(ctx, cmd)
}

func (l *Link) newCycle(q *CommandQueue) *pollCycle {
	return &pollCycle{queue: q, done: make(chan struct{})}
}

func (l *Link) start(c *pollCycle) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running.Store(true)
	go l.run(ctx, c)
}

func (l *Link) run(ctx context.Context, c *pollCycle) {
	defer close(c.done)
	ticker := time.NewTicker(l.cfg.Interval())
	defer ticker.Stop()
	l.tick(ctx, c)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.running.Load() {
				return
			}
			l.tick(ctx, c)
		}
	}
}

// send must be called with c.mu held.
func (l *Link) send(ctx context.Context, cmd model.MovementCommand) error {
	l.qstate.Store(int32(CommandInFlight))
	if err := l.transport.Send(ctx, cmd); err != nil {
		commandDeliveryFailures.WithLabelValues(l.name).Inc()
		l.log.Errorf("send command to %s: %v", cmd.Step.Destination.Name, err)
		return fmt.Errorf("%w: %s: %w", ErrCommandDelivery, l.name, err)
	}
	l.qstate.Store(int32(AwaitingConfirmation))
	l.log.Debugw("command sent", map[string]any{
		"destination": cmd.Step.Destination.Name,
		"operation":   cmd.Operation,
		"index":       cmd.Step.Index,
	})
	return nil
}

func (l *Link) tick(ctx context.Context, c *pollCycle) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("poll tick panic: %v", r)
			l.log.Errorf("%v", err)
			monitoring.CaptureException(err, monitoring.VehicleTags("vehicle", l.name))
			pollTicks.WithLabelValues(l.name, "panic").Inc()
		}
	}()
	if !c.running.Load() {
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, l.cfg.Interval())
	defer cancel()
	t, err := l.readTelemetry(readCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, protocol.ErrShortFrame) {
			telemetryDecodeFailures.WithLabelValues(l.name).Inc()
		}
		pollTicks.WithLabelValues(l.name, "read_error").Inc()
		l.log.Warnf("telemetry read: %v", err)
		return
	}
	l.model.ApplyTelemetry(t)
	pollTicks.WithLabelValues(l.name, "ok").Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue == nil || !c.running.Load() {
		return
	}
	cmd, ok := c.queue.Current()
	if !ok || !l.policy.CommandCompleted(cmd, t) {
		return
	}

	l.model.CommandExecuted(cmd)
	commandsExecuted.WithLabelValues(l.name).Inc()
	for _, fn := range l.listeners {
		fn(cmd)
	}
	if !c.queue.Advance() {
		l.log.Infof("route finished at %s", cmd.Step.Destination.Name)
		c.running.Store(false)
		c.cancel()
		l.qstate.Store(int32(QueueIdle))
		l.model.SetState(model.StateIdle)
		return
	}
	next, _ := c.queue.Current()
	_ = l.send(ctx, next)
}

// readTelemetry issues the three reads concurrently and succeeds only if all
// of them do.
func (l *Link) readTelemetry(ctx context.Context) (Telemetry, error) {
	var (
		status uint16
		dev    DeviceStatus
		pos    string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := l.transport.ReadVehicleStatus(gctx)
		if err != nil {
			return fmt.Errorf("vehicle status: %w", err)
		}
		status = v
		return nil
	})
	g.Go(func() error {
		v, err := l.transport.ReadDeviceStatus(gctx)
		if err != nil {
			return fmt.Errorf("device status: %w", err)
		}
		dev = v
		return nil
	})
	g.Go(func() error {
		v, err := l.transport.ReadPosition(gctx)
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		pos = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return Telemetry{}, err
	}
	return Telemetry{State: StateFromCode(status), Devices: dev, Position: pos}, nil
}
