package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/sync/semaphore"

	"github.com/bft-labs/sessionguard/internal/watch"
	"github.com/bft-labs/sessionguard/pkg/log"
)

// Transition events of the underlying state machine.
const (
	EventRequestConfirmation = "request_confirmation"
	EventStart               = "start"
	EventSucceed             = "succeed"
	EventFail                = "fail"
	EventDismiss             = "dismiss"
)

var transitions = fsm.Events{
	{Name: EventRequestConfirmation, Src: []string{KindUninitialized.String(), KindSuccess.String(), KindFailure.String()}, Dst: KindConfirming.String()},
	{Name: EventStart, Src: []string{KindUninitialized.String(), KindConfirming.String(), KindSuccess.String(), KindFailure.String()}, Dst: KindLoading.String()},
	{Name: EventSucceed, Src: []string{KindLoading.String()}, Dst: KindSuccess.String()},
	{Name: EventFail, Src: []string{KindLoading.String()}, Dst: KindFailure.String()},
	{Name: EventDismiss, Src: []string{KindConfirming.String(), KindSuccess.String(), KindFailure.String()}, Dst: KindUninitialized.String()},
}

// Observer is notified of every state change, in transition order.
// Observers run synchronously and must not issue commands on the
// coordinator that notified them.
type Observer[T any] interface {
	OnStateChange(previous, current State[T])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[T any] func(previous, current State[T])

func (f ObserverFunc[T]) OnStateChange(previous, current State[T]) { f(previous, current) }

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Coordinator owns one action's lifecycle. It is safe for concurrent use,
// but is meant to be owned by a single presenter and never shared.
type Coordinator[T any] struct {
	name   string
	op     Operation[T]
	logger log.Logger

	// mu serializes commands and completions.
	mu      sync.Mutex
	machine *fsm.FSM
	state   State[T]
	closed  bool

	// emitMu is taken before mu is released so notifications keep
	// transition order without holding mu during callbacks.
	emitMu    sync.Mutex
	observers []Observer[T]

	current atomic.Pointer[State[T]]
	// inflight holds one slot for the whole of an attempt; failing to take
	// it is what rejects commands while Loading.
	inflight *semaphore.Weighted
	done     chan struct{} // closed after the running attempt's result is published
	updates  *watch.Value[State[T]]
}

// NewCoordinator creates a coordinator for op in the Uninitialized state.
// name identifies the action in logs and errors.
func NewCoordinator[T any](name string, op Operation[T], opts ...Option) *Coordinator[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger).With(log.String("action", name))

	initial := Uninitialized[T]()
	c := &Coordinator[T]{
		name:     name,
		op:       op,
		logger:   logger,
		state:    initial,
		inflight: semaphore.NewWeighted(1),
		updates:  watch.NewWith(initial),
	}
	c.current.Store(&initial)
	c.machine = fsm.NewFSM(
		initial.Kind().String(),
		transitions,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("fsm transition",
					log.String("event", e.Event),
					log.String("from", e.Src),
					log.String("to", e.Dst),
				)
			},
		},
	)
	return c
}

// Name returns the action name.
func (c *Coordinator[T]) Name() string {
	return c.name
}

// State returns the latest state without blocking on running commands.
func (c *Coordinator[T]) State() State[T] {
	return *c.current.Load()
}

// Observe registers an observer for subsequent state changes.
func (c *Coordinator[T]) Observe(o Observer[T]) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.observers = append(c.observers, o)
}

// Subscribe streams the current state followed by every change, in order.
// The channel closes when ctx ends or the coordinator is closed.
func (c *Coordinator[T]) Subscribe(ctx context.Context) <-chan State[T] {
	return c.updates.Subscribe(ctx)
}

// RequestStart asks for the action to run.
//
// When requireConfirmation is set, skipConfirmation is not, and the state is
// not already Confirming, the coordinator moves to Confirming and runs
// nothing. Otherwise it starts a new attempt. Either way the request is
// rejected with ErrInFlight while an attempt holds the execution slot.
// Failures of the operation itself are never returned here; they surface
// as a Failure state.
func (c *Coordinator[T]) RequestStart(ctx context.Context, requireConfirmation, skipConfirmation bool) error {
	c.mu.Lock()
	if err := c.acquireLocked(EventStart); err != nil {
		c.mu.Unlock()
		return err
	}

	if requireConfirmation && !skipConfirmation && !c.machine.Is(KindConfirming.String()) {
		c.inflight.Release(1)
		return c.fireLocked(ctx, EventRequestConfirmation, Confirming[T]())
	}
	return c.startLocked(ctx)
}

// Confirm starts the action after a confirmation request.
// It is only valid from Confirming.
func (c *Coordinator[T]) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if err := c.acquireLocked(EventStart); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.machine.Is(KindConfirming.String()) {
		c.inflight.Release(1)
		from := c.machine.Current()
		c.mu.Unlock()
		c.logger.Debug("confirm rejected", log.String("state", from))
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, from)
	}
	return c.startLocked(ctx)
}

// Dismiss resets Confirming, Success or Failure to Uninitialized.
// Dismissing while Loading has no effect on the running attempt and
// returns ErrInFlight; dismissing Uninitialized is a no-op.
func (c *Coordinator[T]) Dismiss() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.machine.Is(KindUninitialized.String()) {
		c.mu.Unlock()
		return nil
	}
	if !c.machine.Can(EventDismiss) {
		// Only Loading has no dismiss transition.
		c.mu.Unlock()
		c.logger.Debug("dismiss rejected", log.String("state", c.machine.Current()))
		return ErrInFlight
	}
	return c.fireLocked(context.Background(), EventDismiss, Uninitialized[T]())
}

// Wait blocks until no attempt is running or ctx ends. When it returns nil
// the attempt's final state has been delivered to observers.
func (c *Coordinator[T]) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further commands and ends subscriptions. A running attempt
// is not aborted; it completes in the background and its result is still
// recorded, but observers are no longer notified.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	loading := c.machine.Is(KindLoading.String())
	c.mu.Unlock()

	c.updates.Close()
	if loading {
		c.logger.Info("closed with attempt in flight; it will run to completion")
	}
}

// acquireLocked takes the execution slot for a start-type command. It
// fails after Close and while an attempt holds the slot.
func (c *Coordinator[T]) acquireLocked(event string) error {
	if c.closed {
		return ErrClosed
	}
	if !c.inflight.TryAcquire(1) {
		c.logger.Debug("command rejected while loading",
			log.String("event", event),
			log.Stringer("attempt", c.state.Attempt()),
		)
		return ErrInFlight
	}
	return nil
}

// startLocked begins a new attempt. Called with mu and the execution slot
// held; releases mu, and the slot too if the transition is refused.
func (c *Coordinator[T]) startLocked(ctx context.Context) error {
	prev := c.state
	if err := c.machine.Event(ctx, EventStart); err != nil {
		c.inflight.Release(1)
		c.mu.Unlock()
		return c.translate(err)
	}

	attempt := uuid.New()
	next := Loading[T](attempt)
	c.done = make(chan struct{})
	c.setLocked(next)
	c.publishLocked(prev, next)

	go c.run(context.WithoutCancel(ctx), attempt)
	return nil
}

// finishLocked releases the execution slot of the running attempt and
// returns its done channel. The caller closes it once observers have run.
func (c *Coordinator[T]) finishLocked() chan struct{} {
	c.inflight.Release(1)
	done := c.done
	c.done = nil
	return done
}

func closeDone(done chan struct{}) {
	if done != nil {
		close(done)
	}
}

// fireLocked applies event and publishes next. Called with mu held;
// releases it.
func (c *Coordinator[T]) fireLocked(ctx context.Context, event string, next State[T]) error {
	prev := c.state
	if err := c.machine.Event(ctx, event); err != nil {
		c.mu.Unlock()
		return c.translate(err)
	}
	c.setLocked(next)
	c.publishLocked(prev, next)
	return nil
}

func (c *Coordinator[T]) setLocked(next State[T]) {
	c.state = next
	c.current.Store(&next)
}

// publishLocked hands over from mu to emitMu and notifies.
func (c *Coordinator[T]) publishLocked(prev, next State[T]) {
	closed := c.closed
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	c.logger.Info("state transition",
		log.Stringer("from", prev.Kind()),
		log.Stringer("to", next.Kind()),
	)
	if closed {
		return
	}
	c.updates.Store(next)
	for _, o := range c.observers {
		o.OnStateChange(prev, next)
	}
}

func (c *Coordinator[T]) run(ctx context.Context, attempt uuid.UUID) {
	started := time.Now()
	value, err := c.invoke(ctx)
	elapsed := time.Since(started)

	c.mu.Lock()
	event, next := EventSucceed, Success[T](attempt, value)
	if err != nil {
		event = EventFail
		next = Failure[T](attempt, &OperationError{Action: c.name, Attempt: attempt, Err: err})
		c.logger.Error("operation failed",
			log.Stringer("attempt", attempt),
			log.Duration("elapsed", elapsed),
			log.Err(err),
		)
	} else {
		c.logger.Info("operation succeeded",
			log.Stringer("attempt", attempt),
			log.Duration("elapsed", elapsed),
		)
	}

	// The slot held since start keeps the machine in Loading, so both
	// completion events are always accepted.
	prev := c.state
	_ = c.machine.Event(ctx, event)
	c.setLocked(next)
	done := c.finishLocked()
	c.publishLocked(prev, next)
	closeDone(done)
}

func (c *Coordinator[T]) invoke(ctx context.Context) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return c.op(ctx)
}

func (c *Coordinator[T]) translate(err error) error {
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		c.logger.Debug("transition rejected",
			log.String("event", invalid.Event),
			log.String("state", invalid.State),
		)
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, invalid.Event, invalid.State)
	}
	return fmt.Errorf("action %s: %w", c.name, err)
}
