package signout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/sessionguard/internal/app"
	"github.com/bft-labs/sessionguard/internal/domain"
	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/internal/watch"
	"github.com/bft-labs/sessionguard/pkg/action"
	"github.com/bft-labs/sessionguard/pkg/log"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

// DefaultCloseTimeout bounds how long Close waits for a running logout.
const DefaultCloseTimeout = app.ShutdownTimeout

// ActionName labels the logout coordinator in logs and metrics.
const ActionName = "logout"

// Errors returned by the presenter.
var (
	ErrAlreadyStarted  = domain.ErrAlreadyActive
	ErrNotActive       = domain.ErrNotActive
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// LogoutOperation ends the current session; see ports.LogoutOperation.
type LogoutOperation = ports.LogoutOperation

// LogoutFunc adapts a function to LogoutOperation.
type LogoutFunc = ports.LogoutFunc

// Dependencies are the presenter's collaborators. All are required.
type Dependencies struct {
	Logout  LogoutOperation
	Probe   readiness.LastDeviceProbe
	Uploads readiness.BackupUploadStateSource
	Flags   readiness.FeatureFlagSource
}

type ignoreServerErrorKey struct{}

// Presenter drives one sign-out screen session.
type Presenter struct {
	opts      options
	logger    log.Logger
	lifecycle *app.Lifecycle
	gate      *readiness.Gate
	logout    *action.Coordinator[string]

	// mu serializes view updates so stores keep their order.
	mu   sync.Mutex
	view ViewState
	out  *watch.Value[ViewState]
}

// New creates a presenter in SessionIdle; call Start to begin observing.
func New(deps Dependencies, opts ...Option) (*Presenter, error) {
	if deps.Logout == nil {
		return nil, fmt.Errorf("%w: logout operation is required", readiness.ErrMissingDependency)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(log.String("component", "signout"))

	gate, err := readiness.NewGate(readiness.GateConfig{
		FlagID:  o.flagID,
		Flags:   deps.Flags,
		Probe:   deps.Probe,
		Uploads: deps.Uploads,
	}, readiness.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	p := &Presenter{
		opts:   o,
		logger: logger,
		gate:   gate,
	}
	p.lifecycle = app.NewLifecycle(logger, &sessionEmitter{handler: o.eventHandler})

	p.logout = action.NewCoordinator(ActionName, func(ctx context.Context) (string, error) {
		ignore, _ := ctx.Value(ignoreServerErrorKey{}).(bool)
		return deps.Logout.Logout(ctx, ignore)
	}, action.WithLogger(logger))
	p.logout.Observe(action.ObserverFunc[string](p.onLogoutChange))
	for _, obs := range o.observers {
		p.logout.Observe(obs)
	}

	p.view = ViewState{LogoutAction: p.logout.State()}
	p.out = watch.NewWith(p.view)
	return p, nil
}

// Start begins observing readiness. The presenter accepts events until
// Close is called or ctx ends.
func (p *Presenter) Start(ctx context.Context) error {
	if err := p.lifecycle.TransitionTo(app.StateActive, "start"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.lifecycle.SetCancel(cancel)

	if err := p.gate.Start(runCtx); err != nil {
		cancel()
		return err
	}

	updates := p.gate.Subscribe(runCtx)
	p.lifecycle.Go(func() {
		for r := range updates {
			p.onReadinessChange(r)
		}
	})

	p.logger.Info("presenter started",
		log.Stringer("confirm_policy", p.opts.policy),
		log.String("flag", p.opts.flagID),
	)
	return nil
}

// Handle processes a user event. Operation failures are reported through
// the LogoutAction state, not returned.
func (p *Presenter) Handle(ctx context.Context, event Event) error {
	if !p.lifecycle.IsActive() {
		return ErrNotActive
	}

	switch e := event.(type) {
	case Logout:
		requireConfirmation := p.opts.policy == ConfirmAlways || !p.gate.Ready()
		p.logger.Debug("logout requested",
			log.Bool("require_confirmation", requireConfirmation),
			log.Bool("ignore_server_error", e.IgnoreServerError),
		)
		ctx = context.WithValue(ctx, ignoreServerErrorKey{}, e.IgnoreServerError)
		return p.logout.RequestStart(ctx, requireConfirmation, e.IgnoreServerError)

	case CloseDialogs:
		return p.logout.Dismiss()

	default:
		return fmt.Errorf("signout: unsupported event %T", event)
	}
}

// State returns the latest view state.
func (p *Presenter) State() ViewState {
	v, _ := p.out.Load()
	return v
}

// SessionState returns the presenter's lifecycle state.
func (p *Presenter) SessionState() SessionState {
	return convertState(p.lifecycle.State())
}

// Subscribe streams the current view state and every change, in order.
func (p *Presenter) Subscribe(ctx context.Context) <-chan ViewState {
	return p.out.Subscribe(ctx)
}

// Wait blocks until no logout is running or ctx ends.
func (p *Presenter) Wait(ctx context.Context) error {
	return p.logout.Wait(ctx)
}

// Close stops observing readiness and waits up to timeout for a running
// logout to finish. A logout still running after timeout keeps going in
// the background and ErrShutdownTimeout is returned.
func (p *Presenter) Close(timeout time.Duration) error {
	if !p.lifecycle.CanClose() {
		return nil
	}
	if p.lifecycle.State() == app.StateIdle {
		if err := p.lifecycle.TransitionTo(app.StateClosed, "closed before start"); err == nil {
			p.shutdown()
			return nil
		}
	}
	if err := p.lifecycle.TransitionTo(app.StateClosing, "close"); err != nil {
		return nil
	}

	deadline := time.Now().Add(timeout)
	p.lifecycle.Cancel()

	waitCtx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	var result error
	if err := p.logout.Wait(waitCtx); err != nil {
		p.logger.Warn("logout still running at close", log.Duration("timeout", timeout))
		result = ErrShutdownTimeout
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	if err := p.lifecycle.WaitWithTimeout(remaining); err != nil {
		result = err
	}

	p.shutdown()
	_ = p.lifecycle.TransitionTo(app.StateClosed, "closed")
	return result
}

func (p *Presenter) shutdown() {
	p.gate.Close()
	p.logout.Close()
	p.out.Close()
}

func (p *Presenter) onLogoutChange(previous, current action.State[string]) {
	p.update(func(v *ViewState) { v.LogoutAction = current })
	if p.opts.eventHandler != nil {
		p.opts.eventHandler.OnLogoutStateChange(LogoutEvent{Previous: previous, Current: current})
	}
}

func (p *Presenter) onReadinessChange(r readiness.Readiness) {
	p.update(func(v *ViewState) {
		v.Readiness = r
		v.ReadinessResolved = true
		v.CanDoDirectSignOut = computeCanDoDirectSignOut(r)
	})
	if p.opts.eventHandler != nil {
		p.opts.eventHandler.OnReadinessChange(r)
	}
}

func (p *Presenter) update(fn func(v *ViewState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.view)
	p.out.Store(p.view)
}

// sessionEmitter adapts EventHandler to the lifecycle emitter.
type sessionEmitter struct {
	handler EventHandler
}

func (e *sessionEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnSessionStateChange(SessionEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) SessionState {
	switch s {
	case app.StateIdle:
		return SessionIdle
	case app.StateActive:
		return SessionActive
	case app.StateClosing:
		return SessionClosing
	case app.StateClosed:
		return SessionClosed
	default:
		return SessionIdle
	}
}
