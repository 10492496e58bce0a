package signout

import (
	"github.com/bft-labs/sessionguard/pkg/action"
	"github.com/bft-labs/sessionguard/pkg/log"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

// ConfirmPolicy decides when a logout request needs confirmation.
type ConfirmPolicy int

const (
	// ConfirmWhenNotReady asks for confirmation unless the readiness gate
	// says sign-out is safe.
	ConfirmWhenNotReady ConfirmPolicy = iota

	// ConfirmAlways asks for confirmation on every first request.
	ConfirmAlways
)

func (p ConfirmPolicy) String() string {
	switch p {
	case ConfirmAlways:
		return "always"
	case ConfirmWhenNotReady:
		return "when-not-ready"
	default:
		return "unknown"
	}
}

// SessionState is the lifecycle state of a presenter.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionActive
	SessionClosing
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "Idle"
	case SessionActive:
		return "Active"
	case SessionClosing:
		return "Closing"
	case SessionClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// SessionEvent reports a presenter lifecycle change.
type SessionEvent struct {
	Previous SessionState
	Current  SessionState
	Reason   string
}

// LogoutEvent reports a logout action transition.
type LogoutEvent struct {
	Previous action.State[string]
	Current  action.State[string]
}

// EventHandler receives presenter notifications. Calls are synchronous and
// ordered per kind; handlers must not call Handle from inside a callback.
type EventHandler interface {
	OnSessionStateChange(event SessionEvent)
	OnLogoutStateChange(event LogoutEvent)
	OnReadinessChange(r readiness.Readiness)
}

// BaseEventHandler provides no-op implementations of EventHandler.
type BaseEventHandler struct{}

func (BaseEventHandler) OnSessionStateChange(SessionEvent)     {}
func (BaseEventHandler) OnLogoutStateChange(LogoutEvent)       {}
func (BaseEventHandler) OnReadinessChange(readiness.Readiness) {}

// Option configures optional behavior of a Presenter.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	policy       ConfirmPolicy
	flagID       string
	observers    []action.Observer[string]
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		policy: ConfirmWhenNotReady,
		flagID: readiness.DefaultFlagID,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithEventHandler sets a handler for presenter events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithActionObserver registers observer on the logout coordinator. It is
// called synchronously after the view state has been updated.
func WithActionObserver(observer action.Observer[string]) Option {
	return func(o *options) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithConfirmPolicy sets when logout asks for confirmation.
// Default: ConfirmWhenNotReady.
func WithConfirmPolicy(policy ConfirmPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithFeatureFlag sets the flag that enables backup upload tracking.
// Default: readiness.DefaultFlagID.
func WithFeatureFlag(flagID string) Option {
	return func(o *options) {
		if flagID != "" {
			o.flagID = flagID
		}
	}
}
