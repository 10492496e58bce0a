package signout

import (
	"github.com/bft-labs/sessionguard/pkg/action"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

// Event is a user intent handled by the presenter.
type Event interface {
	isEvent()
}

// Logout requests sign-out of the current session.
type Logout struct {
	// IgnoreServerError starts the logout without confirmation and clears
	// the local session even when the homeserver call fails.
	IgnoreServerError bool
}

// CloseDialogs dismisses the confirmation prompt or the last result.
type CloseDialogs struct{}

func (Logout) isEvent()       {}
func (CloseDialogs) isEvent() {}

// ViewState is everything a sign-out screen renders.
type ViewState struct {
	// CanDoDirectSignOut is false while this is the last device or a key
	// backup upload is in progress.
	CanDoDirectSignOut bool

	// ReadinessResolved is false until the gate has emitted.
	ReadinessResolved bool
	Readiness         readiness.Readiness

	// LogoutAction holds the signed-out device id on success.
	LogoutAction action.State[string]
}

func computeCanDoDirectSignOut(r readiness.Readiness) bool {
	return !r.IsLastDevice && !r.UploadState.IsBackingUp()
}
