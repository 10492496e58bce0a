package action

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInFlight is returned when a command would disturb a running attempt.
	ErrInFlight = errors.New("action: attempt in flight")

	// ErrInvalidTransition is returned when a command is not valid in the current state.
	ErrInvalidTransition = errors.New("action: invalid transition")

	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("action: coordinator closed")

	// ErrOperationPanicked wraps a panic recovered from an operation.
	ErrOperationPanicked = errors.New("action: operation panicked")
)

// OperationError is the error held by a Failure state.
type OperationError struct {
	Action  string
	Attempt uuid.UUID
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: attempt %s failed: %v", e.Action, e.Attempt, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
