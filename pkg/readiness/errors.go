package readiness

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("readiness: gate already started")

	// ErrMissingDependency is returned when a GateConfig collaborator is nil.
	ErrMissingDependency = errors.New("readiness: missing dependency")
)

// ProbeError reports that a readiness input could not be fetched.
type ProbeError struct {
	Input string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Input, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
