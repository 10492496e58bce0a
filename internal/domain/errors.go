package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when no session is stored.
	ErrNoSession = errors.New("sessionguard: no session")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("sessionguard: invalid configuration")

	// ErrInvalidSession is returned when a stored session lacks required fields.
	ErrInvalidSession = errors.New("sessionguard: invalid session")
)

// ServerError is returned when the homeserver rejects a request.
type ServerError struct {
	StatusCode int
	// ErrCode is the Matrix errcode from the response body, if any.
	ErrCode string
	Body    string
}

func (e *ServerError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.ErrCode, e.Body)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the token was already invalid.
func (e *ServerError) Unauthorized() bool {
	return e.StatusCode == 401
}

// Presenter session errors.
var (
	// ErrAlreadyActive is returned when Start is called on a started session.
	ErrAlreadyActive = errors.New("sessionguard: session already active")

	// ErrNotActive is returned when an event arrives outside an active session.
	ErrNotActive = errors.New("sessionguard: session not active")

	// ErrShutdownTimeout is returned when Close gives up waiting for workers.
	ErrShutdownTimeout = errors.New("sessionguard: shutdown timeout")
)
