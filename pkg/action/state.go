package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies which variant of State is active.
type Kind int

const (
	KindUninitialized Kind = iota
	KindConfirming
	KindLoading
	KindSuccess
	KindFailure
)

// String returns the state name.
func (k Kind) String() string {
	switch k {
	case KindUninitialized:
		return "Uninitialized"
	case KindConfirming:
		return "Confirming"
	case KindLoading:
		return "Loading"
	case KindSuccess:
		return "Success"
	case KindFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Operation is the fallible work a Coordinator runs.
type Operation[T any] func(ctx context.Context) (T, error)

// State is the tagged union exposed by a Coordinator. The zero value is
// Uninitialized. Fields are unexported so only the five variants below can
// be built.
type State[T any] struct {
	kind    Kind
	value   T
	err     error
	attempt uuid.UUID
}

// Uninitialized returns the initial state.
func Uninitialized[T any]() State[T] {
	return State[T]{kind: KindUninitialized}
}

// Confirming returns the state awaiting user confirmation.
func Confirming[T any]() State[T] {
	return State[T]{kind: KindConfirming}
}

// Loading returns the in-flight state of attempt.
func Loading[T any](attempt uuid.UUID) State[T] {
	return State[T]{kind: KindLoading, attempt: attempt}
}

// Success returns the completed state of attempt holding v.
func Success[T any](attempt uuid.UUID, v T) State[T] {
	return State[T]{kind: KindSuccess, attempt: attempt, value: v}
}

// Failure returns the failed state of attempt holding err.
func Failure[T any](attempt uuid.UUID, err error) State[T] {
	return State[T]{kind: KindFailure, attempt: attempt, err: err}
}

func (s State[T]) Kind() Kind { return s.kind }

// Value returns the produced value; ok is false unless the state is Success.
func (s State[T]) Value() (v T, ok bool) {
	if s.kind != KindSuccess {
		return v, false
	}
	return s.value, true
}

// Err returns the failure detail, or nil unless the state is Failure.
func (s State[T]) Err() error {
	if s.kind != KindFailure {
		return nil
	}
	return s.err
}

// Attempt returns the attempt id for Loading, Success and Failure, and
// uuid.Nil otherwise.
func (s State[T]) Attempt() uuid.UUID { return s.attempt }

func (s State[T]) IsUninitialized() bool { return s.kind == KindUninitialized }
func (s State[T]) IsConfirming() bool    { return s.kind == KindConfirming }
func (s State[T]) IsLoading() bool       { return s.kind == KindLoading }
func (s State[T]) IsSuccess() bool       { return s.kind == KindSuccess }
func (s State[T]) IsFailure() bool       { return s.kind == KindFailure }

// IsTerminal reports whether the state is Success or Failure.
func (s State[T]) IsTerminal() bool {
	return s.kind == KindSuccess || s.kind == KindFailure
}

func (s State[T]) String() string {
	switch s.kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", s.value)
	case KindFailure:
		return fmt.Sprintf("Failure(%v)", s.err)
	default:
		return s.kind.String()
	}
}
