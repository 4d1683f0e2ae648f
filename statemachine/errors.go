package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrNotTotal indicates that a declared state has no route for a signal.
	ErrNotTotal = errors.New("no route for signal")
	// ErrUnknownTarget indicates that a route leads to an undeclared state.
	ErrUnknownTarget = errors.New("route target is not a declared state")
	// ErrDuplicateState indicates that a state was declared twice.
	ErrDuplicateState = errors.New("duplicate state declaration")
	// ErrDuplicateMapping indicates that a signal was mapped twice for one state.
	ErrDuplicateMapping = errors.New("duplicate signal mapping")
	// ErrInvalidSignal indicates a value outside the four engine signals.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrUndeclaredInitial indicates that the initial state is missing from the table.
	ErrUndeclaredInitial = errors.New("initial state is not declared")
	// ErrStepLimit indicates that RunUntil gave up before reaching its target.
	ErrStepLimit = errors.New("step limit reached")
)

// StateError wraps an error with state context.
type StateError[S comparable] struct {
	State S
	Err   error
}

func (e *StateError[S]) Error() string {
	return fmt.Sprintf("state %v: %v", e.State, e.Err)
}

func (e *StateError[S]) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with the route it concerns.
type TransitionError[S comparable] struct {
	From   S
	Signal Signal
	To     S
	Err    error
}

func (e *TransitionError[S]) Error() string {
	return fmt.Sprintf("transition %v --%s--> %v: %v", e.From, e.Signal, e.To, e.Err)
}

func (e *TransitionError[S]) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError[S comparable](state S, err error) error {
	if err == nil {
		return nil
	}

	return &StateError[S]{
		State: state,
		Err:   err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError[S comparable](from S, signal Signal, to S, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError[S]{
		From:   from,
		Signal: signal,
		To:     to,
		Err:    err,
	}
}
