package dispatch

import (
	"fmt"
	"time"
)

// Result represents the outcome of one listener call.
type Result struct {
	// Error is the error returned by the listener, if any.
	Error error

	// Panicked is true if the listener panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the listener took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the listener returned without error or panic.
func (r Result) IsSuccess() bool {
	return !r.Panicked && r.Error == nil
}

// Err returns the failure as an error: the listener's own error, a
// *PanicError for a panic, or nil on success.
func (r Result) Err() error {
	if r.Panicked {
		return &PanicError{Value: r.PanicValue, Stack: r.PanicStack}
	}
	return r.Error
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// PanicHandler is called when a listener panics, before Execute returns.
type PanicHandler func(panicValue any, stack []byte)
