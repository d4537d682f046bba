package event

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dshills/vetobus/internal/event/dispatch"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrNilEvent is returned when a nil event is published. No listener runs.
	ErrNilEvent = errors.New("can't publish nil event")

	// ErrListenerPanic matches, via errors.Is, any delivery aborted by a
	// panicking listener.
	ErrListenerPanic = errors.New("listener panicked")

	// ErrInvalidPattern is returned when a topic pattern does not compile.
	ErrInvalidPattern = errors.New("invalid topic pattern")

	// ErrNilPointer is returned by a Typed handler when the event is-a T
	// but reaches it through a nil pointer: a typed nil or a nil embedding.
	ErrNilPointer = errors.New("event reaches handler type through a nil pointer")
)

// PanicError is the cause recorded in a ListenerError when the listener
// panicked instead of returning.
type PanicError = dispatch.PanicError

// ListenerError reports the listener that aborted a publish.
// Unwrap returns the listener's own error unchanged.
type ListenerError struct {
	// Bus is the name of the bus the event was published on.
	Bus string

	// Role tells whether a veto listener or a subscriber failed.
	Role Role

	// Topic is the topic the event was published with.
	Topic topic.Topic

	// EventType is the runtime type of the event.
	EventType reflect.Type

	// Listener is the failing listener.
	Listener any

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("bus %s: %s %s failed on event {topic=%q, type=%v}: %v",
		e.Bus, e.Role, describe(e.Listener), e.Topic, e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match a panicking listener with ErrListenerPanic.
func (e *ListenerError) Is(target error) bool {
	if target != ErrListenerPanic {
		return false
	}
	var pe *PanicError
	return errors.As(e.Err, &pe)
}

// PatternError is returned by the string-pattern entry points.
type PatternError struct {
	// Expr is the expression that failed to compile.
	Expr string

	// Err is the compile error.
	Err error
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid topic pattern %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying error.
func (e *PatternError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match PatternError with ErrInvalidPattern.
func (e *PatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}
