package event

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/vetobus/internal/event/hierarchy"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Subscriber receives delivered events.
// Returning an error aborts the delivery in progress and is reported to the
// publisher.
type Subscriber interface {
	OnEvent(ctx context.Context, t topic.Topic, event any) error
}

// VetoListener may refuse the delivery of an event before any subscriber
// sees it. Returning true suppresses the event; returning an error aborts
// the publish.
type VetoListener interface {
	ShouldVeto(ctx context.Context, t topic.Topic, event any) (bool, error)
}

type subscriberFunc struct {
	fn func(ctx context.Context, t topic.Topic, event any) error
}

func (s *subscriberFunc) OnEvent(ctx context.Context, t topic.Topic, event any) error {
	return s.fn(ctx, t, event)
}

// NewSubscriber adapts fn to a Subscriber. Each call returns a listener with
// its own identity: registering the returned value twice under the same
// index is a no-op, registering two adapters of the same func is not.
func NewSubscriber(fn func(ctx context.Context, t topic.Topic, event any) error) Subscriber {
	return &subscriberFunc{fn: fn}
}

type vetoFunc struct {
	fn func(ctx context.Context, t topic.Topic, event any) (bool, error)
}

func (v *vetoFunc) ShouldVeto(ctx context.Context, t topic.Topic, event any) (bool, error) {
	return v.fn(ctx, t, event)
}

// NewVetoListener adapts fn to a VetoListener, with the same identity rules
// as NewSubscriber.
func NewVetoListener(fn func(ctx context.Context, t topic.Topic, event any) (bool, error)) VetoListener {
	return &vetoFunc{fn: fn}
}

// Typed adapts a handler for events that are a T. An event of another type
// that is-a T (a pointer to T, or a struct embedding T) is projected onto
// its T part. Events that are not a T are ignored, which only happens when
// the returned subscriber is registered under an index that does not
// guarantee the type (universal or topic). An event that reaches T only
// through a nil pointer fails with ErrNilPointer.
func Typed[T any](fn func(ctx context.Context, t topic.Topic, event T) error) Subscriber {
	want := reflect.TypeFor[T]()
	return NewSubscriber(func(ctx context.Context, t topic.Topic, event any) error {
		if e, ok := event.(T); ok {
			return fn(ctx, t, e)
		}
		v, ok := hierarchy.Project(reflect.ValueOf(event), want)
		if !ok {
			if hierarchy.IsA(reflect.TypeOf(event), want) {
				return fmt.Errorf("%w: %T has no %v", ErrNilPointer, event, want)
			}
			return nil
		}
		return fn(ctx, t, v.Interface().(T))
	})
}

// Role tells veto listeners and subscribers apart in errors, logs and metrics.
type Role int

const (
	// RoleVeto identifies a VetoListener.
	RoleVeto Role = iota

	// RoleSubscriber identifies a Subscriber.
	RoleSubscriber
)

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleVeto:
		return "veto listener"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

// describe renders a listener for log fields.
func describe(l any) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", l)
}
