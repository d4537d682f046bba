package event

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event/topic"
)

// Registration is total: every entry point below accepts its key and
// listener unconditionally, and registering a listener that is already a
// member of the same index is a silent no-op. A nil listener is ignored.
// The string-pattern entry points can fail only to compile their expression.

// Subscribe registers s for every event published on the bus.
func (b *Bus) Subscribe(s Subscriber) {
	if b.rejectNil(s, "all") {
		return
	}
	b.logAdded(RoleSubscriber, "all", nil, s, b.subscribers.all.Add(s))
}

// SubscribeToType registers s for events whose runtime type is t or is-a t:
// embeds t, or implements t when t is an interface type.
func (b *Bus) SubscribeToType(t reflect.Type, s Subscriber) {
	if b.rejectNil(s, "type") {
		return
	}
	b.logAdded(RoleSubscriber, "type", t, s, b.subscribers.byType.Add(t, s))
}

// SubscribeToExactType registers s for events whose runtime type is exactly t.
func (b *Bus) SubscribeToExactType(t reflect.Type, s Subscriber) {
	if b.rejectNil(s, "exact-type") {
		return
	}
	b.logAdded(RoleSubscriber, "exact-type", t, s, b.subscribers.byExactType.Add(t, s))
}

// SubscribeToTopicPattern registers s for events whose topic matches p.
func (b *Bus) SubscribeToTopicPattern(p topic.Pattern, s Subscriber) {
	if b.rejectNil(s, "pattern") {
		return
	}
	b.logAdded(RoleSubscriber, "pattern", p, s, b.subscribers.addPattern(p, s))
}

// SubscribeToTopic compiles expr as a regular expression that must match
// the whole topic and registers s for it.
func (b *Bus) SubscribeToTopic(expr string, s Subscriber) error {
	p, err := compile(expr)
	if err != nil {
		return err
	}
	b.SubscribeToTopicPattern(p, s)
	return nil
}

// SubscribeToExactTopic registers s for events published with topic t.
func (b *Bus) SubscribeToExactTopic(t topic.Topic, s Subscriber) {
	if b.rejectNil(s, "exact-topic") {
		return
	}
	b.logAdded(RoleSubscriber, "exact-topic", t, s, b.subscribers.byTopic.Add(t, s))
}

// SubscribeVeto registers v for every event published on the bus.
func (b *Bus) SubscribeVeto(v VetoListener) {
	if b.rejectNil(v, "all") {
		return
	}
	b.logAdded(RoleVeto, "all", nil, v, b.vetoes.all.Add(v))
}

// SubscribeVetoToType registers v for events whose runtime type is-a t.
func (b *Bus) SubscribeVetoToType(t reflect.Type, v VetoListener) {
	if b.rejectNil(v, "type") {
		return
	}
	b.logAdded(RoleVeto, "type", t, v, b.vetoes.byType.Add(t, v))
}

// SubscribeVetoToExactType registers v for events whose runtime type is exactly t.
func (b *Bus) SubscribeVetoToExactType(t reflect.Type, v VetoListener) {
	if b.rejectNil(v, "exact-type") {
		return
	}
	b.logAdded(RoleVeto, "exact-type", t, v, b.vetoes.byExactType.Add(t, v))
}

// SubscribeVetoToTopicPattern registers v for events whose topic matches p.
func (b *Bus) SubscribeVetoToTopicPattern(p topic.Pattern, v VetoListener) {
	if b.rejectNil(v, "pattern") {
		return
	}
	b.logAdded(RoleVeto, "pattern", p, v, b.vetoes.addPattern(p, v))
}

// SubscribeVetoToTopic compiles expr as a whole-topic regular expression and
// registers v for it.
func (b *Bus) SubscribeVetoToTopic(expr string, v VetoListener) error {
	p, err := compile(expr)
	if err != nil {
		return err
	}
	b.SubscribeVetoToTopicPattern(p, v)
	return nil
}

// SubscribeVetoToExactTopic registers v for events published with topic t.
func (b *Bus) SubscribeVetoToExactTopic(t topic.Topic, v VetoListener) {
	if b.rejectNil(v, "exact-topic") {
		return
	}
	b.logAdded(RoleVeto, "exact-topic", t, v, b.vetoes.byTopic.Add(t, v))
}

// SubscribeType registers s for events that are a T.
func SubscribeType[T any](b *Bus, s Subscriber) {
	b.SubscribeToType(reflect.TypeFor[T](), s)
}

// SubscribeExactType registers s for events whose type is exactly T.
func SubscribeExactType[T any](b *Bus, s Subscriber) {
	b.SubscribeToExactType(reflect.TypeFor[T](), s)
}

// SubscribeVetoType registers v for events that are a T.
func SubscribeVetoType[T any](b *Bus, v VetoListener) {
	b.SubscribeVetoToType(reflect.TypeFor[T](), v)
}

// SubscribeVetoExactType registers v for events whose type is exactly T.
func SubscribeVetoExactType[T any](b *Bus, v VetoListener) {
	b.SubscribeVetoToExactType(reflect.TypeFor[T](), v)
}

// On registers fn for events that are a T and returns the subscriber it
// created, so that it can be registered elsewhere with the same identity.
func On[T any](b *Bus, fn func(ctx context.Context, t topic.Topic, event T) error) Subscriber {
	s := Typed(fn)
	SubscribeType[T](b, s)
	return s
}

func compile(expr string) (topic.Pattern, error) {
	p, err := topic.CompileRegexp(expr)
	if err != nil {
		return nil, &PatternError{Expr: expr, Err: err}
	}
	return p, nil
}

func (b *Bus) rejectNil(l any, kind string) bool {
	if l != nil {
		return false
	}
	b.log.Warn("ignored nil listener", zap.String("index", kind))
	return true
}

func (b *Bus) logAdded(role Role, kind string, key any, l any, added bool) {
	if ce := b.log.Check(zap.DebugLevel, "added "+role.String()); ce != nil {
		ce.Write(
			zap.String("index", kind),
			zap.Any("key", key),
			zap.String("listener", describe(l)),
			zap.Bool("duplicate", !added),
		)
	}
}
