package event

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event/dispatch"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Publish publishes event without a topic. See PublishTopic.
func (b *Bus) Publish(ctx context.Context, event any) (bool, error) {
	return b.PublishTopic(ctx, topic.None, event)
}

// PublishTopic delivers event, tagged with topic t, to the bus's listeners.
//
// Matching veto listeners run first, in registration order. The first one to
// return true suppresses the event: PublishTopic returns false and no
// subscriber runs. Otherwise every matching subscriber runs in order and
// PublishTopic returns true.
//
// Delivery is fail-fast. An error or panic from any listener stops the
// delivery at once and is returned as a *ListenerError; listeners after it
// in the same call are skipped. A nil event is rejected with ErrNilEvent
// before any listener runs.
//
// ctx is handed to every listener unchanged. The bus itself never cancels a
// delivery.
func (b *Bus) PublishTopic(ctx context.Context, t topic.Topic, event any) (bool, error) {
	if event == nil {
		b.rejected.Add(1)
		return false, ErrNilEvent
	}
	b.published.Add(1)

	typ := reflect.TypeOf(event)
	if ce := b.log.Check(zap.DebugLevel, "publishing"); ce != nil {
		ce.Write(zap.Stringer("topic", t), zap.Stringer("type", typ))
	}

	for _, v := range b.vetoes.resolve(b.resolver, typ, t) {
		var veto bool
		res := b.executor.Execute(func() (err error) {
			veto, err = v.ShouldVeto(ctx, t, event)
			return err
		})
		b.vetoChecks.Add(1)
		if err := b.failure(res, RoleVeto, v, t, typ); err != nil {
			return false, err
		}
		if veto {
			b.vetoed.Add(1)
			b.log.Debug("event vetoed",
				zap.String("listener", describe(v)),
				zap.Stringer("topic", t),
				zap.Stringer("type", typ))
			return false, nil
		}
	}

	for _, s := range b.subscribers.resolve(b.resolver, typ, t) {
		res := b.executor.Execute(func() error {
			return s.OnEvent(ctx, t, event)
		})
		b.deliveries.Add(1)
		if err := b.failure(res, RoleSubscriber, s, t, typ); err != nil {
			return false, err
		}
	}

	b.delivered.Add(1)
	return true, nil
}

// failure accounts for one listener call and converts a failed result into
// the error returned from PublishTopic.
func (b *Bus) failure(res dispatch.Result, role Role, l any, t topic.Topic, typ reflect.Type) error {
	b.listenerNs.Add(res.Duration.Nanoseconds())
	if res.IsSuccess() {
		return nil
	}
	b.failed.Add(1)

	err := &ListenerError{
		Bus:       b.name,
		Role:      role,
		Topic:     t,
		EventType: typ,
		Listener:  l,
		Err:       res.Err(),
	}
	b.log.Error(role.String()+" failed",
		zap.String("listener", describe(l)),
		zap.Stringer("topic", t),
		zap.Stringer("type", typ),
		zap.Error(res.Err()))
	return err
}

// Listeners returns the subscribers that would receive an event of the
// given type and topic, in delivery order, without invoking anything.
func (b *Bus) Listeners(typ reflect.Type, t topic.Topic) []Subscriber {
	return b.subscribers.resolve(b.resolver, typ, t)
}

// VetoListeners returns the veto listeners that would be consulted for an
// event of the given type and topic, in order.
func (b *Bus) VetoListeners(typ reflect.Type, t topic.Topic) []VetoListener {
	return b.vetoes.resolve(b.resolver, typ, t)
}
