package event

import (
	"context"
	"sync"

	"github.com/dshills/vetobus/internal/event/topic"
)

// sequence plays the role of an abstract event type: events are matched
// against it through interface implementation.
type sequence interface {
	Len() int
}

type text string

func (t text) Len() int { return len(t) }

// baseEvent is a concrete type that other events embed.
type baseEvent struct {
	Name string
}

func (b baseEvent) Len() int { return len(b.Name) }

type derivedEvent struct {
	baseEvent
	Extra int
}

type otherEvent struct{}

// call is one observed listener invocation.
type call struct {
	Name  string
	Topic topic.Topic
	Event any
}

// recorder builds listeners that log their invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) record(name string, t topic.Topic, ev any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{Name: name, Topic: t, Event: ev})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Name)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) sub(name string) Subscriber {
	return NewSubscriber(func(_ context.Context, t topic.Topic, ev any) error {
		r.record(name, t, ev)
		return nil
	})
}

func (r *recorder) failingSub(name string, err error) Subscriber {
	return NewSubscriber(func(_ context.Context, t topic.Topic, ev any) error {
		r.record(name, t, ev)
		return err
	})
}

func (r *recorder) veto(name string, refuse bool) VetoListener {
	return NewVetoListener(func(_ context.Context, t topic.Topic, ev any) (bool, error) {
		r.record(name, t, ev)
		return refuse, nil
	})
}

func (r *recorder) vetoWhen(name string, pred func(ev any) bool) VetoListener {
	return NewVetoListener(func(_ context.Context, t topic.Topic, ev any) (bool, error) {
		r.record(name, t, ev)
		return pred(ev), nil
	})
}
