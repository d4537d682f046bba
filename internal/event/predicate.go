package event

import (
	"context"
	"strings"

	"github.com/dshills/vetobus/internal/event/topic"
)

// Predicate is a condition on a published event and its topic.
// Predicates must not block and never see a nil event.
type Predicate func(t topic.Topic, event any) bool

// VetoWhen returns a veto listener that refuses every event p holds for.
func VetoWhen(p Predicate) VetoListener {
	return NewVetoListener(func(_ context.Context, t topic.Topic, event any) (bool, error) {
		return p(t, event), nil
	})
}

// SubscribeWhen returns a subscriber that forwards to s only the events p
// holds for. The result is a new listener with its own identity.
func SubscribeWhen(p Predicate, s Subscriber) Subscriber {
	return NewSubscriber(func(ctx context.Context, t topic.Topic, event any) error {
		if !p(t, event) {
			return nil
		}
		return s.OnEvent(ctx, t, event)
	})
}

// TopicHasPrefix holds for events whose topic starts with prefix.
// It never holds for events without a topic.
func TopicHasPrefix(prefix string) Predicate {
	return func(t topic.Topic, _ any) bool {
		return !t.IsNone() && strings.HasPrefix(string(t), prefix)
	}
}

// TopicMatches holds for events whose topic matches pattern.
func TopicMatches(pattern topic.Pattern) Predicate {
	return func(t topic.Topic, _ any) bool {
		return pattern.Match(t)
	}
}

// PayloadIs holds for events that are a T and satisfy fn.
func PayloadIs[T any](fn func(event T) bool) Predicate {
	return func(_ topic.Topic, event any) bool {
		e, ok := event.(T)
		return ok && fn(e)
	}
}

// And holds when every predicate holds. And() always holds.
func And(ps ...Predicate) Predicate {
	return func(t topic.Topic, event any) bool {
		for _, p := range ps {
			if !p(t, event) {
				return false
			}
		}
		return true
	}
}

// Or holds when at least one predicate holds. Or() never holds.
func Or(ps ...Predicate) Predicate {
	return func(t topic.Topic, event any) bool {
		for _, p := range ps {
			if p(t, event) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(t topic.Topic, event any) bool {
		return !p(t, event)
	}
}

// Always holds for every event.
func Always() Predicate {
	return func(topic.Topic, any) bool { return true }
}

// Never holds for no event.
func Never() Predicate {
	return func(topic.Topic, any) bool { return false }
}
