// Package event provides an in-process publish/subscribe bus with veto
// listeners.
//
// Producers publish arbitrary values, optionally tagged with a topic.
// Subscribers receive them and veto listeners may refuse them before any
// subscriber does. Both kinds of listener are matched in four overlapping
// ways:
//
//   - universally, for every event
//   - by type, hierarchy-inclusive (embedding and interface implementation)
//   - by exact runtime type
//   - by topic, either an exact topic or a topic.Pattern
//
// # Architecture
//
//	┌──────────────┐   Get(key)/NewAnonymous   ┌───────────────────────────────┐
//	│   Registry   │ ────────────────────────► │              Bus              │
//	│ name -> Bus  │                           │  5 subscriber indices         │
//	└──────────────┘                           │  5 veto indices (index pkg)   │
//	                                           │  Publish: veto, then deliver  │
//	                                           └───────────────────────────────┘
//
// # Delivery
//
// Publishing resolves the matching veto listeners, runs them in order and
// stops at the first one returning true. If none does, it resolves the
// matching subscribers and runs them in order. Within each group listeners
// are ordered universal first, then exact type, then type hierarchy, then
// exact topic, then topic patterns. A listener matched by several indices
// runs once, at the position of its first match.
//
// Delivery is synchronous and fail-fast: a listener returning an error, or
// panicking, aborts the publish and the failure is returned to the
// publisher as a *ListenerError.
//
// # Basic Usage
//
//	bus := event.GetBus("editor")
//
//	event.SubscribeType[fmt.Stringer](bus, event.NewSubscriber(
//	    func(ctx context.Context, t topic.Topic, ev any) error {
//	        fmt.Println(t, ev)
//	        return nil
//	    }))
//
//	bus.SubscribeVetoToExactTopic("shutdown", event.NewVetoListener(
//	    func(ctx context.Context, t topic.Topic, ev any) (bool, error) {
//	        return !allowShutdown(), nil
//	    }))
//
//	delivered, err := bus.PublishTopic(ctx, "shutdown", reason)
//
// # Thread Safety
//
// Registration and publishing may run concurrently from any number of
// goroutines. Each index has its own lock and publishing only holds it
// while copying member references, so a slow listener never blocks a
// registration or another publish. Listeners must manage their own
// thread safety.
//
// # Subpackages
//
//   - topic: topic type and patterns
//   - index: ordered, de-duplicating listener indices
//   - hierarchy: type is-a resolution
//   - dispatch: listener execution with panic recovery
//   - binding: declarative registration of handler funcs and methods
//   - metrics: Prometheus collector over bus statistics
package event
