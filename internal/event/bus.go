package event

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event/dispatch"
	"github.com/dshills/vetobus/internal/event/hierarchy"
	"github.com/dshills/vetobus/internal/event/index"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Bus is an isolated publish/subscribe domain.
//
// A Bus holds five listener indices for subscribers and the same five for
// veto listeners: universal, by type (hierarchy-inclusive), by exact type, by
// topic pattern and by exact topic. Each index has its own lock. Registering
// and publishing are safe to call from any number of goroutines.
//
// Buses are obtained from a Registry, by key, or created anonymously. They
// are never torn down.
type Bus struct {
	name      string
	anonymous bool

	log      *zap.Logger
	resolver *hierarchy.Resolver
	executor *dispatch.Executor

	subscribers listeners[Subscriber]
	vetoes      listeners[VetoListener]

	// Stats
	published  atomic.Uint64
	delivered  atomic.Uint64
	vetoed     atomic.Uint64
	failed     atomic.Uint64
	rejected   atomic.Uint64
	vetoChecks atomic.Uint64
	deliveries atomic.Uint64
	panics     atomic.Uint64
	listenerNs atomic.Int64
}

// patternKey identifies a pattern registration. Patterns are keyed by kind
// and source so that equal patterns compiled twice share one member set.
type patternKey struct {
	kind   reflect.Type
	source string
}

// listeners is the set of five indices kept for one listener role.
type listeners[L any] struct {
	all         index.Set[L]
	byType      index.Index[reflect.Type, L]
	byExactType index.Index[reflect.Type, L]
	byPattern   index.Index[patternKey, L]
	byTopic     index.Index[topic.Topic, L]

	// patterns maps each patternKey to the first Pattern registered for it.
	patterns sync.Map
}

func (ls *listeners[L]) addPattern(p topic.Pattern, l L) bool {
	key := patternKey{kind: reflect.TypeOf(p), source: p.String()}
	ls.patterns.LoadOrStore(key, p)
	return ls.byPattern.Add(key, l)
}

func (ls *listeners[L]) pattern(key patternKey) topic.Pattern {
	p, _ := ls.patterns.Load(key)
	return p.(topic.Pattern)
}

// resolve returns the ordered union of every listener matching an event of
// type typ published with topic t. The order is universal, exact type,
// hierarchy, exact topic, then topic patterns; a listener keeps the position
// of its first match.
func (ls *listeners[L]) resolve(r *hierarchy.Resolver, typ reflect.Type, t topic.Topic) []L {
	var u index.Union[L]

	ls.all.AppendTo(&u)
	ls.byExactType.AppendExact(typ, &u)
	ls.byType.AppendMatching(func(key reflect.Type) bool {
		return r.IsA(typ, key)
	}, &u)

	if !t.IsNone() {
		ls.byTopic.AppendExact(t, &u)
		ls.byPattern.AppendMatching(func(key patternKey) bool {
			return ls.pattern(key).Match(t)
		}, &u)
	}

	return u.Items()
}

// count returns the number of registrations across all five indices.
func (ls *listeners[L]) count() int {
	return ls.all.Len() + ls.byType.Size() + ls.byExactType.Size() +
		ls.byPattern.Size() + ls.byTopic.Size()
}

func newBus(name string, anonymous bool, cfg busConfig) *Bus {
	b := &Bus{
		name:      name,
		anonymous: anonymous,
		log:       cfg.logger.Named("event").With(zap.String("bus", name)),
		resolver:  cfg.resolver,
	}
	b.executor = dispatch.NewExecutor(dispatch.WithPanicHandler(func(v any, stack []byte) {
		b.panics.Add(1)
		b.log.Error("listener panicked", zap.Any("panic", v), zap.ByteString("stack", stack))
	}))
	return b
}

// Name returns the bus's registry name, or a generated name for anonymous
// buses. Names are for logs and metrics only.
func (b *Bus) Name() string {
	return b.name
}

// Anonymous reports whether the bus is unreachable through any registry.
func (b *Bus) Anonymous() bool {
	return b.anonymous
}

// Stats contains bus statistics.
type Stats struct {
	// Published is the number of publish calls that passed the nil check.
	Published uint64

	// Delivered is the number of publishes where every subscriber ran.
	Delivered uint64

	// Vetoed is the number of publishes suppressed by a veto listener.
	Vetoed uint64

	// Failed is the number of publishes aborted by a listener error or panic.
	Failed uint64

	// Rejected is the number of publishes refused for a nil event.
	Rejected uint64

	// VetoChecks is the number of veto listener invocations.
	VetoChecks uint64

	// Deliveries is the number of subscriber invocations.
	Deliveries uint64

	// Panics is the number of listener panics.
	Panics uint64

	// ListenerTime is the cumulative time spent inside listeners.
	ListenerTime time.Duration

	// Subscribers is the number of subscriber registrations.
	Subscribers int

	// VetoListeners is the number of veto listener registrations.
	VetoListeners int
}

// Stats returns current bus statistics.
// Counters are read individually and may be slightly inconsistent under
// concurrent publishing.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Vetoed:        b.vetoed.Load(),
		Failed:        b.failed.Load(),
		Rejected:      b.rejected.Load(),
		VetoChecks:    b.vetoChecks.Load(),
		Deliveries:    b.deliveries.Load(),
		Panics:        b.panics.Load(),
		ListenerTime:  time.Duration(b.listenerNs.Load()),
		Subscribers:   b.subscribers.count(),
		VetoListeners: b.vetoes.count(),
	}
}
