package binding

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/hierarchy"
	"github.com/dshills/vetobus/internal/event/topic"
)

// DefaultBus is the bus key used by bindings that do not name one.
const DefaultBus = "default"

// Kind selects how a binding matches events.
type Kind int

const (
	// ByType matches events by runtime type.
	ByType Kind = iota

	// ByTopic matches events by topic.
	ByTopic
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case ByType:
		return "type"
	case ByTopic:
		return "topic"
	default:
		return "unknown"
	}
}

// Binding describes one listener registration.
type Binding struct {
	// Name identifies the binding in errors and logs, e.g. the method name.
	Name string

	// Bus is the registry key of the target bus. Nil selects DefaultBus.
	Bus any

	// Kind selects type or topic matching.
	Kind Kind

	// Exact restricts a ByType binding to the exact type and a ByTopic
	// binding to the literal topic instead of a regular expression.
	Exact bool

	// Type is the event type of a ByType binding. Nil selects the type of
	// the handler's event parameter.
	Type reflect.Type

	// Topic is the exact topic or whole-topic regular expression of a
	// ByTopic binding.
	Topic string

	// Veto registers the handler as a veto listener.
	Veto bool

	// Handler is the function to call.
	Handler any
}

// Buses resolves bus keys. *event.Registry implements it.
type Buses interface {
	Get(key any) *event.Bus
}

// Sentinel errors wrapped by BindingError.
var (
	// ErrSignature means the handler does not have a supported shape.
	ErrSignature = errors.New("unsupported handler signature")

	// ErrEventType means the bound type can't be passed to the handler.
	ErrEventType = errors.New("event parameter doesn't match event type")

	// ErrEmptyTopic means a ByTopic binding has no topic.
	ErrEmptyTopic = errors.New("can't bind to empty topic")

	// ErrKind means the binding kind is unknown.
	ErrKind = errors.New("unknown binding kind")
)

// BindingError reports a binding that can't be registered.
type BindingError struct {
	// Target is the value the binding was derived from, if any.
	Target any

	// Name is the binding name.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	if e.Target != nil {
		return fmt.Sprintf("can't bind %s in %T: %v", e.Name, e.Target, e.Err)
	}
	return fmt.Sprintf("can't bind %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindingError) Unwrap() error {
	return e.Err
}

// Apply registers every binding on its bus. target is only used in error
// messages and may be nil.
//
// All bindings are checked first. If any is invalid, Apply returns the
// joined errors and registers nothing.
func Apply(buses Buses, target any, bindings ...Binding) error {
	ready := make([]prepared, 0, len(bindings))
	var errs []error
	for i, b := range bindings {
		if b.Name == "" {
			b.Name = fmt.Sprintf("binding #%d", i)
		}
		p, err := prepare(b)
		if err != nil {
			errs = append(errs, &BindingError{Target: target, Name: b.Name, Err: err})
			continue
		}
		ready = append(ready, p)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, p := range ready {
		p.register(buses.Get(p.bus))
	}
	return nil
}

// Bind registers the On and Veto methods of target. See Methods.
func Bind(buses Buses, target any) error {
	return Apply(buses, target, Methods(target)...)
}

// prepared is a checked binding ready for registration.
type prepared struct {
	bus     any
	kind    Kind
	exact   bool
	typ     reflect.Type
	topic   topic.Topic
	pattern topic.Pattern
	h       *handler
}

func prepare(b Binding) (prepared, error) {
	h, err := newHandler(b.Name, b.Handler, b.Veto)
	if err != nil {
		return prepared{}, err
	}

	p := prepared{bus: b.Bus, kind: b.Kind, exact: b.Exact, h: h}
	if p.bus == nil {
		p.bus = DefaultBus
	}

	switch b.Kind {
	case ByType:
		p.typ = b.Type
		if p.typ == nil {
			p.typ = h.event
		} else if !compatible(p.typ, h.event) {
			return prepared{}, fmt.Errorf("%w: %v is not a %v", ErrEventType, p.typ, h.event)
		}
	case ByTopic:
		if b.Topic == "" {
			return prepared{}, ErrEmptyTopic
		}
		if h.event.Kind() != reflect.Interface || h.event.NumMethod() != 0 {
			return prepared{}, fmt.Errorf("%w: topic handlers take any, not %v", ErrEventType, h.event)
		}
		if b.Exact {
			p.topic = topic.Topic(b.Topic)
		} else {
			re, err := topic.CompileRegexp(b.Topic)
			if err != nil {
				return prepared{}, &event.PatternError{Expr: b.Topic, Err: err}
			}
			p.pattern = re
		}
	default:
		return prepared{}, fmt.Errorf("%w: %d", ErrKind, b.Kind)
	}
	return p, nil
}

// compatible reports whether every event that is-a typ can be handed to a
// parameter of type param.
func compatible(typ, param reflect.Type) bool {
	return typ.AssignableTo(param) || hierarchy.IsA(typ, param)
}

func (p prepared) register(bus *event.Bus) {
	if p.h.veto {
		v := p.h.vetoListener()
		switch {
		case p.kind == ByType && p.exact:
			bus.SubscribeVetoToExactType(p.typ, v)
		case p.kind == ByType:
			bus.SubscribeVetoToType(p.typ, v)
		case p.exact:
			bus.SubscribeVetoToExactTopic(p.topic, v)
		default:
			bus.SubscribeVetoToTopicPattern(p.pattern, v)
		}
		return
	}

	s := p.h.subscriber()
	switch {
	case p.kind == ByType && p.exact:
		bus.SubscribeToExactType(p.typ, s)
	case p.kind == ByType:
		bus.SubscribeToType(p.typ, s)
	case p.exact:
		bus.SubscribeToExactTopic(p.topic, s)
	default:
		bus.SubscribeToTopicPattern(p.pattern, s)
	}
}
