package binding

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/hierarchy"
	"github.com/dshills/vetobus/internal/event/topic"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	boolType    = reflect.TypeFor[bool]()
	stringType  = reflect.TypeFor[string]()
	topicType   = reflect.TypeFor[topic.Topic]()
)

// handler calls a bound function through reflection.
type handler struct {
	name string
	fn   reflect.Value
	veto bool

	withContext bool
	withTopic   reflect.Type // nil when the topic is not passed
	event       reflect.Type
	withError   bool
}

func newHandler(name string, fn any, veto bool) (*handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrSignature)
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %v is not a func", ErrSignature, t)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("%w: nil handler", ErrSignature)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: %v is variadic", ErrSignature, t)
	}

	h := &handler{name: name, fn: v, veto: veto}

	in := make([]reflect.Type, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in = append(in, t.In(i))
	}
	if len(in) > 0 && in[0] == contextType {
		h.withContext = true
		in = in[1:]
	}
	switch len(in) {
	case 1:
		h.event = in[0]
	case 2:
		if in[0] != topicType && in[0] != stringType {
			return nil, fmt.Errorf("%w: first parameter of %v has to be a topic", ErrSignature, t)
		}
		h.withTopic = in[0]
		h.event = in[1]
	default:
		return nil, fmt.Errorf("%w: %v must take the event and optionally the topic", ErrSignature, t)
	}

	if err := h.checkResults(t); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *handler) checkResults(t reflect.Type) error {
	out := make([]reflect.Type, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out = append(out, t.Out(i))
	}

	if h.veto {
		if len(out) == 0 || out[0] != boolType {
			return fmt.Errorf("%w: veto handler %v must return bool", ErrSignature, t)
		}
		out = out[1:]
	}
	switch {
	case len(out) == 0:
	case len(out) == 1 && out[0] == errorType:
		h.withError = true
	default:
		return fmt.Errorf("%w: unexpected results of %v", ErrSignature, t)
	}
	return nil
}

// call invokes the handler. It fails when the event can't be passed to it.
func (h *handler) call(ctx context.Context, t topic.Topic, ev any) ([]reflect.Value, error) {
	arg, ok := hierarchy.Project(reflect.ValueOf(ev), h.event)
	if !ok {
		return nil, fmt.Errorf("%s: can't pass %T as %v", h.name, ev, h.event)
	}

	args := make([]reflect.Value, 0, 3)
	if h.withContext {
		if ctx == nil {
			ctx = context.Background()
		}
		args = append(args, reflect.ValueOf(ctx))
	}
	if h.withTopic != nil {
		args = append(args, reflect.ValueOf(t).Convert(h.withTopic))
	}
	args = append(args, arg)

	out := h.fn.Call(args)
	if h.withError {
		if err, _ := out[len(out)-1].Interface().(error); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (h *handler) subscriber() event.Subscriber {
	return &subscriber{h}
}

func (h *handler) vetoListener() event.VetoListener {
	return &vetoListener{h}
}

type subscriber struct{ h *handler }

func (s *subscriber) OnEvent(ctx context.Context, t topic.Topic, ev any) error {
	_, err := s.h.call(ctx, t, ev)
	return err
}

func (s *subscriber) String() string { return s.h.name }

type vetoListener struct{ h *handler }

func (v *vetoListener) ShouldVeto(ctx context.Context, t topic.Topic, ev any) (bool, error) {
	out, err := v.h.call(ctx, t, ev)
	if err != nil {
		return false, err
	}
	return out[0].Bool(), nil
}

func (v *vetoListener) String() string { return v.h.name }
