package binding

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Method name prefixes recognized by Methods.
const (
	SubscriberPrefix = "On"
	VetoPrefix       = "Veto"
)

type method struct {
	index int
	name  string
	veto  bool
}

// methodCache maps a reflect.Type to its []method.
var methodCache sync.Map

// Methods returns a ByType binding on DefaultBus for every exported method
// of target named On<Name> or Veto<Name>, where <Name> starts with an upper
// case letter. Bindings are ordered by method name. The returned slice may
// be edited before passing it to Apply, e.g. to change the bus.
//
// Methods does not check signatures; Apply does.
func Methods(target any) []Binding {
	if target == nil {
		return nil
	}
	v := reflect.ValueOf(target)
	methods := methodsOf(v.Type())

	out := make([]Binding, 0, len(methods))
	for _, m := range methods {
		out = append(out, Binding{
			Name:    m.name,
			Kind:    ByType,
			Veto:    m.veto,
			Handler: v.Method(m.index).Interface(),
		})
	}
	return out
}

func methodsOf(t reflect.Type) []method {
	if cached, ok := methodCache.Load(t); ok {
		return cached.([]method)
	}

	var methods []method
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		switch {
		case hasPrefix(name, SubscriberPrefix):
			methods = append(methods, method{index: i, name: name})
		case hasPrefix(name, VetoPrefix):
			methods = append(methods, method{index: i, name: name, veto: true})
		}
	}

	actual, _ := methodCache.LoadOrStore(t, methods)
	return actual.([]method)
}

func hasPrefix(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r)
}
