// Package hierarchy resolves the "is-a" relation used by type-based
// subscriptions.
//
// Go has no class inheritance, so an event type T is considered to be a K when
//
//   - T and K are the same type,
//   - K is an interface type and T implements it, or
//   - K is a struct type (or pointer to one) that T embeds, directly or
//     through other embedded structs. Pointers are looked through: *T is a T,
//     and a struct embedding *Base is a Base.
//
// Embedding sets are computed once per type and kept in an LRU cache.
// Project extracts the K part of a value that is-a K, so that handlers typed
// for K can be called with it.
package hierarchy

import (
	"reflect"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of event types whose ancestry is cached.
const DefaultCacheSize = 1024

type ancestry map[reflect.Type]struct{}

// Resolver answers is-a queries. It is safe for concurrent use.
type Resolver struct {
	cache *lru.Cache[reflect.Type, ancestry]
}

// NewResolver creates a resolver caching up to size event types.
// A non-positive size selects DefaultCacheSize.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[reflect.Type, ancestry](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Resolver{cache: cache}
}

var defaultResolver = NewResolver(DefaultCacheSize)

// Default returns the process-wide resolver.
func Default() *Resolver {
	return defaultResolver
}

// IsA reports whether values of type t are deliverable to registrations
// for key, using the default resolver.
func IsA(t, key reflect.Type) bool {
	return defaultResolver.IsA(t, key)
}

// IsA reports whether values of type t are deliverable to registrations
// for key.
func (r *Resolver) IsA(t, key reflect.Type) bool {
	if t == nil || key == nil {
		return false
	}
	if t == key {
		return true
	}
	if key.Kind() == reflect.Interface {
		return t.Implements(key)
	}
	_, ok := r.ancestry(t)[key]
	return ok
}

// Len returns the number of cached types.
func (r *Resolver) Len() int {
	return r.cache.Len()
}

func (r *Resolver) ancestry(t reflect.Type) ancestry {
	if a, ok := r.cache.Get(t); ok {
		return a
	}
	a := build(t)
	r.cache.Add(t, a)
	return a
}

func build(t reflect.Type) ancestry {
	a := ancestry{t: {}}
	visited := make(map[reflect.Type]bool)

	var walk func(reflect.Type)
	walk = func(typ reflect.Type) {
		for typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if visited[typ] {
			return
		}
		visited[typ] = true

		a[typ] = struct{}{}
		a[reflect.PointerTo(typ)] = struct{}{}

		if typ.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if f.Anonymous {
				walk(f.Type)
			}
		}
	}
	walk(t)
	return a
}

// Project finds the part of v that can be passed where a to is expected:
// v itself, the value behind a pointer, its address, or an embedded field.
// A value that is not addressable is copied before its address or an
// embedded field is taken, so the result never aliases a value the caller
// passed by value. Through pointers it does alias, as a method promoted
// through the embedding would.
//
// Project reports false when v is not a to, or is one only through a nil
// embedded pointer.
func Project(v reflect.Value, to reflect.Type) (reflect.Value, bool) {
	if !v.IsValid() || to == nil {
		return reflect.Value{}, false
	}
	if v.Type().AssignableTo(to) {
		return v, true
	}
	if !v.CanAddr() && (v.Kind() == reflect.Struct || to.Kind() == reflect.Pointer && v.Kind() != reflect.Pointer) {
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		v = c
	}
	if to.Kind() == reflect.Pointer && v.CanAddr() && v.Addr().Type().AssignableTo(to) {
		return v.Addr(), true
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return Project(v.Elem(), to)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).Anonymous {
				continue
			}
			if r, ok := Project(field(v, i), to); ok {
				return r, true
			}
		}
	}
	return reflect.Value{}, false
}

// field returns field i of the addressable struct v. Unexported embedded
// fields are re-rooted at their address so that they can be read and
// passed on like exported ones.
func field(v reflect.Value, i int) reflect.Value {
	f := v.Field(i)
	if f.CanInterface() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}
