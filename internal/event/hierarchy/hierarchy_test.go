package hierarchy

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type base struct{ ID int }

type middle struct {
	base
	Name string
}

type leaf struct {
	*middle
}

type unrelated struct{ ID int }

type named string

func (n named) String() string { return string(n) }

type loop struct {
	*loop
}

func TestIsA(t *testing.T) {
	stringer := reflect.TypeFor[fmt.Stringer]()
	anyType := reflect.TypeFor[any]()

	tests := []struct {
		name string
		t    reflect.Type
		key  reflect.Type
		want bool
	}{
		{"same type", reflect.TypeFor[base](), reflect.TypeFor[base](), true},
		{"embedded", reflect.TypeFor[middle](), reflect.TypeFor[base](), true},
		{"embedded through pointer", reflect.TypeFor[leaf](), reflect.TypeFor[base](), true},
		{"embedded pointer form", reflect.TypeFor[leaf](), reflect.TypeFor[*middle](), true},
		{"pointer event", reflect.TypeFor[*middle](), reflect.TypeFor[base](), true},
		{"no reverse", reflect.TypeFor[base](), reflect.TypeFor[middle](), false},
		{"same shape different type", reflect.TypeFor[unrelated](), reflect.TypeFor[base](), false},
		{"interface implemented", reflect.TypeFor[named](), stringer, true},
		{"interface not implemented", reflect.TypeFor[base](), stringer, false},
		{"empty interface", reflect.TypeFor[base](), anyType, true},
		{"string is not named", reflect.TypeFor[string](), reflect.TypeFor[named](), false},
		{"nil key", reflect.TypeFor[base](), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsA(tt.t, tt.key))
		})
	}
}

func TestResolver_SelfEmbeddingTerminates(t *testing.T) {
	r := NewResolver(4)
	assert.True(t, r.IsA(reflect.TypeFor[loop](), reflect.TypeFor[loop]()))
	assert.True(t, r.IsA(reflect.TypeFor[*loop](), reflect.TypeFor[loop]()))
}

type Root struct{ ID int }

type Wrapper struct {
	Root
	Name string
}

type PtrWrapper struct {
	*Wrapper
}

type hiddenRoot struct {
	base
}

func TestProject(t *testing.T) {
	rootType := reflect.TypeFor[Root]()
	rootPtr := reflect.TypeFor[*Root]()

	tests := []struct {
		name string
		v    any
		to   reflect.Type
		want any
	}{
		{"same type", Root{ID: 1}, rootType, Root{ID: 1}},
		{"pointer to value", &Root{ID: 2}, rootType, Root{ID: 2}},
		{"value to pointer", Root{ID: 3}, rootPtr, &Root{ID: 3}},
		{"embedded value", Wrapper{Root: Root{ID: 4}}, rootType, Root{ID: 4}},
		{"embedded value to pointer", Wrapper{Root: Root{ID: 5}}, rootPtr, &Root{ID: 5}},
		{"through embedded pointer", PtrWrapper{&Wrapper{Root: Root{ID: 6}}}, rootType, Root{ID: 6}},
		{"interface", named("x"), reflect.TypeFor[fmt.Stringer](), named("x")},
		{"unexported embedding", hiddenRoot{base{ID: 7}}, reflect.TypeFor[base](), base{ID: 7}},
		{"unexported embedding to pointer", &hiddenRoot{base{ID: 8}}, reflect.TypeFor[*base](), &base{ID: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Project(reflect.ValueOf(tt.v), tt.to)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestProject_CopiesUnaddressableValues(t *testing.T) {
	w := Wrapper{Root: Root{ID: 1}}
	got, ok := Project(reflect.ValueOf(w), reflect.TypeFor[*Root]())
	assert.True(t, ok)

	got.Interface().(*Root).ID = 99
	assert.Equal(t, 1, w.ID)
}

func TestProject_AliasesThroughPointers(t *testing.T) {
	h := &hiddenRoot{base{ID: 1}}
	got, ok := Project(reflect.ValueOf(h), reflect.TypeFor[*base]())
	assert.True(t, ok)
	assert.Same(t, &h.base, got.Interface().(*base))
}

func TestProject_Unreachable(t *testing.T) {
	tests := []struct {
		name string
		v    reflect.Value
		to   reflect.Type
	}{
		{"unrelated", reflect.ValueOf(unrelated{}), reflect.TypeFor[Root]()},
		{"nil embedded pointer", reflect.ValueOf(PtrWrapper{}), reflect.TypeFor[Root]()},
		{"nil pointer", reflect.ValueOf((*Root)(nil)), reflect.TypeFor[Root]()},
		{"invalid value", reflect.Value{}, reflect.TypeFor[Root]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Project(tt.v, tt.to)
			assert.False(t, ok)
		})
	}
}

func TestResolver_CacheIsBounded(t *testing.T) {
	r := NewResolver(2)
	r.IsA(reflect.TypeFor[base](), reflect.TypeFor[middle]())
	r.IsA(reflect.TypeFor[middle](), reflect.TypeFor[leaf]())
	r.IsA(reflect.TypeFor[leaf](), reflect.TypeFor[unrelated]())

	assert.Equal(t, 2, r.Len())
}
