package index

import "reflect"

// identity returns the de-duplication key for v, or false when v cannot be
// compared at runtime.
func identity(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if !reflect.ValueOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

// members is the unsynchronized ordered set shared by Set, Index and Union.
type members[L any] struct {
	items []L
	seen  map[any]struct{}
}

func (m *members[L]) add(l L) bool {
	key, ok := identity(l)
	if ok {
		if _, dup := m.seen[key]; dup {
			return false
		}
		if m.seen == nil {
			m.seen = make(map[any]struct{})
		}
		m.seen[key] = struct{}{}
	}
	m.items = append(m.items, l)
	return true
}

func (m *members[L]) len() int {
	return len(m.items)
}
