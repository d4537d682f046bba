package index

import "sync"

// Index is an ordered multimap from key to an ordered, duplicate-free set of
// listeners. Keys keep the order in which they were first added.
// The zero value is ready to use. An Index is safe for concurrent use.
type Index[K comparable, L any] struct {
	mu   sync.Mutex
	keys []K
	sets map[K]*members[L]
}

// Add registers l under key, creating the key's set on first use.
// It reports false when l was already registered under key.
func (x *Index[K, L]) Add(key K, l L) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok := x.sets[key]
	if !ok {
		if x.sets == nil {
			x.sets = make(map[K]*members[L])
		}
		set = &members[L]{}
		x.sets[key] = set
		x.keys = append(x.keys, key)
	}
	return set.add(l)
}

// Len returns the number of distinct keys.
func (x *Index[K, L]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.keys)
}

// Size returns the number of (key, listener) registrations.
func (x *Index[K, L]) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, set := range x.sets {
		n += set.len()
	}
	return n
}

// AppendExact copies the listeners registered under key into u.
func (x *Index[K, L]) AppendExact(key K, u *Union[L]) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if set, ok := x.sets[key]; ok {
		u.Add(set.items...)
	}
}

// AppendMatching copies into u the listeners of every key satisfying pred.
// pred runs with the index locked and must not call back into the index.
func (x *Index[K, L]) AppendMatching(pred func(K) bool, u *Union[L]) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, key := range x.keys {
		if pred(key) {
			u.Add(x.sets[key].items...)
		}
	}
}
