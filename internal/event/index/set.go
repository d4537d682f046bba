package index

import "sync"

// Set is an ordered, duplicate-free collection of listeners.
// The zero value is ready to use. A Set is safe for concurrent use.
type Set[L any] struct {
	mu sync.Mutex
	m  members[L]
}

// Add inserts l at the end of the set. It reports false, and leaves the set
// untouched, when l is already a member.
func (s *Set[L]) Add(l L) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.add(l)
}

// Len returns the number of members.
func (s *Set[L]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.len()
}

// AppendTo copies the members into u, in insertion order.
func (s *Set[L]) AppendTo(u *Union[L]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Add(s.m.items...)
}
