package index

// Union accumulates listeners from several sets into one ordered,
// duplicate-free sequence. A listener keeps the position of its first
// occurrence. Union is not safe for concurrent use; it is meant to be owned
// by a single dispatch.
type Union[L any] struct {
	m members[L]
}

// Add appends every listener not already present.
func (u *Union[L]) Add(ls ...L) {
	for _, l := range ls {
		u.m.add(l)
	}
}

// Items returns the accumulated listeners in order.
func (u *Union[L]) Items() []L {
	return u.m.items
}

// Len returns the number of accumulated listeners.
func (u *Union[L]) Len() int {
	return u.m.len()
}
