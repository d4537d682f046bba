// Package index provides the listener indices behind the event bus.
//
// A Set holds an ordered, duplicate-free collection of listeners. An Index maps
// keys (types, topics, patterns) to such collections and remembers the order in
// which keys were first used. Both are guarded by their own mutex, so
// registrations on unrelated indices never contend.
//
// Reads never hand out internal slices. Callers collect matches into a Union,
// a caller-owned accumulator, while the index lock is held only for copying
// member references. Iterating the Union needs no lock at all, which lets
// registrations proceed while a dispatch is in flight.
//
// # Identity
//
// Listener identity is the listener value itself, provided it is comparable
// at runtime. Pointers are the usual case. Values that cannot be compared
// (func values, structs holding slices or maps) have no identity: each
// insertion of such a value is a distinct member and is never de-duplicated.
package index
