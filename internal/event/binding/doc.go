// Package binding registers plain Go functions and methods as bus listeners.
//
// A Binding names a handler, the bus it belongs to and what it listens for.
// Handlers take the event, optionally preceded by the topic and by a
// context.Context, and return nothing, an error, or (for veto bindings) a
// bool with an optional error:
//
//	func(e Event)
//	func(t topic.Topic, e Event) error
//	func(ctx context.Context, e Event) error
//	func(ctx context.Context, t string, e any) (bool, error)   // veto
//
// Apply checks every binding before registering any of them, so a bad
// binding leaves the buses untouched.
//
// Methods derives bindings from a value's methods named On<Name> (and
// Veto<Name> for veto listeners), each registered by the type of its event
// parameter on the default bus:
//
//	type Auditor struct{}
//
//	func (a *Auditor) OnSaved(e FileSaved) { ... }
//	func (a *Auditor) VetoLocked(e FileSaved) bool { ... }
//
//	err := binding.Bind(event.DefaultRegistry(), &Auditor{})
package binding
