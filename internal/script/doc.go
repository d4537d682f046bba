// Package script runs bus listeners written in Lua.
//
// A script is a Lua chunk that defines one or both of these globals:
//
//	function on_event(topic, event)       -- subscriber
//	function should_veto(topic, event)    -- veto listener, returns a boolean
//
// topic is a string, or nil for events published without a topic. event is
// the Go event converted to Lua: scalars map to Lua scalars, slices and
// arrays to sequences, maps and structs to tables (struct fields use their
// json tag names). Anything else is passed as userdata.
//
// Each script owns a sandboxed gopher-lua state with only the base, table,
// string and math libraries. dofile, loadfile, load and require are removed.
// A script may call log(msg) to write to the script's logger.
//
// gopher-lua states are single-threaded, so calls into one script are
// serialized. A Lua error, or exceeding the call timeout, fails the listener
// call and with it the publish.
package script
