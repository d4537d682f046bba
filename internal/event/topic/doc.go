// Package topic provides the topic type and the topic patterns understood by
// the event bus.
//
// # Topic Format
//
// A topic is an optional string tag. The empty topic means "no topic".
// Topics are usually written in dot-notation:
//
//	buffer.content.inserted
//	fs.write
//	key.enter
//
// # Patterns
//
// Two Pattern implementations are provided:
//
//   - Regexp: a regular expression that must match the entire topic
//   - Wildcard: dot-segment globbing with "*" (one segment) and "**" (any number)
//
// Examples:
//
//	topic.MustCompileRegexp(`fs\.(write|create)`)   matches fs.write, fs.create
//	topic.Wildcard("buffer.*")                      matches buffer.saved (not buffer.content.inserted)
//	topic.Wildcard("buffer.**")                     matches buffer.saved, buffer.content.inserted
//	topic.Wildcard("*.changed")                     matches config.changed, cursor.changed
//
// No pattern ever matches the empty topic.
package topic
