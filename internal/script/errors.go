package script

import "errors"

var (
	// ErrClosed is returned when calling into a closed script.
	ErrClosed = errors.New("script is closed")

	// ErrNoListener is returned by Load when a script defines neither
	// on_event nor should_veto.
	ErrNoListener = errors.New("script defines neither on_event nor should_veto")
)
