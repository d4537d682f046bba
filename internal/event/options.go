package event

import (
	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event/hierarchy"
)

// BusOption configures a Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for a bus.
type busConfig struct {
	// logger receives bus activity; named "event" and tagged with the bus name.
	logger *zap.Logger

	// resolver decides type-hierarchy matches.
	resolver *hierarchy.Resolver
}

// defaultBusConfig returns a silent configuration using the shared resolver.
func defaultBusConfig() busConfig {
	return busConfig{
		logger:   zap.NewNop(),
		resolver: hierarchy.Default(),
	}
}

// WithLogger sets the logger for the bus.
func WithLogger(l *zap.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResolver sets the type-hierarchy resolver, e.g. one with a larger cache.
func WithResolver(r *hierarchy.Resolver) BusOption {
	return func(c *busConfig) {
		if r != nil {
			c.resolver = r
		}
	}
}
