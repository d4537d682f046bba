package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registry is a directory of named buses.
//
// Buses are created lazily by Get and live as long as the registry. There is
// no removal. A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	buses map[any]*Bus
	names map[string]bool
	order []*Bus

	config busConfig
}

// NewRegistry creates an empty registry. opts apply to every bus the
// registry creates, named or anonymous.
func NewRegistry(opts ...BusOption) *Registry {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Registry{
		buses:  make(map[any]*Bus),
		names:  make(map[string]bool),
		config: config,
	}
}

// Get returns the bus registered under key, creating it on first use.
// The bus is named after the key; names are unique within the registry.
//
// String keys are case-insensitive: they are lower-cased with English rules
// before lookup. Any other key is compared with ==, so it must be comparable;
// Get panics otherwise, as a map would. Concurrent calls with equal keys
// always receive the same *Bus.
func (r *Registry) Get(key any) *Bus {
	key = normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buses[key]; ok {
		return b
	}

	name := r.uniqueName(key)
	b := newBus(name, false, r.config)
	r.buses[key] = b
	r.order = append(r.order, b)

	r.config.logger.Info("created event bus", zap.String("bus", name))
	return b
}

// uniqueName names the bus for key. Keys that print alike, such as "1" and
// 1, get a "#n" suffix in creation order so that names stay distinct.
func (r *Registry) uniqueName(key any) string {
	base := fmt.Sprint(key)
	name := base
	for n := 2; r.names[name]; n++ {
		name = fmt.Sprintf("%s#%d", base, n)
	}
	r.names[name] = true
	return name
}

// NewAnonymous creates a bus that is never stored in the registry and can
// only be reached through the returned pointer.
func (r *Registry) NewAnonymous() *Bus {
	name := "anonymous-" + uuid.NewString()
	b := newBus(name, true, r.config)
	r.config.logger.Info("created anonymous event bus", zap.String("bus", name))
	return b
}

// Len returns the number of named buses.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Buses returns the named buses in creation order.
func (r *Registry) Buses() []*Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Bus, len(r.order))
	copy(out, r.order)
	return out
}

func normalizeKey(key any) any {
	switch k := key.(type) {
	case nil:
		return nil
	case string:
		// A Caser is stateful and must not be shared between goroutines.
		return cases.Lower(language.English).String(k)
	}
	if !reflect.ValueOf(key).Comparable() {
		panic(fmt.Sprintf("event: bus key of type %T is not comparable", key))
	}
	return key
}

// The process-wide registry. It is populated lazily and never torn down.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by GetBus.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GetBus returns the process-wide bus registered under key. See Registry.Get.
func GetBus(key any) *Bus {
	return defaultRegistry.Get(key)
}

// NewAnonymousBus creates a bus that no registry knows about.
func NewAnonymousBus() *Bus {
	return defaultRegistry.NewAnonymous()
}
