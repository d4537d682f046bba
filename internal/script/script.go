package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Names of the Lua globals a script defines.
const (
	OnEventFunc    = "on_event"
	ShouldVetoFunc = "should_veto"
)

// Option configures a Script.
type Option func(*Script)

// WithLogger sets the logger used by the script's log function.
func WithLogger(l *zap.Logger) Option {
	return func(s *Script) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds each call into the script. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Script) {
		s.timeout = d
	}
}

// Script is a loaded Lua listener.
type Script struct {
	name    string
	log     *zap.Logger
	timeout time.Duration
	state   *state

	subscriber *subscriber
	veto       *vetoListener
}

// Load compiles and runs source, which must define on_event, should_veto or
// both. name identifies the script in errors and logs.
func Load(name, source string, opts ...Option) (*Script, error) {
	s := &Script{
		name:    name,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		state:   newState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("script").With(zap.String("script", name))
	s.state.L.SetGlobal("log", s.state.L.NewFunction(s.luaLog))

	if err := s.state.doString(source); err != nil {
		s.state.close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}

	if s.state.isFunction(OnEventFunc) {
		s.subscriber = &subscriber{s}
	}
	if s.state.isFunction(ShouldVetoFunc) {
		s.veto = &vetoListener{s}
	}
	if s.subscriber == nil && s.veto == nil {
		s.state.close()
		return nil, fmt.Errorf("load script %s: %w", name, ErrNoListener)
	}

	s.log.Debug("loaded script",
		zap.Bool("subscriber", s.subscriber != nil),
		zap.Bool("veto", s.veto != nil))
	return s, nil
}

// LoadFile loads the script at path, named by its base name.
func LoadFile(path string, opts ...Option) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Load(filepath.Base(path), string(data), opts...)
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Subscriber returns the script's on_event listener, or nil if the script
// does not define on_event. Every call returns the same listener.
func (s *Script) Subscriber() event.Subscriber {
	if s.subscriber == nil {
		return nil
	}
	return s.subscriber
}

// VetoListener returns the script's should_veto listener, or nil if the
// script does not define should_veto. Every call returns the same listener.
func (s *Script) VetoListener() event.VetoListener {
	if s.veto == nil {
		return nil
	}
	return s.veto
}

// Close releases the Lua state. Listener calls fail with ErrClosed afterwards.
func (s *Script) Close() {
	s.state.close()
}

func (s *Script) invoke(ctx context.Context, fn string, t topic.Topic, ev any) (lua.LValue, error) {
	ret, err := s.state.call(ctx, s.timeout, fn, func(L *lua.LState) []lua.LValue {
		var lt lua.LValue = lua.LNil
		if !t.IsNone() {
			lt = lua.LString(t)
		}
		return []lua.LValue{lt, toLua(L, ev)}
	})
	if err != nil {
		return lua.LNil, fmt.Errorf("script %s: %s: %w", s.name, fn, err)
	}
	return ret, nil
}

// luaLog implements log(msg [, fields]) for scripts.
func (s *Script) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	var fields []zap.Field
	if t, ok := L.Get(2).(*lua.LTable); ok {
		if m, ok := toGo(t).(map[string]any); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fields = append(fields, zap.Any(k, m[k]))
			}
		}
	}
	s.log.Info(msg, fields...)
	return 0
}

type subscriber struct{ s *Script }

func (l *subscriber) OnEvent(ctx context.Context, t topic.Topic, ev any) error {
	_, err := l.s.invoke(ctx, OnEventFunc, t, ev)
	return err
}

func (l *subscriber) String() string { return l.s.name + ":" + OnEventFunc }

type vetoListener struct{ s *Script }

func (l *vetoListener) ShouldVeto(ctx context.Context, t topic.Topic, ev any) (bool, error) {
	ret, err := l.s.invoke(ctx, ShouldVetoFunc, t, ev)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

func (l *vetoListener) String() string { return l.s.name + ":" + ShouldVetoFunc }
