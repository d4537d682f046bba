package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single call into a script.
const DefaultTimeout = 5 * time.Second

// state wraps a sandboxed LState. Every method locks mu, since an LState
// must not be used from two goroutines at once.
type state struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newState() *state {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	return &state{L: L}
}

// openSafeLibraries opens only the libraries a listener needs. io, os,
// debug and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *state) doString(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.protect(func() error {
		return s.L.DoString(source)
	})
}

// isFunction reports whether the global name is a Lua function.
func (s *state) isFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// call invokes the global function fn with arguments built by args, which
// runs under the lock. It returns the first result, or LNil.
func (s *state) call(ctx context.Context, timeout time.Duration, fn string, args func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, ErrClosed
	}

	f, ok := s.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("function %q not found", fn)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	var ret lua.LValue = lua.LNil
	err := s.protect(func() error {
		if err := s.L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, args(s.L)...); err != nil {
			return err
		}
		ret = s.L.Get(-1)
		s.L.Pop(1)
		return nil
	})
	return ret, err
}

// protect turns a Go panic raised inside the interpreter into an error.
func (s *state) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
