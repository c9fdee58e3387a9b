// Package luahost implements the host editor contract with a Lua script.
//
// The script defines three global functions:
//
//	focused_object()                          -> id | nil
//	layer_frame(id)                           -> layer, frame_start, frame_end | nil, err
//	create_object(layer, start, end, effect)  -> true | false, "conflict" | nil, err
//
// and may define begin_session() and end_session(ok) hooks. A host table
// with host.log(msg) is available to the script. The script runs in a
// sandbox without io, os, debug or module loading.
package luahost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/logging"
)

// DefaultCallTimeout bounds a single script callback.
const DefaultCallTimeout = 5 * time.Second

var (
	// ErrHostClosed is returned after Close.
	ErrHostClosed = errors.New("luahost: host closed")

	// ErrMissingCallback is returned when the script lacks a required function.
	ErrMissingCallback = errors.New("luahost: missing callback")
)

var requiredCallbacks = []string{"focused_object", "layer_frame", "create_object"}

// Option configures a Host.
type Option func(*Host)

// WithCallTimeout bounds each callback invocation.
func WithCallTimeout(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger used by host.log and diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// Host is a host.Editor backed by a Lua script.
//
// gopher-lua states are not goroutine-safe; mu guards every use of L.
type Host struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	logger  *logging.Logger
	closed  bool
}

// LoadFile reads a script from disk and creates a host for it.
func LoadFile(path string, opts ...Option) (*Host, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("luahost: read script: %w", err)
	}
	return New(string(src), opts...)
}

// New compiles and runs script, then checks the required callbacks.
func New(script string, opts ...Option) (*Host, error) {
	h := &Host{
		timeout: DefaultCallTimeout,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("luahost")

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	h.L = L
	h.installHostModule()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	L.SetContext(ctx)
	err := L.DoString(script)
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("luahost: load script: %w", err)
	}

	for _, name := range requiredCallbacks {
		if L.GetGlobal(name).Type() != lua.LTFunction {
			L.Close()
			return nil, fmt.Errorf("%w: %s", ErrMissingCallback, name)
		}
	}
	return h, nil
}

// openSafeLibraries opens base, table, string and math only, and removes
// the loaders that could reach the filesystem.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (h *Host) installHostModule() {
	mod := h.L.SetFuncs(h.L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			h.logger.Info("%s", L.CheckString(1))
			return 0
		},
	})
	h.L.SetGlobal("host", mod)
}

// Close releases the Lua state.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}

// EditSession implements host.Editor. The optional begin_session hook runs
// before fn and end_session(ok) after it, also when fn panics.
func (h *Host) EditSession(ctx context.Context, fn func(host.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}

	if err := h.hook(ctx, "begin_session"); err != nil {
		return err
	}

	s := &session{h: h, ctx: ctx}
	returned := false
	defer func() {
		if returned {
			return
		}
		// fn panicked: close the script's session before the panic moves on.
		s.closed = true
		if herr := h.hook(ctx, "end_session", lua.LFalse); herr != nil {
			h.logger.Warn("end_session after panic: %v", herr)
		}
	}()

	err := fn(s)
	returned = true
	s.closed = true

	if herr := h.hook(ctx, "end_session", lua.LBool(err == nil)); herr != nil && err == nil {
		return herr
	}
	return err
}

func (h *Host) hook(ctx context.Context, name string, args ...lua.LValue) error {
	if h.L.GetGlobal(name).Type() != lua.LTFunction {
		return nil
	}
	_, err := h.call(ctx, name, 0, args...)
	return err
}

// call invokes a global function with a per-call deadline. The caller
// holds mu.
func (h *Host) call(ctx context.Context, name string, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	fn := h.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s", ErrMissingCallback, name)
	}

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	h.L.SetContext(cctx)
	defer h.L.RemoveContext()

	top := h.L.GetTop()
	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		h.L.SetTop(top)
		return nil, fmt.Errorf("luahost: %s: %w", name, err)
	}
	out := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		out[i] = h.L.Get(top + i + 1)
	}
	h.L.SetTop(top)
	return out, nil
}
