package luahost

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/objsearch/internal/host"
)

type session struct {
	h      *Host
	ctx    context.Context
	closed bool
}

func (s *session) FocusedObject() (host.ObjectHandle, bool, error) {
	if s.closed {
		return "", false, host.ErrSessionClosed
	}
	ret, err := s.h.call(s.ctx, "focused_object", 1)
	if err != nil {
		return "", false, err
	}
	switch v := ret[0].(type) {
	case *lua.LNilType:
		return "", false, nil
	case lua.LString:
		return host.ObjectHandle(v), v != "", nil
	case lua.LNumber:
		return host.ObjectHandle(v.String()), true, nil
	default:
		return "", false, fmt.Errorf("luahost: focused_object returned %s", ret[0].Type())
	}
}

func (s *session) LayerFrame(h host.ObjectHandle) (host.LayerFrame, error) {
	if s.closed {
		return host.LayerFrame{}, host.ErrSessionClosed
	}
	ret, err := s.h.call(s.ctx, "layer_frame", 3, lua.LString(h))
	if err != nil {
		return host.LayerFrame{}, err
	}
	if ret[0] == lua.LNil {
		msg := "unknown object"
		if ret[1] != lua.LNil {
			msg = ret[1].String()
		}
		return host.LayerFrame{}, fmt.Errorf("%w: %s: %s", host.ErrUnknownObject, h, msg)
	}

	var vals [3]int
	for i, v := range ret {
		n, ok := v.(lua.LNumber)
		if !ok {
			return host.LayerFrame{}, fmt.Errorf("luahost: layer_frame value %d is %s, want number", i+1, v.Type())
		}
		vals[i] = int(n)
	}
	return host.LayerFrame{Layer: vals[0], FrameStart: vals[1], FrameEnd: vals[2]}, nil
}

func (s *session) CreateObject(layer, frameStart, frameEnd int, effect string) error {
	if s.closed {
		return host.ErrSessionClosed
	}
	lf := host.LayerFrame{Layer: layer, FrameStart: frameStart, FrameEnd: frameEnd}
	if err := lf.Validate(); err != nil {
		return err
	}

	ret, err := s.h.call(s.ctx, "create_object", 2,
		lua.LNumber(layer), lua.LNumber(frameStart), lua.LNumber(frameEnd), lua.LString(effect))
	if err != nil {
		return err
	}

	switch ret[0] {
	case lua.LTrue:
		return nil
	case lua.LFalse:
		reason := "conflict"
		if ret[1] != lua.LNil {
			reason = ret[1].String()
		}
		return fmt.Errorf("%w: %s: %s", host.ErrPlacementConflict, lf, reason)
	default:
		msg := "create_object failed"
		if ret[1] != lua.LNil {
			msg = ret[1].String()
		}
		return fmt.Errorf("luahost: %s", msg)
	}
}
