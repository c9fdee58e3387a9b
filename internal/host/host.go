// Package host defines the host editor contract the placement engine
// consumes, and the worker that serializes access to it.
//
// The host editor is external: it owns the timeline, hands out exclusive
// edit sessions, and reports whether a slot is usable. Adapters for
// development and tests live in the timeline, sqlitehost and luahost
// subpackages.
package host

import (
	"context"
	"errors"
	"fmt"
)

// Host errors.
var (
	// ErrPlacementConflict means the requested slot is unusable, e.g. occupied.
	ErrPlacementConflict = errors.New("host: placement conflict")

	// ErrNoFocusedObject may be returned by FocusedObject instead of ok=false.
	ErrNoFocusedObject = errors.New("host: no focused object")

	// ErrSessionClosed is returned when a session is used after its scope ended.
	ErrSessionClosed = errors.New("host: edit session closed")

	// ErrUnknownObject is returned for handles the host does not recognise.
	ErrUnknownObject = errors.New("host: unknown object")

	// ErrInvalidRange is returned for empty or negative frame windows.
	ErrInvalidRange = errors.New("host: invalid frame range")
)

// ObjectHandle identifies a timeline object within one edit session.
// Handles must not be kept after the session that produced them ends.
type ObjectHandle string

// LayerFrame is an object's layer and half-open frame window [FrameStart, FrameEnd).
type LayerFrame struct {
	Layer      int `json:"layer"`
	FrameStart int `json:"frame_start"`
	FrameEnd   int `json:"frame_end"`
}

// Validate checks the frame window.
func (lf LayerFrame) Validate() error {
	if lf.Layer < 0 || lf.FrameStart < 0 || lf.FrameEnd <= lf.FrameStart {
		return fmt.Errorf("%w: layer %d [%d,%d)", ErrInvalidRange, lf.Layer, lf.FrameStart, lf.FrameEnd)
	}
	return nil
}

// Overlaps reports whether two windows on the same layer intersect.
func (lf LayerFrame) Overlaps(other LayerFrame) bool {
	return lf.Layer == other.Layer && lf.FrameStart < other.FrameEnd && other.FrameStart < lf.FrameEnd
}

func (lf LayerFrame) String() string {
	return fmt.Sprintf("layer %d [%d,%d)", lf.Layer, lf.FrameStart, lf.FrameEnd)
}

// Session is an exclusive edit scope granted by the host.
type Session interface {
	// FocusedObject returns the currently focused object, if any.
	FocusedObject() (ObjectHandle, bool, error)

	// LayerFrame reads an object's position.
	LayerFrame(h ObjectHandle) (LayerFrame, error)

	// CreateObject inserts an effect object. It returns an error wrapping
	// ErrPlacementConflict when the slot cannot be used.
	CreateObject(layer, frameStart, frameEnd int, effect string) error
}

// Editor grants edit sessions. EditSession must not run fn concurrently
// with another session and must invalidate the session when fn returns.
type Editor interface {
	EditSession(ctx context.Context, fn func(Session) error) error
}

// EditorFunc adapts a function to the Editor interface.
type EditorFunc func(ctx context.Context, fn func(Session) error) error

// EditSession implements Editor.
func (f EditorFunc) EditSession(ctx context.Context, fn func(Session) error) error {
	return f(ctx, fn)
}
