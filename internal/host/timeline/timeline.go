// Package timeline is an in-memory host editor used by tests and by the
// CLI's default "memory" host.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/objsearch/internal/host"
)

// DefaultMaxLayers matches the layer count of the reference host.
const DefaultMaxLayers = 100

// Object is a placed timeline object.
type Object struct {
	ID     host.ObjectHandle
	Effect string
	host.LayerFrame
}

// Timeline holds objects on integer layers. Slots conflict when they
// overlap an existing object on the same layer or exceed MaxLayers.
type Timeline struct {
	mu        sync.Mutex // held for the duration of an edit session
	objects   []Object
	focused   host.ObjectHandle
	maxLayers int

	// sessions counts sessions opened, for diagnostics and tests.
	sessions int
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithMaxLayers limits the number of usable layers.
func WithMaxLayers(n int) Option {
	return func(t *Timeline) {
		if n > 0 {
			t.maxLayers = n
		}
	}
}

// New creates an empty timeline.
func New(opts ...Option) *Timeline {
	t := &Timeline{maxLayers: DefaultMaxLayers}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add places an object directly, outside of any edit session. It is meant
// for seeding fixtures.
func (t *Timeline) Add(effect string, lf host.LayerFrame) (host.ObjectHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(effect, lf)
}

// Focus marks an object as focused. An empty handle clears focus.
func (t *Timeline) Focus(h host.ObjectHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h != "" && t.find(h) < 0 {
		return fmt.Errorf("%w: %s", host.ErrUnknownObject, h)
	}
	t.focused = h
	return nil
}

// Objects returns a snapshot ordered by layer then start frame.
func (t *Timeline) Objects() []Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]Object(nil), t.objects...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].FrameStart < out[j].FrameStart
	})
	return out
}

// Sessions returns how many edit sessions have been opened.
func (t *Timeline) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions
}

// EditSession implements host.Editor.
func (t *Timeline) EditSession(ctx context.Context, fn func(host.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions++
	s := &session{t: t}
	defer func() { s.closed = true }()
	return fn(s)
}

func (t *Timeline) insert(effect string, lf host.LayerFrame) (host.ObjectHandle, error) {
	if err := lf.Validate(); err != nil {
		return "", err
	}
	if lf.Layer >= t.maxLayers {
		return "", fmt.Errorf("%w: layer %d beyond limit %d", host.ErrPlacementConflict, lf.Layer, t.maxLayers)
	}
	for _, o := range t.objects {
		if o.Overlaps(lf) {
			return "", fmt.Errorf("%w: %s overlaps object %s", host.ErrPlacementConflict, lf, o.ID)
		}
	}
	id := host.ObjectHandle(uuid.NewString())
	t.objects = append(t.objects, Object{ID: id, Effect: effect, LayerFrame: lf})
	return id, nil
}

func (t *Timeline) find(h host.ObjectHandle) int {
	for i, o := range t.objects {
		if o.ID == h {
			return i
		}
	}
	return -1
}

// session is valid only inside EditSession; the timeline lock is held.
type session struct {
	t      *Timeline
	closed bool
}

func (s *session) FocusedObject() (host.ObjectHandle, bool, error) {
	if s.closed {
		return "", false, host.ErrSessionClosed
	}
	if s.t.focused == "" {
		return "", false, nil
	}
	return s.t.focused, true, nil
}

func (s *session) LayerFrame(h host.ObjectHandle) (host.LayerFrame, error) {
	if s.closed {
		return host.LayerFrame{}, host.ErrSessionClosed
	}
	i := s.t.find(h)
	if i < 0 {
		return host.LayerFrame{}, fmt.Errorf("%w: %s", host.ErrUnknownObject, h)
	}
	return s.t.objects[i].LayerFrame, nil
}

func (s *session) CreateObject(layer, frameStart, frameEnd int, effect string) error {
	if s.closed {
		return host.ErrSessionClosed
	}
	_, err := s.t.insert(effect, host.LayerFrame{Layer: layer, FrameStart: frameStart, FrameEnd: frameEnd})
	return err
}
