package timeline

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/objsearch/internal/host"
)

func TestCreateObjectConflicts(t *testing.T) {
	tl := New()
	if _, err := tl.Add("Blur", host.LayerFrame{Layer: 0, FrameStart: 0, FrameEnd: 60}); err != nil {
		t.Fatal(err)
	}

	err := tl.EditSession(context.Background(), func(s host.Session) error {
		if err := s.CreateObject(0, 30, 90, "Fire_A"); !errors.Is(err, host.ErrPlacementConflict) {
			t.Errorf("overlapping create = %v, want conflict", err)
		}
		if err := s.CreateObject(0, 60, 90, "Fire_A"); err != nil {
			t.Errorf("adjacent create: %v", err)
		}
		return s.CreateObject(1, 0, 60, "Glow")
	})
	if err != nil {
		t.Fatal(err)
	}

	objs := tl.Objects()
	if len(objs) != 3 {
		t.Fatalf("objects = %d, want 3", len(objs))
	}
	if objs[1].Effect != "Fire_A" || objs[1].FrameStart != 60 {
		t.Errorf("objs[1] = %+v", objs[1])
	}
	if objs[2].Layer != 1 {
		t.Errorf("objs[2] layer = %d, want 1", objs[2].Layer)
	}
}

func TestMaxLayers(t *testing.T) {
	tl := New(WithMaxLayers(2))
	err := tl.EditSession(context.Background(), func(s host.Session) error {
		return s.CreateObject(2, 0, 10, "x")
	})
	if !errors.Is(err, host.ErrPlacementConflict) {
		t.Errorf("create beyond max layers = %v, want conflict", err)
	}
}

func TestInvalidRange(t *testing.T) {
	tl := New()
	err := tl.EditSession(context.Background(), func(s host.Session) error {
		return s.CreateObject(0, 10, 10, "x")
	})
	if !errors.Is(err, host.ErrInvalidRange) {
		t.Errorf("empty window = %v, want ErrInvalidRange", err)
	}
}

func TestFocus(t *testing.T) {
	tl := New()
	id, err := tl.Add("Blur", host.LayerFrame{Layer: 4, FrameStart: 10, FrameEnd: 40})
	if err != nil {
		t.Fatal(err)
	}

	_ = tl.EditSession(context.Background(), func(s host.Session) error {
		if _, ok, err := s.FocusedObject(); ok || err != nil {
			t.Errorf("FocusedObject before focus = %v, %v", ok, err)
		}
		return nil
	})

	if err := tl.Focus(id); err != nil {
		t.Fatal(err)
	}
	if err := tl.Focus("missing"); !errors.Is(err, host.ErrUnknownObject) {
		t.Errorf("Focus(missing) = %v, want ErrUnknownObject", err)
	}

	_ = tl.EditSession(context.Background(), func(s host.Session) error {
		h, ok, err := s.FocusedObject()
		if !ok || err != nil || h != id {
			t.Fatalf("FocusedObject = %q, %v, %v", h, ok, err)
		}
		lf, err := s.LayerFrame(h)
		if err != nil {
			t.Fatal(err)
		}
		want := host.LayerFrame{Layer: 4, FrameStart: 10, FrameEnd: 40}
		if lf != want {
			t.Errorf("LayerFrame = %v, want %v", lf, want)
		}
		return nil
	})
}

func TestSessionInvalidAfterScope(t *testing.T) {
	tl := New()
	var leaked host.Session
	_ = tl.EditSession(context.Background(), func(s host.Session) error {
		leaked = s
		return nil
	})

	if err := leaked.CreateObject(0, 0, 10, "x"); !errors.Is(err, host.ErrSessionClosed) {
		t.Errorf("CreateObject after scope = %v, want ErrSessionClosed", err)
	}
	if _, _, err := leaked.FocusedObject(); !errors.Is(err, host.ErrSessionClosed) {
		t.Errorf("FocusedObject after scope = %v, want ErrSessionClosed", err)
	}
	if _, err := leaked.LayerFrame("x"); !errors.Is(err, host.ErrSessionClosed) {
		t.Errorf("LayerFrame after scope = %v, want ErrSessionClosed", err)
	}
	if n := tl.Sessions(); n != 1 {
		t.Errorf("Sessions = %d, want 1", n)
	}
}

func TestEditSessionCancelled(t *testing.T) {
	tl := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tl.EditSession(ctx, func(host.Session) error {
		t.Error("fn ran with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
