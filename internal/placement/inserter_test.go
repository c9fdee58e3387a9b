package placement

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/host/timeline"
)

func startWorker(t *testing.T, ed host.Editor) *host.Worker {
	t.Helper()
	w := host.NewWorker(ed, 4)
	w.Start(context.Background())
	t.Cleanup(w.Close)
	return w
}

func TestInserterPlaces(t *testing.T) {
	tl := timeline.New()
	in := NewInserter(startWorker(t, tl), NewPlanner(DefaultOptions()))

	for want := 0; want < 3; want++ {
		out := in.Insert(context.Background(), "Fire_A")
		if !out.OK() || out.Layer != want {
			t.Fatalf("insert %d: outcome = %+v, want layer %d", want, out, want)
		}
	}
	if n := len(tl.Objects()); n != 3 {
		t.Errorf("objects = %d, want 3", n)
	}
}

func TestInserterExhausted(t *testing.T) {
	tl := timeline.New(timeline.WithMaxLayers(2))
	in := NewInserter(startWorker(t, tl), NewPlanner(Options{MaxAttempts: 5}))

	_ = in.Insert(context.Background(), "a")
	_ = in.Insert(context.Background(), "b")
	out := in.Insert(context.Background(), "c")

	if out.Status != Failed || !out.AttemptsExhausted || out.Attempts != 5 {
		t.Errorf("outcome = %+v, want exhausted after 5", out)
	}
}

func TestInserterHostPanic(t *testing.T) {
	ed := host.EditorFunc(func(ctx context.Context, fn func(host.Session) error) error {
		panic("host crashed")
	})
	w := startWorker(t, ed)
	in := NewInserter(w, NewPlanner(DefaultOptions()))

	out := in.Insert(context.Background(), "Fire_A")
	if out.Status != Failed || out.AttemptsExhausted {
		t.Fatalf("outcome = %+v, want Failed", out)
	}
	var pe *host.PanicError
	if !errors.As(out.Err, &pe) {
		t.Errorf("Err = %v, want *host.PanicError", out.Err)
	}
	if out.Request.EffectIdentifier != "Fire_A" {
		t.Errorf("request = %+v", out.Request)
	}

	// The worker survives the panic and serves the next session.
	var pe2 *host.PanicError
	if err := w.Do(context.Background(), func(host.Session) error { return nil }); !errors.As(err, &pe2) {
		t.Errorf("second session = %v, want another *host.PanicError", err)
	}
}

func TestInserterClosedWorker(t *testing.T) {
	w := host.NewWorker(timeline.New(), 1)
	w.Start(context.Background())
	w.Close()

	out := NewInserter(w, NewPlanner(DefaultOptions())).Insert(context.Background(), "Fire_A")
	if out.Status != Failed || !errors.Is(out.Err, host.ErrWorkerClosed) {
		t.Errorf("outcome = %+v, want Failed with ErrWorkerClosed", out)
	}
	if !errors.Is(out.Error(), ErrInsertionFailed) {
		t.Errorf("Error() = %v", out.Error())
	}
}
