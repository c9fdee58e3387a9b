package host

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ErrWorkerClosed is returned when submitting to a closed worker.
var ErrWorkerClosed = errors.New("host: edit worker is closed")

// PanicError wraps a panic raised by the host or by session code.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("host: panic in edit session: %v", e.Value)
}

// job is one edit session request.
type job struct {
	ctx    context.Context
	fn     func(Session) error
	result chan error
}

// Worker serializes all edit sessions through a single goroutine, so at
// most one session is active at a time and sessions run in submission
// order.
//
// Usage:
//
//	w := host.NewWorker(editor, 16)
//	go w.Run(ctx)
//	defer w.Close()
//
//	err := w.Do(ctx, func(s host.Session) error {
//	    return s.CreateObject(0, 0, 60, "Fire_A")
//	})
type Worker struct {
	editor  Editor
	queue   chan *job
	done    chan struct{} // closed by Close
	stopped chan struct{} // closed when Run returns
	closed  atomic.Bool

	closeOnce sync.Once
	stopOnce  sync.Once
	running   sync.WaitGroup
}

// NewWorker creates a worker for editor. queueSize bounds pending sessions.
func NewWorker(editor Editor, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		editor:  editor,
		queue:   make(chan *job, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start runs the worker loop on a new goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.running.Add(1)
	go func() {
		defer w.running.Done()
		w.Run(ctx)
	}()
}

// Run processes sessions until ctx is cancelled or Close is called.
// It must be called exactly once, from the goroutine that owns the host.
func (w *Worker) Run(ctx context.Context) {
	defer w.stopOnce.Do(func() { close(w.stopped) })
	for {
		select {
		case <-ctx.Done():
			w.closed.Store(true)
			w.drain(ctx.Err())
			return
		case <-w.done:
			w.drain(ErrWorkerClosed)
			return
		case j := <-w.queue:
			j.result <- w.execute(j)
		}
	}
}

// execute runs one session, converting panics into errors.
func (w *Worker) execute(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	// Cancellation is honoured only before the session opens.
	if cerr := j.ctx.Err(); cerr != nil {
		return cerr
	}
	return w.editor.EditSession(j.ctx, j.fn)
}

func (w *Worker) drain(err error) {
	for {
		select {
		case j := <-w.queue:
			j.result <- err
		default:
			return
		}
	}
}

// Do runs fn inside an exclusive edit session and waits for it to finish.
func (w *Worker) Do(ctx context.Context, fn func(Session) error) error {
	if w.closed.Load() {
		return ErrWorkerClosed
	}

	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case w.queue <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrWorkerClosed
	case <-w.stopped:
		return ErrWorkerClosed
	}

	// Once queued the session runs to completion; waiting is not cancellable
	// so callers never observe a half-applied edit as cancelled.
	select {
	case err := <-j.result:
		return err
	case <-w.stopped:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrWorkerClosed
		}
	}
}

// Close stops the worker. Pending sessions fail with ErrWorkerClosed.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
	})
	w.running.Wait()
}
