package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShutdown is returned by operations on a shut down application.
	ErrShutdown = errors.New("application shut down")

	// ErrUnknownHost reports an unsupported host.kind.
	ErrUnknownHost = errors.New("unknown host kind")
)

// InitError names the startup step that failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// OperationError wraps a failed user-facing operation such as a select.
type OperationError struct {
	Op     string
	Target string // effect identifier, when the operation has one
	Err    error
}

// NewOperationError wraps err for op on target.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{e.Op}
	if e.Target != "" {
		parts = append(parts, e.Target)
	}
	head := strings.Join(parts, " ")
	if e.Err == nil {
		return head
	}
	return head + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ComponentError attributes a teardown failure to a component.
type ComponentError struct {
	Component string
	Action    string
	Err       error
}

func (e *ComponentError) Error() string {
	if e.Action == "" {
		return e.Component + ": " + e.Err.Error()
	}
	return e.Component + " " + e.Action + ": " + e.Err.Error()
}

func (e *ComponentError) Unwrap() error { return e.Err }

// ErrorList accumulates errors during shutdown. It is not safe for
// concurrent use.
type ErrorList struct {
	errs []error
}

// Add appends err unless it is nil.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Len reports how many errors were added.
func (l *ErrorList) Len() int { return len(l.errs) }

func (l *ErrorList) Error() string {
	switch len(l.errs) {
	case 0:
		return ""
	case 1:
		return l.errs[0].Error()
	}
	msgs := make([]string, len(l.errs))
	for i, err := range l.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(l.errs), strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (l *ErrorList) Unwrap() []error { return l.errs }

// AsError returns nil for an empty list and the list otherwise.
func (l *ErrorList) AsError() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}
