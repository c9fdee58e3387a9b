package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigNotFound means none of the catalog candidate paths exist.
	ErrConfigNotFound = errors.New("config: catalog file not found")

	// ErrInvalidSettings is wrapped by every ValidationErrors.
	ErrInvalidSettings = errors.New("config: invalid settings")
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	// Path is the dotted settings key, e.g. "placement.max_attempts".
	Path    string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Path, e.Message, e.Value)
}

// ValidationErrors collects every failure found by Settings.Validate.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

func (e ValidationErrors) Unwrap() error {
	return ErrInvalidSettings
}

// NotFoundError lists the candidates that were tried.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v (tried %s)", ErrConfigNotFound, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrConfigNotFound
}
