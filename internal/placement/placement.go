// Package placement finds a free timeline slot for an effect and asks the
// host to insert it there.
//
// The planner is optimistic: it never queries occupancy. It starts at the
// focused object's layer (or the default slot), attempts insertion, and on
// a placement conflict moves one layer down, giving up after a bounded
// number of attempts.
package placement

import (
	"errors"
	"fmt"

	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/logging"
)

// DefaultMaxAttempts bounds the retry loop when no limit is configured.
const DefaultMaxAttempts = 10

// ErrInsertionFailed is wrapped by every failed Outcome.
var ErrInsertionFailed = errors.New("placement: insertion failed")

// Request is one insertion attempt.
type Request struct {
	EffectIdentifier string
	Layer            int
	FrameStart       int
	FrameEnd         int
}

func (r Request) slot() host.LayerFrame {
	return host.LayerFrame{Layer: r.Layer, FrameStart: r.FrameStart, FrameEnd: r.FrameEnd}
}

// Status is the result kind of a placement.
type Status int

const (
	// Placed means the host accepted the insertion.
	Placed Status = iota + 1
	// Failed means no attempt succeeded.
	Failed
)

func (s Status) String() string {
	switch s {
	case Placed:
		return "placed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what Place did.
type Outcome struct {
	Status Status
	// Layer is the layer the effect landed on. Valid when Placed.
	Layer int
	// Attempts is the number of CreateObject calls made.
	Attempts int
	// AttemptsExhausted is true when every attempt hit a conflict.
	AttemptsExhausted bool
	// Request is the last attempted request.
	Request Request
	// Err is the last host error, if any.
	Err error
}

// OK reports whether the effect was placed.
func (o Outcome) OK() bool { return o.Status == Placed }

// Error returns the failure as an error wrapping ErrInsertionFailed, or nil
// when the effect was placed.
func (o Outcome) Error() error {
	if o.Status == Placed {
		return nil
	}
	if o.AttemptsExhausted {
		return fmt.Errorf("%w: %s: no free layer after %d attempts", ErrInsertionFailed, o.Request.EffectIdentifier, o.Attempts)
	}
	if o.Err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInsertionFailed, o.Request.EffectIdentifier, o.Err)
	}
	return fmt.Errorf("%w: %s", ErrInsertionFailed, o.Request.EffectIdentifier)
}

// Options configures a Planner.
type Options struct {
	// MaxAttempts is the total number of insertion attempts. Values < 1 use
	// DefaultMaxAttempts.
	MaxAttempts int
	// Default is the slot used when nothing is focused.
	Default host.LayerFrame
	// Logger receives per-attempt diagnostics. Nil disables logging.
	Logger *logging.Logger
}

// DefaultOptions returns layer 0, frames [0,60) and DefaultMaxAttempts.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		Default:     host.LayerFrame{Layer: 0, FrameStart: 0, FrameEnd: 60},
	}
}

// Planner places effects within an edit session.
type Planner struct {
	maxAttempts int
	def         host.LayerFrame
	logger      *logging.Logger
}

// NewPlanner creates a planner.
func NewPlanner(opts Options) *Planner {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Default.FrameEnd <= opts.Default.FrameStart {
		opts.Default = DefaultOptions().Default
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Planner{
		maxAttempts: opts.MaxAttempts,
		def:         opts.Default,
		logger:      opts.Logger.WithComponent("placement"),
	}
}

// MaxAttempts returns the configured attempt bound.
func (p *Planner) MaxAttempts() int {
	return p.maxAttempts
}

// Place inserts effectID at the first free layer at or below the starting
// slot. It must be called inside an edit session.
func (p *Planner) Place(sess host.Session, effectID string) Outcome {
	start, err := p.startingSlot(sess)
	if err != nil {
		return Outcome{
			Status:  Failed,
			Request: Request{EffectIdentifier: effectID},
			Err:     err,
		}
	}

	req := Request{
		EffectIdentifier: effectID,
		Layer:            start.Layer,
		FrameStart:       start.FrameStart,
		FrameEnd:         start.FrameEnd,
	}
	log := p.logger.WithField("effect", effectID)

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := sess.CreateObject(req.Layer, req.FrameStart, req.FrameEnd, req.EffectIdentifier)
		if err == nil {
			log.Debug("placed at %s after %d attempt(s)", req.slot(), attempt)
			return Outcome{Status: Placed, Layer: req.Layer, Attempts: attempt, Request: req}
		}
		lastErr = err
		if !errors.Is(err, host.ErrPlacementConflict) {
			log.Warn("host rejected %s: %v", req.slot(), err)
			return Outcome{Status: Failed, Attempts: attempt, Request: req, Err: err}
		}
		log.Debug("conflict at %s", req.slot())
		if attempt < p.maxAttempts {
			req.Layer++
		}
	}

	return Outcome{
		Status:            Failed,
		Attempts:          p.maxAttempts,
		AttemptsExhausted: true,
		Request:           req,
		Err:               lastErr,
	}
}

// startingSlot reads the focused object's position, falling back to the
// default slot when nothing is focused.
func (p *Planner) startingSlot(sess host.Session) (host.LayerFrame, error) {
	h, ok, err := sess.FocusedObject()
	if errors.Is(err, host.ErrNoFocusedObject) {
		return p.def, nil
	}
	if err != nil {
		return host.LayerFrame{}, fmt.Errorf("focused object: %w", err)
	}
	if !ok {
		return p.def, nil
	}
	lf, err := sess.LayerFrame(h)
	if err != nil {
		return host.LayerFrame{}, fmt.Errorf("layer frame of %s: %w", h, err)
	}
	return lf, nil
}
