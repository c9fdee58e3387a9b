package placement

import (
	"context"

	"github.com/dshills/objsearch/internal/host"
)

// Sessions runs functions inside exclusive edit sessions. *host.Worker
// implements it.
type Sessions interface {
	Do(ctx context.Context, fn func(host.Session) error) error
}

// Inserter runs placements through a session runner, folding session-level
// failures (closed worker, host panic, failed commit) into the Outcome.
type Inserter struct {
	sessions Sessions
	planner  *Planner
}

// NewInserter creates an Inserter.
func NewInserter(sessions Sessions, planner *Planner) *Inserter {
	return &Inserter{sessions: sessions, planner: planner}
}

// Insert places effectID in a new edit session.
func (in *Inserter) Insert(ctx context.Context, effectID string) Outcome {
	var out Outcome
	err := in.sessions.Do(ctx, func(s host.Session) error {
		out = in.planner.Place(s, effectID)
		// A failed placement aborts the session so transactional hosts
		// roll back.
		return out.Error()
	})
	if err == nil {
		return out
	}
	if out.Status == Failed {
		return out
	}

	req := out.Request
	req.EffectIdentifier = effectID
	return Outcome{Status: Failed, Attempts: out.Attempts, Request: req, Err: err}
}
