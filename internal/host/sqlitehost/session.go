package sqlitehost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/objsearch/internal/host"
)

// session wraps the transaction of one EditSession call.
type session struct {
	ctx       context.Context
	tx        *sql.Tx
	maxLayers int
	closed    bool
}

func (s *session) FocusedObject() (host.ObjectHandle, bool, error) {
	if s.closed {
		return "", false, host.ErrSessionClosed
	}
	var id sql.NullString
	err := s.tx.QueryRowContext(s.ctx, "SELECT object_id FROM focus WHERE singleton = 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read focus: %w", err)
	}
	return host.ObjectHandle(id.String), true, nil
}

func (s *session) LayerFrame(h host.ObjectHandle) (host.LayerFrame, error) {
	if s.closed {
		return host.LayerFrame{}, host.ErrSessionClosed
	}
	var lf host.LayerFrame
	err := s.tx.QueryRowContext(s.ctx,
		"SELECT layer, frame_start, frame_end FROM objects WHERE id = ?", string(h),
	).Scan(&lf.Layer, &lf.FrameStart, &lf.FrameEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return host.LayerFrame{}, fmt.Errorf("%w: %s", host.ErrUnknownObject, h)
	}
	if err != nil {
		return host.LayerFrame{}, fmt.Errorf("read object %s: %w", h, err)
	}
	return lf, nil
}

func (s *session) CreateObject(layer, frameStart, frameEnd int, effect string) error {
	if s.closed {
		return host.ErrSessionClosed
	}
	_, err := s.insert(effect, host.LayerFrame{Layer: layer, FrameStart: frameStart, FrameEnd: frameEnd})
	return err
}

func (s *session) insert(effect string, lf host.LayerFrame) (host.ObjectHandle, error) {
	if err := lf.Validate(); err != nil {
		return "", err
	}
	if lf.Layer >= s.maxLayers {
		return "", fmt.Errorf("%w: layer %d beyond limit %d", host.ErrPlacementConflict, lf.Layer, s.maxLayers)
	}

	var other string
	err := s.tx.QueryRowContext(s.ctx,
		"SELECT id FROM objects WHERE layer = ? AND frame_start < ? AND ? < frame_end LIMIT 1",
		lf.Layer, lf.FrameEnd, lf.FrameStart,
	).Scan(&other)
	switch {
	case err == nil:
		return "", fmt.Errorf("%w: %s overlaps object %s", host.ErrPlacementConflict, lf, other)
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("check overlap: %w", err)
	}

	id := uuid.NewString()
	_, err = s.tx.ExecContext(s.ctx,
		"INSERT INTO objects (id, effect, layer, frame_start, frame_end, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, effect, lf.Layer, lf.FrameStart, lf.FrameEnd, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert object: %w", err)
	}
	return host.ObjectHandle(id), nil
}

func (s *session) setFocus(h host.ObjectHandle) error {
	if h == "" {
		_, err := s.tx.ExecContext(s.ctx, "DELETE FROM focus")
		return err
	}
	if _, err := s.LayerFrame(h); err != nil {
		return err
	}
	_, err := s.tx.ExecContext(s.ctx,
		"INSERT INTO focus (singleton, object_id) VALUES (1, ?) ON CONFLICT (singleton) DO UPDATE SET object_id = excluded.object_id",
		string(h),
	)
	return err
}
