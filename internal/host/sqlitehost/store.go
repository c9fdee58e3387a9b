// Package sqlitehost is a host editor whose timeline lives in a SQLite
// database. Each edit session holds a file lock and a single transaction,
// so several objsearch processes can share one timeline.
package sqlitehost

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("sqlitehost: schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	lockRetryDelay = 25 * time.Millisecond
)

// DefaultMaxLayers matches the in-memory timeline.
const DefaultMaxLayers = 100

// Options configures a Store.
type Options struct {
	// Path is the database file.
	Path string
	// LockPath is the session lock file. Defaults to Path + ".lock".
	LockPath string
	// MaxLayers limits usable layers. Defaults to DefaultMaxLayers.
	MaxLayers int
	Logger    *logging.Logger
}

// Store implements host.Editor over SQLite.
type Store struct {
	// mu serializes sessions within the process; the file lock only
	// excludes other processes.
	mu        sync.Mutex
	db        *sql.DB
	path      string
	lock      *flock.Flock
	maxLayers int
	logger    *logging.Logger
}

// Open creates or opens the timeline database.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("sqlitehost: database path is required")
	}
	if opts.LockPath == "" {
		opts.LockPath = opts.Path + ".lock"
	}
	if opts.MaxLayers <= 0 {
		opts.MaxLayers = DefaultMaxLayers
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{
		db:        db,
		path:      opts.Path,
		lock:      flock.New(opts.LockPath),
		maxLayers: opts.MaxLayers,
		logger:    opts.Logger.WithComponent("sqlitehost"),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// EditSession implements host.Editor. The session holds the file lock and
// one transaction; it commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (s *Store) EditSession(ctx context.Context, fn func(host.Session) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire session lock: %s", s.lock.Path())
	}
	defer func() {
		if uerr := s.lock.Unlock(); uerr != nil {
			s.logger.Warn("release session lock: %v", uerr)
		}
	}()

	var tx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var berr error
		tx, berr = s.db.BeginTx(ctx, nil)
		return berr
	}); err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}

	sess := &session{ctx: ctx, tx: tx, maxLayers: s.maxLayers}
	defer func() {
		sess.closed = true
		// Also runs when fn panics; after Commit it is a no-op (ErrTxDone).
		_ = tx.Rollback()
	}()

	if err = fn(sess); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Add inserts an object in its own session. It is meant for seeding.
func (s *Store) Add(ctx context.Context, effect string, lf host.LayerFrame) (host.ObjectHandle, error) {
	var id host.ObjectHandle
	err := s.EditSession(ctx, func(hs host.Session) error {
		var ierr error
		id, ierr = hs.(*session).insert(effect, lf)
		return ierr
	})
	return id, err
}

// Focus marks an object as focused. An empty handle clears focus.
func (s *Store) Focus(ctx context.Context, h host.ObjectHandle) error {
	return s.EditSession(ctx, func(hs host.Session) error {
		return hs.(*session).setFocus(h)
	})
}

// Object is a stored timeline object.
type Object struct {
	ID     host.ObjectHandle
	Effect string
	host.LayerFrame
}

// Objects returns all objects ordered by layer and start frame.
func (s *Store) Objects(ctx context.Context) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, effect, layer, frame_start, frame_end FROM objects ORDER BY layer, frame_start, created_at")
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.ID, &o.Effect, &o.Layer, &o.FrameStart, &o.FrameEnd); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
