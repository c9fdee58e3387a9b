// Package app wires the catalog, search engine, host editor, placement
// planner and router into a running objsearch instance and owns their
// lifecycle.
package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/objsearch/internal/catalog"
	"github.com/dshills/objsearch/internal/config"
	"github.com/dshills/objsearch/internal/config/loader"
	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/logging"
	"github.com/dshills/objsearch/internal/placement"
	"github.com/dshills/objsearch/internal/router"
	"github.com/dshills/objsearch/internal/search"
)

// Application is the central coordinator for all objsearch components.
type Application struct {
	settings config.Settings
	logger   *logging.Logger

	// Read path
	catalogPath string
	catalogErr  error
	index       *catalog.Index
	engine      *search.Engine

	// Write path
	editor   host.Editor
	closers  []io.Closer
	worker   *host.Worker
	cancel   context.CancelFunc
	planner  *placement.Planner
	inserter *placement.Inserter

	router  *router.Router
	metrics *router.Metrics

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Options configures the application.
type Options struct {
	// Settings are the validated engine settings.
	Settings config.Settings

	// FS reads the catalog. Defaults to the OS file system.
	FS loader.FileSystem

	// BaseDir resolves relative catalog candidates. Empty means the
	// executable's directory.
	BaseDir string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Logger overrides the logger built from Settings.Logging.
	Logger *logging.Logger

	// Editor overrides the host editor selected by Settings.Host.
	Editor host.Editor
}

// New creates and starts an Application. A missing catalog is fatal; an
// unparsable catalog is logged and yields an empty index.
func New(opts Options) (*Application, error) {
	app := &Application{settings: opts.Settings}
	b := newBootstrapper(app, opts)
	if err := b.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Settings returns the settings the application was built with.
func (app *Application) Settings() config.Settings {
	return app.settings
}

// Logger returns the application's logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// CatalogPath returns the catalog file that was loaded.
func (app *Application) CatalogPath() string {
	return app.catalogPath
}

// CatalogError returns the parse error that emptied the index, if any.
func (app *Application) CatalogError() error {
	return app.catalogErr
}

// Index returns the candidate index.
func (app *Application) Index() *catalog.Index {
	return app.index
}

// Router returns the request router.
func (app *Application) Router() *router.Router {
	return app.router
}

// Metrics returns the router metrics.
func (app *Application) Metrics() router.MetricsSnapshot {
	return app.metrics.Snapshot()
}

// Search ranks the catalog for query.
func (app *Application) Search(query string) []catalog.Candidate {
	return app.engine.Search(query)
}

// Rank ranks the catalog for query and exposes scores.
func (app *Application) Rank(query string) []search.Hit {
	return app.engine.Rank(query)
}

// Select places effectID on the host timeline.
func (app *Application) Select(ctx context.Context, effectID string) (placement.Outcome, error) {
	if app.closed.Load() {
		return placement.Outcome{}, NewOperationError("select", effectID, ErrShutdown)
	}
	out := app.inserter.Insert(ctx, effectID)
	if !out.OK() {
		return out, NewOperationError("select", effectID, out.Error())
	}
	return out, nil
}

// Serve runs the line-delimited JSON bridge until in is exhausted or ctx
// is done.
func (app *Application) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if app.closed.Load() {
		return NewOperationError("serve", "", ErrShutdown)
	}
	app.logger.Info("serving %d candidates from %s", app.index.Len(), app.catalogPath)
	if err := app.router.Serve(ctx, in, out); err != nil {
		return NewOperationError("serve", "", err)
	}
	return nil
}

// Shutdown stops the edit worker and closes the host. It is safe to call
// more than once.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.closed.Store(true)
		var errs ErrorList
		if app.worker != nil {
			app.worker.Close()
		}
		if app.cancel != nil {
			app.cancel()
		}
		for i := len(app.closers) - 1; i >= 0; i-- {
			if err := app.closers[i].Close(); err != nil {
				errs.Add(&ComponentError{Component: "host", Action: "close", Err: err})
			}
		}
		app.shutdownErr = errs.AsError()

		s := app.metrics.Snapshot()
		app.logger.Debug("shutdown: searches=%d placed=%d failed=%d malformed=%d",
			s.Searches, s.Placed, s.Failed, s.Malformed)
	})
	return app.shutdownErr
}
