package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dshills/objsearch/internal/catalog"
	"github.com/dshills/objsearch/internal/config"
	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/host/luahost"
	"github.com/dshills/objsearch/internal/host/sqlitehost"
	"github.com/dshills/objsearch/internal/host/timeline"
	"github.com/dshills/objsearch/internal/ini"
	"github.com/dshills/objsearch/internal/logging"
	"github.com/dshills/objsearch/internal/placement"
	"github.com/dshills/objsearch/internal/router"
	"github.com/dshills/objsearch/internal/search"
)

// workerQueueSize bounds pending edit sessions.
const workerQueueSize = 16

// bootstrapper handles application initialization.
type bootstrapper struct {
	app  *Application
	opts Options

	// initOrder tracks initialization order for cleanup.
	initOrder []string
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in order. On failure everything
// already started is torn down.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"settings", b.initSettings},
		{"logger", b.initLogger},
		{"catalog", b.initCatalog},
		{"search", b.initSearch},
		{"host", b.initHost},
		{"worker", b.initWorker},
		{"placement", b.initPlacement},
		{"router", b.initRouter},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			var ie *InitError
			if errors.As(err, &ie) {
				return err
			}
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	b.app.logger.Debug("initialized: %v", b.initOrder)
	return nil
}

func (b *bootstrapper) initSettings() error {
	return b.app.settings.Validate()
}

func (b *bootstrapper) initLogger() error {
	if b.opts.Logger != nil {
		b.app.logger = b.opts.Logger
		return nil
	}
	s := b.app.settings.Logging
	level, err := logging.ParseLevel(s.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(s.Format)
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	if b.opts.LogOutput != nil {
		cfg.Output = b.opts.LogOutput
	}
	b.app.logger = logging.New(cfg)
	return nil
}

func (b *bootstrapper) initCatalog() error {
	log := b.app.logger.WithComponent("catalog")

	baseDir := b.opts.BaseDir
	if baseDir == "" {
		dir, err := config.ExecutableDir()
		if err != nil {
			log.Warn("cannot resolve executable directory: %v", err)
		}
		baseDir = dir
	}

	locator := config.NewLocator(b.opts.FS, baseDir, b.app.settings.CatalogCandidates())
	path, data, err := locator.Read()
	if err != nil {
		return err
	}
	b.app.catalogPath = path

	sections, err := ini.ParseBytes(data)
	if err != nil {
		var pe *ini.ParseError
		if !errors.As(err, &pe) {
			return err
		}
		log.WithField("path", path).Error("catalog unusable, continuing with no candidates: %v", err)
		b.app.catalogErr = err
		b.app.index = catalog.Empty()
		return nil
	}

	b.app.index = catalog.Build(sections)
	log.WithField("path", path).Info("loaded %d candidates", b.app.index.Len())
	return nil
}

func (b *bootstrapper) initSearch() error {
	b.app.engine = search.New(b.app.index, search.Options{
		CacheSize: b.app.settings.Search.CacheSize,
	})
	return nil
}

func (b *bootstrapper) initHost() error {
	if b.opts.Editor != nil {
		b.app.editor = b.opts.Editor
		return nil
	}

	s := b.app.settings.Host
	log := b.app.logger.WithComponent("host")
	switch s.Kind {
	case config.HostMemory, "":
		b.app.editor = timeline.New(timeline.WithMaxLayers(s.MaxLayers))
	case config.HostSQLite:
		store, err := sqlitehost.Open(context.Background(), sqlitehost.Options{
			Path:      s.Database,
			LockPath:  s.Lock,
			MaxLayers: s.MaxLayers,
			Logger:    log,
		})
		if err != nil {
			return err
		}
		b.app.editor = store
		b.app.closers = append(b.app.closers, store)
	case config.HostLua:
		h, err := luahost.LoadFile(s.Script, luahost.WithLogger(log))
		if err != nil {
			return err
		}
		b.app.editor = h
		b.app.closers = append(b.app.closers, h)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHost, s.Kind)
	}
	log.Debug("using %s host", kindName(s.Kind))
	return nil
}

func kindName(kind string) string {
	if kind == "" {
		return config.HostMemory
	}
	return kind
}

func (b *bootstrapper) initWorker() error {
	ctx, cancel := context.WithCancel(context.Background())
	b.app.worker = host.NewWorker(b.app.editor, workerQueueSize)
	b.app.cancel = cancel
	b.app.worker.Start(ctx)
	return nil
}

func (b *bootstrapper) initPlacement() error {
	s := b.app.settings.Placement
	b.app.planner = placement.NewPlanner(placement.Options{
		MaxAttempts: s.MaxAttempts,
		Default: host.LayerFrame{
			Layer:      s.DefaultLayer,
			FrameStart: s.DefaultFrameStart,
			FrameEnd:   s.DefaultFrameEnd,
		},
		Logger: b.app.logger.WithComponent("placement"),
	})
	b.app.inserter = placement.NewInserter(b.app.worker, b.app.planner)
	return nil
}

func (b *bootstrapper) initRouter() error {
	b.app.metrics = router.NewMetrics()
	r, err := router.New(router.Options{
		Searcher:    b.app.engine,
		Inserter:    b.app.inserter,
		Logger:      b.app.logger,
		Metrics:     b.app.metrics,
		Concurrency: b.app.settings.Search.Concurrency,
	})
	if err != nil {
		return err
	}
	b.app.router = r
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "worker":
			if b.app.worker != nil {
				b.app.worker.Close()
			}
			if b.app.cancel != nil {
				b.app.cancel()
			}
		case "host":
			closeAll(b.app.closers, b.app.logger)
			b.app.closers = nil
		}
	}
	b.initOrder = b.initOrder[:0]
}

func closeAll(closers []io.Closer, log *logging.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && log != nil {
			log.Warn("cleanup: %v", err)
		}
	}
}
