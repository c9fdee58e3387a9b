package config

import (
	"runtime"

	"github.com/dshills/objsearch/internal/logging"
)

// Host kinds.
const (
	HostMemory = "memory"
	HostSQLite = "sqlite"
	HostLua    = "lua"
)

// MaxAttemptsLimit is the largest accepted placement.max_attempts.
const MaxAttemptsLimit = 1000

// DefaultCatalogPaths are tried in order when no catalog path is set.
// Relative entries resolve against the executable's directory.
var DefaultCatalogPaths = []string{
	"data/aviutl2.ini",
	"C:/ProgramData/aviutl2/aviutl2.ini",
	"aviutl2.ini",
}

// Settings is the complete engine configuration.
type Settings struct {
	Catalog   CatalogSettings   `toml:"catalog" yaml:"catalog"`
	Search    SearchSettings    `toml:"search" yaml:"search"`
	Placement PlacementSettings `toml:"placement" yaml:"placement"`
	Logging   LoggingSettings   `toml:"logging" yaml:"logging"`
	Host      HostSettings      `toml:"host" yaml:"host"`
}

// CatalogSettings locates the effect catalog.
type CatalogSettings struct {
	// Paths are candidate locations, first existing wins.
	Paths []string `toml:"paths" yaml:"paths"`
	// Path, when set, is the only candidate.
	Path string `toml:"path" yaml:"path"`
}

// SearchSettings tunes the search engine.
type SearchSettings struct {
	// CacheSize is the number of cached queries. Zero disables the cache.
	CacheSize int `toml:"cache_size" yaml:"cache_size"`
	// Concurrency bounds concurrent searches in the bridge.
	Concurrency int `toml:"concurrency" yaml:"concurrency"`
}

// PlacementSettings tunes the placement planner.
type PlacementSettings struct {
	MaxAttempts       int `toml:"max_attempts" yaml:"max_attempts"`
	DefaultLayer      int `toml:"default_layer" yaml:"default_layer"`
	DefaultFrameStart int `toml:"default_frame_start" yaml:"default_frame_start"`
	DefaultFrameEnd   int `toml:"default_frame_end" yaml:"default_frame_end"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// HostSettings selects and configures the host editor adapter.
type HostSettings struct {
	Kind      string `toml:"kind" yaml:"kind"`
	Database  string `toml:"database" yaml:"database"`
	Lock      string `toml:"lock" yaml:"lock"`
	Script    string `toml:"script" yaml:"script"`
	MaxLayers int    `toml:"max_layers" yaml:"max_layers"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Catalog: CatalogSettings{
			Paths: append([]string(nil), DefaultCatalogPaths...),
		},
		Search: SearchSettings{
			CacheSize:   128,
			Concurrency: runtime.GOMAXPROCS(0),
		},
		Placement: PlacementSettings{
			MaxAttempts:       10,
			DefaultLayer:      0,
			DefaultFrameStart: 0,
			DefaultFrameEnd:   60,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
		Host: HostSettings{
			Kind:      HostMemory,
			MaxLayers: 100,
		},
	}
}

// Validate checks every setting and returns ValidationErrors listing all
// failures, or nil.
func (s Settings) Validate() error {
	var errs ValidationErrors
	fail := func(path string, value any, msg string) {
		errs = append(errs, &ValidationError{Path: path, Value: value, Message: msg})
	}

	if s.Catalog.Path == "" && len(s.Catalog.Paths) == 0 {
		fail("catalog.paths", s.Catalog.Paths, "at least one candidate path is required")
	}

	if s.Search.CacheSize < 0 {
		fail("search.cache_size", s.Search.CacheSize, "must not be negative")
	}
	if s.Search.Concurrency < 1 {
		fail("search.concurrency", s.Search.Concurrency, "must be at least 1")
	}

	p := s.Placement
	if p.MaxAttempts < 1 || p.MaxAttempts > MaxAttemptsLimit {
		fail("placement.max_attempts", p.MaxAttempts, "must be between 1 and 1000")
	}
	if p.DefaultLayer < 0 {
		fail("placement.default_layer", p.DefaultLayer, "must not be negative")
	}
	if p.DefaultFrameStart < 0 {
		fail("placement.default_frame_start", p.DefaultFrameStart, "must not be negative")
	}
	if p.DefaultFrameEnd <= p.DefaultFrameStart {
		fail("placement.default_frame_end", p.DefaultFrameEnd, "must be greater than default_frame_start")
	}

	if _, err := logging.ParseLevel(s.Logging.Level); err != nil {
		fail("logging.level", s.Logging.Level, "must be debug, info, warn or error")
	}
	if _, err := logging.ParseFormat(s.Logging.Format); err != nil {
		fail("logging.format", s.Logging.Format, "must be text or json")
	}

	switch s.Host.Kind {
	case HostMemory:
	case HostSQLite:
		if s.Host.Database == "" {
			fail("host.database", s.Host.Database, "is required for the sqlite host")
		}
	case HostLua:
		if s.Host.Script == "" {
			fail("host.script", s.Host.Script, "is required for the lua host")
		}
	default:
		fail("host.kind", s.Host.Kind, "must be memory, sqlite or lua")
	}
	if s.Host.MaxLayers < 1 {
		fail("host.max_layers", s.Host.MaxLayers, "must be at least 1")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CatalogCandidates returns the catalog paths to try, in order.
func (s Settings) CatalogCandidates() []string {
	if s.Catalog.Path != "" {
		return []string{s.Catalog.Path}
	}
	return append([]string(nil), s.Catalog.Paths...)
}
