package config

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/objsearch/internal/config/loader"
)

// EnvPrefix prefixes every settings environment variable.
const EnvPrefix = "OBJSEARCH_"

// LoadOptions controls Load.
type LoadOptions struct {
	// FS reads the settings file. Defaults to the OS file system.
	FS loader.FileSystem
	// File is the settings file. Empty means none. A missing file is an
	// error when set explicitly.
	File string
	// Env loads environment overrides. Defaults to an OBJSEARCH_ loader;
	// set SkipEnv to disable.
	Env     *loader.EnvLoader
	SkipEnv bool
	// Overrides are dotted keys applied last, e.g. "logging.level".
	Overrides map[string]any
}

// NewEnvLoader returns the environment loader for objsearch settings.
// AVIUTL2_INI is honoured as an alias for catalog.path.
func NewEnvLoader() *loader.EnvLoader {
	env := loader.NewEnvLoader(EnvPrefix)
	env.AddMapping("AVIUTL2_INI", "catalog.path")
	env.ListPath("catalog.paths")
	return env
}

// Load builds Settings from defaults, the settings file, the environment
// and overrides, then validates the result.
func Load(opts LoadOptions) (Settings, error) {
	if opts.FS == nil {
		opts.FS = loader.DefaultFS()
	}

	merged, err := toMap(Defaults())
	if err != nil {
		return Settings{}, err
	}

	if opts.File != "" {
		l, err := loader.ForPath(opts.FS, opts.File)
		if err != nil {
			return Settings{}, err
		}
		fileCfg, err := l.Load()
		if err != nil {
			return Settings{}, err
		}
		if fileCfg == nil {
			return Settings{}, fmt.Errorf("settings file %s does not exist", opts.File)
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}

	if !opts.SkipEnv {
		env := opts.Env
		if env == nil {
			env = NewEnvLoader()
		}
		envCfg, err := env.Load()
		if err != nil {
			return Settings{}, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, envCfg)
	}

	for path, v := range opts.Overrides {
		loader.SetByPath(merged, path, v)
	}

	s, err := fromMap(merged)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func toMap(s Settings) (map[string]any, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return loader.ParseTOML("<defaults>", data)
}

// fromMap decodes a merged map strictly, so unknown keys and wrong types
// are reported instead of ignored.
func fromMap(m map[string]any) (Settings, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return Settings{}, fmt.Errorf("encoding merged settings: %w", err)
	}
	var s Settings
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return s, nil
}
