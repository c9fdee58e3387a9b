package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvLoader loads settings from prefixed environment variables.
// OBJSEARCH_PLACEMENT_MAX_ATTEMPTS maps to placement.max_attempts: the
// first word after the prefix is the section, the rest is the key.
type EnvLoader struct {
	prefix  string            // e.g. "OBJSEARCH_"
	mapping map[string]string // env var -> settings path
	lists   map[string]bool   // settings paths holding string lists
	environ func() []string
}

// NewEnvLoader creates an environment loader. The prefix should include
// the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		lists:   make(map[string]bool),
		environ: os.Environ,
	}
}

// AddMapping maps an environment variable to an explicit settings path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// ListPath marks a settings path as a list. Values for it are split on the
// OS path list separator unless they are JSON arrays.
func (l *EnvLoader) ListPath(path string) {
	l.lists[path] = true
}

// SetEnviron replaces the environment source, which defaults to os.Environ.
func (l *EnvLoader) SetEnviron(fn func() []string) {
	l.environ = fn
}

// Load reads matching environment variables.
// Empty values are kept as empty strings, not treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	out := make(map[string]any)
	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			if !strings.HasPrefix(name, l.prefix) {
				continue
			}
			if path = l.envToPath(name); path == "" {
				continue
			}
		}
		if l.lists[path] {
			SetByPath(out, path, parseList(value))
			continue
		}
		SetByPath(out, path, parseValue(value))
	}
	return out, nil
}

// envToPath converts OBJSEARCH_HOST_MAX_LAYERS to host.max_layers.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// parseValue converts an environment string to a bool, integer, float or
// JSON value where it unambiguously is one.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func parseList(s string) []any {
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		var v []any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	var out []any
	for _, part := range filepath.SplitList(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
