// Package loader reads layered settings sources into plain maps: TOML and
// YAML files, and prefixed environment variables.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader reads configuration from one source. Load returns nil, nil when
// the source does not exist.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem is the read-only file access the loaders and the catalog
// locator need. Tests substitute an in-memory implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS reads from the host file system.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem {
	return OSFS{}
}

// ForPath picks a file loader by extension.
func ForPath(fsys FileSystem, path string) (Loader, error) {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".toml":
		return NewTOMLLoaderWithFS(fsys, path), nil
	case ".yaml", ".yml":
		return NewYAMLLoaderWithFS(fsys, path), nil
	}
	return nil, fmt.Errorf("settings file %s: unsupported extension %q (want .toml, .yaml or .yml)", path, ext)
}

// ParseError locates a syntax error in a settings file. Line and Column
// are 1-based; zero means unknown.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error formats as path:line:column: message, omitting unknown positions.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DeepMerge overlays src onto dst and returns dst. Nested maps merge key by
// key; any other src value replaces what dst held.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				dst[k] = DeepMerge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

// SetByPath stores value at a dotted path such as "host.max_layers",
// creating or replacing intermediate tables as needed.
func SetByPath(data map[string]any, path string, value any) {
	parent, leaf := walk(data, path, true)
	parent[leaf] = value
}

// GetByPath returns the value at a dotted path.
func GetByPath(data map[string]any, path string) (any, bool) {
	parent, leaf := walk(data, path, false)
	if parent == nil {
		return nil, false
	}
	v, ok := parent[leaf]
	return v, ok
}

// walk descends to the table holding the last path segment. With create
// unset it returns nil when an intermediate table is missing.
func walk(data map[string]any, path string, create bool) (map[string]any, string) {
	segments := strings.Split(path, ".")
	table := data
	for _, seg := range segments[:len(segments)-1] {
		next, ok := table[seg].(map[string]any)
		if !ok {
			if !create {
				return nil, ""
			}
			next = make(map[string]any)
			table[seg] = next
		}
		table = next
	}
	return table, segments[len(segments)-1]
}
