package config

import (
	"os"
	"path/filepath"

	"github.com/dshills/objsearch/internal/config/loader"
)

// Locator finds the catalog file among ordered candidates.
type Locator struct {
	fs         loader.FileSystem
	baseDir    string
	candidates []string
}

// NewLocator creates a locator. Relative candidates resolve against
// baseDir; an empty baseDir leaves them relative to the working directory.
func NewLocator(fsys loader.FileSystem, baseDir string, candidates []string) *Locator {
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	return &Locator{
		fs:         fsys,
		baseDir:    baseDir,
		candidates: append([]string(nil), candidates...),
	}
}

// Candidates returns the resolved candidate paths in order.
func (l *Locator) Candidates() []string {
	out := make([]string, len(l.candidates))
	for i, c := range l.candidates {
		out[i] = l.resolve(c)
	}
	return out
}

// Locate returns the first candidate that exists as a regular file, or an
// error wrapping ErrConfigNotFound.
func (l *Locator) Locate() (string, error) {
	tried := l.Candidates()
	for _, p := range tried {
		info, err := l.fs.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", &NotFoundError{Tried: tried}
}

// Read locates the catalog and returns its path and contents.
func (l *Locator) Read() (string, []byte, error) {
	p, err := l.Locate()
	if err != nil {
		return "", nil, err
	}
	data, err := l.fs.ReadFile(p)
	if err != nil {
		return p, nil, err
	}
	return p, data, nil
}

func (l *Locator) resolve(p string) string {
	p = filepath.FromSlash(p)
	if l.baseDir == "" || isAbs(p) {
		return p
	}
	return filepath.Join(l.baseDir, p)
}

// isAbs also treats drive-letter paths as absolute on every platform, so
// the Windows default candidate is never joined onto a Unix directory.
func isAbs(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\') &&
		(('a' <= p[0] && p[0] <= 'z') || ('A' <= p[0] && p[0] <= 'Z'))
}

// ExecutableDir returns the directory of the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
