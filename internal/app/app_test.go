package app

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/objsearch/internal/config"
	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/host/timeline"
	"github.com/dshills/objsearch/internal/logging"
	"github.com/dshills/objsearch/internal/placement"
)

const testCatalog = `[effect.Fire_A]
label=Fire Blast
[effect.Ice_B]
label=Ice Shard
[other]
label=Ignored
`

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m[path]; ok {
		return fileInfo(path), nil
	}
	return nil, fs.ErrNotExist
}

type fileInfo string

func (i fileInfo) Name() string       { return string(i) }
func (i fileInfo) Size() int64        { return 0 }
func (i fileInfo) Mode() fs.FileMode  { return 0o644 }
func (i fileInfo) ModTime() time.Time { return time.Time{} }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return nil }

func testSettings() config.Settings {
	s := config.Defaults()
	s.Catalog.Path = "/data/aviutl2.ini"
	s.Search.Concurrency = 2
	return s
}

func newTestApp(t *testing.T, catalog string, mutate func(*Options)) *Application {
	t.Helper()
	opts := Options{
		Settings: testSettings(),
		FS:       memFS{"/data/aviutl2.ini": catalog},
		Logger:   logging.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	app, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app
}

func TestNewLoadsCatalog(t *testing.T) {
	app := newTestApp(t, testCatalog, nil)

	require.Equal(t, 2, app.Index().Len())
	assert.Equal(t, filepath.FromSlash("/data/aviutl2.ini"), app.CatalogPath())
	assert.NoError(t, app.CatalogError())

	got := app.Search("fire")
	require.Len(t, got, 1)
	assert.Equal(t, "Fire_A", got[0].Identifier)

	hits := app.Rank("ice")
	require.Len(t, hits, 1)
	assert.Positive(t, hits[0].Score)
}

func TestNewMissingCatalog(t *testing.T) {
	_, err := New(Options{
		Settings: testSettings(),
		FS:       memFS{},
		Logger:   logging.Nop(),
	})
	require.ErrorIs(t, err, config.ErrConfigNotFound)

	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "catalog", ie.Component)
}

func TestNewMalformedCatalogIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	cfg := logging.DefaultConfig()
	cfg.Output = &buf
	app := newTestApp(t, "[effect.Fire_A]\nlabel=Fire\nnot a valid line\n", func(o *Options) {
		o.Logger = logging.New(cfg)
	})

	assert.Zero(t, app.Index().Len())
	assert.Error(t, app.CatalogError())
	assert.Empty(t, app.Search(""))
	assert.Contains(t, buf.String(), "catalog unusable")
}

func TestNewInvalidSettings(t *testing.T) {
	s := testSettings()
	s.Placement.MaxAttempts = 0
	_, err := New(Options{Settings: s, FS: memFS{}, Logger: logging.Nop()})
	require.ErrorIs(t, err, config.ErrInvalidSettings)

	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "settings", ie.Component)
}

func TestNewUnknownHost(t *testing.T) {
	app := &Application{settings: testSettings()}
	app.settings.Host.Kind = "carrier-pigeon"
	app.logger = logging.Nop()

	b := newBootstrapper(app, Options{})
	assert.ErrorIs(t, b.initHost(), ErrUnknownHost)
}

func TestSelectPlacesOnTimeline(t *testing.T) {
	tl := timeline.New()
	app := newTestApp(t, testCatalog, func(o *Options) { o.Editor = tl })

	for want := 0; want < 3; want++ {
		out, err := app.Select(context.Background(), "Fire_A")
		require.NoError(t, err)
		assert.Equal(t, want, out.Layer)
	}
	assert.Len(t, tl.Objects(), 3)
}

func TestSelectExhausted(t *testing.T) {
	s := testSettings()
	s.Placement.MaxAttempts = 2
	app := newTestApp(t, testCatalog, func(o *Options) {
		o.Settings = s
		o.Editor = host.EditorFunc(func(_ context.Context, fn func(host.Session) error) error {
			return fn(conflictSession{})
		})
	})

	out, err := app.Select(context.Background(), "Fire_A")
	require.ErrorIs(t, err, placement.ErrInsertionFailed)

	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "select", oe.Op)
	assert.Equal(t, "Fire_A", oe.Target)
	assert.True(t, out.AttemptsExhausted)
	assert.Equal(t, 2, out.Attempts)
}

type conflictSession struct{}

func (conflictSession) FocusedObject() (host.ObjectHandle, bool, error) { return "", false, nil }
func (conflictSession) LayerFrame(host.ObjectHandle) (host.LayerFrame, error) {
	return host.LayerFrame{}, host.ErrUnknownObject
}
func (conflictSession) CreateObject(int, int, int, string) error {
	return host.ErrPlacementConflict
}

func TestServe(t *testing.T) {
	app := newTestApp(t, testCatalog, nil)

	in := strings.NewReader(`{"type":"search","data":"ice"}` + "\n" +
		`garbage` + "\n" +
		`{"type":"select","data":"Ice_B","id":7}` + "\n")
	var out bytes.Buffer
	require.NoError(t, app.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, out.String())

	byType := map[string]string{}
	for _, line := range lines {
		byType[gjson.Get(line, "type").String()] = line
	}
	assert.Equal(t, "Ice_B", gjson.Get(byType["search_result"], "data.candidates.0.identifier").String())
	assert.EqualValues(t, 7, gjson.Get(byType["select_result"], "id").Int())

	m := app.Metrics()
	assert.EqualValues(t, 1, m.Searches)
	assert.EqualValues(t, 1, m.Placed)
	assert.EqualValues(t, 1, m.Malformed)
}

func TestShutdown(t *testing.T) {
	app := newTestApp(t, testCatalog, nil)

	require.NoError(t, app.Shutdown())
	require.NoError(t, app.Shutdown(), "second Shutdown")

	_, err := app.Select(context.Background(), "Fire_A")
	assert.ErrorIs(t, err, ErrShutdown)

	err = app.Serve(context.Background(), strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestSQLiteHost(t *testing.T) {
	s := testSettings()
	s.Host.Kind = config.HostSQLite
	s.Host.Database = filepath.Join(t.TempDir(), "timeline.db")
	app := newTestApp(t, testCatalog, func(o *Options) { o.Settings = s })

	for want := 0; want < 2; want++ {
		out, err := app.Select(context.Background(), "Ice_B")
		require.NoError(t, err)
		assert.Equal(t, want, out.Layer)
	}
}

func TestLuaHostMissingScript(t *testing.T) {
	s := testSettings()
	s.Host.Kind = config.HostLua
	s.Host.Script = filepath.Join(t.TempDir(), "missing.lua")
	_, err := New(Options{
		Settings: s,
		FS:       memFS{"/data/aviutl2.ini": testCatalog},
		Logger:   logging.Nop(),
	})

	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "host", ie.Component)
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	require.NoError(t, list.AsError())

	list.Add(nil)
	list.Add(ErrShutdown)
	list.Add(ErrUnknownHost)
	require.Equal(t, 2, list.Len())

	err := list.AsError()
	assert.ErrorIs(t, err, ErrUnknownHost)
	assert.ErrorIs(t, err, ErrShutdown)
	assert.True(t, strings.HasPrefix(err.Error(), "2 errors"), err.Error())
}

func TestOperationError(t *testing.T) {
	tests := []struct {
		err  *OperationError
		want string
	}{
		{NewOperationError("select", "Fire_A", ErrShutdown), "select Fire_A: application shut down"},
		{NewOperationError("serve", "", ErrShutdown), "serve: application shut down"},
		{NewOperationError("select", "Glow", nil), "select Glow"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}
