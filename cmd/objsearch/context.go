package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dshills/objsearch/internal/app"
	"github.com/dshills/objsearch/internal/config"
)

// globalFlags are persistent flags that map onto settings keys.
type globalFlags struct {
	settings   string
	catalog    string
	logLevel   string
	logFormat  string
	host       string
	hostDB     string
	hostScript string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.settings, "settings", "s", "", "Settings file (.toml, .yaml)")
	pf.StringVar(&f.catalog, "catalog", "", "Catalog INI file (overrides catalog.paths)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&f.host, "host", "", "Host editor: memory, sqlite, lua")
	pf.StringVar(&f.hostDB, "host-db", "", "Timeline database for the sqlite host")
	pf.StringVar(&f.hostScript, "host-script", "", "Script for the lua host")
}

// overrides returns the settings keys set on the command line.
func (f *globalFlags) overrides() map[string]any {
	out := make(map[string]any)
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			out[key] = v
		}
	}
	set("catalog.path", f.catalog)
	set("logging.level", f.logLevel)
	set("logging.format", f.logFormat)
	set("host.kind", f.host)
	set("host.database", f.hostDB)
	set("host.script", f.hostScript)
	return out
}

type commandContext struct {
	flags globalFlags

	appOnce sync.Once
	app     *app.Application
	appErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureApp loads settings and starts the application once per process.
func (c *commandContext) ensureApp(cmd *cobra.Command) (*app.Application, error) {
	c.appOnce.Do(func() {
		settings, err := config.Load(config.LoadOptions{
			File:      strings.TrimSpace(c.flags.settings),
			Overrides: c.flags.overrides(),
		})
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = app.New(app.Options{
			Settings:  settings,
			LogOutput: cmd.ErrOrStderr(),
		})
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Shutdown()
}
