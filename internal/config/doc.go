// Package config holds objsearch's engine settings and resolves the
// catalog file location.
//
// Settings are layered, later layers winning:
//
//  1. Defaults()
//  2. a settings file (.toml or .yaml/.yml)
//  3. OBJSEARCH_* environment variables
//  4. explicit overrides (CLI flags)
//
// Example settings file:
//
//	[catalog]
//	paths = ["data/aviutl2.ini", "aviutl2.ini"]
//
//	[placement]
//	max_attempts = 10
//	default_frame_end = 60
//
//	[host]
//	kind = "sqlite"
//	database = "timeline.db"
package config
