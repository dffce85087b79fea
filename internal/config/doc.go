// Package config loads llmgrep settings.
//
// Settings are layered: built-in defaults, then an optional TOML file, then
// environment variables. A minimal file:
//
//	database = "/path/to/codegraph.db"
//	root = "/path/to/project"
//
//	[search]
//	limit = 20
//
//	[algo]
//	binary = "magellan"
//	timeout = "45s"
//
//	[watch]
//	debounce = "1s"
//	patterns = ["*.db", "*.db-wal"]
//
// LLMGREP_DB, LLMGREP_ROOT, LLMGREP_ALGO_BIN and LLMGREP_ALGO_TIMEOUT
// override the file.
package config
