// Package config loads glint's configuration.
//
// # Resolution Order
//
// Later sources override earlier ones:
//
//  1. Built-in defaults
//  2. The TOML file given with --config, or ~/.config/glint/config.toml
//  3. GLINT_* environment variables (GLINT_VIEW_FACTOR for view.factor)
//  4. Command-line flags the user actually set
//
// A missing config file is not an error. A file that exists but does not
// parse is.
//
// # TOML Format
//
//	patterns = ["error", "/timeout/i"]
//
//	[ripgrep]
//	path = "/usr/bin/rg"   # empty: rg from PATH, else the built-in matcher
//	pcre2 = true           # PCRE2 syntax (lookaround, backreferences)
//
//	[inspect]
//	task_timeout = "0s"    # 0 disables the per-task deadline
//
//	[view]
//	factor = 60            # bins per heat strip
//	details = false        # exact per-bin counts
//	tail_lines = 200
//
//	[follow]
//	poll_interval = "2s"
//	min_interval = "250ms"
//	retry_max_elapsed = "10s"
//
//	[logging]
//	level = "info"         # debug, info, warn, error
//	format = "text"        # text or json
//	file = "~/.local/state/glint/glint.log"
//
// # Path Expansion
//
// A leading tilde in ripgrep.path and logging.file is expanded to the home
// directory and the result made absolute.
//
// # Validation
//
// Load returns an error wrapping one of the Err* sentinels when a value is
// out of range, so callers can use errors.Is.
package config
