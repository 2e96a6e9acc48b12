// Package app is glint's composition root.
//
// # Overview
//
// This package wires configuration, preferences, logging, the scanner, the
// follow session and either the TUI or the text report together. The CLI in
// cmd/glint calls one of two entry points:
//
//   - Run: follow a file and show the heat map until the user quits
//   - Scan: inspect a file once and print per-pattern totals
//
// # Startup
//
//  1. Load config (viper: defaults, ~/.config/glint/config.toml, GLINT_*
//     environment variables, changed command-line flags)
//  2. Load prefs (Run only): theme, counting mode and the patterns that were
//     active when glint last exited
//  3. Build the slog logger. The TUI owns the terminal, so Run logs only to
//     logging.file; Scan falls back to stderr
//  4. Select the scanner: ripgrep.path, then rg from PATH, then the built-in
//     RE2 matcher
//  5. Parse patterns from config, prefs and the command line, in that order;
//     duplicates are dropped by the session
//  6. Start the session and hand it to the UI, or refresh it once for Scan
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()     Resolve settings
//	       ├─────> prefs.Load()      Theme, details, patterns
//	       ├─────> session.New()     Engine + store for the stream file
//	       ├─────> session.Run()     Follow loop (goroutine)
//	       └─────> ui.Run()          TUI (blocks)
//
// # Error Handling
//
// Invalid configuration, an unparsable pattern or a missing stream file
// argument stop startup. A stream file that does not exist yet is not an
// error: the session publishes an empty map until it appears. Inspection
// failures during Run are shown in the UI; Scan prints the report and then
// returns the failure.
package app
