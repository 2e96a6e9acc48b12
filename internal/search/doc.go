// Package search wraps the line matchers glint delegates pattern matching to.
//
// # Overview
//
// glint never interprets patterns itself. A Scanner receives a byte stream
// (one window of the search file) and reports the line numbers that matched,
// one report line per match:
//
//	12:
//	12:
//	40:
//
// Two scanners are provided:
//
//   - Ripgrep: spawns rg per scan, feeds the window through stdin and drains
//     stdout. Exit status 1 means "no match" and is not an error.
//   - RE2: an in-process matcher built on go-re2 that writes the same report.
//     It is used by tests and when no rg binary is configured.
//
// # Decoding
//
// LineTransform is an io.Writer placed on the scanner's output. It decodes
// numbers as they stream through without buffering the report, tolerates
// lines split across writes and skips malformed lines. A base offset turns
// window-relative numbers into absolute 0-based rows.
//
// # Errors
//
// Failures are reported as *ProcessError with the pipeline stage that
// failed (spawn, stdin, stdout, reader, wait, compile, timeout) and, for
// rg, the tail of its stderr.
package search
