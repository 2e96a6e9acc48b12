// Package ui renders glint's terminal interface with Bubble Tea.
//
// # Overview
//
// The Model polls a Controller (normally a *session.Session) on every tick
// and draws the latest state.Snapshot:
//
//	header    file, size, rows, running tasks, exact/approx counting
//	commands  key hints
//	strips    one heat strip per pattern with its total
//	preview   the tail of the stream, marked per matching pattern
//	input     pattern entry, errors, or a stalled-refresh warning
//
// # Heat strips
//
// Each strip shows the scaled bins of one pattern. Bins are fitted to the
// terminal width (fitBins keeps the largest count of merged bins) and drawn
// with an eight step block ramp scaled to the strip's own peak, so a pattern
// with few matches is as readable as a noisy one. Empty bins are dots.
//
// # Keys
//
// "/" opens the pattern entry; enter adds, esc cancels. "x" removes the
// selected pattern, "j"/"k" move the selection, "d" switches between exact
// and first-match-per-bin counts, "r" refreshes now, "T" cycles themes and
// "?" shows help. Theme, counting mode and active patterns are written to
// prefs as they change.
package ui
