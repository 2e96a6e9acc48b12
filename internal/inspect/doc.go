// Package inspect is the inspection engine: it searches the newest window of
// an append-only log for patterns and keeps, per row, which patterns matched.
//
// # Overview
//
// An Engine owns one stream. Its read window [ReadFrom, ReadTo) is advanced
// with SetReadTo, where the previous end becomes the new start:
//
//	eng.SetReadTo(size)
//	task := eng.Perform(pattern)
//	if err := task.Wait(ctx); err != nil {
//		return err
//	}
//
// Perform returns at once. The task checks that the stream file exists,
// validates the window, opens the search file at exactly that byte range and
// hands it to a search.Scanner. The reported line numbers are shifted to
// absolute rows and merged into the line map.
//
// # Task Lifecycle
//
// A task moves from Pending to exactly one of Resolved, Rejected or
// Canceled. Running tasks are kept in a registry; the goroutine that removes
// a task from the registry is the one that settles it, so a cancel racing a
// completing scan produces a single outcome and the cleanup (kill the
// process, close the file, stop the transform) runs once. Errors raised after
// a task left the registry are dropped.
//
// A missing stream file is not an error: the task resolves without touching
// the line map. An empty or inverted window rejects with *RangeError. Scanner
// failures reject with *ProcessError. Options.TaskTimeout, when set, rejects
// stuck tasks with a ProcessError of op "timeout".
//
// # Line Map
//
// Merging counts every reported match in the per-pattern totals but records a
// pattern at most once per row. Merging the same result twice therefore
// doubles the totals and leaves the row sets unchanged.
//
// Drop cancels all running tasks and resets the window and the line map.
// Results of tasks that were already past cancellation when Drop ran are
// discarded.
//
// # Scaling
//
// Map compresses the line map into a fixed number of bins for the overview.
// With rate = length/factor, bin i covers rows [start+(i-1)*rate,
// start+i*rate]; both ends are inclusive so a row on a boundary counts in
// both neighbours. When details is false only the first matching row in each
// bin is counted. A rate of 1 or less, or a range whose end precedes its
// begin, yields empty bins.
package inspect
