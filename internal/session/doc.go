// Package session follows one log file and keeps its heat map current.
//
// # Overview
//
// A Session owns an inspect.Engine for a stream file and drives it:
//
//	s, err := session.New(session.Options{StreamFile: path, Patterns: patterns})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	go s.Run(ctx)
//
// Each refresh stats the search file, moves the engine's read window to its
// current end, runs every active pattern over the new bytes concurrently and
// publishes a state.Snapshot with the scaled map. RunOnce performs a single
// refresh and is what the headless scan command uses.
//
// # Following
//
// Run watches the directories holding the stream and search files with
// fsnotify and refreshes when one of them is written, created, removed or
// renamed. A ticker (PollInterval) covers file systems that do not deliver
// events, and Refresh wakes the loop on demand. A rate limiter spaces
// refreshes at least MinInterval apart.
//
// # Resets
//
// The window is shared by all patterns, so changing the pattern set starts
// over: AddPattern and RemovePattern drop the engine state and the next
// refresh inspects the whole file again. The same happens when the search
// file shrinks, which is taken as truncation or rotation.
//
// # Failures
//
// A failed task is retried with exponential backoff (cenkalti/backoff) for
// up to RetryMaxElapsed when the failure looks transient: read errors,
// broken pipes and timeouts. Invalid patterns, a missing rg binary and
// invalid windows fail at once. The window is consumed either way, and the
// error is recorded on the snapshot so the UI can show it.
package session
