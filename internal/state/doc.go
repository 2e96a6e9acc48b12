// Package state provides thread-safe state sharing between the session
// follower and the UI.
//
// # Overview
//
// The follower publishes the outcome of every refresh (file size, row count,
// the active patterns and the scaled heat map) into a Store. The UI reads a
// Snapshot on its own tick and renders it. Neither side waits for the other.
//
//	Producer (session):            Consumer (UI):
//	┌─────────────────┐           ┌─────────────────┐
//	│ SetReadTo()     │           │                 │
//	│ Perform() x N   │           │                 │
//	│ Map()           │           │                 │
//	│ store.Update()  │──────────→│ store.Snapshot()│
//	│ repeat on grow  │  (mutex)  │ render          │
//	└─────────────────┘           └─────────────────┘
//
// # Update Semantics
//
// Update with a nil error replaces the data fields and clears the failure
// counter. Update with an error keeps the previous data, records the error
// and increments ConsecutiveFailures, so the UI keeps showing the last good
// map alongside the problem. IsStalled reports two or more failures in a row.
//
// Inflight is tracked separately with SetInflight because it changes while
// tasks run, between refreshes.
//
// # Copies
//
// Snapshot returns deep copies of the pattern slice and of every bin, and a
// wrapped copy of LastError. Callers may mutate what they get back.
//
// The zero Store is ready to use.
package state
