package state

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/five82/glint/internal/inspect"
	"github.com/five82/glint/internal/search"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	File     string
	Size     uint64 // bytes of the stream file covered by the last window
	Rows     uint64 // rows in the search file up to Size
	Patterns []search.Pattern
	Map      inspect.ScaledMap
	Details  bool

	Inflight            int
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed refreshes
}

// IsStalled returns true when refreshes have failed repeatedly.
func (s Snapshot) IsStalled() bool {
	return s.ConsecutiveFailures >= 2
}

// Total returns the unscaled match count of p.
func (s Snapshot) Total(p search.Pattern) uint64 {
	return s.Map.Stats[p.Key()]
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot data. When err is non-nil the previous
// data is kept but the error is recorded for visibility.
func (s *Store) Update(next Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.File = next.File
	s.snapshot.Size = next.Size
	s.snapshot.Rows = next.Rows
	s.snapshot.Patterns = slices.Clone(next.Patterns)
	s.snapshot.Map = cloneMap(next.Map)
	s.snapshot.Details = next.Details
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetInflight records the number of running inspection tasks.
func (s *Store) SetInflight(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Inflight = n
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Patterns = slices.Clone(s.snapshot.Patterns)
	snap.Map = cloneMap(s.snapshot.Map)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneMap(m inspect.ScaledMap) inspect.ScaledMap {
	out := inspect.ScaledMap{Stats: maps.Clone(m.Stats)}
	if m.Bins != nil {
		out.Bins = make([]map[string]uint64, len(m.Bins))
		for i, bin := range m.Bins {
			out.Bins[i] = maps.Clone(bin)
		}
	}
	return out
}
