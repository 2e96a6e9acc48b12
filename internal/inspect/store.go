package inspect

import (
	"maps"
	"sync"
)

// store is the per-session inspection state. Only the Engine mutates it:
// merge after a task completes, the window setter, and reset on Drop.
type store struct {
	mu         sync.RWMutex
	generation uint64
	readFrom   uint64
	readTo     uint64
	lines      map[uint64]map[string]struct{}
	stats      map[string]uint64
}

func newStore() *store {
	return &store{
		lines: make(map[uint64]map[string]struct{}),
		stats: make(map[string]uint64),
	}
}

// setReadTo advances the window; the previous end becomes the new start.
func (s *store) setReadTo(pos uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readFrom = s.readTo
	s.readTo = pos
}

// window returns the current read window and the generation it belongs to.
func (s *store) window() (from, to, generation uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readFrom, s.readTo, s.generation
}

// merge adds one task's matches. Stats count every occurrence; the line map
// keeps each pattern once per line. Results from a generation that was reset
// meanwhile are discarded.
func (s *store) merge(generation uint64, key string, lines []uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.stats[key] += uint64(len(lines))
	for _, line := range lines {
		set, ok := s.lines[line]
		if !ok {
			set = make(map[string]struct{}, 1)
			s.lines[line] = set
		}
		set[key] = struct{}{}
	}
	return true
}

// reset clears everything and invalidates results of running tasks.
func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.readFrom = 0
	s.readTo = 0
	s.lines = make(map[uint64]map[string]struct{})
	s.stats = make(map[string]uint64)
}

func (s *store) statsCopy() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.stats)
}

// patternsAt returns the patterns recorded at line, sorted for stable output.
func (s *store) patternsAt(line uint64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.lines[line])
}
