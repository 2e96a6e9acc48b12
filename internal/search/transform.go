package search

import (
	"bytes"
	"strconv"
	"sync"
)

// LineTransform decodes the line-number report of a scanner as it streams
// through. It keeps only the decoded numbers and the current partial line.
//
// Reported numbers are 1-based and relative to the scanned slice; base shifts
// them to absolute 0-based rows.
type LineTransform struct {
	mu      sync.Mutex
	base    uint64
	partial []byte
	lines   []uint64
	skipped int
	stopped bool
}

// NewLineTransform returns a transform that offsets every decoded line by base.
func NewLineTransform(base uint64) *LineTransform {
	return &LineTransform{base: base}
}

// Write feeds a chunk of scanner output. It never fails so the producer keeps
// draining; output arriving after Stop is discarded.
func (t *LineTransform) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return len(p), nil
	}

	data := p
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			t.partial = append(t.partial, data...)
			break
		}
		if len(t.partial) > 0 {
			t.partial = append(t.partial, data[:idx]...)
			t.decode(t.partial)
			t.partial = t.partial[:0]
		} else {
			t.decode(data[:idx])
		}
		data = data[idx+1:]
	}
	return len(p), nil
}

// decode parses "N", "N:" or "N:content". Anything else is counted as
// skipped.
func (t *LineTransform) decode(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	end := bytes.IndexByte(line, ':')
	if end < 0 {
		end = len(line)
	}
	n, err := strconv.ParseUint(string(line[:end]), 10, 64)
	if err != nil || n == 0 {
		t.skipped++
		return
	}
	t.lines = append(t.lines, t.base+n-1)
}

// Lines flushes any trailing partial line and returns the decoded rows in
// report order.
func (t *LineTransform) Lines() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.stopped && len(t.partial) > 0 {
		t.decode(t.partial)
		t.partial = nil
	}
	out := make([]uint64, len(t.lines))
	copy(out, t.lines)
	return out
}

// Skipped reports how many malformed report lines were ignored.
func (t *LineTransform) Skipped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

// Stop detaches the transform from its stream. Safe to call repeatedly.
func (t *LineTransform) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.partial = nil
}
