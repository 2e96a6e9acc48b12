package inspect

import (
	"errors"
	"fmt"

	"github.com/five82/glint/internal/search"
)

var (
	// ErrRange matches every *RangeError.
	ErrRange = errors.New("invalid inspection range")
	// ErrCanceled is the result of a task that was canceled before it settled.
	ErrCanceled = errors.New("inspection task canceled")
	// ErrDestroyed is returned by tasks started after Destroy.
	ErrDestroyed = errors.New("inspection engine destroyed")
)

// RangeError reports a read window that cannot be scanned.
type RangeError struct {
	From uint64
	To   uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("cannot inspect range: from = %d; to = %d", e.From, e.To)
}

// Is reports ErrRange as a match.
func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}

// ProcessError is the search pipeline failure surfaced by a rejected task.
type ProcessError = search.ProcessError
