package search

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline stages reported in ProcessError.Op.
const (
	OpSpawn   = "spawn"
	OpStdin   = "stdin"
	OpStdout  = "stdout"
	OpReader  = "reader"
	OpWait    = "wait"
	OpCompile = "compile"
	OpTimeout = "timeout"
)

// ProcessError reports a failure of the search process or one of the streams
// wired to it.
type ProcessError struct {
	Op     string
	Err    error
	Stderr string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("search %s: %v", e.Op, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// WrapStage tags err with op unless it already carries a stage.
func WrapStage(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		return err
	}
	return &ProcessError{Op: op, Err: err}
}
