package inspect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/glint/internal/search"
)

// fakeScanner drains its input, optionally blocks until released or
// canceled, then writes a fixed report.
type fakeScanner struct {
	report  string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeScanner) Scan(ctx context.Context, input io.Reader, _ search.Pattern, out io.Writer) error {
	_, _ = io.Copy(io.Discard, input)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, _ = io.WriteString(out, f.report)
	return f.err
}

func blocking() *fakeScanner {
	return &fakeScanner{report: "1:\n", started: make(chan struct{}, 16), release: make(chan struct{})}
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func newEngine(t *testing.T, path string, scanner search.Scanner) *Engine {
	t.Helper()
	eng, err := New(Options{StreamFile: path, Scanner: scanner})
	require.NoError(t, err)
	t.Cleanup(eng.Destroy)
	return eng
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustPattern(t *testing.T, text string) search.Pattern {
	t.Helper()
	p, err := search.ParsePattern(text)
	require.NoError(t, err)
	return p
}

func TestNew_RequiresStreamFile(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestEngine_WindowInvariant(t *testing.T) {
	eng := newEngine(t, writeLog(t, "a\n"), search.RE2{})

	last := uint64(0)
	for _, pos := range []uint64{10, 25, 25, 40} {
		eng.SetReadTo(pos)
		last = pos
		assert.LessOrEqual(t, eng.ReadFrom(), last)
		assert.Equal(t, last, eng.ReadTo())
	}

	// 25 -> 40 was the last advance; repeating 40 empties the window.
	eng.SetReadTo(40)
	err := eng.Perform(mustPattern(t, "a")).Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrRange)

	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, uint64(40), rangeErr.From)
	assert.Equal(t, uint64(40), rangeErr.To)
}

func TestEngine_InvertedWindowRejects(t *testing.T) {
	eng := newEngine(t, writeLog(t, "a\n"), search.RE2{})
	eng.SetReadTo(10)
	eng.SetReadTo(5)

	task := eng.Perform(mustPattern(t, "a"))

	require.ErrorIs(t, task.Wait(waitCtx(t)), ErrRange)
	assert.Equal(t, Rejected, task.State())
	assert.Empty(t, eng.Stats())
}

func TestEngine_PerformMergesMatches(t *testing.T) {
	content := "ok\nerror one\nok\nerror two error\n"
	path := writeLog(t, content)
	eng := newEngine(t, path, search.RE2{})
	eng.SetReadTo(uint64(len(content)))

	task := eng.Perform(mustPattern(t, "error"))

	require.NoError(t, task.Wait(waitCtx(t)))
	assert.Equal(t, Resolved, task.State())
	assert.NoError(t, task.Err())
	assert.NotEmpty(t, task.ID())
	assert.Equal(t, map[string]uint64{"error": 3}, eng.Stats())
	assert.Nil(t, eng.PatternsAt(0))
	assert.Equal(t, []string{"error"}, eng.PatternsAt(1))
	assert.Equal(t, []string{"error"}, eng.PatternsAt(3))
	assert.Equal(t, 0, eng.Tasks())
}

func TestEngine_LaterWindowsUseAbsoluteRows(t *testing.T) {
	first := "boot\npanic: a\n"
	path := writeLog(t, first)
	eng := newEngine(t, path, search.RE2{})
	ctx := waitCtx(t)

	eng.SetReadTo(uint64(len(first)))
	require.NoError(t, eng.Perform(mustPattern(t, "panic")).Wait(ctx))

	second := "ok\nok\nPANIC: b\n"
	appendLog(t, path, second)
	eng.SetReadTo(uint64(len(first) + len(second)))
	assert.Equal(t, uint64(len(first)), eng.ReadFrom())

	require.NoError(t, eng.Perform(mustPattern(t, "/panic/i")).Wait(ctx))

	assert.Equal(t, []string{"panic"}, eng.PatternsAt(1))
	assert.Equal(t, []string{"panic"}, eng.PatternsAt(4))
	assert.Nil(t, eng.PatternsAt(2))
	assert.Equal(t, uint64(2), eng.Stats()["panic"])
}

func TestEngine_SeparateSearchFile(t *testing.T) {
	stream := writeLog(t, "raw\n")
	index := filepath.Join(t.TempDir(), "index.log")
	require.NoError(t, os.WriteFile(index, []byte("x\nhit\n"), 0o644))

	eng, err := New(Options{StreamFile: stream, SearchFile: index, Scanner: search.RE2{}})
	require.NoError(t, err)
	eng.SetReadTo(6)

	require.NoError(t, eng.Perform(mustPattern(t, "hit")).Wait(waitCtx(t)))
	assert.Equal(t, []string{"hit"}, eng.PatternsAt(1))
}

func TestEngine_AbsentStreamFileResolves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	scanner := &fakeScanner{report: "1:\n"}
	eng := newEngine(t, path, scanner)
	eng.SetReadTo(100)

	task := eng.Perform(mustPattern(t, "x"))

	require.NoError(t, task.Wait(waitCtx(t)))
	assert.Equal(t, Resolved, task.State())
	assert.Empty(t, eng.Stats())
	assert.Nil(t, eng.PatternsAt(0))
}

func TestEngine_MissingSearchFileRejects(t *testing.T) {
	stream := writeLog(t, "raw\n")
	eng, err := New(Options{
		StreamFile: stream,
		SearchFile: filepath.Join(t.TempDir(), "gone"),
		Scanner:    search.RE2{},
	})
	require.NoError(t, err)
	eng.SetReadTo(4)

	err = eng.Perform(mustPattern(t, "raw")).Wait(waitCtx(t))

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, search.OpReader, pe.Op)
}

func TestEngine_ScannerFailureRejects(t *testing.T) {
	scanner := &fakeScanner{err: &ProcessError{Op: search.OpWait, Err: errors.New("exit status 2"), Stderr: "regex parse error"}}
	eng := newEngine(t, writeLog(t, "line\n"), scanner)
	eng.SetReadTo(5)

	task := eng.Perform(mustPattern(t, "("))
	err := task.Wait(waitCtx(t))

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, search.OpWait, pe.Op)
	assert.Contains(t, err.Error(), "regex parse error")
	assert.Equal(t, Rejected, task.State())
	assert.Empty(t, eng.Stats())
}

func TestEngine_CancelRunningTask(t *testing.T) {
	scanner := blocking()
	eng := newEngine(t, writeLog(t, "line\n"), scanner)
	eng.SetReadTo(5)

	task := eng.Perform(mustPattern(t, "line"))
	<-scanner.started
	assert.Equal(t, 1, eng.Tasks())

	task.Cancel()
	task.Cancel()

	require.ErrorIs(t, task.Wait(waitCtx(t)), ErrCanceled)
	assert.Equal(t, Canceled, task.State())
	assert.Equal(t, 0, eng.Tasks())
	assert.Empty(t, eng.Stats())
}

func TestEngine_CancelRacingCompletionSettlesOnce(t *testing.T) {
	eng := newEngine(t, writeLog(t, "line\n"), &fakeScanner{report: "1:\n"})
	ctx := waitCtx(t)

	for range 200 {
		eng.SetReadTo(0)
		eng.SetReadTo(5)

		task := eng.Perform(mustPattern(t, "line"))
		task.Cancel()
		err := task.Wait(ctx)

		switch task.State() {
		case Resolved:
			assert.NoError(t, err)
		case Canceled:
			assert.ErrorIs(t, err, ErrCanceled)
		default:
			t.Fatalf("unexpected state %s (err %v)", task.State(), err)
		}
	}
	assert.Equal(t, 0, eng.Tasks())
}

func TestEngine_TaskTimeout(t *testing.T) {
	scanner := blocking()
	eng, err := New(Options{
		StreamFile:  writeLog(t, "line\n"),
		Scanner:     scanner,
		TaskTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	eng.SetReadTo(5)

	err = eng.Perform(mustPattern(t, "line")).Wait(waitCtx(t))

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, search.OpTimeout, pe.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_DropResetsState(t *testing.T) {
	content := "error\nerror\n"
	path := writeLog(t, content)
	var logs bytes.Buffer
	eng, err := New(Options{
		StreamFile: path,
		Scanner:    search.RE2{},
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)
	ctx := waitCtx(t)

	eng.SetReadTo(uint64(len(content)))
	require.NoError(t, eng.Perform(mustPattern(t, "error")).Wait(ctx))
	require.NotEmpty(t, eng.Stats())

	scanner := blocking()
	eng.scanner = scanner
	eng.SetReadTo(uint64(len(content)) + 1)
	appendLog(t, path, "\n")
	first := eng.Perform(mustPattern(t, "error"))
	second := eng.Perform(mustPattern(t, "warn"))
	<-scanner.started
	<-scanner.started

	eng.Drop()
	close(scanner.release)

	assert.ErrorIs(t, first.Wait(ctx), ErrCanceled)
	assert.ErrorIs(t, second.Wait(ctx), ErrCanceled)
	assert.Equal(t, uint64(0), eng.ReadFrom())
	assert.Equal(t, uint64(0), eng.ReadTo())
	assert.Equal(t, 0, eng.Tasks())

	m := eng.Map(1000, 10, true, nil)
	assert.Empty(t, m.Stats)
	assert.True(t, m.Empty())
	assert.Equal(t, 2, strings.Count(logs.String(), "dropping in-flight task"))
}

func TestEngine_RowsBefore(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")
	eng := newEngine(t, path, search.RE2{})

	rows, err := eng.RowsBefore(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rows)
	rows, err = eng.RowsBefore(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rows)

	require.NoError(t, os.WriteFile(path, []byte("xx\n\n"), 0o644))
	eng.Drop()

	rows, err = eng.RowsBefore(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rows)
}

func TestEngine_DestroyRejectsPerform(t *testing.T) {
	eng, err := New(Options{StreamFile: writeLog(t, "a\n"), Scanner: search.RE2{}})
	require.NoError(t, err)
	eng.Destroy()
	eng.SetReadTo(2)

	task := eng.Perform(mustPattern(t, "a"))

	assert.ErrorIs(t, task.Wait(waitCtx(t)), ErrDestroyed)
	assert.Equal(t, Rejected, task.State())
}

func TestTask_WaitHonoursContext(t *testing.T) {
	scanner := blocking()
	eng := newEngine(t, writeLog(t, "a\n"), scanner)
	eng.SetReadTo(2)
	task := eng.Perform(mustPattern(t, "a"))
	<-scanner.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, task.Wait(ctx), context.Canceled)
	assert.Equal(t, Pending, task.State())
	assert.NoError(t, task.Err())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "canceled", Canceled.String())
	assert.Equal(t, "unknown", State(42).String())
}
