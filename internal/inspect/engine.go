package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/glint/internal/logtail"
	"github.com/five82/glint/internal/search"
	"github.com/five82/glint/internal/telemetry"
)

const instrumentationName = "github.com/five82/glint/internal/inspect"

// Options configures an Engine.
type Options struct {
	// StreamFile is checked for existence before every task.
	StreamFile string
	// SearchFile is the byte-addressable file scanned by tasks. Defaults to
	// StreamFile.
	SearchFile string
	// Scanner runs the pattern search. Defaults to ripgrep from PATH.
	Scanner search.Scanner
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Meter   metric.Meter
	// TaskTimeout bounds each task when positive.
	TaskTimeout time.Duration
}

// Engine runs pattern searches over the newest window of one stream and
// accumulates which patterns matched on which rows.
type Engine struct {
	streamFile string
	searchFile string
	scanner    search.Scanner
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *telemetry.Metrics
	timeout    time.Duration

	store *store
	rows  *logtail.RowIndex

	mu        sync.Mutex
	destroyed bool
	entries   map[string]*entry
}

// entry is the registry record of a running task. Removing it from the
// registry is what entitles the remover to settle the task.
type entry struct {
	task    *Task
	started time.Time
	cancel  context.CancelFunc
	cleanup func()
}

// New returns an engine for opts.StreamFile.
func New(opts Options) (*Engine, error) {
	if opts.StreamFile == "" {
		return nil, errors.New("stream file is required")
	}
	if opts.SearchFile == "" {
		opts.SearchFile = opts.StreamFile
	}
	if opts.Scanner == nil {
		opts.Scanner = &search.Ripgrep{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &Engine{
		streamFile: opts.StreamFile,
		searchFile: opts.SearchFile,
		scanner:    opts.Scanner,
		logger:     logger.With(slog.String("component", "inspect")),
		tracer:     tracer,
		metrics:    metrics,
		timeout:    opts.TaskTimeout,
		store:      newStore(),
		rows:       logtail.NewRowIndex(opts.SearchFile),
		entries:    make(map[string]*entry),
	}, nil
}

// SetReadTo advances the read window: the previous end becomes the start and
// pos the new end.
func (e *Engine) SetReadTo(pos uint64) {
	e.store.setReadTo(pos)
}

// ReadFrom returns the start of the read window.
func (e *Engine) ReadFrom() uint64 {
	from, _, _ := e.store.window()
	return from
}

// ReadTo returns the end of the read window.
func (e *Engine) ReadTo() uint64 {
	_, to, _ := e.store.window()
	return to
}

// Stats returns a copy of the per-pattern match totals.
func (e *Engine) Stats() map[string]uint64 {
	return e.store.statsCopy()
}

// PatternsAt returns the pattern keys that matched on row.
func (e *Engine) PatternsAt(row uint64) []string {
	return e.store.patternsAt(row)
}

// RowsBefore returns the number of rows in the search file that end before
// offset. The count is cached and reset by Drop.
func (e *Engine) RowsBefore(offset uint64) (uint64, error) {
	return e.rows.RowsBefore(offset)
}

// Tasks returns the number of tasks still running.
func (e *Engine) Tasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Perform searches the current window for p. It returns immediately; the
// task settles in the background.
func (e *Engine) Perform(p search.Pattern) *Task {
	t := newTask(uuid.NewString(), p)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), e.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	ent := &entry{task: t, started: time.Now(), cancel: cancel}
	t.cancel = func() { e.cancelTask(t.id) }

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		cancel()
		t.settle(Rejected, ErrDestroyed)
		return t
	}
	e.entries[t.id] = ent
	e.mu.Unlock()

	go e.run(ctx, t)
	return t
}

func (e *Engine) run(ctx context.Context, t *Task) {
	untrack := e.metrics.TrackInflight(context.Background())
	defer untrack()

	ctx, finish := telemetry.Measure(ctx, e.tracer, e.logger, "inspecting",
		attribute.String("task.id", t.id),
		attribute.String("pattern", t.pattern.String()),
	)
	finish(e.inspect(ctx, t))
}

// inspect drives one task to settlement. The returned error is only for
// tracing; the task carries the outcome.
func (e *Engine) inspect(ctx context.Context, t *Task) error {
	if _, err := os.Stat(e.streamFile); err != nil {
		e.logger.Warn("stream file not available, nothing to inspect",
			slog.String("task", t.id),
			slog.String("file", e.streamFile),
			slog.String("error", err.Error()),
		)
		e.finish(t.id, Resolved, nil)
		return nil
	}

	from, to, generation := e.store.window()
	if from >= to {
		err := &RangeError{From: from, To: to}
		e.finish(t.id, Rejected, err)
		return err
	}

	base, err := e.rows.RowsBefore(from)
	if err != nil {
		err = search.WrapStage(search.OpReader, fmt.Errorf("count rows: %w", err))
		e.finish(t.id, Rejected, err)
		return err
	}

	pl, err := buildPipeline(e.searchFile, from, to, base, t.pattern, e.scanner)
	if err != nil {
		e.finish(t.id, Rejected, err)
		return err
	}

	cleanup := sync.OnceFunc(func() {
		pl.close()
		e.logger.Debug("task cleaned up",
			slog.String("task", t.id),
			slog.Int64("report_bytes", pl.sink.bytes()),
		)
	})
	if !e.arm(t.id, cleanup) {
		cleanup()
		return ErrCanceled
	}

	runErr := pl.run(ctx)

	ent := e.claim(t.id)
	if ent == nil {
		// Canceled or dropped while running; whoever claimed it settled it.
		return ErrCanceled
	}
	lines := pl.lines()

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			runErr = &search.ProcessError{Op: search.OpTimeout, Err: context.DeadlineExceeded}
		} else {
			runErr = search.WrapStage(search.OpWait, runErr)
		}
		e.settle(ent, Rejected, runErr)
		return runErr
	}

	if skipped := pl.transform.Skipped(); skipped > 0 {
		e.logger.Warn("skipped malformed search output",
			slog.String("task", t.id),
			slog.Int("lines", skipped),
		)
	}
	if e.store.merge(generation, t.pattern.Key(), lines) {
		e.metrics.RecordMatches(context.Background(), len(lines))
	}
	e.settle(ent, Resolved, nil)
	return nil
}

// arm attaches the cleanup to a registered task. It reports false when the
// task was already removed from the registry.
func (e *Engine) arm(id string, cleanup func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return false
	}
	ent.cleanup = cleanup
	return true
}

// claim removes a task from the registry. Only the caller that gets a
// non-nil entry may settle the task.
func (e *Engine) claim(id string) *entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return nil
	}
	delete(e.entries, id)
	return ent
}

func (e *Engine) finish(id string, state State, err error) {
	if ent := e.claim(id); ent != nil {
		e.settle(ent, state, err)
	}
}

func (e *Engine) settle(ent *entry, state State, err error) {
	ent.cancel()
	if ent.cleanup != nil {
		ent.cleanup()
	}
	if ent.task.settle(state, err) {
		e.metrics.RecordTask(context.Background(), state.String(), time.Since(ent.started))
	}
}

func (e *Engine) cancelTask(id string) {
	if ent := e.claim(id); ent != nil {
		e.settle(ent, Canceled, ErrCanceled)
	}
}

// Drop cancels every running task and resets the window and the line map.
// It does not wait for the canceled tasks.
func (e *Engine) Drop() {
	e.mu.Lock()
	entries := e.entries
	e.entries = make(map[string]*entry)
	e.mu.Unlock()

	for id, ent := range entries {
		e.logger.Warn("dropping in-flight task",
			slog.String("task", id),
			slog.String("pattern", ent.task.pattern.String()),
		)
		e.settle(ent, Canceled, ErrCanceled)
	}
	e.store.reset()
	e.rows.Reset()
}

// Destroy drops all state; later Perform calls are rejected with
// ErrDestroyed.
func (e *Engine) Destroy() {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
	e.Drop()
}

// Map projects the line map onto factor bins over streamLength rows, or over
// rng when it is not nil. Malformed requests are logged and produce empty
// bins.
func (e *Engine) Map(streamLength uint64, factor int, details bool, rng *Range) ScaledMap {
	_, finish := telemetry.Measure(context.Background(), e.tracer, e.logger, "scaling",
		attribute.Int("factor", factor),
		attribute.Bool("details", details),
	)
	m, err := e.store.scale(streamLength, factor, details, rng)
	finish(err)
	if err != nil {
		e.logger.Warn("cannot scale line map", slog.String("error", err.Error()))
	}
	return m
}
