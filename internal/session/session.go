package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/five82/glint/internal/inspect"
	"github.com/five82/glint/internal/logtail"
	"github.com/five82/glint/internal/search"
	"github.com/five82/glint/internal/state"
	"github.com/five82/glint/internal/telemetry"
)

// ErrDuplicatePattern is returned when a pattern with the same key is
// already active.
var ErrDuplicatePattern = errors.New("pattern already active")

const (
	defaultFactor          = 60
	defaultPollInterval    = 2 * time.Second
	defaultMinInterval     = 250 * time.Millisecond
	defaultRetryMaxElapsed = 10 * time.Second
	defaultRetryInterval   = 100 * time.Millisecond

	instrumentationName = "github.com/five82/glint/internal/session"
)

// Options configure a Session.
type Options struct {
	StreamFile string
	SearchFile string // empty uses StreamFile
	Scanner    search.Scanner
	Store      *state.Store // nil creates a private store
	Patterns   []search.Pattern

	Factor  int
	Details bool

	PollInterval    time.Duration
	MinInterval     time.Duration
	RetryMaxElapsed time.Duration
	RetryInterval   time.Duration
	TaskTimeout     time.Duration

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Session follows one stream: it advances the inspection window as the file
// grows, runs every active pattern over each new window and publishes the
// scaled map to a state.Store.
type Session struct {
	streamFile string
	searchFile string
	engine     *inspect.Engine
	store      *state.Store
	limiter    *rate.Limiter
	logger     *slog.Logger
	tracer     trace.Tracer

	pollInterval    time.Duration
	retryMaxElapsed time.Duration
	retryInterval   time.Duration

	mu       sync.Mutex
	patterns []search.Pattern
	factor   int
	details  bool

	// advanceMu serializes window advances; size is the end of the last
	// inspected window.
	advanceMu sync.Mutex
	size      uint64

	needReset atomic.Bool
	wake      chan struct{}
}

// New builds a session and its inspection engine.
func New(opts Options) (*Session, error) {
	if opts.SearchFile == "" {
		opts.SearchFile = opts.StreamFile
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	engine, err := inspect.New(inspect.Options{
		StreamFile:  opts.StreamFile,
		SearchFile:  opts.SearchFile,
		Scanner:     opts.Scanner,
		Logger:      logger,
		Tracer:      tracer,
		Meter:       opts.Meter,
		TaskTimeout: opts.TaskTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	s := &Session{
		streamFile:      opts.StreamFile,
		searchFile:      opts.SearchFile,
		engine:          engine,
		store:           opts.Store,
		logger:          logger.With(slog.String("component", "session")),
		tracer:          tracer,
		pollInterval:    orDefault(opts.PollInterval, defaultPollInterval),
		retryMaxElapsed: orDefault(opts.RetryMaxElapsed, defaultRetryMaxElapsed),
		retryInterval:   orDefault(opts.RetryInterval, defaultRetryInterval),
		factor:          opts.Factor,
		details:         opts.Details,
		wake:            make(chan struct{}, 1),
	}
	if s.store == nil {
		s.store = &state.Store{}
	}
	if s.factor <= 0 {
		s.factor = defaultFactor
	}
	s.limiter = rate.NewLimiter(rate.Every(orDefault(opts.MinInterval, defaultMinInterval)), 1)

	for _, p := range opts.Patterns {
		if err := s.addPattern(p); err != nil && !errors.Is(err, ErrDuplicatePattern) {
			return nil, err
		}
	}
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Store returns the store snapshots are published to.
func (s *Session) Store() *state.Store {
	return s.store
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() state.Snapshot {
	return s.store.Snapshot()
}

// Patterns returns the active patterns in the order they were added.
func (s *Session) Patterns() []search.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.patterns)
}

// AddPattern activates p. Existing results are dropped and the whole stream
// is inspected again on the next refresh.
func (s *Session) AddPattern(p search.Pattern) error {
	if err := s.addPattern(p); err != nil {
		return err
	}
	s.requestReset()
	return nil
}

func (s *Session) addPattern(p search.Pattern) error {
	if p.Source == "" {
		return search.ErrEmptyPattern
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patterns {
		if existing.Key() == p.Key() {
			return fmt.Errorf("%w: %s", ErrDuplicatePattern, p.Key())
		}
	}
	s.patterns = append(s.patterns, p)
	return nil
}

// RemovePattern deactivates the pattern with key. It reports whether it was
// active. The remaining patterns are inspected again from the start.
func (s *Session) RemovePattern(key string) bool {
	s.mu.Lock()
	idx := slices.IndexFunc(s.patterns, func(p search.Pattern) bool { return p.Key() == key })
	if idx >= 0 {
		s.patterns = slices.Delete(s.patterns, idx, idx+1)
	}
	s.mu.Unlock()

	if idx < 0 {
		return false
	}
	s.requestReset()
	return true
}

// SetDetails switches between exact and first-match-per-bin counting and
// republishes the map.
func (s *Session) SetDetails(details bool) {
	s.mu.Lock()
	s.details = details
	s.mu.Unlock()
	s.Refresh()
}

// SetFactor changes the number of bins per strip.
func (s *Session) SetFactor(factor int) {
	if factor <= 0 {
		return
	}
	s.mu.Lock()
	s.factor = factor
	s.mu.Unlock()
	s.Refresh()
}

// Refresh asks the follow loop for an immediate refresh. It never blocks.
func (s *Session) Refresh() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) requestReset() {
	s.needReset.Store(true)
	s.Refresh()
}

// Close cancels all running inspections. The session must not be used
// afterwards.
func (s *Session) Close() {
	s.engine.Destroy()
}

// RunOnce inspects whatever the stream gained since the last refresh and
// publishes the result.
func (s *Session) RunOnce(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	err := s.advance(ctx)
	if err != nil {
		s.store.Update(state.Snapshot{}, err)
		s.logger.Warn("refresh failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// advance moves the engine window to the current end of the search file,
// runs every pattern over it and publishes the new map.
func (s *Session) advance(ctx context.Context) error {
	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	size, err := fileSize(s.searchFile)
	if err != nil {
		return fmt.Errorf("stat search file: %w", err)
	}

	if s.needReset.Swap(false) {
		s.reset()
	}
	if size < s.size {
		s.logger.Info("search file shrank, starting over",
			slog.Uint64("was", s.size),
			slog.Uint64("now", size),
		)
		s.reset()
	}

	// A window is consumed even when a pattern failed on it.
	patterns := s.Patterns()
	var inspectErr error
	if size > s.size && len(patterns) > 0 {
		s.engine.SetReadTo(size)
		inspectErr = s.inspectAll(ctx, patterns)
	}
	s.size = size

	if err := s.publish(ctx, patterns); err != nil {
		return errors.Join(inspectErr, err)
	}
	return inspectErr
}

func (s *Session) reset() {
	s.engine.Drop()
	s.size = 0
}

// inspectAll runs every pattern over the current window concurrently.
func (s *Session) inspectAll(ctx context.Context, patterns []search.Pattern) error {
	var g errgroup.Group
	for _, p := range patterns {
		g.Go(func() error {
			return s.inspectWithRetry(ctx, p)
		})
	}
	return g.Wait()
}

func (s *Session) inspectWithRetry(ctx context.Context, p search.Pattern) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxElapsedTime = s.retryMaxElapsed

	operation := func() error {
		task := s.engine.Perform(p)
		s.store.SetInflight(s.engine.Tasks())
		defer func() { s.store.SetInflight(s.engine.Tasks()) }()

		err := task.Wait(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			task.Cancel()
			return backoff.Permanent(ctx.Err())
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("inspection failed, will retry",
			slog.String("pattern", p.String()),
			slog.Duration("in", next),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("inspect %s: %w", p, err)
	}
	return nil
}

// retryable reports whether a failed task may succeed when run again. Bad
// patterns, a missing rg and invalid windows will not.
func retryable(err error) bool {
	if errors.Is(err, inspect.ErrRange) || errors.Is(err, inspect.ErrCanceled) || errors.Is(err, inspect.ErrDestroyed) {
		return false
	}
	var pe *inspect.ProcessError
	if errors.As(err, &pe) {
		switch pe.Op {
		case search.OpReader, search.OpStdin, search.OpStdout, search.OpTimeout:
			return true
		}
		return false
	}
	return true
}

func (s *Session) publish(ctx context.Context, patterns []search.Pattern) error {
	s.mu.Lock()
	factor, details := s.factor, s.details
	s.mu.Unlock()

	_, finish := telemetry.Measure(ctx, s.tracer, s.logger, "mapping",
		attribute.Int("patterns", len(patterns)),
		attribute.Int64("size", int64(s.size)),
	)
	rows, err := s.engine.RowsBefore(s.size)
	if err != nil {
		finish(err)
		return fmt.Errorf("count rows: %w", err)
	}
	scaled := s.engine.Map(rows, factor, details, nil)
	finish(nil)

	s.store.Update(state.Snapshot{
		File:     s.streamFile,
		Size:     s.size,
		Rows:     rows,
		Patterns: patterns,
		Map:      scaled,
		Details:  details,
	}, nil)
	s.store.SetInflight(s.engine.Tasks())
	return nil
}

// Preview returns the last n lines of the stream with the patterns that
// matched on each. Matches are only known when the stream is also the search
// file.
func (s *Session) Preview(n int) ([]PreviewLine, error) {
	size, err := fileSize(s.streamFile)
	if err != nil {
		return nil, fmt.Errorf("stat stream: %w", err)
	}
	lines, start, err := logtail.TailAt(s.streamFile, int64(size), n)
	if err != nil {
		return nil, fmt.Errorf("read tail: %w", err)
	}
	out := make([]PreviewLine, len(lines))
	for i, text := range lines {
		out[i].Text = text
	}
	if s.streamFile != s.searchFile || len(lines) == 0 {
		return out, nil
	}

	first, err := s.engine.RowsBefore(uint64(start))
	if err != nil {
		return out, fmt.Errorf("count rows: %w", err)
	}
	for i := range out {
		out[i].Row = first + uint64(i)
		out[i].Patterns = s.engine.PatternsAt(out[i].Row)
	}
	return out, nil
}

// PreviewLine is one line of the tail preview.
type PreviewLine struct {
	Text     string
	Row      uint64
	Patterns []string
}

func fileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}
