package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/five82/glint/internal/config"
	"github.com/five82/glint/internal/prefs"
	"github.com/five82/glint/internal/report"
	"github.com/five82/glint/internal/search"
	"github.com/five82/glint/internal/session"
	"github.com/five82/glint/internal/ui"
)

// Options configure a glint run.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/glint/prefs.toml
	StreamFile string
	SearchFile string   // empty searches the stream file itself
	Patterns   []string // from the command line, added after configured ones
	Flags      *pflag.FlagSet

	// Scanner overrides the scanner chosen from the configuration.
	Scanner search.Scanner

	// Out and Bins apply to Scan only.
	Out  io.Writer
	Bins bool
}

// Run boots the glint TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Prefs are best effort; Load already fell back to defaults.
	userPrefs, _ := prefs.Load(opts.PrefsPath)
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger, closeLog, err := newLogger(cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	details := cfg.View.Details || userPrefs.Details
	if opts.Flags != nil && opts.Flags.Changed("details") {
		details = cfg.View.Details
	}

	sess, err := newSession(cfg, opts, logger, details, cfg.Patterns, userPrefs.Patterns, opts.Patterns)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	followed := make(chan error, 1)
	go func() { followed <- sess.Run(ctx) }()

	uiErr := ui.Run(ui.Options{
		Controller: sess,
		PollTick:   cfg.Follow.MinInterval * 2,
		TailLines:  cfg.View.TailLines,
		ThemeName:  userPrefs.Theme,
		PrefsPath:  prefsPath,
		Details:    details,
	})
	cancel()
	return errors.Join(uiErr, <-followed)
}

// Scan inspects the stream once and writes a report to opts.Out.
func Scan(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger, closeLog, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	sess, err := newSession(cfg, opts, logger, cfg.View.Details, cfg.Patterns, opts.Patterns)
	if err != nil {
		return err
	}
	defer sess.Close()
	if len(sess.Patterns()) == 0 {
		return ErrNoPatterns
	}

	inspectErr := sess.RunOnce(ctx)
	if err := report.Write(out, sess.Snapshot(), report.Options{Bins: opts.Bins}); err != nil {
		return err
	}
	if inspectErr != nil {
		return fmt.Errorf("inspect %s: %w", opts.StreamFile, inspectErr)
	}
	return nil
}

// ErrNoPatterns is returned by Scan when neither the command line nor the
// configuration names a pattern.
var ErrNoPatterns = errors.New("no patterns given")

func newSession(cfg config.Config, opts Options, logger *slog.Logger, details bool, sources ...[]string) (*session.Session, error) {
	if opts.StreamFile == "" {
		return nil, errors.New("stream file is required")
	}
	stream, err := config.ExpandPath(opts.StreamFile)
	if err != nil {
		return nil, fmt.Errorf("resolve stream file: %w", err)
	}
	var searchFile string
	if opts.SearchFile != "" {
		if searchFile, err = config.ExpandPath(opts.SearchFile); err != nil {
			return nil, fmt.Errorf("resolve search file: %w", err)
		}
	}

	patterns, err := parsePatterns(sources...)
	if err != nil {
		return nil, err
	}

	scanner := opts.Scanner
	if scanner == nil {
		scanner = selectScanner(cfg.Ripgrep, logger)
	}

	sess, err := session.New(session.Options{
		StreamFile:      stream,
		SearchFile:      searchFile,
		Scanner:         scanner,
		Patterns:        patterns,
		Factor:          cfg.View.Factor,
		Details:         details,
		PollInterval:    cfg.Follow.PollInterval,
		MinInterval:     cfg.Follow.MinInterval,
		RetryMaxElapsed: cfg.Follow.RetryMaxElapsed,
		TaskTimeout:     cfg.Inspect.TaskTimeout,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}
