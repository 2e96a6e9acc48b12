package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/five82/glint/internal/config"
	"github.com/five82/glint/internal/search"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// selectScanner prefers ripgrep: the configured binary, or rg from PATH.
// Without either the in-process RE2 matcher is used.
func selectScanner(cfg config.RipgrepConfig, logger *slog.Logger) search.Scanner {
	if cfg.Path != "" {
		return &search.Ripgrep{Path: cfg.Path, PCRE2: cfg.PCRE2}
	}
	if path, err := lookPath("rg"); err == nil {
		return &search.Ripgrep{Path: path, PCRE2: cfg.PCRE2}
	}
	logger.Info("rg not found in PATH, using built-in RE2 matcher", slog.Bool("pcre2_ignored", cfg.PCRE2))
	return search.RE2{}
}

// parsePatterns parses every source in order. Later duplicates are left for
// the session to drop.
func parsePatterns(sources ...[]string) ([]search.Pattern, error) {
	var patterns []search.Pattern
	for _, source := range sources {
		for _, text := range source {
			p, err := search.ParsePattern(text)
			if err != nil {
				return nil, fmt.Errorf("parse pattern %q: %w", text, err)
			}
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

// newLogger builds the diagnostic logger. It writes to cfg.File when set and
// to fallback otherwise. The returned func closes the file.
func newLogger(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	w := fallback
	closeFn := func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	if w == nil || w == io.Discard {
		return slog.New(slog.DiscardHandler), closeFn, nil
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler).With(slog.String("app", "glint")), closeFn, nil
}
