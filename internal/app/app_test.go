package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/glint/internal/config"
	"github.com/five82/glint/internal/search"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestSelectScanner(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	got := selectScanner(config.RipgrepConfig{Path: "/opt/rg", PCRE2: true}, logger)
	rg, ok := got.(*search.Ripgrep)
	if !ok || rg.Path != "/opt/rg" || !rg.PCRE2 {
		t.Fatalf("selectScanner(configured) = %#v, want Ripgrep /opt/rg with pcre2", got)
	}

	lookPath = func(string) (string, error) { return "/usr/bin/rg", nil }
	got = selectScanner(config.RipgrepConfig{}, logger)
	if rg, ok := got.(*search.Ripgrep); !ok || rg.Path != "/usr/bin/rg" {
		t.Fatalf("selectScanner(PATH) = %#v, want Ripgrep /usr/bin/rg", got)
	}

	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	got = selectScanner(config.RipgrepConfig{}, logger)
	if _, ok := got.(search.RE2); !ok {
		t.Fatalf("selectScanner(missing) = %#v, want RE2", got)
	}
}

func TestParsePatterns(t *testing.T) {
	got, err := parsePatterns([]string{"error"}, []string{"/warn/i", "(?i)fatal"})
	if err != nil {
		t.Fatalf("parsePatterns: %v", err)
	}
	want := []search.Pattern{
		{Source: "error"},
		{Source: "warn", CaseInsensitive: true},
		{Source: "fatal", CaseInsensitive: true},
	}
	if len(got) != len(want) {
		t.Fatalf("parsePatterns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parsePatterns[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := parsePatterns([]string{"//"}); !errors.Is(err, search.ErrEmptyPattern) {
		t.Fatalf("parsePatterns(//) error = %v, want ErrEmptyPattern", err)
	}
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "glint.log")
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json", File: path}, nil)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hello", slog.Int("n", 1))
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{`"msg":"hello"`, `"n":1`, `"app":"glint"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("log = %s, missing %s", data, want)
		}
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer closeLog()

	logger.Info("quiet")
	logger.Warn("loud")
	if out := buf.String(); strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("log = %q, want only warn", out)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, _, err := newLogger(config.LoggingConfig{Level: "loud"}, nil); !errors.Is(err, config.ErrInvalidLevel) {
		t.Fatalf("newLogger error = %v, want ErrInvalidLevel", err)
	}
}

func TestScan_WritesReport(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("start\nerror one\nok\nerror two\nWARN three\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	err := Scan(context.Background(), Options{
		StreamFile: path,
		Patterns:   []string{"error", "/warn/i"},
		Scanner:    search.RE2{},
		Out:        &out,
		Bins:       true,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	report := out.String()
	for _, want := range []string{path, "5 rows", "/error/", "/warn/i"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestScan_RequiresPatterns(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := Scan(context.Background(), Options{StreamFile: path, Scanner: search.RE2{}, Out: &bytes.Buffer{}})
	if !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("Scan error = %v, want ErrNoPatterns", err)
	}
}

func TestScan_UsesConfiguredPatterns(t *testing.T) {
	home := isolateHome(t)
	cfgPath := filepath.Join(home, "glint.toml")
	if err := os.WriteFile(cfgPath, []byte("patterns = [\"boom\"]\n[view]\nfactor = 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("boom\nok\nboom\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	err := Scan(context.Background(), Options{ConfigPath: cfgPath, StreamFile: path, Scanner: search.RE2{}, Out: &out})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report := out.String(); !strings.Contains(report, "/boom/") || !strings.Contains(report, "2 bins") {
		t.Fatalf("report = %s, want boom with 2 bins", report)
	}
}

func TestScan_MissingStreamFile(t *testing.T) {
	isolateHome(t)
	err := Scan(context.Background(), Options{Patterns: []string{"x"}, Scanner: search.RE2{}, Out: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "stream file is required") {
		t.Fatalf("Scan error = %v, want stream file required", err)
	}
}
