package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFactor   = errors.New("view factor must be between 1 and 1000")
	ErrInvalidInterval = errors.New("follow intervals must be positive")
	ErrInvalidTimeout  = errors.New("task timeout must not be negative")
	ErrInvalidLevel    = errors.New("unknown log level")
	ErrInvalidFormat   = errors.New("log format must be text or json")
)

// Config is the resolved glint configuration.
type Config struct {
	Ripgrep  RipgrepConfig `mapstructure:"ripgrep"`
	Inspect  InspectConfig `mapstructure:"inspect"`
	View     ViewConfig    `mapstructure:"view"`
	Follow   FollowConfig  `mapstructure:"follow"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Patterns []string      `mapstructure:"patterns"`
}

// RipgrepConfig selects the search process.
type RipgrepConfig struct {
	// Path of the rg binary. Empty looks rg up in PATH and falls back to the
	// in-process matcher when it is missing.
	Path  string `mapstructure:"path"`
	PCRE2 bool   `mapstructure:"pcre2"`
}

// InspectConfig tunes the inspection engine.
type InspectConfig struct {
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// ViewConfig controls the overview.
type ViewConfig struct {
	Factor    int  `mapstructure:"factor"`
	Details   bool `mapstructure:"details"`
	TailLines int  `mapstructure:"tail_lines"`
}

// FollowConfig controls how the stream file is followed.
type FollowConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

const (
	defaultConfigPath = "~/.config/glint/config.toml"
	envPrefix         = "GLINT"

	DefaultFactor          = 60
	DefaultTailLines       = 200
	DefaultPollInterval    = 2 * time.Second
	DefaultMinInterval     = 250 * time.Millisecond
	DefaultRetryMaxElapsed = 10 * time.Second

	maxFactor = 1000
)

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"ripgrep.path":         "rg",
	"ripgrep.pcre2":        "pcre2",
	"inspect.task_timeout": "timeout",
	"view.factor":          "factor",
	"view.details":         "details",
	"logging.level":        "log-level",
	"logging.file":         "log-file",
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load resolves the configuration from defaults, the TOML file at path (or
// the default path), GLINT_* environment variables and any changed flags in
// flags. A missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(resolved); err == nil {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if flags != nil {
		for key, name := range FlagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("ripgrep.path", "")
	v.SetDefault("ripgrep.pcre2", true)
	v.SetDefault("inspect.task_timeout", time.Duration(0))
	v.SetDefault("view.factor", DefaultFactor)
	v.SetDefault("view.details", false)
	v.SetDefault("view.tail_lines", DefaultTailLines)
	v.SetDefault("follow.poll_interval", DefaultPollInterval)
	v.SetDefault("follow.min_interval", DefaultMinInterval)
	v.SetDefault("follow.retry_max_elapsed", DefaultRetryMaxElapsed)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("patterns", []string{})
}

func (c *Config) normalize() {
	c.Ripgrep.Path = strings.TrimSpace(c.Ripgrep.Path)
	if strings.HasPrefix(c.Ripgrep.Path, "~") {
		c.Ripgrep.Path = mustExpand(c.Ripgrep.Path)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		c.Logging.File = mustExpand(file)
	}
	if c.View.TailLines <= 0 {
		c.View.TailLines = DefaultTailLines
	}

	patterns := c.Patterns[:0]
	for _, p := range c.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	c.Patterns = patterns
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.View.Factor < 1 || c.View.Factor > maxFactor {
		return fmt.Errorf("%w: %d", ErrInvalidFactor, c.View.Factor)
	}
	if c.Follow.PollInterval <= 0 || c.Follow.MinInterval <= 0 || c.Follow.RetryMaxElapsed <= 0 {
		return ErrInvalidInterval
	}
	if c.Inspect.TaskTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Inspect.TaskTimeout)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Logging.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, l.Level)
}

// ExpandPath resolves a leading tilde and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
