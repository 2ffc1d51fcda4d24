package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("250ms", "5s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings are the runtime settings of a treesync service.
type Settings struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`
	// LoadTimeout bounds a single grammar load. Zero means no limit.
	LoadTimeout Duration `toml:"load_timeout"`
	// CancelSuperseded interrupts in-flight loads and parses as soon as a
	// newer document state arrives.
	CancelSuperseded bool `toml:"cancel_superseded"`
	// Aliases maps extra language ids onto registered ones.
	Aliases map[string]string `toml:"aliases"`
}

// DefaultSettings returns the settings used when no file is configured.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:    "info",
		LoadTimeout: Duration{5 * time.Second},
	}
}

func (s *Settings) Validate() error {
	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.LoadTimeout.Duration < 0 {
		return fmt.Errorf("load_timeout must not be negative, got %s", s.LoadTimeout)
	}
	for alias, target := range s.Aliases {
		if alias == "" || target == "" {
			return fmt.Errorf("alias %q -> %q: empty language id", alias, target)
		}
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (s *Settings) Level() slog.Level {
	l, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", name)
}
