// Package log builds the CLI's slog logger from the environment.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "LILYPAD_LOG_LEVEL"
	EnvFormat = "LILYPAD_LOG_FORMAT"
	EnvSource = "LILYPAD_LOG_SOURCE"
)

// Format is the log output format.
type Format string

const (
	// FormatText is human-readable key=value output.
	FormatText Format = "text"
	// FormatJSON is one JSON object per line.
	FormatJSON Format = "json"
)

// Config holds the logging configuration.
type Config struct {
	// Level is debug, info, warn or error. Default: warn.
	Level string
	// Format is text or json. Default: text.
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds file and line to every record.
	AddSource bool
}

// DefaultConfig logs warnings and errors as text to stderr, keeping CLI
// output readable.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: FormatText,
		Output: os.Stderr,
	}
}

// FromEnv overlays EnvLevel, EnvFormat and EnvSource on DefaultConfig.
func FromEnv() *Config {
	cfg := DefaultConfig()
	if level := os.Getenv(EnvLevel); level != "" {
		cfg.Level = strings.ToLower(level)
	}
	if format := os.Getenv(EnvFormat); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}
	if v := os.Getenv(EnvSource); v == "1" || v == "true" {
		cfg.AddSource = true
	}
	return cfg
}

// New creates a logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level; unknown names are warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
