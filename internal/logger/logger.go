// Package logger provides structured JSON logging for the analyzer,
// backed by zerolog with optional size-based rotation of the log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Config controls log destination, level and rotation.
type Config struct {
	Level      string `yaml:"level"`       // trace, debug, info, warn, error
	File       string `yaml:"file"`        // empty means stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"` // human-readable output instead of JSON
}

// DefaultConfig returns the rotation and level defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxAgeDays: 7,
		MaxBackups: 5,
		Compress:   true,
	}
}

var root zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	root = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init configures the package logger. Safe to call once at startup; the
// zero configuration logs JSON to stdout at info level.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		out = io.MultiWriter(out, rotated)
	}

	root = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// With returns a child logger carrying the given key/value pair.
func With(key, value string) zerolog.Logger {
	return root.With().Str(key, value).Logger()
}

// Root returns the package logger for callers that need event chaining.
func Root() zerolog.Logger {
	return root
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	root.Debug().Msg(fmt.Sprintf(format, v...))
}

// Info logs an informational message.
func Info(format string, v ...interface{}) {
	root.Info().Msg(fmt.Sprintf(format, v...))
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	root.Warn().Msg(fmt.Sprintf(format, v...))
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	root.Error().Msg(fmt.Sprintf(format, v...))
}

// Fatal logs a fatal message and exits.
func Fatal(format string, v ...interface{}) {
	root.Fatal().Msg(fmt.Sprintf(format, v...))
}
