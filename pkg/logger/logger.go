// Package logger provides structured logging for the orchestration engine,
// built on top of charmbracelet/log.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel is the severity of a log record.
type LogLevel string

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
)

// ToCharmlogLevel converts a LogLevel into the underlying charmlog.Level.
// Unknown levels default to InfoLevel.
func (l LogLevel) ToCharmlogLevel() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case InfoLevel:
		return charmlog.InfoLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	case DisabledLevel:
		return charmlog.Level(1000)
	default:
		return charmlog.InfoLevel
	}
}

// Config controls how a Logger is constructed.
type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns the configuration used when the engine boots normally.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stdout,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// TestConfig returns a configuration that discards all output; used by unit tests.
func TestConfig() *Config {
	return &Config{
		Level:      DisabledLevel,
		Output:     io.Discard,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// IsTestEnvironment reports whether the process is running under `go test`.
func IsTestEnvironment() bool {
	if len(os.Args) == 0 {
		return false
	}
	base := os.Args[0]
	return strings.HasSuffix(base, ".test") || strings.Contains(base, "/_test/")
}

// Logger is the structured logging surface used throughout the engine.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

// NewLogger builds a Logger from cfg. A nil cfg uses DefaultConfig, unless the
// process is running under `go test`, in which case TestConfig is used so
// test output stays quiet by default.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		if IsTestEnvironment() {
			cfg = TestConfig()
		} else {
			cfg = DefaultConfig()
		}
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	opts := charmlog.Options{
		ReportCaller:    cfg.AddSource,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(output, opts)
	l.SetLevel(cfg.Level.ToCharmlogLevel())
	return &charmLogger{l: l}
}

func (c *charmLogger) Debug(msg string, kv ...any) { c.l.Debug(msg, kv...) }
func (c *charmLogger) Info(msg string, kv ...any)  { c.l.Info(msg, kv...) }
func (c *charmLogger) Warn(msg string, kv ...any)  { c.l.Warn(msg, kv...) }
func (c *charmLogger) Error(msg string, kv ...any) { c.l.Error(msg, kv...) }

func (c *charmLogger) With(kv ...any) Logger {
	return &charmLogger{l: c.l.With(kv...)}
}

type ctxKey string

// LoggerCtxKey is the context key under which a Logger is stored.
const LoggerCtxKey ctxKey = "logger"

var defaultLogger = NewLogger(nil)

// ContextWithLogger returns a new context carrying l.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext returns the Logger stored in ctx, or the package default logger
// if ctx carries none (or an invalid value).
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return defaultLogger
	}
	if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

// SetDefault replaces the package-level default logger, used by package-level
// helpers (Info, Error, ...) and by FromContext as the fallback.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Debug logs at debug level on the package default logger.
func Debug(msg string, kv ...any) { defaultLogger.Debug(msg, kv...) }

// Info logs at info level on the package default logger.
func Info(msg string, kv ...any) { defaultLogger.Info(msg, kv...) }

// Warn logs at warn level on the package default logger.
func Warn(msg string, kv ...any) { defaultLogger.Warn(msg, kv...) }

// Error logs at error level on the package default logger.
func Error(msg string, kv ...any) { defaultLogger.Error(msg, kv...) }
