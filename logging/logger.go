// Package logging defines the reporter interface that oasguard components log through.
//
// Nothing in oasguard writes to a process-wide logger. A Logger is injected per
// middleware or loader instance (middleware.WithLogger, spec.WithLogger) and defaults
// to NopLogger.
package logging

import (
	"log/slog"

	"github.com/rs/zerolog"
)

// Logger is the interface that oasguard uses for structured logging.
//
// It uses variadic key-value pairs for structured attributes, following the same
// convention as log/slog:
//
//	logger.Debug("skipping validation", "method", "GET", "path", "/pets")
//
// Keys should be strings, and values can be any type that the underlying
// logger can serialize.
//
// # Usage with log/slog
//
//	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
//	logger := logging.NewSlogAdapter(slog.New(handler))
//
// # Usage with zerolog
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	logger := logging.NewZerologAdapter(zl)
type Logger interface {
	// Debug logs at debug level. Use for detailed diagnostic information.
	Debug(msg string, attrs ...any)

	// Info logs at info level. Use for general operational information.
	Info(msg string, attrs ...any)

	// Warn logs at warn level. Use for potentially harmful situations,
	// including use of deprecated options.
	Warn(msg string, attrs ...any)

	// Error logs at error level. Use for error conditions.
	Error(msg string, attrs ...any)

	// With returns a new Logger with the given attributes prepended to every log.
	With(attrs ...any) Logger
}

// NopLogger is a no-op logger that discards all output.
// It is the default logger used when no logger is configured.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(_ string, _ ...any) {}

// Info implements Logger.
func (NopLogger) Info(_ string, _ ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(_ string, _ ...any) {}

// Error implements Logger.
func (NopLogger) Error(_ string, _ ...any) {}

// With implements Logger.
func (n NopLogger) With(_ ...any) Logger { return n }

// Ensure NopLogger implements Logger at compile time.
var _ Logger = NopLogger{}

// SlogAdapter wraps a *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter from a *slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug implements Logger.
func (s *SlogAdapter) Debug(msg string, attrs ...any) {
	s.logger.Debug(msg, attrs...)
}

// Info implements Logger.
func (s *SlogAdapter) Info(msg string, attrs ...any) {
	s.logger.Info(msg, attrs...)
}

// Warn implements Logger.
func (s *SlogAdapter) Warn(msg string, attrs ...any) {
	s.logger.Warn(msg, attrs...)
}

// Error implements Logger.
func (s *SlogAdapter) Error(msg string, attrs ...any) {
	s.logger.Error(msg, attrs...)
}

// With implements Logger.
func (s *SlogAdapter) With(attrs ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(attrs...)}
}

// Ensure SlogAdapter implements Logger at compile time.
var _ Logger = (*SlogAdapter)(nil)

// ZerologAdapter wraps a zerolog.Logger to implement the Logger interface.
// Attributes are passed to zerolog as a key/value slice.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a new ZerologAdapter.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// Debug implements Logger.
func (z *ZerologAdapter) Debug(msg string, attrs ...any) {
	z.emit(z.logger.Debug(), msg, attrs)
}

// Info implements Logger.
func (z *ZerologAdapter) Info(msg string, attrs ...any) {
	z.emit(z.logger.Info(), msg, attrs)
}

// Warn implements Logger.
func (z *ZerologAdapter) Warn(msg string, attrs ...any) {
	z.emit(z.logger.Warn(), msg, attrs)
}

// Error implements Logger.
func (z *ZerologAdapter) Error(msg string, attrs ...any) {
	z.emit(z.logger.Error(), msg, attrs)
}

// With implements Logger.
func (z *ZerologAdapter) With(attrs ...any) Logger {
	if len(attrs) == 0 {
		return z
	}
	return &ZerologAdapter{logger: z.logger.With().Fields(evenAttrs(attrs)).Logger()}
}

func (z *ZerologAdapter) emit(e *zerolog.Event, msg string, attrs []any) {
	if e == nil {
		// level disabled
		return
	}
	if len(attrs) > 0 {
		e = e.Fields(evenAttrs(attrs))
	}
	e.Msg(msg)
}

// evenAttrs drops a trailing key without a value; zerolog rejects odd field lists.
func evenAttrs(attrs []any) []any {
	if len(attrs)%2 == 1 {
		return attrs[:len(attrs)-1]
	}
	return attrs
}

// Ensure ZerologAdapter implements Logger at compile time.
var _ Logger = (*ZerologAdapter)(nil)
