package testutil

import (
	"sync"

	"github.com/erraggy/oasguard/logging"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
	Attrs   []any
}

// Logger records log calls for assertions. Loggers derived with With share
// the same record.
type Logger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	attrs   []any
}

// NewLogger returns an empty recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *Logger) record(level, msg string, attrs []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]any{}, l.attrs...), attrs...)
	*l.entries = append(*l.entries, LogEntry{Level: level, Message: msg, Attrs: all})
}

// Debug implements logging.Logger.
func (l *Logger) Debug(msg string, attrs ...any) { l.record("debug", msg, attrs) }

// Info implements logging.Logger.
func (l *Logger) Info(msg string, attrs ...any) { l.record("info", msg, attrs) }

// Warn implements logging.Logger.
func (l *Logger) Warn(msg string, attrs ...any) { l.record("warn", msg, attrs) }

// Error implements logging.Logger.
func (l *Logger) Error(msg string, attrs ...any) { l.record("error", msg, attrs) }

// With implements logging.Logger.
func (l *Logger) With(attrs ...any) logging.Logger {
	return &Logger{mu: l.mu, entries: l.entries, attrs: append(append([]any{}, l.attrs...), attrs...)}
}

// Entries returns a copy of everything recorded at level, or at every level
// when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range *l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the messages recorded at level.
func (l *Logger) Messages(level string) []string {
	var out []string
	for _, e := range l.Entries(level) {
		out = append(out, e.Message)
	}
	return out
}

var _ logging.Logger = (*Logger)(nil)
