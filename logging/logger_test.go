package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNopLogger(t *testing.T) {
	t.Run("implements Logger interface", func(t *testing.T) {
		var _ Logger = NopLogger{}
	})

	t.Run("methods do nothing", func(t *testing.T) {
		l := NopLogger{}
		l.Debug("test message", "key", "value")
		l.Info("test message", "key", "value")
		l.Warn("test message", "key", "value")
		l.Error("test message", "key", "value")
	})

	t.Run("With returns same NopLogger", func(t *testing.T) {
		l := NopLogger{}
		_, ok := l.With("key", "value").(NopLogger)
		assert.True(t, ok, "With should return NopLogger")
	})
}

func TestSlogAdapter(t *testing.T) {
	t.Run("NewSlogAdapter with nil uses default", func(t *testing.T) {
		adapter := NewSlogAdapter(nil)
		assert.NotNil(t, adapter.logger)
	})

	t.Run("levels and attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		adapter := NewSlogAdapter(slog.New(handler))

		adapter.Debug("skipping validation", "path", "/pets")
		adapter.Warn("deprecated option", "option", "validate_errors")

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "path=/pets")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "option=validate_errors")
	})

	t.Run("With prepends attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
		adapter := NewSlogAdapter(slog.New(handler)).With("component", "middleware")

		adapter.Info("validated")
		assert.Contains(t, buf.String(), "component=middleware")
	})
}

func TestZerologAdapter(t *testing.T) {
	t.Run("levels and attributes", func(t *testing.T) {
		var buf bytes.Buffer
		adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

		adapter.Debug("resolved operation", "method", "GET", "status", 200)
		output := buf.String()
		assert.Contains(t, output, `"level":"debug"`)
		assert.Contains(t, output, `"method":"GET"`)
		assert.Contains(t, output, `"status":200`)
		assert.Contains(t, output, `"message":"resolved operation"`)
	})

	t.Run("disabled level writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.WarnLevel))

		adapter.Debug("hidden")
		adapter.Info("hidden")
		assert.Empty(t, buf.String())

		adapter.Error("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("odd attribute list drops dangling key", func(t *testing.T) {
		var buf bytes.Buffer
		adapter := NewZerologAdapter(zerolog.New(&buf))

		adapter.Info("odd", "key", "value", "dangling")
		output := buf.String()
		assert.Contains(t, output, `"key":"value"`)
		assert.False(t, strings.Contains(output, "dangling"))
	})

	t.Run("With prepends attributes", func(t *testing.T) {
		var buf bytes.Buffer
		adapter := NewZerologAdapter(zerolog.New(&buf)).With("component", "proxy")

		adapter.Info("listening")
		assert.Contains(t, buf.String(), `"component":"proxy"`)
	})
}
