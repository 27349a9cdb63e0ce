package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	l1 := Ctx(ctx)
	require.NotNil(t, l1, "Ctx returned nil instead of default logger")
	assert.Equal(t, defaultLogger, l1, "Ctx should return defaultLogger")

	customLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	require.NotEqual(t, defaultLogger, customLogger, "Failed to create a distinct custom logger for testing")

	ctxWithLogger := With(ctx, customLogger)
	l2 := Ctx(ctxWithLogger)
	require.NotNil(t, l2, "Ctx returned nil, expected custom logger")
	assert.Equal(t, customLogger, l2, "Ctx should return customLogger")
}

func TestNewLogger(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, FormatJSON, slog.LevelInfo).Info("hello", slog.String("tab", "production"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "hello", line["msg"])
		assert.Equal(t, "production", line["tab"])
		assert.Contains(t, line, "source")
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, FormatText, slog.LevelInfo).Info("hello", slog.String("tab", "production"))

		out := buf.String()
		assert.Contains(t, out, "hello")
		assert.Contains(t, out, "production")
		assert.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("Level", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, FormatJSON, slog.LevelWarn).Info("dropped")
		assert.Empty(t, buf.String())
	})
}
