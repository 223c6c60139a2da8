package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/config"
)

func lastLogEntry(t *testing.T, content []byte) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := lastLogEntry(t, content)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.With(slog.String("component", "loader")).InfoContext(ctx, "test with trace")

	entry := lastLogEntry(t, buf.Bytes())
	assert.Equal(t, "test-trace-123", entry["trace_id"])
	assert.Equal(t, "loader", entry["component"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}

func TestNewConsoleLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSessionIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "info")

	ctx := WithSessionID(WithTraceID(context.Background(), "trace-1"), "session-9")
	logger.InfoContext(ctx, "column converted")

	entry := lastLogEntry(t, buf.Bytes())
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "session-9", entry["session_id"])

	buf.Reset()
	logger.Info("no context")
	entry = lastLogEntry(t, buf.Bytes())
	assert.NotContains(t, entry, "session_id")
	assert.NotContains(t, entry, "trace_id")
}

func TestContextValues_Empty(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSessionID(context.Background()))
}

func TestInitializeLogger_BothOutputs(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "both.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "warn", Output: "both", FilePath: logFile})
	require.NoError(t, err)

	logger.Info("filtered")
	logger.Warn("kept")
	require.NoError(t, CloseLogFile())
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "filtered")
	assert.Equal(t, "kept", lastLogEntry(t, content)["msg"])
}
