package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"datacleaner/internal/config"
)

var (
	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once

	logFileMu sync.Mutex
	logFile   *os.File
)

// InitializeLogger builds the service logger from cfg and installs it as the
// slog default. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	globalLoggerOnce.Do(func() {
		var out io.Writer
		out, err = logOutput(cfg, os.Stdout)
		if err != nil {
			return
		}
		globalLogger = newLogger(out, cfg.Level, cfg.Development)
		slog.SetDefault(globalLogger)
	})
	return globalLogger, err
}

// GetLogger returns the service logger, or slog.Default before
// InitializeLogger ran.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// NewConsoleLogger returns a JSON logger writing to w without touching the
// global logger. The CLI uses it to keep logs on stderr.
func NewConsoleLogger(w io.Writer, level string) *slog.Logger {
	return newLogger(w, level, false)
}

func newLogger(w io.Writer, level string, source bool) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: source,
		Level:     parseLogLevel(level),
	})
	return slog.New(contextHandler{Handler: handler})
}

// logOutput resolves cfg.Output to a writer. File output appends to
// cfg.FilePath, which stays open until CloseLogFile.
func logOutput(cfg config.LoggingConfig, console io.Writer) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return console, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logFileMu.Lock()
	logFile = f
	logFileMu.Unlock()

	if output == "both" {
		return io.MultiWriter(console, f), nil
	}
	return f, nil
}

// contextHandler stamps trace_id and session_id from the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if id := GetSessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel maps a config level name to a slog.Level. Unknown names
// fall back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting forgets the global logger so a test can initialize
// it again.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	globalLogger = nil
	globalLoggerOnce = sync.Once{}
}
