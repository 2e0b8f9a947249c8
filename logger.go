package seisclust

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with seisclust-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithMethod adds a clustering-method field to the logger.
func (l *Logger) WithMethod(method string) *Logger {
	return &Logger{Logger: l.Logger.With("method", method)}
}

// WithTemplate adds a template-name field to the logger.
func (l *Logger) WithTemplate(name string) *Logger {
	return &Logger{Logger: l.Logger.With("template", name)}
}

// LogCluster logs a clustering run.
func (l *Logger) LogCluster(ctx context.Context, method string, groups int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clustering failed",
			"method", method,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "clustering completed",
			"method", method,
			"groups", groups,
		)
	}
}

// LogSave logs an archive save.
func (l *Logger) LogSave(path string, templates int, err error) {
	if err != nil {
		l.Error("archive save failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Info("archive saved",
			"path", path,
			"templates", templates,
		)
	}
}

// LogLoad logs an archive load.
func (l *Logger) LogLoad(path string, templates int, err error) {
	if err != nil {
		l.Error("archive load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Info("archive loaded",
			"path", path,
			"templates", templates,
		)
	}
}
