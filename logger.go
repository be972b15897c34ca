package fewshot

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with fewshot-specific context.
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
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithLabel adds a class label field to the logger.
func (l *Logger) WithLabel(label string) *Logger {
	return &Logger{
		Logger: l.Logger.With("label", label),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAddSample logs an add-sample operation.
func (l *Logger) LogAddSample(ctx context.Context, label string, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add sample failed",
			"label", label,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "sample added",
			"label", label,
			"total", total,
		)
	}
}

// LogPredict logs a prediction.
func (l *Logger) LogPredict(ctx context.Context, label string, confidence float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"label", label,
			"confidence", confidence,
		)
	}
}

// LogFeedback logs a feedback submission.
func (l *Logger) LogFeedback(ctx context.Context, predicted, correct string, source string) {
	l.InfoContext(ctx, "feedback recorded",
		"predicted", predicted,
		"correct", correct,
		"source", source,
	)
}

// LogSave logs a model save operation.
func (l *Logger) LogSave(ctx context.Context, path string, samples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model save failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model saved",
			"path", path,
			"samples", samples,
		)
	}
}

// LogLoad logs a model load operation.
func (l *Logger) LogLoad(ctx context.Context, path string, samples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model loaded",
			"path", path,
			"samples", samples,
		)
	}
}
