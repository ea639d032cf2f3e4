package crossfilter

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with crossfilter-specific context.
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

// WithView adds a view ID field to the logger.
func (l *Logger) WithView(viewID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("view", viewID),
	}
}

// WithField adds a dataset field name to the logger.
func (l *Logger) WithField(field string) *Logger {
	return &Logger{
		Logger: l.Logger.With("field", field),
	}
}

// WithGeneration adds a generation field to the logger.
func (l *Logger) WithGeneration(gen uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", gen),
	}
}

// LogLoad logs dataset construction.
func (l *Logger) LogLoad(columns, rows int, err error) {
	if err != nil {
		l.Error("dataset load failed",
			"columns", columns,
			"error", err,
		)
	} else {
		l.Info("dataset loaded",
			"columns", columns,
			"rows", rows,
		)
	}
}

// LogBrush logs a brush gesture.
func (l *Logger) LogBrush(field string, phase BrushPhase, err error) {
	if err != nil {
		l.Error("brush rejected",
			"field", field,
			"phase", phase,
			"error", err,
		)
	} else {
		l.Debug("brush handled",
			"field", field,
			"phase", phase,
		)
	}
}

// LogSubscribe logs a view subscription.
func (l *Logger) LogSubscribe(viewID string, err error) {
	if err != nil {
		l.Error("subscribe rejected",
			"view", viewID,
			"error", err,
		)
	} else {
		l.Debug("view subscribed",
			"view", viewID,
		)
	}
}

// LogRestore logs a session restore.
func (l *Logger) LogRestore(filters int, generation uint64, err error) {
	if err != nil {
		l.Error("restore failed",
			"filters", filters,
			"error", err,
		)
	} else {
		l.Info("session restored",
			"filters", filters,
			"generation", generation,
		)
	}
}

// LogClose logs engine teardown.
func (l *Logger) LogClose(d time.Duration) {
	l.Info("engine closed",
		"drain", d,
	)
}
