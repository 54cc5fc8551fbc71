package logger

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the global zap.Logger instance.
var logger = zap.NewNop()

const (
	TraceIDKey = "traceid" // Key for trace ID in logs
	SpanIDKey  = "spanid"  // Key for span ID in logs
)

type ctxKey string

const (
	ctxTraceID ctxKey = "traceid" // Context key for trace ID
	ctxSpanID  ctxKey = "spanid"  // Context key for span ID
)

// Setup initializes the global logger with the production JSON encoder.
func Setup(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	prev := logger
	logger = l.WithOptions(zap.AddCallerSkip(1))
	return func() { logger = prev }
}

// Sync flushes buffered log entries.
func Sync() {
	_ = logger.Sync()
}

// WithTraceID returns a new context with the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxTraceID, traceID)
}

// WithSpanID returns a new context with the given span ID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, ctxSpanID, spanID)
}

// TraceIDFromContext extracts the trace ID from context or OpenTelemetry span.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxTraceID).(string); ok {
		return v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanIDFromContext extracts the span ID from context or OpenTelemetry span.
func SpanIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxSpanID).(string); ok {
		return v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

func ctxFields(ctx context.Context) []zap.Field {
	return []zap.Field{
		zap.String(TraceIDKey, TraceIDFromContext(ctx)),
		zap.String(SpanIDKey, SpanIDFromContext(ctx)),
	}
}

// InfoCtx logs an info message with trace and span IDs from context.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	logger.Info(fmt.Sprintf(msg, args...), ctxFields(ctx)...)
}

// WarnCtx logs a warning message with trace and span IDs from context.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	logger.Warn(fmt.Sprintf(msg, args...), ctxFields(ctx)...)
}

// ErrorCtx logs an error message with trace and span IDs from context.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	logger.Error(fmt.Sprintf(msg, args...), ctxFields(ctx)...)
}

// Info logs an info message (without context).
func Info(msg string, args ...any) {
	logger.Info(fmt.Sprintf(msg, args...))
}

// Warn logs a warning message (without context).
func Warn(msg string, args ...any) {
	logger.Warn(fmt.Sprintf(msg, args...))
}

// Error logs an error message (without context).
func Error(msg string, args ...any) {
	logger.Error(fmt.Sprintf(msg, args...))
}

// Fatal logs an error message and exits the process.
func Fatal(msg string, args ...any) {
	logger.Error(fmt.Sprintf(msg, args...))
	Sync()
	os.Exit(1)
}
