// Package telemetry provides structured logging with trace correlation.
package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for engine operations

func (l *Logger) LogIngest(ctx context.Context, kind, key, nodeID string) {
	l.WithContext(ctx).Debug().
		Str("kind", kind).
		Str("key", key).
		Str("node_id", nodeID).
		Str("operation", "ingest").
		Msg("stored")
}

func (l *Logger) LogStorageError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("storage operation failed")
}

func (l *Logger) LogCacheWarmup(ctx context.Context, nodes, entries, events, predictions int) {
	l.WithContext(ctx).Info().
		Int("nodes", nodes).
		Int("entries", entries).
		Int("events", events).
		Int("predictions", predictions).
		Str("operation", "warmup").
		Msg("caches loaded")
}

func (l *Logger) LogSweep(ctx context.Context, metricsRemoved, eventsRemoved, predictionsRemoved int, duration float64) {
	l.WithContext(ctx).Info().
		Int("metrics_removed", metricsRemoved).
		Int("events_removed", eventsRemoved).
		Int("predictions_removed", predictionsRemoved).
		Float64("duration_ms", duration).
		Str("operation", "sweep").
		Msg("retention sweep completed")
}

func (l *Logger) LogSweepError(ctx context.Context, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", "sweep").
		Msg("retention sweep failed")
}

func (l *Logger) LogJournalError(ctx context.Context, key string, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("key", key).
		Str("operation", "journal").
		Msg("journal append failed")
}
