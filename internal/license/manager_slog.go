package license

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "usblicense/internal/errors"
	"usblicense/internal/infrastructure"
)

// logOperation logs operation completion with duration, updates metrics
// and annotates the current span.
func (m *Manager) logOperation(ctx context.Context, op Operation, path string, start time.Time, count uint16, err error) {
	duration := time.Since(start)
	result := resultOf(err)

	m.recordOperation(ctx, op, result, duration, count, err)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("license.result", result),
			attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
			attribute.Int("license.count", int(count)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "Operation completed successfully")
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", string(op)),
		slog.String("device", path),
		slog.Duration("duration", duration),
		slog.String("result", result),
	}
	if traceID := infrastructure.TraceIDFromContext(ctx); traceID != "" {
		attrs = append(attrs, slog.String("otel_trace_id", traceID))
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_type", string(errorType(err))),
		)
		m.logger.LogAttrs(ctx, slog.LevelError, "License operation failed", attrs...)
		return
	}

	attrs = append(attrs, slog.Int("license_count", int(count)))
	m.logger.LogAttrs(ctx, slog.LevelInfo, "License operation completed successfully", attrs...)
}

func (m *Manager) recordOperation(ctx context.Context, op Operation, result string, duration time.Duration, count uint16, err error) {
	opAttrs := metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("result", result),
	)
	m.metrics.Operations.Add(ctx, 1, opAttrs)
	m.metrics.OperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", string(op)),
	))

	if err != nil {
		m.metrics.Failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", string(op)),
			attribute.String("error_type", string(errorType(err))),
		))
		return
	}
	if op != OpDump {
		m.metrics.CountObserved.Record(ctx, int64(count), metric.WithAttributes(
			attribute.String("operation", string(op)),
		))
	}
}

func resultOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func errorType(err error) apperrors.ErrorType {
	if t, ok := apperrors.TypeOf(err); ok {
		return t
	}
	return "UNKNOWN"
}
