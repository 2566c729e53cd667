package otel

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// TraceContextFrom extracts trace_id and span_id from the span in ctx.
// Both are empty when no recording span is present, so callers can skip
// the fields entirely when tracing is off.
func TraceContextFrom(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}

// LogTraceFields correlates a log event with the active span. Attach it
// with .Func() on events emitted inside a traced operation:
//
//	logger.Info().Func(otel.LogTraceFields(ctx)).Msg("turn_processed")
//
// Events logged outside any span come out unchanged.
func LogTraceFields(ctx context.Context) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		traceID, spanID := TraceContextFrom(ctx)
		if traceID == "" {
			return
		}
		e.Str("trace_id", traceID).Str("span_id", spanID)
	}
}
