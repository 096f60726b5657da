package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "birdreel-server/video-api"

// GetTracer returns the tracer for the video-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSweepSpan starts a span for one reconciliation sweep.
func StartSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "video.sweep",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCopySpan starts a span for one durable-copy attempt.
func StartCopySpan(ctx context.Context, videoID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "video.durable_copy",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("video.id", videoID)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
