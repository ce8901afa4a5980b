package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for collections spans
const TracerName = "github.com/collections/backend/collections"

// Span attribute keys used across the collections service
const (
	SpanAttrTaskID          = "collections.task_id"
	SpanAttrActorID         = "collections.actor_id"
	SpanAttrCollectionsType = "collections.type"
	SpanAttrStatus          = "collections.status"
	SpanAttrAmount          = "collections.amount"
	SpanAttrChannel         = "collections.reminder.channel"
)

// StartSpan starts an internal span on the global tracer provider. The
// caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "collections.record_payment",
//	    attribute.String(telemetry.SpanAttrTaskID, id.String()))
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpanWith(ctx, otel.GetTracerProvider().Tracer(TracerName), spanName, attrs...)
}

// StartSpanWith starts an internal span on tracer
func StartSpanWith(ctx context.Context, tracer trace.Tracer, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return tracer.Start(ctx, spanName, opts...)
}

// RecordError records err on the span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the trace ID of the span in ctx, or "" without one.
func GetTraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
