package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns nop logger when absent", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})
}

func TestFields(t *testing.T) {
	ctx := WithTaskID(context.Background(), "task-1")
	ctx = WithActorID(ctx, "user-9")
	ctx = WithJobID(ctx, "42")

	assert.Equal(t, "task-1", GetTaskID(ctx))
	assert.Equal(t, "user-9", GetActorID(ctx))
	assert.Equal(t, "42", GetJobID(ctx))
	assert.Len(t, Fields(ctx), 3)
	assert.Empty(t, Fields(context.Background()))
}

func TestL_AddsTraceCorrelation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx = WithContext(WithTaskID(ctx, "task-1"), zap.New(core))

	L(ctx).Info("payment recorded")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, "task-1", fields["task_id"])
	}
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}
