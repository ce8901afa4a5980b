package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers committed domain events to in-process handlers.
// Handler failures are logged and never reach the publisher.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	tracer    trace.Tracer
	running   atomic.Bool
	onFailure func(ctx context.Context, eventType string, err error)
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithTracer wraps each handler dispatch in a span
func WithTracer(tracer trace.Tracer) BusOption {
	return func(b *InMemoryEventBus) {
		b.tracer = tracer
	}
}

// WithFailureHook is called for every handler error or panic
func WithFailureHook(fn func(ctx context.Context, eventType string, err error)) BusOption {
	return func(b *InMemoryEventBus) {
		b.onFailure = fn
	}
}

// NewInMemoryEventBus creates a new in-memory event bus. The bus accepts
// events until Stop is called.
func NewInMemoryEventBus(log *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   log,
		tracer:   noop.NewTracerProvider().Tracer("event"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.running.Store(true)
	return b
}

// Publish delivers events to their handlers synchronously, in order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	log := logger.With(ctx, b.logger)
	if !b.running.Load() {
		log.Warn("event bus stopped, dropping events", zap.Int("count", len(events)))
		return nil
	}

	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				log.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
				if b.onFailure != nil {
					b.onFailure(ctx, event.EventType(), err)
				}
			}
		}
	}
	return nil
}

// Subscribe registers a handler. With no explicit event types the handler's
// own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start resumes delivery after a Stop
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop stops accepting events. Delivery is synchronous, so nothing is in flight
// once concurrent Publish calls return.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, span := b.tracer.Start(ctx, "event.dispatch "+event.EventType(),
		trace.WithAttributes(
			attribute.String("event.type", event.EventType()),
			attribute.String("event.aggregate_id", event.AggregateID().String()),
		))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
