package collections

import (
	"context"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/telemetry"
)

// MetricsHandler counts task events
type MetricsHandler struct {
	metrics *telemetry.CollectionsMetrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics *telemetry.CollectionsMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		collections.EventTypeTaskCreated,
		collections.EventTypeCommunicationAdded,
		collections.EventTypePaymentRecorded,
		collections.EventTypePaymentPlanCompleted,
		collections.EventTypeTaskStatusChanged,
		collections.EventTypeTaskEscalated,
	}
}

// Handle records the event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *collections.TaskCreatedEvent:
		h.metrics.TaskCreated(ctx, string(e.CollectionsType))
	case *collections.CommunicationAddedEvent:
		h.metrics.CommunicationAdded(ctx, string(e.Direction))
	case *collections.PaymentRecordedEvent:
		h.metrics.PaymentRecorded(ctx, e.Amount)
	case *collections.PaymentPlanCompletedEvent:
		h.metrics.PlanCompleted(ctx)
	case *collections.TaskStatusChangedEvent:
		h.metrics.StatusChanged(ctx, string(e.To))
	case *collections.TaskEscalatedEvent:
		direction := "up"
		if e.ToLevel < e.FromLevel {
			direction = "down"
		}
		h.metrics.EscalationChanged(ctx, direction)
	}
	return nil
}

// Ensure MetricsHandler implements shared.EventHandler
var _ shared.EventHandler = (*MetricsHandler)(nil)
