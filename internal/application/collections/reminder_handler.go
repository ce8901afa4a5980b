package collections

import (
	"context"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/clock"
	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderPolicy decides when reminders fire and which templates they use
type ReminderPolicy struct {
	DueDateLead           time.Duration
	InstallmentLead       time.Duration
	Channel               collections.ReminderChannel
	DueDateTemplate       string
	InstallmentTemplate   string
	FollowUpTemplate      string
	PlanCompletedTemplate string
}

// ReminderPolicyFrom builds a ReminderPolicy from configuration
func ReminderPolicyFrom(cfg config.ReminderConfig) ReminderPolicy {
	return ReminderPolicy{
		DueDateLead:           cfg.DueDateLead,
		InstallmentLead:       cfg.InstallmentLead,
		Channel:               collections.ReminderChannel(cfg.Channel),
		DueDateTemplate:       cfg.DueDateTemplate,
		InstallmentTemplate:   cfg.InstallmentTemplate,
		FollowUpTemplate:      cfg.FollowUpTemplate,
		PlanCompletedTemplate: cfg.PlanCompletedTemplate,
	}
}

// ReminderHandler queues reminders in response to task events. Scheduling
// failures are logged and counted; they never fail the operation that raised
// the event.
type ReminderHandler struct {
	scheduler collections.ReminderScheduler
	policy    ReminderPolicy
	clock     clock.Clock
	metrics   *telemetry.CollectionsMetrics
	logger    *zap.Logger
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(
	scheduler collections.ReminderScheduler,
	policy ReminderPolicy,
	c clock.Clock,
	metrics *telemetry.CollectionsMetrics,
	logger *zap.Logger,
) *ReminderHandler {
	if c == nil {
		c = clock.SystemClock{}
	}
	if policy.Channel == "" {
		policy.Channel = collections.ReminderChannelEmail
	}
	return &ReminderHandler{
		scheduler: scheduler,
		policy:    policy,
		clock:     c,
		metrics:   metrics,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReminderHandler) EventTypes() []string {
	return []string{
		collections.EventTypeTaskCreated,
		collections.EventTypePaymentPlanCreated,
		collections.EventTypePaymentRecorded,
		collections.EventTypePaymentPlanCompleted,
		collections.EventTypeCommunicationAdded,
	}
}

// Handle queues the reminders an event calls for
func (h *ReminderHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *collections.TaskCreatedEvent:
		h.schedule(ctx, e.TaskID, h.policy.Channel, e.DueDate.Add(-h.policy.DueDateLead), h.policy.DueDateTemplate)
		if e.NextPaymentDate != nil {
			h.scheduleInstallment(ctx, e.TaskID, *e.NextPaymentDate)
		}
	case *collections.PaymentPlanCreatedEvent:
		if e.NextPaymentDate != nil {
			h.scheduleInstallment(ctx, e.TaskID, *e.NextPaymentDate)
		}
	case *collections.PaymentRecordedEvent:
		if e.NextPaymentDate != nil {
			h.scheduleInstallment(ctx, e.TaskID, *e.NextPaymentDate)
		}
	case *collections.PaymentPlanCompletedEvent:
		h.schedule(ctx, e.TaskID, h.policy.Channel, h.clock.Now(), h.policy.PlanCompletedTemplate)
	case *collections.CommunicationAddedEvent:
		if e.NextActionDate != nil {
			h.schedule(ctx, e.TaskID, collections.ReminderChannelTask, *e.NextActionDate, h.policy.FollowUpTemplate)
		}
	default:
		h.logger.Debug("Ignoring event without reminder", zap.String("event_type", event.EventType()))
	}
	return nil
}

func (h *ReminderHandler) scheduleInstallment(ctx context.Context, taskID uuid.UUID, due time.Time) {
	h.schedule(ctx, taskID, h.policy.Channel, due.Add(-h.policy.InstallmentLead), h.policy.InstallmentTemplate)
}

// schedule queues one reminder. A fire time already in the past is moved to
// now.
func (h *ReminderHandler) schedule(ctx context.Context, taskID uuid.UUID, channel collections.ReminderChannel, when time.Time, template string) {
	now := h.clock.Now().UTC()
	when = when.UTC()
	if when.Before(now) {
		when = now
	}

	err := h.scheduler.ScheduleReminder(ctx, taskID, channel, when, template)
	if err == nil {
		return
	}
	if h.metrics != nil {
		h.metrics.ReminderFailed(ctx, string(channel))
	}
	logger.With(logger.WithTaskID(ctx, taskID.String()), h.logger).Warn("Failed to schedule reminder",
		zap.String("channel", string(channel)),
		zap.String("template", template),
		zap.Time("scheduled_for", when),
		zap.Error(err),
	)
}

// Ensure ReminderHandler implements shared.EventHandler
var _ shared.EventHandler = (*ReminderHandler)(nil)
