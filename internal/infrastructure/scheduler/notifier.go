package scheduler

import (
	"context"
	"fmt"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogNotifier writes reminders to the log. It stands in for delivery
// channels that are not integrated yet.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(l *zap.Logger) *LogNotifier {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogNotifier{logger: l}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	logger.With(ctx, n.logger).Info("Collections reminder",
		zap.String("task_id", r.TaskID.String()),
		zap.String("title", r.Title),
		zap.String("channel", string(r.Channel)),
		zap.String("template", r.TemplateRef),
		zap.String("customer_id", r.Customer.ID.String()),
		zap.String("assigned_to", r.AssignedTo.ID.String()),
		zap.String("amount", r.Amount),
		zap.Time("due_date", r.DueDate),
	)
	return nil
}

// ChannelRouter dispatches reminders to the notifier registered for their
// channel, falling back to a default notifier when one is set
type ChannelRouter struct {
	routes   map[collections.ReminderChannel]Notifier
	fallback Notifier
}

// NewChannelRouter creates a router. fallback may be nil.
func NewChannelRouter(fallback Notifier) *ChannelRouter {
	return &ChannelRouter{
		routes:   make(map[collections.ReminderChannel]Notifier),
		fallback: fallback,
	}
}

// Handle registers n for channel
func (r *ChannelRouter) Handle(channel collections.ReminderChannel, n Notifier) *ChannelRouter {
	r.routes[channel] = n
	return r
}

// Notify implements Notifier
func (r *ChannelRouter) Notify(ctx context.Context, rem Reminder) error {
	n, ok := r.routes[rem.Channel]
	if !ok {
		n = r.fallback
	}
	if n == nil {
		return fmt.Errorf("%w %q", ErrNoNotifier, rem.Channel)
	}
	return n.Notify(ctx, rem)
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*ChannelRouter)(nil)
)
