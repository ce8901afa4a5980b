// Package scheduler runs the background work of the collections service on
// River: delayed reminder delivery and the periodic risk sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"
)

// ReminderJobKind is the river job kind for reminders
const ReminderJobKind = "collections_reminder"

// ReminderArgs is the payload of a queued reminder
type ReminderArgs struct {
	TaskID       uuid.UUID                   `json:"task_id"`
	Channel      collections.ReminderChannel `json:"channel"`
	TemplateRef  string                      `json:"template_ref"`
	ScheduledFor time.Time                   `json:"scheduled_for"`
}

// Kind implements river.JobArgs
func (ReminderArgs) Kind() string { return ReminderJobKind }

// jobInserter is the part of the river client the reminder scheduler uses
type jobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// RiverReminderScheduler queues reminders as scheduled river jobs
type RiverReminderScheduler struct {
	inserter    jobInserter
	queue       string
	maxAttempts int
	logger      *zap.Logger
}

// ReminderSchedulerOption is a functional option for RiverReminderScheduler
type ReminderSchedulerOption func(*RiverReminderScheduler)

// WithQueue sets the queue reminders are inserted into
func WithQueue(queue string) ReminderSchedulerOption {
	return func(s *RiverReminderScheduler) {
		if queue != "" {
			s.queue = queue
		}
	}
}

// WithMaxAttempts sets how often a reminder delivery is retried
func WithMaxAttempts(n int) ReminderSchedulerOption {
	return func(s *RiverReminderScheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithSchedulerLogger sets a custom logger
func WithSchedulerLogger(l *zap.Logger) ReminderSchedulerOption {
	return func(s *RiverReminderScheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRiverReminderScheduler creates a scheduler inserting through client
func NewRiverReminderScheduler(client jobInserter, opts ...ReminderSchedulerOption) *RiverReminderScheduler {
	s := &RiverReminderScheduler{
		inserter:    client,
		queue:       river.QueueDefault,
		maxAttempts: 5,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleReminder inserts a reminder job that becomes available at whenUTC.
// Identical reminders for the same task and time are inserted once.
func (s *RiverReminderScheduler) ScheduleReminder(ctx context.Context, taskID uuid.UUID, channel collections.ReminderChannel, whenUTC time.Time, templateRef string) error {
	if taskID == uuid.Nil {
		return fmt.Errorf("%w: task id is required", ErrInvalidReminder)
	}
	if !validChannel(channel) {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidReminder, channel)
	}
	when := whenUTC.UTC()
	args := ReminderArgs{
		TaskID:       taskID,
		Channel:      channel,
		TemplateRef:  templateRef,
		ScheduledFor: when,
	}
	res, err := s.inserter.Insert(ctx, args, &river.InsertOpts{
		Queue:       s.queue,
		ScheduledAt: when,
		MaxAttempts: s.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		return fmt.Errorf("failed to queue reminder: %w", err)
	}

	log := logger.With(ctx, s.logger)
	if res != nil && res.UniqueSkippedAsDuplicate {
		log.Debug("Reminder already queued",
			zap.String("task_id", taskID.String()),
			zap.Time("scheduled_for", when),
		)
		return nil
	}
	log.Info("Reminder queued",
		zap.String("task_id", taskID.String()),
		zap.String("channel", string(channel)),
		zap.String("template", templateRef),
		zap.Time("scheduled_for", when),
	)
	return nil
}

func validChannel(c collections.ReminderChannel) bool {
	switch c {
	case collections.ReminderChannelEmail, collections.ReminderChannelSMS,
		collections.ReminderChannelPhone, collections.ReminderChannelTask:
		return true
	}
	return false
}

// Reminder is a due reminder handed to a notifier
type Reminder struct {
	TaskID       uuid.UUID
	Title        string
	Channel      collections.ReminderChannel
	TemplateRef  string
	Customer     collections.Reference
	AssignedTo   collections.Reference
	Amount       string
	DueDate      time.Time
	ScheduledFor time.Time
}

// Notifier delivers a reminder over its channel
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// TaskReader loads tasks for reminder delivery
type TaskReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*collections.Task, error)
}

// ReminderWorker delivers queued reminders. Reminders for tasks that have
// since been completed or cancelled are dropped.
type ReminderWorker struct {
	river.WorkerDefaults[ReminderArgs]
	tasks    TaskReader
	notifier Notifier
	logger   *zap.Logger
}

// NewReminderWorker creates a reminder worker
func NewReminderWorker(tasks TaskReader, notifier Notifier, l *zap.Logger) *ReminderWorker {
	if l == nil {
		l = zap.NewNop()
	}
	return &ReminderWorker{tasks: tasks, notifier: notifier, logger: l}
}

// Timeout bounds a single delivery attempt
func (w *ReminderWorker) Timeout(*river.Job[ReminderArgs]) time.Duration {
	return 30 * time.Second
}

// Work implements river.Worker
func (w *ReminderWorker) Work(ctx context.Context, job *river.Job[ReminderArgs]) error {
	args := job.Args
	ctx = logger.WithTaskID(ctx, args.TaskID.String())
	ctx = logger.WithJobID(ctx, fmt.Sprintf("%d", job.ID))
	log := logger.With(ctx, w.logger)

	task, err := w.tasks.FindByID(ctx, args.TaskID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("Dropping reminder for unknown task")
			return river.JobCancel(err)
		}
		return fmt.Errorf("failed to load task: %w", err)
	}
	if task.Status.IsTerminal() {
		log.Debug("Dropping reminder for closed task", zap.String("status", string(task.Status)))
		return nil
	}

	reminder := Reminder{
		TaskID:       task.ID,
		Title:        task.Title,
		Channel:      args.Channel,
		TemplateRef:  args.TemplateRef,
		Customer:     task.Customer,
		AssignedTo:   task.AssignedTo,
		Amount:       task.Amount.String(),
		DueDate:      task.DueDate,
		ScheduledFor: args.ScheduledFor,
	}
	if err := w.notifier.Notify(ctx, reminder); err != nil {
		if errors.Is(err, ErrNoNotifier) {
			log.Warn("Dropping reminder with no notifier", zap.String("channel", string(args.Channel)))
			return river.JobCancel(err)
		}
		log.Warn("Reminder delivery failed",
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return err
	}
	log.Info("Reminder delivered",
		zap.String("channel", string(args.Channel)),
		zap.String("template", args.TemplateRef),
	)
	return nil
}

// Ensure RiverReminderScheduler implements ReminderScheduler
var _ collections.ReminderScheduler = (*RiverReminderScheduler)(nil)
