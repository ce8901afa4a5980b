package collections

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ReminderChannel is the delivery channel requested for a reminder
type ReminderChannel string

const (
	ReminderChannelEmail ReminderChannel = "email"
	ReminderChannelSMS   ReminderChannel = "sms"
	ReminderChannelPhone ReminderChannel = "phone"
	ReminderChannelTask  ReminderChannel = "task"
)

// ReminderScheduler queues a reminder for later delivery. Callers treat
// failures as non-fatal.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, taskID uuid.UUID, channel ReminderChannel, whenUTC time.Time, templateRef string) error
}

// DocumentStore keeps legal document blobs outside the task
type DocumentStore interface {
	StoreDocument(ctx context.Context, taskID uuid.UUID, meta DocumentMetadata, blob io.Reader) (DocumentRef, error)
	// DeleteDocument removes a blob whose attachment could not be saved
	DeleteDocument(ctx context.Context, ref DocumentRef) error
}

// Directory resolves opaque references into display data
type Directory interface {
	Resolve(ctx context.Context, refs []Reference) (map[Reference]Resolved, error)
}
