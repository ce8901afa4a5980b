package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeInserter struct {
	args      []river.JobArgs
	opts      []*river.InsertOpts
	err       error
	duplicate bool
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.args = append(f.args, args)
	f.opts = append(f.opts, opts)
	return &rivertype.JobInsertResult{
		Job:                      &rivertype.JobRow{ID: int64(len(f.args))},
		UniqueSkippedAsDuplicate: f.duplicate,
	}, nil
}

type mockTaskReader struct {
	mock.Mock
}

func (m *mockTaskReader) FindByID(ctx context.Context, id uuid.UUID) (*collections.Task, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*collections.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, r Reminder) error {
	return m.Called(ctx, r).Error(0)
}

func openTask(t *testing.T) *collections.Task {
	t.Helper()
	staff := uuid.New()
	task, err := collections.NewTask(collections.NewTaskInput{
		Customer:        collections.CustomerRef(uuid.New()),
		Title:           "Overdue invoice INV-2040",
		CollectionsType: collections.CollectionsTypeOverdueNotice,
		Amount:          valueobject.MustMoney("450.00", valueobject.USD),
		DueDate:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AssignedTo:      collections.StaffRef(staff),
	}, collections.DefaultPlanPolicy(), collections.NewActor(staff, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return task
}

func reminderJob(args ReminderArgs) *river.Job[ReminderArgs] {
	return &river.Job[ReminderArgs]{
		JobRow: &rivertype.JobRow{ID: 42, Attempt: 1, Kind: ReminderJobKind},
		Args:   args,
	}
}

func TestRiverReminderScheduler_ScheduleReminder(t *testing.T) {
	ins := &fakeInserter{}
	s := NewRiverReminderScheduler(ins, WithQueue("reminders"), WithMaxAttempts(3))
	taskID := uuid.New()
	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))

	require.NoError(t, s.ScheduleReminder(context.Background(), taskID, collections.ReminderChannelEmail, when, "due-date"))

	require.Len(t, ins.args, 1)
	args, ok := ins.args[0].(ReminderArgs)
	require.True(t, ok)
	assert.Equal(t, taskID, args.TaskID)
	assert.Equal(t, collections.ReminderChannelEmail, args.Channel)
	assert.Equal(t, "due-date", args.TemplateRef)
	assert.Equal(t, time.UTC, args.ScheduledFor.Location())
	assert.True(t, when.Equal(args.ScheduledFor))

	opts := ins.opts[0]
	assert.Equal(t, "reminders", opts.Queue)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.True(t, opts.ScheduledAt.Equal(when))
	assert.True(t, opts.UniqueOpts.ByArgs)
}

func TestRiverReminderScheduler_Defaults(t *testing.T) {
	ins := &fakeInserter{}
	s := NewRiverReminderScheduler(ins, WithQueue(""), WithMaxAttempts(0), WithSchedulerLogger(nil))
	require.NoError(t, s.ScheduleReminder(context.Background(), uuid.New(), collections.ReminderChannelTask, time.Now(), "follow-up"))
	assert.Equal(t, river.QueueDefault, ins.opts[0].Queue)
	assert.Equal(t, 5, ins.opts[0].MaxAttempts)
}

func TestRiverReminderScheduler_Rejects(t *testing.T) {
	ins := &fakeInserter{}
	s := NewRiverReminderScheduler(ins)
	ctx := context.Background()

	err := s.ScheduleReminder(ctx, uuid.Nil, collections.ReminderChannelEmail, time.Now(), "t")
	assert.ErrorIs(t, err, ErrInvalidReminder)

	err = s.ScheduleReminder(ctx, uuid.New(), collections.ReminderChannel("pager"), time.Now(), "t")
	assert.ErrorIs(t, err, ErrInvalidReminder)
	assert.Empty(t, ins.args)

	ins.err = errors.New("pool closed")
	err = s.ScheduleReminder(ctx, uuid.New(), collections.ReminderChannelSMS, time.Now(), "t")
	assert.ErrorContains(t, err, "pool closed")
}

func TestRiverReminderScheduler_DuplicateIsNotAnError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ins := &fakeInserter{duplicate: true}
	s := NewRiverReminderScheduler(ins, WithSchedulerLogger(zap.New(core)))

	require.NoError(t, s.ScheduleReminder(context.Background(), uuid.New(), collections.ReminderChannelEmail, time.Now(), "t"))
	assert.Equal(t, 1, logs.FilterMessage("Reminder already queued").Len())
	assert.Equal(t, 0, logs.FilterMessage("Reminder queued").Len())
}

func TestReminderArgs_Kind(t *testing.T) {
	assert.Equal(t, "collections_reminder", ReminderArgs{}.Kind())
}

func TestReminderWorker_DeliversOpenTask(t *testing.T) {
	task := openTask(t)
	tasks := new(mockTaskReader)
	notifier := new(mockNotifier)
	w := NewReminderWorker(tasks, notifier, nil)

	scheduled := time.Date(2024, 2, 27, 9, 0, 0, 0, time.UTC)
	tasks.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(r Reminder) bool {
		return r.TaskID == task.ID &&
			r.Channel == collections.ReminderChannelEmail &&
			r.TemplateRef == "due-date" &&
			r.Title == task.Title &&
			r.Customer == task.Customer &&
			r.Amount == task.Amount.String() &&
			r.ScheduledFor.Equal(scheduled)
	})).Return(nil)

	err := w.Work(context.Background(), reminderJob(ReminderArgs{
		TaskID:       task.ID,
		Channel:      collections.ReminderChannelEmail,
		TemplateRef:  "due-date",
		ScheduledFor: scheduled,
	}))
	require.NoError(t, err)
	tasks.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestReminderWorker_SkipsClosedTask(t *testing.T) {
	task := openTask(t)
	task.Status = collections.TaskStatusCancelled
	tasks := new(mockTaskReader)
	notifier := new(mockNotifier)
	tasks.On("FindByID", mock.Anything, task.ID).Return(task, nil)

	err := NewReminderWorker(tasks, notifier, nil).Work(context.Background(),
		reminderJob(ReminderArgs{TaskID: task.ID, Channel: collections.ReminderChannelEmail}))
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestReminderWorker_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown task cancels the job", func(t *testing.T) {
		id := uuid.New()
		tasks := new(mockTaskReader)
		tasks.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("collections task", id.String()))

		err := NewReminderWorker(tasks, new(mockNotifier), nil).Work(ctx, reminderJob(ReminderArgs{TaskID: id}))
		var cancelErr *rivertype.JobCancelError
		assert.ErrorAs(t, err, &cancelErr)
	})

	t.Run("repository error is retried", func(t *testing.T) {
		id := uuid.New()
		tasks := new(mockTaskReader)
		tasks.On("FindByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

		err := NewReminderWorker(tasks, new(mockNotifier), nil).Work(ctx, reminderJob(ReminderArgs{TaskID: id}))
		require.Error(t, err)
		var cancelErr *rivertype.JobCancelError
		assert.False(t, errors.As(err, &cancelErr))
	})

	t.Run("delivery error is retried", func(t *testing.T) {
		task := openTask(t)
		tasks := new(mockTaskReader)
		notifier := new(mockNotifier)
		tasks.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))

		err := NewReminderWorker(tasks, notifier, nil).Work(ctx,
			reminderJob(ReminderArgs{TaskID: task.ID, Channel: collections.ReminderChannelEmail}))
		assert.ErrorContains(t, err, "smtp timeout")
	})

	t.Run("unroutable channel cancels the job", func(t *testing.T) {
		task := openTask(t)
		tasks := new(mockTaskReader)
		tasks.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		err := NewReminderWorker(tasks, NewChannelRouter(nil), nil).Work(ctx,
			reminderJob(ReminderArgs{TaskID: task.ID, Channel: collections.ReminderChannelSMS}))
		var cancelErr *rivertype.JobCancelError
		assert.ErrorAs(t, err, &cancelErr)
	})
}
