package collections

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/collections/backend/internal/infrastructure/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type serviceFixture struct {
	repo      *MockTaskRepository
	publisher *MockEventPublisher
	clock     *clock.FakeClock
	actorID   uuid.UUID
	svc       *CollectionsService
}

func newFixture(t *testing.T, opts ...Option) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      new(MockTaskRepository),
		publisher: new(MockEventPublisher),
		clock:     clock.NewFakeClock(testNow),
		actorID:   uuid.New(),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	base := []Option{WithClock(f.clock), WithEventPublisher(f.publisher), WithSystemActor(uuid.New())}
	f.svc = NewCollectionsService(f.repo, append(base, opts...)...)
	return f
}

type taskOption func(*collections.NewTaskInput)

func withPlan(installment string, count int) taskOption {
	return func(in *collections.NewTaskInput) {
		in.PaymentPlan = &collections.PlanInput{
			InstallmentAmount:    valueobject.MustMoney(installment, valueobject.USD),
			NumberOfInstallments: count,
			Frequency:            collections.FrequencyMonthly,
			FirstPaymentDate:     testNow.AddDate(0, 0, 5),
		}
	}
}

func dueIn(days int) taskOption {
	return func(in *collections.NewTaskInput) { in.DueDate = testNow.AddDate(0, 0, days) }
}

// storedTask builds a task as the repository would return it
func storedTask(t *testing.T, opts ...taskOption) *collections.Task {
	t.Helper()
	in := collections.NewTaskInput{
		Customer:        collections.CustomerRef(uuid.New()),
		Title:           "Invoice INV-1042",
		CollectionsType: collections.CollectionsTypePaymentReminder,
		Amount:          valueobject.MustMoney("1200.00", valueobject.USD),
		DueDate:         testNow.AddDate(0, 0, 14),
		AssignedTo:      collections.StaffRef(uuid.New()),
	}
	for _, opt := range opts {
		opt(&in)
	}
	task, err := collections.NewTask(in, collections.DefaultPlanPolicy(), collections.NewActor(uuid.New(), testNow.AddDate(0, 0, -30)))
	require.NoError(t, err)
	task.ClearDomainEvents()
	return task
}

func validCreateRequest() CreateTaskRequest {
	return CreateTaskRequest{
		CustomerID:      uuid.New(),
		Title:           "Invoice INV-2001",
		CollectionsType: "payment_reminder",
		Amount:          decimal.RequireFromString("1200.00"),
		DueDate:         testNow.AddDate(0, 0, 14),
		AssignedTo:      uuid.New(),
	}
}

func TestCollectionsService_CreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a pending task and publishes after create", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*collections.Task")).Return(nil)

		resp, err := f.svc.CreateTask(ctx, f.actorID, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "1200.00", resp.Amount)
		assert.Equal(t, "USD", resp.Currency)
		assert.Equal(t, "medium", resp.Priority)
		assert.Equal(t, collections.StaffRef(f.actorID), resp.AssignedBy)
		assert.Equal(t, 1, resp.Version)
		require.Len(t, resp.AuditTrail, 1)
		assert.Equal(t, string(collections.AuditTaskCreated), resp.AuditTrail[0].Action)
		assert.Equal(t, []string{collections.EventTypeTaskCreated}, f.publisher.publishedTypes())
		f.repo.AssertExpectations(t)
	})

	t.Run("creates the plan in the same operation", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		req := validCreateRequest()
		req.PaymentPlan = &PaymentPlanInput{
			InstallmentAmount:    decimal.RequireFromString("400.00"),
			NumberOfInstallments: 3,
			Frequency:            "monthly",
			FirstPaymentDate:     testNow.AddDate(0, 1, 0),
		}
		resp, err := f.svc.CreateTask(ctx, f.actorID, req)
		require.NoError(t, err)
		require.NotNil(t, resp.PaymentPlan)
		assert.Equal(t, "1200.00", resp.PaymentPlan.TotalAmount)
		assert.Equal(t, "1200.00", resp.PaymentPlan.RemainingBalance)
		assert.Equal(t, 3, resp.PaymentPlan.InstallmentsRemaining)
		assert.Len(t, resp.AuditTrail, 2)
	})

	t.Run("request validation reports each field", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.Title = ""
		req.CollectionsType = "lawsuit"

		_, err := f.svc.CreateTask(ctx, f.actorID, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_REQUEST", domainErr.Code)
		assert.Contains(t, domainErr.Details, "title")
		assert.Contains(t, domainErr.Details, "collections_type")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.Amount = decimal.RequireFromString("-5")

		_, err := f.svc.CreateTask(ctx, f.actorID, req)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("actor is required", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateTask(ctx, uuid.Nil, validCreateRequest())
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "ACTOR_REQUIRED", domainErr.Code)
	})

	t.Run("repository failure publishes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		_, err := f.svc.CreateTask(ctx, f.actorID, validCreateRequest())
		assert.EqualError(t, err, "connection refused")
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestCollectionsService_UpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged fields are not saved", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		title := task.Title
		resp, err := f.svc.UpdateTask(ctx, f.actorID, task.ID, UpdateTaskRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Version)
		assert.Len(t, resp.AuditTrail, 1)
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("status change is saved and published", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		status := "in_progress"
		priority := "urgent"
		resp, err := f.svc.UpdateTask(ctx, f.actorID, task.ID, UpdateTaskRequest{Status: &status, Priority: &priority})
		require.NoError(t, err)
		assert.Equal(t, "in_progress", resp.Status)
		assert.Equal(t, "urgent", resp.Priority)
		assert.Equal(t, 2, resp.Version)
		assert.Equal(t, []string{collections.EventTypeTaskStatusChanged}, f.publisher.publishedTypes())
		assert.Empty(t, task.GetDomainEvents())
	})

	t.Run("amount keeps the task currency", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		amount := decimal.RequireFromString("1150.50")
		resp, err := f.svc.UpdateTask(ctx, f.actorID, task.ID, UpdateTaskRequest{Amount: &amount})
		require.NoError(t, err)
		assert.Equal(t, "1150.50", resp.Amount)
		assert.Equal(t, "USD", resp.Currency)
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		status := "completed"
		_, err := f.svc.UpdateTask(ctx, f.actorID, task.ID, UpdateTaskRequest{Status: &status})
		assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("missing task", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.repo.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("collections task", id.String()))

		title := "New title"
		_, err := f.svc.UpdateTask(ctx, f.actorID, id, UpdateTaskRequest{Title: &title})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestCollectionsService_AppendCommunication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := storedTask(t)
	f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

	next := testNow.AddDate(0, 0, 3)
	resp, err := f.svc.AppendCommunication(ctx, f.actorID, task.ID, AppendCommunicationRequest{
		Method:         "phone",
		Direction:      "outbound",
		Date:           testNow.Add(-time.Hour),
		Summary:        "Spoke to accounts payable",
		Outcome:        "payment_promised",
		NextAction:     "Confirm transfer",
		NextActionDate: &next,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Sequence)
	assert.Equal(t, f.actorID, resp.RecordedBy)
	require.NotNil(t, task.NextContactDate)
	assert.True(t, next.Equal(*task.NextContactDate))
	assert.Equal(t, []string{collections.EventTypeCommunicationAdded}, f.publisher.publishedTypes())
}

func TestCollectionsService_RecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("first payment starts the task", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		resp, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("400")})
		require.NoError(t, err)
		assert.Equal(t, "in_progress", resp.Status)
		assert.Equal(t, "400.00", resp.Payment.Amount)
		assert.Equal(t, "800.00", resp.Plan.RemainingBalance)
		assert.Equal(t, 1, resp.Plan.PaymentsMade)
		assert.Equal(t, []string{
			collections.EventTypeTaskStatusChanged,
			collections.EventTypePaymentRecorded,
		}, f.publisher.publishedTypes())
	})

	t.Run("settling payment completes the task", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("1200.00", 1))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		resp, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("1200")})
		require.NoError(t, err)
		assert.Equal(t, "completed", resp.Status)
		assert.True(t, resp.Plan.Complete)
		assert.Contains(t, f.publisher.publishedTypes(), collections.EventTypePaymentPlanCompleted)
	})

	t.Run("no plan", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		_, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("100")})
		assert.True(t, errors.Is(err, shared.ErrNoPaymentPlan))
	})

	t.Run("overpayment", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		_, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("1200.01")})
		assert.True(t, errors.Is(err, shared.ErrPaymentExceedsBalance))
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		_, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{
			Amount:   decimal.RequireFromString("400"),
			Currency: "EUR",
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("lost optimistic lock publishes nothing", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		lockErr := shared.NewDomainError(shared.KindConcurrentModification, "OPTIMISTIC_LOCK_ERROR", "modified")
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(lockErr)

		_, err := f.svc.RecordPayment(ctx, f.actorID, task.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("400")})
		assert.True(t, errors.Is(err, shared.ErrConcurrentModification))
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestCollectionsService_CreatePaymentPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults the total to the task amount", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		resp, err := f.svc.CreatePaymentPlan(ctx, f.actorID, task.ID, PaymentPlanInput{
			InstallmentAmount:    decimal.RequireFromString("300.00"),
			NumberOfInstallments: 4,
			Frequency:            "bi-weekly",
			FirstPaymentDate:     testNow.AddDate(0, 0, 7),
		})
		require.NoError(t, err)
		assert.Equal(t, "1200.00", resp.TotalAmount)
		assert.Equal(t, "bi-weekly", resp.Frequency)
		assert.Equal(t, []string{collections.EventTypePaymentPlanCreated}, f.publisher.publishedTypes())
	})

	t.Run("existing plan", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		_, err := f.svc.CreatePaymentPlan(ctx, f.actorID, task.ID, PaymentPlanInput{
			InstallmentAmount:    decimal.RequireFromString("600.00"),
			NumberOfInstallments: 2,
			Frequency:            "monthly",
			FirstPaymentDate:     testNow.AddDate(0, 0, 7),
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestCollectionsService_Escalation(t *testing.T) {
	ctx := context.Background()

	t.Run("escalate raises one level", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		resp, err := f.svc.Escalate(ctx, f.actorID, task.ID)
		require.NoError(t, err)
		assert.True(t, resp.Changed)
		assert.Equal(t, 2, resp.EscalationLevel)
		assert.Equal(t, []string{collections.EventTypeTaskEscalated}, f.publisher.publishedTypes())
	})

	t.Run("deescalate at the floor is a no-op", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		resp, err := f.svc.Deescalate(ctx, f.actorID, task.ID)
		require.NoError(t, err)
		assert.False(t, resp.Changed)
		assert.Equal(t, collections.MinEscalationLevel, resp.EscalationLevel)
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestCollectionsService_Risk(t *testing.T) {
	ctx := context.Background()

	t.Run("recommend does not save", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, dueIn(-20))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		resp, err := f.svc.RecommendRisk(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "high", resp.Recommended)
		assert.Equal(t, "medium", resp.CurrentLevel)
		assert.Equal(t, 20, resp.DaysOverdue)
		assert.False(t, resp.Applied)
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("reclassify applies the recommendation", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, dueIn(-20))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)

		resp, err := f.svc.ReclassifyRisk(ctx, f.actorID, task.ID)
		require.NoError(t, err)
		assert.True(t, resp.Applied)
		assert.Equal(t, "medium", resp.CurrentLevel)
		assert.Equal(t, collections.RiskLevelHigh, task.RiskLevel)
		last := task.AuditTrail[len(task.AuditTrail)-1]
		assert.Equal(t, collections.AuditRiskReclassified, last.Action)
	})

	t.Run("reclassify at the recommended level changes nothing", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, dueIn(-3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		resp, err := f.svc.ReclassifyRisk(ctx, f.actorID, task.ID)
		require.NoError(t, err)
		assert.False(t, resp.Applied)
		f.repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestCollectionsService_AttachLegalDocument(t *testing.T) {
	ctx := context.Background()
	req := AttachDocumentRequest{FileName: "demand.pdf", ContentType: "application/pdf", DocumentType: "demand_letter", SizeBytes: 4}

	t.Run("stores and records the document", func(t *testing.T) {
		docs := new(MockDocumentStore)
		f := newFixture(t, WithDocumentStore(docs))
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(nil)
		docs.On("StoreDocument", mock.Anything, task.ID, mock.Anything, mock.Anything).
			Return(collections.DocumentRef("s3://legal/tasks/1/demand.pdf"), nil)

		resp, err := f.svc.AttachLegalDocument(ctx, f.actorID, task.ID, req, bytes.NewReader([]byte("%PDF")))
		require.NoError(t, err)
		assert.Equal(t, "s3://legal/tasks/1/demand.pdf", resp.Ref)
		assert.Equal(t, "demand.pdf", resp.FileName)
		docs.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
	})

	t.Run("failed save deletes the stored blob", func(t *testing.T) {
		docs := new(MockDocumentStore)
		f := newFixture(t, WithDocumentStore(docs))
		task := storedTask(t)
		ref := collections.DocumentRef("s3://legal/tasks/1/demand.pdf")
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		f.repo.On("SaveWithLock", mock.Anything, task).Return(errors.New("deadlock detected"))
		docs.On("StoreDocument", mock.Anything, task.ID, mock.Anything, mock.Anything).Return(ref, nil)
		docs.On("DeleteDocument", mock.Anything, ref).Return(nil)

		_, err := f.svc.AttachLegalDocument(ctx, f.actorID, task.ID, req, bytes.NewReader([]byte("%PDF")))
		assert.EqualError(t, err, "deadlock detected")
		docs.AssertExpectations(t)
	})

	t.Run("missing task stores nothing", func(t *testing.T) {
		docs := new(MockDocumentStore)
		f := newFixture(t, WithDocumentStore(docs))
		id := uuid.New()
		f.repo.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("collections task", id.String()))

		_, err := f.svc.AttachLegalDocument(ctx, f.actorID, id, req, bytes.NewReader(nil))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		docs.AssertNotCalled(t, "StoreDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no document store", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AttachLegalDocument(ctx, f.actorID, uuid.New(), req, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrDocumentStoreNotConfigured)
	})
}

func TestCollectionsService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("payment schedule without plan", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		_, err := f.svc.GetPaymentSchedule(ctx, task.ID)
		assert.True(t, errors.Is(err, shared.ErrNoPaymentPlan))
	})

	t.Run("payment schedule lists remaining installments", func(t *testing.T) {
		f := newFixture(t)
		task := storedTask(t, withPlan("400.00", 3))
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

		resp, err := f.svc.GetPaymentSchedule(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "1200.00", resp.RemainingBalance)
		assert.Len(t, resp.Installments, 3)
	})

	t.Run("overdue filter uses today", func(t *testing.T) {
		f := newFixture(t)
		today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		f.repo.On("FindAll", mock.Anything, mock.MatchedBy(func(q collections.TaskQuery) bool {
			return q.OverdueAsOf != nil && q.OverdueAsOf.Equal(today) &&
				q.NextContactBefore == nil &&
				q.OrderBy == "due_date" && q.Page == 1 && q.PageSize == 50 &&
				len(q.Statuses) == 1 && q.Statuses[0] == collections.TaskStatusPending
		})).Return([]collections.Task{*storedTask(t, dueIn(-2))}, int64(1), nil)

		items, total, err := f.svc.ListTasks(ctx, TaskListFilter{Overdue: true, PageSize: 50, Statuses: []string{"pending"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, items, 1)
	})

	t.Run("invalid filter", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.ListTasks(ctx, TaskListFilter{PageSize: 500})
		assert.True(t, errors.Is(err, shared.ErrValidation))
		f.repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})

	t.Run("resolve task tolerates directory failure", func(t *testing.T) {
		dir := new(MockDirectory)
		f := newFixture(t, WithDirectory(dir))
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		dir.On("Resolve", mock.Anything, mock.Anything).Return(nil, errors.New("directory unavailable"))

		resp, err := f.svc.ResolveTask(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, resp.Customer.Resolved)
		assert.Equal(t, task.Customer, resp.Customer.Reference)
	})

	t.Run("resolve task fills display data", func(t *testing.T) {
		dir := new(MockDirectory)
		f := newFixture(t, WithDirectory(dir))
		task := storedTask(t)
		f.repo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
		dir.On("Resolve", mock.Anything, mock.Anything).Return(map[collections.Reference]collections.Resolved{
			task.Customer: {Reference: task.Customer, DisplayName: "Acme Holdings", Email: "ap@acme.test"},
		}, nil)

		resp, err := f.svc.ResolveTask(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, resp.Customer.Resolved)
		assert.Equal(t, "Acme Holdings", resp.Customer.DisplayName)
		assert.False(t, resp.AssignedTo.Resolved)
	})
}

func TestCollectionsService_SweepRisk(t *testing.T) {
	ctx := context.Background()

	t.Run("reclassifies and counts conflicts", func(t *testing.T) {
		f := newFixture(t)
		stale := storedTask(t, dueIn(-20))
		current := storedTask(t, dueIn(-5))
		contended := storedTask(t, dueIn(-60))

		f.repo.On("FindAll", mock.Anything, mock.MatchedBy(func(q collections.TaskQuery) bool {
			return q.Page == 1 && q.OverdueAsOf != nil && len(q.Statuses) == 2
		})).Return([]collections.Task{*stale, *current, *contended}, int64(3), nil)
		f.repo.On("FindByID", mock.Anything, stale.ID).Return(stale, nil)
		f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)
		f.repo.On("FindByID", mock.Anything, contended.ID).Return(contended, nil)
		f.repo.On("SaveWithLock", mock.Anything, stale).Return(nil)
		f.repo.On("SaveWithLock", mock.Anything, contended).
			Return(shared.NewDomainError(shared.KindConcurrentModification, "OPTIMISTIC_LOCK_ERROR", "modified"))

		result, err := f.svc.SweepRisk(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Examined)
		assert.Equal(t, 1, result.Reclassified)
		assert.Equal(t, 1, result.Conflicts)
		assert.Equal(t, collections.RiskLevelHigh, stale.RiskLevel)
		assert.Equal(t, f.svc.systemActor, stale.AuditTrail[len(stale.AuditTrail)-1].PerformedBy)
	})

	t.Run("requires a system actor", func(t *testing.T) {
		f := newFixture(t, WithSystemActor(uuid.Nil))
		_, err := f.svc.SweepRisk(ctx)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("list failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindAll", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("timeout"))
		_, err := f.svc.SweepRisk(ctx)
		assert.ErrorContains(t, err, "risk sweep: list page 1: timeout")
	})
}
