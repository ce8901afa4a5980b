package collections

import (
	"context"
	"strings"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *CollectionsService) load(ctx context.Context, op string, taskID uuid.UUID) (*collections.Task, error) {
	ctx, span := s.startSpan(ctx, op, taskID)
	defer span.End()

	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return task, nil
}

// GetTask returns a task with its plan, communication log, documents and
// audit trail
func (s *CollectionsService) GetTask(ctx context.Context, taskID uuid.UUID) (*TaskResponse, error) {
	task, err := s.load(ctx, "get_task", taskID)
	if err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// ListTasks returns a page of tasks and the total number matching the filter
func (s *CollectionsService) ListTasks(ctx context.Context, filter TaskListFilter) ([]TaskListItemResponse, int64, error) {
	ctx, span := s.startSpan(ctx, "list_tasks", uuid.Nil)
	defer span.End()

	if err := validateRequest(filter); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	tasks, total, err := s.repo.FindAll(ctx, s.taskQuery(filter))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int64("collections.result_count", total))
	return ToTaskListItemResponses(tasks), total, nil
}

func (s *CollectionsService) taskQuery(f TaskListFilter) collections.TaskQuery {
	q := collections.DefaultTaskQuery()
	q.Search = f.Search
	if f.Page > 0 {
		q.Page = f.Page
	}
	if f.PageSize > 0 {
		q.PageSize = f.PageSize
	}
	// task lists default to the most urgent due date first
	q.OrderBy = "due_date"
	q.OrderDir = ""
	if f.OrderBy != "" {
		q.OrderBy = f.OrderBy
		q.OrderDir = "desc"
	}
	if f.OrderDir != "" {
		q.OrderDir = strings.ToLower(f.OrderDir)
	}

	for _, st := range f.Statuses {
		q.Statuses = append(q.Statuses, collections.TaskStatus(st))
	}
	if f.CollectionsType != nil {
		ct := collections.CollectionsType(*f.CollectionsType)
		q.CollectionsType = &ct
	}
	if f.RiskLevel != nil {
		rl := collections.RiskLevel(*f.RiskLevel)
		q.RiskLevel = &rl
	}
	q.AssignedTo = f.AssignedTo
	q.CustomerID = f.CustomerID

	now := s.clock.Now().UTC()
	if f.Overdue {
		today := collections.StartOfDay(now)
		q.OverdueAsOf = &today
	}
	if f.FollowUpDue {
		q.NextContactBefore = &now
	}
	return q
}

// GetCommunicationHistory returns the task's contact log oldest first
func (s *CollectionsService) GetCommunicationHistory(ctx context.Context, taskID uuid.UUID) ([]CommunicationResponse, error) {
	task, err := s.load(ctx, "get_communication_history", taskID)
	if err != nil {
		return nil, err
	}
	return ToCommunicationResponses(task.CommunicationHistory), nil
}

// GetAuditTrail returns the task's audit entries oldest first
func (s *CollectionsService) GetAuditTrail(ctx context.Context, taskID uuid.UUID) ([]AuditEntryResponse, error) {
	task, err := s.load(ctx, "get_audit_trail", taskID)
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(task.AuditTrail), nil
}

// GetLegalDocuments returns the metadata of the task's attached documents
func (s *CollectionsService) GetLegalDocuments(ctx context.Context, taskID uuid.UUID) ([]LegalDocumentResponse, error) {
	task, err := s.load(ctx, "get_legal_documents", taskID)
	if err != nil {
		return nil, err
	}
	return ToLegalDocumentResponses(task.LegalDocuments), nil
}

// GetPaymentSchedule projects the remaining installments of the task's plan
func (s *CollectionsService) GetPaymentSchedule(ctx context.Context, taskID uuid.UUID) (*PaymentScheduleResponse, error) {
	task, err := s.load(ctx, "get_payment_schedule", taskID)
	if err != nil {
		return nil, err
	}
	if task.PaymentPlan == nil {
		return nil, shared.NewDomainError(shared.KindNoPaymentPlan, "NO_PAYMENT_PLAN",
			"Task has no payment plan").WithDetail("task_id", taskID.String())
	}
	resp := ToPaymentScheduleResponse(task)
	return &resp, nil
}

// ResolveTask returns the task with its customer and staff references
// resolved through the directory. A directory failure leaves the parties
// unresolved instead of failing the read.
func (s *CollectionsService) ResolveTask(ctx context.Context, taskID uuid.UUID) (*ResolvedTaskResponse, error) {
	task, err := s.load(ctx, "resolve_task", taskID)
	if err != nil {
		return nil, err
	}

	refs := []collections.Reference{task.Customer, task.AssignedTo, task.AssignedBy}
	resolved := map[collections.Reference]collections.Resolved{}
	if s.directory != nil {
		found, err := s.directory.Resolve(ctx, refs)
		if err != nil {
			logger.With(logger.WithTaskID(ctx, taskID.String()), s.logger).Warn("Directory lookup failed", zap.Error(err))
		} else {
			resolved = found
		}
	}

	return &ResolvedTaskResponse{
		TaskResponse: ToTaskResponse(task),
		Customer:     toPartyResponse(task.Customer, resolved),
		AssignedTo:   toPartyResponse(task.AssignedTo, resolved),
		AssignedBy:   toPartyResponse(task.AssignedBy, resolved),
	}, nil
}
