// Package collections implements the collections use cases: opening and
// editing tasks, logging contact, applying plan payments, escalation, risk
// reclassification and document attachment.
package collections

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/collections/backend/internal/infrastructure/clock"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CollectionsService handles collections task operations. Every mutation
// loads the task, applies one domain operation, saves it under the optimistic
// lock and publishes the task's events after the commit.
type CollectionsService struct {
	repo        collections.TaskRepository
	clock       clock.Clock
	classifier  *collections.RiskClassifier
	planPolicy  collections.PlanPolicy
	currency    valueobject.Currency
	publisher   shared.EventPublisher
	documents   collections.DocumentStore
	directory   collections.Directory
	metrics     *telemetry.CollectionsMetrics
	tracer      trace.Tracer
	logger      *zap.Logger
	systemActor uuid.UUID
}

// Option configures a CollectionsService
type Option func(*CollectionsService)

// WithClock sets the clock that stamps actors and decides overdue days
func WithClock(c clock.Clock) Option {
	return func(s *CollectionsService) { s.clock = c }
}

// WithRiskPolicy sets the classifier thresholds
func WithRiskPolicy(p collections.RiskPolicy) Option {
	return func(s *CollectionsService) { s.classifier = collections.NewRiskClassifier(p) }
}

// WithPlanPolicy sets the rules applied to new payment plans
func WithPlanPolicy(p collections.PlanPolicy) Option {
	return func(s *CollectionsService) { s.planPolicy = p }
}

// WithDefaultCurrency sets the currency used when a request names none
func WithDefaultCurrency(c valueobject.Currency) Option {
	return func(s *CollectionsService) {
		if c.IsValid() {
			s.currency = c
		}
	}
}

// WithEventPublisher sets the publisher events are sent to after each commit
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *CollectionsService) { s.publisher = p }
}

// WithDocumentStore sets the store legal document blobs are written to
func WithDocumentStore(d collections.DocumentStore) Option {
	return func(s *CollectionsService) { s.documents = d }
}

// WithDirectory sets the directory used to resolve party references
func WithDirectory(d collections.Directory) Option {
	return func(s *CollectionsService) { s.directory = d }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.CollectionsMetrics) Option {
	return func(s *CollectionsService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer spans are started on
func WithTracer(t trace.Tracer) Option {
	return func(s *CollectionsService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *zap.Logger) Option {
	return func(s *CollectionsService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSystemActor sets the user recorded for changes made by scheduled jobs
func WithSystemActor(id uuid.UUID) Option {
	return func(s *CollectionsService) { s.systemActor = id }
}

// NewCollectionsService creates a new CollectionsService
func NewCollectionsService(repo collections.TaskRepository, opts ...Option) *CollectionsService {
	s := &CollectionsService{
		repo:       repo,
		clock:      clock.SystemClock{},
		classifier: collections.NewRiskClassifier(collections.DefaultRiskPolicy()),
		planPolicy: collections.DefaultPlanPolicy(),
		currency:   valueobject.DefaultCurrency,
		tracer:     otel.GetTracerProvider().Tracer(telemetry.TracerName),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		// registering on a no-op meter cannot fail
		s.metrics, _ = telemetry.NewCollectionsMetrics(noop.NewMeterProvider().Meter(telemetry.MeterName))
	}
	return s
}

func (s *CollectionsService) actor(actorID uuid.UUID) (collections.Actor, error) {
	if actorID == uuid.Nil {
		return collections.Actor{}, shared.NewValidationError("ACTOR_REQUIRED", "acting user is required")
	}
	return collections.NewActor(actorID, s.clock.Now()), nil
}

func (s *CollectionsService) startSpan(ctx context.Context, op string, taskID uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{}
	if taskID != uuid.Nil {
		attrs = append(attrs, attribute.String(telemetry.SpanAttrTaskID, taskID.String()))
	}
	return telemetry.StartSpanWith(ctx, s.tracer, "collections."+op, attrs...)
}

// mutate runs one domain operation against a stored task. An operation that
// leaves the version untouched changed nothing and is not saved.
func (s *CollectionsService) mutate(
	ctx context.Context,
	op string,
	actorID, taskID uuid.UUID,
	fn func(ctx context.Context, task *collections.Task, actor collections.Actor) error,
) (*collections.Task, error) {
	started := time.Now()
	ctx, span := s.startSpan(ctx, op, taskID)
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, op, started)
	ctx = logger.WithTaskID(ctx, taskID.String())
	ctx = logger.WithActorID(ctx, actorID.String())

	actor, err := s.actor(actorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	version := task.Version
	if err := fn(ctx, task, actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if task.Version == version {
		return task, nil
	}

	if err := s.repo.SaveWithLock(ctx, task); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			s.metrics.LockConflict(ctx, op)
			logger.With(ctx, s.logger).Info("Task save rejected by optimistic lock",
				zap.String("operation", op),
				zap.Int("version", task.Version-1),
			)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.SpanAttrStatus, string(task.Status)))
	s.publish(ctx, task)
	return task, nil
}

// publish sends the task's pending events. Publishing happens after the
// commit, so failures are logged and never returned.
func (s *CollectionsService) publish(ctx context.Context, task *collections.Task) {
	events := task.GetDomainEvents()
	task.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.With(ctx, s.logger).Warn("Failed to publish collections events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func (s *CollectionsService) money(amount decimal.Decimal, currency string, fallback valueobject.Currency) (valueobject.Money, error) {
	cur := fallback
	if c := strings.TrimSpace(currency); c != "" {
		cur = valueobject.Currency(c)
	}
	return valueobject.NewMoney(amount, cur)
}

// CreateTask opens a new collections task
func (s *CollectionsService) CreateTask(ctx context.Context, actorID uuid.UUID, req CreateTaskRequest) (*TaskResponse, error) {
	started := time.Now()
	ctx, span := s.startSpan(ctx, "create_task", uuid.Nil)
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "create_task", started)

	if err := validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	amount, err := s.money(req.Amount, req.Currency, s.currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	in := collections.NewTaskInput{
		Customer:        collections.CustomerRef(req.CustomerID),
		Title:           req.Title,
		Description:     req.Description,
		PaymentTerms:    req.PaymentTerms,
		CollectionsType: collections.CollectionsType(req.CollectionsType),
		Amount:          amount,
		DueDate:         req.DueDate,
		AssignedTo:      collections.StaffRef(req.AssignedTo),
		Priority:        collections.Priority(req.Priority),
		RiskLevel:       collections.RiskLevel(req.RiskLevel),
		EscalationLevel: req.EscalationLevel,
	}
	if req.AssignedBy != nil {
		in.AssignedBy = collections.StaffRef(*req.AssignedBy)
	}
	if req.PaymentPlan != nil {
		plan, err := s.planInput(*req.PaymentPlan, amount.Currency())
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		in.PaymentPlan = plan
	}

	task, err := collections.NewTask(in, s.planPolicy, actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String(telemetry.SpanAttrTaskID, task.ID.String()),
		attribute.String(telemetry.SpanAttrCollectionsType, string(task.CollectionsType)),
		attribute.String(telemetry.SpanAttrAmount, task.Amount.String()),
	)

	if err := s.repo.Create(ctx, task); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ctx = logger.WithTaskID(ctx, task.ID.String())
	logger.With(ctx, s.logger).Info("Collections task created",
		zap.String("collections_type", string(task.CollectionsType)),
		zap.String("amount", task.Amount.String()),
		zap.Bool("payment_plan", task.PaymentPlan != nil),
	)
	s.publish(ctx, task)

	resp := ToTaskResponse(task)
	return &resp, nil
}

func (s *CollectionsService) planInput(in PaymentPlanInput, currency valueobject.Currency) (*collections.PlanInput, error) {
	installment, err := valueobject.NewMoney(in.InstallmentAmount, currency)
	if err != nil {
		return nil, err
	}
	plan := &collections.PlanInput{
		InstallmentAmount:    installment,
		NumberOfInstallments: in.NumberOfInstallments,
		Frequency:            collections.InstallmentFrequency(in.Frequency),
		FirstPaymentDate:     in.FirstPaymentDate,
	}
	if in.TotalAmount != nil {
		total, err := valueobject.NewMoney(*in.TotalAmount, currency)
		if err != nil {
			return nil, err
		}
		plan.TotalAmount = &total
	}
	return plan, nil
}

// UpdateTask applies a partial update. An update that changes nothing is
// not saved and writes no audit entries.
func (s *CollectionsService) UpdateTask(ctx context.Context, actorID, taskID uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	task, err := s.mutate(ctx, "update_task", actorID, taskID, func(ctx context.Context, task *collections.Task, actor collections.Actor) error {
		patch, err := s.patch(task, req)
		if err != nil {
			return err
		}
		changed, err := task.Update(patch, actor)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			logger.With(ctx, s.logger).Info("Collections task updated", zap.Strings("fields", changed))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

func (s *CollectionsService) patch(task *collections.Task, req UpdateTaskRequest) (collections.TaskPatch, error) {
	patch := collections.TaskPatch{
		Title:           req.Title,
		Description:     req.Description,
		DueDate:         req.DueDate,
		PaymentTerms:    req.PaymentTerms,
		EscalationLevel: req.EscalationLevel,
	}
	if req.Amount != nil {
		amount, err := valueobject.NewMoney(*req.Amount, task.Amount.Currency())
		if err != nil {
			return collections.TaskPatch{}, err
		}
		patch.Amount = &amount
	}
	if req.AssignedTo != nil {
		ref := collections.StaffRef(*req.AssignedTo)
		patch.AssignedTo = &ref
	}
	if req.Priority != nil {
		p := collections.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.RiskLevel != nil {
		r := collections.RiskLevel(*req.RiskLevel)
		patch.RiskLevel = &r
	}
	if req.CollectionsType != nil {
		c := collections.CollectionsType(*req.CollectionsType)
		patch.CollectionsType = &c
	}
	if req.Status != nil {
		st := collections.TaskStatus(*req.Status)
		patch.Status = &st
	}
	return patch, nil
}

// AppendCommunication logs a contact attempt on the task
func (s *CollectionsService) AppendCommunication(ctx context.Context, actorID, taskID uuid.UUID, req AppendCommunicationRequest) (*CommunicationResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var record collections.CommunicationRecord
	_, err := s.mutate(ctx, "append_communication", actorID, taskID, func(_ context.Context, task *collections.Task, actor collections.Actor) error {
		var err error
		record, err = task.AppendCommunication(collections.CommunicationInput{
			Method:         collections.CommunicationMethod(req.Method),
			Direction:      collections.CommunicationDirection(req.Direction),
			Date:           req.Date,
			Summary:        req.Summary,
			Outcome:        collections.CommunicationOutcome(req.Outcome),
			NextAction:     req.NextAction,
			NextActionDate: req.NextActionDate,
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToCommunicationResponses([]collections.CommunicationRecord{record})[0]
	return &resp, nil
}

// RecordPayment applies a payment to the task's plan
func (s *CollectionsService) RecordPayment(ctx context.Context, actorID, taskID uuid.UUID, req RecordPaymentRequest) (*PaymentResultResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var payment collections.InstallmentPayment
	task, err := s.mutate(ctx, "record_payment", actorID, taskID, func(ctx context.Context, task *collections.Task, actor collections.Actor) error {
		currency := task.Amount.Currency()
		if task.PaymentPlan != nil {
			currency = task.PaymentPlan.TotalAmount.Currency()
		}
		amount, err := s.money(req.Amount, req.Currency, currency)
		if err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.SpanAttrAmount, amount.String()))

		payment, err = task.RecordPayment(amount, actor)
		if err != nil {
			return err
		}
		logger.With(ctx, s.logger).Info("Payment recorded",
			zap.String("amount", amount.String()),
			zap.String("remaining", task.PaymentPlan.RemainingBalance().String()),
			zap.Bool("plan_completed", task.PaymentPlan.IsComplete()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResultResponse{
		Payment: ToInstallmentPaymentResponse(payment),
		Plan:    ToPaymentPlanResponse(task.PaymentPlan),
		Status:  string(task.Status),
	}, nil
}

// CreatePaymentPlan attaches an installment plan to a task that has none
func (s *CollectionsService) CreatePaymentPlan(ctx context.Context, actorID, taskID uuid.UUID, req PaymentPlanInput) (*PaymentPlanResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	task, err := s.mutate(ctx, "create_payment_plan", actorID, taskID, func(_ context.Context, task *collections.Task, actor collections.Actor) error {
		in, err := s.planInput(req, task.Amount.Currency())
		if err != nil {
			return err
		}
		terms := collections.PlanTerms{
			TotalAmount:          task.Amount,
			InstallmentAmount:    in.InstallmentAmount,
			NumberOfInstallments: in.NumberOfInstallments,
			Frequency:            in.Frequency,
			FirstPaymentDate:     in.FirstPaymentDate,
		}
		if in.TotalAmount != nil {
			terms.TotalAmount = *in.TotalAmount
		}
		_, err = task.CreatePaymentPlan(terms, s.planPolicy, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToPaymentPlanResponse(task.PaymentPlan)
	return &resp, nil
}

// Escalate raises the task's escalation level by one
func (s *CollectionsService) Escalate(ctx context.Context, actorID, taskID uuid.UUID) (*EscalationResponse, error) {
	return s.shiftEscalation(ctx, "escalate", actorID, taskID, (*collections.Task).Escalate)
}

// Deescalate lowers the task's escalation level by one
func (s *CollectionsService) Deescalate(ctx context.Context, actorID, taskID uuid.UUID) (*EscalationResponse, error) {
	return s.shiftEscalation(ctx, "deescalate", actorID, taskID, (*collections.Task).Deescalate)
}

func (s *CollectionsService) shiftEscalation(
	ctx context.Context,
	op string,
	actorID, taskID uuid.UUID,
	shift func(*collections.Task, collections.Actor) (bool, error),
) (*EscalationResponse, error) {
	var changed bool
	task, err := s.mutate(ctx, op, actorID, taskID, func(_ context.Context, task *collections.Task, actor collections.Actor) error {
		var err error
		changed, err = shift(task, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &EscalationResponse{TaskID: task.ID, EscalationLevel: task.EscalationLevel, Changed: changed}, nil
}

// RecommendRisk returns the classifier's advisory level for the task. It
// changes nothing.
func (s *CollectionsService) RecommendRisk(ctx context.Context, taskID uuid.UUID) (*RiskRecommendationResponse, error) {
	ctx, span := s.startSpan(ctx, "recommend_risk", taskID)
	defer span.End()

	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rec := s.classifier.RecommendFor(task, s.clock.Now())
	resp := toRiskResponse(task, rec, false)
	return &resp, nil
}

// ReclassifyRisk applies the classifier's recommendation as an audited
// change. Applied is false when the task already has the recommended level.
func (s *CollectionsService) ReclassifyRisk(ctx context.Context, actorID, taskID uuid.UUID) (*RiskRecommendationResponse, error) {
	var (
		rec     collections.RiskRecommendation
		current collections.RiskLevel
		applied bool
	)
	task, err := s.mutate(ctx, "reclassify_risk", actorID, taskID, func(_ context.Context, task *collections.Task, actor collections.Actor) error {
		current = task.RiskLevel
		rec = s.classifier.RecommendFor(task, actor.At)
		var err error
		applied, err = task.ApplyRiskRecommendation(rec, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.metrics.RiskReclassified(ctx, string(rec.Level))
	}
	resp := toRiskResponse(task, rec, applied)
	resp.CurrentLevel = string(current)
	return &resp, nil
}

func toRiskResponse(task *collections.Task, rec collections.RiskRecommendation, applied bool) RiskRecommendationResponse {
	return RiskRecommendationResponse{
		TaskID:       task.ID,
		CurrentLevel: string(task.RiskLevel),
		Recommended:  string(rec.Level),
		BaseLevel:    string(rec.BaseLevel),
		DaysOverdue:  rec.DaysOverdue,
		Upgraded:     rec.Upgraded,
		Reason:       rec.Reason,
		Applied:      applied,
	}
}
