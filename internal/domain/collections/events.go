package collections

import (
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeTaskCreated          = "CollectionsTaskCreated"
	EventTypeCommunicationAdded   = "CollectionsCommunicationAdded"
	EventTypePaymentPlanCreated   = "CollectionsPaymentPlanCreated"
	EventTypePaymentRecorded      = "CollectionsPaymentRecorded"
	EventTypePaymentPlanCompleted = "CollectionsPaymentPlanCompleted"
	EventTypeTaskStatusChanged    = "CollectionsTaskStatusChanged"
	EventTypeTaskEscalated        = "CollectionsTaskEscalated"
)

// TaskCreatedEvent is raised when a task is opened
type TaskCreatedEvent struct {
	shared.BaseDomainEvent
	TaskID          uuid.UUID         `json:"task_id"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	AssignedTo      uuid.UUID         `json:"assigned_to"`
	CollectionsType CollectionsType   `json:"collections_type"`
	Amount          valueobject.Money `json:"amount"`
	DueDate         time.Time         `json:"due_date"`
	NextPaymentDate *time.Time        `json:"next_payment_date,omitempty"`
}

// NewTaskCreatedEvent creates a new TaskCreatedEvent
func NewTaskCreatedEvent(t *Task, at time.Time) *TaskCreatedEvent {
	e := &TaskCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskCreated, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		CustomerID:      t.Customer.ID,
		AssignedTo:      t.AssignedTo.ID,
		CollectionsType: t.CollectionsType,
		Amount:          t.Amount,
		DueDate:         t.DueDate,
	}
	if t.PaymentPlan != nil {
		e.NextPaymentDate = t.PaymentPlan.NextPaymentDate
	}
	return e
}

// EventType returns the event type name
func (e *TaskCreatedEvent) EventType() string {
	return EventTypeTaskCreated
}

// CommunicationAddedEvent is raised when a contact record is appended
type CommunicationAddedEvent struct {
	shared.BaseDomainEvent
	TaskID         uuid.UUID              `json:"task_id"`
	RecordID       uuid.UUID              `json:"record_id"`
	Method         CommunicationMethod    `json:"method"`
	Direction      CommunicationDirection `json:"direction"`
	Outcome        CommunicationOutcome   `json:"outcome"`
	NextAction     string                 `json:"next_action,omitempty"`
	NextActionDate *time.Time             `json:"next_action_date,omitempty"`
}

// NewCommunicationAddedEvent creates a new CommunicationAddedEvent
func NewCommunicationAddedEvent(t *Task, r CommunicationRecord, at time.Time) *CommunicationAddedEvent {
	return &CommunicationAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommunicationAdded, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		RecordID:        r.ID,
		Method:          r.Method,
		Direction:       r.Direction,
		Outcome:         r.Outcome,
		NextAction:      r.NextAction,
		NextActionDate:  r.NextActionDate,
	}
}

// EventType returns the event type name
func (e *CommunicationAddedEvent) EventType() string {
	return EventTypeCommunicationAdded
}

// PaymentPlanCreatedEvent is raised when a plan is attached to an existing task
type PaymentPlanCreatedEvent struct {
	shared.BaseDomainEvent
	TaskID          uuid.UUID         `json:"task_id"`
	PlanID          uuid.UUID         `json:"plan_id"`
	TotalAmount     valueobject.Money `json:"total_amount"`
	NextPaymentDate *time.Time        `json:"next_payment_date,omitempty"`
}

// NewPaymentPlanCreatedEvent creates a new PaymentPlanCreatedEvent
func NewPaymentPlanCreatedEvent(t *Task, p *PaymentPlan, at time.Time) *PaymentPlanCreatedEvent {
	return &PaymentPlanCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentPlanCreated, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		PlanID:          p.ID,
		TotalAmount:     p.TotalAmount,
		NextPaymentDate: p.NextPaymentDate,
	}
}

// EventType returns the event type name
func (e *PaymentPlanCreatedEvent) EventType() string {
	return EventTypePaymentPlanCreated
}

// PaymentRecordedEvent is raised when a payment is applied to a plan
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	TaskID           uuid.UUID         `json:"task_id"`
	PaymentID        uuid.UUID         `json:"payment_id"`
	Amount           valueobject.Money `json:"amount"`
	TotalPaid        valueobject.Money `json:"total_paid"`
	RemainingBalance valueobject.Money `json:"remaining_balance"`
	PaymentsMade     int               `json:"payments_made"`
	NextPaymentDate  *time.Time        `json:"next_payment_date,omitempty"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(t *Task, p InstallmentPayment, at time.Time) *PaymentRecordedEvent {
	plan := t.PaymentPlan
	return &PaymentRecordedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeTask, t.ID, at),
		TaskID:           t.ID,
		PaymentID:        p.ID,
		Amount:           p.Amount,
		TotalPaid:        plan.TotalPaid,
		RemainingBalance: plan.RemainingBalance(),
		PaymentsMade:     plan.PaymentsMade,
		NextPaymentDate:  plan.NextPaymentDate,
	}
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// PaymentPlanCompletedEvent is raised when the plan total has been paid
type PaymentPlanCompletedEvent struct {
	shared.BaseDomainEvent
	TaskID     uuid.UUID         `json:"task_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	TotalPaid  valueobject.Money `json:"total_paid"`
}

// NewPaymentPlanCompletedEvent creates a new PaymentPlanCompletedEvent
func NewPaymentPlanCompletedEvent(t *Task, at time.Time) *PaymentPlanCompletedEvent {
	return &PaymentPlanCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentPlanCompleted, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		CustomerID:      t.Customer.ID,
		TotalPaid:       t.PaymentPlan.TotalPaid,
	}
}

// EventType returns the event type name
func (e *PaymentPlanCompletedEvent) EventType() string {
	return EventTypePaymentPlanCompleted
}

// TaskStatusChangedEvent is raised on every status transition
type TaskStatusChangedEvent struct {
	shared.BaseDomainEvent
	TaskID uuid.UUID  `json:"task_id"`
	From   TaskStatus `json:"from"`
	To     TaskStatus `json:"to"`
}

// NewTaskStatusChangedEvent creates a new TaskStatusChangedEvent
func NewTaskStatusChangedEvent(t *Task, from, to TaskStatus, at time.Time) *TaskStatusChangedEvent {
	return &TaskStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskStatusChanged, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		From:            from,
		To:              to,
	}
}

// EventType returns the event type name
func (e *TaskStatusChangedEvent) EventType() string {
	return EventTypeTaskStatusChanged
}

// TaskEscalatedEvent is raised when the escalation level moves in either direction
type TaskEscalatedEvent struct {
	shared.BaseDomainEvent
	TaskID    uuid.UUID `json:"task_id"`
	FromLevel int       `json:"from_level"`
	ToLevel   int       `json:"to_level"`
}

// NewTaskEscalatedEvent creates a new TaskEscalatedEvent
func NewTaskEscalatedEvent(t *Task, from, to int, at time.Time) *TaskEscalatedEvent {
	return &TaskEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskEscalated, AggregateTypeTask, t.ID, at),
		TaskID:          t.ID,
		FromLevel:       from,
		ToLevel:         to,
	}
}

// EventType returns the event type name
func (e *TaskEscalatedEvent) EventType() string {
	return EventTypeTaskEscalated
}
