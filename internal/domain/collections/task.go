package collections

import (
	"fmt"
	"strings"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
)

// AggregateTypeTask is the aggregate type name used in events
const AggregateTypeTask = "CollectionsTask"

// Task is the collections task aggregate root. Its communication log, payment
// plan, legal documents and audit trail are owned by the task and change only
// through its methods.
type Task struct {
	shared.BaseAggregateRoot
	Title                string
	Description          string
	PaymentTerms         string
	CollectionsType      CollectionsType
	Amount               valueobject.Money
	DueDate              time.Time
	AssignedTo           Reference
	AssignedBy           Reference
	Customer             Reference
	Priority             Priority
	Status               TaskStatus
	RiskLevel            RiskLevel
	EscalationLevel      int
	PaymentPlan          *PaymentPlan
	CommunicationHistory []CommunicationRecord
	LegalDocuments       []LegalDocument
	AuditTrail           []AuditEntry
	LastContactDate      *time.Time
	NextContactDate      *time.Time
	CompletedAt          *time.Time
	CancelledAt          *time.Time
}

// PlanInput describes a plan supplied while creating a task. A nil
// TotalAmount defaults to the task amount.
type PlanInput struct {
	TotalAmount          *valueobject.Money
	InstallmentAmount    valueobject.Money
	NumberOfInstallments int
	Frequency            InstallmentFrequency
	FirstPaymentDate     time.Time
}

// NewTaskInput holds the data needed to open a task
type NewTaskInput struct {
	Customer        Reference
	Title           string
	Description     string
	PaymentTerms    string
	CollectionsType CollectionsType
	Amount          valueobject.Money
	DueDate         time.Time
	AssignedTo      Reference
	AssignedBy      Reference
	Priority        Priority
	RiskLevel       RiskLevel
	EscalationLevel int
	PaymentPlan     *PlanInput
}

// NewTask validates input and opens a pending task
func NewTask(in NewTaskInput, policy PlanPolicy, actor Actor) (*Task, error) {
	if err := in.Customer.Validate("customer", PartyKindCustomer); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, shared.NewValidationError("TITLE_REQUIRED", "title is required")
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "amount must be positive")
	}
	if in.DueDate.IsZero() {
		return nil, shared.NewValidationError("DUE_DATE_REQUIRED", "due date is required")
	}
	if err := in.AssignedTo.Validate("assigned_to", PartyKindStaff); err != nil {
		return nil, err
	}
	if in.CollectionsType == "" {
		return nil, shared.NewValidationError("COLLECTIONS_TYPE_REQUIRED", "collections type is required")
	}
	if !in.CollectionsType.IsValid() {
		return nil, shared.NewValidationErrorf("INVALID_COLLECTIONS_TYPE", "invalid collections type %q", in.CollectionsType)
	}

	assignedBy := in.AssignedBy
	if assignedBy.IsZero() {
		assignedBy = StaffRef(actor.UserID)
	}
	if err := assignedBy.Validate("assigned_by", PartyKindStaff); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewValidationErrorf("INVALID_PRIORITY", "invalid priority %q", priority)
	}
	risk := in.RiskLevel
	if risk == "" {
		risk = RiskLevelMedium
	}
	if !risk.IsValid() {
		return nil, shared.NewValidationErrorf("INVALID_RISK_LEVEL", "invalid risk level %q", risk)
	}
	escalation := in.EscalationLevel
	if escalation == 0 {
		escalation = MinEscalationLevel
	}
	if err := validateEscalationLevel(escalation); err != nil {
		return nil, err
	}

	var plan *PaymentPlan
	if in.PaymentPlan != nil {
		total := in.Amount
		if in.PaymentPlan.TotalAmount != nil {
			total = *in.PaymentPlan.TotalAmount
		}
		var err error
		plan, err = NewPaymentPlan(PlanTerms{
			TotalAmount:          total,
			InstallmentAmount:    in.PaymentPlan.InstallmentAmount,
			NumberOfInstallments: in.PaymentPlan.NumberOfInstallments,
			Frequency:            in.PaymentPlan.Frequency,
			FirstPaymentDate:     in.PaymentPlan.FirstPaymentDate,
		}, policy)
		if err != nil {
			return nil, err
		}
	}

	task := &Task{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(actor.At),
		Title:                title,
		Description:          strings.TrimSpace(in.Description),
		PaymentTerms:         strings.TrimSpace(in.PaymentTerms),
		CollectionsType:      in.CollectionsType,
		Amount:               in.Amount,
		DueDate:              in.DueDate.UTC(),
		AssignedTo:           in.AssignedTo,
		AssignedBy:           assignedBy,
		Customer:             in.Customer,
		Priority:             priority,
		Status:               TaskStatusPending,
		RiskLevel:            risk,
		EscalationLevel:      escalation,
		PaymentPlan:          plan,
		CommunicationHistory: make([]CommunicationRecord, 0),
		LegalDocuments:       make([]LegalDocument, 0),
		AuditTrail:           make([]AuditEntry, 0),
	}

	task.RecordAudit(AuditTaskCreated, fmt.Sprintf("Task created for %s due %s", task.Amount, task.DueDate.Format(time.DateOnly)),
		actor, nil, task.summary())
	if plan != nil {
		task.RecordAudit(AuditPaymentPlanCreated, planDescription(plan), actor, nil, plan.terms())
	}
	task.AddDomainEvent(NewTaskCreatedEvent(task, actor.At))
	return task, nil
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title           *string
	Description     *string
	Amount          *valueobject.Money
	DueDate         *time.Time
	AssignedTo      *Reference
	Priority        *Priority
	PaymentTerms    *string
	RiskLevel       *RiskLevel
	EscalationLevel *int
	CollectionsType *CollectionsType
	Status          *TaskStatus
}

type fieldChange struct {
	field    string
	previous any
	next     any
	apply    func()
}

// Update applies a partial update. Every field and the status transition are
// validated before anything changes; each changed field gets its own audit
// entry. It returns the names of the changed fields.
func (t *Task) Update(patch TaskPatch, actor Actor) ([]string, error) {
	changes, statusTo, err := t.planUpdate(patch)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 && statusTo == nil {
		return nil, nil
	}

	changed := make([]string, 0, len(changes)+1)
	for _, c := range changes {
		c.apply()
		t.RecordAudit(FieldChanged(c.field), fmt.Sprintf("%s changed", strings.ReplaceAll(c.field, "_", " ")),
			actor, c.previous, c.next)
		changed = append(changed, c.field)
	}
	if statusTo != nil {
		t.changeStatus(*statusTo, "Status updated", actor)
		changed = append(changed, "status")
	}
	t.touch(actor)
	return changed, nil
}

func (t *Task) planUpdate(p TaskPatch) ([]fieldChange, *TaskStatus, error) {
	var statusTo *TaskStatus
	// A closed task rejects every status request, including its own status.
	if p.Status != nil && (*p.Status != t.Status || t.Status.IsTerminal()) {
		next := *p.Status
		if !next.IsValid() {
			return nil, nil, shared.NewValidationErrorf("INVALID_STATUS", "invalid status %q", next)
		}
		if next == t.Status || !t.Status.CanTransitionTo(next) {
			return nil, nil, shared.NewInvalidStateTransitionError("INVALID_TRANSITION",
				fmt.Sprintf("cannot transition task from %s to %s", t.Status, next))
		}
		statusTo = &next
	}

	var changes []fieldChange
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, nil, shared.NewValidationError("TITLE_REQUIRED", "title is required")
		}
		if title != t.Title {
			changes = append(changes, fieldChange{"title", t.Title, title, func() { t.Title = title }})
		}
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc != t.Description {
			changes = append(changes, fieldChange{"description", t.Description, desc, func() { t.Description = desc }})
		}
	}
	if p.Amount != nil && !p.Amount.Equals(t.Amount) {
		amount := *p.Amount
		if err := t.checkAmountEdit(amount); err != nil {
			return nil, nil, err
		}
		changes = append(changes, fieldChange{"amount", t.Amount, amount, func() { t.Amount = amount }})
	}
	if p.DueDate != nil {
		due := p.DueDate.UTC()
		if due.IsZero() {
			return nil, nil, shared.NewValidationError("DUE_DATE_REQUIRED", "due date is required")
		}
		if !due.Equal(t.DueDate) {
			changes = append(changes, fieldChange{"due_date", t.DueDate, due, func() { t.DueDate = due }})
		}
	}
	if p.AssignedTo != nil && *p.AssignedTo != t.AssignedTo {
		assignee := *p.AssignedTo
		if err := assignee.Validate("assigned_to", PartyKindStaff); err != nil {
			return nil, nil, err
		}
		changes = append(changes, fieldChange{"assigned_to", t.AssignedTo, assignee, func() { t.AssignedTo = assignee }})
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		priority := *p.Priority
		if !priority.IsValid() {
			return nil, nil, shared.NewValidationErrorf("INVALID_PRIORITY", "invalid priority %q", priority)
		}
		changes = append(changes, fieldChange{"priority", t.Priority, priority, func() { t.Priority = priority }})
	}
	if p.PaymentTerms != nil {
		terms := strings.TrimSpace(*p.PaymentTerms)
		if terms != t.PaymentTerms {
			changes = append(changes, fieldChange{"payment_terms", t.PaymentTerms, terms, func() { t.PaymentTerms = terms }})
		}
	}
	if p.RiskLevel != nil && *p.RiskLevel != t.RiskLevel {
		risk := *p.RiskLevel
		if !risk.IsValid() {
			return nil, nil, shared.NewValidationErrorf("INVALID_RISK_LEVEL", "invalid risk level %q", risk)
		}
		changes = append(changes, fieldChange{"risk_level", t.RiskLevel, risk, func() { t.RiskLevel = risk }})
	}
	if p.EscalationLevel != nil && *p.EscalationLevel != t.EscalationLevel {
		level := *p.EscalationLevel
		if err := validateEscalationLevel(level); err != nil {
			return nil, nil, err
		}
		changes = append(changes, fieldChange{"escalation_level", t.EscalationLevel, level, func() { t.EscalationLevel = level }})
	}
	if p.CollectionsType != nil && *p.CollectionsType != t.CollectionsType {
		ct := *p.CollectionsType
		if !ct.IsValid() {
			return nil, nil, shared.NewValidationErrorf("INVALID_COLLECTIONS_TYPE", "invalid collections type %q", ct)
		}
		changes = append(changes, fieldChange{"collections_type", t.CollectionsType, ct, func() { t.CollectionsType = ct }})
	}

	if statusTo == nil && len(changes) > 0 && t.Status.IsTerminal() {
		return nil, nil, t.closedError()
	}
	return changes, statusTo, nil
}

// checkAmountEdit allows correcting the amount only before any work on the
// debt has been booked.
func (t *Task) checkAmountEdit(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "amount must be positive")
	}
	if amount.Currency() != t.Amount.Currency() {
		return shared.NewValidationError("CURRENCY_MISMATCH", "amount currency cannot change")
	}
	if t.Status != TaskStatusPending {
		return shared.NewValidationError("AMOUNT_LOCKED", "amount can only be corrected while the task is pending")
	}
	if t.PaymentPlan != nil && t.PaymentPlan.PaymentsMade > 0 {
		return shared.NewValidationError("AMOUNT_LOCKED", "amount cannot change once payments have been recorded")
	}
	return nil
}

// CreatePaymentPlan attaches a plan to a task that has none. Plans are not
// renegotiated once created.
func (t *Task) CreatePaymentPlan(terms PlanTerms, policy PlanPolicy, actor Actor) (*PaymentPlan, error) {
	if t.Status.IsTerminal() {
		return nil, t.closedError()
	}
	if t.PaymentPlan != nil {
		return nil, shared.NewValidationError("PAYMENT_PLAN_EXISTS", "task already has a payment plan")
	}
	if terms.TotalAmount.IsZero() && terms.TotalAmount.Currency() == "" {
		terms.TotalAmount = t.Amount
	}
	plan, err := NewPaymentPlan(terms, policy)
	if err != nil {
		return nil, err
	}
	t.PaymentPlan = plan
	t.RecordAudit(AuditPaymentPlanCreated, planDescription(plan), actor, nil, plan.terms())
	t.AddDomainEvent(NewPaymentPlanCreatedEvent(t, plan, actor.At))
	t.touch(actor)
	return plan, nil
}

// RecordPayment applies a payment to the task's plan. A pending task moves to
// in_progress first; a payment that settles the plan completes the task.
func (t *Task) RecordPayment(amount valueobject.Money, actor Actor) (InstallmentPayment, error) {
	plan := t.PaymentPlan
	if plan == nil {
		return InstallmentPayment{}, shared.NewDomainError(shared.KindNoPaymentPlan, "NO_PAYMENT_PLAN",
			"task has no payment plan")
	}
	if err := plan.checkPayment(amount); err != nil {
		return InstallmentPayment{}, err
	}
	if t.Status.IsTerminal() {
		return InstallmentPayment{}, t.closedError()
	}

	if t.Status == TaskStatusPending {
		t.changeStatus(TaskStatusInProgress, "Payment received", actor)
	}

	before := plan.progress()
	payment, err := plan.applyPayment(amount, actor)
	if err != nil {
		return InstallmentPayment{}, err
	}
	t.RecordAudit(AuditPaymentRecorded,
		fmt.Sprintf("Payment of %s recorded (%d of %d)", amount, plan.PaymentsMade, plan.NumberOfInstallments),
		actor, before, plan.progress())
	t.AddDomainEvent(NewPaymentRecordedEvent(t, payment, actor.At))

	if plan.IsComplete() {
		t.RecordAudit(AuditPlanCompleted, fmt.Sprintf("Payment plan completed, %s paid in full", plan.TotalPaid),
			actor, nil, plan.progress())
		t.changeStatus(TaskStatusCompleted, "Payment plan completed", actor)
		t.AddDomainEvent(NewPaymentPlanCompletedEvent(t, actor.At))
	}
	t.touch(actor)
	return payment, nil
}

// Escalate raises the escalation level by one. At the ceiling it does
// nothing and reports false.
func (t *Task) Escalate(actor Actor) (bool, error) {
	return t.shiftEscalation(1, actor)
}

// Deescalate lowers the escalation level by one. At the floor it does
// nothing and reports false.
func (t *Task) Deescalate(actor Actor) (bool, error) {
	return t.shiftEscalation(-1, actor)
}

func (t *Task) shiftEscalation(delta int, actor Actor) (bool, error) {
	if t.Status.IsTerminal() {
		return false, t.closedError()
	}
	next := t.EscalationLevel + delta
	if next < MinEscalationLevel || next > MaxEscalationLevel {
		return false, nil
	}
	previous := t.EscalationLevel
	t.EscalationLevel = next

	action := AuditEscalated
	if delta < 0 {
		action = AuditDeescalated
	}
	t.RecordAudit(action, fmt.Sprintf("Escalation level %d -> %d", previous, next), actor, previous, next)
	t.AddDomainEvent(NewTaskEscalatedEvent(t, previous, next, actor.At))
	t.touch(actor)
	return true, nil
}

// ApplyRiskRecommendation sets the risk level as an explicit audited action.
// It reports false when the level is already current.
func (t *Task) ApplyRiskRecommendation(rec RiskRecommendation, actor Actor) (bool, error) {
	if t.Status.IsTerminal() {
		return false, t.closedError()
	}
	if !rec.Level.IsValid() {
		return false, shared.NewValidationErrorf("INVALID_RISK_LEVEL", "invalid risk level %q", rec.Level)
	}
	if rec.Level == t.RiskLevel {
		return false, nil
	}
	previous := t.RiskLevel
	t.RiskLevel = rec.Level
	t.RecordAudit(AuditRiskReclassified, rec.Reason, actor, previous, rec.Level)
	t.touch(actor)
	return true, nil
}

// IsOverdue reports whether the due date has passed on the given day
func (t *Task) IsOverdue(today time.Time) bool {
	return DaysOverdue(t.DueDate, today) > 0
}

// changeStatus records a transition already checked against the table
func (t *Task) changeStatus(next TaskStatus, reason string, actor Actor) {
	previous := t.Status
	t.Status = next
	at := actor.At.UTC()
	switch next {
	case TaskStatusCompleted:
		t.CompletedAt = &at
	case TaskStatusCancelled:
		t.CancelledAt = &at
	}
	t.RecordAudit(AuditStatusChanged, fmt.Sprintf("%s: %s -> %s", reason, previous, next), actor, previous, next)
	t.AddDomainEvent(NewTaskStatusChangedEvent(t, previous, next, actor.At))
}

// touch marks the end of a successful mutation
func (t *Task) touch(actor Actor) {
	t.Touch(actor.At)
	t.IncrementVersion()
}

func (t *Task) closedError() error {
	return shared.NewInvalidStateTransitionError("TASK_CLOSED",
		fmt.Sprintf("task is %s and can no longer be changed", t.Status))
}

func validateEscalationLevel(level int) error {
	if level < MinEscalationLevel || level > MaxEscalationLevel {
		return shared.NewValidationErrorf("INVALID_ESCALATION_LEVEL",
			"escalation level must be between %d and %d", MinEscalationLevel, MaxEscalationLevel)
	}
	return nil
}

type taskSummary struct {
	Title           string            `json:"title"`
	CollectionsType CollectionsType   `json:"collections_type"`
	Amount          valueobject.Money `json:"amount"`
	DueDate         time.Time         `json:"due_date"`
	Customer        Reference         `json:"customer"`
	AssignedTo      Reference         `json:"assigned_to"`
	Priority        Priority          `json:"priority"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	EscalationLevel int               `json:"escalation_level"`
}

func (t *Task) summary() taskSummary {
	return taskSummary{
		Title:           t.Title,
		CollectionsType: t.CollectionsType,
		Amount:          t.Amount,
		DueDate:         t.DueDate,
		Customer:        t.Customer,
		AssignedTo:      t.AssignedTo,
		Priority:        t.Priority,
		RiskLevel:       t.RiskLevel,
		EscalationLevel: t.EscalationLevel,
	}
}

type planTerms struct {
	TotalAmount          valueobject.Money    `json:"total_amount"`
	InstallmentAmount    valueobject.Money    `json:"installment_amount"`
	NumberOfInstallments int                  `json:"number_of_installments"`
	Frequency            InstallmentFrequency `json:"installment_frequency"`
	FirstPaymentDate     time.Time            `json:"first_payment_date"`
	Irregular            bool                 `json:"irregular"`
}

func (p *PaymentPlan) terms() planTerms {
	return planTerms{
		TotalAmount:          p.TotalAmount,
		InstallmentAmount:    p.InstallmentAmount,
		NumberOfInstallments: p.NumberOfInstallments,
		Frequency:            p.Frequency,
		FirstPaymentDate:     p.FirstPaymentDate,
		Irregular:            p.Irregular,
	}
}

type planProgress struct {
	TotalPaid       valueobject.Money `json:"total_paid"`
	PaymentsMade    int               `json:"payments_made"`
	NextPaymentDate *time.Time        `json:"next_payment_date"`
}

func (p *PaymentPlan) progress() planProgress {
	var next *time.Time
	if p.NextPaymentDate != nil {
		n := *p.NextPaymentDate
		next = &n
	}
	return planProgress{TotalPaid: p.TotalPaid, PaymentsMade: p.PaymentsMade, NextPaymentDate: next}
}

func planDescription(p *PaymentPlan) string {
	desc := fmt.Sprintf("Payment plan of %d %s installments of %s for %s",
		p.NumberOfInstallments, p.Frequency, p.InstallmentAmount, p.TotalAmount)
	if p.Irregular {
		desc += " (irregular schedule)"
	}
	return desc
}
