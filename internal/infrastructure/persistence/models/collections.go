package models

import (
	"encoding/json"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CollectionsTaskModel is the persistence model for the collections task aggregate
type CollectionsTaskModel struct {
	AggregateModel
	Title           string     `gorm:"type:varchar(200);not null"`
	Description     string     `gorm:"type:text"`
	PaymentTerms    string     `gorm:"type:text"`
	CollectionsType string     `gorm:"type:varchar(30);not null;index"`
	AmountMinor     int64      `gorm:"not null"`
	Currency        string     `gorm:"type:varchar(3);not null"`
	DueDate         time.Time  `gorm:"not null;index"`
	AssignedToID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	AssignedByID    uuid.UUID  `gorm:"type:uuid;not null"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Priority        string     `gorm:"type:varchar(20);not null"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	RiskLevel       string     `gorm:"type:varchar(20);not null;index"`
	EscalationLevel int        `gorm:"not null;default:1"`
	LastContactDate *time.Time `gorm:""`
	NextContactDate *time.Time `gorm:"index"`
	CompletedAt     *time.Time `gorm:""`
	CancelledAt     *time.Time `gorm:""`

	PaymentPlan    *PaymentPlanModel    `gorm:"foreignKey:TaskID"`
	Communications []CommunicationModel `gorm:"foreignKey:TaskID"`
	LegalDocuments []LegalDocumentModel `gorm:"foreignKey:TaskID"`
	AuditEntries   []AuditEntryModel    `gorm:"foreignKey:TaskID"`
}

// TableName returns the table name for GORM
func (CollectionsTaskModel) TableName() string {
	return "collections_tasks"
}

// ToDomain converts the persistence model to a domain Task. Sub-collections
// are only populated when they were preloaded.
func (m *CollectionsTaskModel) ToDomain() (*collections.Task, error) {
	amount, err := valueobject.NewMoneyFromMinor(m.AmountMinor, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, err
	}

	task := &collections.Task{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		Title:                m.Title,
		Description:          m.Description,
		PaymentTerms:         m.PaymentTerms,
		CollectionsType:      collections.CollectionsType(m.CollectionsType),
		Amount:               amount,
		DueDate:              m.DueDate.UTC(),
		AssignedTo:           collections.StaffRef(m.AssignedToID),
		AssignedBy:           collections.StaffRef(m.AssignedByID),
		Customer:             collections.CustomerRef(m.CustomerID),
		Priority:             collections.Priority(m.Priority),
		Status:               collections.TaskStatus(m.Status),
		RiskLevel:            collections.RiskLevel(m.RiskLevel),
		EscalationLevel:      m.EscalationLevel,
		LastContactDate:      utcPtr(m.LastContactDate),
		NextContactDate:      utcPtr(m.NextContactDate),
		CompletedAt:          utcPtr(m.CompletedAt),
		CancelledAt:          utcPtr(m.CancelledAt),
		CommunicationHistory: make([]collections.CommunicationRecord, 0, len(m.Communications)),
		LegalDocuments:       make([]collections.LegalDocument, 0, len(m.LegalDocuments)),
		AuditTrail:           make([]collections.AuditEntry, 0, len(m.AuditEntries)),
	}

	if m.PaymentPlan != nil {
		plan, err := m.PaymentPlan.ToDomain()
		if err != nil {
			return nil, err
		}
		task.PaymentPlan = plan
	}
	for i := range m.Communications {
		task.CommunicationHistory = append(task.CommunicationHistory, m.Communications[i].ToDomain())
	}
	for i := range m.LegalDocuments {
		task.LegalDocuments = append(task.LegalDocuments, m.LegalDocuments[i].ToDomain())
	}
	for i := range m.AuditEntries {
		task.AuditTrail = append(task.AuditTrail, m.AuditEntries[i].ToDomain())
	}
	return task, nil
}

// FromDomain populates the row columns from a domain Task. Sub-collections
// are converted separately by the repository.
func (m *CollectionsTaskModel) FromDomain(t *collections.Task) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Title = t.Title
	m.Description = t.Description
	m.PaymentTerms = t.PaymentTerms
	m.CollectionsType = string(t.CollectionsType)
	m.AmountMinor = t.Amount.MinorUnits()
	m.Currency = string(t.Amount.Currency())
	m.DueDate = t.DueDate
	m.AssignedToID = t.AssignedTo.ID
	m.AssignedByID = t.AssignedBy.ID
	m.CustomerID = t.Customer.ID
	m.Priority = string(t.Priority)
	m.Status = string(t.Status)
	m.RiskLevel = string(t.RiskLevel)
	m.EscalationLevel = t.EscalationLevel
	m.LastContactDate = t.LastContactDate
	m.NextContactDate = t.NextContactDate
	m.CompletedAt = t.CompletedAt
	m.CancelledAt = t.CancelledAt
}

// CollectionsTaskModelFromDomain creates a persistence model from a domain Task
func CollectionsTaskModelFromDomain(t *collections.Task) *CollectionsTaskModel {
	m := &CollectionsTaskModel{}
	m.FromDomain(t)
	return m
}

// UpdateColumns returns the mutable columns written by an optimistic update
func (m *CollectionsTaskModel) UpdateColumns() map[string]any {
	return map[string]any{
		"title":             m.Title,
		"description":       m.Description,
		"payment_terms":     m.PaymentTerms,
		"collections_type":  m.CollectionsType,
		"amount_minor":      m.AmountMinor,
		"currency":          m.Currency,
		"due_date":          m.DueDate,
		"assigned_to_id":    m.AssignedToID,
		"assigned_by_id":    m.AssignedByID,
		"priority":          m.Priority,
		"status":            m.Status,
		"risk_level":        m.RiskLevel,
		"escalation_level":  m.EscalationLevel,
		"last_contact_date": m.LastContactDate,
		"next_contact_date": m.NextContactDate,
		"completed_at":      m.CompletedAt,
		"cancelled_at":      m.CancelledAt,
		"updated_at":        m.UpdatedAt,
		"version":           m.Version,
	}
}

// PaymentPlanModel is the persistence model for a task's installment plan
type PaymentPlanModel struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primary_key"`
	TaskID                 uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Currency               string     `gorm:"type:varchar(3);not null"`
	TotalAmountMinor       int64      `gorm:"not null"`
	InstallmentAmountMinor int64      `gorm:"not null"`
	NumberOfInstallments   int        `gorm:"not null"`
	Frequency              string     `gorm:"type:varchar(20);not null"`
	FirstPaymentDate       time.Time  `gorm:"not null"`
	NextPaymentDate        *time.Time `gorm:"index"`
	PaymentsMade           int        `gorm:"not null;default:0"`
	TotalPaidMinor         int64      `gorm:"not null;default:0"`
	Irregular              bool       `gorm:"not null;default:false"`
	ScheduleWarnings       []string   `gorm:"type:jsonb;serializer:json"`
	CreatedAt              time.Time  `gorm:"not null"`
	UpdatedAt              time.Time  `gorm:"not null"`

	Payments []InstallmentPaymentModel `gorm:"foreignKey:PlanID"`
}

// TableName returns the table name for GORM
func (PaymentPlanModel) TableName() string {
	return "collections_payment_plans"
}

// ToDomain converts the persistence model to a domain PaymentPlan
func (m *PaymentPlanModel) ToDomain() (*collections.PaymentPlan, error) {
	cur := valueobject.Currency(m.Currency)
	total, err := valueobject.NewMoneyFromMinor(m.TotalAmountMinor, cur)
	if err != nil {
		return nil, err
	}
	installment, err := valueobject.NewMoneyFromMinor(m.InstallmentAmountMinor, cur)
	if err != nil {
		return nil, err
	}
	paid, err := valueobject.NewMoneyFromMinor(m.TotalPaidMinor, cur)
	if err != nil {
		return nil, err
	}

	plan := &collections.PaymentPlan{
		ID:                   m.ID,
		TotalAmount:          total,
		InstallmentAmount:    installment,
		NumberOfInstallments: m.NumberOfInstallments,
		Frequency:            collections.InstallmentFrequency(m.Frequency),
		FirstPaymentDate:     m.FirstPaymentDate.UTC(),
		NextPaymentDate:      utcPtr(m.NextPaymentDate),
		PaymentsMade:         m.PaymentsMade,
		TotalPaid:            paid,
		Irregular:            m.Irregular,
		ScheduleWarnings:     m.ScheduleWarnings,
		Payments:             make([]collections.InstallmentPayment, 0, len(m.Payments)),
	}
	for i := range m.Payments {
		p, err := m.Payments[i].ToDomain()
		if err != nil {
			return nil, err
		}
		plan.Payments = append(plan.Payments, p)
	}
	return plan, nil
}

// PaymentPlanModelFromDomain creates a persistence model from a domain plan.
// Ledger lines are converted separately by the repository.
func PaymentPlanModelFromDomain(taskID uuid.UUID, p *collections.PaymentPlan, createdAt, updatedAt time.Time) *PaymentPlanModel {
	return &PaymentPlanModel{
		ID:                     p.ID,
		TaskID:                 taskID,
		Currency:               string(p.TotalAmount.Currency()),
		TotalAmountMinor:       p.TotalAmount.MinorUnits(),
		InstallmentAmountMinor: p.InstallmentAmount.MinorUnits(),
		NumberOfInstallments:   p.NumberOfInstallments,
		Frequency:              string(p.Frequency),
		FirstPaymentDate:       p.FirstPaymentDate,
		NextPaymentDate:        p.NextPaymentDate,
		PaymentsMade:           p.PaymentsMade,
		TotalPaidMinor:         p.TotalPaid.MinorUnits(),
		Irregular:              p.Irregular,
		ScheduleWarnings:       p.ScheduleWarnings,
		CreatedAt:              createdAt,
		UpdatedAt:              updatedAt,
	}
}

// InstallmentPaymentModel is one ledger line of a payment plan
type InstallmentPaymentModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	PlanID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collections_installment_seq"`
	TaskID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Sequence       int       `gorm:"not null;uniqueIndex:idx_collections_installment_seq"`
	Currency       string    `gorm:"type:varchar(3);not null"`
	AmountMinor    int64     `gorm:"not null"`
	TotalPaidMinor int64     `gorm:"not null"`
	RecordedBy     uuid.UUID `gorm:"type:uuid;not null"`
	RecordedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InstallmentPaymentModel) TableName() string {
	return "collections_installment_payments"
}

// ToDomain converts the persistence model to a domain InstallmentPayment
func (m *InstallmentPaymentModel) ToDomain() (collections.InstallmentPayment, error) {
	cur := valueobject.Currency(m.Currency)
	amount, err := valueobject.NewMoneyFromMinor(m.AmountMinor, cur)
	if err != nil {
		return collections.InstallmentPayment{}, err
	}
	paid, err := valueobject.NewMoneyFromMinor(m.TotalPaidMinor, cur)
	if err != nil {
		return collections.InstallmentPayment{}, err
	}
	return collections.InstallmentPayment{
		ID:         m.ID,
		Sequence:   m.Sequence,
		Amount:     amount,
		TotalPaid:  paid,
		RecordedBy: m.RecordedBy,
		RecordedAt: m.RecordedAt.UTC(),
	}, nil
}

// InstallmentPaymentModelFromDomain creates a persistence model from a ledger line
func InstallmentPaymentModelFromDomain(taskID, planID uuid.UUID, p collections.InstallmentPayment) InstallmentPaymentModel {
	return InstallmentPaymentModel{
		ID:             p.ID,
		PlanID:         planID,
		TaskID:         taskID,
		Sequence:       p.Sequence,
		Currency:       string(p.Amount.Currency()),
		AmountMinor:    p.Amount.MinorUnits(),
		TotalPaidMinor: p.TotalPaid.MinorUnits(),
		RecordedBy:     p.RecordedBy,
		RecordedAt:     p.RecordedAt,
	}
}

// CommunicationModel is one entry of a task's communication log
type CommunicationModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	TaskID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_collections_communication_seq"`
	Sequence       int        `gorm:"not null;uniqueIndex:idx_collections_communication_seq"`
	Method         string     `gorm:"type:varchar(20);not null"`
	Direction      string     `gorm:"type:varchar(20);not null"`
	Date           time.Time  `gorm:"not null"`
	Summary        string     `gorm:"type:text;not null"`
	Outcome        string     `gorm:"type:varchar(30);not null"`
	NextAction     string     `gorm:"type:text"`
	NextActionDate *time.Time `gorm:""`
	RecordedBy     uuid.UUID  `gorm:"type:uuid;not null"`
	RecordedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CommunicationModel) TableName() string {
	return "collections_communications"
}

// ToDomain converts the persistence model to a domain CommunicationRecord
func (m *CommunicationModel) ToDomain() collections.CommunicationRecord {
	return collections.CommunicationRecord{
		ID:             m.ID,
		Sequence:       m.Sequence,
		Method:         collections.CommunicationMethod(m.Method),
		Direction:      collections.CommunicationDirection(m.Direction),
		Date:           m.Date.UTC(),
		Summary:        m.Summary,
		Outcome:        collections.CommunicationOutcome(m.Outcome),
		NextAction:     m.NextAction,
		NextActionDate: utcPtr(m.NextActionDate),
		RecordedBy:     m.RecordedBy,
		RecordedAt:     m.RecordedAt.UTC(),
	}
}

// CommunicationModelFromDomain creates a persistence model from a log entry
func CommunicationModelFromDomain(taskID uuid.UUID, r collections.CommunicationRecord) CommunicationModel {
	return CommunicationModel{
		ID:             r.ID,
		TaskID:         taskID,
		Sequence:       r.Sequence,
		Method:         string(r.Method),
		Direction:      string(r.Direction),
		Date:           r.Date,
		Summary:        r.Summary,
		Outcome:        string(r.Outcome),
		NextAction:     r.NextAction,
		NextActionDate: r.NextActionDate,
		RecordedBy:     r.RecordedBy,
		RecordedAt:     r.RecordedAt,
	}
}

// LegalDocumentModel is the metadata of a document attached to a task
type LegalDocumentModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	TaskID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collections_document_seq"`
	Sequence     int       `gorm:"not null;uniqueIndex:idx_collections_document_seq"`
	Ref          string    `gorm:"type:varchar(500);not null"`
	FileName     string    `gorm:"type:varchar(255);not null"`
	ContentType  string    `gorm:"type:varchar(100)"`
	DocumentType string    `gorm:"type:varchar(50)"`
	SizeBytes    int64     `gorm:"not null;default:0"`
	UploadedBy   uuid.UUID `gorm:"type:uuid;not null"`
	UploadedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LegalDocumentModel) TableName() string {
	return "collections_legal_documents"
}

// ToDomain converts the persistence model to a domain LegalDocument
func (m *LegalDocumentModel) ToDomain() collections.LegalDocument {
	return collections.LegalDocument{
		ID:           m.ID,
		Sequence:     m.Sequence,
		Ref:          collections.DocumentRef(m.Ref),
		FileName:     m.FileName,
		ContentType:  m.ContentType,
		DocumentType: m.DocumentType,
		SizeBytes:    m.SizeBytes,
		UploadedBy:   m.UploadedBy,
		UploadedAt:   m.UploadedAt.UTC(),
	}
}

// LegalDocumentModelFromDomain creates a persistence model from document metadata
func LegalDocumentModelFromDomain(taskID uuid.UUID, d collections.LegalDocument) LegalDocumentModel {
	return LegalDocumentModel{
		ID:           d.ID,
		TaskID:       taskID,
		Sequence:     d.Sequence,
		Ref:          string(d.Ref),
		FileName:     d.FileName,
		ContentType:  d.ContentType,
		DocumentType: d.DocumentType,
		SizeBytes:    d.SizeBytes,
		UploadedBy:   d.UploadedBy,
		UploadedAt:   d.UploadedAt,
	}
}

// AuditEntryModel is one immutable line of a task's audit trail
type AuditEntryModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TaskID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collections_audit_seq"`
	Sequence      int       `gorm:"not null;uniqueIndex:idx_collections_audit_seq"`
	Action        string    `gorm:"type:varchar(50);not null;index"`
	Description   string    `gorm:"type:text;not null"`
	PerformedBy   uuid.UUID `gorm:"type:uuid;not null"`
	PerformedAt   time.Time `gorm:"not null"`
	PreviousValue *string   `gorm:"type:jsonb"`
	NewValue      *string   `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "collections_audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditEntryModel) ToDomain() collections.AuditEntry {
	return collections.AuditEntry{
		ID:            m.ID,
		Sequence:      m.Sequence,
		Action:        collections.AuditAction(m.Action),
		Description:   m.Description,
		PerformedBy:   m.PerformedBy,
		PerformedAt:   m.PerformedAt.UTC(),
		PreviousValue: rawJSON(m.PreviousValue),
		NewValue:      rawJSON(m.NewValue),
	}
}

// AuditEntryModelFromDomain creates a persistence model from an audit entry
func AuditEntryModelFromDomain(taskID uuid.UUID, e collections.AuditEntry) AuditEntryModel {
	return AuditEntryModel{
		ID:            e.ID,
		TaskID:        taskID,
		Sequence:      e.Sequence,
		Action:        string(e.Action),
		Description:   e.Description,
		PerformedBy:   e.PerformedBy,
		PerformedAt:   e.PerformedAt,
		PreviousValue: jsonText(e.PreviousValue),
		NewValue:      jsonText(e.NewValue),
	}
}

func jsonText(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func rawJSON(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	return json.RawMessage(*s)
}
