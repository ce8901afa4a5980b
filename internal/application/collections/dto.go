package collections

import (
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Task DTOs ====================

// CreateTaskRequest represents a request to open a collections task
type CreateTaskRequest struct {
	CustomerID      uuid.UUID         `json:"customer_id" validate:"required"`
	Title           string            `json:"title" validate:"required,max=200"`
	Description     string            `json:"description" validate:"max=4000"`
	PaymentTerms    string            `json:"payment_terms" validate:"max=1000"`
	CollectionsType string            `json:"collections_type" validate:"required,oneof=payment_reminder overdue_notice payment_plan negotiation legal_action other"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency" validate:"omitempty,len=3,uppercase"`
	DueDate         time.Time         `json:"due_date" validate:"required"`
	AssignedTo      uuid.UUID         `json:"assigned_to" validate:"required"`
	AssignedBy      *uuid.UUID        `json:"assigned_by"`
	Priority        string            `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RiskLevel       string            `json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	EscalationLevel int               `json:"escalation_level" validate:"omitempty,min=1,max=5"`
	PaymentPlan     *PaymentPlanInput `json:"payment_plan"`
}

// PaymentPlanInput describes an installment plan. A nil TotalAmount defaults
// to the task amount.
type PaymentPlanInput struct {
	TotalAmount          *decimal.Decimal `json:"total_amount"`
	InstallmentAmount    decimal.Decimal  `json:"installment_amount"`
	NumberOfInstallments int              `json:"number_of_installments" validate:"required,min=1,max=520"`
	Frequency            string           `json:"installment_frequency" validate:"required,oneof=weekly bi-weekly monthly quarterly"`
	FirstPaymentDate     time.Time        `json:"first_payment_date" validate:"required"`
}

// UpdateTaskRequest is a partial update; nil fields are left untouched
type UpdateTaskRequest struct {
	Title           *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=4000"`
	Amount          *decimal.Decimal `json:"amount"`
	DueDate         *time.Time       `json:"due_date"`
	AssignedTo      *uuid.UUID       `json:"assigned_to"`
	Priority        *string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	PaymentTerms    *string          `json:"payment_terms" validate:"omitempty,max=1000"`
	RiskLevel       *string          `json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	EscalationLevel *int             `json:"escalation_level" validate:"omitempty,min=1,max=5"`
	CollectionsType *string          `json:"collections_type" validate:"omitempty,oneof=payment_reminder overdue_notice payment_plan negotiation legal_action other"`
	Status          *string          `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
}

// AppendCommunicationRequest represents a contact attempt to log
type AppendCommunicationRequest struct {
	Method         string     `json:"method" validate:"required,oneof=phone email sms in_person letter"`
	Direction      string     `json:"direction" validate:"required,oneof=inbound outbound"`
	Date           time.Time  `json:"date" validate:"required"`
	Summary        string     `json:"summary" validate:"required,max=4000"`
	Outcome        string     `json:"outcome" validate:"required,oneof=no_answer left_message spoke_to_customer payment_promised payment_made refused other"`
	NextAction     string     `json:"next_action" validate:"max=500"`
	NextActionDate *time.Time `json:"next_action_date"`
}

// RecordPaymentRequest represents a payment against the task's plan. An empty
// currency means the plan's currency.
type RecordPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3,uppercase"`
}

// AttachDocumentRequest carries the metadata of an uploaded legal document
type AttachDocumentRequest struct {
	FileName     string `json:"file_name" validate:"required,max=255"`
	ContentType  string `json:"content_type" validate:"max=255"`
	DocumentType string `json:"document_type" validate:"max=100"`
	SizeBytes    int64  `json:"size_bytes" validate:"gte=0"`
}

// TaskListFilter represents filter options for the task list
type TaskListFilter struct {
	Search          string     `json:"search" validate:"max=200"`
	Statuses        []string   `json:"statuses" validate:"omitempty,dive,oneof=pending in_progress completed cancelled"`
	CollectionsType *string    `json:"collections_type" validate:"omitempty,oneof=payment_reminder overdue_notice payment_plan negotiation legal_action other"`
	AssignedTo      *uuid.UUID `json:"assigned_to"`
	CustomerID      *uuid.UUID `json:"customer_id"`
	RiskLevel       *string    `json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	// Overdue restricts the list to open tasks past their due date today
	Overdue bool `json:"overdue"`
	// FollowUpDue restricts the list to tasks whose next contact is due today or earlier
	FollowUpDue bool   `json:"follow_up_due"`
	Page        int    `json:"page" validate:"omitempty,min=1"`
	PageSize    int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy     string `json:"order_by" validate:"omitempty,max=50"`
	OrderDir    string `json:"order_dir" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// ==================== Responses ====================

// PaymentPlanResponse represents a payment plan in API responses
type PaymentPlanResponse struct {
	ID                    uuid.UUID                    `json:"id"`
	TotalAmount           string                       `json:"total_amount"`
	Currency              string                       `json:"currency"`
	InstallmentAmount     string                       `json:"installment_amount"`
	NumberOfInstallments  int                          `json:"number_of_installments"`
	Frequency             string                       `json:"installment_frequency"`
	FirstPaymentDate      time.Time                    `json:"first_payment_date"`
	NextPaymentDate       *time.Time                   `json:"next_payment_date,omitempty"`
	PaymentsMade          int                          `json:"payments_made"`
	TotalPaid             string                       `json:"total_paid"`
	RemainingBalance      string                       `json:"remaining_balance"`
	InstallmentsRemaining int                          `json:"installments_remaining"`
	Complete              bool                         `json:"complete"`
	Irregular             bool                         `json:"irregular"`
	ScheduleWarnings      []string                     `json:"schedule_warnings,omitempty"`
	Payments              []InstallmentPaymentResponse `json:"payments"`
}

// InstallmentPaymentResponse represents one applied payment
type InstallmentPaymentResponse struct {
	ID         uuid.UUID `json:"id"`
	Sequence   int       `json:"sequence"`
	Amount     string    `json:"amount"`
	TotalPaid  string    `json:"total_paid"`
	RecordedBy uuid.UUID `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TaskResponse represents a task with its sub-collections
type TaskResponse struct {
	ID                   uuid.UUID               `json:"id"`
	Title                string                  `json:"title"`
	Description          string                  `json:"description,omitempty"`
	PaymentTerms         string                  `json:"payment_terms,omitempty"`
	CollectionsType      string                  `json:"collections_type"`
	Amount               string                  `json:"amount"`
	Currency             string                  `json:"currency"`
	DueDate              time.Time               `json:"due_date"`
	AssignedTo           collections.Reference   `json:"assigned_to"`
	AssignedBy           collections.Reference   `json:"assigned_by"`
	Customer             collections.Reference   `json:"customer"`
	Priority             string                  `json:"priority"`
	Status               string                  `json:"status"`
	RiskLevel            string                  `json:"risk_level"`
	EscalationLevel      int                     `json:"escalation_level"`
	PaymentPlan          *PaymentPlanResponse    `json:"payment_plan,omitempty"`
	CommunicationHistory []CommunicationResponse `json:"communication_history"`
	LegalDocuments       []LegalDocumentResponse `json:"legal_documents"`
	AuditTrail           []AuditEntryResponse    `json:"audit_trail"`
	LastContactDate      *time.Time              `json:"last_contact_date,omitempty"`
	NextContactDate      *time.Time              `json:"next_contact_date,omitempty"`
	CompletedAt          *time.Time              `json:"completed_at,omitempty"`
	CancelledAt          *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
	Version              int                     `json:"version"`
}

// TaskListItemResponse represents a task in list views
type TaskListItemResponse struct {
	ID              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	CollectionsType string                `json:"collections_type"`
	Amount          string                `json:"amount"`
	DueDate         time.Time             `json:"due_date"`
	AssignedTo      collections.Reference `json:"assigned_to"`
	Customer        collections.Reference `json:"customer"`
	Priority        string                `json:"priority"`
	Status          string                `json:"status"`
	RiskLevel       string                `json:"risk_level"`
	EscalationLevel int                   `json:"escalation_level"`
	RemainingAmount *string               `json:"remaining_amount,omitempty"`
	NextPaymentDate *time.Time            `json:"next_payment_date,omitempty"`
	NextContactDate *time.Time            `json:"next_contact_date,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CommunicationResponse represents a communication record
type CommunicationResponse struct {
	ID             uuid.UUID  `json:"id"`
	Sequence       int        `json:"sequence"`
	Method         string     `json:"method"`
	Direction      string     `json:"direction"`
	Date           time.Time  `json:"date"`
	Summary        string     `json:"summary"`
	Outcome        string     `json:"outcome"`
	NextAction     string     `json:"next_action,omitempty"`
	NextActionDate *time.Time `json:"next_action_date,omitempty"`
	RecordedBy     uuid.UUID  `json:"recorded_by"`
	RecordedAt     time.Time  `json:"recorded_at"`
}

// LegalDocumentResponse represents attached document metadata
type LegalDocumentResponse struct {
	ID           uuid.UUID `json:"id"`
	Sequence     int       `json:"sequence"`
	Ref          string    `json:"ref"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// AuditEntryResponse represents one audit trail line
type AuditEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	Sequence      int       `json:"sequence"`
	Action        string    `json:"action"`
	Description   string    `json:"description"`
	PerformedBy   uuid.UUID `json:"performed_by"`
	PerformedAt   time.Time `json:"performed_at"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}

// ScheduledInstallmentResponse is one projected installment
type ScheduledInstallmentResponse struct {
	Number  int       `json:"number"`
	DueDate time.Time `json:"due_date"`
	Amount  string    `json:"amount"`
}

// PaymentScheduleResponse is the projected remainder of a plan
type PaymentScheduleResponse struct {
	TaskID           uuid.UUID                      `json:"task_id"`
	RemainingBalance string                         `json:"remaining_balance"`
	Installments     []ScheduledInstallmentResponse `json:"installments"`
}

// PaymentResultResponse is returned after a payment is applied
type PaymentResultResponse struct {
	Payment InstallmentPaymentResponse `json:"payment"`
	Plan    PaymentPlanResponse        `json:"plan"`
	Status  string                     `json:"status"`
}

// EscalationResponse reports the escalation level after an escalate or
// de-escalate call. Changed is false when the level was already at its bound.
type EscalationResponse struct {
	TaskID          uuid.UUID `json:"task_id"`
	EscalationLevel int       `json:"escalation_level"`
	Changed         bool      `json:"changed"`
}

// RiskRecommendationResponse is the classifier's advisory output
type RiskRecommendationResponse struct {
	TaskID       uuid.UUID `json:"task_id"`
	CurrentLevel string    `json:"current_level"`
	Recommended  string    `json:"recommended_level"`
	BaseLevel    string    `json:"base_level"`
	DaysOverdue  int       `json:"days_overdue"`
	Upgraded     bool      `json:"upgraded"`
	Reason       string    `json:"reason"`
	Applied      bool      `json:"applied"`
}

// PartyResponse is a reference expanded with directory data. Unresolved
// references keep an empty display name.
type PartyResponse struct {
	collections.Reference
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Resolved    bool   `json:"resolved"`
}

// ResolvedTaskResponse is a task with its party references resolved
type ResolvedTaskResponse struct {
	TaskResponse
	Customer   PartyResponse `json:"customer"`
	AssignedTo PartyResponse `json:"assigned_to"`
	AssignedBy PartyResponse `json:"assigned_by"`
}
