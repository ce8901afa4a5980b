package collections

import (
	"strings"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CommunicationMethod is the channel a contact attempt used
type CommunicationMethod string

const (
	MethodPhone    CommunicationMethod = "phone"
	MethodEmail    CommunicationMethod = "email"
	MethodSMS      CommunicationMethod = "sms"
	MethodInPerson CommunicationMethod = "in_person"
	MethodLetter   CommunicationMethod = "letter"
)

// IsValid checks if the method is a valid value
func (m CommunicationMethod) IsValid() bool {
	switch m {
	case MethodPhone, MethodEmail, MethodSMS, MethodInPerson, MethodLetter:
		return true
	}
	return false
}

// CommunicationDirection tells who initiated the contact
type CommunicationDirection string

const (
	DirectionInbound  CommunicationDirection = "inbound"
	DirectionOutbound CommunicationDirection = "outbound"
)

// IsValid checks if the direction is a valid value
func (d CommunicationDirection) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// CommunicationOutcome is the result of a contact attempt
type CommunicationOutcome string

const (
	OutcomeNoAnswer        CommunicationOutcome = "no_answer"
	OutcomeLeftMessage     CommunicationOutcome = "left_message"
	OutcomeSpokeToCustomer CommunicationOutcome = "spoke_to_customer"
	OutcomePaymentPromised CommunicationOutcome = "payment_promised"
	OutcomePaymentMade     CommunicationOutcome = "payment_made"
	OutcomeRefused         CommunicationOutcome = "refused"
	OutcomeOther           CommunicationOutcome = "other"
)

// IsValid checks if the outcome is a valid value
func (o CommunicationOutcome) IsValid() bool {
	switch o {
	case OutcomeNoAnswer, OutcomeLeftMessage, OutcomeSpokeToCustomer, OutcomePaymentPromised,
		OutcomePaymentMade, OutcomeRefused, OutcomeOther:
		return true
	}
	return false
}

// IsUnresponsive reports whether the outcome counts as the debtor not engaging
func (o CommunicationOutcome) IsUnresponsive() bool {
	return o == OutcomeNoAnswer || o == OutcomeRefused
}

// CommunicationInput is the caller-supplied content of a contact record
type CommunicationInput struct {
	Method         CommunicationMethod
	Direction      CommunicationDirection
	Date           time.Time
	Summary        string
	Outcome        CommunicationOutcome
	NextAction     string
	NextActionDate *time.Time
}

// Validate checks required fields and enumeration membership
func (in CommunicationInput) Validate() error {
	if !in.Method.IsValid() {
		return shared.NewValidationErrorf("INVALID_METHOD", "invalid communication method %q", in.Method)
	}
	if !in.Direction.IsValid() {
		return shared.NewValidationErrorf("INVALID_DIRECTION", "invalid communication direction %q", in.Direction)
	}
	if !in.Outcome.IsValid() {
		return shared.NewValidationErrorf("INVALID_OUTCOME", "invalid communication outcome %q", in.Outcome)
	}
	if strings.TrimSpace(in.Summary) == "" {
		return shared.NewValidationError("SUMMARY_REQUIRED", "communication summary is required")
	}
	if in.Date.IsZero() {
		return shared.NewValidationError("DATE_REQUIRED", "communication date is required")
	}
	return nil
}

// CommunicationRecord is an immutable entry of the communication log
type CommunicationRecord struct {
	ID             uuid.UUID              `json:"id"`
	Sequence       int                    `json:"sequence"`
	Method         CommunicationMethod    `json:"method"`
	Direction      CommunicationDirection `json:"direction"`
	Date           time.Time              `json:"date"`
	Summary        string                 `json:"summary"`
	Outcome        CommunicationOutcome   `json:"outcome"`
	NextAction     string                 `json:"next_action,omitempty"`
	NextActionDate *time.Time             `json:"next_action_date,omitempty"`
	RecordedBy     uuid.UUID              `json:"recorded_by"`
	RecordedAt     time.Time              `json:"recorded_at"`
}

// AppendCommunication validates and appends a contact record, refreshing the
// derived contact dates. Closed tasks still accept records.
func (t *Task) AppendCommunication(in CommunicationInput, actor Actor) (CommunicationRecord, error) {
	if err := in.Validate(); err != nil {
		return CommunicationRecord{}, err
	}

	record := CommunicationRecord{
		ID:             uuid.New(),
		Sequence:       len(t.CommunicationHistory) + 1,
		Method:         in.Method,
		Direction:      in.Direction,
		Date:           in.Date.UTC(),
		Summary:        strings.TrimSpace(in.Summary),
		Outcome:        in.Outcome,
		NextAction:     strings.TrimSpace(in.NextAction),
		NextActionDate: utcPtr(in.NextActionDate),
		RecordedBy:     actor.UserID,
		RecordedAt:     actor.At.UTC(),
	}
	t.CommunicationHistory = append(t.CommunicationHistory, record)

	last := record.Date
	t.LastContactDate = &last
	if record.NextActionDate != nil {
		if t.NextContactDate == nil || record.NextActionDate.Before(*t.NextContactDate) {
			next := *record.NextActionDate
			t.NextContactDate = &next
		}
	}

	t.RecordAudit(AuditCommunicationAdded,
		"Communication added via "+string(record.Method)+" with outcome "+string(record.Outcome),
		actor, nil, record)
	t.touch(actor)
	t.AddDomainEvent(NewCommunicationAddedEvent(t, record, actor.At))
	return record, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
