package collections

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the machine-readable tag of an audit entry
type AuditAction string

const (
	AuditTaskCreated           AuditAction = "task_created"
	AuditCommunicationAdded    AuditAction = "communication_added"
	AuditPaymentRecorded       AuditAction = "payment_recorded"
	AuditPlanCompleted         AuditAction = "plan_completed"
	AuditPaymentPlanCreated    AuditAction = "payment_plan_created"
	AuditStatusChanged         AuditAction = "status_changed"
	AuditEscalated             AuditAction = "escalated"
	AuditDeescalated           AuditAction = "deescalated"
	AuditRiskReclassified      AuditAction = "risk_reclassified"
	AuditLegalDocumentAttached AuditAction = "legal_document_attached"
)

// FieldChanged returns the action tag recorded when a task field is edited
func FieldChanged(field string) AuditAction {
	return AuditAction(field + "_changed")
}

// AuditEntry is one immutable line of a task's audit trail
type AuditEntry struct {
	ID            uuid.UUID       `json:"id"`
	Sequence      int             `json:"sequence"`
	Action        AuditAction     `json:"action"`
	Description   string          `json:"description"`
	PerformedBy   uuid.UUID       `json:"performed_by"`
	PerformedAt   time.Time       `json:"performed_at"`
	PreviousValue json.RawMessage `json:"previous_value,omitempty"`
	NewValue      json.RawMessage `json:"new_value,omitempty"`
}

// Actor identifies who performs an operation and the server time it happens at
type Actor struct {
	UserID uuid.UUID
	At     time.Time
}

// NewActor creates an actor stamped at the given server time
func NewActor(userID uuid.UUID, at time.Time) Actor {
	return Actor{UserID: userID, At: at.UTC()}
}

// RecordAudit appends an entry to the task's audit trail. It is the only
// writer of the trail and never touches existing entries.
func (t *Task) RecordAudit(action AuditAction, description string, actor Actor, previous, next any) AuditEntry {
	entry := AuditEntry{
		ID:            uuid.New(),
		Sequence:      len(t.AuditTrail) + 1,
		Action:        action,
		Description:   description,
		PerformedBy:   actor.UserID,
		PerformedAt:   actor.At.UTC(),
		PreviousValue: snapshot(previous),
		NewValue:      snapshot(next),
	}
	t.AuditTrail = append(t.AuditTrail, entry)
	return entry
}

// snapshot renders a value as JSON, falling back to its %v text so that
// recording an entry cannot fail.
func snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return data
}
