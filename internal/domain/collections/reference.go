package collections

import (
	"strings"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PartyKind tells which directory a reference points into
type PartyKind string

const (
	PartyKindStaff    PartyKind = "staff"
	PartyKindCustomer PartyKind = "customer"
)

// IsValid checks if the party kind is a valid value
func (k PartyKind) IsValid() bool {
	return k == PartyKindStaff || k == PartyKindCustomer
}

// Party is either a bare Reference or a Resolved reference carrying display data
type Party interface {
	Ref() Reference
	isParty()
}

// Reference is the opaque form the task stores for staff and customers
type Reference struct {
	Kind PartyKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// StaffRef builds a staff reference
func StaffRef(id uuid.UUID) Reference {
	return Reference{Kind: PartyKindStaff, ID: id}
}

// CustomerRef builds a customer reference
func CustomerRef(id uuid.UUID) Reference {
	return Reference{Kind: PartyKindCustomer, ID: id}
}

// Ref returns the reference itself
func (r Reference) Ref() Reference { return r }

func (Reference) isParty() {}

// IsZero returns true when the reference points nowhere
func (r Reference) IsZero() bool {
	return r.ID == uuid.Nil
}

// Validate checks that the reference is set and of the wanted kind
func (r Reference) Validate(field string, want PartyKind) error {
	if r.IsZero() {
		return shared.NewValidationErrorf("INVALID_"+fieldCode(field), "%s is required", field)
	}
	if r.Kind != want {
		return shared.NewValidationErrorf("INVALID_"+fieldCode(field), "%s must reference a %s, got %q", field, want, r.Kind)
	}
	return nil
}

func fieldCode(field string) string {
	return strings.ToUpper(field)
}

// Resolved is a reference expanded with directory display data. It exists
// only at the presentation boundary; tasks never store it.
type Resolved struct {
	Reference
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Ref returns the underlying reference
func (r Resolved) Ref() Reference { return r.Reference }

func (Resolved) isParty() {}
