package models

import (
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/google/uuid"
)

// DirectoryPartyModel is a staff member or customer known to the directory
type DirectoryPartyModel struct {
	Kind        string    `gorm:"type:varchar(20);primaryKey"`
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string    `gorm:"type:varchar(200);not null"`
	Email       string    `gorm:"type:varchar(200)"`
	Phone       string    `gorm:"type:varchar(50)"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DirectoryPartyModel) TableName() string {
	return "directory_parties"
}

// ToDomain converts the persistence model to a resolved reference
func (m *DirectoryPartyModel) ToDomain() collections.Resolved {
	return collections.Resolved{
		Reference:   collections.Reference{Kind: collections.PartyKind(m.Kind), ID: m.ID},
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Phone:       m.Phone,
	}
}

// DirectoryPartyModelFromDomain creates a persistence model from a resolved reference
func DirectoryPartyModelFromDomain(r collections.Resolved, at time.Time) *DirectoryPartyModel {
	return &DirectoryPartyModel{
		Kind:        string(r.Kind),
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Phone:       r.Phone,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}
