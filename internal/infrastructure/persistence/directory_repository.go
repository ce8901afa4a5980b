package persistence

import (
	"context"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDirectory resolves staff and customer references against the local
// directory_parties replica
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// Resolve looks up every reference. References with no directory entry are
// absent from the result.
func (d *GormDirectory) Resolve(ctx context.Context, refs []collections.Reference) (map[collections.Reference]collections.Resolved, error) {
	out := make(map[collections.Reference]collections.Resolved, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	byKind := make(map[collections.PartyKind][]uuid.UUID)
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	for kind, ids := range byKind {
		var rows []models.DirectoryPartyModel
		err := d.db.WithContext(ctx).
			Where("kind = ? AND id IN ?", string(kind), ids).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for i := range rows {
			resolved := rows[i].ToDomain()
			out[resolved.Reference] = resolved
		}
	}
	return out, nil
}

// Upsert inserts or refreshes directory entries
func (d *GormDirectory) Upsert(ctx context.Context, parties ...collections.Resolved) error {
	if len(parties) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]*models.DirectoryPartyModel, len(parties))
	for i, p := range parties {
		rows[i] = models.DirectoryPartyModelFromDomain(p, now)
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "phone", "updated_at"}),
		}).
		Create(&rows).Error
}

// Ensure GormDirectory implements Directory
var _ collections.Directory = (*GormDirectory)(nil)
