package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository implements TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

func bySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// FindByID finds a task by ID with its payment plan, communication log,
// legal documents and audit trail loaded in sequence order
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*collections.Task, error) {
	var model models.CollectionsTaskModel
	err := r.db.WithContext(ctx).
		Preload("PaymentPlan").
		Preload("PaymentPlan.Payments", bySequence).
		Preload("Communications", bySequence).
		Preload("LegalDocuments", bySequence).
		Preload("AuditEntries", bySequence).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("collections task", id.String())
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll lists tasks matching the query. Sub-collections other than the
// payment plan are not loaded.
func (r *GormTaskRepository) FindAll(ctx context.Context, query collections.TaskQuery) ([]collections.Task, int64, error) {
	base := r.applyQuery(r.db.WithContext(ctx).Model(&models.CollectionsTaskModel{}), query)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(query.OrderBy, CollectionsTaskSortFields, "due_date")
	orderDir := ValidateSortOrder(query.OrderDir)
	if strings.TrimSpace(query.OrderDir) == "" && orderBy == "due_date" {
		orderDir = "ASC"
	}

	find := base.Session(&gorm.Session{}).
		Preload("PaymentPlan").
		Order(orderBy + " " + orderDir).
		Order("id ASC")
	if query.PageSize > 0 {
		find = find.Offset(query.Offset()).Limit(query.PageSize)
	}

	var rows []models.CollectionsTaskModel
	if err := find.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	tasks := make([]collections.Task, 0, len(rows))
	for i := range rows {
		task, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, total, nil
}

func (r *GormTaskRepository) applyQuery(db *gorm.DB, q collections.TaskQuery) *gorm.DB {
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		db = db.Where("status IN ?", statuses)
	}
	if q.CollectionsType != nil {
		db = db.Where("collections_type = ?", string(*q.CollectionsType))
	}
	if q.AssignedTo != nil {
		db = db.Where("assigned_to_id = ?", *q.AssignedTo)
	}
	if q.CustomerID != nil {
		db = db.Where("customer_id = ?", *q.CustomerID)
	}
	if q.RiskLevel != nil {
		db = db.Where("risk_level = ?", string(*q.RiskLevel))
	}
	if q.OverdueAsOf != nil {
		db = db.Where("due_date < ? AND status NOT IN ?", q.OverdueAsOf.UTC(),
			[]string{string(collections.TaskStatusCompleted), string(collections.TaskStatusCancelled)})
	}
	if q.NextContactBefore != nil {
		db = db.Where("next_contact_date IS NOT NULL AND next_contact_date <= ?", q.NextContactBefore.UTC())
	}
	return db
}

// Create inserts a new task together with whatever sub-collection entries
// it was opened with
func (r *GormTaskRepository) Create(ctx context.Context, task *collections.Task) error {
	model := models.CollectionsTaskModelFromDomain(task)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		return r.saveOwned(tx, task)
	})
}

// SaveWithLock persists the task guarded by its version. The row is only
// updated if it is still at the version the task was loaded at.
func (r *GormTaskRepository) SaveWithLock(ctx context.Context, task *collections.Task) error {
	model := models.CollectionsTaskModelFromDomain(task)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CollectionsTaskModel{}).
			Where("id = ? AND version = ?", task.ID, task.Version-1).
			Updates(model.UpdateColumns())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.KindConcurrentModification, "OPTIMISTIC_LOCK_ERROR",
				"The record has been modified by another transaction").
				WithDetail("task_id", task.ID.String())
		}
		return r.saveOwned(tx, task)
	})
}

// saveOwned writes the plan and appends sub-collection entries. Entries are
// append-only, so rows already stored are left untouched.
func (r *GormTaskRepository) saveOwned(tx *gorm.DB, task *collections.Task) error {
	if plan := task.PaymentPlan; plan != nil {
		planModel := models.PaymentPlanModelFromDomain(task.ID, plan, task.UpdatedAt, task.UpdatedAt)
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"next_payment_date", "payments_made", "total_paid_minor", "updated_at"}),
			}).
			Create(planModel).Error
		if err != nil {
			return err
		}

		if len(plan.Payments) > 0 {
			payments := make([]models.InstallmentPaymentModel, len(plan.Payments))
			for i, p := range plan.Payments {
				payments[i] = models.InstallmentPaymentModelFromDomain(task.ID, plan.ID, p)
			}
			if err := appendRows(tx, &payments); err != nil {
				return err
			}
		}
	}

	if len(task.CommunicationHistory) > 0 {
		rows := make([]models.CommunicationModel, len(task.CommunicationHistory))
		for i, c := range task.CommunicationHistory {
			rows[i] = models.CommunicationModelFromDomain(task.ID, c)
		}
		if err := appendRows(tx, &rows); err != nil {
			return err
		}
	}

	if len(task.LegalDocuments) > 0 {
		rows := make([]models.LegalDocumentModel, len(task.LegalDocuments))
		for i, d := range task.LegalDocuments {
			rows[i] = models.LegalDocumentModelFromDomain(task.ID, d)
		}
		if err := appendRows(tx, &rows); err != nil {
			return err
		}
	}

	if len(task.AuditTrail) > 0 {
		rows := make([]models.AuditEntryModel, len(task.AuditTrail))
		for i, e := range task.AuditTrail {
			rows[i] = models.AuditEntryModelFromDomain(task.ID, e)
		}
		if err := appendRows(tx, &rows); err != nil {
			return err
		}
	}
	return nil
}

func appendRows[T any](tx *gorm.DB, rows *[]T) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
}

// Ensure GormTaskRepository implements TaskRepository
var _ collections.TaskRepository = (*GormTaskRepository)(nil)
