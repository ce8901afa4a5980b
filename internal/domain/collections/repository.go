package collections

import (
	"context"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TaskQuery carries filter and paging parameters for listing tasks
type TaskQuery struct {
	shared.Filter
	Statuses        []TaskStatus
	CollectionsType *CollectionsType
	AssignedTo      *uuid.UUID
	CustomerID      *uuid.UUID
	RiskLevel       *RiskLevel
	// OverdueAsOf restricts the result to tasks due before this day
	OverdueAsOf *time.Time
	// NextContactBefore restricts the result to tasks with a follow-up due
	NextContactBefore *time.Time
}

// DefaultTaskQuery returns a query with default paging
func DefaultTaskQuery() TaskQuery {
	return TaskQuery{Filter: shared.DefaultFilter()}
}

// TaskRepository persists collections tasks with their owned sub-collections
type TaskRepository interface {
	// FindByID loads a task with all sub-collections, or a not found error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// FindAll lists tasks without their sub-collections
	FindAll(ctx context.Context, query TaskQuery) ([]Task, int64, error)
	// Create inserts a new task at version 1
	Create(ctx context.Context, task *Task) error
	// SaveWithLock persists a mutated task only if the stored version is the
	// one it was loaded at, i.e. task.Version-1. It fails with a concurrent
	// modification error otherwise.
	SaveWithLock(ctx context.Context, task *Task) error
}
