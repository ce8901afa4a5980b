// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Money is stored as an integer count of minor units next to its currency code.
// Owned sub-collections carry a per-task sequence that fixes their order.
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - collections.go: Collections task, payment plan, communication, document and audit models
// - directory.go: Directory party model used to resolve staff and customer references
package models
