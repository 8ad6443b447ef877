// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel, AggregateModel and the schema list
// - group.go: club hierarchy
// - person.go: people and qualifications
// - membership.go: roles and termination reasons
// - invoicing.go: external invoice records
// - audit.go: change log versions
// - import_run.go: legacy import runs
package models
