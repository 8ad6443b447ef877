package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
)

// RoleModel is the persistence model for roles. All role types share the
// table and are told apart by the type column.
type RoleModel struct {
	BaseModel
	PersonID               uuid.UUID                    `gorm:"type:uuid;not null;index"`
	GroupID                uuid.UUID                    `gorm:"type:uuid;not null;index"`
	LayerGroupID           uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Type                   membership.RoleType          `gorm:"type:varchar(50);not null;index"`
	Beitragskategorie      membership.Beitragskategorie `gorm:"type:varchar(10)"`
	StartOn                time.Time                    `gorm:"type:date;not null"`
	EndOn                  *time.Time                   `gorm:"type:date"`
	Terminated             bool                         `gorm:"not null;default:false"`
	TerminationReasonID    *uuid.UUID                   `gorm:"type:uuid"`
	EndOnBeforeTermination *time.Time                   `gorm:"type:date"`
	MutationID             *uuid.UUID                   `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts the persistence model to a domain Role
func (m *RoleModel) ToDomain() *membership.Role {
	return &membership.Role{
		BaseEntity:             m.BaseModel.ToDomain(),
		PersonID:               m.PersonID,
		GroupID:                m.GroupID,
		LayerGroupID:           m.LayerGroupID,
		Type:                   m.Type,
		Beitragskategorie:      m.Beitragskategorie,
		StartOn:                shared.Date(m.StartOn),
		EndOn:                  utcDate(m.EndOn),
		Terminated:             m.Terminated,
		TerminationReasonID:    m.TerminationReasonID,
		EndOnBeforeTermination: utcDate(m.EndOnBeforeTermination),
		MutationID:             m.MutationID,
	}
}

// FromDomain populates the persistence model from a domain Role
func (m *RoleModel) FromDomain(r *membership.Role) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.PersonID = r.PersonID
	m.GroupID = r.GroupID
	m.LayerGroupID = r.LayerGroupID
	m.Type = r.Type
	m.Beitragskategorie = r.Beitragskategorie
	m.StartOn = r.StartOn
	m.EndOn = r.EndOn
	m.Terminated = r.Terminated
	m.TerminationReasonID = r.TerminationReasonID
	m.EndOnBeforeTermination = r.EndOnBeforeTermination
	m.MutationID = r.MutationID
}

// RoleModelFromDomain creates a new persistence model from a domain Role
func RoleModelFromDomain(r *membership.Role) *RoleModel {
	m := &RoleModel{}
	m.FromDomain(r)
	return m
}

// TerminationReasonModel is the persistence model for termination reasons
type TerminationReasonModel struct {
	BaseModel
	Code string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Text string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (TerminationReasonModel) TableName() string {
	return "termination_reasons"
}

// ToDomain converts the persistence model to a domain TerminationReason
func (m *TerminationReasonModel) ToDomain() *membership.TerminationReason {
	return &membership.TerminationReason{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Text:       m.Text,
	}
}

// TerminationReasonModelFromDomain creates a new persistence model from a domain TerminationReason
func TerminationReasonModelFromDomain(r *membership.TerminationReason) *TerminationReasonModel {
	m := &TerminationReasonModel{Code: r.Code, Text: r.Text}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
