package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/organization"
)

// GroupModel is the persistence model for the Group aggregate
type GroupModel struct {
	AggregateModel
	NavisionID     *int64                 `gorm:"uniqueIndex"`
	Type           organization.GroupType `gorm:"type:varchar(50);not null;index"`
	Name           string                 `gorm:"type:varchar(200);not null"`
	ShortName      string                 `gorm:"type:varchar(50)"`
	ParentID       *uuid.UUID             `gorm:"type:uuid;index"`
	Path           string                 `gorm:"type:varchar(1000);not null;index"`
	Level          int                    `gorm:"not null;default:0"`
	LayerGroupID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	Canton         string                 `gorm:"type:varchar(2)"`
	FoundationYear int                    `gorm:"not null;default:0"`
	ArchivedAt     *time.Time
}

// TableName returns the table name for GORM
func (GroupModel) TableName() string {
	return "groups"
}

// ToDomain converts the persistence model to a domain Group
func (m *GroupModel) ToDomain() *organization.Group {
	return &organization.Group{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		NavisionID:        m.NavisionID,
		Type:              m.Type,
		Name:              m.Name,
		ShortName:         m.ShortName,
		ParentID:          m.ParentID,
		Path:              m.Path,
		Level:             m.Level,
		LayerGroupID:      m.LayerGroupID,
		Canton:            m.Canton,
		FoundationYear:    m.FoundationYear,
		ArchivedAt:        m.ArchivedAt,
	}
}

// FromDomain populates the persistence model from a domain Group
func (m *GroupModel) FromDomain(g *organization.Group) {
	m.FromDomainAggregateRoot(g.BaseAggregateRoot)
	m.NavisionID = g.NavisionID
	m.Type = g.Type
	m.Name = g.Name
	m.ShortName = g.ShortName
	m.ParentID = g.ParentID
	m.Path = g.Path
	m.Level = g.Level
	m.LayerGroupID = g.LayerGroupID
	m.Canton = g.Canton
	m.FoundationYear = g.FoundationYear
	m.ArchivedAt = g.ArchivedAt
}

// GroupModelFromDomain creates a new persistence model from a domain Group
func GroupModelFromDomain(g *organization.Group) *GroupModel {
	m := &GroupModel{}
	m.FromDomain(g)
	return m
}
