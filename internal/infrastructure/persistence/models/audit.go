package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/audit"
)

// VersionModel is the persistence model for change log entries
type VersionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	MainType  string    `gorm:"type:varchar(50);not null;index:idx_versions_main"`
	MainID    uuid.UUID `gorm:"type:uuid;not null;index:idx_versions_main"`
	ItemType  string    `gorm:"type:varchar(50);not null"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null"`
	Event     string    `gorm:"type:varchar(100);not null"`
	Changes   string    `gorm:"type:text"`
	Actor     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VersionModel) TableName() string {
	return "versions"
}

// ToDomain converts the persistence model to a domain Version
func (m *VersionModel) ToDomain() *audit.Version {
	v := &audit.Version{
		ID:        m.ID,
		MainType:  m.MainType,
		MainID:    m.MainID,
		ItemType:  m.ItemType,
		ItemID:    m.ItemID,
		Event:     m.Event,
		Actor:     m.Actor,
		CreatedAt: m.CreatedAt,
	}
	_ = v.SetChangesFromJSON(m.Changes)
	return v
}

// VersionModelFromDomain creates a new persistence model from a domain Version
func VersionModelFromDomain(v *audit.Version) *VersionModel {
	m := &VersionModel{
		ID:        v.ID,
		MainType:  v.MainType,
		MainID:    v.MainID,
		ItemType:  v.ItemType,
		ItemID:    v.ItemID,
		Event:     v.Event,
		Actor:     v.Actor,
		CreatedAt: v.CreatedAt,
	}
	if changes, err := v.ChangesJSON(); err == nil {
		m.Changes = changes
	} else {
		m.Changes = "{}"
	}
	return m
}
