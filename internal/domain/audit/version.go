package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Version is one entry of the change log kept for people and their roles
type Version struct {
	ID        uuid.UUID
	MainType  string
	MainID    uuid.UUID
	ItemType  string
	ItemID    uuid.UUID
	Event     string
	Changes   map[string]any
	Actor     string
	CreatedAt time.Time
}

// NewVersion creates a change log entry for an event on a main record
func NewVersion(mainType string, mainID uuid.UUID, event string, changes map[string]any, actor string) *Version {
	if changes == nil {
		changes = map[string]any{}
	}
	return &Version{
		ID:        uuid.New(),
		MainType:  mainType,
		MainID:    mainID,
		ItemType:  mainType,
		ItemID:    mainID,
		Event:     event,
		Changes:   changes,
		Actor:     actor,
		CreatedAt: time.Now(),
	}
}

// ForItem attributes the version to a child record of the main record
func (v *Version) ForItem(itemType string, itemID uuid.UUID) *Version {
	v.ItemType = itemType
	v.ItemID = itemID
	return v
}

// ChangesJSON serializes the change set
func (v *Version) ChangesJSON() (string, error) {
	data, err := json.Marshal(v.Changes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal version changes: %w", err)
	}
	return string(data), nil
}

// SetChangesFromJSON restores the change set
func (v *Version) SetChangesFromJSON(s string) error {
	v.Changes = map[string]any{}
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &v.Changes); err != nil {
		return fmt.Errorf("failed to unmarshal version changes: %w", err)
	}
	return nil
}
