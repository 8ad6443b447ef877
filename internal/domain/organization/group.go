package organization

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

// Group is a node of the club hierarchy (the club, its sections, local
// groups and their functional subgroups).
type Group struct {
	shared.BaseAggregateRoot
	NavisionID     *int64
	Type           GroupType
	Name           string
	ShortName      string
	ParentID       *uuid.UUID
	Path           string // materialized path, "/root-id/.../this-id"
	Level          int
	LayerGroupID   uuid.UUID
	Canton         string
	FoundationYear int
	ArchivedAt     *time.Time
}

// NewRootGroup creates the club root group
func NewRootGroup(name string) (*Group, error) {
	if err := validateGroupName(name); err != nil {
		return nil, err
	}
	g := &Group{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              GroupTypeSacCas,
		Name:              strings.TrimSpace(name),
	}
	g.Path = "/" + g.ID.String()
	g.LayerGroupID = g.ID

	g.AddDomainEvent(NewGroupCreatedEvent(g))
	return g, nil
}

// NewGroup creates a group below parent
func NewGroup(parent *Group, groupType GroupType, name string) (*Group, error) {
	if parent == nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Group needs a parent group")
	}
	if !parent.Type.AllowsChild(groupType) {
		return nil, shared.NewDomainError("INVALID_GROUP_TYPE",
			"Group type "+string(groupType)+" is not allowed below "+string(parent.Type))
	}
	if parent.IsArchived() {
		return nil, shared.NewDomainError("PARENT_ARCHIVED", "Cannot create a group below an archived group")
	}
	if err := validateGroupName(name); err != nil {
		return nil, err
	}

	g := &Group{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              groupType,
		Name:              strings.TrimSpace(name),
	}
	parentID := parent.ID
	g.ParentID = &parentID
	g.Path = parent.Path + "/" + g.ID.String()
	g.Level = parent.Level + 1
	if groupType.IsLayer() {
		g.LayerGroupID = g.ID
	} else {
		g.LayerGroupID = parent.LayerGroupID
	}

	g.AddDomainEvent(NewGroupCreatedEvent(g))
	return g, nil
}

// IsLayer reports whether the group is a layer group
func (g *Group) IsLayer() bool {
	return g.Type.IsLayer()
}

// IsRoot returns true for the club root group
func (g *Group) IsRoot() bool {
	return g.ParentID == nil
}

// IsArchived reports whether the group has been archived
func (g *Group) IsArchived() bool {
	return g.ArchivedAt != nil
}

// IsAncestorOf checks if this group is an ancestor of the group at otherPath
func (g *Group) IsAncestorOf(otherPath string) bool {
	return strings.HasPrefix(otherPath, g.Path+"/")
}

// GetAncestorIDs extracts all ancestor IDs from the path
func (g *Group) GetAncestorIDs() []uuid.UUID {
	if g.Path == "" {
		return nil
	}
	parts := strings.Split(strings.Trim(g.Path, "/"), "/")
	if len(parts) <= 1 {
		return nil
	}
	ancestors := make([]uuid.UUID, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		if id, err := uuid.Parse(p); err == nil {
			ancestors = append(ancestors, id)
		}
	}
	return ancestors
}

// Rename changes the display name
func (g *Group) Rename(name string) error {
	if err := validateGroupName(name); err != nil {
		return err
	}
	g.Name = strings.TrimSpace(name)
	g.Touch()
	g.IncrementVersion()
	return nil
}

// SetNavisionID records the legacy system identifier
func (g *Group) SetNavisionID(id int64) {
	g.NavisionID = &id
	g.Touch()
}

// Archive marks the group archived. The caller checks for active roles.
func (g *Group) Archive(at time.Time) error {
	if g.IsRoot() {
		return shared.NewDomainError("CANNOT_ARCHIVE_ROOT", "The root group cannot be archived")
	}
	if g.IsArchived() {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Group is already archived")
	}
	g.ArchivedAt = &at
	g.Touch()
	g.IncrementVersion()

	g.AddDomainEvent(NewGroupArchivedEvent(g))
	return nil
}

func validateGroupName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_GROUP_NAME", "Group name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_GROUP_NAME", "Group name cannot exceed 200 characters")
	}
	return nil
}
