package organization

import "github.com/sac/membership/internal/domain/shared"

// AggregateTypeGroup is the aggregate type name of groups
const AggregateTypeGroup = "Group"

// Group domain event types
const (
	EventTypeGroupCreated  = "GroupCreated"
	EventTypeGroupArchived = "GroupArchived"
)

// GroupCreatedEvent is raised when a group is created
type GroupCreatedEvent struct {
	shared.BaseDomainEvent
	GroupType GroupType `json:"group_type"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
}

// NewGroupCreatedEvent creates a new GroupCreatedEvent
func NewGroupCreatedEvent(g *Group) *GroupCreatedEvent {
	return &GroupCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGroupCreated, AggregateTypeGroup, g.ID),
		GroupType:       g.Type,
		Name:            g.Name,
		Path:            g.Path,
	}
}

// GroupArchivedEvent is raised when a group is archived
type GroupArchivedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewGroupArchivedEvent creates a new GroupArchivedEvent
func NewGroupArchivedEvent(g *Group) *GroupArchivedEvent {
	return &GroupArchivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGroupArchived, AggregateTypeGroup, g.ID),
		Name:            g.Name,
	}
}
