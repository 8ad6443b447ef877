package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

// AggregateTypePerson is the aggregate type of membership events; they are
// keyed by the person whose memberships changed.
const AggregateTypePerson = "Person"

// Event types
const (
	EventTypeMembershipJoined         = "MembershipJoined"
	EventTypeApplicationRejected      = "MembershipApplicationRejected"
	EventTypeStammsektionSwitched     = "StammsektionSwitched"
	EventTypeMembershipTerminated     = "MembershipTerminated"
	EventTypeTerminationUndone        = "MembershipTerminationUndone"
	EventTypeBeitragskategorieChanged = "BeitragskategorieChanged"
	EventTypeHouseholdChanged         = "HouseholdChanged"
	EventTypeZusatzsektionTerminated  = "ZusatzsektionTerminated"
	EventTypeZusatzsektionJoined      = "ZusatzsektionJoined"
)

// MembershipJoinedEvent is raised when an application is approved
type MembershipJoinedEvent struct {
	shared.BaseDomainEvent
	RoleID            uuid.UUID         `json:"role_id"`
	LayerGroupID      uuid.UUID         `json:"layer_group_id"`
	RoleType          RoleType          `json:"role_type"`
	Beitragskategorie Beitragskategorie `json:"beitragskategorie"`
	StartOn           time.Time         `json:"start_on"`
}

// NewMembershipJoinedEvent creates the event from the new membership role
func NewMembershipJoinedEvent(role *Role) *MembershipJoinedEvent {
	eventType := EventTypeMembershipJoined
	if role.Type == RoleMitgliedZusatzsektion {
		eventType = EventTypeZusatzsektionJoined
	}
	return &MembershipJoinedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypePerson, role.PersonID),
		RoleID:            role.ID,
		LayerGroupID:      role.LayerGroupID,
		RoleType:          role.Type,
		Beitragskategorie: role.Beitragskategorie,
		StartOn:           role.StartOn,
	}
}

// ApplicationRejectedEvent is raised when a pending application is removed
type ApplicationRejectedEvent struct {
	shared.BaseDomainEvent
	RoleID       uuid.UUID `json:"role_id"`
	LayerGroupID uuid.UUID `json:"layer_group_id"`
}

// NewApplicationRejectedEvent creates the event
func NewApplicationRejectedEvent(role *Role) *ApplicationRejectedEvent {
	return &ApplicationRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationRejected, AggregateTypePerson, role.PersonID),
		RoleID:          role.ID,
		LayerGroupID:    role.LayerGroupID,
	}
}

// StammsektionSwitchedEvent is raised when a person moves to another section
type StammsektionSwitchedEvent struct {
	shared.BaseDomainEvent
	FromLayerID uuid.UUID `json:"from_layer_id"`
	ToLayerID   uuid.UUID `json:"to_layer_id"`
	NewRoleID   uuid.UUID `json:"new_role_id"`
}

// NewStammsektionSwitchedEvent creates the event
func NewStammsektionSwitchedEvent(personID, fromLayerID uuid.UUID, newRole *Role) *StammsektionSwitchedEvent {
	return &StammsektionSwitchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStammsektionSwitched, AggregateTypePerson, personID),
		FromLayerID:     fromLayerID,
		ToLayerID:       newRole.LayerGroupID,
		NewRoleID:       newRole.ID,
	}
}

// MembershipTerminatedEvent is raised when memberships are terminated
type MembershipTerminatedEvent struct {
	shared.BaseDomainEvent
	MutationID  uuid.UUID   `json:"mutation_id"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
	TerminateOn time.Time   `json:"terminate_on"`
	ReasonID    *uuid.UUID  `json:"reason_id,omitempty"`
}

// NewMembershipTerminatedEvent creates the event; zusatzsektion selects the
// event type for a single Zusatzsektion termination
func NewMembershipTerminatedEvent(personID, mutationID uuid.UUID, roles Roles, terminateOn time.Time, reasonID *uuid.UUID, zusatzsektion bool) *MembershipTerminatedEvent {
	eventType := EventTypeMembershipTerminated
	if zusatzsektion {
		eventType = EventTypeZusatzsektionTerminated
	}
	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return &MembershipTerminatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePerson, personID),
		MutationID:      mutationID,
		RoleIDs:         ids,
		TerminateOn:     terminateOn,
		ReasonID:        reasonID,
	}
}

// TerminationUndoneEvent is raised when a termination is reverted
type TerminationUndoneEvent struct {
	shared.BaseDomainEvent
	MutationID uuid.UUID   `json:"mutation_id"`
	RoleIDs    []uuid.UUID `json:"role_ids"`
}

// NewTerminationUndoneEvent creates the event
func NewTerminationUndoneEvent(personID, mutationID uuid.UUID, roles Roles) *TerminationUndoneEvent {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return &TerminationUndoneEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTerminationUndone, AggregateTypePerson, personID),
		MutationID:      mutationID,
		RoleIDs:         ids,
	}
}

// BeitragskategorieChangedEvent is raised when a membership is re-categorized
type BeitragskategorieChangedEvent struct {
	shared.BaseDomainEvent
	OldRoleID uuid.UUID         `json:"old_role_id"`
	NewRoleID uuid.UUID         `json:"new_role_id"`
	From      Beitragskategorie `json:"from"`
	To        Beitragskategorie `json:"to"`
}

// NewBeitragskategorieChangedEvent creates the event
func NewBeitragskategorieChangedEvent(oldRole, newRole *Role, from Beitragskategorie) *BeitragskategorieChangedEvent {
	return &BeitragskategorieChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBeitragskategorieChanged, AggregateTypePerson, newRole.PersonID),
		OldRoleID:       oldRole.ID,
		NewRoleID:       newRole.ID,
		From:            from,
		To:              newRole.Beitragskategorie,
	}
}

// HouseholdChangedEvent is raised after a household mutation
type HouseholdChangedEvent struct {
	shared.BaseDomainEvent
	HouseholdKey string      `json:"household_key"`
	Change       string      `json:"change"`
	MemberIDs    []uuid.UUID `json:"member_ids"`
}

// NewHouseholdChangedEvent creates the event; personID is the person the change was made for
func NewHouseholdChangedEvent(personID uuid.UUID, key, change string, memberIDs []uuid.UUID) *HouseholdChangedEvent {
	return &HouseholdChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeHouseholdChanged, AggregateTypePerson, personID),
		HouseholdKey:    key,
		Change:          change,
		MemberIDs:       memberIDs,
	}
}
