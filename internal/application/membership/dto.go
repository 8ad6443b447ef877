package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
)

// ApplyRequest registers a membership application in a section
type ApplyRequest struct {
	PersonID      uuid.UUID `json:"person_id" validate:"required"`
	LayerID       uuid.UUID `json:"layer_id" validate:"required"`
	Zusatzsektion bool      `json:"zusatzsektion"`
}

// JoinRequest approves a pending application role
type JoinRequest struct {
	RoleID uuid.UUID `json:"role_id" validate:"required"`
}

// RejectRequest removes a pending application role
type RejectRequest struct {
	RoleID uuid.UUID `json:"role_id" validate:"required"`
}

// JoinZusatzsektionRequest adds a Zusatzsektion membership directly
type JoinZusatzsektionRequest struct {
	PersonID uuid.UUID `json:"person_id" validate:"required"`
	LayerID  uuid.UUID `json:"layer_id" validate:"required"`
}

// SwitchStammsektionRequest moves a member to another section
type SwitchStammsektionRequest struct {
	PersonID uuid.UUID `json:"person_id" validate:"required"`
	LayerID  uuid.UUID `json:"layer_id" validate:"required"`
}

// TerminateRequest ends all memberships of a person
type TerminateRequest struct {
	PersonID             uuid.UUID  `json:"person_id" validate:"required"`
	TerminateOn          time.Time  `json:"terminate_on" validate:"required"`
	ReasonID             *uuid.UUID `json:"reason_id"`
	SubscribeNewsletter  bool       `json:"subscribe_newsletter"`
	SubscribeFundraising bool       `json:"subscribe_fundraising"`
	DataRetentionConsent bool       `json:"data_retention_consent"`
}

// TerminateZusatzsektionRequest ends one Zusatzsektion membership
type TerminateZusatzsektionRequest struct {
	PersonID    uuid.UUID  `json:"person_id" validate:"required"`
	LayerID     uuid.UUID  `json:"layer_id" validate:"required"`
	TerminateOn time.Time  `json:"terminate_on" validate:"required"`
	ReasonID    *uuid.UUID `json:"reason_id"`
}

// UndoTerminationRequest restores the roles of a termination
type UndoTerminationRequest struct {
	RoleID uuid.UUID `json:"role_id" validate:"required"`
}

// AddHouseholdMemberRequest adds a person to the household of MainPersonID.
// A household is founded when MainPersonID does not belong to one yet.
type AddHouseholdMemberRequest struct {
	MainPersonID uuid.UUID `json:"main_person_id" validate:"required"`
	PersonID     uuid.UUID `json:"person_id" validate:"required"`
}

// HouseholdRequest addresses the household of a person
type HouseholdRequest struct {
	PersonID uuid.UUID `json:"person_id" validate:"required"`
}

// MutationResult lists the roles created or changed by one operation
type MutationResult struct {
	MutationID uuid.UUID
	Roles      membership.Roles
}

func (r *MutationResult) add(roles ...*membership.Role) {
	r.Roles = append(r.Roles, roles...)
}
