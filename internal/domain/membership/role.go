package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/shared"
)

// Role errors
var (
	ErrRoleNotAllowedInGroup    = shared.NewDomainError("ROLE_NOT_ALLOWED_IN_GROUP", "Role type is not allowed in this group")
	ErrBeitragskategorieMissing = shared.NewDomainError("BEITRAGSKATEGORIE_MISSING", "Role requires a Beitragskategorie")
	ErrRoleEndsBeforeStart      = shared.NewDomainError("ROLE_ENDS_BEFORE_START", "Role cannot end before it starts")
	ErrRoleAlreadyTerminated    = shared.NewDomainError("ROLE_ALREADY_TERMINATED", "Role is already terminated")
	ErrRoleNotTerminated        = shared.NewDomainError("ROLE_NOT_TERMINATED", "Role is not terminated")
	ErrRoleNotRestorable        = shared.NewDomainError("ROLE_NOT_RESTORABLE", "Role cannot be restored because its former end date lies in the past")
	ErrRoleNotActive            = shared.NewDomainError("ROLE_NOT_ACTIVE", "Role is not active")
)

// Role assigns a person to a group for a period. Role kinds share one
// table and are told apart by Type.
type Role struct {
	shared.BaseEntity
	PersonID               uuid.UUID
	GroupID                uuid.UUID
	LayerGroupID           uuid.UUID
	Type                   RoleType
	Beitragskategorie      Beitragskategorie
	StartOn                time.Time
	EndOn                  *time.Time
	Terminated             bool
	TerminationReasonID    *uuid.UUID
	EndOnBeforeTermination *time.Time
	MutationID             *uuid.UUID
}

// NewRole creates a role for a person in a group
func NewRole(personID uuid.UUID, group *organization.Group, roleType RoleType, kategorie Beitragskategorie, startOn time.Time, endOn *time.Time) (*Role, error) {
	if !roleType.AllowedIn(group.Type) {
		return nil, ErrRoleNotAllowedInGroup
	}
	if roleType.RequiresBeitragskategorie() && kategorie == "" {
		return nil, ErrBeitragskategorieMissing
	}
	if !roleType.RequiresBeitragskategorie() {
		kategorie = ""
	}
	r := &Role{
		BaseEntity:        shared.NewBaseEntity(),
		PersonID:          personID,
		GroupID:           group.ID,
		LayerGroupID:      group.LayerGroupID,
		Type:              roleType,
		Beitragskategorie: kategorie,
		StartOn:           shared.Date(startOn),
	}
	if endOn != nil {
		if err := r.setEndOn(*endOn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewMembershipRole creates a membership role running until the end of its start year
func NewMembershipRole(personID uuid.UUID, group *organization.Group, roleType RoleType, kategorie Beitragskategorie, startOn time.Time) (*Role, error) {
	endOn := shared.EndOfYear(startOn)
	return NewRole(personID, group, roleType, kategorie, startOn, &endOn)
}

// ActiveOn reports whether the role is active on date d
func (r *Role) ActiveOn(d time.Time) bool {
	d = shared.Date(d)
	if d.Before(r.StartOn) {
		return false
	}
	return r.EndOn == nil || !d.After(*r.EndOn)
}

// Overlaps reports whether both roles are active on at least one common day
func (r *Role) Overlaps(other *Role) bool {
	if r.EndOn != nil && r.EndOn.Before(other.StartOn) {
		return false
	}
	if other.EndOn != nil && other.EndOn.Before(r.StartOn) {
		return false
	}
	return true
}

// StartsOn reports whether the role starts on date d
func (r *Role) StartsOn(d time.Time) bool {
	return shared.SameDate(r.StartOn, d)
}

// End sets the end date of the role
func (r *Role) End(on time.Time) error {
	if err := r.setEndOn(on); err != nil {
		return err
	}
	r.Touch()
	return nil
}

// ChangeBeitragskategorie updates the category in place. Used for roles
// starting today; older roles are ended and replaced instead.
func (r *Role) ChangeBeitragskategorie(k Beitragskategorie) {
	r.Beitragskategorie = k
	r.Touch()
}

// Terminate ends the role on terminateOn and records the termination
func (r *Role) Terminate(terminateOn time.Time, reasonID *uuid.UUID, mutationID uuid.UUID) error {
	if r.Terminated {
		return ErrRoleAlreadyTerminated
	}
	terminateOn = shared.Date(terminateOn)
	if !r.ActiveOn(terminateOn) {
		return ErrRoleNotActive
	}
	previous := r.EndOn
	if err := r.setEndOn(terminateOn); err != nil {
		return err
	}
	r.EndOnBeforeTermination = previous
	r.Terminated = true
	r.TerminationReasonID = reasonID
	r.MutationID = &mutationID
	r.Touch()
	return nil
}

// UndoTermination restores the end date the role had before it was
// terminated. Membership roles without a recorded end fall back to the end
// of the year they were terminated in.
func (r *Role) UndoTermination(today time.Time) error {
	if !r.Terminated {
		return ErrRoleNotTerminated
	}
	previous := r.EndOnBeforeTermination
	if previous == nil && r.Type.IsMembership() && r.EndOn != nil {
		e := shared.EndOfYear(*r.EndOn)
		previous = &e
	}
	if previous != nil && previous.Before(shared.Date(today)) {
		return ErrRoleNotRestorable
	}
	r.EndOn = previous
	r.EndOnBeforeTermination = nil
	r.Terminated = false
	r.TerminationReasonID = nil
	r.MutationID = nil
	r.Touch()
	return nil
}

func (r *Role) setEndOn(on time.Time) error {
	on = shared.Date(on)
	if on.Before(r.StartOn) {
		return ErrRoleEndsBeforeStart
	}
	r.EndOn = &on
	return nil
}
