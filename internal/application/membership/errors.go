package membership

import "github.com/sac/membership/internal/domain/shared"

// Membership service errors
var (
	ErrNotAnApplication      = shared.NewDomainError("NOT_AN_APPLICATION", "Role is not a membership application")
	ErrApplicationClosed     = shared.NewDomainError("APPLICATION_CLOSED", "Application has already ended")
	ErrNotEligible           = shared.NewDomainError("NOT_ELIGIBLE", "Person is not eligible for a membership")
	ErrAlreadyInSection      = shared.NewDomainError("ALREADY_IN_SECTION", "Person is already a member of this section")
	ErrFamilyMemberSwitch    = shared.NewDomainError("FAMILY_MEMBER_SWITCH", "Family members switch sections with the family main person")
	ErrNoActiveZusatzsektion = shared.NewDomainError("NO_ACTIVE_ZUSATZSEKTION", "Person has no active Zusatzsektion membership in this section")
	ErrNoApplicationGroup    = shared.NewDomainError("NO_APPLICATION_GROUP", "Section has no group for applications")
)
