package membership

import (
	"strings"
	"time"

	"github.com/sac/membership/internal/domain/shared"
)

// Termination errors
var (
	ErrInvalidTerminateOn      = shared.NewDomainError("INVALID_TERMINATE_ON", "Termination date must be yesterday or the end of the current year")
	ErrTerminationReasonCode   = shared.NewDomainError("INVALID_TERMINATION_REASON", "Termination reason code is required")
	ErrFamilyMemberTermination = shared.NewDomainError("FAMILY_MEMBER_TERMINATION", "Family members are terminated through the family main person")
	ErrNoActiveMembership      = shared.NewDomainError("NO_ACTIVE_MEMBERSHIP", "Person has no active Stammsektion membership")
)

// TerminationReason is a selectable reason for ending a membership
type TerminationReason struct {
	shared.BaseEntity
	Code string
	Text string
}

// NewTerminationReason creates a termination reason
func NewTerminationReason(code, text string) (*TerminationReason, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" {
		return nil, ErrTerminationReasonCode
	}
	return &TerminationReason{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Text:       strings.TrimSpace(text),
	}, nil
}

// ValidTerminateOn reports whether on is an accepted termination date:
// yesterday or 31.12. of the current year.
func ValidTerminateOn(on, today time.Time) bool {
	return shared.SameDate(on, shared.Yesterday(today)) || shared.SameDate(on, shared.EndOfYear(today))
}

// CheckTerminateOn returns ErrInvalidTerminateOn for dates ValidTerminateOn rejects
func CheckTerminateOn(on, today time.Time) error {
	if !ValidTerminateOn(on, today) {
		return ErrInvalidTerminateOn
	}
	return nil
}
