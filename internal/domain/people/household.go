package people

import (
	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

// Household errors
var (
	ErrHouseholdTooSmall       = shared.NewDomainError("HOUSEHOLD_TOO_SMALL", "A household needs at least two persons")
	ErrHouseholdTooManyAdults  = shared.NewDomainError("HOUSEHOLD_TOO_MANY_ADULTS", "A household can have at most two adults")
	ErrHouseholdMainPerson     = shared.NewDomainError("HOUSEHOLD_MAIN_PERSON", "A household can have at most one main person")
	ErrMainPersonNotAdult      = shared.NewDomainError("MAIN_PERSON_NOT_ADULT", "The family main person must be an adult")
	ErrMainPersonWithoutEmail  = shared.NewDomainError("MAIN_PERSON_WITHOUT_EMAIL", "The family main person needs an email address")
	ErrHouseholdMissingMain    = shared.NewDomainError("HOUSEHOLD_WITHOUT_MAIN_PERSON", "A household needs a main person")
	ErrPersonNotInHousehold    = shared.NewDomainError("PERSON_NOT_IN_HOUSEHOLD", "Person is not a member of this household")
	ErrPersonInOtherHousehold  = shared.NewDomainError("PERSON_IN_OTHER_HOUSEHOLD", "Person already belongs to another household")
	ErrHouseholdMemberTooYoung = shared.NewDomainError("HOUSEHOLD_MEMBER_NOT_ELIGIBLE", "Children must be at least 6 years old to join a family membership")
)

// Household is the set of persons sharing a household key
type Household struct {
	Key     string
	Members []*Person
}

// NewHousehold starts a household for a main person
func NewHousehold(main *Person) *Household {
	key := main.HouseholdKey
	if key == "" {
		key = uuid.New().String()
	}
	h := &Household{Key: key}
	h.add(main)
	return h
}

// LoadHousehold wraps already persisted household members
func LoadHousehold(key string, members []*Person) *Household {
	return &Household{Key: key, Members: members}
}

// MainPerson returns the family main person or nil
func (h *Household) MainPerson() *Person {
	for _, p := range h.Members {
		if p.FamilyMainPerson {
			return p
		}
	}
	return nil
}

// Contains reports whether the person is a member
func (h *Household) Contains(id uuid.UUID) bool {
	return h.member(id) != nil
}

// Add adds a person to the household
func (h *Household) Add(p *Person) error {
	if h.Contains(p.ID) {
		return nil
	}
	if p.HouseholdKey != "" && p.HouseholdKey != h.Key {
		return ErrPersonInOtherHousehold
	}
	h.add(p)
	return nil
}

// Remove removes a person from the household and returns it
func (h *Household) Remove(id uuid.UUID) (*Person, error) {
	for i, p := range h.Members {
		if p.ID == id {
			h.Members = append(h.Members[:i], h.Members[i+1:]...)
			p.LeaveHousehold()
			return p, nil
		}
	}
	return nil, ErrPersonNotInHousehold
}

// SetMainPerson moves the main person flag to the given member
func (h *Household) SetMainPerson(id uuid.UUID) error {
	target := h.member(id)
	if target == nil {
		return ErrPersonNotInHousehold
	}
	for _, p := range h.Members {
		p.FamilyMainPerson = p.ID == id
	}
	target.Touch()
	return nil
}

// Dissolve removes every member and returns them
func (h *Household) Dissolve() []*Person {
	members := h.Members
	for _, p := range members {
		p.LeaveHousehold()
	}
	h.Members = nil
	return members
}

// Validate checks the household rules for the given year
func (h *Household) Validate(year int) error {
	if len(h.Members) < 2 {
		return ErrHouseholdTooSmall
	}
	adults := 0
	mains := 0
	for _, p := range h.Members {
		if p.IsAdultIn(year) {
			adults++
		} else if p.AgeIn(year) < YouthMinAge {
			return ErrHouseholdMemberTooYoung
		}
		if p.FamilyMainPerson {
			mains++
			if !p.IsAdultIn(year) {
				return ErrMainPersonNotAdult
			}
			if p.Email == "" {
				return ErrMainPersonWithoutEmail
			}
		}
	}
	if adults > 2 {
		return ErrHouseholdTooManyAdults
	}
	if mains > 1 {
		return ErrHouseholdMainPerson
	}
	if mains == 0 {
		return ErrHouseholdMissingMain
	}
	return nil
}

func (h *Household) add(p *Person) {
	p.JoinHousehold(h.Key)
	h.Members = append(h.Members, p)
}

func (h *Household) member(id uuid.UUID) *Person {
	for _, p := range h.Members {
		if p.ID == id {
			return p
		}
	}
	return nil
}
