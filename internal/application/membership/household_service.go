package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/application/validation"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/telemetry"
)

// Household change kinds recorded on HouseholdChanged events
const (
	HouseholdChangeAdd        = "add"
	HouseholdChangeRemove     = "remove"
	HouseholdChangeMainPerson = "main_person"
	HouseholdChangeDissolve   = "dissolve"
)

// ErrSamePerson is returned when a person is added to their own household
var ErrSamePerson = shared.NewDomainError("SAME_PERSON", "A person cannot be added to their own household")

// HouseholdService mutates households and re-categorizes the memberships
// of the persons involved
type HouseholdService struct {
	base
}

// NewHouseholdService creates a new HouseholdService
func NewHouseholdService(deps Dependencies) *HouseholdService {
	return &HouseholdService{base: newBase(deps)}
}

// AddMember adds a person to the household of the main person. A new
// household is founded with the main person when there is none yet.
func (s *HouseholdService) AddMember(ctx context.Context, req AddHouseholdMemberRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.MainPersonID == req.PersonID {
		return nil, ErrSamePerson
	}
	today := s.Clock()

	return s.mutate(ctx, "household_add", func(ctx context.Context, result *MutationResult) error {
		anchor, err := s.People.FindByID(ctx, req.MainPersonID)
		if err != nil {
			return fmt.Errorf("main person: %w", err)
		}
		var h *people.Household
		if anchor.InHousehold() {
			if h, err = s.load(ctx, anchor); err != nil {
				return err
			}
		} else {
			h = people.NewHousehold(anchor)
			if err := h.SetMainPerson(anchor.ID); err != nil {
				return err
			}
		}

		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		if err := h.Add(person); err != nil {
			return err
		}
		if err := h.Validate(today.Year()); err != nil {
			return err
		}
		if err := s.checkSameSection(ctx, h.Members, today); err != nil {
			return err
		}
		return s.apply(ctx, h.Key, HouseholdChangeAdd, anchor, h.Members, h.Members, today, result)
	}, telemetry.AttrPersonID, req.PersonID)
}

// RemoveMember removes a person from their household. A household left
// with a single person is dissolved.
func (s *HouseholdService) RemoveMember(ctx context.Context, req HouseholdRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "household_remove", func(ctx context.Context, result *MutationResult) error {
		person, h, err := s.loadFor(ctx, req.PersonID)
		if err != nil {
			return err
		}
		removed, err := h.Remove(person.ID)
		if err != nil {
			return err
		}
		changed := []*people.Person{removed}
		if len(h.Members) < 2 {
			changed = append(changed, h.Dissolve()...)
		} else if err := h.Validate(today.Year()); err != nil {
			return err
		} else {
			changed = append(changed, h.Members...)
		}
		return s.apply(ctx, h.Key, HouseholdChangeRemove, removed, changed, changed, today, result)
	}, telemetry.AttrPersonID, req.PersonID)
}

// SetMainPerson makes the person the family main person of their household
func (s *HouseholdService) SetMainPerson(ctx context.Context, req HouseholdRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "household_main_person", func(ctx context.Context, result *MutationResult) error {
		person, h, err := s.loadFor(ctx, req.PersonID)
		if err != nil {
			return err
		}
		if err := h.SetMainPerson(person.ID); err != nil {
			return err
		}
		if err := h.Validate(today.Year()); err != nil {
			return err
		}
		return s.apply(ctx, h.Key, HouseholdChangeMainPerson, person, h.Members, nil, today, result)
	}, telemetry.AttrPersonID, req.PersonID)
}

// Dissolve removes every member from the household of the person
func (s *HouseholdService) Dissolve(ctx context.Context, req HouseholdRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "household_dissolve", func(ctx context.Context, result *MutationResult) error {
		person, h, err := s.loadFor(ctx, req.PersonID)
		if err != nil {
			return err
		}
		key := h.Key
		members := h.Dissolve()
		return s.apply(ctx, key, HouseholdChangeDissolve, person, members, members, today, result)
	}, telemetry.AttrPersonID, req.PersonID)
}

// Members returns the household of a person
func (s *HouseholdService) Members(ctx context.Context, personID uuid.UUID) (*people.Household, error) {
	_, h, err := s.loadFor(ctx, personID)
	return h, err
}

// apply saves the persons, re-categorizes the memberships of recategorize
// and publishes the change
func (s *HouseholdService) apply(ctx context.Context, key, change string, subject *people.Person, save, recategorize []*people.Person, today time.Time, result *MutationResult) error {
	for _, p := range save {
		if err := s.People.Save(ctx, p); err != nil {
			return err
		}
	}
	if err := s.recategorize(ctx, recategorize, today, result); err != nil {
		return err
	}
	return s.publish(ctx, membership.NewHouseholdChangedEvent(subject.ID, key, change, personIDs(save)))
}

func (s *HouseholdService) loadFor(ctx context.Context, personID uuid.UUID) (*people.Person, *people.Household, error) {
	person, err := s.People.FindByID(ctx, personID)
	if err != nil {
		return nil, nil, fmt.Errorf("person: %w", err)
	}
	if !person.InHousehold() {
		return nil, nil, people.ErrPersonNotInHousehold
	}
	h, err := s.load(ctx, person)
	if err != nil {
		return nil, nil, err
	}
	// use the household's own instance so changes apply to one object
	for _, m := range h.Members {
		if m.ID == person.ID {
			person = m
		}
	}
	return person, h, nil
}

func (s *HouseholdService) load(ctx context.Context, p *people.Person) (*people.Household, error) {
	members, err := s.People.FindByHouseholdKey(ctx, p.HouseholdKey)
	if err != nil {
		return nil, err
	}
	return people.LoadHousehold(p.HouseholdKey, members), nil
}

// checkSameSection requires all household members with a Stammsektion to
// hold it in the same section
func (s *HouseholdService) checkSameSection(ctx context.Context, members []*people.Person, today time.Time) error {
	roles, err := s.Roles.FindByPersonIDs(ctx, personIDs(members))
	if err != nil {
		return err
	}
	var layer *membership.Role
	for _, p := range members {
		stamm := roles.ForPerson(p.ID).Stammsektion(today)
		if stamm == nil {
			continue
		}
		if layer != nil && layer.LayerGroupID != stamm.LayerGroupID {
			return membership.ErrFamilyCategoryMismatch
		}
		layer = stamm
	}
	return nil
}
