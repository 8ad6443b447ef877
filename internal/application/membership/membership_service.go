package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/application/validation"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/telemetry"
)

// MembershipService runs the membership lifecycle: applications, joins,
// section switches, terminations and their undo.
type MembershipService struct {
	base
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(deps Dependencies) *MembershipService {
	return &MembershipService{base: newBase(deps)}
}

// Apply registers a pending application in the application group of a section
func (s *MembershipService) Apply(ctx context.Context, req ApplyRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()
	roleType := membership.RoleNeuanmeldung
	if req.Zusatzsektion {
		roleType = membership.RoleNeuanmeldungZusatzsektion
	}

	return s.mutate(ctx, "apply", func(ctx context.Context, result *MutationResult) error {
		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		group, err := s.applicationGroup(ctx, req.LayerID)
		if err != nil {
			return err
		}
		roles, err := s.Roles.FindByPersonID(ctx, person.ID)
		if err != nil {
			return err
		}
		if len(roles.ActiveOn(today).InLayer(req.LayerID).OfType(membership.RoleNeuanmeldung, membership.RoleNeuanmeldungZusatzsektion)) > 0 {
			return membership.ErrPendingApplicationExists
		}

		stamm := roles.Stammsektion(today)
		if req.Zusatzsektion {
			if stamm == nil {
				return membership.ErrZusatzsektionUncovered
			}
			if stamm.LayerGroupID == req.LayerID {
				return membership.ErrZusatzsektionInStamm
			}
		} else if stamm != nil {
			return membership.ErrOverlappingStammsektion
		}

		kategorie, ok := membership.CalculateBeitragskategorie(person, today.Year())
		if !ok {
			return ErrNotEligible
		}
		role, err := membership.NewRole(person.ID, group, roleType, kategorie, today, nil)
		if err != nil {
			return err
		}
		if err := s.Roles.Save(ctx, role); err != nil {
			return err
		}
		result.add(role)
		return nil
	}, telemetry.AttrPersonID, req.PersonID, telemetry.AttrLayerID, req.LayerID)
}

// Join approves an application. The application role ends and a membership
// role starts today in the members group of the section. When a family main
// person joins a Stammsektion the household members join with them.
func (s *MembershipService) Join(ctx context.Context, req JoinRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "join", func(ctx context.Context, result *MutationResult) error {
		application, err := s.Roles.FindByID(ctx, req.RoleID)
		if err != nil {
			return fmt.Errorf("application: %w", err)
		}
		approved, ok := application.Type.ApprovedType()
		if !ok {
			return ErrNotAnApplication
		}
		if application.EndOn != nil && application.EndOn.Before(today) {
			return ErrApplicationClosed
		}

		person, err := s.People.FindByID(ctx, application.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		members, err := s.GroupFinder.FindMembersGroup(ctx, application.LayerGroupID)
		if err != nil {
			return err
		}

		role, err := s.admit(ctx, person, application, approved, members, application.Beitragskategorie, today)
		if err != nil {
			return err
		}
		result.add(role)

		if approved != membership.RoleMitglied || !person.FamilyMainPerson {
			return nil
		}
		household, err := s.household(ctx, person)
		if err != nil {
			return err
		}
		for _, member := range household[1:] {
			roles, err := s.Roles.FindByPersonID(ctx, member.ID)
			if err != nil {
				return err
			}
			if stamm := roles.Stammsektion(today); stamm != nil && stamm.LayerGroupID == application.LayerGroupID {
				continue
			}
			var pending *membership.Role
			if open := roles.ActiveOn(today).InLayer(application.LayerGroupID).OfType(membership.RoleNeuanmeldung); len(open) > 0 {
				pending = open[0]
			}
			role, err := s.admit(ctx, member, pending, membership.RoleMitglied, members, membership.BeitragskategorieFamily, today)
			if err != nil {
				return fmt.Errorf("household member %s: %w", member.FullName(), err)
			}
			result.add(role)
		}
		return nil
	})
}

// Reject removes a pending application
func (s *MembershipService) Reject(ctx context.Context, req RejectRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "reject", func(ctx context.Context, result *MutationResult) error {
		application, err := s.Roles.FindByID(ctx, req.RoleID)
		if err != nil {
			return fmt.Errorf("application: %w", err)
		}
		if !application.Type.IsNeuanmeldung() {
			return ErrNotAnApplication
		}
		if err := s.Roles.Delete(ctx, application.ID); err != nil {
			return err
		}
		result.add(application)
		return s.publish(ctx, membership.NewApplicationRejectedEvent(application))
	})
}

// JoinZusatzsektion adds a Zusatzsektion membership without an application
// round; an open Zusatzsektion application in the section is closed.
func (s *MembershipService) JoinZusatzsektion(ctx context.Context, req JoinZusatzsektionRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "join_zusatzsektion", func(ctx context.Context, result *MutationResult) error {
		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		members, err := s.GroupFinder.FindMembersGroup(ctx, req.LayerID)
		if err != nil {
			return err
		}
		roles, err := s.Roles.FindByPersonID(ctx, person.ID)
		if err != nil {
			return err
		}
		var pending *membership.Role
		if open := roles.ActiveOn(today).InLayer(req.LayerID).OfType(membership.RoleNeuanmeldungZusatzsektion); len(open) > 0 {
			pending = open[0]
		}
		role, err := s.admit(ctx, person, pending, membership.RoleMitgliedZusatzsektion, members, "", today)
		if err != nil {
			return err
		}
		result.add(role)
		return nil
	}, telemetry.AttrPersonID, req.PersonID, telemetry.AttrLayerID, req.LayerID)
}

// admit closes the application (when given) and creates the membership
// role after checking the membership rules
func (s *MembershipService) admit(ctx context.Context, p *people.Person, application *membership.Role, roleType membership.RoleType, members *organization.Group, fallback membership.Beitragskategorie, today time.Time) (*membership.Role, error) {
	roles, err := s.Roles.FindByPersonID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if application != nil {
		deleted, err := s.endOrDelete(ctx, application, today)
		if err != nil {
			return nil, err
		}
		if deleted {
			roles = without(roles, application.ID)
		}
	}

	kategorie, ok := membership.CalculateBeitragskategorie(p, today.Year())
	if !ok {
		kategorie = fallback
	}
	if kategorie == "" {
		return nil, ErrNotEligible
	}

	role, err := membership.NewMembershipRole(p.ID, members, roleType, kategorie, today)
	if err != nil {
		return nil, err
	}
	if err := append(roles, role).Validate(); err != nil {
		return nil, err
	}
	if err := s.Roles.Save(ctx, role); err != nil {
		return nil, err
	}
	if err := s.invoice(ctx, p, role, today); err != nil {
		return nil, err
	}
	return role, s.publish(ctx, membership.NewMembershipJoinedEvent(role))
}

// SwitchStammsektion ends the Stammsektion membership yesterday and starts
// a new one in the target section today. A Zusatzsektion held in the target
// section ends as well. Family members follow the main person.
func (s *MembershipService) SwitchStammsektion(ctx context.Context, req SwitchStammsektionRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "switch_stammsektion", func(ctx context.Context, result *MutationResult) error {
		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		if person.InHousehold() && !person.FamilyMainPerson {
			return ErrFamilyMemberSwitch
		}
		members, err := s.GroupFinder.FindMembersGroup(ctx, req.LayerID)
		if err != nil {
			return err
		}
		household, err := s.household(ctx, person)
		if err != nil {
			return err
		}

		for _, p := range household {
			main := p.ID == person.ID
			roles, err := s.Roles.FindByPersonID(ctx, p.ID)
			if err != nil {
				return err
			}
			stamm := roles.Stammsektion(today)
			switch {
			case stamm == nil && main:
				return membership.ErrNoActiveMembership
			case stamm == nil:
				continue
			case stamm.LayerGroupID == req.LayerID && main:
				return ErrAlreadyInSection
			case stamm.LayerGroupID == req.LayerID:
				continue
			case stamm.Terminated:
				return membership.ErrRoleAlreadyTerminated
			}

			from := stamm.LayerGroupID
			kategorie := stamm.Beitragskategorie
			if k, ok := membership.CalculateBeitragskategorie(p, today.Year()); ok {
				kategorie = k
			}

			ending := append(membership.Roles{stamm}, roles.Zusatzsektionen(today).InLayer(req.LayerID)...)
			for _, r := range ending {
				deleted, err := s.endOrDelete(ctx, r, today)
				if err != nil {
					return err
				}
				if deleted {
					roles = without(roles, r.ID)
				} else {
					result.add(r)
				}
			}

			next, err := membership.NewMembershipRole(p.ID, members, membership.RoleMitglied, kategorie, today)
			if err != nil {
				return err
			}
			if err := append(roles, next).Validate(); err != nil {
				return err
			}
			if err := s.Roles.Save(ctx, next); err != nil {
				return err
			}
			result.add(next)
			if err := s.invoice(ctx, p, next, today); err != nil {
				return err
			}
			if err := s.publish(ctx, membership.NewStammsektionSwitchedEvent(p.ID, from, next)); err != nil {
				return err
			}
		}
		return nil
	}, telemetry.AttrPersonID, req.PersonID, telemetry.AttrLayerID, req.LayerID)
}

// Terminate ends every membership of a person (and of the household when
// the person is the family main person) on the termination date
func (s *MembershipService) Terminate(ctx context.Context, req TerminateRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()
	terminateOn := shared.Date(req.TerminateOn)
	if err := membership.CheckTerminateOn(terminateOn, today); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "terminate", func(ctx context.Context, result *MutationResult) error {
		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		if person.InHousehold() && !person.FamilyMainPerson {
			return membership.ErrFamilyMemberTermination
		}
		if err := s.checkReason(ctx, req.ReasonID); err != nil {
			return err
		}
		household, err := s.household(ctx, person)
		if err != nil {
			return err
		}

		terminated := make([]uuid.UUID, 0, len(household))
		for _, p := range household {
			roles, err := s.Roles.FindByPersonID(ctx, p.ID)
			if err != nil {
				return err
			}
			if roles.Stammsektion(today) == nil {
				if p.ID == person.ID {
					return membership.ErrNoActiveMembership
				}
				continue
			}

			active := roles.ActiveOn(today).Filter(func(r *membership.Role) bool {
				return r.Type.IsMembership() || r.Type.EndsWithMembership()
			})
			targets := make(membership.Roles, 0, len(active))
			for _, r := range active {
				if r.Terminated && r.Type != membership.RoleMitglied {
					// terminated earlier on its own; it keeps its mutation and
					// reason and only ends no later than the Stammsektion
					if r.EndOn != nil && !r.EndOn.After(terminateOn) {
						continue
					}
					if err := r.End(terminateOn); err != nil {
						return fmt.Errorf("role %s: %w", r.Type.Label(), err)
					}
					if err := s.Roles.Save(ctx, r); err != nil {
						return err
					}
					result.add(r)
					continue
				}
				if err := r.Terminate(terminateOn, req.ReasonID, result.MutationID); err != nil {
					return fmt.Errorf("role %s: %w", r.Type.Label(), err)
				}
				if err := s.Roles.Save(ctx, r); err != nil {
					return err
				}
				targets = append(targets, r)
			}
			result.add(targets...)
			terminated = append(terminated, p.ID)
			if err := s.publish(ctx, membership.NewMembershipTerminatedEvent(p.ID, result.MutationID, targets, terminateOn, req.ReasonID, false)); err != nil {
				return err
			}
		}

		person.SetSubscriptions(req.SubscribeNewsletter, req.SubscribeFundraising, req.DataRetentionConsent)
		if err := s.People.Save(ctx, person); err != nil {
			return err
		}
		return s.cancelInvoices(ctx, terminated, nil, today)
	}, telemetry.AttrPersonID, req.PersonID)
}

// TerminateZusatzsektion ends the Zusatzsektion membership of a person in
// one section. Family Zusatzsektionen are terminated for the whole household
// through the family main person.
func (s *MembershipService) TerminateZusatzsektion(ctx context.Context, req TerminateZusatzsektionRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()
	terminateOn := shared.Date(req.TerminateOn)
	if err := membership.CheckTerminateOn(terminateOn, today); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "terminate_zusatzsektion", func(ctx context.Context, result *MutationResult) error {
		person, err := s.People.FindByID(ctx, req.PersonID)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		if err := s.checkReason(ctx, req.ReasonID); err != nil {
			return err
		}
		roles, err := s.Roles.FindByPersonID(ctx, person.ID)
		if err != nil {
			return err
		}
		own := roles.Zusatzsektionen(today).InLayer(req.LayerID)
		if len(own) == 0 {
			return ErrNoActiveZusatzsektion
		}

		household := []*people.Person{person}
		if own[0].Beitragskategorie == membership.BeitragskategorieFamily {
			if !person.FamilyMainPerson {
				return membership.ErrFamilyMemberTermination
			}
			if household, err = s.household(ctx, person); err != nil {
				return err
			}
		}

		var linked []uuid.UUID
		for _, p := range household {
			targets := own
			if p.ID != person.ID {
				memberRoles, err := s.Roles.FindByPersonID(ctx, p.ID)
				if err != nil {
					return err
				}
				targets = memberRoles.Zusatzsektionen(today).InLayer(req.LayerID)
			}
			for _, r := range targets {
				if err := r.Terminate(terminateOn, req.ReasonID, result.MutationID); err != nil {
					return err
				}
				if err := s.Roles.Save(ctx, r); err != nil {
					return err
				}
				linked = append(linked, r.ID)
			}
			if len(targets) == 0 {
				continue
			}
			result.add(targets...)
			if err := s.publish(ctx, membership.NewMembershipTerminatedEvent(p.ID, result.MutationID, targets, terminateOn, req.ReasonID, true)); err != nil {
				return err
			}
		}
		return s.cancelInvoices(ctx, nil, linked, today)
	}, telemetry.AttrPersonID, req.PersonID, telemetry.AttrLayerID, req.LayerID)
}

// UndoTermination restores every role terminated together with the given role
func (s *MembershipService) UndoTermination(ctx context.Context, req UndoTerminationRequest) (*MutationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	today := s.Clock()

	return s.mutate(ctx, "undo_termination", func(ctx context.Context, result *MutationResult) error {
		role, err := s.Roles.FindByID(ctx, req.RoleID)
		if err != nil {
			return fmt.Errorf("role: %w", err)
		}
		if !role.Terminated {
			return membership.ErrRoleNotTerminated
		}

		affected := membership.Roles{role}
		mutationID := uuid.Nil
		if role.MutationID != nil {
			mutationID = *role.MutationID
			found, err := s.Roles.FindByMutationID(ctx, mutationID)
			if err != nil {
				return err
			}
			affected = found.Filter(func(r *membership.Role) bool { return r.Terminated })
		}

		byPerson := map[uuid.UUID]membership.Roles{}
		order := make([]uuid.UUID, 0)
		for _, r := range affected {
			if err := r.UndoTermination(today); err != nil {
				return fmt.Errorf("role %s: %w", r.Type.Label(), err)
			}
			if _, seen := byPerson[r.PersonID]; !seen {
				order = append(order, r.PersonID)
			}
			byPerson[r.PersonID] = append(byPerson[r.PersonID], r)
		}

		for _, personID := range order {
			restored := byPerson[personID]
			current, err := s.Roles.FindByPersonID(ctx, personID)
			if err != nil {
				return err
			}
			for _, r := range restored {
				current = append(without(current, r.ID), r)
			}
			if err := current.Validate(); err != nil {
				return err
			}
			for _, r := range restored {
				if err := s.Roles.Save(ctx, r); err != nil {
					return err
				}
			}
			result.add(restored...)
			if err := s.publish(ctx, membership.NewTerminationUndoneEvent(personID, mutationID, restored)); err != nil {
				return err
			}
		}
		return nil
	})
}

// TerminationReasons lists the selectable termination reasons
func (s *MembershipService) TerminationReasons(ctx context.Context) ([]*membership.TerminationReason, error) {
	return s.Reasons.FindAll(ctx)
}

// PersonRoles returns every role of a person, oldest first
func (s *MembershipService) PersonRoles(ctx context.Context, personID uuid.UUID) (membership.Roles, error) {
	roles, err := s.Roles.FindByPersonID(ctx, personID)
	if err != nil {
		return nil, err
	}
	roles.SortByStart()
	return roles, nil
}

func (s *MembershipService) checkReason(ctx context.Context, reasonID *uuid.UUID) error {
	if reasonID == nil {
		return nil
	}
	if _, err := s.Reasons.FindByID(ctx, *reasonID); err != nil {
		return fmt.Errorf("termination reason: %w", err)
	}
	return nil
}

// cancelInvoices cancels the open invoices of the current year, either of
// whole persons or linked to single roles
func (s *MembershipService) cancelInvoices(ctx context.Context, persons, roleIDs []uuid.UUID, today time.Time) error {
	if s.Invoices == nil {
		return nil
	}
	var invoices []*invoicing.ExternalInvoice
	if len(persons) > 0 {
		found, err := s.Invoices.FindByPersonIDs(ctx, persons, today.Year())
		if err != nil {
			return err
		}
		invoices = append(invoices, found...)
	}
	for _, id := range roleIDs {
		found, err := s.Invoices.FindByLinkID(ctx, id)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		invoices = append(invoices, found...)
	}
	for _, inv := range invoices {
		if !inv.State.IsCancellable() {
			continue
		}
		if err := inv.Cancel(today); err != nil {
			return err
		}
		if err := s.Invoices.Save(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// applicationGroup picks the group new applications are filed in. Sections
// approving applications themselves take precedence over the plain
// Neuanmeldungen group.
func (s *MembershipService) applicationGroup(ctx context.Context, layerID uuid.UUID) (*organization.Group, error) {
	groups, err := s.GroupFinder.FindNeuanmeldungenGroups(ctx, layerID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoApplicationGroup
	}
	for _, g := range groups {
		if g.Type == organization.GroupTypeSektionsNeuanmeldungenSektion {
			return g, nil
		}
	}
	return groups[0], nil
}
