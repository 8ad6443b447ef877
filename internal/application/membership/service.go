package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/logger"
	"github.com/sac/membership/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// GroupFinder looks up the well-known groups of a section
type GroupFinder interface {
	FindMembersGroup(ctx context.Context, layerID uuid.UUID) (*organization.Group, error)
	FindNeuanmeldungenGroups(ctx context.Context, layerID uuid.UUID) ([]*organization.Group, error)
}

// Dependencies are the collaborators of the membership services
type Dependencies struct {
	Tx          shared.Transactor
	Groups      organization.GroupRepository
	GroupFinder GroupFinder
	People      people.PersonRepository
	Roles       membership.RoleRepository
	Reasons     membership.TerminationReasonRepository
	Invoices    invoicing.ExternalInvoiceRepository
	// Fees may be nil; no invoices are recorded then
	Fees   *invoicing.FeeSchedule
	Events shared.EventPublisher
	Clock  shared.Clock
}

// base holds what the membership and household services share
type base struct {
	Dependencies
}

func newBase(deps Dependencies) base {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock
	}
	return base{Dependencies: deps}
}

// mutate runs fn in one transaction under a fresh mutation ID and span
func (b *base) mutate(ctx context.Context, op string, fn func(ctx context.Context, result *MutationResult) error, keyValues ...any) (*MutationResult, error) {
	result := &MutationResult{MutationID: uuid.New()}
	ctx, _ = logger.WithMutationID(ctx, logger.FromContext(ctx), result.MutationID.String())
	ctx, span := telemetry.StartSpan(ctx, "membership."+op,
		append(keyValues, telemetry.AttrMutationID, result.MutationID)...)
	defer span.End()

	err := b.Tx.InTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, result)
	})
	telemetry.Default().RecordMutation(ctx, op, err)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Membership mutation rejected", zap.String("operation", op), zap.Error(err))
		return nil, err
	}
	telemetry.SetOK(span)
	logger.L(ctx).Info("Membership mutation applied", zap.String("operation", op), zap.Int("roles", len(result.Roles)))
	return result, nil
}

// household returns the person followed by the other household members
func (b *base) household(ctx context.Context, p *people.Person) ([]*people.Person, error) {
	if !p.InHousehold() {
		return []*people.Person{p}, nil
	}
	members, err := b.People.FindByHouseholdKey(ctx, p.HouseholdKey)
	if err != nil {
		return nil, err
	}
	out := []*people.Person{p}
	for _, m := range members {
		if m.ID != p.ID {
			out = append(out, m)
		}
	}
	return out, nil
}

// endOrDelete ends the role yesterday, or deletes it when it starts today
// or later. Returns true when the role was deleted.
func (b *base) endOrDelete(ctx context.Context, role *membership.Role, today time.Time) (bool, error) {
	if !role.StartOn.Before(today) {
		return true, b.Roles.Delete(ctx, role.ID)
	}
	yesterday := shared.Yesterday(today)
	if role.EndOn != nil && !role.EndOn.After(yesterday) {
		return false, nil
	}
	if err := role.End(yesterday); err != nil {
		return false, err
	}
	return false, b.Roles.Save(ctx, role)
}

// invoice records a draft membership invoice for a new role. Family
// memberships are billed to the main person only.
func (b *base) invoice(ctx context.Context, p *people.Person, role *membership.Role, today time.Time) error {
	if b.Fees == nil {
		return nil
	}
	if role.Beitragskategorie == membership.BeitragskategorieFamily && !p.FamilyMainPerson {
		return nil
	}
	inv, err := invoicing.NewMembershipInvoice(role, b.Fees, today)
	if err != nil {
		return err
	}
	return b.Invoices.Save(ctx, inv)
}

func (b *base) publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.Events == nil || len(events) == 0 {
		return nil
	}
	return b.Events.Publish(ctx, events...)
}

// recategorize recalculates the Beitragskategorie of the active membership
// roles of the persons. A changed role ends yesterday and is replaced by a
// role starting today; roles starting today are updated in place.
// Terminated roles keep their category.
func (b *base) recategorize(ctx context.Context, persons []*people.Person, today time.Time, result *MutationResult) error {
	for _, p := range persons {
		want, ok := membership.CalculateBeitragskategorie(p, today.Year())
		if !ok {
			continue
		}
		roles, err := b.Roles.FindByPersonID(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, r := range roles.ActiveOn(today).OfType(membership.RoleMitglied, membership.RoleMitgliedZusatzsektion) {
			if r.Terminated || r.Beitragskategorie == want {
				continue
			}
			from := r.Beitragskategorie

			if r.StartsOn(today) {
				r.ChangeBeitragskategorie(want)
				if err := b.Roles.Save(ctx, r); err != nil {
					return err
				}
				result.add(r)
				if err := b.publish(ctx, membership.NewBeitragskategorieChangedEvent(r, r, from)); err != nil {
					return err
				}
				continue
			}

			group, err := b.Groups.FindByID(ctx, r.GroupID)
			if err != nil {
				return err
			}
			next, err := membership.NewRole(p.ID, group, r.Type, want, today, r.EndOn)
			if err != nil {
				return err
			}
			if err := r.End(shared.Yesterday(today)); err != nil {
				return err
			}
			if err := b.Roles.Save(ctx, r); err != nil {
				return err
			}
			if err := b.Roles.Save(ctx, next); err != nil {
				return err
			}
			result.add(r, next)
			if err := b.publish(ctx, membership.NewBeitragskategorieChangedEvent(r, next, from)); err != nil {
				return err
			}
		}
	}
	return nil
}

func without(roles membership.Roles, id uuid.UUID) membership.Roles {
	return roles.Filter(func(r *membership.Role) bool { return r.ID != id })
}

func personIDs(persons []*people.Person) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(persons))
	for _, p := range persons {
		ids = append(ids, p.ID)
	}
	return ids
}
