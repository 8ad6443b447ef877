package importapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/csvimport"
)

// MembersGroupFinder finds the members group of a layer
type MembersGroupFinder interface {
	FindMembersGroup(ctx context.Context, layerID uuid.UUID) (*organization.Group, error)
}

// migratedRoles maps the legacy role names to the role types carried over
var migratedRoles = map[string]membership.RoleType{
	"mitglied":               membership.RoleMitglied,
	"stammsektion":           membership.RoleMitglied,
	"mitglied_stammsektion":  membership.RoleMitglied,
	"zusatzsektion":          membership.RoleMitgliedZusatzsektion,
	"mitglied_zusatzsektion": membership.RoleMitgliedZusatzsektion,
	"ehrenmitglied":          membership.RoleEhrenmitglied,
	"beguenstigt":            membership.RoleBeguenstigt,
	"begünstigt":             membership.RoleBeguenstigt,
}

// MembershipImporter loads section memberships and the roles that come
// with them
type MembershipImporter struct {
	people  people.PersonRepository
	groups  organization.GroupRepository
	finder  MembersGroupFinder
	roles   membership.RoleRepository
	reasons membership.TerminationReasonRepository
	clock   shared.Clock
}

// NewMembershipImporter creates a membership importer
func NewMembershipImporter(
	persons people.PersonRepository,
	groups organization.GroupRepository,
	finder MembersGroupFinder,
	roles membership.RoleRepository,
	reasons membership.TerminationReasonRepository,
) *MembershipImporter {
	return &MembershipImporter{
		people:  persons,
		groups:  groups,
		finder:  finder,
		roles:   roles,
		reasons: reasons,
		clock:   shared.SystemClock,
	}
}

// WithClock replaces the clock used for "today"
func (i *MembershipImporter) WithClock(clock shared.Clock) *MembershipImporter {
	i.clock = clock
	return i
}

// Kind implements Importer
func (i *MembershipImporter) Kind() bulk.ImporterKind {
	return bulk.ImporterMemberships
}

// Rules implements Importer
func (i *MembershipImporter) Rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("navision_id").Required().Int().Build(),
		csvimport.Field("section_navision_id").Required().Int().Build(),
		csvimport.Field("role").Required().Build(),
		csvimport.Field("beitragskategorie").Custom(validateBeitragskategorie).Build(),
		csvimport.Field("start_on").Required().Date().Build(),
		csvimport.Field("end_on").Date().Build(),
		csvimport.Field("terminated").Bool().Build(),
	}
}

func validateBeitragskategorie(value string) error {
	if _, ok := membership.ParseBeitragskategorie(value); !ok {
		return fmt.Errorf("unknown Beitragskategorie")
	}
	return nil
}

// Batches runs Stammsektion rows before the Zusatzsektion rows they back.
// Rows of the same person never share a batch.
func (i *MembershipImporter) Batches(rows []*csvimport.Row, _ *csvimport.Report) [][]*csvimport.Row {
	var stamm, zusatz []*csvimport.Row
	for _, row := range rows {
		if t, ok := migratedRole(row.Get("role")); ok && t == membership.RoleMitgliedZusatzsektion {
			zusatz = append(zusatz, row)
		} else {
			stamm = append(stamm, row)
		}
	}
	return append(roundsPerPerson(stamm), roundsPerPerson(zusatz)...)
}

// roundsPerPerson puts the n-th row of every person into batch n
func roundsPerPerson(rows []*csvimport.Row) [][]*csvimport.Row {
	var rounds [][]*csvimport.Row
	seen := make(map[string]int)
	for _, row := range rows {
		n := seen[row.Get("navision_id")]
		seen[row.Get("navision_id")] = n + 1
		for len(rounds) <= n {
			rounds = append(rounds, nil)
		}
		rounds[n] = append(rounds[n], row)
	}
	return rounds
}

func migratedRole(name string) (membership.RoleType, bool) {
	t, ok := migratedRoles[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ImportRow creates one role
func (i *MembershipImporter) ImportRow(ctx context.Context, row *csvimport.Row) (string, error) {
	roleType, ok := migratedRole(row.Get("role"))
	if !ok {
		return fmt.Sprintf("role %s is not migrated, row skipped", row.Get("role")), nil
	}

	nav, _ := strconv.ParseInt(row.Get("navision_id"), 10, 64)
	person, err := i.people.FindByMembershipNumber(ctx, nav)
	if errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("person %d not found", nav)
	}
	if err != nil {
		return "", err
	}

	sectionNav, _ := strconv.ParseInt(row.Get("section_navision_id"), 10, 64)
	section, err := i.groups.FindByNavisionID(ctx, sectionNav)
	if errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("section %d not found", sectionNav)
	}
	if err != nil {
		return "", err
	}
	if !section.IsLayer() {
		return "", fmt.Errorf("group %d is not a section", sectionNav)
	}
	group, err := i.finder.FindMembersGroup(ctx, section.ID)
	if err != nil {
		return "", err
	}

	startOn, _ := csvimport.ParseDate(row.Get("start_on"))
	endOn, _ := csvimport.ParseOptionalDate(row.Get("end_on"))
	terminated, _ := csvimport.ParseBool(row.Get("terminated"))
	if terminated && endOn == nil {
		return "", fmt.Errorf("terminated role needs end_on")
	}
	if endOn == nil && roleType.IsMembership() {
		e := shared.EndOfYear(latest(startOn, i.clock()))
		endOn = &e
	}

	var kategorie membership.Beitragskategorie
	if roleType.RequiresBeitragskategorie() {
		if kategorie, ok = membership.ParseBeitragskategorie(row.Get("beitragskategorie")); !ok {
			if kategorie, ok = membership.CalculateBeitragskategorie(person, startOn.Year()); !ok {
				return "", fmt.Errorf("no Beitragskategorie given and none can be derived")
			}
		}
	}

	role, err := membership.NewRole(person.ID, group, roleType, kategorie, startOn, endOn)
	if err != nil {
		return "", err
	}

	existing, err := i.roles.FindByPersonID(ctx, person.ID)
	if err != nil {
		return "", err
	}
	for _, r := range existing {
		if r.GroupID == role.GroupID && r.Type == role.Type && shared.SameDate(r.StartOn, role.StartOn) {
			return "role already imported, row skipped", nil
		}
	}

	var warning string
	if terminated {
		role.Terminated = true
		if roleType.IsMembership() {
			previous := shared.EndOfYear(*endOn)
			role.EndOnBeforeTermination = &previous
		}
		if code := row.Get("termination_reason"); code != "" {
			reason, err := i.reasons.FindByCode(ctx, strings.ToLower(code))
			switch {
			case err == nil:
				role.TerminationReasonID = &reason.ID
			case errors.Is(err, shared.ErrNotFound):
				warning = fmt.Sprintf("unknown termination reason %s ignored", code)
			default:
				return "", err
			}
		}
	}

	if err := append(existing, role).Validate(); err != nil {
		return "", err
	}
	if err := i.roles.Save(ctx, role); err != nil {
		return "", err
	}
	return warning, nil
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
