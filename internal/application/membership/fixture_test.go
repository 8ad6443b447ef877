package membership

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	auditapp "github.com/sac/membership/internal/application/audit"
	orgapp "github.com/sac/membership/internal/application/organization"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/event"
	"github.com/sac/membership/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var today = shared.NewDate(2024, time.March, 15)

type fixture struct {
	memberships *MembershipService
	households  *HouseholdService
	groups      *orgapp.GroupService

	people   *persistence.GormPersonRepository
	roles    *persistence.GormRoleRepository
	reasons  *persistence.GormTerminationReasonRepository
	invoices *persistence.GormExternalInvoiceRepository
	versions *persistence.GormVersionRepository

	bern *organization.Group
	uto  *organization.Group
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop(), "silent")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		people:   persistence.NewGormPersonRepository(db.DB),
		roles:    persistence.NewGormRoleRepository(db.DB),
		reasons:  persistence.NewGormTerminationReasonRepository(db.DB),
		invoices: persistence.NewGormExternalInvoiceRepository(db.DB),
		versions: persistence.NewGormVersionRepository(db.DB),
	}
	groups := persistence.NewGormGroupRepository(db.DB)
	tx := persistence.NewGormTransactor(db.DB)

	bus := event.NewInMemoryEventBus(nil)
	bus.Subscribe(auditapp.NewRecorder(f.versions))

	clock := func() time.Time { return today }
	f.groups = orgapp.NewGroupService(groups, f.roles, tx, bus).WithClock(clock)

	fees, err := invoicing.NewFeeSchedule(
		map[string]string{"adult": "127", "family": "228", "youth": "76"},
		map[string]string{"adult": "56", "family": "86", "youth": "32"},
	)
	require.NoError(t, err)

	deps := Dependencies{
		Tx:          tx,
		Groups:      groups,
		GroupFinder: f.groups,
		People:      f.people,
		Roles:       f.roles,
		Reasons:     f.reasons,
		Invoices:    f.invoices,
		Fees:        fees,
		Events:      bus,
		Clock:       clock,
	}
	f.memberships = NewMembershipService(deps)
	f.households = NewHouseholdService(deps)

	ctx := context.Background()
	root, err := f.groups.CreateRoot(ctx, "SAC/CAS")
	require.NoError(t, err)
	f.bern, err = f.groups.CreateGroup(ctx, orgapp.CreateGroupRequest{ParentID: root.ID, Type: "sektion", Name: "SAC Bern"})
	require.NoError(t, err)
	f.uto, err = f.groups.CreateGroup(ctx, orgapp.CreateGroupRequest{ParentID: root.ID, Type: "sektion", Name: "SAC Uto"})
	require.NoError(t, err)
	return f
}

func (f *fixture) person(t *testing.T, first string, birthYear int, email string) *people.Person {
	t.Helper()
	p, err := people.NewPerson(first, "Muster")
	require.NoError(t, err)
	require.NoError(t, p.SetBirthday(shared.NewDate(birthYear, time.June, 1)))
	if email != "" {
		require.NoError(t, p.SetEmail(email))
	}
	require.NoError(t, f.people.Save(context.Background(), p))
	return p
}

func (f *fixture) members(t *testing.T, layer *organization.Group) *organization.Group {
	t.Helper()
	g, err := f.groups.FindMembersGroup(context.Background(), layer.ID)
	require.NoError(t, err)
	return g
}

// role stores a role directly, bypassing the lifecycle rules
func (f *fixture) role(t *testing.T, p *people.Person, group *organization.Group, roleType membership.RoleType, kategorie membership.Beitragskategorie, startOn time.Time, endOn *time.Time) *membership.Role {
	t.Helper()
	r, err := membership.NewRole(p.ID, group, roleType, kategorie, startOn, endOn)
	require.NoError(t, err)
	require.NoError(t, f.roles.Save(context.Background(), r))
	return r
}

// stamm stores a Stammsektion membership for the whole current year
func (f *fixture) stamm(t *testing.T, p *people.Person, layer *organization.Group, kategorie membership.Beitragskategorie) *membership.Role {
	t.Helper()
	end := shared.EndOfYear(today)
	return f.role(t, p, f.members(t, layer), membership.RoleMitglied, kategorie, shared.NewDate(2024, time.January, 1), &end)
}

func (f *fixture) reload(t *testing.T, r *membership.Role) *membership.Role {
	t.Helper()
	got, err := f.roles.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) reloadPerson(t *testing.T, p *people.Person) *people.Person {
	t.Helper()
	got, err := f.people.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) activeRoles(t *testing.T, p *people.Person) membership.Roles {
	t.Helper()
	roles, err := f.roles.FindByPersonID(context.Background(), p.ID)
	require.NoError(t, err)
	return roles.ActiveOn(today)
}

func (f *fixture) events(t *testing.T, p *people.Person) []string {
	t.Helper()
	versions, err := f.versions.FindByMain(context.Background(), membership.AggregateTypePerson, p.ID)
	require.NoError(t, err)
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Event)
	}
	return out
}

// family builds a household of two adults and a ten year old child
func (f *fixture) family(t *testing.T) (main, partner, child *people.Person) {
	t.Helper()
	ctx := context.Background()
	main = f.person(t, "Anna", 1980, "anna@example.com")
	partner = f.person(t, "Beat", 1982, "")
	child = f.person(t, "Carla", 2014, "")
	_, err := f.households.AddMember(ctx, AddHouseholdMemberRequest{MainPersonID: main.ID, PersonID: partner.ID})
	require.NoError(t, err)
	_, err = f.households.AddMember(ctx, AddHouseholdMemberRequest{MainPersonID: main.ID, PersonID: child.ID})
	require.NoError(t, err)
	return f.reloadPerson(t, main), f.reloadPerson(t, partner), f.reloadPerson(t, child)
}
