package membership

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sektionFixture struct {
	layer      *organization.Group
	mitglieder *organization.Group
	neu        *organization.Group
}

func newSektion(t *testing.T, root *organization.Group, name string) sektionFixture {
	t.Helper()
	layer, err := organization.NewGroup(root, organization.GroupTypeSektion, name)
	require.NoError(t, err)
	mitglieder, err := organization.NewGroup(layer, organization.GroupTypeSektionsMitglieder, "Mitglieder")
	require.NoError(t, err)
	neu, err := organization.NewGroup(layer, organization.GroupTypeSektionsNeuanmeldungenNv, "Neuanmeldungen")
	require.NoError(t, err)
	return sektionFixture{layer: layer, mitglieder: mitglieder, neu: neu}
}

func newRoot(t *testing.T) *organization.Group {
	t.Helper()
	root, err := organization.NewRootGroup("SAC/CAS")
	require.NoError(t, err)
	return root
}

func personBornIn(t *testing.T, year int) *people.Person {
	t.Helper()
	p, err := people.NewPerson("Edmund", "Hillary")
	require.NoError(t, err)
	require.NoError(t, p.SetBirthday(shared.NewDate(year, time.March, 1)))
	return p
}

func TestRoleType(t *testing.T) {
	t.Run("parses known types", func(t *testing.T) {
		rt, ok := ParseRoleType("mitglied_zusatzsektion")
		require.True(t, ok)
		assert.Equal(t, RoleMitgliedZusatzsektion, rt)

		_, ok = ParseRoleType("kassier")
		assert.False(t, ok)
	})

	t.Run("membership flags", func(t *testing.T) {
		assert.True(t, RoleMitglied.IsMembership())
		assert.True(t, RoleMitgliedZusatzsektion.IsMembership())
		assert.False(t, RoleNeuanmeldung.IsMembership())
		assert.True(t, RoleNeuanmeldung.RequiresBeitragskategorie())
		assert.False(t, RoleEhrenmitglied.RequiresBeitragskategorie())
		assert.True(t, RoleBeguenstigt.EndsWithMembership())
		assert.False(t, RolePraesidium.EndsWithMembership())
	})

	t.Run("allowed group types", func(t *testing.T) {
		assert.True(t, RoleMitglied.AllowedIn(organization.GroupTypeSektionsMitglieder))
		assert.False(t, RoleMitglied.AllowedIn(organization.GroupTypeSektionsFunktionaere))
		assert.True(t, RoleNeuanmeldung.AllowedIn(organization.GroupTypeSektionsNeuanmeldungenSektion))
		assert.True(t, RoleNeuanmeldung.AllowedIn(organization.GroupTypeSektionsNeuanmeldungenNv))
	})

	t.Run("approved type", func(t *testing.T) {
		approved, ok := RoleNeuanmeldungZusatzsektion.ApprovedType()
		require.True(t, ok)
		assert.Equal(t, RoleMitgliedZusatzsektion, approved)

		_, ok = RoleMitglied.ApprovedType()
		assert.False(t, ok)
	})
}

func TestParseBeitragskategorie(t *testing.T) {
	tests := []struct {
		input string
		want  Beitragskategorie
		ok    bool
	}{
		{"adult", BeitragskategorieAdult, true},
		{"Einzel", BeitragskategorieAdult, true},
		{" jugend ", BeitragskategorieYouth, true},
		{"FAMILIE", BeitragskategorieFamily, true},
		{"f", BeitragskategorieFamily, true},
		{"frei", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBeitragskategorie(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "Familie", BeitragskategorieFamily.Label())
}

func TestCalculateBeitragskategorie(t *testing.T) {
	const year = 2024

	tests := []struct {
		name      string
		birthYear int
		household bool
		want      Beitragskategorie
		ok        bool
	}{
		{"adult alone", 1980, false, BeitragskategorieAdult, true},
		{"turns 22 this year", 2002, false, BeitragskategorieAdult, true},
		{"youth alone", 2003, false, BeitragskategorieYouth, true},
		{"six year old alone", 2018, false, BeitragskategorieYouth, true},
		{"too young alone", 2019, false, "", false},
		{"adult in family", 1980, true, BeitragskategorieFamily, true},
		{"child in family", 2012, true, BeitragskategorieFamily, true},
		{"17 in family", 2007, true, BeitragskategorieFamily, true},
		{"18 in family is youth", 2006, true, BeitragskategorieYouth, true},
		{"too young in family", 2020, true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := personBornIn(t, tt.birthYear)
			if tt.household {
				p.JoinHousehold("hh-1")
			}
			got, ok := CalculateBeitragskategorie(p, year)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown birthday", func(t *testing.T) {
		p, err := people.NewPerson("Ueli", "Steck")
		require.NoError(t, err)
		_, ok := CalculateBeitragskategorie(p, year)
		assert.False(t, ok)
	})
}

func TestNewRole(t *testing.T) {
	root := newRoot(t)
	bern := newSektion(t, root, "SAC Bern")
	personID := uuid.New()
	start := shared.NewDate(2024, time.May, 10)

	t.Run("membership role ends at end of year", func(t *testing.T) {
		role, err := NewMembershipRole(personID, bern.mitglieder, RoleMitglied, BeitragskategorieAdult, start)
		require.NoError(t, err)

		assert.Equal(t, bern.layer.ID, role.LayerGroupID)
		assert.Equal(t, bern.mitglieder.ID, role.GroupID)
		require.NotNil(t, role.EndOn)
		assert.Equal(t, shared.NewDate(2024, time.December, 31), *role.EndOn)
	})

	t.Run("rejects wrong group type", func(t *testing.T) {
		_, err := NewRole(personID, bern.neu, RoleMitglied, BeitragskategorieAdult, start, nil)
		assert.ErrorIs(t, err, ErrRoleNotAllowedInGroup)
	})

	t.Run("requires beitragskategorie", func(t *testing.T) {
		_, err := NewRole(personID, bern.mitglieder, RoleMitglied, "", start, nil)
		assert.ErrorIs(t, err, ErrBeitragskategorieMissing)
	})

	t.Run("drops category on roles without fee", func(t *testing.T) {
		role, err := NewRole(personID, bern.mitglieder, RoleEhrenmitglied, BeitragskategorieAdult, start, nil)
		require.NoError(t, err)
		assert.Empty(t, role.Beitragskategorie)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		end := start.AddDate(0, 0, -1)
		_, err := NewRole(personID, bern.mitglieder, RoleMitglied, BeitragskategorieAdult, start, &end)
		assert.ErrorIs(t, err, ErrRoleEndsBeforeStart)
	})
}

func TestRole_ActiveOn(t *testing.T) {
	root := newRoot(t)
	bern := newSektion(t, root, "SAC Bern")
	role, err := NewMembershipRole(uuid.New(), bern.mitglieder, RoleMitglied, BeitragskategorieAdult, shared.NewDate(2024, time.May, 10))
	require.NoError(t, err)

	assert.False(t, role.ActiveOn(shared.NewDate(2024, time.May, 9)))
	assert.True(t, role.ActiveOn(shared.NewDate(2024, time.May, 10)))
	assert.True(t, role.ActiveOn(time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, role.ActiveOn(shared.NewDate(2025, time.January, 1)))

	role.EndOn = nil
	assert.True(t, role.ActiveOn(shared.NewDate(2030, time.January, 1)))
}

func TestRole_TerminateAndUndo(t *testing.T) {
	root := newRoot(t)
	bern := newSektion(t, root, "SAC Bern")
	today := shared.NewDate(2024, time.August, 15)
	reasonID := uuid.New()
	mutationID := uuid.New()

	newRole := func(t *testing.T) *Role {
		role, err := NewMembershipRole(uuid.New(), bern.mitglieder, RoleMitglied, BeitragskategorieAdult, shared.NewDate(2024, time.January, 1))
		require.NoError(t, err)
		return role
	}

	t.Run("terminate keeps previous end date", func(t *testing.T) {
		role := newRole(t)
		require.NoError(t, role.Terminate(shared.Yesterday(today), &reasonID, mutationID))

		assert.True(t, role.Terminated)
		assert.Equal(t, shared.Yesterday(today), *role.EndOn)
		assert.Equal(t, shared.NewDate(2024, time.December, 31), *role.EndOnBeforeTermination)
		assert.Equal(t, &reasonID, role.TerminationReasonID)
		assert.Equal(t, mutationID, *role.MutationID)
	})

	t.Run("cannot terminate twice", func(t *testing.T) {
		role := newRole(t)
		require.NoError(t, role.Terminate(shared.Yesterday(today), nil, mutationID))
		assert.ErrorIs(t, role.Terminate(shared.Yesterday(today), nil, mutationID), ErrRoleAlreadyTerminated)
	})

	t.Run("cannot terminate outside active range", func(t *testing.T) {
		role := newRole(t)
		assert.ErrorIs(t, role.Terminate(shared.NewDate(2025, time.March, 1), nil, mutationID), ErrRoleNotActive)
	})

	t.Run("undo restores previous state", func(t *testing.T) {
		role := newRole(t)
		require.NoError(t, role.Terminate(shared.Yesterday(today), &reasonID, mutationID))
		require.NoError(t, role.UndoTermination(today))

		assert.False(t, role.Terminated)
		assert.Nil(t, role.TerminationReasonID)
		assert.Nil(t, role.EndOnBeforeTermination)
		assert.Nil(t, role.MutationID)
		assert.Equal(t, shared.NewDate(2024, time.December, 31), *role.EndOn)
	})

	t.Run("undo requires terminated role", func(t *testing.T) {
		role := newRole(t)
		assert.ErrorIs(t, role.UndoTermination(today), ErrRoleNotTerminated)
	})

	t.Run("undo without recorded end falls back to end of year", func(t *testing.T) {
		role, err := NewRole(uuid.New(), bern.mitglieder, RoleMitglied, BeitragskategorieAdult,
			shared.NewDate(2020, time.January, 1), shared.DatePtr(shared.NewDate(2024, time.June, 30)))
		require.NoError(t, err)
		role.Terminated = true

		require.NoError(t, role.UndoTermination(today))
		require.NotNil(t, role.EndOn)
		assert.Equal(t, shared.NewDate(2024, time.December, 31), *role.EndOn)
		assert.False(t, role.Terminated)
	})

	t.Run("undo keeps open end of non membership role", func(t *testing.T) {
		role, err := NewRole(uuid.New(), bern.mitglieder, RoleEhrenmitglied, "", shared.NewDate(2000, time.January, 1), nil)
		require.NoError(t, err)
		require.NoError(t, role.Terminate(shared.Yesterday(today), nil, mutationID))
		require.NoError(t, role.UndoTermination(today))
		assert.Nil(t, role.EndOn)
	})

	t.Run("undo refused when previous end lies in the past", func(t *testing.T) {
		role := newRole(t)
		require.NoError(t, role.Terminate(shared.Yesterday(today), nil, mutationID))
		assert.ErrorIs(t, role.UndoTermination(shared.NewDate(2025, time.January, 5)), ErrRoleNotRestorable)
	})
}

func TestTerminateOn(t *testing.T) {
	today := shared.NewDate(2024, time.August, 15)

	assert.True(t, ValidTerminateOn(shared.NewDate(2024, time.August, 14), today))
	assert.True(t, ValidTerminateOn(shared.NewDate(2024, time.December, 31), today))
	assert.False(t, ValidTerminateOn(today, today))
	assert.False(t, ValidTerminateOn(shared.NewDate(2025, time.December, 31), today))
	assert.ErrorIs(t, CheckTerminateOn(shared.NewDate(2024, time.September, 30), today), ErrInvalidTerminateOn)
	assert.NoError(t, CheckTerminateOn(shared.NewDate(2024, time.December, 31), today))
}

func TestNewTerminationReason(t *testing.T) {
	reason, err := NewTerminationReason(" Deceased ", "Verstorben")
	require.NoError(t, err)
	assert.Equal(t, "deceased", reason.Code)

	_, err = NewTerminationReason("", "x")
	assert.ErrorIs(t, err, ErrTerminationReasonCode)
}

func TestRoles_Validate(t *testing.T) {
	root := newRoot(t)
	bern := newSektion(t, root, "SAC Bern")
	thun := newSektion(t, root, "SAC Thun")
	personID := uuid.New()
	start := shared.NewDate(2024, time.January, 1)

	mustRole := func(t *testing.T, g *organization.Group, rt RoleType, from time.Time) *Role {
		r, err := NewMembershipRole(personID, g, rt, BeitragskategorieAdult, from)
		require.NoError(t, err)
		return r
	}

	t.Run("stammsektion with zusatzsektion", func(t *testing.T) {
		roles := Roles{
			mustRole(t, bern.mitglieder, RoleMitglied, start),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start),
		}
		assert.NoError(t, roles.Validate())
		assert.Equal(t, bern.layer.ID, roles.Stammsektion(start).LayerGroupID)
		assert.Len(t, roles.Zusatzsektionen(start), 1)
		assert.True(t, roles.IsMemberOn(start))
	})

	t.Run("overlapping stammsektion", func(t *testing.T) {
		roles := Roles{
			mustRole(t, bern.mitglieder, RoleMitglied, start),
			mustRole(t, thun.mitglieder, RoleMitglied, shared.NewDate(2024, time.June, 1)),
		}
		assert.ErrorIs(t, roles.Validate(), ErrOverlappingStammsektion)
	})

	t.Run("consecutive stammsektion roles", func(t *testing.T) {
		first := mustRole(t, bern.mitglieder, RoleMitglied, start)
		require.NoError(t, first.End(shared.NewDate(2024, time.May, 31)))
		roles := Roles{first, mustRole(t, thun.mitglieder, RoleMitglied, shared.NewDate(2024, time.June, 1))}
		assert.NoError(t, roles.Validate())
	})

	t.Run("zusatzsektion without stammsektion", func(t *testing.T) {
		roles := Roles{mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start)}
		assert.ErrorIs(t, roles.Validate(), ErrZusatzsektionUncovered)
	})

	t.Run("zusatzsektion in stammsektion layer", func(t *testing.T) {
		roles := Roles{
			mustRole(t, bern.mitglieder, RoleMitglied, start),
			mustRole(t, bern.mitglieder, RoleMitgliedZusatzsektion, start),
		}
		assert.ErrorIs(t, roles.Validate(), ErrZusatzsektionInStamm)
	})

	t.Run("two zusatzsektionen in one layer", func(t *testing.T) {
		roles := Roles{
			mustRole(t, bern.mitglieder, RoleMitglied, start),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, shared.NewDate(2024, time.March, 1)),
		}
		assert.ErrorIs(t, roles.Validate(), ErrDuplicateZusatzsektion)
	})

	uto := newSektion(t, root, "SAC Uto")
	ranged := func(t *testing.T, g *organization.Group, rt RoleType, from time.Time, to time.Month) *Role {
		r := mustRole(t, g, rt, from)
		require.NoError(t, r.End(shared.Yesterday(shared.NewDate(2024, to+1, 1))))
		return r
	}

	t.Run("stammsektion gap inside zusatzsektion range", func(t *testing.T) {
		roles := Roles{
			ranged(t, bern.mitglieder, RoleMitglied, start, time.March),
			mustRole(t, uto.mitglieder, RoleMitglied, shared.NewDate(2024, time.October, 1)),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start),
		}
		assert.ErrorIs(t, roles.Validate(), ErrZusatzsektionUncovered)
	})

	t.Run("stammsektion moves into zusatzsektion layer mid range", func(t *testing.T) {
		roles := Roles{
			ranged(t, bern.mitglieder, RoleMitglied, start, time.March),
			ranged(t, thun.mitglieder, RoleMitglied, shared.NewDate(2024, time.April, 1), time.September),
			mustRole(t, bern.mitglieder, RoleMitglied, shared.NewDate(2024, time.October, 1)),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start),
		}
		assert.ErrorIs(t, roles.Validate(), ErrZusatzsektionInStamm)
	})

	t.Run("consecutive stammsektionen cover zusatzsektion", func(t *testing.T) {
		roles := Roles{
			mustRole(t, uto.mitglieder, RoleMitglied, shared.NewDate(2024, time.June, 1)),
			mustRole(t, thun.mitglieder, RoleMitgliedZusatzsektion, start),
			ranged(t, bern.mitglieder, RoleMitglied, start, time.May),
		}
		assert.NoError(t, roles.Validate())
	})

	t.Run("open zusatzsektion needs open stammsektion", func(t *testing.T) {
		open, err := NewRole(personID, thun.mitglieder, RoleMitgliedZusatzsektion, BeitragskategorieAdult, start, nil)
		require.NoError(t, err)
		roles := Roles{mustRole(t, bern.mitglieder, RoleMitglied, start), open}
		assert.ErrorIs(t, roles.Validate(), ErrZusatzsektionUncovered)

		stamm, err := NewRole(personID, bern.mitglieder, RoleMitglied, BeitragskategorieAdult, start, nil)
		require.NoError(t, err)
		assert.NoError(t, Roles{stamm, open}.Validate())
	})

	t.Run("first start ignores non membership roles", func(t *testing.T) {
		ehren, err := NewRole(personID, bern.mitglieder, RoleEhrenmitglied, "", shared.NewDate(2000, time.January, 1), nil)
		require.NoError(t, err)
		roles := Roles{ehren, mustRole(t, bern.mitglieder, RoleMitglied, start)}

		first, ok := roles.FirstStartOn()
		require.True(t, ok)
		assert.Equal(t, start, first)
	})
}
