package importapp

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	orgapp "github.com/sac/membership/internal/application/organization"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/csvimport"
	"github.com/sac/membership/internal/infrastructure/event"
	"github.com/sac/membership/internal/infrastructure/lock"
	"github.com/sac/membership/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var today = shared.NewDate(2024, time.March, 15)

type fixture struct {
	service *ImportService
	history *ImportHistoryService
	locker  *lock.InMemoryLocker
	groups  *persistence.GormGroupRepository
	people  *persistence.GormPersonRepository
	roles   *persistence.GormRoleRepository
	reasons *persistence.GormTerminationReasonRepository
	quals   *persistence.GormQualificationRepository
	orgs    *orgapp.GroupService
}

func setup(t *testing.T, workers int) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop(), "silent")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		locker:  lock.NewInMemoryLocker(),
		groups:  persistence.NewGormGroupRepository(db.DB),
		people:  persistence.NewGormPersonRepository(db.DB),
		roles:   persistence.NewGormRoleRepository(db.DB),
		reasons: persistence.NewGormTerminationReasonRepository(db.DB),
		quals:   persistence.NewGormQualificationRepository(db.DB),
		history: NewImportHistoryService(persistence.NewGormImportRunRepository(db.DB)),
	}
	t.Cleanup(func() { _ = f.locker.Close() })

	tx := persistence.NewGormTransactor(db.DB)
	clock := func() time.Time { return today }
	f.orgs = orgapp.NewGroupService(f.groups, f.roles, tx, event.NewInMemoryEventBus(nil)).WithClock(clock)

	f.service = NewImportService(f.history, f.locker, tx, config.ImportConfig{
		Workers:   workers,
		Encoding:  "auto",
		ReportDir: t.TempDir(),
		LockTTL:   time.Minute,
	}, zap.NewNop(),
		NewGroupImporter(f.orgs, f.groups),
		NewPeopleImporter(f.people),
		NewMembershipImporter(f.people, f.groups, f.orgs, f.roles, f.reasons).WithClock(clock),
		NewQualificationImporter(f.people, f.quals),
	)
	return f
}

func (f *fixture) run(t *testing.T, kind bulk.ImporterKind, lines ...string) *bulk.ImportRun {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	run, err := f.service.Run(context.Background(), Request{
		Kind:     kind,
		FileName: string(kind) + ".csv",
		Size:     int64(len(data)),
		Reader:   strings.NewReader(data),
	})
	require.NoError(t, err)
	return run
}

// sections creates the root with the sections Bern (1100) and Uto (1200)
func (f *fixture) sections(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	root, err := f.orgs.CreateRoot(ctx, "SAC/CAS")
	require.NoError(t, err)
	for nav, name := range map[int64]string{1100: "SAC Bern", 1200: "SAC Uto"} {
		_, err := f.orgs.CreateGroup(ctx, orgapp.CreateGroupRequest{ParentID: root.ID, Type: "sektion", Name: name, NavisionID: &nav})
		require.NoError(t, err)
	}
}

func (f *fixture) person(t *testing.T, nav int64) *people.Person {
	t.Helper()
	p, err := f.people.FindByMembershipNumber(context.Background(), nav)
	require.NoError(t, err)
	return p
}

func (f *fixture) group(t *testing.T, nav int64) *organization.Group {
	t.Helper()
	g, err := f.groups.FindByNavisionID(context.Background(), nav)
	require.NoError(t, err)
	return g
}

func TestImport_Groups(t *testing.T) {
	f := setup(t, 1)
	lines := []string{
		"navision_id;parent_navision_id;type;name;canton;foundation_year",
		"1100;1000;sektion;SAC Bern;be;1863",
		"1000;;sac_cas;SAC/CAS;;",
		"1110;1100;ortsgruppe;Ortsgruppe Thun;;",
		"1101;1100;sektions_tourenkommission;Tourenkommission;;",
		"1102;1100;sektions_mitglieder;Mitglieder Bern;;",
		"9999;8888;sektion;Waisen;;",
		"2000;2001;sektion;Loop A;;",
		"2001;2000;sektion;Loop B;;",
		"x;;sektion;Kaputt;;",
	}
	run := f.run(t, bulk.ImporterGroups, lines...)

	assert.Equal(t, bulk.RunStatusCompleted, run.Status)
	assert.Equal(t, 9, run.TotalRows)
	assert.Equal(t, 5, run.SuccessRows)
	assert.Equal(t, 4, run.ErrorRows)

	bern := f.group(t, 1100)
	assert.Equal(t, organization.GroupTypeSektion, bern.Type)
	assert.Equal(t, "BE", bern.Canton)
	assert.Equal(t, 1863, bern.FoundationYear)
	assert.Equal(t, f.group(t, 1000).ID, *bern.ParentID)

	thun := f.group(t, 1110)
	assert.Equal(t, thun.ID, thun.LayerGroupID)

	members := f.group(t, 1102)
	assert.Equal(t, "Mitglieder Bern", members.Name)
	assert.Equal(t, bern.ID, *members.ParentID)

	report, err := os.ReadFile(run.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "line;navision_id;status;message\n"))
	assert.Contains(t, string(report), "7;9999;error;parent group 8888 not found")
	assert.Contains(t, string(report), "9;2001;error;parent chain forms a cycle")

	// a second run updates instead of duplicating
	again := f.run(t, bulk.ImporterGroups, lines...)
	assert.Equal(t, 5, again.SuccessRows)
	children, err := f.groups.FindChildren(context.Background(), bern.ID)
	require.NoError(t, err)
	count := 0
	for _, c := range children {
		if c.Type == organization.GroupTypeSektionsMitglieder {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestImport_People(t *testing.T) {
	f := setup(t, 1)
	run := f.run(t, bulk.ImporterPeople,
		"navision_id;first_name;last_name;birthday;gender;language;email;phone;street;housenumber;postbox;zip_code;town;country;household_key;family_main_person",
		"100;Anna;Aebi;01.06.1980;w;de;anna@example.com;031 000 00 00;Bundesgasse;3;;3011;Bern;ch;F100;ja",
		"101;Beat;Aebi;1982-02-03;m;DE;not-an-email;;Bundesgasse;3;;3011;Bern;CH;F100;nein",
		"102;Carla;Jung;15.5.2010;;fr;;;;;;;;;;",
		"103;;;01.01.1990;;;;;;;;;;;;",
		"104;Dora;Keller;31.02.1990;;;;;;;;;;;;",
	)

	assert.Equal(t, 2, run.SuccessRows)
	assert.Equal(t, 1, run.WarningRows)
	assert.Equal(t, 2, run.ErrorRows)

	anna := f.person(t, 100)
	assert.Equal(t, "Anna", anna.FirstName)
	assert.Equal(t, shared.NewDate(1980, time.June, 1), *anna.Birthday)
	assert.Equal(t, people.GenderFemale, anna.Gender)
	assert.Equal(t, "CH", anna.Country)
	assert.Equal(t, "031 000 00 00", anna.Phone)
	assert.Equal(t, "F100", anna.HouseholdKey)
	assert.True(t, anna.FamilyMainPerson)

	beat := f.person(t, 101)
	assert.Empty(t, beat.Email)
	assert.False(t, beat.FamilyMainPerson)

	carla := f.person(t, 102)
	assert.Equal(t, people.LanguageFR, carla.Language)
	assert.False(t, carla.InHousehold())

	require.Len(t, run.Issues, 3)
	assert.Equal(t, "warning", run.Issues[0].Status)
	assert.Contains(t, run.Issues[0].Message, "not-an-email")

	// existing people are updated
	f.run(t, bulk.ImporterPeople,
		"navision_id;first_name;last_name;birthday",
		"100;Anna;Aebi-Keller;01.06.1980",
	)
	assert.Equal(t, "Aebi-Keller", f.person(t, 100).LastName)
}

func TestImport_PeopleWindows1252(t *testing.T) {
	f := setup(t, 1)
	data := []byte("navision_id;first_name;last_name\n100;J\xfcrg;Z\xfcrcher\n")
	run, err := f.service.Run(context.Background(), Request{
		Kind:     bulk.ImporterPeople,
		FileName: "people.csv",
		Reader:   bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, run.SuccessRows)
	p := f.person(t, 100)
	assert.Equal(t, "Jürg", p.FirstName)
	assert.Equal(t, "Zürcher", p.LastName)
}

func TestImport_Memberships(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	f.sections(t)
	reason, err := membership.NewTerminationReason("umzug", "Umzug")
	require.NoError(t, err)
	require.NoError(t, f.reasons.Save(ctx, reason))

	f.run(t, bulk.ImporterPeople,
		"navision_id;first_name;last_name;birthday;household_key;family_main_person",
		"100;Anna;Aebi;01.06.1980;F100;1",
		"101;Beat;Aebi;03.02.1982;F100;0",
		"102;Carla;Jung;15.05.2010;;",
	)

	run := f.run(t, bulk.ImporterMemberships,
		"navision_id;section_navision_id;role;beitragskategorie;start_on;end_on;terminated;termination_reason",
		"100;1100;mitglied;familie;01.01.2010;31.12.2024;;",
		"100;1200;zusatzsektion;einzel;01.01.2015;31.12.2024;;",
		"101;1100;Mitglied;;01.01.2010;;;",
		"102;1100;mitglied;jugend;01.01.2020;31.12.2023;ja;Umzug",
		"102;1100;ehrenpraesident;;01.01.2020;;;",
		"999;1100;mitglied;einzel;01.01.2020;;;",
		"100;7777;mitglied;einzel;01.01.2000;31.12.2009;;",
		"100;1100;mitglied;familie;01.01.2010;31.12.2024;;",
	)

	assert.Equal(t, 8, run.TotalRows)
	assert.Equal(t, 4, run.SuccessRows)
	assert.Equal(t, 2, run.WarningRows)
	assert.Equal(t, 2, run.ErrorRows)

	anna, err := f.roles.FindByPersonID(ctx, f.person(t, 100).ID)
	require.NoError(t, err)
	require.Len(t, anna, 2)
	zusatz := anna.OfType(membership.RoleMitgliedZusatzsektion)
	require.Len(t, zusatz, 1)
	assert.Equal(t, f.group(t, 1200).ID, zusatz[0].LayerGroupID)
	assert.Equal(t, membership.BeitragskategorieAdult, zusatz[0].Beitragskategorie)

	beat, err := f.roles.FindByPersonID(ctx, f.person(t, 101).ID)
	require.NoError(t, err)
	require.Len(t, beat, 1)
	assert.Equal(t, membership.BeitragskategorieFamily, beat[0].Beitragskategorie)
	assert.Equal(t, shared.NewDate(2024, time.December, 31), *beat[0].EndOn)

	carla, err := f.roles.FindByPersonID(ctx, f.person(t, 102).ID)
	require.NoError(t, err)
	require.Len(t, carla, 1)
	assert.True(t, carla[0].Terminated)
	require.NotNil(t, carla[0].TerminationReasonID)
	assert.Equal(t, reason.ID, *carla[0].TerminationReasonID)
	require.NotNil(t, carla[0].EndOnBeforeTermination)
	assert.Equal(t, shared.NewDate(2023, time.December, 31), *carla[0].EndOnBeforeTermination)

	messages := make([]string, 0, len(run.Issues))
	for _, issue := range run.Issues {
		messages = append(messages, issue.Message)
	}
	assert.Equal(t, []string{
		"role ehrenpraesident is not migrated, row skipped",
		"person 999 not found",
		"section 7777 not found",
		"role already imported, row skipped",
	}, messages)
}

func TestImport_MembershipRejectsUncoveredZusatzsektion(t *testing.T) {
	f := setup(t, 1)
	f.sections(t)
	f.run(t, bulk.ImporterPeople, "navision_id;first_name;last_name;birthday", "100;Anna;Aebi;01.06.1980")

	run := f.run(t, bulk.ImporterMemberships,
		"navision_id;section_navision_id;role;beitragskategorie;start_on;end_on",
		"100;1200;zusatzsektion;einzel;01.01.2015;31.12.2024",
	)
	assert.Equal(t, 1, run.ErrorRows)
	assert.Equal(t, bulk.RunStatusFailed, run.Status)
	assert.Equal(t, membership.ErrZusatzsektionUncovered.Error(), run.Issues[0].Message)
}

func TestImport_Qualifications(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()
	f.run(t, bulk.ImporterPeople, "navision_id;first_name;last_name", "100;Anna;Aebi")

	run := f.run(t, bulk.ImporterQualifications,
		"navision_id;kind;start_at;finish_at;origin",
		"100;sac_tl_sommer_1;01.05.2020;;Kurs 2020",
		"100;SAC_TL_SOMMER_1;01.05.2020;;Kurs 2020",
		"100;unknown;01.05.2020;;",
		"555;JS_LEITER;01.01.2021;;",
	)
	assert.Equal(t, 1, run.SuccessRows)
	assert.Equal(t, 1, run.WarningRows)
	assert.Equal(t, 2, run.ErrorRows)

	quals, err := f.quals.FindByPersonIDs(ctx, []uuid.UUID{f.person(t, 100).ID})
	require.NoError(t, err)
	require.Len(t, quals, 1)
	assert.Equal(t, "Kurs 2020", quals[0].Origin)
	assert.Equal(t, shared.NewDate(2026, time.December, 31), *quals[0].FinishAt)
}

func TestImport_RunFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown importer", func(t *testing.T) {
		f := setup(t, 1)
		_, err := f.service.Run(ctx, Request{Kind: "invoices", Reader: strings.NewReader("a\n")})
		assert.ErrorIs(t, err, ErrUnknownImporter)
	})

	t.Run("missing columns fail the run", func(t *testing.T) {
		f := setup(t, 1)
		run, err := f.service.Run(ctx, Request{Kind: bulk.ImporterPeople, FileName: "people.csv", Reader: strings.NewReader("first_name;last_name\nAnna;Aebi\n")})
		assert.ErrorIs(t, err, csvimport.ErrMissingColumns)
		stored, err := f.history.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, bulk.RunStatusFailed, stored.Status)
		assert.Contains(t, stored.FailureCause, "navision_id")
	})

	t.Run("empty file", func(t *testing.T) {
		f := setup(t, 1)
		_, err := f.service.Run(ctx, Request{Kind: bulk.ImporterPeople, FileName: "people.csv", Reader: strings.NewReader("")})
		assert.ErrorIs(t, err, csvimport.ErrEmptyFile)
	})

	t.Run("concurrent run is refused", func(t *testing.T) {
		f := setup(t, 1)
		token, err := f.locker.Acquire(ctx, "import:people", time.Minute)
		require.NoError(t, err)
		_, err = f.service.Run(ctx, Request{Kind: bulk.ImporterPeople, FileName: "people.csv", Reader: strings.NewReader("navision_id\n1\n")})
		assert.ErrorIs(t, err, shared.ErrLockHeld)

		require.NoError(t, f.locker.Release(ctx, "import:people", token))
		run := f.run(t, bulk.ImporterPeople, "navision_id;last_name", "1;Aebi")
		assert.Equal(t, 1, run.SuccessRows)
	})
}
