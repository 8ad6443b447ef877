package organization

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/event"
	"github.com/sac/membership/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) EventTypes() []string { return nil }

func (h *recordingHandler) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	service *GroupService
	roles   *persistence.GormRoleRepository
	events  *recordingHandler
	today   time.Time
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop(), "silent")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	bus := event.NewInMemoryEventBus(nil)
	recorder := &recordingHandler{}
	bus.Subscribe(recorder)

	today := shared.NewDate(2024, time.March, 15)
	roles := persistence.NewGormRoleRepository(db.DB)
	service := NewGroupService(
		persistence.NewGormGroupRepository(db.DB),
		roles,
		persistence.NewGormTransactor(db.DB),
		bus,
	).WithClock(func() time.Time { return today })

	return fixture{service: service, roles: roles, events: recorder, today: today}
}

func createSektion(t *testing.T, f fixture, name string) (*organization.Group, *organization.Group) {
	t.Helper()
	ctx := context.Background()
	root, err := f.service.CreateRoot(ctx, "SAC/CAS")
	if err != nil {
		require.ErrorIs(t, err, ErrRootExists)
		root, err = f.service.groups.FindRoot(ctx)
		require.NoError(t, err)
	}
	sektion, err := f.service.CreateGroup(ctx, CreateGroupRequest{
		ParentID: root.ID,
		Type:     string(organization.GroupTypeSektion),
		Name:     name,
		Canton:   "be",
	})
	require.NoError(t, err)
	return root, sektion
}

func TestGroupService_CreateRootOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	root, err := f.service.CreateRoot(ctx, "SAC/CAS")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	_, err = f.service.CreateRoot(ctx, "Second")
	assert.ErrorIs(t, err, ErrRootExists)
}

func TestGroupService_CreateSektionWithDefaultChildren(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, sektion := createSektion(t, f, "SAC Bern")
	assert.Equal(t, "BE", sektion.Canton)
	assert.Equal(t, sektion.ID, sektion.LayerGroupID)

	children, err := f.service.Children(ctx, sektion.ID)
	require.NoError(t, err)
	types := make([]organization.GroupType, 0, len(children))
	for _, c := range children {
		types = append(types, c.Type)
		assert.Equal(t, sektion.ID, c.LayerGroupID)
	}
	assert.ElementsMatch(t, []organization.GroupType{
		organization.GroupTypeSektionsMitglieder,
		organization.GroupTypeSektionsNeuanmeldungenNv,
		organization.GroupTypeSektionsFunktionaere,
	}, types)

	// root + sektion + three subgroups
	assert.Equal(t, 5, f.events.count(organization.EventTypeGroupCreated))

	members, err := f.service.FindMembersGroup(ctx, sektion.ID)
	require.NoError(t, err)
	assert.Equal(t, organization.GroupTypeSektionsMitglieder, members.Type)

	layer, err := f.service.Layer(ctx, members.ID)
	require.NoError(t, err)
	assert.Equal(t, sektion.ID, layer.ID)

	neuanmeldungen, err := f.service.FindNeuanmeldungenGroups(ctx, sektion.ID)
	require.NoError(t, err)
	require.Len(t, neuanmeldungen, 1)
	assert.Equal(t, organization.GroupTypeSektionsNeuanmeldungenNv, neuanmeldungen[0].Type)

	descendants, err := f.service.Descendants(ctx, sektion.ID)
	require.NoError(t, err)
	assert.Len(t, descendants, 3)

	sections, err := f.service.Sections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, sektion.ID, sections[0].ID)
}

func TestGroupService_CreateOrtsgruppeBelowSektion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, sektion := createSektion(t, f, "SAC Bern")

	nav := int64(4711)
	og, err := f.service.CreateGroup(ctx, CreateGroupRequest{
		ParentID:   sektion.ID,
		Type:       string(organization.GroupTypeOrtsgruppe),
		Name:       "Ortsgruppe Thun",
		NavisionID: &nav,
	})
	require.NoError(t, err)
	assert.Equal(t, og.ID, og.LayerGroupID)
	require.NotNil(t, og.NavisionID)
	assert.Equal(t, nav, *og.NavisionID)

	members, err := f.service.FindMembersGroup(ctx, og.ID)
	require.NoError(t, err)
	assert.Equal(t, og.ID, members.LayerGroupID)

	descendants, err := f.service.Descendants(ctx, sektion.ID)
	require.NoError(t, err)
	assert.Len(t, descendants, 7)
}

func TestGroupService_CreateGroupValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	root, _ := createSektion(t, f, "SAC Bern")

	tests := []struct {
		name string
		req  CreateGroupRequest
	}{
		{"missing name", CreateGroupRequest{ParentID: root.ID, Type: string(organization.GroupTypeSektion)}},
		{"unknown type", CreateGroupRequest{ParentID: root.ID, Type: "club", Name: "X"}},
		{"type not allowed below root", CreateGroupRequest{ParentID: root.ID, Type: string(organization.GroupTypeSektionsMitglieder), Name: "X"}},
		{"unknown parent", CreateGroupRequest{ParentID: uuid.New(), Type: string(organization.GroupTypeSektion), Name: "X"}},
		{"bad canton", CreateGroupRequest{ParentID: root.ID, Type: string(organization.GroupTypeSektion), Name: "X", Canton: "BERN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateGroup(ctx, tt.req)
			assert.Error(t, err)
		})
	}

	_, err := f.service.CreateGroup(ctx, CreateGroupRequest{ParentID: uuid.New(), Type: string(organization.GroupTypeSektion), Name: "X"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGroupService_SkipDefaultChildren(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	root, err := f.service.CreateRoot(ctx, "SAC/CAS")
	require.NoError(t, err)

	sektion, err := f.service.CreateGroup(ctx, CreateGroupRequest{
		ParentID:            root.ID,
		Type:                string(organization.GroupTypeSektion),
		Name:                "SAC Uto",
		SkipDefaultChildren: true,
	})
	require.NoError(t, err)

	children, err := f.service.Children(ctx, sektion.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = f.service.FindMembersGroup(ctx, sektion.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGroupService_Archive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, sektion := createSektion(t, f, "SAC Bern")

	members, err := f.service.FindMembersGroup(ctx, sektion.ID)
	require.NoError(t, err)

	role, err := membership.NewMembershipRole(uuid.New(), members, membership.RoleMitglied, membership.BeitragskategorieAdult, shared.NewDate(2024, time.January, 1))
	require.NoError(t, err)
	require.NoError(t, f.roles.Save(ctx, role))

	err = f.service.Archive(ctx, sektion.ID)
	assert.ErrorIs(t, err, ErrGroupHasActiveRole)

	require.NoError(t, role.End(shared.NewDate(2024, time.February, 29)))
	require.NoError(t, f.roles.Save(ctx, role))

	require.NoError(t, f.service.Archive(ctx, sektion.ID))

	archived, err := f.service.Get(ctx, sektion.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	_, err = f.service.FindMembersGroup(ctx, sektion.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 4, f.events.count(organization.EventTypeGroupArchived))
}
