package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/application/validation"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Group service errors
var (
	ErrRootExists         = shared.NewDomainError("ROOT_EXISTS", "The root group already exists")
	ErrGroupHasActiveRole = shared.NewDomainError("GROUP_HAS_ACTIVE_ROLES", "Groups with active roles cannot be archived")
)

// GroupService handles the group hierarchy
type GroupService struct {
	groups organization.GroupRepository
	roles  membership.RoleRepository
	tx     shared.Transactor
	events shared.EventPublisher
	clock  shared.Clock
}

// NewGroupService creates a new GroupService
func NewGroupService(
	groups organization.GroupRepository,
	roles membership.RoleRepository,
	tx shared.Transactor,
	events shared.EventPublisher,
) *GroupService {
	return &GroupService{
		groups: groups,
		roles:  roles,
		tx:     tx,
		events: events,
		clock:  shared.SystemClock,
	}
}

// WithClock replaces the clock used for "today"
func (s *GroupService) WithClock(clock shared.Clock) *GroupService {
	s.clock = clock
	return s
}

// CreateRoot creates the single sac_cas root group
func (s *GroupService) CreateRoot(ctx context.Context, name string) (*organization.Group, error) {
	var root *organization.Group
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.groups.FindRoot(ctx); err == nil {
			return ErrRootExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		var err error
		root, err = organization.NewRootGroup(name)
		if err != nil {
			return err
		}
		return s.save(ctx, root)
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// CreateGroup creates a group below its parent. Layers get their default
// subgroups unless the request skips them.
func (s *GroupService) CreateGroup(ctx context.Context, req CreateGroupRequest) (*organization.Group, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	groupType, ok := organization.ParseGroupType(req.Type)
	if !ok {
		return nil, shared.NewDomainError("INVALID_GROUP_TYPE", "Unknown group type "+req.Type)
	}

	var group *organization.Group
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		parent, err := s.groups.FindByID(ctx, req.ParentID)
		if err != nil {
			return fmt.Errorf("parent group: %w", err)
		}

		group, err = organization.NewGroup(parent, groupType, req.Name)
		if err != nil {
			return err
		}
		group.ShortName = strings.TrimSpace(req.ShortName)
		group.Canton = strings.ToUpper(req.Canton)
		group.FoundationYear = req.FoundationYear
		if req.NavisionID != nil {
			group.SetNavisionID(*req.NavisionID)
		}
		if err := s.save(ctx, group); err != nil {
			return err
		}

		if req.SkipDefaultChildren {
			return nil
		}
		for _, childType := range groupType.DefaultChildren() {
			child, err := organization.NewGroup(group, childType, childType.DefaultName())
			if err != nil {
				return err
			}
			if err := s.save(ctx, child); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Group created",
		zap.String("group_id", group.ID.String()),
		zap.String("type", string(group.Type)),
		zap.String("name", group.Name),
	)
	return group, nil
}

// Get returns a group by ID
func (s *GroupService) Get(ctx context.Context, id uuid.UUID) (*organization.Group, error) {
	return s.groups.FindByID(ctx, id)
}

// Layer returns the layer the group belongs to
func (s *GroupService) Layer(ctx context.Context, groupID uuid.UUID) (*organization.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsLayer() {
		return group, nil
	}
	return s.groups.FindByID(ctx, group.LayerGroupID)
}

// Children returns the direct children of a group
func (s *GroupService) Children(ctx context.Context, groupID uuid.UUID) ([]*organization.Group, error) {
	return s.groups.FindChildren(ctx, groupID)
}

// Descendants returns every group below the given group
func (s *GroupService) Descendants(ctx context.Context, groupID uuid.UUID) ([]*organization.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.groups.FindDescendants(ctx, group)
}

// Sections returns every sektion and ortsgruppe
func (s *GroupService) Sections(ctx context.Context) ([]*organization.Group, error) {
	return s.groups.FindLayers(ctx, organization.GroupTypeSektion, organization.GroupTypeOrtsgruppe)
}

// FindMembersGroup returns the active members group of a layer
func (s *GroupService) FindMembersGroup(ctx context.Context, layerID uuid.UUID) (*organization.Group, error) {
	groups, err := s.groups.FindByLayer(ctx, layerID, organization.GroupTypeSektionsMitglieder)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if !g.IsArchived() {
			return g, nil
		}
	}
	return nil, fmt.Errorf("members group of layer %s: %w", layerID, shared.ErrNotFound)
}

// FindNeuanmeldungenGroups returns the active application groups of a layer
func (s *GroupService) FindNeuanmeldungenGroups(ctx context.Context, layerID uuid.UUID) ([]*organization.Group, error) {
	groups, err := s.groups.FindByLayer(ctx, layerID,
		organization.GroupTypeSektionsNeuanmeldungenSektion,
		organization.GroupTypeSektionsNeuanmeldungenNv,
	)
	if err != nil {
		return nil, err
	}
	active := make([]*organization.Group, 0, len(groups))
	for _, g := range groups {
		if !g.IsArchived() {
			active = append(active, g)
		}
	}
	return active, nil
}

// Archive archives a group and its descendants. Refused while any of
// them has an active role.
func (s *GroupService) Archive(ctx context.Context, groupID uuid.UUID) error {
	today := s.clock()
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		group, err := s.groups.FindByID(ctx, groupID)
		if err != nil {
			return err
		}
		descendants, err := s.groups.FindDescendants(ctx, group)
		if err != nil {
			return err
		}

		all := append([]*organization.Group{group}, descendants...)
		for _, g := range all {
			roles, err := s.roles.FindByGroupID(ctx, g.ID)
			if err != nil {
				return err
			}
			if len(roles.ActiveOn(today)) > 0 {
				return ErrGroupHasActiveRole
			}
		}

		for _, g := range all {
			if g.IsArchived() {
				continue
			}
			if err := g.Archive(today); err != nil {
				return err
			}
			if err := s.save(ctx, g); err != nil {
				return err
			}
		}
		logger.L(ctx).Info("Group archived", zap.String("group_id", group.ID.String()), zap.Int("descendants", len(descendants)))
		return nil
	})
}

// save stores the group and publishes its pending events
func (s *GroupService) save(ctx context.Context, g *organization.Group) error {
	if err := s.groups.Save(ctx, g); err != nil {
		return err
	}
	events := g.GetDomainEvents()
	g.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return nil
	}
	return s.events.Publish(ctx, events...)
}
