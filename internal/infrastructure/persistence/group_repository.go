package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormGroupRepository implements GroupRepository using GORM
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository creates a new GormGroupRepository
func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

// Save creates or updates a group
func (r *GormGroupRepository) Save(ctx context.Context, group *organization.Group) error {
	return translateError(conn(ctx, r.db).Save(models.GroupModelFromDomain(group)).Error)
}

// FindByID finds a group by ID
func (r *GormGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*organization.Group, error) {
	var model models.GroupModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByNavisionID finds a group by its legacy identifier
func (r *GormGroupRepository) FindByNavisionID(ctx context.Context, navisionID int64) (*organization.Group, error) {
	var model models.GroupModel
	if err := conn(ctx, r.db).Where("navision_id = ?", navisionID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindRoot finds the club root group
func (r *GormGroupRepository) FindRoot(ctx context.Context) (*organization.Group, error) {
	var model models.GroupModel
	if err := conn(ctx, r.db).Where("type = ? AND parent_id IS NULL", organization.GroupTypeSacCas).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindChildren finds all direct children of a group
func (r *GormGroupRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]*organization.Group, error) {
	var groupModels []models.GroupModel
	if err := conn(ctx, r.db).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&groupModels).Error; err != nil {
		return nil, err
	}
	return toGroups(groupModels), nil
}

// FindDescendants finds all descendants of a group (using the materialized path)
func (r *GormGroupRepository) FindDescendants(ctx context.Context, group *organization.Group) ([]*organization.Group, error) {
	var groupModels []models.GroupModel
	if err := conn(ctx, r.db).
		Where("path LIKE ?", group.Path+"/%").
		Order("level ASC, name ASC").
		Find(&groupModels).Error; err != nil {
		return nil, err
	}
	return toGroups(groupModels), nil
}

// FindByLayer finds all groups of a layer, optionally restricted to some types
func (r *GormGroupRepository) FindByLayer(ctx context.Context, layerID uuid.UUID, types ...organization.GroupType) ([]*organization.Group, error) {
	query := conn(ctx, r.db).Where("layer_group_id = ?", layerID)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	var groupModels []models.GroupModel
	if err := query.Order("level ASC, name ASC").Find(&groupModels).Error; err != nil {
		return nil, err
	}
	return toGroups(groupModels), nil
}

// FindLayers finds all layer groups of the given types; all layer types when none are given
func (r *GormGroupRepository) FindLayers(ctx context.Context, types ...organization.GroupType) ([]*organization.Group, error) {
	if len(types) == 0 {
		types = []organization.GroupType{
			organization.GroupTypeSacCas,
			organization.GroupTypeSektion,
			organization.GroupTypeOrtsgruppe,
		}
	}
	var groupModels []models.GroupModel
	if err := conn(ctx, r.db).
		Where("type IN ? AND id = layer_group_id", types).
		Order("name ASC").
		Find(&groupModels).Error; err != nil {
		return nil, err
	}
	return toGroups(groupModels), nil
}

func toGroups(groupModels []models.GroupModel) []*organization.Group {
	groups := make([]*organization.Group, len(groupModels))
	for i := range groupModels {
		groups[i] = groupModels[i].ToDomain()
	}
	return groups
}

// Compile-time interface compliance check
var _ organization.GroupRepository = (*GormGroupRepository)(nil)
