package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRoleRepository implements RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Save creates or updates a role
func (r *GormRoleRepository) Save(ctx context.Context, role *membership.Role) error {
	return translateError(conn(ctx, r.db).Save(models.RoleModelFromDomain(role)).Error)
}

// Delete removes a role
func (r *GormRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.RoleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a role by ID
func (r *GormRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*membership.Role, error) {
	var model models.RoleModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByPersonID returns every role of the person, ended ones included
func (r *GormRoleRepository) FindByPersonID(ctx context.Context, personID uuid.UUID) (membership.Roles, error) {
	return r.find(ctx, "person_id = ?", personID)
}

// FindByPersonIDs returns every role of the persons
func (r *GormRoleRepository) FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID) (membership.Roles, error) {
	if len(personIDs) == 0 {
		return membership.Roles{}, nil
	}
	return r.find(ctx, "person_id IN ?", personIDs)
}

// FindByGroupID returns every role held in the group
func (r *GormRoleRepository) FindByGroupID(ctx context.Context, groupID uuid.UUID) (membership.Roles, error) {
	return r.find(ctx, "group_id = ?", groupID)
}

// FindByLayerID returns every role held in a group of the layer
func (r *GormRoleRepository) FindByLayerID(ctx context.Context, layerID uuid.UUID) (membership.Roles, error) {
	return r.find(ctx, "layer_group_id = ?", layerID)
}

// FindByMutationID returns the roles changed by one termination
func (r *GormRoleRepository) FindByMutationID(ctx context.Context, mutationID uuid.UUID) (membership.Roles, error) {
	return r.find(ctx, "mutation_id = ?", mutationID)
}

func (r *GormRoleRepository) find(ctx context.Context, query string, args ...any) (membership.Roles, error) {
	var roleModels []models.RoleModel
	if err := conn(ctx, r.db).
		Where(query, args...).
		Order("start_on ASC, created_at ASC").
		Find(&roleModels).Error; err != nil {
		return nil, err
	}
	roles := make(membership.Roles, len(roleModels))
	for i := range roleModels {
		roles[i] = roleModels[i].ToDomain()
	}
	return roles, nil
}

// GormTerminationReasonRepository implements TerminationReasonRepository using GORM
type GormTerminationReasonRepository struct {
	db *gorm.DB
}

// NewGormTerminationReasonRepository creates a new GormTerminationReasonRepository
func NewGormTerminationReasonRepository(db *gorm.DB) *GormTerminationReasonRepository {
	return &GormTerminationReasonRepository{db: db}
}

// Save creates or updates a termination reason
func (r *GormTerminationReasonRepository) Save(ctx context.Context, reason *membership.TerminationReason) error {
	return translateError(conn(ctx, r.db).Save(models.TerminationReasonModelFromDomain(reason)).Error)
}

// FindByID finds a termination reason by ID
func (r *GormTerminationReasonRepository) FindByID(ctx context.Context, id uuid.UUID) (*membership.TerminationReason, error) {
	var model models.TerminationReasonModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a termination reason by its code
func (r *GormTerminationReasonRepository) FindByCode(ctx context.Context, code string) (*membership.TerminationReason, error) {
	var model models.TerminationReasonModel
	if err := conn(ctx, r.db).Where("code = ?", strings.ToLower(strings.TrimSpace(code))).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns all termination reasons ordered by code
func (r *GormTerminationReasonRepository) FindAll(ctx context.Context) ([]*membership.TerminationReason, error) {
	var reasonModels []models.TerminationReasonModel
	if err := conn(ctx, r.db).Order("code ASC").Find(&reasonModels).Error; err != nil {
		return nil, err
	}
	reasons := make([]*membership.TerminationReason, len(reasonModels))
	for i := range reasonModels {
		reasons[i] = reasonModels[i].ToDomain()
	}
	return reasons, nil
}

// Compile-time interface compliance checks
var (
	_ membership.RoleRepository              = (*GormRoleRepository)(nil)
	_ membership.TerminationReasonRepository = (*GormTerminationReasonRepository)(nil)
)
