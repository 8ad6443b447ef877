package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormImportRunRepository implements ImportRunRepository using GORM
type GormImportRunRepository struct {
	db *gorm.DB
}

// NewGormImportRunRepository creates a new GormImportRunRepository
func NewGormImportRunRepository(db *gorm.DB) *GormImportRunRepository {
	return &GormImportRunRepository{db: db}
}

// FindByID finds an import run by ID
func (r *GormImportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportRun, error) {
	var model models.ImportRunModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns the most recent runs first
func (r *GormImportRunRepository) FindAll(ctx context.Context, filter bulk.ImportRunFilter) ([]*bulk.ImportRun, error) {
	query := conn(ctx, r.db).Model(&models.ImportRunModel{})
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var runModels []models.ImportRunModel
	order := ValidateSortField(filter.OrderBy, ImportRunSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir)
	if err := query.Order(order).Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*bulk.ImportRun, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, nil
}

// Save saves an import run (create or update)
func (r *GormImportRunRepository) Save(ctx context.Context, run *bulk.ImportRun) error {
	return translateError(conn(ctx, r.db).Save(models.ImportRunModelFromDomain(run)).Error)
}

// Compile-time interface compliance check
var _ bulk.ImportRunRepository = (*GormImportRunRepository)(nil)
