package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/audit"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVersionRepository implements VersionRepository using GORM
type GormVersionRepository struct {
	db *gorm.DB
}

// NewGormVersionRepository creates a new GormVersionRepository
func NewGormVersionRepository(db *gorm.DB) *GormVersionRepository {
	return &GormVersionRepository{db: db}
}

// Save appends a version
func (r *GormVersionRepository) Save(ctx context.Context, v *audit.Version) error {
	return translateError(conn(ctx, r.db).Create(models.VersionModelFromDomain(v)).Error)
}

// FindByMain returns the versions of a main record, oldest first
func (r *GormVersionRepository) FindByMain(ctx context.Context, mainType string, mainID uuid.UUID) ([]*audit.Version, error) {
	var versionModels []models.VersionModel
	if err := conn(ctx, r.db).
		Where("main_type = ? AND main_id = ?", mainType, mainID).
		Order("created_at ASC").
		Find(&versionModels).Error; err != nil {
		return nil, err
	}
	versions := make([]*audit.Version, len(versionModels))
	for i := range versionModels {
		versions[i] = versionModels[i].ToDomain()
	}
	return versions, nil
}

// Compile-time interface compliance check
var _ audit.VersionRepository = (*GormVersionRepository)(nil)
