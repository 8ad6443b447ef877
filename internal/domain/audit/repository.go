package audit

import (
	"context"

	"github.com/google/uuid"
)

// VersionRepository persists change log entries
type VersionRepository interface {
	Save(ctx context.Context, v *Version) error
	// FindByMain returns the versions of a main record, oldest first
	FindByMain(ctx context.Context, mainType string, mainID uuid.UUID) ([]*Version, error)
}
