package bulk

import (
	"context"

	"github.com/google/uuid"
)

// ImportRunFilter defines the filters for listing import runs
type ImportRunFilter struct {
	Kind     *ImporterKind // Filter by importer
	Status   *RunStatus    // Filter by status
	Limit    int
	OrderBy  string // defaults to created_at
	OrderDir string // defaults to DESC
}

// ImportRunRepository defines the interface for import run persistence
type ImportRunRepository interface {
	// FindByID finds an import run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportRun, error)

	// FindAll returns the runs matching filter
	FindAll(ctx context.Context, filter ImportRunFilter) ([]*ImportRun, error)

	// Save saves an import run (create or update)
	Save(ctx context.Context, run *ImportRun) error
}
