package organization

import (
	"context"

	"github.com/google/uuid"
)

// GroupRepository defines the interface for group persistence
type GroupRepository interface {
	// Save creates or updates a group
	Save(ctx context.Context, group *Group) error

	// FindByID finds a group by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Group, error)

	// FindByNavisionID finds a group by its legacy identifier
	FindByNavisionID(ctx context.Context, navisionID int64) (*Group, error)

	// FindRoot finds the club root group
	FindRoot(ctx context.Context) (*Group, error)

	// FindChildren finds all direct children of a group
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]*Group, error)

	// FindDescendants finds all descendants of a group (using the materialized path)
	FindDescendants(ctx context.Context, group *Group) ([]*Group, error)

	// FindByLayer finds all groups of a layer, optionally restricted to some types
	FindByLayer(ctx context.Context, layerID uuid.UUID, types ...GroupType) ([]*Group, error)

	// FindLayers finds all layer groups of the given types
	FindLayers(ctx context.Context, types ...GroupType) ([]*Group, error)
}
