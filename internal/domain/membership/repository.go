package membership

import (
	"context"

	"github.com/google/uuid"
)

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	Save(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)
	// FindByPersonID returns every role of the person, ended ones included
	FindByPersonID(ctx context.Context, personID uuid.UUID) (Roles, error)
	FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID) (Roles, error)
	FindByGroupID(ctx context.Context, groupID uuid.UUID) (Roles, error)
	FindByLayerID(ctx context.Context, layerID uuid.UUID) (Roles, error)
	FindByMutationID(ctx context.Context, mutationID uuid.UUID) (Roles, error)
}

// TerminationReasonRepository defines the interface for termination reasons
type TerminationReasonRepository interface {
	Save(ctx context.Context, reason *TerminationReason) error
	FindByID(ctx context.Context, id uuid.UUID) (*TerminationReason, error)
	FindByCode(ctx context.Context, code string) (*TerminationReason, error)
	FindAll(ctx context.Context) ([]*TerminationReason, error)
}
