package people

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PersonRepository defines the interface for person persistence
type PersonRepository interface {
	Save(ctx context.Context, person *Person) error
	FindByID(ctx context.Context, id uuid.UUID) (*Person, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Person, error)
	FindByMembershipNumber(ctx context.Context, number int64) (*Person, error)
	// FindByHouseholdKey returns all members of a household
	FindByHouseholdKey(ctx context.Context, key string) ([]*Person, error)
}

// QualificationRepository defines the interface for qualification persistence
type QualificationRepository interface {
	Save(ctx context.Context, q *Qualification) error
	FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID) ([]*Qualification, error)
	ExistsForPerson(ctx context.Context, personID uuid.UUID, kindCode string, startAt time.Time) (bool, error)
}
