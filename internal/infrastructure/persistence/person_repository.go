package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPersonRepository implements PersonRepository using GORM
type GormPersonRepository struct {
	db *gorm.DB
}

// NewGormPersonRepository creates a new GormPersonRepository
func NewGormPersonRepository(db *gorm.DB) *GormPersonRepository {
	return &GormPersonRepository{db: db}
}

// Save creates or updates a person
func (r *GormPersonRepository) Save(ctx context.Context, person *people.Person) error {
	return translateError(conn(ctx, r.db).Save(models.PersonModelFromDomain(person)).Error)
}

// FindByID finds a person by ID
func (r *GormPersonRepository) FindByID(ctx context.Context, id uuid.UUID) (*people.Person, error) {
	var model models.PersonModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the persons with the given IDs ordered by name
func (r *GormPersonRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*people.Person, error) {
	if len(ids) == 0 {
		return []*people.Person{}, nil
	}
	var personModels []models.PersonModel
	if err := conn(ctx, r.db).
		Where("id IN ?", ids).
		Order("last_name ASC, first_name ASC").
		Find(&personModels).Error; err != nil {
		return nil, err
	}
	return toPeople(personModels), nil
}

// FindByMembershipNumber finds a person by the legacy membership number
func (r *GormPersonRepository) FindByMembershipNumber(ctx context.Context, number int64) (*people.Person, error) {
	var model models.PersonModel
	if err := conn(ctx, r.db).Where("membership_number = ?", number).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByHouseholdKey returns all members of a household
func (r *GormPersonRepository) FindByHouseholdKey(ctx context.Context, key string) ([]*people.Person, error) {
	if key == "" {
		return []*people.Person{}, nil
	}
	var personModels []models.PersonModel
	if err := conn(ctx, r.db).
		Where("household_key = ?", key).
		Order("birthday ASC").
		Find(&personModels).Error; err != nil {
		return nil, err
	}
	return toPeople(personModels), nil
}

func toPeople(personModels []models.PersonModel) []*people.Person {
	persons := make([]*people.Person, len(personModels))
	for i := range personModels {
		persons[i] = personModels[i].ToDomain()
	}
	return persons
}

// GormQualificationRepository implements QualificationRepository using GORM
type GormQualificationRepository struct {
	db *gorm.DB
}

// NewGormQualificationRepository creates a new GormQualificationRepository
func NewGormQualificationRepository(db *gorm.DB) *GormQualificationRepository {
	return &GormQualificationRepository{db: db}
}

// Save creates or updates a qualification
func (r *GormQualificationRepository) Save(ctx context.Context, q *people.Qualification) error {
	return translateError(conn(ctx, r.db).Save(models.QualificationModelFromDomain(q)).Error)
}

// FindByPersonIDs returns the qualifications of the persons, oldest first
func (r *GormQualificationRepository) FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID) ([]*people.Qualification, error) {
	if len(personIDs) == 0 {
		return []*people.Qualification{}, nil
	}
	var qualificationModels []models.QualificationModel
	if err := conn(ctx, r.db).
		Where("person_id IN ?", personIDs).
		Order("start_at ASC").
		Find(&qualificationModels).Error; err != nil {
		return nil, err
	}
	qualifications := make([]*people.Qualification, len(qualificationModels))
	for i := range qualificationModels {
		qualifications[i] = qualificationModels[i].ToDomain()
	}
	return qualifications, nil
}

// ExistsForPerson reports whether the person already holds the kind starting on startAt.
// Dates are compared after loading since drivers store them differently.
func (r *GormQualificationRepository) ExistsForPerson(ctx context.Context, personID uuid.UUID, kindCode string, startAt time.Time) (bool, error) {
	var qualificationModels []models.QualificationModel
	if err := conn(ctx, r.db).
		Where("person_id = ? AND kind_code = ?", personID, kindCode).
		Find(&qualificationModels).Error; err != nil {
		return false, err
	}
	for i := range qualificationModels {
		if shared.SameDate(qualificationModels[i].StartAt, startAt) {
			return true, nil
		}
	}
	return false, nil
}

// Compile-time interface compliance checks
var (
	_ people.PersonRepository        = (*GormPersonRepository)(nil)
	_ people.QualificationRepository = (*GormQualificationRepository)(nil)
)
