package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
)

// PersonModel is the persistence model for the Person aggregate
type PersonModel struct {
	AggregateModel
	MembershipNumber     *int64          `gorm:"uniqueIndex"`
	FirstName            string          `gorm:"type:varchar(100)"`
	LastName             string          `gorm:"type:varchar(100);index"`
	Birthday             *time.Time      `gorm:"type:date"`
	Gender               people.Gender   `gorm:"type:varchar(1)"`
	Language             people.Language `gorm:"type:varchar(2);not null;default:'de'"`
	Email                string          `gorm:"type:varchar(255);index"`
	Phone                string          `gorm:"type:varchar(50)"`
	Street               string          `gorm:"type:varchar(200)"`
	HouseNumber          string          `gorm:"type:varchar(20)"`
	PostBox              string          `gorm:"type:varchar(50)"`
	ZipCode              string          `gorm:"type:varchar(10)"`
	Town                 string          `gorm:"type:varchar(100)"`
	Country              string          `gorm:"type:varchar(2)"`
	HouseholdKey         string          `gorm:"type:varchar(50);index"`
	FamilyMainPerson     bool            `gorm:"not null;default:false"`
	DataRetentionConsent bool            `gorm:"not null;default:false"`
	SubscribeNewsletter  bool            `gorm:"not null;default:false"`
	SubscribeFundraising bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PersonModel) TableName() string {
	return "people"
}

// ToDomain converts the persistence model to a domain Person
func (m *PersonModel) ToDomain() *people.Person {
	return &people.Person{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		MembershipNumber:     m.MembershipNumber,
		FirstName:            m.FirstName,
		LastName:             m.LastName,
		Birthday:             utcDate(m.Birthday),
		Gender:               m.Gender,
		Language:             m.Language,
		Email:                m.Email,
		Phone:                m.Phone,
		Street:               m.Street,
		HouseNumber:          m.HouseNumber,
		PostBox:              m.PostBox,
		ZipCode:              m.ZipCode,
		Town:                 m.Town,
		Country:              m.Country,
		HouseholdKey:         m.HouseholdKey,
		FamilyMainPerson:     m.FamilyMainPerson,
		DataRetentionConsent: m.DataRetentionConsent,
		SubscribeNewsletter:  m.SubscribeNewsletter,
		SubscribeFundraising: m.SubscribeFundraising,
	}
}

// FromDomain populates the persistence model from a domain Person
func (m *PersonModel) FromDomain(p *people.Person) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.MembershipNumber = p.MembershipNumber
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Birthday = p.Birthday
	m.Gender = p.Gender
	m.Language = p.Language
	m.Email = p.Email
	m.Phone = p.Phone
	m.Street = p.Street
	m.HouseNumber = p.HouseNumber
	m.PostBox = p.PostBox
	m.ZipCode = p.ZipCode
	m.Town = p.Town
	m.Country = p.Country
	m.HouseholdKey = p.HouseholdKey
	m.FamilyMainPerson = p.FamilyMainPerson
	m.DataRetentionConsent = p.DataRetentionConsent
	m.SubscribeNewsletter = p.SubscribeNewsletter
	m.SubscribeFundraising = p.SubscribeFundraising
}

// PersonModelFromDomain creates a new persistence model from a domain Person
func PersonModelFromDomain(p *people.Person) *PersonModel {
	m := &PersonModel{}
	m.FromDomain(p)
	return m
}

// QualificationModel is the persistence model for qualifications
type QualificationModel struct {
	BaseModel
	PersonID uuid.UUID  `gorm:"type:uuid;not null;index"`
	KindCode string     `gorm:"type:varchar(50);not null"`
	StartAt  time.Time  `gorm:"type:date;not null"`
	FinishAt *time.Time `gorm:"type:date"`
	Origin   string     `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (QualificationModel) TableName() string {
	return "qualifications"
}

// ToDomain converts the persistence model to a domain Qualification.
// Unknown kind codes are kept with the code as label.
func (m *QualificationModel) ToDomain() *people.Qualification {
	kind, ok := people.LookupQualificationKind(m.KindCode)
	if !ok {
		kind = people.QualificationKind{Code: m.KindCode, Label: m.KindCode}
	}
	return &people.Qualification{
		BaseEntity: m.BaseModel.ToDomain(),
		PersonID:   m.PersonID,
		Kind:       kind,
		StartAt:    shared.Date(m.StartAt),
		FinishAt:   utcDate(m.FinishAt),
		Origin:     m.Origin,
	}
}

// QualificationModelFromDomain creates a new persistence model from a domain Qualification
func QualificationModelFromDomain(q *people.Qualification) *QualificationModel {
	m := &QualificationModel{
		PersonID: q.PersonID,
		KindCode: q.Kind.Code,
		StartAt:  q.StartAt,
		FinishAt: q.FinishAt,
		Origin:   q.Origin,
	}
	m.FromDomainBaseEntity(q.BaseEntity)
	return m
}

// utcDate normalizes a date read from the database to UTC midnight
func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return shared.DatePtr(*t)
}
