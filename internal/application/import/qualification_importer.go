package importapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/csvimport"
)

// QualificationImporter loads qualifications of already imported people
type QualificationImporter struct {
	people people.PersonRepository
	quals  people.QualificationRepository
}

// NewQualificationImporter creates a qualification importer
func NewQualificationImporter(persons people.PersonRepository, quals people.QualificationRepository) *QualificationImporter {
	return &QualificationImporter{people: persons, quals: quals}
}

// Kind implements Importer
func (i *QualificationImporter) Kind() bulk.ImporterKind {
	return bulk.ImporterQualifications
}

// Rules implements Importer
func (i *QualificationImporter) Rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("navision_id").Required().Int().Build(),
		csvimport.Field("kind").Required().Custom(func(value string) error {
			if _, ok := people.LookupQualificationKind(value); !ok {
				return fmt.Errorf("unknown qualification kind")
			}
			return nil
		}).Build(),
		csvimport.Field("start_at").Required().Date().Build(),
		csvimport.Field("finish_at").Date().Build(),
		csvimport.Field("origin").MaxLength(200).Build(),
	}
}

// Batches implements Importer
func (i *QualificationImporter) Batches(rows []*csvimport.Row, report *csvimport.Report) [][]*csvimport.Row {
	return singleBatch(rows, report)
}

// ImportRow creates one qualification; already imported ones are skipped
func (i *QualificationImporter) ImportRow(ctx context.Context, row *csvimport.Row) (string, error) {
	nav, _ := strconv.ParseInt(row.Get("navision_id"), 10, 64)
	person, err := i.people.FindByMembershipNumber(ctx, nav)
	if errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("person %d not found", nav)
	}
	if err != nil {
		return "", err
	}

	kind, _ := people.LookupQualificationKind(row.Get("kind"))
	startAt, _ := csvimport.ParseDate(row.Get("start_at"))
	finishAt, _ := csvimport.ParseOptionalDate(row.Get("finish_at"))

	exists, err := i.quals.ExistsForPerson(ctx, person.ID, kind.Code, startAt)
	if err != nil {
		return "", err
	}
	if exists {
		return "qualification already imported, row skipped", nil
	}

	q, err := people.NewQualification(person.ID, kind, startAt, finishAt, row.Get("origin"))
	if err != nil {
		return "", err
	}
	return "", i.quals.Save(ctx, q)
}
