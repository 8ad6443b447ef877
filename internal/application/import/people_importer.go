package importapp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/csvimport"
)

// PeopleImporter loads people keyed by their legacy membership number.
// Existing people are updated.
type PeopleImporter struct {
	people people.PersonRepository
}

// NewPeopleImporter creates a people importer
func NewPeopleImporter(persons people.PersonRepository) *PeopleImporter {
	return &PeopleImporter{people: persons}
}

// Kind implements Importer
func (i *PeopleImporter) Kind() bulk.ImporterKind {
	return bulk.ImporterPeople
}

// Rules implements Importer. Email is checked while importing so a bad
// address only drops the address, not the person.
func (i *PeopleImporter) Rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("navision_id").Required().Int().Range(1, math.MaxInt64).Unique().Build(),
		csvimport.Field("first_name").MaxLength(100).Build(),
		csvimport.Field("last_name").MaxLength(100).Build(),
		csvimport.Field("birthday").Date().Build(),
		csvimport.Field("gender").OneOf("m", "w", "f", "male", "female", "männlich", "weiblich").Build(),
		csvimport.Field("language").OneOf("de", "fr", "it", "en").Build(),
		csvimport.Field("street").MaxLength(200).Build(),
		csvimport.Field("family_main_person").Bool().Build(),
	}
}

// Batches implements Importer
func (i *PeopleImporter) Batches(rows []*csvimport.Row, report *csvimport.Report) [][]*csvimport.Row {
	return singleBatch(rows, report)
}

// ImportRow creates or updates one person
func (i *PeopleImporter) ImportRow(ctx context.Context, row *csvimport.Row) (string, error) {
	nav, _ := strconv.ParseInt(row.Get("navision_id"), 10, 64)
	first, last := row.Get("first_name"), row.Get("last_name")

	p, err := i.people.FindByMembershipNumber(ctx, nav)
	switch {
	case err == nil:
		if err := p.Rename(first, last); err != nil {
			return "", err
		}
	case errors.Is(err, shared.ErrNotFound):
		if p, err = people.NewPerson(first, last); err != nil {
			return "", err
		}
		if err := p.SetMembershipNumber(nav); err != nil {
			return "", err
		}
	default:
		return "", err
	}

	var warnings []string
	if raw := row.Get("birthday"); raw != "" {
		birthday, _ := csvimport.ParseDate(raw)
		if err := p.SetBirthday(birthday); err != nil {
			warnings = append(warnings, fmt.Sprintf("birthday %s ignored", raw))
		}
	}
	if err := p.SetGender(row.Get("gender")); err != nil {
		return "", err
	}
	if err := p.SetLanguage(row.Get("language")); err != nil {
		return "", err
	}
	if raw := row.Get("email"); raw != "" {
		if err := p.SetEmail(raw); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid email %s ignored", raw))
		}
	}
	p.Phone = row.Get("phone")
	if err := p.SetAddress(
		row.Get("street"),
		row.Get("housenumber"),
		row.Get("postbox"),
		row.Get("zip_code"),
		row.Get("town"),
		row.Get("country"),
	); err != nil {
		return "", err
	}

	if key := row.Get("household_key"); key != "" {
		main, _ := csvimport.ParseBool(row.Get("family_main_person"))
		p.JoinHousehold(key)
		p.FamilyMainPerson = main
	} else if p.InHousehold() {
		p.LeaveHousehold()
	}

	if err := i.people.Save(ctx, p); err != nil {
		return "", err
	}
	return strings.Join(warnings, "; "), nil
}
