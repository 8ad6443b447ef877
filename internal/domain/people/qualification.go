package people

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

// QualificationKind describes a qualification such as a tour leader level
type QualificationKind struct {
	Code          string
	Label         string
	ValidityYears int // 0 means unlimited
}

// Known qualification kinds
var qualificationKinds = map[string]QualificationKind{
	"SAC_TL_SOMMER_1":    {Code: "SAC_TL_SOMMER_1", Label: "SAC Tourenleiter/in 1 Sommer", ValidityYears: 6},
	"SAC_TL_SOMMER_2":    {Code: "SAC_TL_SOMMER_2", Label: "SAC Tourenleiter/in 2 Sommer", ValidityYears: 6},
	"SAC_TL_WINTER_1":    {Code: "SAC_TL_WINTER_1", Label: "SAC Tourenleiter/in 1 Winter", ValidityYears: 6},
	"SAC_TL_WINTER_2":    {Code: "SAC_TL_WINTER_2", Label: "SAC Tourenleiter/in 2 Winter", ValidityYears: 6},
	"SAC_TL_BERGWANDERN": {Code: "SAC_TL_BERGWANDERN", Label: "SAC Tourenleiter/in Bergwandern", ValidityYears: 6},
	"JS_LEITER":          {Code: "JS_LEITER", Label: "J+S Leiter/in Bergsteigen", ValidityYears: 2},
	"BERGFUEHRER":        {Code: "BERGFUEHRER", Label: "Bergführer/in IVBV", ValidityYears: 0},
}

// LookupQualificationKind returns the kind for a code
func LookupQualificationKind(code string) (QualificationKind, bool) {
	kind, ok := qualificationKinds[strings.ToUpper(strings.TrimSpace(code))]
	return kind, ok
}

// Qualification is a qualification held by a person for a period
type Qualification struct {
	shared.BaseEntity
	PersonID uuid.UUID
	Kind     QualificationKind
	StartAt  time.Time
	FinishAt *time.Time
	Origin   string
}

// NewQualification creates a qualification. The finish date defaults to
// the end of the year the kind's validity runs out.
func NewQualification(personID uuid.UUID, kind QualificationKind, startAt time.Time, finishAt *time.Time, origin string) (*Qualification, error) {
	startAt = shared.Date(startAt)
	if finishAt != nil {
		f := shared.Date(*finishAt)
		if f.Before(startAt) {
			return nil, shared.NewDomainError("INVALID_QUALIFICATION_PERIOD", "Qualification cannot finish before it starts")
		}
		finishAt = &f
	} else if kind.ValidityYears > 0 {
		f := shared.EndOfYear(startAt.AddDate(kind.ValidityYears, 0, 0))
		finishAt = &f
	}
	return &Qualification{
		BaseEntity: shared.NewBaseEntity(),
		PersonID:   personID,
		Kind:       kind,
		StartAt:    startAt,
		FinishAt:   finishAt,
		Origin:     strings.TrimSpace(origin),
	}, nil
}

// ActiveOn reports whether the qualification is valid on date d
func (q *Qualification) ActiveOn(d time.Time) bool {
	d = shared.Date(d)
	if d.Before(q.StartAt) {
		return false
	}
	return q.FinishAt == nil || !d.After(*q.FinishAt)
}
