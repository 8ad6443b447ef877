// Package export builds the tabular exports of a section and stores the
// rendered artifacts.
package export

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/tabular"
	"github.com/sac/membership/internal/infrastructure/telemetry"
)

// Kind names an export definition
type Kind string

const (
	KindMitglieder      Kind = "sac_mitglieder"
	KindStatistik       Kind = "mitglieder_statistik"
	KindQualifikationen Kind = "qualifikationen"
	KindPersonen        Kind = "personen"
)

// ErrUnknownKind is returned for export kinds without a definition
var ErrUnknownKind = shared.NewDomainError("UNKNOWN_EXPORT_KIND", "Unknown export kind")

// ParseKind converts a string into a known Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMitglieder, KindStatistik, KindQualifikationen, KindPersonen:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Request selects an export. On is the reference date; Statistik uses
// Year and falls back to the year of On.
type Request struct {
	Kind    Kind
	LayerID uuid.UUID
	On      time.Time
	Year    int
}

// Service builds export tables from the repositories
type Service struct {
	groups organization.GroupRepository
	people people.PersonRepository
	roles  membership.RoleRepository
	quals  people.QualificationRepository
	clock  shared.Clock
}

// NewService creates a new export service
func NewService(
	groups organization.GroupRepository,
	persons people.PersonRepository,
	roles membership.RoleRepository,
	quals people.QualificationRepository,
) *Service {
	return &Service{
		groups: groups,
		people: persons,
		roles:  roles,
		quals:  quals,
		clock:  shared.SystemClock,
	}
}

// WithClock replaces the clock used for "today"
func (s *Service) WithClock(clock shared.Clock) *Service {
	s.clock = clock
	return s
}

// Build creates the table of the requested export
func (s *Service) Build(ctx context.Context, req Request) (*tabular.Table, error) {
	ctx, span := telemetry.StartSpan(ctx, "export."+string(req.Kind),
		telemetry.AttrExportKind, string(req.Kind),
		telemetry.AttrLayerID, req.LayerID,
	)
	defer span.End()

	if req.On.IsZero() {
		req.On = s.clock()
	}
	req.On = shared.Date(req.On)

	var (
		t   *tabular.Table
		err error
	)
	switch req.Kind {
	case KindMitglieder:
		t, err = s.Mitglieder(ctx, req.LayerID, req.On)
	case KindStatistik:
		year := req.Year
		if year == 0 {
			year = req.On.Year()
		}
		t, err = s.Statistik(ctx, req.LayerID, year)
	case KindQualifikationen:
		t, err = s.Qualifikationen(ctx, req.LayerID, req.On)
	case KindPersonen:
		t, err = s.Personen(ctx, req.LayerID, req.On)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrRows, len(t.Rows))
	telemetry.SetOK(span)
	return t, nil
}

// layer loads a group and makes sure it starts a layer
func (s *Service) layer(ctx context.Context, id uuid.UUID) (*organization.Group, error) {
	g, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.Type.IsLayer() {
		return nil, shared.NewDomainError("NOT_A_LAYER", "Group "+g.Name+" is not a layer")
	}
	return g, nil
}

// layerRoles loads the layer's roles together with their people
func (s *Service) layerRoles(ctx context.Context, layerID uuid.UUID) (membership.Roles, map[uuid.UUID]*people.Person, error) {
	roles, err := s.roles.FindByLayerID(ctx, layerID)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		if !seen[r.PersonID] {
			seen[r.PersonID] = true
			ids = append(ids, r.PersonID)
		}
	}
	byID := make(map[uuid.UUID]*people.Person, len(ids))
	if len(ids) == 0 {
		return roles, byID, nil
	}
	persons, err := s.people.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range persons {
		byID[p.ID] = p
	}
	return roles, byID, nil
}

func sortPeople(list []*people.Person) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		return list[i].FirstName < list[j].FirstName
	})
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02.01.2006")
}

func yesNo(b bool) string {
	if b {
		return "Ja"
	}
	return "Nein"
}

func membershipNumber(p *people.Person) string {
	if p.MembershipNumber == nil {
		return ""
	}
	return strconv.FormatInt(*p.MembershipNumber, 10)
}

func genderLabel(g people.Gender) string {
	switch g {
	case people.GenderMale:
		return "männlich"
	case people.GenderFemale:
		return "weiblich"
	}
	return ""
}
