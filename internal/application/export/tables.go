package export

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/tabular"
)

var mitgliederHeaders = []string{
	"Mitglied-Nr", "Nachname", "Vorname", "Adresse", "Postfach", "PLZ", "Ort", "Land",
	"Geburtsdatum", "Telefon", "E-Mail", "Geschlecht", "Sprache", "Eintrittsjahr",
	"Begünstigt", "Ehrenmitglied", "Beitragskategorie", "Mitgliedschaft", "Familien-ID",
}

// Mitglieder lists every member of the layer on the reference date, one
// row per membership role.
func (s *Service) Mitglieder(ctx context.Context, layerID uuid.UUID, on time.Time) (*tabular.Table, error) {
	layer, err := s.layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	roles, persons, err := s.layerRoles(ctx, layer.ID)
	if err != nil {
		return nil, err
	}

	active := roles.ActiveOn(on)
	memberships := active.OfType(membership.RoleMitglied, membership.RoleMitgliedZusatzsektion)
	byPerson := make(map[uuid.UUID]*membership.Role, len(memberships))
	list := make([]*people.Person, 0, len(memberships))
	for _, r := range memberships {
		p, ok := persons[r.PersonID]
		if !ok {
			continue
		}
		byPerson[p.ID] = r
		list = append(list, p)
	}
	sortPeople(list)

	t := tabular.NewTable(string(KindMitglieder), mitgliederHeaders...)
	for _, p := range list {
		r := byPerson[p.ID]
		own := roles.ForPerson(p.ID)

		entry := ""
		if first, ok := own.OfType(r.Type).FirstStartOn(); ok {
			entry = strconv.Itoa(first.Year())
		}
		kind := "Stammsektion"
		if r.Type == membership.RoleMitgliedZusatzsektion {
			kind = "Zusatzsektion"
		}
		familyID := ""
		if r.Beitragskategorie == membership.BeitragskategorieFamily {
			familyID = p.HouseholdKey
		}
		ownActive := own.ActiveOn(on)
		if err := t.AddRow(
			membershipNumber(p),
			p.LastName,
			p.FirstName,
			p.Address(),
			p.PostBox,
			p.ZipCode,
			p.Town,
			p.Country,
			formatDate(p.Birthday),
			p.Phone,
			p.Email,
			genderLabel(p.Gender),
			strings.ToUpper(string(p.Language)),
			entry,
			yesNo(len(ownActive.OfType(membership.RoleBeguenstigt)) > 0),
			yesNo(len(ownActive.OfType(membership.RoleEhrenmitglied)) > 0),
			r.Beitragskategorie.Label(),
			kind,
			familyID,
		); err != nil {
			return nil, err
		}
	}
	return t, nil
}

type statistikRow struct {
	stamm, zusatz, entries, exits int
}

// Statistik counts members per Beitragskategorie. Member counts are taken
// on the last day of the year, or today for the running year.
func (s *Service) Statistik(ctx context.Context, layerID uuid.UUID, year int) (*tabular.Table, error) {
	layer, err := s.layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.FindByLayerID(ctx, layer.ID)
	if err != nil {
		return nil, err
	}

	ref := shared.EndOfYear(shared.NewDate(year, time.January, 1))
	if today := shared.Date(s.clock()); today.Before(ref) {
		ref = today
	}

	counts := make(map[membership.Beitragskategorie]*statistikRow)
	for _, k := range membership.AllBeitragskategorien() {
		counts[k] = &statistikRow{}
	}
	memberships := roles.OfType(membership.RoleMitglied, membership.RoleMitgliedZusatzsektion)
	for _, r := range memberships {
		row, ok := counts[r.Beitragskategorie]
		if !ok {
			continue
		}
		if r.ActiveOn(ref) {
			if r.Type == membership.RoleMitglied {
				row.stamm++
			} else {
				row.zusatz++
			}
		}
		if r.StartOn.Year() == year && isEntry(memberships, r) {
			row.entries++
		}
		if r.Terminated && r.EndOn != nil && r.EndOn.Year() == year {
			row.exits++
		}
	}

	t := tabular.NewTable(string(KindStatistik), "Beitragskategorie", "Stammsektion", "Zusatzsektion", "Eintritte", "Austritte")
	var total statistikRow
	for _, k := range membership.AllBeitragskategorien() {
		row := counts[k]
		total.stamm += row.stamm
		total.zusatz += row.zusatz
		total.entries += row.entries
		total.exits += row.exits
		if err := t.AddRow(k.Label(), itoa(row.stamm), itoa(row.zusatz), itoa(row.entries), itoa(row.exits)); err != nil {
			return nil, err
		}
	}
	if err := t.AddRow("Total", itoa(total.stamm), itoa(total.zusatz), itoa(total.entries), itoa(total.exits)); err != nil {
		return nil, err
	}
	return t, nil
}

// isEntry reports whether r starts a membership rather than continuing
// one that ran until the day before (renewals and category changes).
func isEntry(memberships membership.Roles, r *membership.Role) bool {
	before := shared.Yesterday(r.StartOn)
	for _, other := range memberships.ForPerson(r.PersonID).OfType(r.Type) {
		if other.ID != r.ID && other.ActiveOn(before) {
			return false
		}
	}
	return true
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// Qualifikationen lists the qualifications of the layer's members
func (s *Service) Qualifikationen(ctx context.Context, layerID uuid.UUID, on time.Time) (*tabular.Table, error) {
	layer, err := s.layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	roles, persons, err := s.layerRoles(ctx, layer.ID)
	if err != nil {
		return nil, err
	}
	members := roles.ActiveOn(on).OfType(membership.RoleMitglied, membership.RoleMitgliedZusatzsektion)
	ids := make([]uuid.UUID, 0, len(members))
	for _, r := range members {
		if _, ok := persons[r.PersonID]; ok {
			ids = append(ids, r.PersonID)
		}
	}

	t := tabular.NewTable(string(KindQualifikationen), "Mitglied-Nr", "Name", "Qualifikation", "Von", "Bis", "Aktiv")
	if len(ids) == 0 {
		return t, nil
	}
	quals, err := s.quals.FindByPersonIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quals, func(i, j int) bool {
		a, b := persons[quals[i].PersonID], persons[quals[j].PersonID]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.ID != b.ID {
			return a.ID.String() < b.ID.String()
		}
		return quals[i].StartAt.Before(quals[j].StartAt)
	})
	for _, q := range quals {
		p := persons[q.PersonID]
		start := q.StartAt
		if err := t.AddRow(
			membershipNumber(p),
			p.LastName+" "+p.FirstName,
			q.Kind.Label,
			formatDate(&start),
			formatDate(q.FinishAt),
			yesNo(q.ActiveOn(on)),
		); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Personen lists everyone with an active role in the layer
func (s *Service) Personen(ctx context.Context, layerID uuid.UUID, on time.Time) (*tabular.Table, error) {
	layer, err := s.layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	roles, persons, err := s.layerRoles(ctx, layer.ID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.FindByLayer(ctx, layer.ID)
	if err != nil {
		return nil, err
	}
	groupNames := make(map[uuid.UUID]string, len(groups)+1)
	groupNames[layer.ID] = layer.Name
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	active := roles.ActiveOn(on)
	list := make([]*people.Person, 0)
	listed := make(map[uuid.UUID]bool)
	for _, r := range active {
		if p, ok := persons[r.PersonID]; ok && !listed[p.ID] {
			listed[p.ID] = true
			list = append(list, p)
		}
	}
	sortPeople(list)

	t := tabular.NewTable(string(KindPersonen), "Mitglied-Nr", "Nachname", "Vorname", "E-Mail", "Geburtsdatum", "Rollen")
	for _, p := range list {
		own := active.ForPerson(p.ID)
		own.SortByStart()
		labels := make([]string, 0, len(own))
		for _, r := range own {
			labels = append(labels, r.Type.Label()+" ("+groupNames[r.GroupID]+")")
		}
		if err := t.AddRow(
			membershipNumber(p),
			p.LastName,
			p.FirstName,
			p.Email,
			formatDate(p.Birthday),
			strings.Join(labels, ", "),
		); err != nil {
			return nil, err
		}
	}
	return t, nil
}
