package membership

import (
	"strings"

	"github.com/sac/membership/internal/domain/people"
)

// Beitragskategorie is the membership fee category
type Beitragskategorie string

const (
	BeitragskategorieAdult  Beitragskategorie = "adult"
	BeitragskategorieYouth  Beitragskategorie = "youth"
	BeitragskategorieFamily Beitragskategorie = "family"
)

// AllBeitragskategorien lists the categories in display order
func AllBeitragskategorien() []Beitragskategorie {
	return []Beitragskategorie{BeitragskategorieAdult, BeitragskategorieFamily, BeitragskategorieYouth}
}

// ParseBeitragskategorie accepts current codes and legacy labels
func ParseBeitragskategorie(s string) (Beitragskategorie, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adult", "einzel", "einzelmitglied", "e":
		return BeitragskategorieAdult, true
	case "youth", "jugend", "jugendmitglied", "j":
		return BeitragskategorieYouth, true
	case "family", "familie", "familienmitglied", "f":
		return BeitragskategorieFamily, true
	}
	return "", false
}

// Label returns the German display label
func (b Beitragskategorie) Label() string {
	switch b {
	case BeitragskategorieAdult:
		return "Einzel"
	case BeitragskategorieYouth:
		return "Jugend"
	case BeitragskategorieFamily:
		return "Familie"
	}
	return ""
}

// CalculateBeitragskategorie derives the category of a person for a year.
// Returns false when the person is not eligible (unknown birthday or
// younger than six outside a family).
func CalculateBeitragskategorie(p *people.Person, year int) (Beitragskategorie, bool) {
	age := p.AgeIn(year)
	if age < 0 {
		return "", false
	}
	if p.InHousehold() && (age >= people.AdultAge || (age >= people.YouthMinAge && age <= people.MinorFamilyMax)) {
		return BeitragskategorieFamily, true
	}
	switch {
	case age >= people.AdultAge:
		return BeitragskategorieAdult, true
	case age >= people.YouthMinAge:
		return BeitragskategorieYouth, true
	}
	return "", false
}
