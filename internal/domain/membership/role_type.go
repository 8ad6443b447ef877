package membership

import "github.com/sac/membership/internal/domain/organization"

// RoleType discriminates the kinds of roles a person can hold in a group
type RoleType string

const (
	RoleMitglied                    RoleType = "mitglied"
	RoleMitgliedZusatzsektion       RoleType = "mitglied_zusatzsektion"
	RoleEhrenmitglied               RoleType = "ehrenmitglied"
	RoleBeguenstigt                 RoleType = "beguenstigt"
	RoleNeuanmeldung                RoleType = "neuanmeldung"
	RoleNeuanmeldungZusatzsektion   RoleType = "neuanmeldung_zusatzsektion"
	RolePraesidium                  RoleType = "praesidium"
	RoleMitgliederverwaltung        RoleType = "mitgliederverwaltung"
	RoleTourenleiter                RoleType = "tourenleiter"
	RoleGeschaeftsstelleMitarbeiter RoleType = "geschaeftsstelle_mitarbeiter"
)

type roleTypeInfo struct {
	label              string
	groupTypes         []organization.GroupType
	membership         bool
	beitragskategorie  bool
	endsWithMembership bool
}

var roleTypes = map[RoleType]roleTypeInfo{
	RoleMitglied: {
		label:             "Mitglied (Stammsektion)",
		groupTypes:        []organization.GroupType{organization.GroupTypeSektionsMitglieder},
		membership:        true,
		beitragskategorie: true,
	},
	RoleMitgliedZusatzsektion: {
		label:             "Mitglied (Zusatzsektion)",
		groupTypes:        []organization.GroupType{organization.GroupTypeSektionsMitglieder},
		membership:        true,
		beitragskategorie: true,
	},
	RoleEhrenmitglied: {
		label:              "Ehrenmitglied",
		groupTypes:         []organization.GroupType{organization.GroupTypeSektionsMitglieder},
		endsWithMembership: true,
	},
	RoleBeguenstigt: {
		label:              "Begünstigt",
		groupTypes:         []organization.GroupType{organization.GroupTypeSektionsMitglieder},
		endsWithMembership: true,
	},
	RoleNeuanmeldung: {
		label: "Neuanmeldung (Stammsektion)",
		groupTypes: []organization.GroupType{
			organization.GroupTypeSektionsNeuanmeldungenSektion,
			organization.GroupTypeSektionsNeuanmeldungenNv,
		},
		beitragskategorie: true,
	},
	RoleNeuanmeldungZusatzsektion: {
		label: "Neuanmeldung (Zusatzsektion)",
		groupTypes: []organization.GroupType{
			organization.GroupTypeSektionsNeuanmeldungenSektion,
			organization.GroupTypeSektionsNeuanmeldungenNv,
		},
		beitragskategorie: true,
	},
	RolePraesidium: {
		label:      "Präsidium",
		groupTypes: []organization.GroupType{organization.GroupTypeSektionsFunktionaere},
	},
	RoleMitgliederverwaltung: {
		label:      "Mitgliederverwaltung",
		groupTypes: []organization.GroupType{organization.GroupTypeSektionsFunktionaere},
	},
	RoleTourenleiter: {
		label:      "Tourenleiter/in",
		groupTypes: []organization.GroupType{organization.GroupTypeSektionsTourenkommission},
	},
	RoleGeschaeftsstelleMitarbeiter: {
		label:      "Mitarbeiter/in Geschäftsstelle",
		groupTypes: []organization.GroupType{organization.GroupTypeGeschaeftsstelle},
	},
}

// ParseRoleType converts a string into a known RoleType
func ParseRoleType(s string) (RoleType, bool) {
	t := RoleType(s)
	_, ok := roleTypes[t]
	return t, ok
}

// Label returns the display label
func (t RoleType) Label() string {
	if info, ok := roleTypes[t]; ok {
		return info.label
	}
	return string(t)
}

// IsMembership reports whether the role makes the person a club member
func (t RoleType) IsMembership() bool {
	return roleTypes[t].membership
}

// RequiresBeitragskategorie reports whether a fee category is mandatory
func (t RoleType) RequiresBeitragskategorie() bool {
	return roleTypes[t].beitragskategorie
}

// EndsWithMembership reports whether the role ends when the membership is terminated
func (t RoleType) EndsWithMembership() bool {
	return roleTypes[t].endsWithMembership
}

// IsNeuanmeldung reports whether the role is a pending application
func (t RoleType) IsNeuanmeldung() bool {
	return t == RoleNeuanmeldung || t == RoleNeuanmeldungZusatzsektion
}

// AllowedIn reports whether the role may be held in a group of the given type
func (t RoleType) AllowedIn(groupType organization.GroupType) bool {
	for _, gt := range roleTypes[t].groupTypes {
		if gt == groupType {
			return true
		}
	}
	return false
}

// ApprovedType returns the membership role an application turns into
func (t RoleType) ApprovedType() (RoleType, bool) {
	switch t {
	case RoleNeuanmeldung:
		return RoleMitglied, true
	case RoleNeuanmeldungZusatzsektion:
		return RoleMitgliedZusatzsektion, true
	}
	return "", false
}
