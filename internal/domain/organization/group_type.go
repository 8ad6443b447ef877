package organization

// GroupType identifies the kind of a group in the club hierarchy
type GroupType string

const (
	GroupTypeSacCas                        GroupType = "sac_cas"
	GroupTypeGeschaeftsstelle              GroupType = "geschaeftsstelle"
	GroupTypeSektion                       GroupType = "sektion"
	GroupTypeOrtsgruppe                    GroupType = "ortsgruppe"
	GroupTypeSektionsMitglieder            GroupType = "sektions_mitglieder"
	GroupTypeSektionsNeuanmeldungenSektion GroupType = "sektions_neuanmeldungen_sektion"
	GroupTypeSektionsNeuanmeldungenNv      GroupType = "sektions_neuanmeldungen_nv"
	GroupTypeSektionsFunktionaere          GroupType = "sektions_funktionaere"
	GroupTypeSektionsTourenkommission      GroupType = "sektions_tourenkommission"
)

var sektionsSubgroups = []GroupType{
	GroupTypeSektionsMitglieder,
	GroupTypeSektionsNeuanmeldungenSektion,
	GroupTypeSektionsNeuanmeldungenNv,
	GroupTypeSektionsFunktionaere,
	GroupTypeSektionsTourenkommission,
}

var childTypes = map[GroupType][]GroupType{
	GroupTypeSacCas:     {GroupTypeGeschaeftsstelle, GroupTypeSektion},
	GroupTypeSektion:    append([]GroupType{GroupTypeOrtsgruppe}, sektionsSubgroups...),
	GroupTypeOrtsgruppe: sektionsSubgroups,
}

// defaultChildren are created together with a new layer group
var defaultChildren = map[GroupType][]GroupType{
	GroupTypeSektion: {
		GroupTypeSektionsMitglieder,
		GroupTypeSektionsNeuanmeldungenNv,
		GroupTypeSektionsFunktionaere,
	},
	GroupTypeOrtsgruppe: {
		GroupTypeSektionsMitglieder,
		GroupTypeSektionsNeuanmeldungenNv,
		GroupTypeSektionsFunktionaere,
	},
}

var defaultNames = map[GroupType]string{
	GroupTypeSektionsMitglieder:            "Mitglieder",
	GroupTypeSektionsNeuanmeldungenSektion: "Neuanmeldungen (zur Freigabe)",
	GroupTypeSektionsNeuanmeldungenNv:      "Neuanmeldungen",
	GroupTypeSektionsFunktionaere:          "Funktionäre",
	GroupTypeSektionsTourenkommission:      "Tourenkommission",
	GroupTypeGeschaeftsstelle:              "Geschäftsstelle",
}

// AllGroupTypes lists every known group type
func AllGroupTypes() []GroupType {
	return []GroupType{
		GroupTypeSacCas,
		GroupTypeGeschaeftsstelle,
		GroupTypeSektion,
		GroupTypeOrtsgruppe,
		GroupTypeSektionsMitglieder,
		GroupTypeSektionsNeuanmeldungenSektion,
		GroupTypeSektionsNeuanmeldungenNv,
		GroupTypeSektionsFunktionaere,
		GroupTypeSektionsTourenkommission,
	}
}

// ParseGroupType converts a string into a GroupType
func ParseGroupType(s string) (GroupType, bool) {
	for _, t := range AllGroupTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsLayer reports whether groups of this type start a new layer
func (t GroupType) IsLayer() bool {
	switch t {
	case GroupTypeSacCas, GroupTypeSektion, GroupTypeOrtsgruppe:
		return true
	}
	return false
}

// IsNeuanmeldungen reports whether the type collects pending applications
func (t GroupType) IsNeuanmeldungen() bool {
	return t == GroupTypeSektionsNeuanmeldungenSektion || t == GroupTypeSektionsNeuanmeldungenNv
}

// AllowsChild reports whether child may be created below a group of type t
func (t GroupType) AllowsChild(child GroupType) bool {
	for _, c := range childTypes[t] {
		if c == child {
			return true
		}
	}
	return false
}

// DefaultChildren returns the subgroups created with a group of this type
func (t GroupType) DefaultChildren() []GroupType {
	return defaultChildren[t]
}

// DefaultName returns the name used for automatically created groups
func (t GroupType) DefaultName() string {
	if name, ok := defaultNames[t]; ok {
		return name
	}
	return string(t)
}
