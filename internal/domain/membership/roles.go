package membership

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

// Membership invariant errors
var (
	ErrOverlappingStammsektion  = shared.NewDomainError("OVERLAPPING_STAMMSEKTION", "Person already has a Stammsektion membership in this period")
	ErrZusatzsektionUncovered   = shared.NewDomainError("ZUSATZSEKTION_UNCOVERED", "Zusatzsektion requires a Stammsektion membership in another section")
	ErrDuplicateZusatzsektion   = shared.NewDomainError("DUPLICATE_ZUSATZSEKTION", "Person already has a Zusatzsektion membership in this section")
	ErrZusatzsektionInStamm     = shared.NewDomainError("ZUSATZSEKTION_IN_STAMMSEKTION", "Zusatzsektion cannot be held in the Stammsektion")
	ErrFamilyCategoryMismatch   = shared.NewDomainError("FAMILY_CATEGORY_MISMATCH", "Family members must share the Stammsektion with category family")
	ErrPendingApplicationExists = shared.NewDomainError("PENDING_APPLICATION_EXISTS", "Person already has a pending application for this section")
)

// Roles is a list of roles, usually all roles of one person
type Roles []*Role

// Filter returns the roles matching keep
func (rs Roles) Filter(keep func(*Role) bool) Roles {
	out := make(Roles, 0, len(rs))
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ActiveOn returns the roles active on date d
func (rs Roles) ActiveOn(d time.Time) Roles {
	return rs.Filter(func(r *Role) bool { return r.ActiveOn(d) })
}

// OfType returns the roles of the given types
func (rs Roles) OfType(types ...RoleType) Roles {
	return rs.Filter(func(r *Role) bool {
		for _, t := range types {
			if r.Type == t {
				return true
			}
		}
		return false
	})
}

// InLayer returns the roles held in the layer
func (rs Roles) InLayer(layerID uuid.UUID) Roles {
	return rs.Filter(func(r *Role) bool { return r.LayerGroupID == layerID })
}

// ForPerson returns the roles of one person
func (rs Roles) ForPerson(personID uuid.UUID) Roles {
	return rs.Filter(func(r *Role) bool { return r.PersonID == personID })
}

// Stammsektion returns the active mitglied role on d, or nil
func (rs Roles) Stammsektion(d time.Time) *Role {
	active := rs.OfType(RoleMitglied).ActiveOn(d)
	if len(active) == 0 {
		return nil
	}
	return active[0]
}

// Zusatzsektionen returns the active Zusatzsektion roles on d
func (rs Roles) Zusatzsektionen(d time.Time) Roles {
	return rs.OfType(RoleMitgliedZusatzsektion).ActiveOn(d)
}

// IsMemberOn reports whether any membership role is active on d
func (rs Roles) IsMemberOn(d time.Time) bool {
	for _, r := range rs.ActiveOn(d) {
		if r.Type.IsMembership() {
			return true
		}
	}
	return false
}

// FirstStartOn returns the earliest start of a membership role
func (rs Roles) FirstStartOn() (time.Time, bool) {
	var first time.Time
	found := false
	for _, r := range rs {
		if !r.Type.IsMembership() {
			continue
		}
		if !found || r.StartOn.Before(first) {
			first = r.StartOn
			found = true
		}
	}
	return first, found
}

// SortByStart orders the roles by start date
func (rs Roles) SortByStart() {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].StartOn.Before(rs[j].StartOn) })
}

// Validate checks the membership invariants over the roles of one person:
// Stammsektion roles never overlap, each Zusatzsektion is backed by a
// Stammsektion in another layer on every day it is active, and a layer holds
// at most one Zusatzsektion at a time.
func (rs Roles) Validate() error {
	stamm := rs.OfType(RoleMitglied)
	for i := range stamm {
		for j := i + 1; j < len(stamm); j++ {
			if stamm[i].Overlaps(stamm[j]) {
				return ErrOverlappingStammsektion
			}
		}
	}
	stamm.SortByStart()

	zusatz := rs.OfType(RoleMitgliedZusatzsektion)
	for i, z := range zusatz {
		for j := i + 1; j < len(zusatz); j++ {
			if z.LayerGroupID == zusatz[j].LayerGroupID && z.Overlaps(zusatz[j]) {
				return ErrDuplicateZusatzsektion
			}
		}
		if err := stamm.covers(z); err != nil {
			return err
		}
	}
	return nil
}

// covers walks the Stammsektion roles, sorted by start and not overlapping,
// and checks that together they span every day of z without a gap and
// outside the layer of z. An open end is unbounded on either side.
func (rs Roles) covers(z *Role) error {
	cursor := z.StartOn
	for _, s := range rs {
		if s.EndOn != nil && s.EndOn.Before(cursor) {
			continue
		}
		if s.StartOn.After(cursor) {
			return ErrZusatzsektionUncovered
		}
		if s.LayerGroupID == z.LayerGroupID {
			return ErrZusatzsektionInStamm
		}
		if s.EndOn == nil {
			return nil
		}
		cursor = s.EndOn.AddDate(0, 0, 1)
		if z.EndOn != nil && cursor.After(*z.EndOn) {
			return nil
		}
	}
	return ErrZusatzsektionUncovered
}
