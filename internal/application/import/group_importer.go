package importapp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	orgapp "github.com/sac/membership/internal/application/organization"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/csvimport"
)

// GroupImporter loads the club hierarchy. Parents are imported before
// their children.
type GroupImporter struct {
	service *orgapp.GroupService
	groups  organization.GroupRepository
}

// NewGroupImporter creates a group importer
func NewGroupImporter(service *orgapp.GroupService, groups organization.GroupRepository) *GroupImporter {
	return &GroupImporter{service: service, groups: groups}
}

// Kind implements Importer
func (i *GroupImporter) Kind() bulk.ImporterKind {
	return bulk.ImporterGroups
}

// Rules implements Importer
func (i *GroupImporter) Rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("navision_id").Required().Int().Range(1, math.MaxInt64).Unique().Build(),
		csvimport.Field("parent_navision_id").Int().Build(),
		csvimport.Field("type").Required().Custom(validateGroupType).Build(),
		csvimport.Field("name").Required().MaxLength(200).Build(),
		csvimport.Field("canton").Length(2, 2).Build(),
		csvimport.Field("foundation_year").Int().Range(1863, 2100).Build(),
	}
}

func validateGroupType(value string) error {
	if _, ok := organization.ParseGroupType(strings.ToLower(value)); !ok {
		return fmt.Errorf("unknown group type")
	}
	return nil
}

// Batches orders the rows by their depth in the file's hierarchy. Rows
// whose parent chain loops are reported and dropped.
func (i *GroupImporter) Batches(rows []*csvimport.Row, report *csvimport.Report) [][]*csvimport.Row {
	byID := make(map[string]*csvimport.Row, len(rows))
	for _, row := range rows {
		byID[row.Get("navision_id")] = row
	}

	depths := make(map[string]int, len(rows))
	var depth func(id string, seen map[string]bool) int
	depth = func(id string, seen map[string]bool) int {
		if d, ok := depths[id]; ok {
			return d
		}
		if seen[id] {
			return -1
		}
		seen[id] = true
		parent := byID[id].Get("parent_navision_id")
		d := 0
		if _, inFile := byID[parent]; parent != "" && inFile {
			if d = depth(parent, seen); d >= 0 {
				d++
			}
		}
		depths[id] = d
		return d
	}

	var batches [][]*csvimport.Row
	for _, row := range rows {
		id := row.Get("navision_id")
		d := depth(id, map[string]bool{})
		if d < 0 {
			report.Error(row.LineNumber, id, "parent chain forms a cycle")
			continue
		}
		for len(batches) <= d {
			batches = append(batches, nil)
		}
		batches[d] = append(batches[d], row)
	}
	return batches
}

// ImportRow creates or updates one group
func (i *GroupImporter) ImportRow(ctx context.Context, row *csvimport.Row) (string, error) {
	nav, _ := strconv.ParseInt(row.Get("navision_id"), 10, 64)
	groupType, _ := organization.ParseGroupType(strings.ToLower(row.Get("type")))
	name := row.Get("name")
	canton := row.Get("canton")
	year, _ := strconv.Atoi(row.Get("foundation_year"))

	existing, err := i.groups.FindByNavisionID(ctx, nav)
	switch {
	case err == nil:
		if existing.Type != groupType {
			return "", fmt.Errorf("group %d exists with type %s", nav, existing.Type)
		}
		return "", i.update(ctx, existing, nav, name, canton, year)
	case !errors.Is(err, shared.ErrNotFound):
		return "", err
	}

	if groupType == organization.GroupTypeSacCas {
		root, err := i.groups.FindRoot(ctx)
		if errors.Is(err, shared.ErrNotFound) {
			if root, err = i.service.CreateRoot(ctx, name); err != nil {
				return "", err
			}
			return "", i.update(ctx, root, nav, name, canton, year)
		}
		if err != nil {
			return "", err
		}
		return "root group existed, navision id assigned", i.update(ctx, root, nav, name, canton, year)
	}

	parent, err := i.parent(ctx, row.Get("parent_navision_id"))
	if err != nil {
		return "", err
	}

	if !groupType.IsLayer() {
		// layers come with default subgroups that the legacy rows describe
		children, err := i.groups.FindChildren(ctx, parent.ID)
		if err != nil {
			return "", err
		}
		for _, c := range children {
			if c.Type == groupType && c.NavisionID == nil {
				return "", i.update(ctx, c, nav, name, canton, year)
			}
		}
	}

	_, err = i.service.CreateGroup(ctx, orgapp.CreateGroupRequest{
		ParentID:       parent.ID,
		Type:           string(groupType),
		Name:           name,
		NavisionID:     &nav,
		Canton:         canton,
		FoundationYear: year,
	})
	return "", err
}

func (i *GroupImporter) parent(ctx context.Context, parentNav string) (*organization.Group, error) {
	if parentNav == "" {
		root, err := i.groups.FindRoot(ctx)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("root group missing, import the sac_cas row first")
		}
		return root, err
	}
	id, _ := strconv.ParseInt(parentNav, 10, 64)
	parent, err := i.groups.FindByNavisionID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("parent group %d not found", id)
	}
	return parent, err
}

func (i *GroupImporter) update(ctx context.Context, g *organization.Group, nav int64, name, canton string, year int) error {
	if g.Name != name {
		if err := g.Rename(name); err != nil {
			return err
		}
	}
	g.SetNavisionID(nav)
	if canton != "" {
		g.Canton = strings.ToUpper(canton)
	}
	if year != 0 {
		g.FoundationYear = year
	}
	return i.groups.Save(ctx, g)
}
