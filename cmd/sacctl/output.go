package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sac/membership/internal/domain/audit"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
)

const dateLayout = "2006-01-02"

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func printRoles(w io.Writer, roles membership.Roles) error {
	return table(w, "ID\tTYPE\tKATEGORIE\tLAYER\tSTART\tEND\tTERMINATED", func(tw *tabwriter.Writer) {
		for _, r := range roles {
			start := r.StartOn
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
				r.ID, r.Type, r.Beitragskategorie, r.LayerGroupID, date(&start), date(r.EndOn), r.Terminated)
		}
	})
}

func printGroups(w io.Writer, groups []*organization.Group) error {
	return table(w, "ID\tNAVISION\tTYPE\tNAME\tLAYER", func(tw *tabwriter.Writer) {
		for _, g := range groups {
			nav := "-"
			if g.NavisionID != nil {
				nav = fmt.Sprint(*g.NavisionID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, nav, g.Type, g.Name, g.LayerGroupID)
		}
	})
}

func printPeople(w io.Writer, persons []*people.Person) error {
	return table(w, "ID\tNUMBER\tNAME\tBIRTHDAY\tMAIN", func(tw *tabwriter.Writer) {
		for _, p := range persons {
			number := "-"
			if p.MembershipNumber != nil {
				number = fmt.Sprint(*p.MembershipNumber)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%t\n", p.ID, number, p.FirstName, p.LastName, date(p.Birthday), p.FamilyMainPerson)
		}
	})
}

func printRuns(w io.Writer, runs []*bulk.ImportRun) error {
	return table(w, "ID\tKIND\tFILE\tSTATUS\tTOTAL\tOK\tWARN\tERR\tDURATION", func(tw *tabwriter.Writer) {
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				r.ID, r.Kind, r.FileName, r.Status, r.TotalRows, r.SuccessRows, r.WarningRows, r.ErrorRows,
				r.Duration().Round(time.Millisecond))
		}
	})
}

func printRun(w io.Writer, r *bulk.ImportRun) error {
	if err := printRuns(w, []*bulk.ImportRun{r}); err != nil {
		return err
	}
	if r.FailureCause != "" {
		fmt.Fprintln(w, "failure:", r.FailureCause)
	}
	if r.ReportPath != "" {
		fmt.Fprintln(w, "report:", r.ReportPath)
	}
	for _, issue := range r.Issues {
		fmt.Fprintf(w, "  line %d %s: %s\n", issue.Line, issue.Status, issue.Message)
	}
	return nil
}

func printVersions(w io.Writer, versions []*audit.Version) error {
	return table(w, "AT\tEVENT\tITEM\tACTOR", func(tw *tabwriter.Writer) {
		for _, v := range versions {
			item := "-"
			if v.ItemType != "" {
				item = v.ItemType + " " + v.ItemID.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.CreatedAt.Format(time.RFC3339), v.Event, item, v.Actor)
		}
	})
}
