package main

import (
	"fmt"

	orgapp "github.com/sac/membership/internal/application/organization"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/spf13/cobra"
)

func newGroupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage the group hierarchy",
	}

	var req orgapp.CreateGroupRequest
	var parent string
	var navisionID int64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group below a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.group(ctx, parent)
			if err != nil {
				return err
			}
			req.ParentID = p.ID
			if navisionID > 0 {
				req.NavisionID = &navisionID
			}
			g, err := a.groups.CreateGroup(ctx, req)
			if err != nil {
				return err
			}
			return printGroups(cmd.OutOrStdout(), []*organization.Group{g})
		},
	}
	create.Flags().StringVar(&parent, "parent", "", "parent group id, Navision id or root")
	create.Flags().StringVar(&req.Type, "type", "", "group type, e.g. sektion or ortsgruppe")
	create.Flags().StringVar(&req.Name, "name", "", "group name")
	create.Flags().StringVar(&req.ShortName, "short-name", "", "short name")
	create.Flags().Int64Var(&navisionID, "navision-id", 0, "legacy Navision id")
	create.Flags().StringVar(&req.Canton, "canton", "", "two letter canton code")
	create.Flags().IntVar(&req.FoundationYear, "foundation-year", 0, "year the section was founded")
	_ = create.MarkFlagRequired("parent")
	_ = create.MarkFlagRequired("type")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "root <name>",
			Short: "Create the root group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				g, err := a.groups.CreateRoot(ctx, args[0])
				if err != nil {
					return err
				}
				return printGroups(cmd.OutOrStdout(), []*organization.Group{g})
			},
		},
		create,
		&cobra.Command{
			Use:   "sections",
			Short: "List sections and Ortsgruppen",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				sections, err := a.groups.Sections(ctx)
				if err != nil {
					return err
				}
				return printGroups(cmd.OutOrStdout(), sections)
			},
		},
		&cobra.Command{
			Use:   "children <group>",
			Short: "List the direct children of a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				g, err := a.group(ctx, args[0])
				if err != nil {
					return err
				}
				children, err := a.groups.Children(ctx, g.ID)
				if err != nil {
					return err
				}
				return printGroups(cmd.OutOrStdout(), children)
			},
		},
		&cobra.Command{
			Use:   "archive <group>",
			Short: "Archive a group and its descendants",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				g, err := a.group(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.groups.Archive(ctx, g.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "archived", g.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "history <group>",
			Short: "Show the change log of a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				g, err := a.group(ctx, args[0])
				if err != nil {
					return err
				}
				versions, err := a.history.GroupHistory(ctx, g.ID)
				if err != nil {
					return err
				}
				return printVersions(cmd.OutOrStdout(), versions)
			},
		},
	)
	return cmd
}
