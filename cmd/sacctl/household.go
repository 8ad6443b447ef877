package main

import (
	"context"
	"fmt"

	membershipapp "github.com/sac/membership/internal/application/membership"
	"github.com/spf13/cobra"
)

func newHouseholdCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Manage family households",
	}

	onePerson := func(op func(s *membershipapp.HouseholdService, ctx context.Context, req membershipapp.HouseholdRequest) (*membershipapp.MutationResult, error)) func(*cobra.Command, []string) error {
		return c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
			p, err := a.person(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return op(a.households, ctx, membershipapp.HouseholdRequest{PersonID: p.ID})
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <main-person> <person>",
			Short: "Add a person to the household of a main person",
			Args:  cobra.ExactArgs(2),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				head, err := a.person(ctx, args[0])
				if err != nil {
					return nil, err
				}
				p, err := a.person(ctx, args[1])
				if err != nil {
					return nil, err
				}
				return a.households.AddMember(ctx, membershipapp.AddHouseholdMemberRequest{MainPersonID: head.ID, PersonID: p.ID})
			}),
		},
		&cobra.Command{
			Use:   "remove <person>",
			Short: "Remove a person from their household",
			Args:  cobra.ExactArgs(1),
			RunE:  onePerson((*membershipapp.HouseholdService).RemoveMember),
		},
		&cobra.Command{
			Use:   "set-main <person>",
			Short: "Make a person the main person of their household",
			Args:  cobra.ExactArgs(1),
			RunE:  onePerson((*membershipapp.HouseholdService).SetMainPerson),
		},
		&cobra.Command{
			Use:   "dissolve <person>",
			Short: "Dissolve the household of a person",
			Args:  cobra.ExactArgs(1),
			RunE:  onePerson((*membershipapp.HouseholdService).Dissolve),
		},
		&cobra.Command{
			Use:   "show <person>",
			Short: "List the members of a household",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, a, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				p, err := a.person(ctx, args[0])
				if err != nil {
					return err
				}
				h, err := a.households.Members(ctx, p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "household", h.Key)
				return printPeople(cmd.OutOrStdout(), h.Members)
			},
		},
	)
	return cmd
}
