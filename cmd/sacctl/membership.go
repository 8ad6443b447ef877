package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	membershipapp "github.com/sac/membership/internal/application/membership"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/spf13/cobra"
)

// mutation runs one membership operation on a wired app and prints the
// touched roles
func (c *cli) mutation(fn func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, a, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		result, err := fn(ctx, a, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if result.MutationID != uuid.Nil {
			fmt.Fprintln(out, "mutation", result.MutationID)
		}
		return printRoles(out, result.Roles)
	}
}

// terminationDate parses "yesterday", "end-of-year" or YYYY-MM-DD
func terminationDate(s string) (time.Time, error) {
	today := shared.Today()
	switch s {
	case "yesterday":
		return shared.Yesterday(today), nil
	case "", "end-of-year":
		return shared.EndOfYear(today), nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid termination date %q: use yesterday, end-of-year or YYYY-MM-DD", s)
	}
	return d, nil
}

func (a *app) reasonID(ctx context.Context, code string) (*uuid.UUID, error) {
	if code == "" {
		return nil, nil
	}
	r, err := a.reasons.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("termination reason %q: %w", code, err)
	}
	return &r.ID, nil
}

func roleArg(args []string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid role id %q", args[0])
	}
	return id, nil
}

func newMembershipCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Run membership mutations",
	}

	var zusatz bool
	apply := &cobra.Command{
		Use:   "apply <person> <section>",
		Short: "Register a membership application",
		Args:  cobra.ExactArgs(2),
		RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
			p, err := a.person(ctx, args[0])
			if err != nil {
				return nil, err
			}
			layer, err := a.group(ctx, args[1])
			if err != nil {
				return nil, err
			}
			return a.memberships.Apply(ctx, membershipapp.ApplyRequest{PersonID: p.ID, LayerID: layer.ID, Zusatzsektion: zusatz})
		}),
	}
	apply.Flags().BoolVar(&zusatz, "zusatzsektion", false, "apply for a Zusatzsektion")

	terminate := &terminateFlags{}
	term := &cobra.Command{
		Use:   "terminate <person>",
		Short: "Terminate all memberships of a person",
		Args:  cobra.ExactArgs(1),
		RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
			p, err := a.person(ctx, args[0])
			if err != nil {
				return nil, err
			}
			on, err := terminationDate(terminate.on)
			if err != nil {
				return nil, err
			}
			reason, err := a.reasonID(ctx, terminate.reason)
			if err != nil {
				return nil, err
			}
			return a.memberships.Terminate(ctx, membershipapp.TerminateRequest{
				PersonID:             p.ID,
				TerminateOn:          on,
				ReasonID:             reason,
				SubscribeNewsletter:  terminate.newsletter,
				SubscribeFundraising: terminate.fundraising,
				DataRetentionConsent: terminate.dataRetention,
			})
		}),
	}
	terminate.register(term, true)

	terminateZusatz := &terminateFlags{}
	termZusatz := &cobra.Command{
		Use:   "terminate-zusatzsektion <person> <section>",
		Short: "Terminate one Zusatzsektion membership",
		Args:  cobra.ExactArgs(2),
		RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
			p, err := a.person(ctx, args[0])
			if err != nil {
				return nil, err
			}
			layer, err := a.group(ctx, args[1])
			if err != nil {
				return nil, err
			}
			on, err := terminationDate(terminateZusatz.on)
			if err != nil {
				return nil, err
			}
			reason, err := a.reasonID(ctx, terminateZusatz.reason)
			if err != nil {
				return nil, err
			}
			return a.memberships.TerminateZusatzsektion(ctx, membershipapp.TerminateZusatzsektionRequest{
				PersonID:    p.ID,
				LayerID:     layer.ID,
				TerminateOn: on,
				ReasonID:    reason,
			})
		}),
	}
	terminateZusatz.register(termZusatz, false)

	cmd.AddCommand(
		apply,
		&cobra.Command{
			Use:   "join <application-role>",
			Short: "Approve a pending application",
			Args:  cobra.ExactArgs(1),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				id, err := roleArg(args)
				if err != nil {
					return nil, err
				}
				return a.memberships.Join(ctx, membershipapp.JoinRequest{RoleID: id})
			}),
		},
		&cobra.Command{
			Use:   "reject <application-role>",
			Short: "Reject a pending application",
			Args:  cobra.ExactArgs(1),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				id, err := roleArg(args)
				if err != nil {
					return nil, err
				}
				return a.memberships.Reject(ctx, membershipapp.RejectRequest{RoleID: id})
			}),
		},
		&cobra.Command{
			Use:   "join-zusatzsektion <person> <section>",
			Short: "Add a Zusatzsektion membership without application",
			Args:  cobra.ExactArgs(2),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				p, err := a.person(ctx, args[0])
				if err != nil {
					return nil, err
				}
				layer, err := a.group(ctx, args[1])
				if err != nil {
					return nil, err
				}
				return a.memberships.JoinZusatzsektion(ctx, membershipapp.JoinZusatzsektionRequest{PersonID: p.ID, LayerID: layer.ID})
			}),
		},
		&cobra.Command{
			Use:   "switch <person> <section>",
			Short: "Move the Stammsektion of a member",
			Args:  cobra.ExactArgs(2),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				p, err := a.person(ctx, args[0])
				if err != nil {
					return nil, err
				}
				layer, err := a.group(ctx, args[1])
				if err != nil {
					return nil, err
				}
				return a.memberships.SwitchStammsektion(ctx, membershipapp.SwitchStammsektionRequest{PersonID: p.ID, LayerID: layer.ID})
			}),
		},
		term,
		termZusatz,
		&cobra.Command{
			Use:   "undo <terminated-role>",
			Short: "Undo the termination a role belongs to",
			Args:  cobra.ExactArgs(1),
			RunE: c.mutation(func(ctx context.Context, a *app, args []string) (*membershipapp.MutationResult, error) {
				id, err := roleArg(args)
				if err != nil {
					return nil, err
				}
				return a.memberships.UndoTermination(ctx, membershipapp.UndoTerminationRequest{RoleID: id})
			}),
		},
		&cobra.Command{
			Use:   "roles <person>",
			Short: "List the roles of a person",
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
				roles, err := a.memberships.PersonRoles(ctx, p.ID)
				if err != nil {
					return err
				}
				return printRoles(cmd.OutOrStdout(), roles)
			},
		},
		&cobra.Command{
			Use:   "history <person>",
			Short: "Show the change log of a person",
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
				versions, err := a.history.PersonHistory(ctx, p.ID)
				if err != nil {
					return err
				}
				return printVersions(cmd.OutOrStdout(), versions)
			},
		},
		newReasonCmd(c),
	)
	return cmd
}

type terminateFlags struct {
	on            string
	reason        string
	newsletter    bool
	fundraising   bool
	dataRetention bool
}

func (f *terminateFlags) register(cmd *cobra.Command, consents bool) {
	cmd.Flags().StringVar(&f.on, "on", "end-of-year", "yesterday, end-of-year or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.reason, "reason", "", "termination reason code")
	if consents {
		cmd.Flags().BoolVar(&f.newsletter, "newsletter", false, "keep the newsletter subscription")
		cmd.Flags().BoolVar(&f.fundraising, "fundraising", false, "keep fundraising mailings")
		cmd.Flags().BoolVar(&f.dataRetention, "data-retention", false, "consent to keep personal data")
	}
}

func newReasonCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reasons",
		Short: "List termination reasons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			reasons, err := a.memberships.TerminationReasons(ctx)
			if err != nil {
				return err
			}
			for _, r := range reasons {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Code, r.Text)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <code> <text>",
		Short: "Add a termination reason",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			r, err := membership.NewTerminationReason(args[0], args[1])
			if err != nil {
				return err
			}
			return a.reasons.Save(ctx, r)
		},
	})
	return cmd
}
