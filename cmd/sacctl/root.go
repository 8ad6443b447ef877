package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/organization"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli carries the global flags and the lazily wired app
type cli struct {
	configPath string
	actor      string

	cfg *config.Config
	log *zap.Logger
	app *app
}

// newRootCmd builds the command tree. The caller runs c.teardown once
// the command returned.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "sacctl",
		Short:             "Administer the SAC membership registry",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./config.toml or /etc/sac/config.toml)")
	root.PersistentFlags().StringVar(&c.actor, "actor", "", "name recorded as author of changes")

	root.AddCommand(
		newMigrateCmd(c),
		newGroupCmd(c),
		newImportCmd(c),
		newHistoryCmd(c),
		newExportCmd(c),
		newMembershipCmd(c),
		newHouseholdCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.cfg = cfg
	c.log = log.With(zap.String("command", cmd.CommandPath()))
	return nil
}

func (c *cli) teardown(ctx context.Context) {
	if c.app != nil {
		c.app.close(ctx)
		c.app = nil
	}
	if c.log != nil {
		_ = logger.Sync(c.log)
	}
}

// open wires the app on first use and returns ctx carrying the actor
func (c *cli) open(ctx context.Context) (context.Context, *app, error) {
	if c.app == nil {
		a, err := newApp(ctx, c.cfg, c.log)
		if err != nil {
			return ctx, nil, err
		}
		c.app = a
	}
	if c.actor != "" {
		ctx, _ = logger.WithActor(ctx, c.app.log, c.actor)
	}
	return logger.WithContext(ctx, c.app.log), c.app, nil
}

// person resolves a person by UUID or membership number
func (a *app) person(ctx context.Context, ref string) (*people.Person, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return a.persons.FindByID(ctx, id)
	}
	number, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a person id nor a membership number", ref)
	}
	return a.persons.FindByMembershipNumber(ctx, number)
}

// group resolves a group by UUID or Navision id; "root" names the root group
func (a *app) group(ctx context.Context, ref string) (*organization.Group, error) {
	if ref == "root" {
		return a.groupRepo.FindRoot(ctx)
	}
	if id, err := uuid.Parse(ref); err == nil {
		return a.groupRepo.FindByID(ctx, id)
	}
	nav, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a group id nor a Navision id", ref)
	}
	return a.groupRepo.FindByNavisionID(ctx, nav)
}
