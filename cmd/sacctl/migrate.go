package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sac/membership/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

type migrateOptions struct {
	path string
}

func newMigrateCmd(c *cli) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "path to migrations directory (default ./migrations)")

	withMigrator := func(run func(cmd *cobra.Command, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := c.migrator(opts)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations, negative n rolls back",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version number %q", args[0])
				}
				return m.GoTo(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Force the recorded version after a failed migration",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version number %q", args[0])
				}
				c.log.Warn("Forcing migration version", zap.Int("version", version))
				return m.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if version == 0 {
					fmt.Fprintln(out, "no migrations applied")
				} else {
					fmt.Fprintf(out, "version %d (dirty: %t)\n", version, dirty)
				}
				for _, p := range pending {
					fmt.Fprintln(out, "  pending", p)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create a new migration file pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				mf, err := migration.CreateMigration(opts.resolve(), args[0], description)
				if err != nil {
					return err
				}
				c.log.Info("Migration created",
					zap.Uint("version", mf.Version),
					zap.String("up_file", mf.UpPath),
					zap.String("down_file", mf.DownPath),
				)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				migrations, err := migration.ListMigrations(opts.resolve())
				if err != nil {
					return err
				}
				for _, m := range migrations {
					fmt.Fprintln(cmd.OutOrStdout(), m)
				}
				return nil
			},
		},
	)
	return cmd
}

// resolve finds the migrations directory in the working directory or
// relative to the executable
func (o *migrateOptions) resolve() string {
	path := o.path
	if path == "" {
		if _, err := os.Stat(migration.DefaultPath); err == nil {
			path = migration.DefaultPath
		} else if exe, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(exe), "..", migration.DefaultPath)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
		if path == "" {
			path = migration.DefaultPath
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (c *cli) migrator(opts *migrateOptions) (*migration.Migrator, func(), error) {
	if c.cfg.Database.Driver == "sqlite" {
		return nil, nil, fmt.Errorf("migrations target postgres; sqlite schemas are created on startup")
	}
	db, err := sql.Open("postgres", c.cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	path := opts.resolve()
	c.log.Info("Running migrations", zap.String("migrations_path", path))
	m, err := migration.New(db, path, c.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, func() {
		if err := m.Close(); err != nil {
			c.log.Warn("Failed to close migrator", zap.Error(err))
		}
		_ = db.Close()
	}, nil
}
