package main

import (
	"fmt"
	"os"
	"path/filepath"

	importapp "github.com/sac/membership/internal/application/import"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/spf13/cobra"
)

// importOrder is the order in which importers depend on each other
var importOrder = []bulk.ImporterKind{
	bulk.ImporterGroups,
	bulk.ImporterPeople,
	bulk.ImporterMemberships,
	bulk.ImporterQualifications,
}

type importOptions struct {
	encoding string
	workers  int
}

func newImportCmd(c *cli) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import legacy Navision CSV exports",
	}
	cmd.PersistentFlags().StringVar(&opts.encoding, "encoding", "", "file encoding: auto, utf-8 or windows-1252")
	cmd.PersistentFlags().IntVar(&opts.workers, "workers", 0, "row worker pool size")

	for _, kind := range importOrder {
		cmd.AddCommand(&cobra.Command{
			Use:   string(kind) + " <file>",
			Short: fmt.Sprintf("Import %s", kind),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				run, err := c.importFile(cmd, opts, kind, args[0])
				if run != nil {
					_ = printRun(cmd.OutOrStdout(), run)
				}
				return err
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "all <dir>",
		Short: "Import groups.csv, people.csv, memberships.csv and qualifications.csv in order",
		Long: "Files missing from the directory are skipped. A failed run stops the " +
			"import since later importers depend on earlier ones.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range importOrder {
				path := filepath.Join(args[0], string(kind)+".csv")
				if _, err := os.Stat(path); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "skipping %s: %s not found\n", kind, path)
					continue
				}
				run, err := c.importFile(cmd, opts, kind, path)
				if run != nil {
					_ = printRun(cmd.OutOrStdout(), run)
				}
				if err != nil {
					return err
				}
				if run.Status == bulk.RunStatusFailed {
					return fmt.Errorf("%s import failed", kind)
				}
			}
			return nil
		},
	})
	return cmd
}

func (c *cli) importFile(cmd *cobra.Command, opts *importOptions, kind bulk.ImporterKind, path string) (*bulk.ImportRun, error) {
	if opts.encoding != "" {
		c.cfg.Import.Encoding = opts.encoding
	}
	if opts.workers > 0 {
		c.cfg.Import.Workers = opts.workers
	}
	ctx, a, err := c.open(cmd.Context())
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return a.imports.Run(ctx, importapp.Request{
		Kind:     kind,
		FileName: filepath.Base(path),
		Size:     info.Size(),
		Reader:   f,
	})
}
