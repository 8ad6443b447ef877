// Package importapp loads the legacy CSV exports into the membership
// database.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/csvimport"
	"github.com/sac/membership/internal/infrastructure/logger"
	"github.com/sac/membership/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownImporter is returned for importers that are not registered
var ErrUnknownImporter = shared.NewDomainError("UNKNOWN_IMPORTER", "Unknown importer")

// Importer loads one legacy entity. ImportRow runs inside a transaction of
// its own; a non-empty warning marks the row as imported or skipped with a
// remark.
type Importer interface {
	Kind() bulk.ImporterKind
	Rules() []csvimport.FieldRule
	// Batches groups rows into batches that are processed one after the
	// other; rows of one batch are processed concurrently.
	Batches(rows []*csvimport.Row, report *csvimport.Report) [][]*csvimport.Row
	ImportRow(ctx context.Context, row *csvimport.Row) (warning string, err error)
}

// Request describes one import file
type Request struct {
	Kind     bulk.ImporterKind
	FileName string
	Size     int64
	Reader   io.Reader
}

// ImportService runs importers with a worker pool and records each run
type ImportService struct {
	importers map[bulk.ImporterKind]Importer
	history   *ImportHistoryService
	locker    shared.Locker
	tx        shared.Transactor
	config    config.ImportConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService creates an import service for the given importers
func NewImportService(
	history *ImportHistoryService,
	locker shared.Locker,
	tx shared.Transactor,
	cfg config.ImportConfig,
	l *zap.Logger,
	importers ...Importer,
) *ImportService {
	if l == nil {
		l = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	s := &ImportService{
		importers: make(map[bulk.ImporterKind]Importer, len(importers)),
		history:   history,
		locker:    locker,
		tx:        tx,
		config:    cfg,
		logger:    l,
		now:       time.Now,
	}
	for _, imp := range importers {
		s.importers[imp.Kind()] = imp
	}
	return s
}

// Run imports a file. Row problems end up in the report; an error is only
// returned when the run as a whole could not be carried out.
func (s *ImportService) Run(ctx context.Context, req Request) (*bulk.ImportRun, error) {
	imp, ok := s.importers[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImporter, req.Kind)
	}

	lockName := "import:" + string(req.Kind)
	token, err := s.locker.Acquire(ctx, lockName, s.config.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockName, token); err != nil {
			s.logger.Warn("failed to release import lock", zap.String("lock", lockName), zap.Error(err))
		}
	}()

	run, err := s.history.CreateRun(ctx, req.Kind, req.FileName, req.Size)
	if err != nil {
		return nil, err
	}
	ctx, l := logger.WithRunID(ctx, s.logger, run.ID.String())
	ctx = logger.WithContext(ctx, l.With(zap.String("importer", string(req.Kind))))
	ctx, span := telemetry.StartSpan(ctx, "import."+string(req.Kind),
		telemetry.AttrRunID, run.ID,
		telemetry.AttrImporter, string(req.Kind),
	)
	defer span.End()

	telemetry.WithProfilingLabels(ctx, func(ctx context.Context) {
		err = s.process(ctx, imp, run, req)
	}, "importer", string(req.Kind))
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, context.Canceled) {
			_ = s.history.CancelRun(context.WithoutCancel(ctx), run)
		} else {
			_ = s.history.FailRun(context.WithoutCancel(ctx), run, err)
		}
		logger.L(ctx).Error("import failed", zap.Error(err))
		return run, err
	}

	telemetry.SetAttributes(span, telemetry.AttrRows, run.TotalRows)
	telemetry.SetOK(span)
	telemetry.Default().RecordImport(ctx, string(req.Kind), run.SuccessRows, run.WarningRows, run.ErrorRows, run.Duration())
	logger.L(ctx).Info("import finished",
		zap.String("status", string(run.Status)),
		zap.Int("rows", run.TotalRows),
		zap.Int("success", run.SuccessRows),
		zap.Int("warnings", run.WarningRows),
		zap.Int("errors", run.ErrorRows),
		zap.String("report", run.ReportPath),
	)
	return run, nil
}

func (s *ImportService) process(ctx context.Context, imp Importer, run *bulk.ImportRun, req Request) error {
	encoding, err := csvimport.ParseEncoding(s.config.Encoding)
	if err != nil {
		return err
	}
	parser, err := csvimport.NewCSVParser(req.Reader, csvimport.WithEncoding(encoding))
	if err != nil {
		return err
	}
	if err := parser.ParseHeader(); err != nil {
		return err
	}
	validator := csvimport.NewFieldValidator(imp.Rules()...)
	if missing := parser.ValidateHeaders(validator.Columns()); len(missing) > 0 {
		return fmt.Errorf("%w: %s", csvimport.ErrMissingColumns, strings.Join(missing, ", "))
	}

	malformed := csvimport.NewErrorCollection(math.MaxInt32)
	rows, err := parser.ReadAllRows(malformed)
	if err != nil {
		return err
	}

	report := csvimport.NewReport()
	for _, e := range malformed.Errors() {
		report.Error(e.Row, "", e.Error())
	}
	valid := make([]*csvimport.Row, 0, len(rows))
	for _, row := range rows {
		if errs := validator.ValidateRow(row); len(errs) > 0 {
			report.Error(row.LineNumber, navisionID(row), csvimport.JoinMessages(errs))
			continue
		}
		valid = append(valid, row)
	}

	if err := s.history.StartProcessing(ctx, run, len(rows)+malformed.TotalCount(), s.config.Workers); err != nil {
		return err
	}
	logger.L(ctx).Info("import started",
		zap.String("file", req.FileName),
		zap.String("encoding", string(parser.Encoding())),
		zap.Int("rows", len(rows)),
		zap.Int("workers", s.config.Workers),
	)

	for _, batch := range imp.Batches(valid, report) {
		if err := s.processBatch(ctx, imp, batch, report); err != nil {
			return err
		}
	}

	path, err := s.writeReport(run, report)
	if err != nil {
		return err
	}
	return s.history.CompleteRun(ctx, run, report, path)
}

// processBatch feeds the rows to a fixed number of workers
func (s *ImportService) processBatch(ctx context.Context, imp Importer, rows []*csvimport.Row, report *csvimport.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.processRow(gctx, imp, row, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *ImportService) processRow(ctx context.Context, imp Importer, row *csvimport.Row, report *csvimport.Report) {
	id := navisionID(row)
	var warning string
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		warning, err = imp.ImportRow(ctx, row)
		return err
	})
	switch {
	case err != nil:
		logger.L(ctx).Debug("row failed", zap.Int("line", row.LineNumber), zap.String("navision_id", id), zap.Error(err))
		report.Error(row.LineNumber, id, err.Error())
	case warning != "":
		report.Warning(row.LineNumber, id, warning)
	default:
		report.Success(row.LineNumber, id)
	}
}

// writeReport stores the report as <report_dir>/<importer>-<timestamp>-<run>.csv
func (s *ImportService) writeReport(run *bulk.ImportRun, report *csvimport.Report) (string, error) {
	if err := os.MkdirAll(s.config.ReportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.csv", run.Kind, s.now().UTC().Format("20060102T150405Z"), run.ID.String()[:8])
	path := filepath.Join(s.config.ReportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.WriteCSV(f, ';'); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

func navisionID(row *csvimport.Row) string {
	return row.Get("navision_id")
}

// singleBatch processes all rows in one batch
func singleBatch(rows []*csvimport.Row, _ *csvimport.Report) [][]*csvimport.Row {
	if len(rows) == 0 {
		return nil
	}
	return [][]*csvimport.Row{rows}
}
