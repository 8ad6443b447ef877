package importapp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/infrastructure/csvimport"
)

// ImportHistoryService keeps the ImportRun record of every importer run
type ImportHistoryService struct {
	runs bulk.ImportRunRepository
}

// NewImportHistoryService creates a new ImportHistoryService
func NewImportHistoryService(runs bulk.ImportRunRepository) *ImportHistoryService {
	return &ImportHistoryService{runs: runs}
}

// CreateRun creates a pending run record
func (s *ImportHistoryService) CreateRun(ctx context.Context, kind bulk.ImporterKind, fileName string, fileSize int64) (*bulk.ImportRun, error) {
	run, err := bulk.NewImportRun(kind, fileName, fileSize)
	if err != nil {
		return nil, err
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save import run: %w", err)
	}
	return run, nil
}

// StartProcessing marks a run as started
func (s *ImportHistoryService) StartProcessing(ctx context.Context, run *bulk.ImportRun, totalRows, workers int) error {
	if err := run.Start(totalRows, workers); err != nil {
		return err
	}
	return s.runs.Save(ctx, run)
}

// CompleteRun stores the row counts of a finished run. Only warnings and
// errors are kept as issues.
func (s *ImportHistoryService) CompleteRun(ctx context.Context, run *bulk.ImportRun, report *csvimport.Report, reportPath string) error {
	success, warnings, errors := report.Counts()
	results := report.Issues()
	issues := make([]bulk.RowIssue, 0, len(results))
	for _, r := range results {
		issues = append(issues, bulk.RowIssue{
			Line:       r.Line,
			NavisionID: r.NavisionID,
			Status:     string(r.Status),
			Message:    r.Message,
		})
	}
	if err := run.Complete(success, warnings, errors, issues, reportPath); err != nil {
		return err
	}
	return s.runs.Save(ctx, run)
}

// FailRun marks a run as failed
func (s *ImportHistoryService) FailRun(ctx context.Context, run *bulk.ImportRun, cause error) error {
	if err := run.Fail(cause); err != nil {
		return err
	}
	return s.runs.Save(ctx, run)
}

// CancelRun marks a run as cancelled
func (s *ImportHistoryService) CancelRun(ctx context.Context, run *bulk.ImportRun) error {
	if err := run.Cancel(); err != nil {
		return err
	}
	return s.runs.Save(ctx, run)
}

// GetRun retrieves a run by ID
func (s *ImportHistoryService) GetRun(ctx context.Context, id uuid.UUID) (*bulk.ImportRun, error) {
	return s.runs.FindByID(ctx, id)
}

// ListRunsRequest filters and orders the run history
type ListRunsRequest struct {
	Kind     string
	Status   string
	Limit    int
	OrderBy  string // created_at, total_rows, error_rows or file_name
	OrderDir string // asc or desc
}

// ListRuns returns the most recent runs, optionally filtered by importer and status
func (s *ImportHistoryService) ListRuns(ctx context.Context, req ListRunsRequest) ([]*bulk.ImportRun, error) {
	filter := bulk.ImportRunFilter{Limit: req.Limit, OrderBy: req.OrderBy, OrderDir: req.OrderDir}
	if req.Kind != "" {
		k := bulk.ImporterKind(req.Kind)
		if !k.IsValid() {
			return nil, fmt.Errorf("%w: unknown importer %q", ErrUnknownImporter, req.Kind)
		}
		filter.Kind = &k
	}
	if req.Status != "" {
		st := bulk.RunStatus(req.Status)
		filter.Status = &st
	}
	return s.runs.FindAll(ctx, filter)
}
