package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/infrastructure/csvimport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockImportRunRepository is a mock implementation of ImportRunRepository
type MockImportRunRepository struct {
	mock.Mock
}

func (m *MockImportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportRun), args.Error(1)
}

func (m *MockImportRunRepository) FindAll(ctx context.Context, filter bulk.ImportRunFilter) ([]*bulk.ImportRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bulk.ImportRun), args.Error(1)
}

func (m *MockImportRunRepository) Save(ctx context.Context, run *bulk.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func TestImportHistoryService_CreateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending run", func(t *testing.T) {
		repo := new(MockImportRunRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*bulk.ImportRun")).Return(nil)
		service := NewImportHistoryService(repo)

		run, err := service.CreateRun(ctx, bulk.ImporterPeople, "people.csv", 2048)
		require.NoError(t, err)
		assert.Equal(t, bulk.RunStatusPending, run.Status)
		assert.Equal(t, "people.csv", run.FileName)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown importer", func(t *testing.T) {
		repo := new(MockImportRunRepository)
		service := NewImportHistoryService(repo)

		_, err := service.CreateRun(ctx, bulk.ImporterKind("invoices"), "x.csv", 1)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("wraps save errors", func(t *testing.T) {
		repo := new(MockImportRunRepository)
		repo.On("Save", ctx, mock.Anything).Return(errors.New("db down"))
		service := NewImportHistoryService(repo)

		_, err := service.CreateRun(ctx, bulk.ImporterGroups, "groups.csv", 1)
		assert.ErrorContains(t, err, "failed to save import run")
	})
}

func TestImportHistoryService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := new(MockImportRunRepository)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	service := NewImportHistoryService(repo)

	run, err := service.CreateRun(ctx, bulk.ImporterMemberships, "memberships.csv", 10)
	require.NoError(t, err)
	require.NoError(t, service.StartProcessing(ctx, run, 3, 2))
	assert.Equal(t, bulk.RunStatusProcessing, run.Status)
	assert.Equal(t, 2, run.Workers)

	report := csvimport.NewReport()
	report.Success(2, "1")
	report.Warning(3, "2", "role ehrenpraesident is not migrated, row skipped")
	report.Error(4, "3", "person 3 not found")
	require.NoError(t, service.CompleteRun(ctx, run, report, "log/import/memberships.csv"))

	assert.Equal(t, bulk.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.SuccessRows)
	assert.Equal(t, 1, run.WarningRows)
	assert.Equal(t, 1, run.ErrorRows)
	assert.Equal(t, "log/import/memberships.csv", run.ReportPath)
	require.Len(t, run.Issues, 2)
	assert.Equal(t, bulk.RowIssue{Line: 4, NavisionID: "3", Status: "error", Message: "person 3 not found"}, run.Issues[1])

	assert.Error(t, service.CancelRun(ctx, run))
	repo.AssertNumberOfCalls(t, "Save", 3)
}

func TestImportHistoryService_FailRun(t *testing.T) {
	ctx := context.Background()
	repo := new(MockImportRunRepository)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	service := NewImportHistoryService(repo)

	run, err := service.CreateRun(ctx, bulk.ImporterGroups, "groups.csv", 10)
	require.NoError(t, err)
	require.NoError(t, service.FailRun(ctx, run, csvimport.ErrMissingHeader))
	assert.Equal(t, bulk.RunStatusFailed, run.Status)
	assert.Equal(t, csvimport.ErrMissingHeader.Error(), run.FailureCause)
}

func TestImportHistoryService_ListRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by importer and status", func(t *testing.T) {
		repo := new(MockImportRunRepository)
		kind := bulk.ImporterPeople
		status := bulk.RunStatusFailed
		repo.On("FindAll", ctx, bulk.ImportRunFilter{Kind: &kind, Status: &status, Limit: 5}).
			Return([]*bulk.ImportRun{}, nil)
		service := NewImportHistoryService(repo)

		runs, err := service.ListRuns(ctx, ListRunsRequest{Kind: "people", Status: "failed", Limit: 5})
		require.NoError(t, err)
		assert.Empty(t, runs)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown importer", func(t *testing.T) {
		service := NewImportHistoryService(new(MockImportRunRepository))
		_, err := service.ListRuns(ctx, ListRunsRequest{Kind: "invoices"})
		assert.ErrorIs(t, err, ErrUnknownImporter)
	})
}

func TestImportHistoryService_GetRun(t *testing.T) {
	ctx := context.Background()
	repo := new(MockImportRunRepository)
	run, err := bulk.NewImportRun(bulk.ImporterPeople, "people.csv", 1)
	require.NoError(t, err)
	repo.On("FindByID", ctx, run.ID).Return(run, nil)

	got, err := NewImportHistoryService(repo).GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)
}
