package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sac/membership/internal/domain/shared"
)

// ImporterKind names the legacy entity an import run loads
type ImporterKind string

const (
	ImporterGroups         ImporterKind = "groups"
	ImporterPeople         ImporterKind = "people"
	ImporterMemberships    ImporterKind = "memberships"
	ImporterQualifications ImporterKind = "qualifications"
)

// AllImporterKinds lists the importers in load order
func AllImporterKinds() []ImporterKind {
	return []ImporterKind{ImporterGroups, ImporterPeople, ImporterMemberships, ImporterQualifications}
}

// IsValid checks if the importer kind is valid
func (k ImporterKind) IsValid() bool {
	switch k {
	case ImporterGroups, ImporterPeople, ImporterMemberships, ImporterQualifications:
		return true
	}
	return false
}

// RunStatus represents the status of an import run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// MaxIssueDetails bounds the row issues kept on the run record; the full
// list lives in the report file.
const MaxIssueDetails = 100

// RowIssue is a warning or error reported for one CSV row
type RowIssue struct {
	Line       int    `json:"line"`
	NavisionID string `json:"navision_id,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// ImportRun tracks one execution of a legacy importer
type ImportRun struct {
	shared.BaseAggregateRoot
	Kind         ImporterKind
	FileName     string
	FileSize     int64
	Workers      int
	TotalRows    int
	SuccessRows  int
	WarningRows  int
	ErrorRows    int
	Status       RunStatus
	ReportPath   string
	FailureCause string
	Issues       []RowIssue
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewImportRun creates a pending import run
func NewImportRun(kind ImporterKind, fileName string, fileSize int64) (*ImportRun, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_IMPORTER", fmt.Sprintf("Invalid importer: %s", kind))
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}

	return &ImportRun{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		FileName:          fileName,
		FileSize:          fileSize,
		Status:            RunStatusPending,
		Issues:            make([]RowIssue, 0),
	}, nil
}

// Start marks the run as processing
func (r *ImportRun) Start(totalRows, workers int) error {
	if r.Status != RunStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", r.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}

	r.Status = RunStatusProcessing
	r.TotalRows = totalRows
	r.Workers = workers
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Complete records the row counts and the report location
func (r *ImportRun) Complete(success, warnings, errors int, issues []RowIssue, reportPath string) error {
	if r.Status != RunStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", r.Status))
	}

	status := RunStatusCompleted
	if errors > 0 && success == 0 && warnings == 0 {
		status = RunStatusFailed
	}
	if len(issues) > MaxIssueDetails {
		issues = issues[:MaxIssueDetails]
	}

	r.Status = status
	r.SuccessRows = success
	r.WarningRows = warnings
	r.ErrorRows = errors
	r.Issues = issues
	r.ReportPath = reportPath
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Fail marks the run as failed before all rows were processed
func (r *ImportRun) Fail(cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", r.Status))
	}

	r.Status = RunStatusFailed
	if cause != nil {
		r.FailureCause = cause.Error()
	}
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Cancel marks the run as cancelled
func (r *ImportRun) Cancel() error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel from terminal state: %s", r.Status))
	}

	r.Status = RunStatusCancelled
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// IssuesJSON returns the row issues as a JSON string
func (r *ImportRun) IssuesJSON() (string, error) {
	if len(r.Issues) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.Issues)
	if err != nil {
		return "", fmt.Errorf("failed to marshal row issues: %w", err)
	}
	return string(data), nil
}

// SetIssuesFromJSON parses row issues from a JSON string
func (r *ImportRun) SetIssuesFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.Issues = make([]RowIssue, 0)
		return nil
	}
	var issues []RowIssue
	if err := json.Unmarshal([]byte(jsonStr), &issues); err != nil {
		return fmt.Errorf("failed to unmarshal row issues: %w", err)
	}
	r.Issues = issues
	return nil
}

// SuccessRate returns the share of rows imported without error (0-100)
func (r *ImportRun) SuccessRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.SuccessRows+r.WarningRows) / float64(r.TotalRows) * 100
}

// Duration returns how long the run took, or has been running
func (r *ImportRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}
