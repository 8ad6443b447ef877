package models

import (
	"time"

	"github.com/sac/membership/internal/domain/bulk"
)

// ImportRunModel is the persistence model for the ImportRun aggregate
type ImportRunModel struct {
	AggregateModel
	Kind         bulk.ImporterKind `gorm:"type:varchar(30);not null;index"`
	FileName     string            `gorm:"type:varchar(255);not null"`
	FileSize     int64             `gorm:"not null;default:0"`
	Workers      int               `gorm:"not null;default:1"`
	TotalRows    int               `gorm:"not null;default:0"`
	SuccessRows  int               `gorm:"not null;default:0"`
	WarningRows  int               `gorm:"not null;default:0"`
	ErrorRows    int               `gorm:"not null;default:0"`
	Status       bulk.RunStatus    `gorm:"type:varchar(20);not null;default:'pending'"`
	ReportPath   string            `gorm:"type:varchar(500)"`
	FailureCause string            `gorm:"type:text"`
	Issues       string            `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (ImportRunModel) TableName() string {
	return "import_runs"
}

// ToDomain converts the persistence model to a domain ImportRun.
func (m *ImportRunModel) ToDomain() *bulk.ImportRun {
	run := &bulk.ImportRun{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		FileName:          m.FileName,
		FileSize:          m.FileSize,
		Workers:           m.Workers,
		TotalRows:         m.TotalRows,
		SuccessRows:       m.SuccessRows,
		WarningRows:       m.WarningRows,
		ErrorRows:         m.ErrorRows,
		Status:            m.Status,
		ReportPath:        m.ReportPath,
		FailureCause:      m.FailureCause,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}
	_ = run.SetIssuesFromJSON(m.Issues)
	return run
}

// FromDomain populates the persistence model from a domain ImportRun.
func (m *ImportRunModel) FromDomain(r *bulk.ImportRun) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Kind = r.Kind
	m.FileName = r.FileName
	m.FileSize = r.FileSize
	m.Workers = r.Workers
	m.TotalRows = r.TotalRows
	m.SuccessRows = r.SuccessRows
	m.WarningRows = r.WarningRows
	m.ErrorRows = r.ErrorRows
	m.Status = r.Status
	m.ReportPath = r.ReportPath
	m.FailureCause = r.FailureCause
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt

	if issues, err := r.IssuesJSON(); err == nil {
		m.Issues = issues
	} else {
		m.Issues = "[]"
	}
}

// ImportRunModelFromDomain creates a new persistence model from a domain ImportRun.
func ImportRunModelFromDomain(r *bulk.ImportRun) *ImportRunModel {
	m := &ImportRunModel{}
	m.FromDomain(r)
	return m
}
