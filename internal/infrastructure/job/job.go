// Package job runs background jobs (imports, exports) with retries,
// error hooks and tracing.
package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the status of a job
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Func is the work of a job
type Func func(ctx context.Context) error

// Job is one unit of background work
type Job struct {
	ID          uuid.UUID
	Name        string
	Run         Func
	Status      Status
	Attempts    int
	MaxAttempts int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// New creates a pending job. maxAttempts below one means the runner default.
func New(name string, run Func, maxAttempts int) *Job {
	return &Job{
		ID:          uuid.New(),
		Name:        name,
		Run:         run,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
	}
}

func (j *Job) start() {
	now := time.Now()
	j.Status = StatusRunning
	j.Attempts++
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	j.Error = ""
}

func (j *Job) complete() {
	now := time.Now()
	j.Status = StatusSuccess
	j.CompletedAt = &now
}

func (j *Job) fail(err error) {
	now := time.Now()
	j.Status = StatusFailed
	j.CompletedAt = &now
	j.Error = err.Error()
}

// shouldRetry reports whether another attempt is allowed after err
func (j *Job) shouldRetry(err error) bool {
	return j.Attempts < j.MaxAttempts && !IsPermanent(err)
}

// PermanentError marks a failure that retrying cannot fix
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the runner does not retry it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
