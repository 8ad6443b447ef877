package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// RowStatus is the outcome of importing one row
type RowStatus string

const (
	StatusSuccess RowStatus = "success"
	StatusWarning RowStatus = "warning"
	StatusError   RowStatus = "error"
)

// ReportHeaders are the columns of the report file
var ReportHeaders = []string{"line", "navision_id", "status", "message"}

// RowResult is one line of the import report
type RowResult struct {
	Line       int
	NavisionID string
	Status     RowStatus
	Message    string
}

// Report collects the outcome of every row. Safe for concurrent use by
// the import workers.
type Report struct {
	mu      sync.Mutex
	results []RowResult
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{results: make([]RowResult, 0)}
}

// Success records a successfully imported row
func (r *Report) Success(line int, navisionID string) {
	r.Add(RowResult{Line: line, NavisionID: navisionID, Status: StatusSuccess})
}

// Warning records a row imported or skipped with a remark
func (r *Report) Warning(line int, navisionID, message string) {
	r.Add(RowResult{Line: line, NavisionID: navisionID, Status: StatusWarning, Message: message})
}

// Error records a row that could not be imported
func (r *Report) Error(line int, navisionID, message string) {
	r.Add(RowResult{Line: line, NavisionID: navisionID, Status: StatusError, Message: message})
}

// Add records a row result
func (r *Report) Add(result RowResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns the results ordered by line number
func (r *Report) Results() []RowResult {
	r.mu.Lock()
	out := make([]RowResult, len(r.results))
	copy(out, r.results)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Issues returns the warning and error results ordered by line number
func (r *Report) Issues() []RowResult {
	var issues []RowResult
	for _, res := range r.Results() {
		if res.Status != StatusSuccess {
			issues = append(issues, res)
		}
	}
	return issues
}

// Counts returns the number of rows per status
func (r *Report) Counts() (success, warnings, errors int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		switch res.Status {
		case StatusSuccess:
			success++
		case StatusWarning:
			warnings++
		case StatusError:
			errors++
		}
	}
	return success, warnings, errors
}

// WriteCSV writes the report with a header row
func (r *Report) WriteCSV(w io.Writer, separator rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = separator
	if err := cw.Write(ReportHeaders); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, res := range r.Results() {
		record := []string{strconv.Itoa(res.Line), res.NavisionID, string(res.Status), res.Message}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report line %d: %w", res.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
