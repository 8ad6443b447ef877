package csvimport

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Import error codes
const (
	ErrCodeMalformedRow      = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeValidation        = "ERR_IMPORT_VALIDATION"
	ErrCodeRequiredField     = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType       = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidLength     = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeInvalidRange      = "ERR_IMPORT_INVALID_RANGE"
	ErrCodePatternMismatch   = "ERR_IMPORT_PATTERN_MISMATCH"
	ErrCodeInvalidChoice     = "ERR_IMPORT_INVALID_CHOICE"
	ErrCodeDuplicateInFile   = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeReferenceNotFound = "ERR_IMPORT_REFERENCE_NOT_FOUND"
)

// Common import errors
var (
	ErrEmptyFile           = errors.New("CSV file is empty")
	ErrInvalidEncoding     = errors.New("invalid file encoding")
	ErrUnsupportedEncoding = errors.New("unsupported file encoding")
	ErrMissingHeader       = errors.New("CSV file missing header row")
	ErrMissingColumns      = errors.New("CSV file misses required columns")
)

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError with the invalid value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	e := NewRowError(row, column, code, message)
	e.Value = value
	return e
}

func asRowError(err error, target *RowError) bool {
	return errors.As(err, target)
}

// ErrorCollection collects row errors up to a limit. Safe for concurrent use.
type ErrorCollection struct {
	mu         sync.Mutex
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddTypeError adds a type validation error
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeInvalidType, fmt.Sprintf("expected %s", expectedType), value))
}

// Errors returns a copy of the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]RowError, len(ec.errors))
	copy(out, ec.errors)
	return out
}

// ForRow returns the collected errors of one row
func (ec *ErrorCollection) ForRow(row int) []RowError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	var out []RowError
	for _, e := range ec.errors {
		if e.Row == row {
			out = append(out, e)
		}
	}
	return out
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.TotalCount() > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.TotalCount() > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	errs := ec.Errors()
	total := ec.TotalCount()
	if total == 0 {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", total)
	if total > len(errs) {
		fmt.Fprintf(&sb, " (showing first %d)", len(errs))
	}
	sb.WriteString(":\n")
	for _, err := range errs {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// JoinMessages joins the messages of row errors for a report line
func JoinMessages(errs []RowError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		if e.Column != "" {
			parts[i] = e.Column + ": " + e.Message
		} else {
			parts[i] = e.Message
		}
	}
	return strings.Join(parts, ", ")
}
