// Package tabular renders tables of strings as CSV or XLSX files.
package tabular

import (
	"fmt"
	"io"
	"strings"
)

// Table is a header row plus data rows
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// NewTable creates an empty table
func NewTable(name string, headers ...string) *Table {
	return &Table{Name: name, Headers: headers}
}

// AddRow appends a row. Short rows are padded, long rows rejected.
func (t *Table) AddRow(values ...string) error {
	if len(values) > len(t.Headers) {
		return fmt.Errorf("row has %d values but table %s has %d columns", len(values), t.Name, len(t.Headers))
	}
	row := make([]string, len(t.Headers))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns the values of a column by header
func (t *Table) Column(header string) []string {
	idx := -1
	for i, h := range t.Headers {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Format names an output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat converts a string to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Writer renders a table to an output stream
type Writer interface {
	Write(w io.Writer, t *Table) error
	Extension() string
	ContentType() string
}

// NewWriter returns the writer for a format
func NewWriter(format Format, separator rune, bom bool) (Writer, error) {
	switch format {
	case FormatCSV:
		return &CSVWriter{Separator: separator, BOM: bom}, nil
	case FormatXLSX:
		return &XLSXWriter{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
