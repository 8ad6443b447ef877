package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as CSV
type CSVWriter struct {
	Separator rune
	BOM       bool // prepend a UTF-8 byte order mark for spreadsheet programs
}

// Write renders the table
func (c *CSVWriter) Write(w io.Writer, t *Table) error {
	if c.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	cw.Comma = c.separator()
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows of %s: %w", t.Name, err)
	}
	return nil
}

func (c *CSVWriter) separator() rune {
	if c.Separator == 0 {
		return ';'
	}
	return c.Separator
}

// Extension returns the file extension
func (c *CSVWriter) Extension() string {
	return "csv"
}

// ContentType returns the MIME type
func (c *CSVWriter) ContentType() string {
	return "text/csv; charset=utf-8"
}
