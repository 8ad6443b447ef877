package tabular

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet  = "Sheet1"
	maxSheetName  = 31
	minColWidth   = 8.0
	maxColWidth   = 60.0
	headerFillRGB = "#E6F3FF"
)

// XLSXWriter writes tables as Excel workbooks with one sheet
type XLSXWriter struct{}

// Write renders the table
func (x *XLSXWriter) Write(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillRGB}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	widths := columnWidths(t)
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetName shortens a table name to the 31 characters Excel allows
func sheetName(name string) string {
	if name == "" {
		return defaultSheet
	}
	if utf8.RuneCountInString(name) <= maxSheetName {
		return name
	}
	return string([]rune(name)[:maxSheetName])
}

func columnWidths(t *Table) []float64 {
	widths := make([]float64, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = float64(utf8.RuneCountInString(h)) + 2
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if w := float64(utf8.RuneCountInString(v)) + 2; w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = max(minColWidth, min(widths[i], maxColWidth))
	}
	return widths
}

// Extension returns the file extension
func (x *XLSXWriter) Extension() string {
	return "xlsx"
}

// ContentType returns the MIME type
func (x *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
