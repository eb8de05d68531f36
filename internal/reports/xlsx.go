package reports

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheetName names the only sheet of an exported workbook.
	DefaultSheetName = "Report"

	maxColumnWidth = 50
)

// WriteXLSX writes the table as a single-sheet workbook with a bold header
// row. Columns are sized to their longest cell, up to a fixed maximum.
func WriteXLSX(w io.Writer, table Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	widths := make([]int, len(table.Columns))
	for col, name := range table.Columns {
		if err := setCell(f, sheet, col+1, 1, name); err != nil {
			return err
		}
		widths[col] = utf8.RuneCountInString(name)
	}

	if len(table.Columns) > 0 {
		header, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return fmt.Errorf("failed to address header: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, row := range table.Rows {
		for c, value := range row {
			if err := setCell(f, sheet, c+1, r+2, value); err != nil {
				return err
			}
			if c < len(widths) {
				widths[c] = max(widths[c], utf8.RuneCountInString(formatCell(value)))
			}
		}
	}

	for c, width := range widths {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", c+1, err)
		}
		if err := f.SetColWidth(sheet, name, name, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cell, err)
	}
	return nil
}
