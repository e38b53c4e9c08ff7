// Package export writes dashboard matrices as spreadsheet downloads.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/ui/locale"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	Filename    = "matrices.xlsx"

	defaultSheet = "Sheet1"
	// Excel's built-in "#,##0" format.
	thousandsFormat = 3
)

// WriteMatrices writes one sheet per matrix, in display order.
func WriteMatrices(w io.Writer, matrices models.Matrices) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	amounts, err := f.NewStyle(&excelize.Style{NumFmt: thousandsFormat})
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}

	for i, m := range matrices.All() {
		sheet := locale.MatrixTitle(m.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeMatrix(f, sheet, m, header, amounts); err != nil {
			return fmt.Errorf("write sheet %s: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeMatrix(f *excelize.File, sheet string, m models.PivotMatrix, headerStyle, amountStyle int) error {
	columns := m.ColumnList()
	labels := make([]any, len(columns))
	for i, c := range columns {
		labels[i] = locale.ColumnLabel(m, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &labels); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range m.Rows {
		values := make([]any, 0, len(row.Cells)+2)
		values = append(values, row.Key)
		for _, v := range row.Cells {
			values = append(values, v)
		}
		values = append(values, row.Total)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if m.Measure == models.MeasureAmount && len(m.Rows) > 0 {
		last := fmt.Sprintf("%s%d", lastCol, len(m.Rows)+1)
		if err := f.SetCellStyle(sheet, "B2", last, amountStyle); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "A", 14)
}
