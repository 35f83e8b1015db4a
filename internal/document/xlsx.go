package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// fillWorkbook appends rows to the first sheet of a workbook. With a
// template the rows land after its existing content; without one they
// start at row 1 of a fresh workbook. Cell values keep their JSON types
// so numbers stay numeric in the sheet.
func fillWorkbook(templatePath string, rows [][]any, outputPath string) error {
	var (
		f     *excelize.File
		sheet string
		next  int
		err   error
	)

	if templatePath != "" {
		f, err = excelize.OpenFile(templatePath)
		if err != nil {
			return fmt.Errorf("open workbook template: %w", err)
		}
		sheet = f.GetSheetName(0)
		existing, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		next = len(existing) + 1
	} else {
		f = excelize.NewFile()
		sheet = f.GetSheetName(0)
		next = 1
	}
	defer f.Close()

	for _, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return fmt.Errorf("cell for row %d: %w", next, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", next, err)
		}
		next++
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
