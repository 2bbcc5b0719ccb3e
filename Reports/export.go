package Reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"ProductionReport/Models"
)

const SheetName = "生產日報表"

// ExportName is 生產日報表_<serial>_<timestamp>.xlsx.
func ExportName(serial string, at time.Time) string {
	return fmt.Sprintf("生產日報表_%s_%s.xlsx", serial, at.Format("20060102_150405"))
}

// ExportRows writes rows as a single-sheet workbook with a header line.
func ExportRows(rows []Models.ReportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	if f.GetSheetName(0) != SheetName {
		f.DeleteSheet("Sheet1")
	}

	for i, header := range Models.ReportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(SheetName, 1, 1, headerStyle)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		cells := row.Cells()
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", r+1, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(Models.ReportColumns))
	f.SetColWidth(SheetName, "A", last, 15)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %v", err)
	}
	return &buf, nil
}
