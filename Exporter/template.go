package Exporter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ProductionReport/Models"
)

// SlotsPerBatch is how many corrections share one printed form.
const SlotsPerBatch = 2

// TemplateRenderer turns up to SlotsPerBatch entries into one spreadsheet document.
// Entry 0 goes to the left slot.
type TemplateRenderer interface {
	Render(entries []Models.CorrectionEntry) ([]byte, error)
}

// ExcelRenderer draws the correction request form with excelize.
type ExcelRenderer struct{}

const formSheet = "生產日報表"

type slotColumns struct {
	label, value, mod string
}

var slots = [SlotsPerBatch]slotColumns{
	{label: "A", value: "B", mod: "C"},
	{label: "D", value: "E", mod: "F"},
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
}

type formStyles struct {
	title   int
	normal  int
	formats map[string]int
}

func newFormStyles(f *excelize.File) (*formStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "新細明體", Size: 90, Bold: true},
		Alignment: center,
	})
	if err != nil {
		return nil, err
	}
	normal, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "新細明體", Size: 30},
		Alignment: center,
		Border:    border,
	})
	if err != nil {
		return nil, err
	}

	st := &formStyles{title: title, normal: normal, formats: map[string]int{"General": normal}}
	for _, field := range Models.EditableFields {
		if _, ok := st.formats[field.NumFormat]; ok {
			continue
		}
		numFmt := field.NumFormat
		id, err := f.NewStyle(&excelize.Style{
			Font:         &excelize.Font{Family: "新細明體", Size: 30},
			Alignment:    center,
			Border:       border,
			CustomNumFmt: &numFmt,
		})
		if err != nil {
			return nil, err
		}
		st.formats[field.NumFormat] = id
	}
	return st, nil
}

// Render implements TemplateRenderer.
func (ExcelRenderer) Render(entries []Models.CorrectionEntry) ([]byte, error) {
	if len(entries) > SlotsPerBatch {
		return nil, fmt.Errorf("form holds at most %d entries, got %d", SlotsPerBatch, len(entries))
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(formSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	if f.GetSheetName(0) != formSheet {
		f.DeleteSheet("Sheet1")
	}

	if err := setupPage(f); err != nil {
		return nil, err
	}
	styles, err := newFormStyles(f)
	if err != nil {
		return nil, fmt.Errorf("error creating styles: %v", err)
	}

	if err := f.MergeCell(formSheet, "A1", "F3"); err != nil {
		return nil, err
	}
	f.SetCellValue(formSheet, "A1", "生產日報表 修改申請")
	f.SetCellStyle(formSheet, "A1", "F3", styles.title)
	for row := 1; row <= 3; row++ {
		f.SetRowHeight(formSheet, row, 41.25)
	}

	for i, cols := range slots {
		var entry *Models.CorrectionEntry
		if i < len(entries) {
			entry = &entries[i]
		}
		if err := writeSlot(f, styles, cols, entry); err != nil {
			return nil, err
		}
	}

	if err := f.MergeCell(formSheet, "A22", "F23"); err != nil {
		return nil, err
	}
	f.SetRowHeight(formSheet, 22, 41.25)
	f.SetRowHeight(formSheet, 23, 41.25)

	for col, width := range map[string]float64{
		"A": 57.28515625, "B": 40.7109375, "C": 40,
		"D": 57.28515625, "E": 40.7109375, "F": 40,
	} {
		f.SetColWidth(formSheet, col, col, width)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %v", err)
	}
	return buf.Bytes(), nil
}

func setupPage(f *excelize.File) error {
	size := 9 // A4
	orientation := "landscape"
	scale := uint(56)
	fit := 1
	if err := f.SetPageLayout(formSheet, &excelize.PageLayoutOptions{
		Size:        &size,
		Orientation: &orientation,
		AdjustTo:    &scale,
		FitToWidth:  &fit,
		FitToHeight: &fit,
	}); err != nil {
		return err
	}

	zero, bottom := 0.0, 0.3937007874015748
	centered := true
	if err := f.SetPageMargins(formSheet, &excelize.PageLayoutMarginsOptions{
		Left: &zero, Right: &zero, Top: &zero, Bottom: &bottom,
		Header: &zero, Footer: &zero,
		Horizontally: &centered, Vertically: &centered,
	}); err != nil {
		return err
	}

	return f.SetHeaderFooter(formSheet, &excelize.HeaderFooterOptions{
		OddFooter: `&R&"新細明體,粗體"&36生管：__________`,
	})
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// writeSlot draws one correction block; a nil entry leaves the values blank.
func writeSlot(f *excelize.File, st *formStyles, cols slotColumns, entry *Models.CorrectionEntry) error {
	var rec Models.CorrectionEntry
	if entry != nil {
		rec = *entry
	}
	row := 4

	// serial and dispatch order span the value and modified columns
	for _, line := range []struct {
		label string
		value string
	}{
		{"★生產日報表序號", rec.DySerialNum},
		{"發工單號", rec.PdNum},
	} {
		f.SetCellValue(formSheet, cell(cols.label, row), line.label)
		if err := f.MergeCell(formSheet, cell(cols.value, row), cell(cols.mod, row)); err != nil {
			return err
		}
		f.SetCellValue(formSheet, cell(cols.value, row), line.value)
		f.SetCellStyle(formSheet, cell(cols.label, row), cell(cols.mod, row), st.normal)
		f.SetRowHeight(formSheet, row, 39.95)
		row++
	}

	f.SetCellValue(formSheet, cell(cols.label, row), "生產日報表刪除")
	f.SetCellValue(formSheet, cell(cols.mod, row), rec.DeleteFlag.Mark())
	f.SetCellStyle(formSheet, cell(cols.label, row), cell(cols.mod, row), st.normal)
	f.SetRowHeight(formSheet, row, 39.95)
	row++

	f.SetCellValue(formSheet, cell(cols.value, row), "原本")
	f.SetCellValue(formSheet, cell(cols.mod, row), "修改為")
	f.SetCellStyle(formSheet, cell(cols.value, row), cell(cols.mod, row), st.normal)
	f.SetRowHeight(formSheet, row, 39.95)
	row++

	for _, field := range Models.EditableFields {
		pair := rec.Field(field.Key)
		original := pair.Original
		if rec.DeleteFlag == Models.DeleteYes {
			original = ""
		}

		f.SetCellValue(formSheet, cell(cols.label, row), field.Label)
		f.SetCellStyle(formSheet, cell(cols.label, row), cell(cols.label, row), st.normal)
		f.SetCellValue(formSheet, cell(cols.value, row), cellValue(field, original))
		f.SetCellValue(formSheet, cell(cols.mod, row), cellValue(field, pair.Modified))
		f.SetCellStyle(formSheet, cell(cols.value, row), cell(cols.mod, row), st.formats[field.NumFormat])
		f.SetRowHeight(formSheet, row, 39.95)
		row++
	}
	return nil
}

// cellValue converts date-time text into a time for date-time fields so the
// number format applies; anything unparseable stays as text.
func cellValue(field Models.EditableField, v Models.FieldValue) interface{} {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return ""
	}
	if field.DateTime {
		for _, layout := range dateTimeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t
			}
		}
	}
	return s
}
