package Exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ProductionReport/Models"
)

// CsvColumns is the fixed header of a correction CSV.
var CsvColumns = []string{
	"生產日報表序號", "刪除(Y/N)", "發工單號", "工作日期", "工作者編號",
	"機台編號", "工序編號", "完工數", "不良數", "起工時間", "完工時間",
	"除外名稱1", "除外時間1", "除外名稱2", "除外時間2", "除外名稱3", "除外時間3",
	"儲存時間",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CsvExporter writes one CSV sidecar per correction entry.
type CsvExporter struct {
	Dir string
	Now func() time.Time
}

// NewCsvExporter creates a CsvExporter writing into dir.
func NewCsvExporter(dir string) *CsvExporter {
	return &CsvExporter{Dir: dir, Now: time.Now}
}

// CsvRecord returns the data row for entry in CsvColumns order.
func CsvRecord(entry Models.CorrectionEntry) []string {
	deleteMark := "N"
	if entry.DeleteFlag == Models.DeleteYes {
		deleteMark = "Y"
	}
	row := []string{entry.DySerialNum, deleteMark, entry.PdNum}
	for _, f := range Models.EditableFields {
		row = append(row, entry.Field(f.Key).Preferred().String())
	}
	return append(row, entry.SavedTimeText())
}

// Export writes entry to a new file and returns its path. An existing file is
// never overwritten; a numeric suffix is added instead.
func (e *CsvExporter) Export(entry Models.CorrectionEntry) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	name := CsvName(entry.DySerialNum, e.Now())
	file, path, err := createExclusive(e.Dir, name)
	if err != nil {
		return "", err
	}

	werr := writeCsv(file, entry)
	if cerr := file.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", filepath.Base(path), werr)
	}
	return path, nil
}

func writeCsv(file *os.File, entry Models.CorrectionEntry) error {
	if _, err := file.Write(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.Write(CsvColumns); err != nil {
		return err
	}
	if err := w.Write(CsvRecord(entry)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func createExclusive(dir, name string) (*os.File, string, error) {
	base := strings.TrimSuffix(name, CsvExt)
	for n := 1; n < 1000; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, CsvExt)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", candidate, err)
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s", name)
}
