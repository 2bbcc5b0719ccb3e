package Exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File name conventions. Downstream consumers of the share and the cleanup
// routines both match on these prefixes, so they must not change.
const (
	CsvPrefix       = "生產日報表修改_"
	BatchPrefix     = "生產日報表修改申請_"
	CsvExt          = ".csv"
	BatchExt        = ".xlsx"
	TimestampLayout = "20060102_150405"
)

// CsvName is 生產日報表修改_<serial>_<timestamp>.csv.
func CsvName(serial string, at time.Time) string {
	if serial == "" {
		serial = "UNKNOWN"
	}
	return fmt.Sprintf("%s%s_%s%s", CsvPrefix, serial, at.Format(TimestampLayout), CsvExt)
}

// BatchName is 生產日報表修改申請_<size>筆_批次<ordinal>_<timestamp>.xlsx.
func BatchName(size, ordinal int, at time.Time) string {
	return fmt.Sprintf("%s%d筆_批次%d_%s%s", BatchPrefix, size, ordinal, at.Format(TimestampLayout), BatchExt)
}

func IsCsvArtifact(name string) bool {
	return strings.HasPrefix(name, CsvPrefix) && strings.HasSuffix(name, CsvExt)
}

func IsBatchArtifact(name string) bool {
	return strings.HasPrefix(name, BatchPrefix) && strings.HasSuffix(name, BatchExt)
}

// ListArtifacts returns full paths of files in dir accepted by match, sorted by name.
func ListArtifacts(dir string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// RemoveArtifacts deletes every file in dir accepted by match and returns the
// names removed. It keeps going past individual failures and reports the first.
func RemoveArtifacts(dir string, match func(string) bool) ([]string, error) {
	paths, err := ListArtifacts(dir, match)
	if err != nil {
		return nil, err
	}
	var removed []string
	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, filepath.Base(p))
	}
	return removed, firstErr
}
