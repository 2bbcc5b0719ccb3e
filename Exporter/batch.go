package Exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ProductionReport/Models"
)

// BatchExporter renders different-day entries, two per spreadsheet.
//
// ExportAll always regenerates from scratch and never looks at what is
// already on disk; callers remove the previous batch files first.
type BatchExporter struct {
	Dir      string
	Renderer TemplateRenderer
	// DifferentDay selects the entries that get a spreadsheet.
	DifferentDay func(Models.CorrectionEntry) bool
	Now          func() time.Time
}

// NewBatchExporter creates a BatchExporter writing into dir.
func NewBatchExporter(dir string, renderer TemplateRenderer, differentDay func(Models.CorrectionEntry) bool) *BatchExporter {
	return &BatchExporter{Dir: dir, Renderer: renderer, DifferentDay: differentDay, Now: time.Now}
}

// Chunk splits entries into consecutive groups of at most size, keeping order.
func Chunk(entries []Models.CorrectionEntry, size int) [][]Models.CorrectionEntry {
	var out [][]Models.CorrectionEntry
	for i := 0; i < len(entries); i += size {
		end := i + size
		if end > len(entries) {
			end = len(entries)
		}
		out = append(out, entries[i:end])
	}
	return out
}

// ExportAll writes one spreadsheet per chunk of different-day entries and
// returns their paths. If any chunk fails, files written by this call are
// removed again.
func (b *BatchExporter) ExportAll(entries []Models.CorrectionEntry) ([]string, error) {
	var selected []Models.CorrectionEntry
	for _, e := range entries {
		if b.DifferentDay(e) {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	stamp := b.Now()
	var written []string
	for i, batch := range Chunk(selected, SlotsPerBatch) {
		path := filepath.Join(b.Dir, BatchName(len(batch), i+1, stamp))
		if err := b.writeBatch(path, batch); err != nil {
			for _, p := range written {
				os.Remove(p)
			}
			return nil, fmt.Errorf("batch %d: %w", i+1, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func (b *BatchExporter) writeBatch(path string, batch []Models.CorrectionEntry) error {
	doc, err := b.Renderer.Render(batch)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
