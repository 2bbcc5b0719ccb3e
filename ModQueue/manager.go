package ModQueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ProductionReport/Exporter"
	"ProductionReport/Logger"
	"ProductionReport/Models"
	"ProductionReport/Share"
)

// PrintPagePath is the view that renders the pending print snapshot.
const PrintPagePath = "/print_page"

// Uploader delivers artifact files to the network share.
type Uploader interface {
	Upload(ctx context.Context, paths []string) (ok, failed []string, err error)
}

// Manager owns the modification queue and every artifact derived from it.
// Each exported method is one critical section.
type Manager struct {
	mu sync.Mutex

	store    Store
	csvFiles map[string]string // entry id -> csv path
	snapshot []Models.CorrectionEntry

	dir        string
	classifier *Classifier
	csv        *Exporter.CsvExporter
	batches    *Exporter.BatchExporter
	uploader   Uploader
	log        logrus.FieldLogger
	now        func() time.Time
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Dir      string
	Renderer Exporter.TemplateRenderer
	Uploader Uploader
	Log      logrus.FieldLogger
	// Now defaults to time.Now; it drives classification, saved times and file stamps.
	Now func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = Logger.Discard()
	}
	classifier := &Classifier{Now: now, Log: log}

	csv := Exporter.NewCsvExporter(cfg.Dir)
	csv.Now = now
	batches := Exporter.NewBatchExporter(cfg.Dir, cfg.Renderer, classifier.IsDifferentDay)
	batches.Now = now

	return &Manager{
		csvFiles:   make(map[string]string),
		dir:        cfg.Dir,
		classifier: classifier,
		csv:        csv,
		batches:    batches,
		uploader:   cfg.Uploader,
		log:        log,
		now:        now,
	}
}

// SaveResult describes a saved correction.
type SaveResult struct {
	Entry      Models.CorrectionEntry
	QueueCount int
	BatchFiles []string
	CsvFile    string
}

// Save admits entry, regenerates the batch spreadsheets for the whole queue
// and writes the entry's CSV. If export fails the entry stays queued.
func (m *Manager) Save(entry Models.CorrectionEntry) (SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	admitted, err := m.store.Append(entry, m.now())
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{Entry: admitted, QueueCount: m.store.Len()}

	batchPaths, err := m.regenerateBatches()
	if err != nil {
		return res, err
	}
	for _, p := range batchPaths {
		res.BatchFiles = append(res.BatchFiles, filepath.Base(p))
	}

	csvPath, err := m.csv.Export(admitted)
	if err != nil {
		m.log.WithField("dy_serial_num", admitted.DySerialNum).Errorf("csv export failed: %v", err)
		return res, &ExportError{Stage: "csv", Err: err}
	}
	m.csvFiles[admitted.ID] = csvPath
	res.CsvFile = filepath.Base(csvPath)

	m.log.WithFields(logrus.Fields{
		"dy_serial_num": admitted.DySerialNum,
		"queue_count":   res.QueueCount,
		"batch_files":   len(res.BatchFiles),
	}).Info("correction saved")
	return res, nil
}

// UploadResult describes a completed upload or print action.
type UploadResult struct {
	Removed    int
	CsvFiles   []string
	BatchFiles []string
	QueueCount int
	// PrintURL is set by Print only.
	PrintURL string
}

// Upload sends the same-day corrections to the share: their CSVs plus every
// batch spreadsheet currently on disk. Only after every file copied are the
// same-day entries pruned and the local files deleted.
func (m *Manager) Upload(ctx context.Context) (UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sameDay, differentDay := m.store.Partition(m.classifier.IsSameDay)
	if len(sameDay) == 0 {
		return UploadResult{}, invalid(ErrNoSameDay)
	}

	res, files, err := m.deliver(ctx, sameDay)
	if err != nil {
		return UploadResult{}, err
	}

	m.store.ReplaceAll(differentDay)
	m.forget(sameDay)
	m.removeLocal(files)

	res.Removed = len(sameDay)
	res.QueueCount = m.store.Len()
	m.log.WithFields(logrus.Fields{
		"removed":     res.Removed,
		"queue_count": res.QueueCount,
	}).Info("same-day corrections uploaded")
	return res, nil
}

// Print sends the different-day corrections to the share, keeps a copy of
// them as the pending print snapshot and prunes them from the queue.
func (m *Manager) Print(ctx context.Context) (UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store.Len() == 0 {
		return UploadResult{}, invalid(ErrQueueEmpty)
	}
	differentDay, sameDay := m.store.Partition(m.classifier.IsDifferentDay)
	if len(differentDay) == 0 {
		return UploadResult{}, invalid(ErrNoDifferentDay)
	}

	res, files, err := m.deliver(ctx, differentDay)
	if err != nil {
		return UploadResult{}, err
	}

	m.snapshot = append([]Models.CorrectionEntry(nil), differentDay...)
	m.store.ReplaceAll(sameDay)
	m.forget(differentDay)
	m.removeLocal(files)

	indices := make([]string, len(m.snapshot))
	for i := range m.snapshot {
		indices[i] = strconv.Itoa(i)
	}
	res.PrintURL = PrintPagePath + "?indices=" + strings.Join(indices, ",")
	res.Removed = len(differentDay)
	res.QueueCount = m.store.Len()
	m.log.WithFields(logrus.Fields{
		"removed":     res.Removed,
		"queue_count": res.QueueCount,
	}).Info("different-day corrections uploaded for printing")
	return res, nil
}

// deliver uploads the CSVs of entries plus all batch files on disk.
func (m *Manager) deliver(ctx context.Context, entries []Models.CorrectionEntry) (UploadResult, []string, error) {
	var res UploadResult
	var csvPaths []string
	for _, e := range entries {
		p, ok := m.csvFiles[e.ID]
		if !ok {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		csvPaths = append(csvPaths, p)
		res.CsvFiles = append(res.CsvFiles, filepath.Base(p))
	}

	batchPaths, err := Exporter.ListArtifacts(m.dir, Exporter.IsBatchArtifact)
	if err != nil {
		return res, nil, fmt.Errorf("listing batch files: %w", err)
	}
	for _, p := range batchPaths {
		res.BatchFiles = append(res.BatchFiles, filepath.Base(p))
	}

	files := append(csvPaths, batchPaths...)
	if len(files) == 0 {
		return res, nil, invalid(ErrNothingToUpload)
	}

	_, failed, err := m.uploader.Upload(ctx, files)
	if err != nil || len(failed) > 0 {
		if err == nil {
			err = errors.New("copy failed")
		}
		return res, nil, &UploadError{Failed: failed, Err: err}
	}
	return res, files, nil
}

// DeleteResult describes a single-item removal.
type DeleteResult struct {
	Entry      Models.CorrectionEntry
	QueueCount int
	BatchFiles []string
}

// DeleteAt removes the entry at index along with its CSV, then rebuilds the
// batch spreadsheets for what is left. Indices of later entries shift down.
func (m *Manager) DeleteAt(index int) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.store.RemoveAt(index)
	if err != nil {
		return DeleteResult{}, err
	}
	m.forget([]Models.CorrectionEntry{removed})
	res := DeleteResult{Entry: removed, QueueCount: m.store.Len()}

	if res.QueueCount == 0 {
		if _, err := Exporter.RemoveArtifacts(m.dir, Exporter.IsBatchArtifact); err != nil {
			m.log.Warnf("removing batch files: %v", err)
		}
		return res, nil
	}

	paths, err := m.regenerateBatches()
	if err != nil {
		return res, err
	}
	for _, p := range paths {
		res.BatchFiles = append(res.BatchFiles, filepath.Base(p))
	}
	return res, nil
}

// ClearAll empties the queue and deletes every CSV and batch artifact in the
// export directory. It returns how many entries were queued.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.store.Clear()
	m.csvFiles = make(map[string]string)

	removed, err := Exporter.RemoveArtifacts(m.dir, func(name string) bool {
		return Exporter.IsCsvArtifact(name) || Exporter.IsBatchArtifact(name)
	})
	if err != nil {
		m.log.Warnf("clearing artifacts: %v", err)
	}
	m.log.WithFields(logrus.Fields{"entries": count, "files": len(removed)}).Info("queue cleared")
	return count
}

// ClearResult describes a date-type clear.
type ClearResult struct {
	Removed    int
	QueueCount int
}

// ClearDateType removes entries whose client-supplied date_type equals
// dateType, together with their CSVs. Save never sets date_type, so in normal
// use this selects nothing.
func (m *Manager) ClearDateType(dateType string) (ClearResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matching, rest := m.store.Partition(func(e Models.CorrectionEntry) bool {
		return e.DateType == dateType
	})
	res := ClearResult{Removed: len(matching), QueueCount: m.store.Len()}
	if len(matching) == 0 {
		return res, nil
	}
	m.store.ReplaceAll(rest)
	m.forget(matching)
	res.QueueCount = m.store.Len()

	if _, err := m.regenerateBatches(); err != nil {
		return res, err
	}
	return res, nil
}

// Counts is the live same-day / different-day split.
type Counts struct {
	SameDay      int `json:"same_day_count"`
	DifferentDay int `json:"different_day_count"`
	Total        int `json:"total_count"`
}

// Counts reclassifies the queue on every call.
func (m *Manager) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()

	sameDay, differentDay := m.store.Partition(m.classifier.IsSameDay)
	return Counts{SameDay: len(sameDay), DifferentDay: len(differentDay), Total: m.store.Len()}
}

// Queue returns a copy of the pending entries in order.
func (m *Manager) Queue() []Models.CorrectionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Entries()
}

// PrintRecords looks up snapshot entries by index, skipping unknown indices.
func (m *Manager) PrintRecords(indices []int) []Models.CorrectionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Models.CorrectionEntry
	for _, i := range indices {
		if i >= 0 && i < len(m.snapshot) {
			out = append(out, m.snapshot[i])
		}
	}
	return out
}

// SnapshotLen is the size of the pending print snapshot.
func (m *Manager) SnapshotLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshot)
}

// regenerateBatches removes every batch file and renders the current queue.
// Callers hold mu.
func (m *Manager) regenerateBatches() ([]string, error) {
	if _, err := Exporter.RemoveArtifacts(m.dir, Exporter.IsBatchArtifact); err != nil {
		m.log.Errorf("removing old batch files: %v", err)
		return nil, &ExportError{Stage: "batch cleanup", Err: err}
	}
	paths, err := m.batches.ExportAll(m.store.Entries())
	if err != nil {
		m.log.Errorf("batch export failed: %v", err)
		return nil, &ExportError{Stage: "batch", Err: err}
	}
	return paths, nil
}

// forget deletes the CSVs owned by entries and drops them from the map.
func (m *Manager) forget(entries []Models.CorrectionEntry) {
	for _, e := range entries {
		p, ok := m.csvFiles[e.ID]
		if !ok {
			continue
		}
		delete(m.csvFiles, e.ID)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.log.WithField("file", filepath.Base(p)).Warnf("removing csv: %v", err)
		}
	}
}

func (m *Manager) removeLocal(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.log.WithField("file", filepath.Base(p)).Warnf("removing uploaded file: %v", err)
		}
	}
}

var _ Uploader = (*Share.Uploader)(nil)
