package ModQueue

import (
	"time"

	"github.com/google/uuid"

	"ProductionReport/Models"
)

// Store is the ordered list of pending corrections. It does no locking;
// Manager serialises access.
type Store struct {
	entries []Models.CorrectionEntry
}

// Append admits entry if it carries a modification or a delete request,
// stamping its id and saved time.
func (s *Store) Append(entry Models.CorrectionEntry, now time.Time) (Models.CorrectionEntry, error) {
	if !entry.HasModification() {
		return Models.CorrectionEntry{}, invalid(ErrNoModification)
	}
	entry.ID = uuid.NewString()
	entry.SavedTime = now.Truncate(time.Second)
	s.entries = append(s.entries, entry)
	return entry, nil
}

// RemoveAt drops the entry at index; everything after it moves down by one.
func (s *Store) RemoveAt(index int) (Models.CorrectionEntry, error) {
	if index < 0 || index >= len(s.entries) {
		return Models.CorrectionEntry{}, invalid(ErrIndexOutOfRange)
	}
	removed := s.entries[index]
	s.entries = append(s.entries[:index:index], s.entries[index+1:]...)
	return removed, nil
}

// Partition splits the queue by pred without changing it.
func (s *Store) Partition(pred func(Models.CorrectionEntry) bool) (matching, rest []Models.CorrectionEntry) {
	for _, e := range s.entries {
		if pred(e) {
			matching = append(matching, e)
		} else {
			rest = append(rest, e)
		}
	}
	return matching, rest
}

func (s *Store) ReplaceAll(entries []Models.CorrectionEntry) {
	s.entries = append([]Models.CorrectionEntry(nil), entries...)
}

// Clear empties the queue and returns how many entries it held.
func (s *Store) Clear() int {
	n := len(s.entries)
	s.entries = nil
	return n
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the queue.
func (s *Store) Entries() []Models.CorrectionEntry {
	return append([]Models.CorrectionEntry(nil), s.entries...)
}
