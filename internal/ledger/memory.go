package ledger

import (
	"sync"

	"github.com/contentops/driftgate/internal/drift"
)

// MemoryStore keeps history in process memory. Entries are deep-copied on
// both writes and reads so callers never share slices or maps with the
// retained state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]drift.HistoryEntry
	orphans []drift.RehearsalRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]drift.HistoryEntry),
	}
}

func (s *MemoryStore) Get(manifestID string) (drift.HistoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[manifestID]
	if !ok {
		return drift.HistoryEntry{}, false, nil
	}
	return entry.Clone(), true, nil
}

func (s *MemoryStore) Put(entry drift.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ManifestID] = entry.Clone()
	return nil
}

func (s *MemoryStore) Delete(manifestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, manifestID)
	return nil
}

func (s *MemoryStore) List() ([]drift.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]drift.HistoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Clone())
	}
	return out, nil
}

func (s *MemoryStore) PutOrphanRehearsal(rec drift.RehearsalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orphans = append(s.orphans, rec)
	return nil
}

func (s *MemoryStore) OrphanRehearsals() ([]drift.RehearsalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return drift.CopyRehearsals(s.orphans), nil
}

func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]drift.HistoryEntry)
	s.orphans = nil
	return nil
}
