package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/contentops/driftgate/internal/drift"
)

const (
	historyBucket = "history"
	orphanBucket  = "rehearsal_orphans"
)

// BoltStore persists history entries to a bbolt database file. Values are
// JSON-encoded so the file stays inspectable with standard tooling.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path and ensures both
// buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(orphanBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(manifestID string) (drift.HistoryEntry, bool, error) {
	var entry drift.HistoryEntry
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(historyBucket)).Get([]byte(manifestID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("failed to decode entry %q: %w", manifestID, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return drift.HistoryEntry{}, false, err
	}
	return entry, found, nil
}

func (s *BoltStore) Put(entry drift.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry %q: %w", entry.ManifestID, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).Put([]byte(entry.ManifestID), data)
	})
}

func (s *BoltStore) Delete(manifestID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).Delete([]byte(manifestID))
	})
}

func (s *BoltStore) List() ([]drift.HistoryEntry, error) {
	var entries []drift.HistoryEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).ForEach(func(k, v []byte) error {
			var entry drift.HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to decode entry %q: %w", string(k), err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BoltStore) PutOrphanRehearsal(rec drift.RehearsalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode rehearsal %q: %w", rec.ID, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(orphanBucket)).Put([]byte(rec.ID), data)
	})
}

func (s *BoltStore) OrphanRehearsals() ([]drift.RehearsalRecord, error) {
	var orphans []drift.RehearsalRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(orphanBucket)).ForEach(func(k, v []byte) error {
			var rec drift.RehearsalRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode rehearsal %q: %w", string(k), err)
			}
			orphans = append(orphans, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

func (s *BoltStore) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{historyBucket, orphanBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}
