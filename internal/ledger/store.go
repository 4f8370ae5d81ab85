package ledger

import (
	"github.com/contentops/driftgate/internal/drift"
)

// Store is the persistence boundary beneath the ledger. Implementations
// own durability only; ordering, retention, and index bookkeeping stay in
// the Ledger. Returned entries must be safe for the caller to mutate.
type Store interface {
	// Get loads the entry for a manifest id. The second return reports
	// whether the id was present.
	Get(manifestID string) (drift.HistoryEntry, bool, error)

	// Put inserts or replaces the entry keyed by its manifest id.
	Put(entry drift.HistoryEntry) error

	// Delete removes the entry for a manifest id. Deleting an absent id
	// is not an error.
	Delete(manifestID string) error

	// List returns every retained entry in unspecified order.
	List() ([]drift.HistoryEntry, error)

	// PutOrphanRehearsal retains a rehearsal record that matched no
	// manifest at persist time. Orphans survive until Reset.
	PutOrphanRehearsal(rec drift.RehearsalRecord) error

	// OrphanRehearsals returns every retained orphan rehearsal.
	OrphanRehearsals() ([]drift.RehearsalRecord, error)

	// Reset drops all retained state, entries and orphans both.
	Reset() error
}
