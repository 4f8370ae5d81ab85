package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/contentops/driftgate/internal/drift"
)

var (
	ErrNilStore            = errors.New("ledger: nil store")
	ErrNoManifest          = errors.New("ledger: no manifest captured yet")
	ErrGeneratedAtConflict = errors.New("ledger: generatedAt already claimed by another manifest")
)

// PersistResult reports the ledger shape after a manifest insert.
type PersistResult struct {
	Retained int
	Evicted  int
}

// LiveOutcome is the current ledger view behind a rehearsal, recomputed at
// read time rather than replayed from the stored record.
type LiveOutcome struct {
	ManifestFound    bool `json:"manifestFound"`
	RemediationCount int  `json:"remediationCount"`
	Diff             int  `json:"diff"`
}

// Ledger is the single writer over a Store. It serializes mutations,
// maintains the generatedAt -> manifest id index, and enforces retention
// atomically with each insert.
type Ledger struct {
	mu            sync.RWMutex
	store         Store
	byGeneratedAt map[int64]string
}

// NewLedger wraps a store and rebuilds the generatedAt index from whatever
// the store already holds. Two retained manifests sharing a generatedAt is
// a corrupt ledger and refuses to load.
func NewLedger(store Store) (*Ledger, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	l := &Ledger{
		store:         store,
		byGeneratedAt: make(map[int64]string),
	}

	entries, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	for _, entry := range entries {
		key := entry.GeneratedAt.UnixNano()
		if owner, ok := l.byGeneratedAt[key]; ok && owner != entry.ManifestID {
			return nil, fmt.Errorf("%w: %q and %q both claim %s",
				ErrGeneratedAtConflict, owner, entry.ManifestID,
				entry.GeneratedAt.Format(time.RFC3339Nano))
		}
		l.byGeneratedAt[key] = entry.ManifestID
	}
	return l, nil
}

// PersistManifest appends a manifest capture and trims history to the
// retention bound in the same critical section. Re-persisting a known id
// replaces the snapshot set but keeps every record already appended under
// that id. A generatedAt held by a different id is rejected outright.
// retention <= 0 disables trimming.
func (l *Ledger) PersistManifest(m drift.Manifest, summaries []drift.RouteSummary, retention int) (PersistResult, error) {
	if err := m.Validate(); err != nil {
		return PersistResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := m.GeneratedAt.UnixNano()
	if owner, ok := l.byGeneratedAt[key]; ok && owner != m.ID {
		return PersistResult{}, fmt.Errorf("%w: %s is held by manifest %q",
			ErrGeneratedAtConflict, m.GeneratedAt.Format(time.RFC3339Nano), owner)
	}

	entry := drift.HistoryEntry{
		ManifestID:     m.ID,
		GeneratedAt:    m.GeneratedAt,
		Snapshots:      append([]drift.RouteSnapshot{}, m.Snapshots...),
		RouteSummaries: append([]drift.RouteSummary{}, summaries...),
		Remediations:   []drift.RemediationRecord{},
		Governance: drift.GovernanceSummary{
			ActionsByKind: map[string]int{},
			Actions:       []drift.GovernanceActionRecord{},
		},
		Rehearsals: []drift.RehearsalRecord{},
	}

	existing, ok, err := l.store.Get(m.ID)
	if err != nil {
		return PersistResult{}, err
	}
	if ok {
		// Appended records are keyed by manifest id and survive replacement.
		entry.Remediations = existing.Remediations
		entry.Governance = existing.Governance
		entry.Rehearsals = existing.Rehearsals
		if prev := existing.GeneratedAt.UnixNano(); prev != key {
			delete(l.byGeneratedAt, prev)
		}
	}

	if err := l.store.Put(entry); err != nil {
		return PersistResult{}, err
	}
	l.byGeneratedAt[key] = m.ID

	return l.trimLocked(retention)
}

func (l *Ledger) trimLocked(retention int) (PersistResult, error) {
	entries, err := l.store.List()
	if err != nil {
		return PersistResult{}, err
	}
	sortNewestFirst(entries)

	res := PersistResult{Retained: len(entries)}
	if retention <= 0 || len(entries) <= retention {
		return res, nil
	}

	for _, victim := range entries[retention:] {
		if err := l.store.Delete(victim.ManifestID); err != nil {
			return PersistResult{}, err
		}
		delete(l.byGeneratedAt, victim.GeneratedAt.UnixNano())
		res.Evicted++
	}
	res.Retained = retention
	return res, nil
}

// QueryHistory returns retained entries newest-first. limit > 0 caps the
// result; mode live filters each entry's remediations to live records.
func (l *Ledger) QueryHistory(limit int, mode drift.ActionMode) ([]drift.HistoryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries, err := l.store.List()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if mode == drift.ActionModeLive {
		for i := range entries {
			entries[i].Remediations = entries[i].LiveRemediations()
		}
	}
	return entries, nil
}

// AppendRemediation attaches a record to the newest manifest entry.
// An empty ledger yields ErrNoManifest.
func (l *Ledger) AppendRemediation(rec drift.RemediationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok, err := l.latestLocked()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoManifest
	}

	entry.Remediations = append(entry.Remediations, rec)
	return l.store.Put(entry)
}

// AppendGovernanceAction attaches a record to the manifest it names and
// bumps that entry's counters. An unknown manifest id drops the record
// without error; the returned bool reports whether it matched.
func (l *Ledger) AppendGovernanceAction(rec drift.GovernanceActionRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok, err := l.store.Get(rec.ManifestID)
	if err != nil || !ok {
		return false, err
	}

	entry.Governance.TotalActions++
	if entry.Governance.ActionsByKind == nil {
		entry.Governance.ActionsByKind = map[string]int{}
	}
	entry.Governance.ActionsByKind[rec.ActionKind]++
	entry.Governance.Actions = append(entry.Governance.Actions, rec)
	return true, l.store.Put(entry)
}

// AppendRehearsal anchors a record to the manifest whose generatedAt it
// names. Records matching no manifest are retained as orphans so they stay
// fetchable by id. The returned bool reports whether the record anchored.
func (l *Ledger) AppendRehearsal(rec drift.RehearsalRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rec.ManifestGeneratedAt.UnixNano()
	id, ok := l.byGeneratedAt[key]
	if !ok {
		return false, l.store.PutOrphanRehearsal(rec)
	}

	entry, found, err := l.store.Get(id)
	if err != nil {
		return false, err
	}
	if !found {
		// Index points at a vanished entry; repair and fall back to orphan.
		delete(l.byGeneratedAt, key)
		return false, l.store.PutOrphanRehearsal(rec)
	}

	entry.Rehearsals = append(entry.Rehearsals, rec)
	return true, l.store.Put(entry)
}

// LiveSummary resolves a generatedAt to its manifest's live remediations.
// An unclaimed timestamp reports manifestFound false with no remediations.
func (l *Ledger) LiveSummary(generatedAt time.Time) (drift.LiveSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.liveSummaryLocked(generatedAt)
}

func (l *Ledger) liveSummaryLocked(generatedAt time.Time) (drift.LiveSummary, error) {
	summary := drift.LiveSummary{Remediations: []drift.RemediationRecord{}}

	id, ok := l.byGeneratedAt[generatedAt.UnixNano()]
	if !ok {
		return summary, nil
	}
	entry, found, err := l.store.Get(id)
	if err != nil {
		return drift.LiveSummary{}, err
	}
	if !found {
		return summary, nil
	}

	summary.ManifestFound = true
	summary.Remediations = entry.LiveRemediations()
	return summary, nil
}

// FindRehearsal locates a rehearsal record by id, anchored or orphaned,
// and pairs it with the live ledger view behind its target timestamp.
func (l *Ledger) FindRehearsal(id string) (drift.RehearsalRecord, LiveOutcome, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, found, err := l.findRehearsalLocked(id)
	if err != nil || !found {
		return drift.RehearsalRecord{}, LiveOutcome{}, false, err
	}

	live, err := l.liveSummaryLocked(rec.ManifestGeneratedAt)
	if err != nil {
		return drift.RehearsalRecord{}, LiveOutcome{}, false, err
	}

	outcome := LiveOutcome{
		ManifestFound:    live.ManifestFound,
		RemediationCount: len(live.Remediations),
		Diff:             len(live.Remediations) - rec.ExpectedDeltas,
	}
	return rec, outcome, true, nil
}

func (l *Ledger) findRehearsalLocked(id string) (drift.RehearsalRecord, bool, error) {
	entries, err := l.store.List()
	if err != nil {
		return drift.RehearsalRecord{}, false, err
	}
	for _, entry := range entries {
		for _, rec := range entry.Rehearsals {
			if rec.ID == id {
				return rec, true, nil
			}
		}
	}

	orphans, err := l.store.OrphanRehearsals()
	if err != nil {
		return drift.RehearsalRecord{}, false, err
	}
	for _, rec := range orphans {
		if rec.ID == id {
			return rec, true, nil
		}
	}
	return drift.RehearsalRecord{}, false, nil
}

// LatestEntry returns the newest retained entry by generatedAt.
func (l *Ledger) LatestEntry() (drift.HistoryEntry, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.latestLocked()
}

// Entry returns the retained entry for a manifest id.
func (l *Ledger) Entry(manifestID string) (drift.HistoryEntry, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.store.Get(manifestID)
}

// Reset drops all retained state and clears the index.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Reset(); err != nil {
		return err
	}
	l.byGeneratedAt = make(map[int64]string)
	return nil
}

func (l *Ledger) latestLocked() (drift.HistoryEntry, bool, error) {
	entries, err := l.store.List()
	if err != nil {
		return drift.HistoryEntry{}, false, err
	}
	if len(entries) == 0 {
		return drift.HistoryEntry{}, false, nil
	}
	sortNewestFirst(entries)
	return entries[0], true, nil
}

func sortNewestFirst(entries []drift.HistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].GeneratedAt.After(entries[j].GeneratedAt)
	})
}
