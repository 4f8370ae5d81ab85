package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/testutil/testlog"
)

var base = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func manifestAt(id string, ts time.Time) drift.Manifest {
	return drift.Manifest{
		ID:          id,
		GeneratedAt: ts,
		Snapshots: []drift.RouteSnapshot{
			{Route: "/pricing", DraftHash: "d1", PublishedHash: "p1"},
		},
	}
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(NewMemoryStore())
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	return l
}

func mustPersist(t *testing.T, l *Ledger, id string, ts time.Time, retention int) PersistResult {
	t.Helper()
	res, err := l.PersistManifest(manifestAt(id, ts), nil, retention)
	if err != nil {
		t.Fatalf("persist %s failed: %v", id, err)
	}
	return res
}

func liveReset(id, route string) drift.RemediationRecord {
	return drift.RemediationRecord{
		ID:         id,
		Route:      route,
		Action:     drift.ActionReset,
		Mode:       drift.ModeLive,
		RecordedAt: at(0),
	}
}

func rehearsalFor(id string, ts time.Time, expected int) drift.RehearsalRecord {
	return drift.RehearsalRecord{
		ID:                  id,
		ManifestGeneratedAt: ts,
		ExpectedDeltas:      expected,
		Verdict:             drift.VerdictPassed,
		EvaluatedAt:         ts,
		RecordedAt:          ts,
		FailureReasons:      []drift.FailureReason{},
	}
}

func TestNewLedgerNilStore(t *testing.T) {
	testlog.Start(t)
	if _, err := NewLedger(nil); !errors.Is(err, ErrNilStore) {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestPersistManifestRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)
	_, err := l.PersistManifest(drift.Manifest{GeneratedAt: at(0)}, nil, 5)
	if !errors.Is(err, drift.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestPersistManifestEvictsBeyondRetention(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		res := mustPersist(t, l, manifestID(i), at(i), 3)
		if res.Evicted != 0 {
			t.Fatalf("unexpected eviction on insert %d: %+v", i, res)
		}
	}

	res := mustPersist(t, l, "m-3", at(3), 3)
	if res.Retained != 3 || res.Evicted != 1 {
		t.Fatalf("unexpected persist result: %+v", res)
	}

	if _, ok, _ := l.Entry("m-0"); ok {
		t.Fatalf("oldest entry survived eviction")
	}
	if _, ok, _ := l.Entry("m-3"); !ok {
		t.Fatalf("newest entry missing after eviction")
	}
}

func TestPersistManifestEvictedTimestampReusable(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 1)
	mustPersist(t, l, "m-1", at(1), 1)

	// m-0 was evicted, so its generatedAt is free again.
	mustPersist(t, l, "m-2", at(0), 0)
}

func TestPersistManifestRejectsClaimedGeneratedAt(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 5)
	_, err := l.PersistManifest(manifestAt("m-1", at(0)), nil, 5)
	if !errors.Is(err, ErrGeneratedAtConflict) {
		t.Fatalf("expected ErrGeneratedAtConflict, got %v", err)
	}

	// The holder itself may re-persist at its own timestamp.
	mustPersist(t, l, "m-0", at(0), 5)
}

func TestPersistManifestReplaceKeepsRecords(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 5)
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); err != nil {
		t.Fatalf("append remediation failed: %v", err)
	}
	if matched, err := l.AppendGovernanceAction(drift.GovernanceActionRecord{
		ID: "g-1", ManifestID: "m-0", ActionKind: "approve", CreatedAt: at(0),
	}); err != nil || !matched {
		t.Fatalf("append governance failed: matched=%v err=%v", matched, err)
	}

	// Replacing the manifest under the same id moves its generatedAt but
	// keeps the records already appended.
	mustPersist(t, l, "m-0", at(10), 5)

	entry, ok, err := l.Entry("m-0")
	if err != nil || !ok {
		t.Fatalf("entry lookup failed: ok=%v err=%v", ok, err)
	}
	if !entry.GeneratedAt.Equal(at(10)) {
		t.Fatalf("generatedAt not replaced: %v", entry.GeneratedAt)
	}
	if len(entry.Remediations) != 1 || entry.Governance.TotalActions != 1 {
		t.Fatalf("records lost on replace: %+v", entry)
	}

	// The old timestamp is released for other manifests.
	mustPersist(t, l, "m-9", at(0), 5)
}

func TestQueryHistoryNewestFirstWithLimit(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	for i := 0; i < 4; i++ {
		mustPersist(t, l, manifestID(i), at(i), 0)
	}

	entries, err := l.QueryHistory(2, drift.ActionModeAll)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit ignored: got %d entries", len(entries))
	}
	if entries[0].ManifestID != "m-3" || entries[1].ManifestID != "m-2" {
		t.Fatalf("unexpected ordering: %s, %s", entries[0].ManifestID, entries[1].ManifestID)
	}
}

func TestQueryHistoryLiveModeFiltersSimulated(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	sim := liveReset("r-2", "/docs")
	sim.Mode = drift.ModeSimulated
	if err := l.AppendRemediation(sim); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries, err := l.QueryHistory(0, drift.ActionModeLive)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Remediations) != 1 {
		t.Fatalf("live filter failed: %+v", entries)
	}
	if entries[0].Remediations[0].ID != "r-1" {
		t.Fatalf("wrong record survived filter: %+v", entries[0].Remediations)
	}

	// Mode all still sees both.
	entries, err = l.QueryHistory(0, drift.ActionModeAll)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries[0].Remediations) != 2 {
		t.Fatalf("mode all lost records: %+v", entries[0].Remediations)
	}
}

func TestAppendRemediationRequiresManifest(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest, got %v", err)
	}
}

func TestAppendRemediationTargetsNewest(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	mustPersist(t, l, "m-1", at(1), 0)
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	newest, ok, _ := l.Entry("m-1")
	if !ok || len(newest.Remediations) != 1 {
		t.Fatalf("record missing from newest entry: %+v", newest)
	}
	older, _, _ := l.Entry("m-0")
	if len(older.Remediations) != 0 {
		t.Fatalf("record leaked into older entry: %+v", older)
	}
}

func TestAppendGovernanceActionUnknownIDDropped(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	matched, err := l.AppendGovernanceAction(drift.GovernanceActionRecord{
		ID: "g-1", ManifestID: "nope", ActionKind: "approve", CreatedAt: at(0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("unknown manifest id matched")
	}

	entry, _, _ := l.Entry("m-0")
	if entry.Governance.TotalActions != 0 {
		t.Fatalf("counters moved for unmatched action: %+v", entry.Governance)
	}
}

func TestAppendGovernanceActionCounters(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	for i, kind := range []string{"approve", "approve", "escalate"} {
		matched, err := l.AppendGovernanceAction(drift.GovernanceActionRecord{
			ID: manifestID(i), ManifestID: "m-0", ActionKind: kind, CreatedAt: at(i),
		})
		if err != nil || !matched {
			t.Fatalf("append %d failed: matched=%v err=%v", i, matched, err)
		}
	}

	entry, _, _ := l.Entry("m-0")
	if entry.Governance.TotalActions != 3 {
		t.Fatalf("unexpected total: %d", entry.Governance.TotalActions)
	}
	if entry.Governance.ActionsByKind["approve"] != 2 || entry.Governance.ActionsByKind["escalate"] != 1 {
		t.Fatalf("unexpected kind counters: %+v", entry.Governance.ActionsByKind)
	}
	if len(entry.Governance.Actions) != 3 {
		t.Fatalf("records not retained: %d", len(entry.Governance.Actions))
	}
}

func TestAppendRehearsalAnchorsByGeneratedAt(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	mustPersist(t, l, "m-1", at(1), 0)

	anchored, err := l.AppendRehearsal(rehearsalFor("sim-1", at(0), 0))
	if err != nil || !anchored {
		t.Fatalf("append failed: anchored=%v err=%v", anchored, err)
	}

	target, _, _ := l.Entry("m-0")
	if len(target.Rehearsals) != 1 || target.Rehearsals[0].ID != "sim-1" {
		t.Fatalf("rehearsal not anchored to m-0: %+v", target.Rehearsals)
	}
	other, _, _ := l.Entry("m-1")
	if len(other.Rehearsals) != 0 {
		t.Fatalf("rehearsal leaked into m-1: %+v", other.Rehearsals)
	}
}

func TestAppendRehearsalOrphanFetchableByID(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	anchored, err := l.AppendRehearsal(rehearsalFor("sim-1", at(0), 2))
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if anchored {
		t.Fatalf("rehearsal anchored against empty ledger")
	}

	rec, outcome, found, err := l.FindRehearsal("sim-1")
	if err != nil || !found {
		t.Fatalf("orphan lookup failed: found=%v err=%v", found, err)
	}
	if rec.ID != "sim-1" {
		t.Fatalf("wrong record: %+v", rec)
	}
	if outcome.ManifestFound || outcome.RemediationCount != 0 || outcome.Diff != -2 {
		t.Fatalf("unexpected live outcome: %+v", outcome)
	}
}

func TestFindRehearsalRecomputesLiveOutcome(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	if _, err := l.AppendRehearsal(rehearsalFor("sim-1", at(0), 1)); err != nil {
		t.Fatalf("append rehearsal failed: %v", err)
	}

	// Live state moves after the rehearsal was recorded.
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); err != nil {
		t.Fatalf("append remediation failed: %v", err)
	}
	if err := l.AppendRemediation(liveReset("r-2", "/docs")); err != nil {
		t.Fatalf("append remediation failed: %v", err)
	}

	_, outcome, found, err := l.FindRehearsal("sim-1")
	if err != nil || !found {
		t.Fatalf("lookup failed: found=%v err=%v", found, err)
	}
	if !outcome.ManifestFound {
		t.Fatalf("manifest not found in live outcome")
	}
	if outcome.RemediationCount != 2 || outcome.Diff != 1 {
		t.Fatalf("outcome not recomputed: %+v", outcome)
	}
}

func TestFindRehearsalUnknownID(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)
	_, _, found, err := l.FindRehearsal("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("found a record that was never stored")
	}
}

func TestLiveSummaryUnknownTimestamp(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	summary, err := l.LiveSummary(at(7))
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.ManifestFound || len(summary.Remediations) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestLiveSummaryExcludesSimulated(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	if err := l.AppendRemediation(liveReset("r-1", "/pricing")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	sim := liveReset("r-2", "/docs")
	sim.Mode = drift.ModeSimulated
	if err := l.AppendRemediation(sim); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	summary, err := l.LiveSummary(at(0))
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.ManifestFound || len(summary.Remediations) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestNewLedgerRebuildsIndex(t *testing.T) {
	testlog.Start(t)
	store := NewMemoryStore()

	first, err := NewLedger(store)
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	mustPersist(t, first, "m-0", at(0), 0)

	// A fresh ledger over the same store recovers the index.
	second, err := NewLedger(store)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	anchored, err := second.AppendRehearsal(rehearsalFor("sim-1", at(0), 0))
	if err != nil || !anchored {
		t.Fatalf("rehearsal did not anchor after rebuild: anchored=%v err=%v", anchored, err)
	}
}

func TestNewLedgerRejectsDuplicateGeneratedAt(t *testing.T) {
	testlog.Start(t)
	store := NewMemoryStore()

	for _, id := range []string{"m-0", "m-1"} {
		entry := drift.HistoryEntry{ManifestID: id, GeneratedAt: at(0)}
		if err := store.Put(entry); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	if _, err := NewLedger(store); !errors.Is(err, ErrGeneratedAtConflict) {
		t.Fatalf("expected ErrGeneratedAtConflict, got %v", err)
	}
}

func TestResetClearsEverything(t *testing.T) {
	testlog.Start(t)
	l := newTestLedger(t)

	mustPersist(t, l, "m-0", at(0), 0)
	if _, err := l.AppendRehearsal(rehearsalFor("sim-1", at(99), 0)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := l.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	entries, err := l.QueryHistory(0, drift.ActionModeAll)
	if err != nil || len(entries) != 0 {
		t.Fatalf("history survived reset: %d entries, err=%v", len(entries), err)
	}
	if _, _, found, _ := l.FindRehearsal("sim-1"); found {
		t.Fatalf("orphan survived reset")
	}

	// Timestamps are free again after reset.
	mustPersist(t, l, "m-1", at(0), 0)
}

func manifestID(i int) string {
	return fmt.Sprintf("m-%d", i)
}
