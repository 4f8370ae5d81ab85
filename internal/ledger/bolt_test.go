package ledger

import (
	"path/filepath"
	"testing"

	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/testutil/testlog"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open bolt store failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStoreRoundTrip(t *testing.T) {
	testlog.Start(t)
	s := newTestBoltStore(t)

	entry := drift.HistoryEntry{
		ManifestID:  "m-0",
		GeneratedAt: at(0),
		Snapshots: []drift.RouteSnapshot{
			{Route: "/pricing", DraftHash: "d1", PublishedHash: "p1"},
		},
		Remediations: []drift.RemediationRecord{
			{ID: "r-1", Route: "/pricing", Action: drift.ActionReset, Mode: drift.ModeLive, RecordedAt: at(1)},
		},
		Governance: drift.GovernanceSummary{
			TotalActions:  1,
			ActionsByKind: map[string]int{"approve": 1},
		},
	}
	if err := s.Put(entry); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := s.Get("m-0")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if !got.GeneratedAt.Equal(entry.GeneratedAt) {
		t.Fatalf("generatedAt mangled: %v", got.GeneratedAt)
	}
	if len(got.Remediations) != 1 || got.Remediations[0].Action != drift.ActionReset {
		t.Fatalf("remediations mangled: %+v", got.Remediations)
	}
	if got.Governance.ActionsByKind["approve"] != 1 {
		t.Fatalf("governance counters mangled: %+v", got.Governance)
	}

	entries, err := s.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("list failed: %d entries, err=%v", len(entries), err)
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Put(drift.HistoryEntry{ManifestID: "m-0", GeneratedAt: at(0)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Get("m-0")
	if err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
	// The index is rebuilt from UnixNano keys, so precision must hold.
	if got.GeneratedAt.UnixNano() != at(0).UnixNano() {
		t.Fatalf("timestamp precision lost: %v", got.GeneratedAt)
	}
}

func TestBoltStoreDeleteAndReset(t *testing.T) {
	testlog.Start(t)
	s := newTestBoltStore(t)

	if err := s.Put(drift.HistoryEntry{ManifestID: "m-0", GeneratedAt: at(0)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Delete("m-0"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get("m-0"); ok {
		t.Fatalf("entry survived delete")
	}

	if err := s.PutOrphanRehearsal(rehearsalFor("sim-1", at(0), 0)); err != nil {
		t.Fatalf("put orphan failed: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	orphans, err := s.OrphanRehearsals()
	if err != nil || len(orphans) != 0 {
		t.Fatalf("orphans survived reset: %+v err=%v", orphans, err)
	}

	// Buckets remain usable after reset.
	if err := s.Put(drift.HistoryEntry{ManifestID: "m-1", GeneratedAt: at(1)}); err != nil {
		t.Fatalf("put after reset failed: %v", err)
	}
}

func TestLedgerOverBoltStore(t *testing.T) {
	testlog.Start(t)
	s := newTestBoltStore(t)

	l, err := NewLedger(s)
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	mustPersist(t, l, "m-0", at(0), 2)
	mustPersist(t, l, "m-1", at(1), 2)
	res := mustPersist(t, l, "m-2", at(2), 2)
	if res.Retained != 2 || res.Evicted != 1 {
		t.Fatalf("unexpected persist result: %+v", res)
	}

	anchored, err := l.AppendRehearsal(rehearsalFor("sim-1", at(2), 0))
	if err != nil || !anchored {
		t.Fatalf("rehearsal did not anchor: anchored=%v err=%v", anchored, err)
	}
}
