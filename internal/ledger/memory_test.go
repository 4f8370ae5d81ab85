package ledger

import (
	"testing"

	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/testutil/testlog"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	testlog.Start(t)
	s := NewMemoryStore()
	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("missing entry reported present")
	}
}

func TestMemoryStoreCopiesOnWrite(t *testing.T) {
	testlog.Start(t)
	s := NewMemoryStore()

	entry := drift.HistoryEntry{
		ManifestID:  "m-0",
		GeneratedAt: at(0),
		Snapshots:   []drift.RouteSnapshot{{Route: "/pricing"}},
	}
	if err := s.Put(entry); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Mutating the caller's slice after Put must not reach the store.
	entry.Snapshots[0].Route = "/mutated"

	got, ok, err := s.Get("m-0")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.Snapshots[0].Route != "/pricing" {
		t.Fatalf("store aliased caller memory: %+v", got.Snapshots)
	}
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	testlog.Start(t)
	s := NewMemoryStore()

	if err := s.Put(drift.HistoryEntry{
		ManifestID:   "m-0",
		GeneratedAt:  at(0),
		Remediations: []drift.RemediationRecord{{ID: "r-1", Route: "/pricing"}},
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	first, _, _ := s.Get("m-0")
	first.Remediations[0].Route = "/mutated"

	second, _, _ := s.Get("m-0")
	if second.Remediations[0].Route != "/pricing" {
		t.Fatalf("reader mutation reached the store: %+v", second.Remediations)
	}
}

func TestMemoryStoreDeleteAbsent(t *testing.T) {
	testlog.Start(t)
	s := NewMemoryStore()
	if err := s.Delete("nope"); err != nil {
		t.Fatalf("delete of absent id errored: %v", err)
	}
}

func TestMemoryStoreOrphanRoundTrip(t *testing.T) {
	testlog.Start(t)
	s := NewMemoryStore()

	if err := s.PutOrphanRehearsal(rehearsalFor("sim-1", at(0), 1)); err != nil {
		t.Fatalf("put orphan failed: %v", err)
	}
	orphans, err := s.OrphanRehearsals()
	if err != nil {
		t.Fatalf("list orphans failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != "sim-1" {
		t.Fatalf("unexpected orphans: %+v", orphans)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	orphans, err = s.OrphanRehearsals()
	if err != nil || len(orphans) != 0 {
		t.Fatalf("orphans survived reset: %+v err=%v", orphans, err)
	}
}
