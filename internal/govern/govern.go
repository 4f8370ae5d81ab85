// Package govern records operator governance actions with anonymized
// actor identity.
package govern

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/driftgate/internal/actor"
	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/events"
	"github.com/contentops/driftgate/internal/ledger"
)

var (
	ErrNilLedger     = errors.New("govern: nil ledger")
	ErrNilHasher     = errors.New("govern: nil hasher")
	ErrInvalidAction = errors.New("govern: invalid governance action")
)

// Input is one governance request before validation. ID and OccurredAt
// are optional; absent values are filled at record time.
type Input struct {
	ManifestID string
	ActionKind string
	ActorID    string
	Metadata   map[string]string
	OccurredAt time.Time
	ID         string
}

// Recorder builds governance records and appends them through the ledger.
type Recorder struct {
	ledger  *ledger.Ledger
	hasher  actor.Hasher
	emitter events.Emitter

	// Injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

func NewRecorder(led *ledger.Ledger, hasher actor.Hasher, emitter events.Emitter) (*Recorder, error) {
	if led == nil {
		return nil, ErrNilLedger
	}
	if hasher == nil {
		return nil, ErrNilHasher
	}
	if emitter == nil {
		emitter = events.NewNopEmitter()
	}
	return &Recorder{
		ledger:  led,
		hasher:  hasher,
		emitter: emitter,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}, nil
}

// Record validates and appends one governance action. The raw actor id is
// hashed before the record exists; it is never stored or returned. An
// action naming an unknown manifest is still built and returned, but the
// ledger drops it silently; the bool reports whether it matched.
func (r *Recorder) Record(in Input) (drift.GovernanceActionRecord, bool, error) {
	manifestID := strings.TrimSpace(in.ManifestID)
	if manifestID == "" {
		return drift.GovernanceActionRecord{}, false, fmt.Errorf("%w: missing manifestId", ErrInvalidAction)
	}
	actionKind := strings.TrimSpace(in.ActionKind)
	if actionKind == "" {
		return drift.GovernanceActionRecord{}, false, fmt.Errorf("%w: missing actionKind", ErrInvalidAction)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = r.NewID()
	}
	createdAt := in.OccurredAt
	if createdAt.IsZero() {
		createdAt = r.Now()
	}

	rec := drift.GovernanceActionRecord{
		ID:         id,
		ManifestID: manifestID,
		ActorHash:  actor.HashOptional(r.hasher, in.ActorID),
		ActionKind: actionKind,
		Metadata:   drift.CopyMetadata(in.Metadata),
		CreatedAt:  createdAt.UTC(),
	}

	matched, err := r.ledger.AppendGovernanceAction(rec)
	if err != nil {
		return drift.GovernanceActionRecord{}, false, err
	}

	r.emitter.Emit(events.NewGovernanceEvent(rec, matched))
	return rec, matched, nil
}
