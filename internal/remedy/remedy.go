// Package remedy records remediation actions against the active manifest
// and keeps the running usage counters.
package remedy

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/events"
	"github.com/contentops/driftgate/internal/ledger"
	"github.com/contentops/driftgate/internal/observability"
)

var (
	ErrNilLedger          = errors.New("remedy: nil ledger")
	ErrInvalidRemediation = errors.New("remedy: invalid remediation")
)

// Input is one remediation request as the operator phrased it, before
// validation or defaulting.
type Input struct {
	Route       string
	Action      string
	Fingerprint string
	Mode        string
}

// Counters are running totals since recorder construction. Rejected moves
// on validation failures and on appends against an empty ledger.
type Counters struct {
	Reset      int64 `json:"reset"`
	Prioritize int64 `json:"prioritize"`
	Rejected   int64 `json:"rejected"`
}

// Recorder validates remediation requests, appends accepted records to the
// ledger, and mirrors outcomes to counters, metrics, and audit events.
type Recorder struct {
	ledger  *ledger.Ledger
	emitter events.Emitter

	mu       sync.Mutex
	counters Counters

	// Injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// NewRecorder wires a recorder over the ledger. A nil emitter disables
// audit events.
func NewRecorder(led *ledger.Ledger, emitter events.Emitter) (*Recorder, error) {
	if led == nil {
		return nil, ErrNilLedger
	}
	if emitter == nil {
		emitter = events.NewNopEmitter()
	}
	return &Recorder{
		ledger:  led,
		emitter: emitter,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}, nil
}

// Record validates and appends one remediation. Validation failures and
// appends against an empty ledger bump the rejected counter and write
// nothing; storage failures surface as-is with counters untouched. The
// returned counters are the totals after this call.
func (r *Recorder) Record(in Input) (drift.RemediationRecord, Counters, error) {
	rec, err := r.build(in)
	if err != nil {
		observability.RecordRemediationAction(strings.TrimSpace(in.Action), "rejected")
		return drift.RemediationRecord{}, r.reject(), err
	}

	if err := r.ledger.AppendRemediation(rec); err != nil {
		if errors.Is(err, ledger.ErrNoManifest) {
			observability.RecordRemediationAction(string(rec.Action), "rejected")
			return drift.RemediationRecord{}, r.reject(), err
		}
		return drift.RemediationRecord{}, r.snapshot(), err
	}

	counters := r.accept(rec.Action)
	observability.RecordRemediationAction(string(rec.Action), "recorded")
	r.emitter.Emit(events.NewRemediationEvent(rec))
	return rec, counters, nil
}

// Counters returns the current totals.
func (r *Recorder) Counters() Counters {
	return r.snapshot()
}

func (r *Recorder) build(in Input) (drift.RemediationRecord, error) {
	action, err := drift.ParseRemedyAction(in.Action)
	if err != nil {
		return drift.RemediationRecord{}, fmt.Errorf("%w: %v", ErrInvalidRemediation, err)
	}
	if action == drift.ActionPrioritize && strings.TrimSpace(in.Fingerprint) == "" {
		return drift.RemediationRecord{}, fmt.Errorf("%w: prioritize requires a fingerprint", ErrInvalidRemediation)
	}
	mode, err := drift.ParseRecordMode(in.Mode)
	if err != nil {
		return drift.RemediationRecord{}, fmt.Errorf("%w: %v", ErrInvalidRemediation, err)
	}

	return drift.RemediationRecord{
		ID:          r.NewID(),
		Route:       in.Route,
		Action:      action,
		Fingerprint: strings.TrimSpace(in.Fingerprint),
		Mode:        mode,
		RecordedAt:  r.Now().UTC(),
	}, nil
}

func (r *Recorder) accept(action drift.RemedyAction) Counters {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch action {
	case drift.ActionReset:
		r.counters.Reset++
	case drift.ActionPrioritize:
		r.counters.Prioritize++
	}
	return r.counters
}

func (r *Recorder) reject() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters.Rejected++
	return r.counters
}

func (r *Recorder) snapshot() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counters
}
