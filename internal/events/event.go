// Package events publishes audit events for console mutations. Emitters
// are fire-and-forget: a failed publish is logged, never surfaced to the
// request path.
package events

import (
	"time"

	"github.com/contentops/driftgate/internal/drift"
)

const (
	KindRemediation = "remediation"
	KindGovernance  = "governance"
	KindRehearsal   = "rehearsal"
)

// AuditEvent is the wire shape shared by all emitters.
type AuditEvent struct {
	Timestamp  string `json:"timestamp"` // RFC3339
	Kind       string `json:"kind"`
	RecordID   string `json:"recordId"`
	ManifestID string `json:"manifestId,omitempty"`
	Route      string `json:"route,omitempty"`
	Action     string `json:"action,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Verdict    string `json:"verdict,omitempty"`
	Anchored   bool   `json:"anchored"`
}

// NewRemediationEvent freezes a recorded remediation into an audit event.
func NewRemediationEvent(rec drift.RemediationRecord) AuditEvent {
	return AuditEvent{
		Timestamp: rec.RecordedAt.UTC().Format(time.RFC3339),
		Kind:      KindRemediation,
		RecordID:  rec.ID,
		Route:     rec.Route,
		Action:    string(rec.Action),
		Mode:      string(rec.Mode),
		Anchored:  true,
	}
}

// NewGovernanceEvent freezes a recorded governance action. matched reports
// whether the named manifest was retained when the action arrived.
func NewGovernanceEvent(rec drift.GovernanceActionRecord, matched bool) AuditEvent {
	return AuditEvent{
		Timestamp:  rec.CreatedAt.UTC().Format(time.RFC3339),
		Kind:       KindGovernance,
		RecordID:   rec.ID,
		ManifestID: rec.ManifestID,
		Action:     rec.ActionKind,
		Anchored:   matched,
	}
}

// NewRehearsalEvent freezes a recorded rehearsal. anchored reports whether
// the record attached to a retained manifest or landed in the orphan set.
func NewRehearsalEvent(rec drift.RehearsalRecord, anchored bool) AuditEvent {
	return AuditEvent{
		Timestamp: rec.RecordedAt.UTC().Format(time.RFC3339),
		Kind:      KindRehearsal,
		RecordID:  rec.ID,
		Verdict:   string(rec.Verdict),
		Anchored:  anchored,
	}
}
