package console

import (
	"time"

	"github.com/contentops/driftgate/internal/drift"
)

// operatorMask replaces operator hashes in rehearsal responses. The raw
// operator id never leaves the process; the stored digest never leaves
// the ledger.
const operatorMask = "hashed"

type governanceRequest struct {
	ManifestID string            `json:"manifestId"`
	ActionKind string            `json:"actionKind"`
	ActorID    string            `json:"actorId"`
	Metadata   map[string]string `json:"metadata"`
	OccurredAt *time.Time        `json:"occurredAt"`
	ID         string            `json:"id"`
}

type simulateRequest struct {
	ManifestGeneratedAt *time.Time `json:"manifestGeneratedAt"`
	ScenarioFingerprint string     `json:"scenarioFingerprint"`
	ExpectedDeltas      *int       `json:"expectedDeltas"`
	OperatorID          string     `json:"operatorId"`
}

// remediateRequest accepts the legacy summary/collection/docId context
// fields for compatibility; they are not retained on the record.
type remediateRequest struct {
	Route       string `json:"route"`
	Action      string `json:"action"`
	Fingerprint string `json:"fingerprint"`
	Mode        string `json:"mode"`
	Summary     string `json:"summary"`
	Collection  string `json:"collection"`
	DocID       string `json:"docId"`
}

type persistManifestRequest struct {
	Manifest       manifestPayload      `json:"manifest"`
	RouteSummaries []drift.RouteSummary `json:"routeSummaries"`
}

type manifestPayload struct {
	ID          string                `json:"id"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Snapshots   []drift.RouteSnapshot `json:"snapshots"`
}

// rehearsalView shadows OperatorHash so serialized records carry only a
// marker that an operator was present, never the digest itself.
type rehearsalView struct {
	drift.RehearsalRecord
	OperatorHash *string `json:"operatorHash"`
}

func maskRehearsal(rec drift.RehearsalRecord) rehearsalView {
	view := rehearsalView{RehearsalRecord: rec}
	if rec.OperatorHash != nil {
		masked := operatorMask
		view.OperatorHash = &masked
	}
	return view
}

func maskRehearsals(recs []drift.RehearsalRecord) []rehearsalView {
	out := make([]rehearsalView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, maskRehearsal(rec))
	}
	return out
}

type historyEntryView struct {
	ManifestID     string                    `json:"manifestId"`
	GeneratedAt    time.Time                 `json:"generatedAt"`
	Snapshots      []drift.RouteSnapshot     `json:"snapshots"`
	RouteSummaries []drift.RouteSummary      `json:"routeSummaries"`
	Remediations   []drift.RemediationRecord `json:"remediations"`
	Governance     drift.GovernanceSummary   `json:"governance"`
	Rehearsals     []rehearsalView           `json:"rehearsals"`
}

func viewHistory(entries []drift.HistoryEntry) []historyEntryView {
	out := make([]historyEntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, historyEntryView{
			ManifestID:     entry.ManifestID,
			GeneratedAt:    entry.GeneratedAt,
			Snapshots:      entry.Snapshots,
			RouteSummaries: entry.RouteSummaries,
			Remediations:   entry.Remediations,
			Governance:     entry.Governance,
			Rehearsals:     maskRehearsals(entry.Rehearsals),
		})
	}
	return out
}

// evaluationView is the evaluation half of a simulate response.
type evaluationView struct {
	Verdict        drift.Verdict         `json:"verdict"`
	Diff           int                   `json:"diff"`
	ActualDeltas   int                   `json:"actualDeltas"`
	FailureReasons []drift.FailureReason `json:"failureReasons"`
	Comparison     drift.Comparison      `json:"comparison"`
}
