package drift

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidManifest  = errors.New("drift: invalid manifest")
	ErrUnknownAction    = errors.New("drift: unknown remediation action")
	ErrUnknownMode      = errors.New("drift: unknown record mode")
	ErrUnknownQueryMode = errors.New("drift: unknown history query mode")
)

// RouteStatus is the renderer's per-route verdict carried on a manifest capture.
type RouteStatus string

const (
	RouteMatch   RouteStatus = "match"
	RouteDrift   RouteStatus = "drift"
	RouteMissing RouteStatus = "missing"
)

// RouteSnapshot is one route's draft/published capture inside a manifest.
type RouteSnapshot struct {
	Route         string `json:"route"`
	DraftHash     string `json:"draftHash"`
	PublishedHash string `json:"publishedHash"`
}

// Manifest is an immutable, timestamped capture of content state across routes.
// GeneratedAt is the freshness ordering key for the whole subsystem.
type Manifest struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Snapshots   []RouteSnapshot `json:"snapshots"`
}

// Validate enforces the fields required before a manifest may enter the ledger.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidManifest)
	}
	if m.GeneratedAt.IsZero() {
		return fmt.Errorf("%w: missing generatedAt", ErrInvalidManifest)
	}
	return nil
}

// RouteSummary is the renderer's route-level drift verdict retained for the console.
type RouteSummary struct {
	Route  string      `json:"route"`
	Status RouteStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// RemedyAction is one supported remediation kind.
type RemedyAction string

const (
	ActionReset      RemedyAction = "reset"
	ActionPrioritize RemedyAction = "prioritize"
)

// ParseRemedyAction maps request text to a supported remediation action.
func ParseRemedyAction(raw string) (RemedyAction, error) {
	switch RemedyAction(strings.TrimSpace(raw)) {
	case ActionReset:
		return ActionReset, nil
	case ActionPrioritize:
		return ActionPrioritize, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}

// RecordMode marks whether a remediation record executed for real or was a
// dry-write artifact of an operator simulation.
type RecordMode string

const (
	ModeLive      RecordMode = "live"
	ModeSimulated RecordMode = "simulated"
)

// ParseRecordMode maps request text to a record mode; empty defaults to live.
func ParseRecordMode(raw string) (RecordMode, error) {
	switch RecordMode(strings.TrimSpace(raw)) {
	case "":
		return ModeLive, nil
	case ModeLive:
		return ModeLive, nil
	case ModeSimulated:
		return ModeSimulated, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// ActionMode selects which remediation records a history query returns.
type ActionMode string

const (
	// ActionModeAll returns remediation records verbatim.
	ActionModeAll ActionMode = "all"
	// ActionModeLive filters remediation records to those that executed for real.
	ActionModeLive ActionMode = "live"
)

// ParseActionMode maps query text to a history mode; empty defaults to all.
func ParseActionMode(raw string) (ActionMode, error) {
	switch ActionMode(strings.TrimSpace(raw)) {
	case "":
		return ActionModeAll, nil
	case ActionModeAll:
		return ActionModeAll, nil
	case ActionModeLive:
		return ActionModeLive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownQueryMode, raw)
	}
}

// RemediationRecord is one applied (or simulated) remediation action, tied to
// the manifest active when it was recorded.
type RemediationRecord struct {
	ID          string       `json:"id"`
	Route       string       `json:"route"`
	Action      RemedyAction `json:"action"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Mode        RecordMode   `json:"mode"`
	RecordedAt  time.Time    `json:"recordedAt"`
}

// GovernanceActionRecord is one audited operator event against a manifest.
type GovernanceActionRecord struct {
	ID         string            `json:"id"`
	ManifestID string            `json:"manifestId"`
	ActorHash  *string           `json:"actorHash"`
	ActionKind string            `json:"actionKind"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// GovernanceSummary aggregates governance actions appended under one manifest.
// Counters move only for matched manifest ids.
type GovernanceSummary struct {
	TotalActions  int                      `json:"totalActions"`
	ActionsByKind map[string]int           `json:"actionsByKind"`
	Actions       []GovernanceActionRecord `json:"actions"`
}

// Verdict is the binary outcome of a rehearsal evaluation.
type Verdict string

const (
	VerdictPassed Verdict = "passed"
	VerdictFailed Verdict = "failed"
)

// FailureReason enumerates why a rehearsal evaluation failed.
type FailureReason string

const (
	ReasonManifestMissing       FailureReason = "manifest_missing"
	ReasonDeltaMismatch         FailureReason = "delta_mismatch"
	ReasonUnexpectedRemediation FailureReason = "unexpected_remediation"
)

// ComparisonExpected captures the operator-declared side of a rehearsal.
type ComparisonExpected struct {
	DeltaCount int `json:"deltaCount"`
}

// ComparisonActual captures the observed side of a rehearsal.
type ComparisonActual struct {
	ManifestFound    bool                `json:"manifestFound"`
	RemediationCount int                 `json:"remediationCount"`
	Remediations     []RemediationRecord `json:"remediations"`
}

// Comparison pairs expected and observed rehearsal inputs for audit display.
type Comparison struct {
	Expected ComparisonExpected `json:"expected"`
	Actual   ComparisonActual   `json:"actual"`
}

// RehearsalRecord is one persisted dry-run result.
//
// Invariants: Diff == ActualDeltas - ExpectedDeltas, and Verdict is passed
// exactly when FailureReasons is empty.
type RehearsalRecord struct {
	ID                  string          `json:"id"`
	ManifestGeneratedAt time.Time       `json:"manifestGeneratedAt"`
	ScenarioFingerprint string          `json:"scenarioFingerprint"`
	ExpectedDeltas      int             `json:"expectedDeltas"`
	OperatorHash        *string         `json:"operatorHash"`
	PayloadHash         string          `json:"payloadHash"`
	RecordedAt          time.Time       `json:"recordedAt"`
	Verdict             Verdict         `json:"verdict"`
	EvaluatedAt         time.Time       `json:"evaluatedAt"`
	ActualDeltas        int             `json:"actualDeltas"`
	Diff                int             `json:"diff"`
	FailureReasons      []FailureReason `json:"failureReasons"`
	Comparison          *Comparison     `json:"comparison,omitempty"`
}

// Fresh reports whether the record may back a remediation against a manifest
// generated at the given time. A rehearsal evaluated before the manifest was
// captured proves nothing about it.
func (r RehearsalRecord) Fresh(manifestGeneratedAt time.Time) bool {
	return !r.EvaluatedAt.Before(manifestGeneratedAt)
}

// LiveSummary is the evaluator's view of live remediation state for one manifest.
type LiveSummary struct {
	ManifestFound bool                `json:"manifestFound"`
	Remediations  []RemediationRecord `json:"remediations"`
}

// HistoryEntry is the ledger's unit of retention: one manifest capture plus
// every record appended under it. Mutable only via append.
type HistoryEntry struct {
	ManifestID     string              `json:"manifestId"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Snapshots      []RouteSnapshot     `json:"snapshots"`
	RouteSummaries []RouteSummary      `json:"routeSummaries"`
	Remediations   []RemediationRecord `json:"remediations"`
	Governance     GovernanceSummary   `json:"governance"`
	Rehearsals     []RehearsalRecord   `json:"rehearsals"`
}

// Clone returns a deep copy so readers never alias ledger-owned state.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	out.Snapshots = append([]RouteSnapshot{}, e.Snapshots...)
	out.RouteSummaries = append([]RouteSummary{}, e.RouteSummaries...)
	out.Remediations = CopyRemediations(e.Remediations)
	out.Rehearsals = CopyRehearsals(e.Rehearsals)
	out.Governance = e.Governance.clone()
	return out
}

// LiveRemediations filters the entry's remediation records to live mode.
func (e HistoryEntry) LiveRemediations() []RemediationRecord {
	out := make([]RemediationRecord, 0, len(e.Remediations))
	for _, rec := range e.Remediations {
		if rec.Mode == ModeLive {
			out = append(out, rec)
		}
	}
	return out
}

func (g GovernanceSummary) clone() GovernanceSummary {
	out := GovernanceSummary{
		TotalActions:  g.TotalActions,
		ActionsByKind: make(map[string]int, len(g.ActionsByKind)),
		Actions:       make([]GovernanceActionRecord, 0, len(g.Actions)),
	}
	for kind, n := range g.ActionsByKind {
		out.ActionsByKind[kind] = n
	}
	for _, rec := range g.Actions {
		out.Actions = append(out.Actions, rec.clone())
	}
	return out
}

func (r GovernanceActionRecord) clone() GovernanceActionRecord {
	out := r
	if r.ActorHash != nil {
		hash := *r.ActorHash
		out.ActorHash = &hash
	}
	out.Metadata = CopyMetadata(r.Metadata)
	return out
}

// CopyRemediations returns a defensive copy of a remediation record list.
func CopyRemediations(in []RemediationRecord) []RemediationRecord {
	out := make([]RemediationRecord, len(in))
	copy(out, in)
	return out
}

// CopyRehearsals returns a defensive copy of a rehearsal record list.
func CopyRehearsals(in []RehearsalRecord) []RehearsalRecord {
	out := make([]RehearsalRecord, 0, len(in))
	for _, rec := range in {
		out = append(out, rec.clone())
	}
	return out
}

func (r RehearsalRecord) clone() RehearsalRecord {
	out := r
	if r.OperatorHash != nil {
		hash := *r.OperatorHash
		out.OperatorHash = &hash
	}
	out.FailureReasons = append([]FailureReason{}, r.FailureReasons...)
	if r.Comparison != nil {
		cmp := *r.Comparison
		cmp.Actual.Remediations = CopyRemediations(r.Comparison.Actual.Remediations)
		out.Comparison = &cmp
	}
	return out
}

// CopyMetadata returns a defensive copy of governance metadata; nil stays nil
// so absent metadata serializes as null rather than an empty object.
func CopyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
