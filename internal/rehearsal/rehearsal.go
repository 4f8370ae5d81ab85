package rehearsal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/driftgate/internal/actor"
	"github.com/contentops/driftgate/internal/drift"
)

var ErrInvalidScenario = errors.New("rehearsal: invalid scenario")

// Scenario is one dry-run request: which manifest capture to rehearse
// against, and what the operator expects the live ledger to show.
type Scenario struct {
	ManifestGeneratedAt time.Time
	Fingerprint         string
	ExpectedDeltas      int
	OperatorID          string
	Payload             []byte
}

// Validate enforces the scenario fields required before evaluation.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Fingerprint) == "" {
		return fmt.Errorf("%w: missing scenario fingerprint", ErrInvalidScenario)
	}
	if s.ExpectedDeltas < 0 {
		return fmt.Errorf("%w: expectedDeltas must be non-negative, got %d", ErrInvalidScenario, s.ExpectedDeltas)
	}
	return nil
}

// Evaluation is the computed outcome of one rehearsal. A failed verdict is
// a successful evaluation, never an error.
type Evaluation struct {
	Verdict        drift.Verdict
	ActualDeltas   int
	Diff           int
	FailureReasons []drift.FailureReason
	Comparison     drift.Comparison
}

// Evaluate compares an expected delta count against the live ledger view.
// Reasons accumulate in a fixed order: manifest_missing, delta_mismatch,
// then unexpected_remediation when live records exceed expectation. The
// verdict passes exactly when no reason fires.
func Evaluate(expectedDeltas int, live drift.LiveSummary) Evaluation {
	actual := len(live.Remediations)
	eval := Evaluation{
		ActualDeltas:   actual,
		Diff:           actual - expectedDeltas,
		FailureReasons: []drift.FailureReason{},
	}

	if !live.ManifestFound {
		eval.FailureReasons = append(eval.FailureReasons, drift.ReasonManifestMissing)
	}
	if actual != expectedDeltas {
		eval.FailureReasons = append(eval.FailureReasons, drift.ReasonDeltaMismatch)
		if actual > expectedDeltas {
			eval.FailureReasons = append(eval.FailureReasons, drift.ReasonUnexpectedRemediation)
		}
	}

	if len(eval.FailureReasons) == 0 {
		eval.Verdict = drift.VerdictPassed
	} else {
		eval.Verdict = drift.VerdictFailed
	}

	eval.Comparison = drift.Comparison{
		Expected: drift.ComparisonExpected{DeltaCount: expectedDeltas},
		Actual: drift.ComparisonActual{
			ManifestFound:    live.ManifestFound,
			RemediationCount: actual,
			Remediations:     drift.CopyRemediations(live.Remediations),
		},
	}
	return eval
}

// Builder assembles persistable rehearsal records. Now and NewID are
// injectable for deterministic tests.
type Builder struct {
	Hasher actor.Hasher
	Now    func() time.Time
	NewID  func() string
}

// NewBuilder returns a builder with wall-clock time and uuid ids.
func NewBuilder(hasher actor.Hasher) *Builder {
	return &Builder{
		Hasher: hasher,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// BuildRecord freezes a scenario and its evaluation into the record the
// ledger retains. The operator id is hashed (or nil when absent) and the
// raw payload is digested; neither survives in clear text.
func (b *Builder) BuildRecord(s Scenario, eval Evaluation) drift.RehearsalRecord {
	now := b.Now().UTC()
	comparison := eval.Comparison
	return drift.RehearsalRecord{
		ID:                  b.NewID(),
		ManifestGeneratedAt: s.ManifestGeneratedAt,
		ScenarioFingerprint: s.Fingerprint,
		ExpectedDeltas:      s.ExpectedDeltas,
		OperatorHash:        actor.HashOptional(b.Hasher, s.OperatorID),
		PayloadHash:         actor.Digest(s.Payload),
		RecordedAt:          now,
		Verdict:             eval.Verdict,
		EvaluatedAt:         now,
		ActualDeltas:        eval.ActualDeltas,
		Diff:                eval.Diff,
		FailureReasons:      append([]drift.FailureReason{}, eval.FailureReasons...),
		Comparison:          &comparison,
	}
}
