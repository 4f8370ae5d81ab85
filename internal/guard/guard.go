// Package guard admits or blocks live remediation based on rehearsal
// history. Evaluation is pure: callers fetch the records, the guard only
// judges them.
package guard

import (
	"fmt"
	"time"

	"github.com/contentops/driftgate/internal/drift"
)

// State classifies the rehearsal posture behind a manifest.
type State string

const (
	StateMissing State = "missing"
	StateStale   State = "stale"
	StatePassed  State = "passed"
	StateFailed  State = "failed"
)

// Decision is the guard's answer for one manifest. Reasons is always
// non-nil; it is empty exactly when Allowed.
type Decision struct {
	State   State    `json:"state"`
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons"`
}

// Evaluate judges the rehearsal records attached to a manifest generated
// at the given time. Only the newest record (by EvaluatedAt) counts:
// missing beats everything, then staleness, then that record's verdict.
func Evaluate(rehearsals []drift.RehearsalRecord, manifestGeneratedAt time.Time) Decision {
	if len(rehearsals) == 0 {
		return Decision{
			State:   StateMissing,
			Reasons: []string{"no rehearsal recorded; run a simulation first"},
		}
	}

	latest := rehearsals[0]
	for _, rec := range rehearsals[1:] {
		if !rec.EvaluatedAt.Before(latest.EvaluatedAt) {
			latest = rec
		}
	}

	if latest.EvaluatedAt.Before(manifestGeneratedAt) {
		return Decision{
			State:   StateStale,
			Reasons: []string{"latest rehearsal predates the current manifest; re-run the simulation"},
		}
	}

	if latest.Verdict == drift.VerdictPassed {
		return Decision{
			State:   StatePassed,
			Allowed: true,
			Reasons: []string{},
		}
	}

	return Decision{
		State:   StateFailed,
		Reasons: DescribeFailureReasons(latest.FailureReasons, latest.Diff),
	}
}

// DescribeFailureReasons renders evaluation reason codes as operator-facing
// sentences. Total over any input; unknown codes pass through verbatim.
func DescribeFailureReasons(reasons []drift.FailureReason, diff int) []string {
	out := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		switch reason {
		case drift.ReasonManifestMissing:
			out = append(out, "manifest capture not found at rehearsal time")
		case drift.ReasonDeltaMismatch:
			out = append(out, "expected and actual remediation counts differ")
		case drift.ReasonUnexpectedRemediation:
			switch {
			case diff > 0:
				out = append(out, fmt.Sprintf("%d additional live remediation(s) beyond expectation", diff))
			case diff < 0:
				out = append(out, fmt.Sprintf("%d remediation(s) missing relative to expectation", -diff))
			default:
				out = append(out, "live remediations diverge from expectation")
			}
		default:
			out = append(out, string(reason))
		}
	}
	return out
}
