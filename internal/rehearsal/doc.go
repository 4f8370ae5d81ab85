// Package rehearsal owns dry-run evaluation.
//
// Ownership boundary:
// - scenario validation
// - the pure expected-vs-live comparison (verdict, diff, failure reasons)
// - assembly of persistable rehearsal records
//
// Evaluation is deterministic and side-effect free; persistence and live
// lookups stay with the ledger.
package rehearsal
