// Package drift owns the content-drift domain model.
//
// Ownership boundary:
// - manifest and history entry shapes
// - remediation, governance, and rehearsal record shapes
// - action/verdict enums and their parse rules
//
// drift holds no state and performs no I/O; the ledger owns storage.
package drift
