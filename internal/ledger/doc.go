// Package ledger owns snapshot history retention.
//
// Ownership boundary:
// - bounded, append-only history of manifest captures
// - remediation/governance/rehearsal append paths
// - the generatedAt -> manifest id index
// - pluggable store backends (in-memory, bbolt)
//
// The ledger serializes every mutation; readers receive copies, never
// aliases into retained state. Retention eviction is atomic with the
// triggering insert.
package ledger
