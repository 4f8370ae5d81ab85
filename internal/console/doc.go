// Package console owns the HTTP boundary of the drift remediation
// control plane.
//
// Ownership boundary:
// - service construction and wiring (ledger, recorders, emitters)
// - route registration and request/response shapes
// - the shared-secret admission check and error taxonomy mapping
// - listener lifecycle, TLS, and graceful shutdown
//
// Domain decisions live below this package; handlers translate between
// wire payloads and internal/drift types and nothing more.
package console
