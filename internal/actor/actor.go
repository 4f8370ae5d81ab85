// Package actor anonymizes operator identifiers for audit trails.
//
// Callers keep the hashing algorithm and salt behind the Hasher interface so
// either can rotate without touching call sites.
package actor

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher derives a stable one-way digest for an operator identifier.
type Hasher interface {
	Hash(actorID string) string
}

// SHA256Hasher hashes salted identifiers with SHA-256 hex output.
type SHA256Hasher struct {
	salt string
}

// NewSHA256Hasher constructs a hasher bound to one salt value.
func NewSHA256Hasher(salt string) *SHA256Hasher {
	return &SHA256Hasher{salt: salt}
}

// Hash returns the hex digest of salt+actorID. Same input, same output.
func (h *SHA256Hasher) Hash(actorID string) string {
	sum := sha256.Sum256([]byte(h.salt + actorID))
	return hex.EncodeToString(sum[:])
}

// HashOptional hashes a possibly-absent identifier. Absent ids pass through as
// nil; the hasher is never invoked for them.
func HashOptional(h Hasher, actorID string) *string {
	if actorID == "" {
		return nil
	}
	digest := h.Hash(actorID)
	return &digest
}

// Digest returns the unsalted SHA-256 hex digest of a payload. Used for
// content fingerprints where deterministic cross-instance output matters.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
