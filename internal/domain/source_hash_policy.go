package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes a stable hash for a document source.
// It ensures idempotency: same normalized body -> same hash, so re-indexing
// an unchanged document can be skipped.
type SourceHashPolicy interface {
	Compute(body string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates a new instance of the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute returns the SHA-256 hash of the whitespace-trimmed body.
func (p *sourceHashPolicy) Compute(body string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(body)))
	return hex.EncodeToString(hash[:])
}
