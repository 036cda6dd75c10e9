package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes a stable hash for a document source. It ensures
// idempotency: re-ingesting an unchanged file is a no-op.
type SourceHashPolicy interface {
	Compute(path, content string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute returns the SHA-256 hash of the normalized path and content.
// A null byte separates the components so "a"+"bc" never collides with
// "ab"+"c".
func (p *sourceHashPolicy) Compute(path, content string) string {
	normalized := strings.TrimSpace(path) + "\x00" + strings.TrimSpace(content)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}
