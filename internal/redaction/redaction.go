// Package redaction pseudonymizes free-text audit fields (source paths,
// symbol names) behind a keyed hash, so an audit trail can be shared
// outside the team that owns the indexed source without leaking its
// layout (SPEC_FULL.md §4, answering spec.md §6's otherwise-undefined
// `redaction?` config key).
package redaction

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Redactor pseudonymizes strings with a keyed BLAKE2b hash. The salt keys
// the hash so pseudonyms aren't dictionary-reversible across deployments
// that redact the same underlying names with different salts.
type Redactor struct {
	enabled bool
	salt    []byte
}

// New builds a Redactor. When enabled is false, Pseudonymize is a no-op —
// callers don't need to branch on configuration at every call site.
func New(enabled bool, salt string) (*Redactor, error) {
	r := &Redactor{enabled: enabled, salt: []byte(salt)}
	if enabled {
		if _, err := blake2b.New256(r.salt); err != nil {
			return nil, fmt.Errorf("redaction: invalid salt: %w", err)
		}
	}
	return r, nil
}

// Pseudonymize replaces value with a short, stable, keyed-hash token. The
// same value always maps to the same token under a fixed salt, so
// correlating redacted entries across audit rows still works.
func (r *Redactor) Pseudonymize(value string) string {
	if !r.enabled || value == "" {
		return value
	}
	h, _ := blake2b.New256(r.salt)
	h.Write([]byte(value))
	return "r_" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Enabled reports whether this Redactor will transform values.
func (r *Redactor) Enabled() bool { return r.enabled }
