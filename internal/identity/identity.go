// Package identity computes the stable, content-derived identifiers used
// throughout sdlctl: symbol IDs, file content hashes, and card hashes. All
// hashing uses SHA-256 so identifiers are stable across machines and Go
// versions, matching the fingerprinting approach of this codebase's
// ancestor (internal/identity/fingerprint.go): build a canonical string
// from sorted components, hash it, hex-encode.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SymbolFingerprint holds the components that determine a symbol's stable
// identity: which repo/file it lives in, its qualified name, and its kind.
// Two extractions of the same logical symbol must produce identical
// fingerprints even if line numbers shift.
type SymbolFingerprint struct {
	RepoID        string
	RelPath       string
	QualifiedName string
	Kind          string
}

func canonicalize(parts ...string) string {
	sorted := append([]string(nil), parts...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SymbolID computes the stable symbolId: sha256 of the sorted
// "repo:<id>", "path:<relPath>", "name:<qualifiedName>", "kind:<kind>"
// components, hex-encoded. Stable across re-indexes as long as the
// symbol's file, qualified name, and kind don't change.
func SymbolID(fp SymbolFingerprint) string {
	canonical := canonicalize(
		"repo:"+fp.RepoID,
		"path:"+fp.RelPath,
		"name:"+fp.QualifiedName,
		"kind:"+fp.Kind,
	)
	return fmt.Sprintf("sym_%s", hashHex(canonical)[:32])
}

// FileID computes a stable identifier for a file within a repo, derived
// from the repo ID and its canonical relative path.
func FileID(repoID, relPath string) string {
	canonical := canonicalize("repo:"+repoID, "path:"+relPath)
	return fmt.Sprintf("file_%s", hashHex(canonical)[:32])
}

// EdgeID computes a stable identifier for a call edge within one index
// version, derived from the endpoints and edge kind so re-extracting the
// same edge in a later run reuses the same ID.
func EdgeID(versionID, fromSymbolID, toSymbolIDOrName, kind string) string {
	canonical := canonicalize(
		"version:"+versionID,
		"from:"+fromSymbolID,
		"to:"+toSymbolIDOrName,
		"kind:"+kind,
	)
	return fmt.Sprintf("edge_%s", hashHex(canonical)[:32])
}

// ContentHash computes the content hash of a file or symbol body, used to
// detect whether re-extracted content actually changed (spec §4.7, delta
// computation) without depending on mtimes.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashCard computes a stable hash over a card's canonical JSON
// representation, used by the card cache to detect whether a cached card is
// still valid for a given index version. v must marshal deterministically;
// Go's encoding/json already emits struct fields in declaration order, so
// any card struct with stable field ordering produces a canonical
// representation here.
func HashCard(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sdlctl: marshaling card for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewVersionID generates a new random index-version identifier.
func NewVersionID() string {
	return "ver_" + uuid.NewString()
}

// NewRepoID generates a new random repo identifier, used when a config
// entry omits an explicit repoId.
func NewRepoID() string {
	return "repo_" + uuid.NewString()
}
