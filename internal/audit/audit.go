// Package audit is the thin service layer over storage.AuditRepository
// (spec §4.12): every tool call, policy decision and index run appends one
// row, optionally pseudonymized via internal/redaction before it's
// persisted. Logging failures never propagate to the caller — they are the
// one error class in this codebase that is deliberately swallowed, per
// spec §7's "audit logging failures are logged to stderr only and never
// propagated".
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/redaction"
	"github.com/sdlctl/sdlctl/internal/storage"
)

// DBQueryLimitMax caps getAuditTrail's limit parameter (spec §4.12: "limit
// capped by DB_QUERY_LIMIT_MAX").
const DBQueryLimitMax = 1000

// DefaultTrailLimit is applied when a caller doesn't specify a limit.
const DefaultTrailLimit = 100

// Event is the input to Log; Timestamp is filled in by Log if zero.
type Event struct {
	Timestamp    time.Time
	RepoID       string
	Actor        string
	Operation    string
	PolicyEffect string
	PolicyRule   string
	Details      map[string]interface{}
}

// Log wraps storage.AuditRepository with pseudonymization and
// never-propagate failure semantics.
type Log struct {
	repo     *storage.AuditRepository
	redactor *redaction.Redactor
}

// New builds a Log. redactor may be a disabled Redactor (via
// redaction.New(false, "")) when config.redaction.enabled is false.
func New(repo *storage.AuditRepository, redactor *redaction.Redactor) *Log {
	return &Log{repo: repo, redactor: redactor}
}

// Append appends one audit event. Per spec §7, a failure here is logged to
// stderr and swallowed — the caller's own operation must not fail because
// audit logging did.
func (l *Log) Append(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	detailsJSON, err := json.Marshal(e.Details)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sdlctl: audit: marshaling details for %s: %v\n", e.Operation, err)
		detailsJSON = []byte("{}")
	}
	if l.redactor != nil {
		detailsJSON = []byte(l.redactor.RedactJSONFields(string(detailsJSON), redaction.DefaultFreeTextFields))
	}

	row := storage.AuditEvent{
		Timestamp:    e.Timestamp,
		RepoID:       e.RepoID,
		Actor:        e.Actor,
		Operation:    e.Operation,
		PolicyEffect: e.PolicyEffect,
		PolicyRule:   e.PolicyRule,
		DetailsJSON:  string(detailsJSON),
	}
	row.EntryHash = entryHash(row)

	if _, err := l.repo.Append(row); err != nil {
		fmt.Fprintf(os.Stderr, "sdlctl: audit: appending event for %s: %v\n", e.Operation, err)
	}
}

// Trail returns up to limit audit events for a repo, most recent first,
// limit clamped to [1, DBQueryLimitMax] (spec §4.12, getAuditTrail).
func (l *Log) Trail(repoID string, limit int) ([]storage.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultTrailLimit
	}
	if limit > DBQueryLimitMax {
		limit = DBQueryLimitMax
	}
	return l.repo.Trail(repoID, limit)
}

// entryHash fingerprints an audit row's content, so a later process
// auditing the log itself can detect a tampered or truncated row.
func entryHash(e storage.AuditEvent) string {
	canonical := e.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + e.RepoID + "|" + e.Actor + "|" +
		e.Operation + "|" + e.PolicyEffect + "|" + e.PolicyRule + "|" + e.DetailsJSON
	return identity.ContentHash([]byte(canonical))
}
