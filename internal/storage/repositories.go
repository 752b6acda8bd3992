package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repo is a configured repository row.
type Repo struct {
	RepoID        string
	Root          string
	DefaultBranch string
	CreatedAt     time.Time
}

// Version is one index snapshot for a repo (spec §3, Version).
type Version struct {
	VersionID   string
	RepoID      string
	CommitSHA   string
	CreatedAt   time.Time
	FileCount   int
	SymbolCount int
	Status      string
}

// File is a scanned source file within one version.
type File struct {
	FileID      string
	RepoID      string
	VersionID   string
	RelPath     string
	Directory   string
	Language    string
	ContentHash string
	SizeBytes   int64
	Skipped     bool
	SkipReason  string
}

// Symbol is an extracted, language-agnostic code symbol. AstFingerprint,
// Summary, InvariantsJSON and SideEffectsJSON are the semantic fields the
// delta engine diffs between snapshots (spec §3, §4.7); extraction fills
// them best-effort and leaves them empty when a language adapter has
// nothing to report.
type Symbol struct {
	SymbolID        string
	RepoID          string
	FileID          string
	Name            string
	QualifiedName   string
	Kind            string
	StartLine       int
	EndLine         int
	Signature       string
	DocComment      string
	ContentHash     string
	AstFingerprint  string
	Summary         string
	InvariantsJSON  string
	SideEffectsJSON string
}

// Edge is a resolved or unresolved call/reference relationship between two
// symbols within one version (spec §4.4, resolution ladder).
type Edge struct {
	EdgeID           string
	RepoID           string
	VersionID        string
	FromSymbolID     string
	ToSymbolID       sql.NullString
	Kind             string
	Confidence       float64
	ResolutionMethod string
	UnresolvedName   string
}

// SymbolVersion is an immutable snapshot of a symbol's semantic fields as of
// a given version, the only input the delta engine reads (spec §3 SymbolVersion
// snapshot, §4.7). Never mutated once written.
type SymbolVersion struct {
	SymbolID        string
	VersionID       string
	ContentHash     string
	Status          string
	AstFingerprint  string
	SignatureJSON   string
	Summary         string
	InvariantsJSON  string
	SideEffectsJSON string
}

// Metrics holds derived, per-symbol call-graph and churn statistics (spec
// §4.8).
type Metrics struct {
	SymbolID     string
	FanIn        int
	FanOut       int
	Churn30d     int
	TestRefCount int
	UpdatedAt    time.Time
}

// AuditEvent is one append-only audit log row (spec §6).
type AuditEvent struct {
	ID           int64
	Timestamp    time.Time
	RepoID       string
	Actor        string
	Operation    string
	PolicyEffect string
	PolicyRule   string
	DetailsJSON  string
	EntryHash    string
}

// RepoRepository persists RepoConfig rows.
type RepoRepository struct{ db *DB }

func NewRepoRepository(db *DB) *RepoRepository { return &RepoRepository{db: db} }

func (r *RepoRepository) Upsert(repo Repo) error {
	_, err := r.db.Exec(`
		INSERT INTO repos (repo_id, root, default_branch, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET root = excluded.root, default_branch = excluded.default_branch`,
		repo.RepoID, repo.Root, repo.DefaultBranch, repo.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *RepoRepository) Get(repoID string) (*Repo, error) {
	row := r.db.QueryRow(`SELECT repo_id, root, default_branch, created_at FROM repos WHERE repo_id = ?`, repoID)
	var repo Repo
	var createdAt string
	if err := row.Scan(&repo.RepoID, &repo.Root, &repo.DefaultBranch, &createdAt); err != nil {
		return nil, err
	}
	repo.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &repo, nil
}

// VersionRepository persists index-version snapshots.
type VersionRepository struct{ db *DB }

func NewVersionRepository(db *DB) *VersionRepository { return &VersionRepository{db: db} }

func (r *VersionRepository) Create(v Version) error {
	_, err := r.db.Exec(`
		INSERT INTO versions (version_id, repo_id, commit_sha, created_at, file_count, symbol_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.RepoID, v.CommitSHA, v.CreatedAt.UTC().Format(time.RFC3339), v.FileCount, v.SymbolCount, v.Status)
	return err
}

func (r *VersionRepository) Finalize(versionID string, fileCount, symbolCount int) error {
	_, err := r.db.Exec(`
		UPDATE versions SET file_count = ?, symbol_count = ?, status = 'complete' WHERE version_id = ?`,
		fileCount, symbolCount, versionID)
	return err
}

// Latest returns the most recently created, complete version for a repo, or
// nil if the repo has never been successfully indexed (spec §7,
// NO_SNAPSHOT).
func (r *VersionRepository) Latest(repoID string) (*Version, error) {
	row := r.db.QueryRow(`
		SELECT version_id, repo_id, commit_sha, created_at, file_count, symbol_count, status
		FROM versions WHERE repo_id = ? AND status = 'complete' ORDER BY created_at DESC LIMIT 1`, repoID)

	var v Version
	var createdAt string
	err := row.Scan(&v.VersionID, &v.RepoID, &v.CommitSHA, &createdAt, &v.FileCount, &v.SymbolCount, &v.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

// Get returns one version by id regardless of status, used by the delta
// engine to validate a caller-supplied fromVersion/toVersion pair before
// loading snapshots (spec §4.7, NoSnapshot).
func (r *VersionRepository) Get(versionID string) (*Version, error) {
	row := r.db.QueryRow(`
		SELECT version_id, repo_id, commit_sha, created_at, file_count, symbol_count, status
		FROM versions WHERE version_id = ?`, versionID)

	var v Version
	var createdAt string
	err := row.Scan(&v.VersionID, &v.RepoID, &v.CommitSHA, &createdAt, &v.FileCount, &v.SymbolCount, &v.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

// FileRepository persists scanned files.
type FileRepository struct{ db *DB }

func NewFileRepository(db *DB) *FileRepository { return &FileRepository{db: db} }

func (r *FileRepository) Insert(f File) error {
	_, err := r.db.Exec(`
		INSERT INTO files (file_id, repo_id, version_id, rel_path, directory, language, content_hash, size_bytes, skipped, skip_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(version_id, rel_path) DO UPDATE SET content_hash = excluded.content_hash, size_bytes = excluded.size_bytes`,
		f.FileID, f.RepoID, f.VersionID, f.RelPath, f.Directory, f.Language, f.ContentHash, f.SizeBytes, boolToInt(f.Skipped), f.SkipReason)
	return err
}

func (r *FileRepository) ListByVersion(versionID string) ([]File, error) {
	rows, err := r.db.Query(`
		SELECT file_id, repo_id, version_id, rel_path, directory, language, content_hash, size_bytes, skipped, skip_reason
		FROM files WHERE version_id = ?`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var skipped int
		if err := rows.Scan(&f.FileID, &f.RepoID, &f.VersionID, &f.RelPath, &f.Directory, &f.Language, &f.ContentHash, &f.SizeBytes, &skipped, &f.SkipReason); err != nil {
			return nil, err
		}
		f.Skipped = skipped != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *FileRepository) GetByPath(versionID, relPath string) (*File, error) {
	row := r.db.QueryRow(`
		SELECT file_id, repo_id, version_id, rel_path, directory, language, content_hash, size_bytes, skipped, skip_reason
		FROM files WHERE version_id = ? AND rel_path = ?`, versionID, relPath)

	var f File
	var skipped int
	err := row.Scan(&f.FileID, &f.RepoID, &f.VersionID, &f.RelPath, &f.Directory, &f.Language, &f.ContentHash, &f.SizeBytes, &skipped, &f.SkipReason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.Skipped = skipped != 0
	return &f, nil
}

// SymbolRepository persists extracted symbols and their per-version
// snapshots.
type SymbolRepository struct{ db *DB }

func NewSymbolRepository(db *DB) *SymbolRepository { return &SymbolRepository{db: db} }

func (r *SymbolRepository) Insert(s Symbol) error {
	_, err := r.db.Exec(`
		INSERT INTO symbols (symbol_id, repo_id, file_id, name, qualified_name, kind, start_line, end_line, signature, doc_comment, content_hash, ast_fingerprint, summary, invariants_json, side_effects_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET
			file_id = excluded.file_id, start_line = excluded.start_line, end_line = excluded.end_line,
			signature = excluded.signature, doc_comment = excluded.doc_comment, content_hash = excluded.content_hash,
			ast_fingerprint = excluded.ast_fingerprint, summary = excluded.summary,
			invariants_json = excluded.invariants_json, side_effects_json = excluded.side_effects_json`,
		s.SymbolID, s.RepoID, s.FileID, s.Name, s.QualifiedName, s.Kind, s.StartLine, s.EndLine, s.Signature, s.DocComment, s.ContentHash,
		s.AstFingerprint, s.Summary, s.InvariantsJSON, s.SideEffectsJSON)
	return err
}

func (r *SymbolRepository) Get(symbolID string) (*Symbol, error) {
	row := r.db.QueryRow(`
		SELECT symbol_id, repo_id, file_id, name, qualified_name, kind, start_line, end_line, signature, doc_comment, content_hash, ast_fingerprint, summary, invariants_json, side_effects_json
		FROM symbols WHERE symbol_id = ?`, symbolID)
	var s Symbol
	err := row.Scan(&s.SymbolID, &s.RepoID, &s.FileID, &s.Name, &s.QualifiedName, &s.Kind, &s.StartLine, &s.EndLine, &s.Signature, &s.DocComment, &s.ContentHash,
		&s.AstFingerprint, &s.Summary, &s.InvariantsJSON, &s.SideEffectsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

// DeleteByFile removes every symbol row for a file, the "delete old symbol
// rows for this file" step of spec §4.6 pass 1 (cascades to
// symbol_versions and edges referencing those symbols via their foreign
// keys where applicable).
func (r *SymbolRepository) DeleteByFile(fileID string) error {
	_, err := r.db.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID)
	return err
}

func (r *SymbolRepository) ListByFile(fileID string) ([]Symbol, error) {
	return r.querySymbols(`
		SELECT symbol_id, repo_id, file_id, name, qualified_name, kind, start_line, end_line, signature, doc_comment, content_hash, ast_fingerprint, summary, invariants_json, side_effects_json
		FROM symbols WHERE file_id = ?`, fileID)
}

// ListByRepo returns every symbol currently persisted for a repo, used to
// build pass 2's repo-wide nameToSymbolIds map (spec §4.6 step 4).
func (r *SymbolRepository) ListByRepo(repoID string) ([]Symbol, error) {
	return r.querySymbols(`
		SELECT symbol_id, repo_id, file_id, name, qualified_name, kind, start_line, end_line, signature, doc_comment, content_hash, ast_fingerprint, summary, invariants_json, side_effects_json
		FROM symbols WHERE repo_id = ?`, repoID)
}

func (r *SymbolRepository) querySymbols(query string, args ...interface{}) ([]Symbol, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var s Symbol
		if err := rows.Scan(&s.SymbolID, &s.RepoID, &s.FileID, &s.Name, &s.QualifiedName, &s.Kind, &s.StartLine, &s.EndLine, &s.Signature, &s.DocComment, &s.ContentHash,
			&s.AstFingerprint, &s.Summary, &s.InvariantsJSON, &s.SideEffectsJSON); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (r *SymbolRepository) RecordVersion(sv SymbolVersion) error {
	_, err := r.db.Exec(`
		INSERT INTO symbol_versions (symbol_id, version_id, content_hash, status, ast_fingerprint, signature_json, summary, invariants_json, side_effects_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id, version_id) DO UPDATE SET
			content_hash = excluded.content_hash, status = excluded.status,
			ast_fingerprint = excluded.ast_fingerprint, signature_json = excluded.signature_json,
			summary = excluded.summary, invariants_json = excluded.invariants_json, side_effects_json = excluded.side_effects_json`,
		sv.SymbolID, sv.VersionID, sv.ContentHash, sv.Status, sv.AstFingerprint, sv.SignatureJSON, sv.Summary, sv.InvariantsJSON, sv.SideEffectsJSON)
	return err
}

// ListSnapshotsByVersion loads every symbol_versions row for a version, the
// delta engine's only read path (spec §4.7: "load both symbol-version
// snapshots into maps by symbolId").
func (r *SymbolRepository) ListSnapshotsByVersion(versionID string) ([]SymbolVersion, error) {
	rows, err := r.db.Query(`
		SELECT symbol_id, version_id, content_hash, status, ast_fingerprint, signature_json, summary, invariants_json, side_effects_json
		FROM symbol_versions WHERE version_id = ?`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []SymbolVersion
	for rows.Next() {
		var sv SymbolVersion
		if err := rows.Scan(&sv.SymbolID, &sv.VersionID, &sv.ContentHash, &sv.Status, &sv.AstFingerprint, &sv.SignatureJSON, &sv.Summary, &sv.InvariantsJSON, &sv.SideEffectsJSON); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, sv)
	}
	return snapshots, rows.Err()
}

// CountVersionsForSymbol returns how many distinct versions reference a
// symbol, the invariant checked by spec §8's symbol_versions count test.
func (r *SymbolRepository) CountVersionsForSymbol(symbolID string) (int, error) {
	row := r.db.QueryRow(`SELECT COUNT(*) FROM symbol_versions WHERE symbol_id = ?`, symbolID)
	var count int
	err := row.Scan(&count)
	return count, err
}

// EdgeRepository persists call/reference edges.
type EdgeRepository struct{ db *DB }

func NewEdgeRepository(db *DB) *EdgeRepository { return &EdgeRepository{db: db} }

func (r *EdgeRepository) Insert(e Edge) error {
	_, err := r.db.Exec(`
		INSERT INTO edges (edge_id, repo_id, version_id, from_symbol_id, to_symbol_id, kind, confidence, resolution_method, unresolved_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(edge_id) DO UPDATE SET confidence = excluded.confidence, resolution_method = excluded.resolution_method`,
		e.EdgeID, e.RepoID, e.VersionID, e.FromSymbolID, e.ToSymbolID, e.Kind, e.Confidence, e.ResolutionMethod, e.UnresolvedName)
	return err
}

func (r *EdgeRepository) OutgoingFrom(versionID, fromSymbolID string) ([]Edge, error) {
	return r.queryEdges(`
		SELECT edge_id, repo_id, version_id, from_symbol_id, to_symbol_id, kind, confidence, resolution_method, unresolved_name
		FROM edges WHERE version_id = ? AND from_symbol_id = ?`, versionID, fromSymbolID)
}

func (r *EdgeRepository) IncomingTo(versionID, toSymbolID string) ([]Edge, error) {
	return r.queryEdges(`
		SELECT edge_id, repo_id, version_id, from_symbol_id, to_symbol_id, kind, confidence, resolution_method, unresolved_name
		FROM edges WHERE version_id = ? AND to_symbol_id = ?`, versionID, toSymbolID)
}

func (r *EdgeRepository) queryEdges(query string, args ...interface{}) ([]Edge, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.EdgeID, &e.RepoID, &e.VersionID, &e.FromSymbolID, &e.ToSymbolID, &e.Kind, &e.Confidence, &e.ResolutionMethod, &e.UnresolvedName); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// MetricsRepository persists derived per-symbol metrics.
type MetricsRepository struct{ db *DB }

func NewMetricsRepository(db *DB) *MetricsRepository { return &MetricsRepository{db: db} }

func (r *MetricsRepository) Upsert(m Metrics) error {
	_, err := r.db.Exec(`
		INSERT INTO metrics (symbol_id, fan_in, fan_out, churn_30d, test_ref_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET
			fan_in = excluded.fan_in, fan_out = excluded.fan_out,
			churn_30d = excluded.churn_30d, test_ref_count = excluded.test_ref_count, updated_at = excluded.updated_at`,
		m.SymbolID, m.FanIn, m.FanOut, m.Churn30d, m.TestRefCount, m.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *MetricsRepository) Get(symbolID string) (*Metrics, error) {
	row := r.db.QueryRow(`SELECT symbol_id, fan_in, fan_out, churn_30d, test_ref_count, updated_at FROM metrics WHERE symbol_id = ?`, symbolID)
	var m Metrics
	var updatedAt string
	err := row.Scan(&m.SymbolID, &m.FanIn, &m.FanOut, &m.Churn30d, &m.TestRefCount, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

// AuditRepository persists the append-only audit log.
type AuditRepository struct{ db *DB }

func NewAuditRepository(db *DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Append(e AuditEvent) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO audit_events (ts, repo_id, actor, operation, policy_effect, policy_rule, details_json, entry_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.RepoID, e.Actor, e.Operation, e.PolicyEffect, e.PolicyRule, e.DetailsJSON, e.EntryHash)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Trail returns up to limit audit events for a repo, most recent first
// (spec §6, getAuditTrail).
func (r *AuditRepository) Trail(repoID string, limit int) ([]AuditEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, ts, repo_id, actor, operation, policy_effect, policy_rule, details_json, entry_hash
		FROM audit_events WHERE repo_id = ? ORDER BY ts DESC LIMIT ?`, repoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.RepoID, &e.Actor, &e.Operation, &e.PolicyEffect, &e.PolicyRule, &e.DetailsJSON, &e.EntryHash); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarshalDetails is a convenience used by callers building AuditEvent rows
// from structured data.
func MarshalDetails(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sdlctl: marshaling audit details: %w", err)
	}
	return string(data), nil
}

// SymbolReference is one textual reference to a bare symbol name, used to
// compute testRefs (spec §3, SymbolReference).
type SymbolReference struct {
	SymbolID string
	FileID   string
	Line     int
	Kind     string
}

// SymbolReferenceRepository persists the inverted name-reference index.
type SymbolReferenceRepository struct{ db *DB }

func NewSymbolReferenceRepository(db *DB) *SymbolReferenceRepository {
	return &SymbolReferenceRepository{db: db}
}

func (r *SymbolReferenceRepository) DeleteByFile(fileID string) error {
	_, err := r.db.Exec(`DELETE FROM symbol_references WHERE file_id = ?`, fileID)
	return err
}

func (r *SymbolReferenceRepository) Insert(ref SymbolReference) error {
	_, err := r.db.Exec(`
		INSERT INTO symbol_references (symbol_id, file_id, line, kind)
		VALUES (?, ?, ?, ?)`,
		ref.SymbolID, ref.FileID, ref.Line, ref.Kind)
	return err
}

// CountForSymbol returns how many distinct files textually reference the
// symbol, used as its testRefs count.
func (r *SymbolReferenceRepository) CountForSymbol(symbolID string) (int, error) {
	row := r.db.QueryRow(`SELECT COUNT(DISTINCT file_id) FROM symbol_references WHERE symbol_id = ?`, symbolID)
	var count int
	err := row.Scan(&count)
	return count, err
}

// PrefetchBigram is one observed (prev tool → curr tool) transition count
// for a repo and task type (spec §4.11).
type PrefetchBigram struct {
	RepoID   string
	TaskType string
	From     string
	To       string
	Count    int
}

// PrefetchRepository persists the bigram counts backing the prefetch model.
type PrefetchRepository struct{ db *DB }

func NewPrefetchRepository(db *DB) *PrefetchRepository { return &PrefetchRepository{db: db} }

func (r *PrefetchRepository) Increment(repoID, taskType, from, to string) error {
	_, err := r.db.Exec(`
		INSERT INTO prefetch_bigrams (repo_id, task_type, from_symbol_id, to_symbol_id, count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(repo_id, task_type, from_symbol_id, to_symbol_id) DO UPDATE SET count = count + 1`,
		repoID, taskType, from, to)
	return err
}

// SuccessorCounts returns every observed successor of `from` under
// (repoID, taskType), used to compute the bigram argmax with add-1
// smoothing.
func (r *PrefetchRepository) SuccessorCounts(repoID, taskType, from string) ([]PrefetchBigram, error) {
	rows, err := r.db.Query(`
		SELECT repo_id, task_type, from_symbol_id, to_symbol_id, count
		FROM prefetch_bigrams WHERE repo_id = ? AND task_type = ? AND from_symbol_id = ?`,
		repoID, taskType, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bigrams []PrefetchBigram
	for rows.Next() {
		var b PrefetchBigram
		if err := rows.Scan(&b.RepoID, &b.TaskType, &b.From, &b.To, &b.Count); err != nil {
			return nil, err
		}
		bigrams = append(bigrams, b)
	}
	return bigrams, rows.Err()
}

// TotalSamples returns how many bigram observations exist for
// (repoID, taskType), used to gate predictions on minSamplesForPrediction.
func (r *PrefetchRepository) TotalSamples(repoID, taskType string) (int, error) {
	row := r.db.QueryRow(`
		SELECT COALESCE(SUM(count), 0) FROM prefetch_bigrams WHERE repo_id = ? AND task_type = ?`,
		repoID, taskType)
	var total int
	err := row.Scan(&total)
	return total, err
}

// Import is one persisted import/use statement, the durable form of
// lang.ExtractedImport that pass 2 of the indexer reloads to rebuild
// importedNameToSymbolIds and namespaceImports (spec §4.6 step 4).
type Import struct {
	FileID       string
	RepoID       string
	Source       string
	ImportedName string
	Namespace    bool
}

// ImportRepository persists per-file import statements.
type ImportRepository struct{ db *DB }

func NewImportRepository(db *DB) *ImportRepository { return &ImportRepository{db: db} }

func (r *ImportRepository) DeleteByFile(fileID string) error {
	_, err := r.db.Exec(`DELETE FROM imports WHERE file_id = ?`, fileID)
	return err
}

func (r *ImportRepository) Insert(imp Import) error {
	_, err := r.db.Exec(`
		INSERT INTO imports (file_id, repo_id, source, imported_name, is_namespace)
		VALUES (?, ?, ?, ?, ?)`,
		imp.FileID, imp.RepoID, imp.Source, imp.ImportedName, boolToInt(imp.Namespace))
	return err
}

func (r *ImportRepository) ListByFile(fileID string) ([]Import, error) {
	return r.queryImports(`SELECT file_id, repo_id, source, imported_name, is_namespace FROM imports WHERE file_id = ?`, fileID)
}

// ListByRepo returns every persisted import for a repo, used to build pass
// 2's per-file importedNameToSymbolIds and namespaceImports maps.
func (r *ImportRepository) ListByRepo(repoID string) ([]Import, error) {
	return r.queryImports(`SELECT file_id, repo_id, source, imported_name, is_namespace FROM imports WHERE repo_id = ?`, repoID)
}

func (r *ImportRepository) queryImports(query string, args ...interface{}) ([]Import, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		var imp Import
		var isNamespace int
		if err := rows.Scan(&imp.FileID, &imp.RepoID, &imp.Source, &imp.ImportedName, &isNamespace); err != nil {
			return nil, err
		}
		imp.Namespace = isNamespace != 0
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
