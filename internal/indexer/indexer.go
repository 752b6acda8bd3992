// Package indexer runs the two-pass indexing pipeline that turns a scanned
// repository into a new index version: pass 1 extracts symbols, imports,
// and calls per file in parallel; pass 2 resolves every extracted call
// against the repo-wide symbol tables pass 1 built, persists edges, and
// commits the version (spec §4.6). The staged, per-file-then-global shape
// mirrors SimplyLiz-CodeMCP/internal/incremental/indexer.go's
// IndexIncrementalWithLang: detect work, run per-unit extraction, then a
// second pass that reconciles state across units before committing.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sdlctl/sdlctl/internal/concurrency"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/lang"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/parserpool"
	"github.com/sdlctl/sdlctl/internal/scanner"
	"github.com/sdlctl/sdlctl/internal/storage"
	"github.com/sdlctl/sdlctl/internal/summaryprovider"
)

// Limits bounds the indexer's concurrency and per-task timeouts (spec §4.3,
// config.IndexingConfig).
type Limits struct {
	Workers           int
	FileIOConcurrency int
	DBIOConcurrency   int
	QueueTimeoutMs    int
	TaskTimeoutMs     int
	MaxFileBytes      int64
}

// Indexer owns the storage handles and concurrency primitives shared across
// a repo's index runs. One Indexer is created per process and reused
// across repos.
type Indexer struct {
	limits   Limits
	db       *storage.DB
	repos    *storage.RepoRepository
	versions *storage.VersionRepository
	files    *storage.FileRepository
	symbols  *storage.SymbolRepository
	edges    *storage.EdgeRepository
	imports  *storage.ImportRepository
	refs     *storage.SymbolReferenceRepository
	metrics  *storage.MetricsRepository
	audit    *storage.AuditRepository

	registry *lang.Registry
	pool     *parserpool.Pool
	fileIO   *concurrency.Limiter
	dbIO     *concurrency.Limiter
	logger   *logging.Logger

	summaries summaryprovider.Provider
}

// New builds an Indexer over an open database, starting its own parser pool
// and I/O limiters from limits.
func New(db *storage.DB, limits Limits, logger *logging.Logger) *Indexer {
	if limits.Workers <= 0 {
		limits.Workers = 4
	}
	if limits.FileIOConcurrency <= 0 {
		limits.FileIOConcurrency = limits.Workers
	}
	if limits.DBIOConcurrency <= 0 {
		limits.DBIOConcurrency = 1
	}

	return &Indexer{
		limits:   limits,
		db:       db,
		repos:    storage.NewRepoRepository(db),
		versions: storage.NewVersionRepository(db),
		files:    storage.NewFileRepository(db),
		symbols:  storage.NewSymbolRepository(db),
		edges:    storage.NewEdgeRepository(db),
		imports:  storage.NewImportRepository(db),
		refs:     storage.NewSymbolReferenceRepository(db),
		metrics:  storage.NewMetricsRepository(db),
		audit:    storage.NewAuditRepository(db),
		registry: lang.NewRegistry(),
		pool: parserpool.New(parserpool.Config{
			Workers:        limits.Workers,
			QueueTimeoutMs: limits.QueueTimeoutMs,
			TaskTimeoutMs:  limits.TaskTimeoutMs,
		}),
		fileIO: concurrency.NewLimiter("file-io", limits.FileIOConcurrency, time.Duration(limits.QueueTimeoutMs)*time.Millisecond),
		dbIO:   concurrency.NewLimiter("db-io", limits.DBIOConcurrency, time.Duration(limits.QueueTimeoutMs)*time.Millisecond),
		logger: logger,

		summaries: summaryprovider.NoopProvider{},
	}
}

// SetSummaryProvider swaps in the external summariser the core calls during
// extraction (spec: an external collaborator reached through a narrow
// provider contract). Defaults to summaryprovider.NoopProvider.
func (ix *Indexer) SetSummaryProvider(p summaryprovider.Provider) {
	if p == nil {
		p = summaryprovider.NoopProvider{}
	}
	ix.summaries = p
}

// Stop shuts down the indexer's parser pool, discarding any queued work.
func (ix *Indexer) Stop() { ix.pool.Stop() }

// Options configures one indexing run.
type Options struct {
	RepoID       string
	RepoRoot     string
	CommitSHA    string
	IgnoreGlobs  []string
	MaxFileBytes int64
	Force        bool // re-extract every file even if its content hash is unchanged
}

// Result summarizes a completed index run (spec §4.6, indexRepo return).
type Result struct {
	VersionID    string
	FilesScanned int
	FilesIndexed int
	FilesSkipped int
	FilesReused  int
	SymbolsTotal int
	EdgesTotal   int
	ParseErrors  []FileError
}

// FileError records a non-fatal per-file failure (spec §4.6: "parse errors
// are recorded per-file and don't abort the run").
type FileError struct {
	RelPath string
	Err     string
}

// pendingFile is pass 1's output for one successfully processed file,
// carried in memory into pass 2 (spec §4.6 never persists raw calls —
// resolution happens once, globally, right after extraction).
type pendingFile struct {
	fileID     string
	relPath    string
	language   string
	isTestFile bool
	symbols    []storage.Symbol
	imports    []storage.Import
	calls      []pendingCall
}

type pendingCall struct {
	fromSymbolID string
	call         lang.ExtractedCall
}

// Index runs a full scan-extract-resolve-commit cycle for one repo,
// producing a new version (spec §4.6).
func (ix *Indexer) Index(ctx context.Context, opts Options) (*Result, error) {
	if opts.RepoID == "" || opts.RepoRoot == "" {
		return nil, sdlerrors.NewInvalidParameterError("repoId/repoRoot", "both are required")
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = ix.limits.MaxFileBytes
	}

	scanned, err := scanner.Scan(scanner.Options{
		RepoID:       opts.RepoID,
		RepoRoot:     opts.RepoRoot,
		IgnoreGlobs:  opts.IgnoreGlobs,
		MaxFileBytes: opts.MaxFileBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("sdlctl: scanning %s: %w", opts.RepoRoot, err)
	}

	prevVersion, err := ix.versions.Latest(opts.RepoID)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: loading previous version: %w", err)
	}

	versionID := identity.NewVersionID()
	now := time.Now().UTC()
	if err := ix.versions.Create(storage.Version{
		VersionID: versionID,
		RepoID:    opts.RepoID,
		CommitSHA: opts.CommitSHA,
		CreatedAt: now,
		Status:    "building",
	}); err != nil {
		return nil, fmt.Errorf("sdlctl: creating version: %w", err)
	}

	result := &Result{VersionID: versionID, FilesScanned: len(scanned)}

	pending, err := ix.runPass1(ctx, opts, versionID, prevVersion, scanned, result)
	if err != nil {
		return nil, err
	}

	edgeCount, err := ix.runPass2(opts.RepoID, versionID, pending)
	if err != nil {
		return nil, err
	}
	result.EdgesTotal = edgeCount

	for _, pf := range pending {
		result.SymbolsTotal += len(pf.symbols)
		for _, s := range pf.symbols {
			if err := ix.symbols.RecordVersion(storage.SymbolVersion{
				SymbolID:        s.SymbolID,
				VersionID:       versionID,
				ContentHash:     s.ContentHash,
				Status:          "present",
				AstFingerprint:  s.AstFingerprint,
				SignatureJSON:   s.Signature,
				Summary:         s.Summary,
				InvariantsJSON:  s.InvariantsJSON,
				SideEffectsJSON: s.SideEffectsJSON,
			}); err != nil {
				return nil, fmt.Errorf("sdlctl: recording symbol version: %w", err)
			}
		}
	}

	if err := ix.recomputeMetrics(opts.RepoID, versionID, pending); err != nil {
		return nil, fmt.Errorf("sdlctl: recomputing metrics: %w", err)
	}

	if err := ix.versions.Finalize(versionID, result.FilesIndexed+result.FilesReused, result.SymbolsTotal); err != nil {
		return nil, fmt.Errorf("sdlctl: finalizing version: %w", err)
	}

	ix.emitAuditEvent(opts.RepoID, versionID, result)

	return result, nil
}

// runPass1 extracts symbols/imports/calls for every scanned, non-skipped
// file, bounded by the parser pool and file-I/O limiter. Per-file failures
// are recorded on result and do not abort the run; storage failures do
// (spec §4.6, §7).
func (ix *Indexer) runPass1(ctx context.Context, opts Options, versionID string, prevVersion *storage.Version, scanned []scanner.ScannedFile, result *Result) ([]pendingFile, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		pending []pendingFile
		fatal   error
	)

	for _, sf := range scanned {
		sf := sf
		if sf.Skipped {
			result.FilesSkipped++
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			raw, err := ix.pool.Submit(ctx, "index:"+sf.RelPath, func(taskCtx context.Context) (interface{}, error) {
				return ix.processFile(taskCtx, opts, versionID, prevVersion, sf)
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if sdlErr, ok := err.(*sdlerrors.SdlError); ok && sdlErr.Code == sdlerrors.DatabaseError {
					fatal = err
					return
				}
				result.ParseErrors = append(result.ParseErrors, FileError{RelPath: sf.RelPath, Err: err.Error()})
				return
			}

			pr := raw.(*processResult)
			if pr.reused {
				result.FilesReused++
			} else {
				result.FilesIndexed++
			}
			pending = append(pending, pr.pendingFile)
		}()
	}

	wg.Wait()
	ix.pool.Drain()

	if fatal != nil {
		return nil, fmt.Errorf("sdlctl: pass 1 storage failure: %w", fatal)
	}

	return pending, nil
}

// processResult wraps pendingFile with whether it was a reused (unchanged)
// extraction, used only to update Result counters under the caller's lock.
type processResult struct {
	pendingFile
	reused bool
}

// snippetLines returns the 1-indexed, inclusive [startLine, endLine] slice
// of content, bounded defensively since extractors report ranges off the
// parser's own line count, not content's.
func snippetLines(content []byte, startLine, endLine int) string {
	if startLine <= 0 || endLine < startLine {
		return ""
	}
	lines := strings.Split(string(content), "\n")
	if startLine > len(lines) {
		return ""
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}

var testFilePattern = []string{"_test.", ".test.", "test_", "/test/", "/tests/", "/__tests__/"}

func isTestFile(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, p := range testFilePattern {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (ix *Indexer) processFile(ctx context.Context, opts Options, versionID string, prevVersion *storage.Version, sf scanner.ScannedFile) (*processResult, error) {
	if err := ix.fileIO.Acquire(ctx); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(sf.AbsPath)
	ix.fileIO.Release()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sf.RelPath, err)
	}

	contentHash := identity.ContentHash(content)
	language := ""
	if l, ok := lang.LanguageFromExtension(filepath.Ext(sf.RelPath)); ok {
		language = string(l)
	}

	pf := &pendingFile{
		fileID:     sf.FileID,
		relPath:    sf.RelPath,
		language:   language,
		isTestFile: isTestFile(sf.RelPath),
	}

	reused := false
	if !opts.Force && prevVersion != nil {
		prevFile, err := ix.files.GetByPath(prevVersion.VersionID, sf.RelPath)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading previous file row", err)
		}
		if prevFile != nil && prevFile.ContentHash == contentHash {
			reused = true
		}
	}

	if err := ix.dbIO.Do(ctx, func(context.Context) error {
		return ix.files.Insert(storage.File{
			FileID:      sf.FileID,
			RepoID:      opts.RepoID,
			VersionID:   versionID,
			RelPath:     sf.RelPath,
			Directory:   sf.Directory,
			Language:    language,
			ContentHash: contentHash,
			SizeBytes:   sf.SizeBytes,
		})
	}); err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "inserting file row", err)
	}

	if reused {
		symbols, err := ix.symbols.ListByFile(sf.FileID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "listing reused symbols", err)
		}
		imports, err := ix.imports.ListByFile(sf.FileID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "listing reused imports", err)
		}
		pf.symbols = symbols
		pf.imports = imports
		return &processResult{pendingFile: *pf, reused: true}, nil
	}

	adapter, ok, err := ix.registry.For(filepath.Ext(sf.RelPath))
	if err != nil {
		return nil, fmt.Errorf("sdlctl: %s: %w", sf.RelPath, sdlerrors.New(sdlerrors.ParseError, "loading grammar", err))
	}
	if !ok {
		// Unsupported language: the file is indexed (so it still counts in
		// file_count) but contributes no symbols.
		return &processResult{pendingFile: *pf}, nil
	}

	root, err := adapter.Parse(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: %s: %w", sf.RelPath, sdlerrors.New(sdlerrors.ParseError, "parsing", err))
	}

	extractedSymbols := adapter.ExtractSymbols(root, content)
	extractedImports := adapter.ExtractImports(root, content)
	extractedCalls := adapter.ExtractCalls(root, content)

	if err := ix.dbIO.Do(ctx, func(context.Context) error {
		if err := ix.symbols.DeleteByFile(sf.FileID); err != nil {
			return err
		}
		return ix.imports.DeleteByFile(sf.FileID)
	}); err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "clearing old symbols/imports", err)
	}

	symbolByName := make(map[string]string, len(extractedSymbols)) // qualified name -> symbolId, for call->fromSymbol attribution
	for _, es := range extractedSymbols {
		qualifiedName := es.Name
		if es.ContainerName != "" {
			qualifiedName = es.ContainerName + "." + es.Name
		}
		symID := identity.SymbolID(identity.SymbolFingerprint{
			RepoID:        opts.RepoID,
			RelPath:       sf.RelPath,
			QualifiedName: qualifiedName,
			Kind:          es.Kind,
		})
		bodyHash := identity.ContentHash([]byte(fmt.Sprintf("%s:%d:%d:%s", es.Kind, es.StartLine, es.EndLine, es.Signature)))

		s := storage.Symbol{
			SymbolID:        symID,
			RepoID:          opts.RepoID,
			FileID:          sf.FileID,
			Name:            es.Name,
			QualifiedName:   qualifiedName,
			Kind:            es.Kind,
			StartLine:       es.StartLine,
			EndLine:         es.EndLine,
			Signature:       es.Signature,
			ContentHash:     bodyHash,
			AstFingerprint:  bodyHash,
			InvariantsJSON:  "[]",
			SideEffectsJSON: "[]",
		}

		if res, err := ix.summaries.Summarize(ctx, summaryprovider.Request{
			RepoID:    opts.RepoID,
			SymbolID:  symID,
			Name:      es.Name,
			Kind:      es.Kind,
			Signature: es.Signature,
			Snippet:   snippetLines(content, es.StartLine, es.EndLine),
		}); err != nil {
			ix.logger.Warn("summary provider call failed", map[string]interface{}{"symbolId": symID, "error": err.Error()})
		} else {
			s.Summary = res.Summary
		}

		if err := ix.dbIO.Do(ctx, func(context.Context) error { return ix.symbols.Insert(s) }); err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "inserting symbol", err)
		}

		pf.symbols = append(pf.symbols, s)
		symbolByName[qualifiedName] = symID
		symbolByName[es.Name] = symID
	}

	// A pseudo "module" symbol represents the file itself, giving import
	// edges (spec §3, Edge.kind=import) an endpoint independent of whether
	// the file declares any functions or types.
	moduleSymID := identity.SymbolID(identity.SymbolFingerprint{
		RepoID: opts.RepoID, RelPath: sf.RelPath, QualifiedName: sf.RelPath, Kind: "module",
	})
	moduleSym := storage.Symbol{
		SymbolID: moduleSymID, RepoID: opts.RepoID, FileID: sf.FileID,
		Name: filepath.Base(sf.RelPath), QualifiedName: sf.RelPath, Kind: "module",
		ContentHash:     contentHash,
		AstFingerprint:  contentHash,
		InvariantsJSON:  "[]",
		SideEffectsJSON: "[]",
	}
	if err := ix.dbIO.Do(ctx, func(context.Context) error { return ix.symbols.Insert(moduleSym) }); err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "inserting module symbol", err)
	}
	pf.symbols = append(pf.symbols, moduleSym)

	for _, ei := range extractedImports {
		imp := storage.Import{
			FileID: sf.FileID, RepoID: opts.RepoID,
			Source: ei.Source, ImportedName: ei.ImportedName, Namespace: ei.Namespace,
		}
		if err := ix.dbIO.Do(ctx, func(context.Context) error { return ix.imports.Insert(imp) }); err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "inserting import", err)
		}
		pf.imports = append(pf.imports, imp)
	}

	for _, ec := range extractedCalls {
		from := moduleSymID
		if owner, ok := enclosingSymbol(symbolByName, extractedSymbols, ec); ok {
			from = owner
		}
		pf.calls = append(pf.calls, pendingCall{fromSymbolID: from, call: ec})
	}

	if pf.isTestFile {
		if err := ix.dbIO.Do(ctx, func(context.Context) error { return ix.refs.DeleteByFile(sf.FileID) }); err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "clearing symbol references", err)
		}
	}

	return &processResult{pendingFile: *pf}, nil
}

// enclosingSymbol attributes a call site to the function/method whose line
// range contains it, falling back to the file's module symbol when no
// declared symbol encloses the call (e.g. top-level script code).
func enclosingSymbol(byName map[string]string, symbols []lang.ExtractedSymbol, call lang.ExtractedCall) (string, bool) {
	best := -1
	var bestID string
	for _, s := range symbols {
		if call.StartLine < s.StartLine || call.StartLine > s.EndLine {
			continue
		}
		span := s.EndLine - s.StartLine
		if best == -1 || span < best {
			qualifiedName := s.Name
			if s.ContainerName != "" {
				qualifiedName = s.ContainerName + "." + s.Name
			}
			if id, ok := byName[qualifiedName]; ok {
				best = span
				bestID = id
			}
		}
	}
	return bestID, best != -1
}
