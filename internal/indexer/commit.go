package indexer

import (
	"time"

	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/metrics"
	"github.com/sdlctl/sdlctl/internal/storage"
)

// recomputeMetrics derives fan-in/fan-out/churn/testRefs for every symbol
// touched by this run and persists them (spec §4.8, run after every commit
// so cards never serve stale metrics).
func (ix *Indexer) recomputeMetrics(repoID, versionID string, pending []pendingFile) error {
	var allSymbols []storage.Symbol
	relPathByID := map[string]string{}
	for _, pf := range pending {
		for _, s := range pf.symbols {
			allSymbols = append(allSymbols, s)
			relPathByID[s.SymbolID] = pf.relPath
		}
	}

	var allEdges []storage.Edge
	for _, s := range allSymbols {
		out, err := ix.edges.OutgoingFrom(versionID, s.SymbolID)
		if err != nil {
			return err
		}
		allEdges = append(allEdges, out...)
	}

	repo, err := ix.repos.Get(repoID)
	repoRoot := ""
	if err == nil && repo != nil {
		repoRoot = repo.Root
	}

	computed := metrics.Compute(metrics.Inputs{
		RepoRoot:    repoRoot,
		Symbols:     allSymbols,
		Edges:       allEdges,
		RelPathByID: relPathByID,
	})

	for i := range computed {
		count, err := ix.refs.CountForSymbol(computed[i].SymbolID)
		if err != nil {
			return err
		}
		computed[i].TestRefCount = count

		if err := ix.metrics.Upsert(computed[i]); err != nil {
			return err
		}
	}

	return nil
}

// emitAuditEvent records the completed index run in the append-only audit
// log (spec §6). Audit write failures never fail the index run itself
// (spec §7: "audit failures are logged, not propagated").
func (ix *Indexer) emitAuditEvent(repoID, versionID string, result *Result) {
	details, err := storage.MarshalDetails(map[string]interface{}{
		"versionId":    versionID,
		"filesScanned": result.FilesScanned,
		"filesIndexed": result.FilesIndexed,
		"filesReused":  result.FilesReused,
		"filesSkipped": result.FilesSkipped,
		"symbolsTotal": result.SymbolsTotal,
		"edgesTotal":   result.EdgesTotal,
		"parseErrors":  len(result.ParseErrors),
	})
	if err != nil {
		ix.logger.Warn("sdlctl: failed to marshal audit details", map[string]interface{}{"error": err.Error()})
		return
	}

	ts := time.Now().UTC()
	event := storage.AuditEvent{
		Timestamp:   ts,
		RepoID:      repoID,
		Operation:   "index",
		DetailsJSON: details,
	}
	event.EntryHash = identity.ContentHash([]byte(ts.Format(time.RFC3339Nano) + repoID + event.Operation + details))

	if _, err := ix.audit.Append(event); err != nil {
		ix.logger.Warn("sdlctl: failed to append audit event", map[string]interface{}{"error": err.Error()})
	}
}
