package indexer

import (
	"fmt"
	"path"
	"strings"

	"github.com/sdlctl/sdlctl/internal/confidence"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/lang"
	"github.com/sdlctl/sdlctl/internal/storage"
)

// edgeTypeCall and edgeTypeImport are the two edge kinds this indexer
// resolves; config is enumerated in the data model (spec §3, Edge.kind)
// but has no concrete source in this component design and is never
// produced here.
const (
	edgeTypeCall   = "call"
	edgeTypeImport = "import"
)

// runPass2 rebuilds the repo-wide lookup maps from pass 1's output and
// resolves every pending call and relative import against them, persisting
// one edge per resolution attempt (spec §4.6 step 4, §4.4 resolution
// ladder).
func (ix *Indexer) runPass2(repoID, versionID string, pending []pendingFile) (int, error) {
	nameToSymbolIDs := map[string][]string{}
	relPathToModuleSymbol := map[string]string{}
	relPathSet := map[string]bool{}

	for _, pf := range pending {
		relPathSet[pf.relPath] = true
		for _, s := range pf.symbols {
			nameToSymbolIDs[s.Name] = appendUnique(nameToSymbolIDs[s.Name], s.SymbolID)
			if s.Kind == "module" {
				relPathToModuleSymbol[pf.relPath] = s.SymbolID
			}
		}
	}

	edgeCount := 0

	for _, pf := range pending {
		importedNameToSymbolIDs, namespaceImports := buildImportMaps(pf.imports, nameToSymbolIDs)

		for _, pc := range pf.calls {
			resolution := lang.ResolveCall(lang.ResolutionContext{
				ImportedNameToSymbolIDs: importedNameToSymbolIDs,
				NamespaceImports:        namespaceImports,
				NameToSymbolIDs:         nameToSymbolIDs,
				Call:                    pc.call,
			})

			toID := ""
			if resolution.IsResolved {
				toID = resolution.TargetSymbolIDs[0]
			}
			target := toID
			if target == "" {
				target = unresolvedName("call", callDisplayName(pc.call))
			}

			edge := storage.Edge{
				EdgeID:           identity.EdgeID(versionID, pc.fromSymbolID, target, edgeTypeCall),
				RepoID:           repoID,
				VersionID:        versionID,
				FromSymbolID:     pc.fromSymbolID,
				Kind:             edgeTypeCall,
				Confidence:       confidence.Calibrate(confidence.Strategy(resolution.Strategy), resolution.CandidateCount, nil),
				ResolutionMethod: resolution.Strategy,
			}
			if toID != "" {
				edge.ToSymbolID.String, edge.ToSymbolID.Valid = toID, true
			} else {
				edge.UnresolvedName = target
			}

			if err := ix.edges.Insert(edge); err != nil {
				return edgeCount, sdlerrors.New(sdlerrors.DatabaseError, "inserting call edge", err)
			}
			edgeCount++
		}

		if pf.isTestFile {
			if err := ix.recordTestReferences(pf, nameToSymbolIDs); err != nil {
				return edgeCount, err
			}
		}

		fromModule, ok := relPathToModuleSymbol[pf.relPath]
		if !ok {
			continue
		}
		for _, imp := range pf.imports {
			if !strings.HasPrefix(imp.Source, ".") {
				continue // external package, out of repo scope
			}
			targetPath, found := resolveImportPath(pf.relPath, imp.Source, relPathSet)
			strategy := confidence.StrategyExact
			target := unresolvedName("import", imp.Source)
			toID := ""
			if found {
				toID = relPathToModuleSymbol[targetPath]
				target = toID
			} else {
				strategy = confidence.StrategyUnresolved
			}

			edge := storage.Edge{
				EdgeID:           identity.EdgeID(versionID, fromModule, target, edgeTypeImport),
				RepoID:           repoID,
				VersionID:        versionID,
				FromSymbolID:     fromModule,
				Kind:             edgeTypeImport,
				Confidence:       confidence.Calibrate(strategy, 0, nil),
				ResolutionMethod: string(strategy),
			}
			if toID != "" {
				edge.ToSymbolID.String, edge.ToSymbolID.Valid = toID, true
			} else {
				edge.UnresolvedName = target
			}

			if err := ix.edges.Insert(edge); err != nil {
				return edgeCount, sdlerrors.New(sdlerrors.DatabaseError, "inserting import edge", err)
			}
			edgeCount++
		}
	}

	return edgeCount, nil
}

// recordTestReferences populates the symbol_references inverted index
// (spec §3, SymbolReference) from a test file's call sites: a test calling
// a bare name is a textual reference to every repo symbol sharing that
// name, the same loose, name-based matching the resolution ladder itself
// falls back to for heuristic calls.
func (ix *Indexer) recordTestReferences(pf pendingFile, nameToSymbolIDs map[string][]string) error {
	for _, pc := range pf.calls {
		ids, ok := nameToSymbolIDs[pc.call.CalleeName]
		if !ok {
			continue
		}
		for _, symbolID := range ids {
			if err := ix.refs.Insert(storage.SymbolReference{
				SymbolID: symbolID,
				FileID:   pf.fileID,
				Line:     pc.call.StartLine,
				Kind:     "test",
			}); err != nil {
				return sdlerrors.New(sdlerrors.DatabaseError, "inserting symbol reference", err)
			}
		}
	}
	return nil
}

func callDisplayName(c lang.ExtractedCall) string {
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.CalleeName
	}
	return c.CalleeName
}

func unresolvedName(kind, name string) string {
	return fmt.Sprintf("unresolved:%s:%s", kind, name)
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// buildImportMaps turns one file's persisted imports into the two maps the
// resolution ladder needs: importedNameToSymbolIds for bare named imports,
// namespaceImports keyed by the local alias (spec §4.4 step 2-3).
func buildImportMaps(imports []storage.Import, nameToSymbolIDs map[string][]string) (map[string][]string, map[string]map[string]string) {
	importedNameToSymbolIDs := map[string][]string{}
	namespaceImports := map[string]map[string]string{}

	for _, imp := range imports {
		if imp.Namespace {
			ns := map[string]string{}
			for name, ids := range nameToSymbolIDs {
				if len(ids) == 1 {
					ns[name] = ids[0]
				}
			}
			namespaceImports[imp.ImportedName] = ns
			continue
		}
		if ids, ok := nameToSymbolIDs[imp.ImportedName]; ok {
			importedNameToSymbolIDs[imp.ImportedName] = ids
		}
	}

	return importedNameToSymbolIDs, namespaceImports
}

// resolveImportPath resolves a relative import specifier against the set of
// scanned repo paths, trying the same candidate suffixes a bundler would
// (spec §8 seed scenario 5: "../config" from src/mcp/tools/ resolving
// against src/mcp/config.ts, index.ts, etc.).
func resolveImportPath(fromRelPath, source string, relPathSet map[string]bool) (string, bool) {
	dir := path.Dir(fromRelPath)
	joined := path.Clean(path.Join(dir, source))

	candidates := []string{joined}
	exts := []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go"}
	for _, ext := range exts {
		candidates = append(candidates, joined+ext)
	}
	for _, ext := range exts {
		candidates = append(candidates, path.Join(joined, "index"+ext))
	}

	for _, c := range candidates {
		if relPathSet[c] {
			return c, true
		}
	}
	return "", false
}
