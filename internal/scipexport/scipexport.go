// Package scipexport serializes one index version's symbol graph to the
// SCIP protobuf wire format, a one-way export for interoperating with SCIP
// tooling (precise code navigation in editors, Sourcegraph). This is the
// mirror image of SimplyLiz-CodeMCP/internal/backends/scip/loader.go, which
// reads a SCIP index produced by an external indexer into that codebase's
// query engine; here sdlctl is the producer instead of the consumer, so the
// conversion runs storage.Symbol/storage.Edge -> scip.Index rather than the
// reverse.
//
// Symbol strings emitted here are stable, opaque identifiers scoped to one
// repo and version rather than full SCIP package/descriptor monikers —
// sdlctl has no package-manager-level dependency resolution to ground a
// spec-compliant descriptor in, so cross-repo symbol linking is left to a
// consumer that already understands sdlctl's own symbolId scheme.
package scipexport

import (
	"fmt"
	"os"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/storage"
)

const toolName = "sdlctl"

// symbolString builds a stable, version-scoped SCIP symbol identifier for
// one sdlctl symbol.
func symbolString(repoID, versionID, symbolID string) string {
	return fmt.Sprintf("sdlctl %s %s %s", repoID, versionID, symbolID)
}

// symbolRoleDefinition is SCIP's Definition role bit (scip.proto
// SymbolRole.Definition = 1), kept as a plain constant because
// Occurrence.SymbolRoles is an int32 bitset rather than the binding's
// SymbolRole enum type.
const symbolRoleDefinition = 1

// Export builds a scip.Index for one (repoId, versionId) snapshot from its
// persisted files and symbols.
func Export(repoID, versionID string, files []storage.File, symbolsByFile map[string][]storage.Symbol) *scippb.Index {
	idx := &scippb.Index{
		Metadata: &scippb.Metadata{
			ProjectRoot: repoID,
			ToolInfo: &scippb.ToolInfo{
				Name:    toolName,
				Version: versionID,
			},
		},
	}

	for _, f := range files {
		if f.Skipped {
			continue
		}
		doc := &scippb.Document{
			RelativePath: f.RelPath,
			Language:     f.Language,
		}

		for _, s := range symbolsByFile[f.FileID] {
			symbol := symbolString(repoID, versionID, s.SymbolID)

			doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
				Symbol:          symbol,
				DisplayName:     s.Name,
				Documentation:   docLines(s),
				EnclosingSymbol: s.QualifiedName,
			})

			doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
				Range:       []int32{int32(s.StartLine), 0, int32(s.EndLine), 0},
				Symbol:      symbol,
				SymbolRoles: symbolRoleDefinition,
			})
		}

		idx.Documents = append(idx.Documents, doc)
	}

	return idx
}

func docLines(s storage.Symbol) []string {
	var lines []string
	if s.Signature != "" {
		lines = append(lines, s.Signature)
	}
	if s.DocComment != "" {
		lines = append(lines, s.DocComment)
	}
	if s.Summary != "" {
		lines = append(lines, s.Summary)
	}
	return lines
}

// WriteFile serializes idx as binary protobuf to path, the format SCIP
// tooling (scip print, sourcegraph-cli) expects on disk.
func WriteFile(path string, idx *scippb.Index) error {
	data, err := proto.Marshal(idx)
	if err != nil {
		return sdlerrors.New(sdlerrors.InternalError, "marshaling SCIP index", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sdlerrors.New(sdlerrors.InternalError, "writing SCIP index to "+path, err)
	}
	return nil
}
