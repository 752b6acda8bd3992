package slice

import (
	"encoding/json"
	"unicode"

	"github.com/sdlctl/sdlctl/internal/storage"
)

const maxLabelLength = 40

// truncateLabel enforces spec §6's "labels are truncated to 40 chars".
func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= maxLabelLength {
		return s
	}
	return string(r[:maxLabelLength])
}

// isExported approximates spec §3's Symbol.exported flag from the name
// alone: Go's own exportedness rule (leading uppercase), which is also a
// reasonable default for most of the other tag languages' public/private
// conventions when no richer visibility modifier was captured by
// extraction.
func isExported(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (b *Builder) buildCard(versionID string, s storage.Symbol, relPathByFileID map[string]string) (SymbolCard, error) {
	exported := isExported(s.Name)
	visibility := "private"
	if exported {
		visibility = "public"
	}

	card := SymbolCard{
		SymbolID:       s.SymbolID,
		File:           relPathByFileID[s.FileID],
		Range:          Range{s.StartLine, 0, s.EndLine, 0},
		Kind:           s.Kind,
		Name:           s.Name,
		Exported:       exported,
		Visibility:     visibility,
		Summary:        s.Summary,
		Invariants:     parseStringArray(s.InvariantsJSON),
		SideEffects:    parseStringArray(s.SideEffectsJSON),
		AstFingerprint: s.AstFingerprint,
		DetailLevel:    "full",
	}

	deps, err := b.buildDeps(versionID, s)
	if err != nil {
		return SymbolCard{}, err
	}
	card.Deps = deps

	if m, err := b.metrics.Get(s.SymbolID); err == nil && m != nil {
		card.Metrics = CardMetrics{FanIn: m.FanIn, FanOut: m.FanOut, Churn30d: m.Churn30d, TestRefs: m.TestRefCount}
	}

	return card, nil
}

// buildDeps resolves a symbol's outgoing call edges into readable callee
// names, and its file's import statements into readable import sources
// (spec §6: opaque symbolIds are hidden from user-facing labels). Imports
// come from the file's imports table rows, not from the "import" edges
// indexer/resolve.go produces.
func (b *Builder) buildDeps(versionID string, s storage.Symbol) (Deps, error) {
	var deps Deps

	out, err := b.edges.OutgoingFrom(versionID, s.SymbolID)
	if err != nil {
		return deps, err
	}
	for _, e := range out {
		if e.Kind != "call" {
			continue
		}
		label := e.UnresolvedName
		if e.ToSymbolID.Valid {
			if target, err := b.symbols.Get(e.ToSymbolID.String); err == nil && target != nil {
				label = target.Name
			} else {
				label = e.ToSymbolID.String
			}
		}
		deps.Calls = append(deps.Calls, truncateLabel(label))
	}

	imports, err := b.imports.ListByFile(s.FileID)
	if err != nil {
		return deps, err
	}
	for _, imp := range imports {
		deps.Imports = append(deps.Imports, truncateLabel(imp.Source))
	}

	return deps, nil
}

func parseStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
