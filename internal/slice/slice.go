// Package slice builds budget-bounded context slices: a BFS-expanded
// neighborhood of the symbol graph around a set of entry symbols, packaged
// as SymbolCards plus the edges between them (spec §4.8). It plays the role
// SimplyLiz-CodeMCP/internal/compression/compressor.go plays for that
// codebase's query responses — applying a ResponseBudget to truncate a
// result set and recording why — generalized from a fixed set of
// response-shape-specific Compress* methods into one admission loop driven
// by a frontier score, since a context slice's shape (a connected subgraph)
// isn't known in advance the way a flat modules/symbols/items list is.
package slice

import (
	"github.com/sdlctl/sdlctl/internal/storage"
)

// Budget bounds one slice build (spec §4.8).
type Budget struct {
	MaxCards           int
	MaxEstimatedTokens int
}

// DefaultBudget matches spec §4.8's stated default.
var DefaultBudget = Budget{MaxCards: 60, MaxEstimatedTokens: 12000}

// edgeTypeWeight scales a next-hop's score by the kind of edge traversed
// (spec §4.8 step 2). "config" has no producer in internal/indexer today
// but is kept here since the weight table is part of the wire contract.
var edgeTypeWeight = map[string]float64{
	"call":   1.0,
	"import": 0.7,
	"config": 0.4,
}

// Deps names a symbol's outgoing dependencies by display name, not raw
// symbolId (spec §6: "Any opaque 64-hex symbolId reference is hidden in
// user-facing labels unless a readable name is available").
type Deps struct {
	Imports []string
	Calls   []string
}

// CardMetrics mirrors storage.Metrics, copied onto the card at build time
// rather than referenced, so a card remains self-contained once serialized.
type CardMetrics struct {
	FanIn    int
	FanOut   int
	Churn30d int
	TestRefs int
}

// Range is a symbol's source span: [startLine, startColumn, endLine, endColumn].
type Range [4]int

// SymbolCard is the per-symbol unit a slice is built from (spec §6 wire
// format table; field names here match the "Card field" column).
type SymbolCard struct {
	SymbolID       string
	File           string
	Range          Range
	Kind           string
	Name           string
	Exported       bool
	Visibility     string
	Summary        string
	Invariants     []string
	SideEffects    []string
	Deps           Deps
	Metrics        CardMetrics
	DetailLevel    string
	AstFingerprint string
}

// FrontierEntry is one symbol the BFS visited but did not admit before the
// budget was exhausted (spec §4.8 step 4's howToResume cursor source).
type FrontierEntry struct {
	SymbolID string
	Score    float64
	Why      string
}

// Resume tells the caller how to continue a truncated slice: either resume
// from the next symbolId in the frontier, or from a token offset into the
// admitted card list.
type Resume struct {
	Type  string // "cursor" | "tokenOffset"
	Value string
}

// Truncation records why and how much a slice build stopped short (spec
// §4.8 step 4).
type Truncation struct {
	Truncated    bool
	DroppedCards int
	DroppedEdges int
	HowToResume  *Resume
}

// WireEdge is one admitted edge expressed as an index pair into the card
// list, the shape spec §6's compact format needs to avoid repeating
// symbolIds.
type WireEdge struct {
	FromIdx    int
	ToIdx      int
	Type       string
	ConfidenceX100 int
}

// ContextSlice is the full output of one slice build (spec §4.8, §6).
type ContextSlice struct {
	RepoID       string
	VersionID    string
	Budget       Budget
	StartSymbols []string
	SymbolIndex  []string
	Cards        []SymbolCard
	Edges        []WireEdge
	Frontier     []FrontierEntry
	Truncation   Truncation
}

// Builder assembles ContextSlices from the persisted graph.
type Builder struct {
	symbols *storage.SymbolRepository
	edges   *storage.EdgeRepository
	files   *storage.FileRepository
	imports *storage.ImportRepository
	metrics *storage.MetricsRepository
}

// NewBuilder constructs a Builder over the repositories it needs.
func NewBuilder(symbols *storage.SymbolRepository, edges *storage.EdgeRepository, files *storage.FileRepository, imports *storage.ImportRepository, metrics *storage.MetricsRepository) *Builder {
	return &Builder{symbols: symbols, edges: edges, files: files, imports: imports, metrics: metrics}
}

// Request is one slice-build request (spec §4.8 input).
type Request struct {
	RepoID       string
	VersionID    string
	TaskText     string
	EntrySymbols []string
	Budget       Budget
}
