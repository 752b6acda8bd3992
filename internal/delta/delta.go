// Package delta computes the set of added, modified and removed symbols
// between two index versions and classifies each modification into a
// staleness tier (spec §4.7), the way
// SimplyLiz-CodeMCP/internal/incremental/detector.go classifies filesystem
// changes between two points in history — generalized here from file-level
// git diffs to symbol-level snapshot diffs, since sdlctl's unit of change
// is a symbol, not a file.
package delta

import (
	"sort"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/storage"
)

// ChangeType classifies one symbol's status between two versions (spec
// §4.7), mirroring the three-state naming the teacher's ChangeType enum
// uses for file-level changes.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// SignatureDiff carries the before/after canonicalized signature strings
// when they differ; nil (via SymbolDelta.SignatureDiff being unset) means
// interfaceStable.
type SignatureDiff struct {
	Before string
	After  string
}

// SetDiff is an added/removed-set diff over a parsed string array, used for
// both invariantDiff and sideEffectDiff (spec §4.7).
type SetDiff struct {
	Added   []string
	Removed []string
}

// IsEmpty reports whether a SetDiff represents no change at all, the
// "undefined" state spec §4.7 calls sideEffectsStable.
func (d *SetDiff) IsEmpty() bool {
	return d == nil || (len(d.Added) == 0 && len(d.Removed) == 0)
}

// SymbolDelta is one symbol's classification within a delta computation.
type SymbolDelta struct {
	SymbolID       string
	Name           string
	ChangeType     ChangeType
	SignatureDiff  *SignatureDiff
	InvariantDiff  *SetDiff
	SideEffectDiff *SetDiff

	InterfaceStable   bool
	BehaviorStable    bool
	SideEffectsStable bool
	StabilityScore    int
	RiskScore         int
}

// Result is the full output of one delta computation (spec §4.7).
type Result struct {
	RepoID        string
	FromVersionID string
	ToVersionID   string
	Changes       []SymbolDelta
}

// Weights are the stability-score weights applied per change (spec §4.7:
// "weights are configuration constants"); see config.DeltaConfig.
type Weights struct {
	Interface   int
	Behavior    int
	SideEffects int
}

// DefaultWeights matches spec §4.7's stabilityScore formula exactly.
var DefaultWeights = Weights{Interface: 40, Behavior: 40, SideEffects: 20}

// Engine computes deltas between two committed versions of the same repo.
type Engine struct {
	symbols  *storage.SymbolRepository
	versions *storage.VersionRepository
	weights  Weights
}

// New constructs a delta Engine. A zero-value Weights falls back to
// DefaultWeights so callers that don't thread config through still get the
// spec's default formula.
func New(symbols *storage.SymbolRepository, versions *storage.VersionRepository, weights Weights) *Engine {
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	return &Engine{symbols: symbols, versions: versions, weights: weights}
}

// Compute diffs fromVersionID against toVersionID for repoID (spec §4.7).
// Both versions must exist, belong to repoID, and have at least one
// symbol_versions snapshot; otherwise it returns a structured NoSnapshot
// error rather than crashing.
func (e *Engine) Compute(repoID, fromVersionID, toVersionID string) (*Result, error) {
	from, err := e.loadSnapshot(repoID, fromVersionID)
	if err != nil {
		return nil, err
	}
	to, err := e.loadSnapshot(repoID, toVersionID)
	if err != nil {
		return nil, err
	}

	fromByID := snapshotsByID(from)
	toByID := snapshotsByID(to)

	symbolIDs := make(map[string]bool, len(fromByID)+len(toByID))
	for id := range fromByID {
		symbolIDs[id] = true
	}
	for id := range toByID {
		symbolIDs[id] = true
	}

	names, err := e.symbolNames(repoID)
	if err != nil {
		return nil, err
	}

	changes := make([]SymbolDelta, 0, len(symbolIDs))
	for id := range symbolIDs {
		fromSV, inFrom := fromByID[id]
		toSV, inTo := toByID[id]

		var sd SymbolDelta
		sd.SymbolID = id
		sd.Name = names[id]

		switch {
		case inTo && !inFrom:
			sd.ChangeType = ChangeAdded
			sd.RiskScore = 100
		case inFrom && !inTo:
			sd.ChangeType = ChangeRemoved
			sd.RiskScore = 100
		default:
			if !snapshotsEqual(fromSV, toSV) {
				sd.ChangeType = ChangeModified
				classify(&sd, fromSV, toSV, e.weights)
			} else {
				continue // unchanged, not part of the delta
			}
		}

		changes = append(changes, sd)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].SymbolID < changes[j].SymbolID })

	return &Result{RepoID: repoID, FromVersionID: fromVersionID, ToVersionID: toVersionID, Changes: changes}, nil
}

// loadSnapshot validates a version belongs to repoID and has at least one
// symbol_versions row, returning a structured NoSnapshot error otherwise
// (spec §4.7: "Missing snapshots for either version -> structured
// NoSnapshot error, not a crash").
func (e *Engine) loadSnapshot(repoID, versionID string) ([]storage.SymbolVersion, error) {
	v, err := e.versions.Get(versionID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading version", err)
	}
	if v == nil || v.RepoID != repoID {
		return nil, sdlerrors.New(sdlerrors.NoSnapshot, "no such version for repo: "+versionID, nil)
	}

	snaps, err := e.symbols.ListSnapshotsByVersion(versionID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading symbol snapshots", err)
	}
	if len(snaps) == 0 {
		return nil, sdlerrors.New(sdlerrors.NoSnapshot, "version has no symbol snapshots: "+versionID, nil)
	}
	return snaps, nil
}

// symbolNames best-effort resolves display names for every symbol this repo
// currently knows about; a lookup miss (symbol since hard-deleted) leaves
// the name blank rather than failing the whole computation.
func (e *Engine) symbolNames(repoID string) (map[string]string, error) {
	all, err := e.symbols.ListByRepo(repoID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading symbols for name lookup", err)
	}
	names := make(map[string]string, len(all))
	for _, s := range all {
		names[s.SymbolID] = s.Name
	}
	return names, nil
}

func snapshotsByID(snaps []storage.SymbolVersion) map[string]storage.SymbolVersion {
	m := make(map[string]storage.SymbolVersion, len(snaps))
	for _, sv := range snaps {
		m[sv.SymbolID] = sv
	}
	return m
}

func snapshotsEqual(a, b storage.SymbolVersion) bool {
	return a.AstFingerprint == b.AstFingerprint &&
		a.Summary == b.Summary &&
		a.SignatureJSON == b.SignatureJSON &&
		a.InvariantsJSON == b.InvariantsJSON &&
		a.SideEffectsJSON == b.SideEffectsJSON
}

// classify fills in the three diffs and the stability/risk scores for one
// modified symbol (spec §4.7).
func classify(sd *SymbolDelta, from, to storage.SymbolVersion, w Weights) {
	if from.SignatureJSON != to.SignatureJSON {
		sd.SignatureDiff = &SignatureDiff{Before: from.SignatureJSON, After: to.SignatureJSON}
	}
	sd.InterfaceStable = sd.SignatureDiff == nil

	sd.BehaviorStable = from.AstFingerprint == to.AstFingerprint && from.Summary == to.Summary

	invDiff := diffStringSets(from.InvariantsJSON, to.InvariantsJSON)
	if !invDiff.IsEmpty() {
		sd.InvariantDiff = invDiff
	}

	seDiff := diffStringSets(from.SideEffectsJSON, to.SideEffectsJSON)
	if !seDiff.IsEmpty() {
		sd.SideEffectDiff = seDiff
	}
	sd.SideEffectsStable = sd.SideEffectDiff == nil

	score := 0
	if sd.InterfaceStable {
		score += w.Interface
	}
	if sd.BehaviorStable {
		score += w.Behavior
	}
	if sd.SideEffectsStable {
		score += w.SideEffects
	}
	sd.StabilityScore = score

	risk := 100 - score
	sd.RiskScore = clamp(risk, 0, 100)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
