// Package metrics computes the derived, per-symbol call-graph and churn
// statistics recomputed after every index commit (spec §3 Metrics, §4.8):
// fanIn/fanOut from the version's edge set and churn30d from git history.
// Compute leaves TestRefCount at zero; internal/indexer fills it in from the
// symbol_references inverted index. Shelling out to the
// git binary follows SimplyLiz-CodeMCP/internal/repostate/repostate.go's
// gitRevParse/gitDiff pattern rather than pulling in a git-plumbing library
// this codebase's ancestor never used.
package metrics

import (
	"os/exec"
	"strings"
	"time"

	"github.com/sdlctl/sdlctl/internal/storage"
)

// Inputs bundles what recomputation needs for one version: every symbol
// persisted in it, every edge persisted in it, and a way to resolve a
// symbol back to the repo-relative path whose churn it should inherit.
type Inputs struct {
	RepoRoot    string
	Symbols     []storage.Symbol
	Edges       []storage.Edge
	RelPathByID map[string]string // symbolId -> file relPath
}

// Compute derives one Metrics row per symbol in inputs.Symbols.
func Compute(inputs Inputs) []storage.Metrics {
	fanIn := map[string]int{}
	fanOut := map[string]int{}
	seenIn := map[string]map[string]bool{}
	seenOut := map[string]map[string]bool{}

	for _, e := range inputs.Edges {
		if !e.ToSymbolID.Valid {
			continue
		}
		if seenOut[e.FromSymbolID] == nil {
			seenOut[e.FromSymbolID] = map[string]bool{}
		}
		if !seenOut[e.FromSymbolID][e.ToSymbolID.String] {
			seenOut[e.FromSymbolID][e.ToSymbolID.String] = true
			fanOut[e.FromSymbolID]++
		}

		if seenIn[e.ToSymbolID.String] == nil {
			seenIn[e.ToSymbolID.String] = map[string]bool{}
		}
		if !seenIn[e.ToSymbolID.String][e.FromSymbolID] {
			seenIn[e.ToSymbolID.String][e.FromSymbolID] = true
			fanIn[e.ToSymbolID.String]++
		}
	}

	churnCache := map[string]int{}
	now := time.Now().UTC()

	results := make([]storage.Metrics, 0, len(inputs.Symbols))
	for _, s := range inputs.Symbols {
		relPath := inputs.RelPathByID[s.SymbolID]
		churn, ok := churnCache[relPath]
		if !ok {
			churn = churn30d(inputs.RepoRoot, relPath)
			churnCache[relPath] = churn
		}

		results = append(results, storage.Metrics{
			SymbolID:  s.SymbolID,
			FanIn:     fanIn[s.SymbolID],
			FanOut:    fanOut[s.SymbolID],
			Churn30d:  churn,
			UpdatedAt: now,
		})
	}
	return results
}

// churn30d counts commits touching relPath in the last 30 days. Repos that
// aren't git checkouts (or have no git binary available) report zero
// rather than failing the index run — churn is an enrichment signal, not a
// required one.
func churn30d(repoRoot, relPath string) int {
	if repoRoot == "" || relPath == "" {
		return 0
	}

	cmd := exec.Command("git", "log", "--since=30.days.ago", "--oneline", "--", relPath)
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, "\n"))
}
