package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/slice"
)

var (
	sliceRepoID    string
	sliceVersionID string
	sliceTaskText  string
	sliceEntries   []string
	sliceMaxCards  int
	sliceMaxTokens int
)

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Build a budget-bounded context slice for a task",
	Long: `slice runs the same BFS-over-the-symbol-graph build the
getContextSlice MCP tool uses (spec §4.8) and prints its compact wire
encoding (spec §6).

Examples:
  sdlctl slice --repo myservice --task "fix the login timeout"
  sdlctl slice --repo myservice --entry sym:abc123 --max-cards 20`,
	RunE: runSlice,
}

func init() {
	sliceCmd.Flags().StringVar(&sliceRepoID, "repo", "", "repoId to slice (required)")
	sliceCmd.Flags().StringVar(&sliceVersionID, "version", "", "versionId (default: latest)")
	sliceCmd.Flags().StringVar(&sliceTaskText, "task", "", "free-text task description used to derive entry symbols")
	sliceCmd.Flags().StringSliceVar(&sliceEntries, "entry", nil, "explicit entry symbolIds")
	sliceCmd.Flags().IntVar(&sliceMaxCards, "max-cards", 0, "override the default card budget")
	sliceCmd.Flags().IntVar(&sliceMaxTokens, "max-tokens", 0, "override the default token budget")
	_ = sliceCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(sliceCmd)
}

func runSlice(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	versionID, err := resolveVersion(a, sliceRepoID, sliceVersionID)
	if err != nil {
		return err
	}

	budget := slice.DefaultBudget
	if sliceMaxCards > 0 {
		budget.MaxCards = sliceMaxCards
	}
	if sliceMaxTokens > 0 {
		budget.MaxEstimatedTokens = sliceMaxTokens
	}

	sl, err := a.sliceBldr.BuildCached(a.sliceCache, slice.Request{
		RepoID:       sliceRepoID,
		VersionID:    versionID,
		TaskText:     sliceTaskText,
		EntrySymbols: sliceEntries,
		Budget:       budget,
	})
	if err != nil {
		return fmt.Errorf("sdlctl: building slice: %w", err)
	}

	wire, err := slice.EncodeCompact(sl)
	if err != nil {
		return fmt.Errorf("sdlctl: encoding slice: %w", err)
	}
	return printJSON(wire)
}

// resolveVersion mirrors internal/mcpboundary.Boundary.resolveVersion for
// CLI callers that don't go through the MCP server.
func resolveVersion(a *app, repoID, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	v, err := a.repos.LatestVersion(repoID)
	if err != nil {
		return "", err
	}
	return v.VersionID, nil
}
