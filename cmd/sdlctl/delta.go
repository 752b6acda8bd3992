package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deltaRepoID string
	deltaFrom   string
	deltaTo     string
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Compute the per-symbol stability delta between two versions",
	Long: `delta mirrors the getDelta MCP tool (spec §4.7): for each symbol
that was added, removed or modified between the two versions it reports
the change type; a modified symbol also gets interface/behavior/side-effects
stability flags scored against the configured weights. Unchanged symbols
are omitted.

Example:
  sdlctl delta --repo myservice --from v1 --to v2`,
	RunE: runDelta,
}

func init() {
	deltaCmd.Flags().StringVar(&deltaRepoID, "repo", "", "repoId (required)")
	deltaCmd.Flags().StringVar(&deltaFrom, "from", "", "fromVersionId (required)")
	deltaCmd.Flags().StringVar(&deltaTo, "to", "", "toVersionId (required)")
	_ = deltaCmd.MarkFlagRequired("repo")
	_ = deltaCmd.MarkFlagRequired("from")
	_ = deltaCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(deltaCmd)
}

func runDelta(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	result, err := a.deltaEng.Compute(deltaRepoID, deltaFrom, deltaTo)
	if err != nil {
		return fmt.Errorf("sdlctl: computing delta: %w", err)
	}
	return printJSON(result)
}
