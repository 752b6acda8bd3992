package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/audit"
)

var (
	auditTailRepoID string
	auditTailLimit  int
)

var auditTailCmd = &cobra.Command{
	Use:   "audit-tail",
	Short: "Print the most recent audit events",
	Long: `audit-tail mirrors the getAuditTrail MCP tool (spec §4.12): the
append-only log of every tool call, its outcome, and elapsed time, with
free-text fields pseudonymized when redaction is enabled.

Examples:
  sdlctl audit-tail
  sdlctl audit-tail --repo myservice --limit 20`,
	RunE: runAuditTail,
}

func init() {
	auditTailCmd.Flags().StringVar(&auditTailRepoID, "repo", "", "filter to one repoId (default: all repos)")
	auditTailCmd.Flags().IntVar(&auditTailLimit, "limit", audit.DefaultTrailLimit, "maximum events to print")
	rootCmd.AddCommand(auditTailCmd)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	events, err := a.auditLog.Trail(auditTailRepoID, auditTailLimit)
	if err != nil {
		return fmt.Errorf("sdlctl: reading audit trail: %w", err)
	}
	return printJSON(events)
}
