package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/policy"
)

var (
	policyCheckRequestType    string
	policyCheckRepoID         string
	policyCheckSymbolID       string
	policyCheckExpectedLines  int
	policyCheckEstimatedTokens int
	policyCheckRequireIDs     bool
	policyCheckIdentifiers    []string
	policyCheckMaxCards       int
	policyCheckMaxTokens      int
	policyCheckRawCode        bool
	policyCheckBreakGlass     bool
)

var policyCheckCmd = &cobra.Command{
	Use:   "policy-check",
	Short: "Dry-run the policy engine against a synthetic request",
	Long: `policy-check evaluates the same ascending-priority rule pipeline
(spec §4.10) getContextSlice/getCard/getSkeleton run before building
anything, without touching the symbol graph. Useful for explaining why a
request would be denied or downgraded before an agent ever sends it.

Example:
  sdlctl policy-check --request-type getContextSlice --repo myservice --max-cards 200`,
	RunE: runPolicyCheck,
}

func init() {
	policyCheckCmd.Flags().StringVar(&policyCheckRequestType, "request-type", "getContextSlice", "requestType to evaluate")
	policyCheckCmd.Flags().StringVar(&policyCheckRepoID, "repo", "", "repoId")
	policyCheckCmd.Flags().StringVar(&policyCheckSymbolID, "symbol", "", "symbolId")
	policyCheckCmd.Flags().IntVar(&policyCheckExpectedLines, "expected-lines", 0, "expected raw-code window size")
	policyCheckCmd.Flags().IntVar(&policyCheckEstimatedTokens, "estimated-tokens", 0, "estimated raw-code token count")
	policyCheckCmd.Flags().BoolVar(&policyCheckRequireIDs, "require-identifiers", false, "simulate requireIdentifiers")
	policyCheckCmd.Flags().StringSliceVar(&policyCheckIdentifiers, "identifier", nil, "identifiersToFind entries")
	policyCheckCmd.Flags().IntVar(&policyCheckMaxCards, "max-cards", 0, "requested card budget")
	policyCheckCmd.Flags().IntVar(&policyCheckMaxTokens, "max-tokens", 0, "requested token budget")
	policyCheckCmd.Flags().BoolVar(&policyCheckRawCode, "raw-code", false, "simulate rawCodeRequested")
	policyCheckCmd.Flags().BoolVar(&policyCheckBreakGlass, "break-glass", false, "simulate a breakGlass override")
	rootCmd.AddCommand(policyCheckCmd)
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	decision := a.policyEng.Evaluate(policy.Context{
		RequestType:        policyCheckRequestType,
		RepoID:             policyCheckRepoID,
		SymbolID:           policyCheckSymbolID,
		ExpectedLines:      policyCheckExpectedLines,
		EstimatedTokens:    policyCheckEstimatedTokens,
		RequireIdentifiers: policyCheckRequireIDs,
		IdentifiersToFind:  policyCheckIdentifiers,
		BudgetMaxCards:     policyCheckMaxCards,
		BudgetMaxTokens:    policyCheckMaxTokens,
		RawCodeRequested:   policyCheckRawCode,
		BreakGlass:         policyCheckBreakGlass,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
	})
	return printJSON(decision)
}
