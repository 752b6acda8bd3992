package policy

import (
	"fmt"

	"github.com/sdlctl/sdlctl/internal/config"
)

// StandardRules builds spec §4.10's five default rules from cfg, in the
// priorities the spec assigns them.
func StandardRules(cfg config.PolicyConfig) []Rule {
	return []Rule{
		maxWindowLinesRule(cfg),
		maxWindowTokensRule(cfg),
		requireIdentifiersRule(cfg),
		budgetCapsRule(cfg),
		defaultDenyRawRule(cfg),
	}
}

func maxWindowLinesRule(cfg config.PolicyConfig) Rule {
	limit := cfg.MaxWindowLines
	return Rule{
		Name:     "maxWindowLines",
		Enabled:  true,
		Priority: 1,
		Evaluate: func(ctx Context) RuleResult {
			passed := ctx.ExpectedLines <= limit
			return RuleResult{
				Passed:   passed,
				Evidence: fmt.Sprintf("expectedLines=%d limit=%d", ctx.ExpectedLines, limit),
			}
		},
	}
}

func maxWindowTokensRule(cfg config.PolicyConfig) Rule {
	limit := cfg.MaxWindowTokens
	return Rule{
		Name:     "maxWindowTokens",
		Enabled:  true,
		Priority: 2,
		Evaluate: func(ctx Context) RuleResult {
			passed := ctx.EstimatedTokens <= limit
			result := RuleResult{
				Passed:   passed,
				Evidence: fmt.Sprintf("estimatedTokens=%d limit=%d", ctx.EstimatedTokens, limit),
			}
			if !passed {
				result.DowngradeTo = "skeleton"
			}
			return result
		},
	}
}

func requireIdentifiersRule(cfg config.PolicyConfig) Rule {
	return Rule{
		Name:     "requireIdentifiers",
		Enabled:  true,
		Priority: 11,
		Evaluate: func(ctx Context) RuleResult {
			if !ctx.RequireIdentifiers {
				return RuleResult{Passed: true, Evidence: "not required for this request"}
			}
			passed := len(ctx.IdentifiersToFind) > 0
			return RuleResult{
				Passed:   passed,
				Evidence: fmt.Sprintf("identifiersToFind count=%d", len(ctx.IdentifiersToFind)),
			}
		},
	}
}

func budgetCapsRule(cfg config.PolicyConfig) Rule {
	maxCards := cfg.BudgetCaps.MaxCards
	maxTokens := cfg.BudgetCaps.MaxEstimatedTokens
	return Rule{
		Name:     "budgetCaps",
		Enabled:  true,
		Priority: 12,
		Evaluate: func(ctx Context) RuleResult {
			passed := ctx.BudgetMaxCards <= maxCards && ctx.BudgetMaxTokens <= maxTokens
			return RuleResult{
				Passed: passed,
				Evidence: fmt.Sprintf("budget.maxCards=%d budget.maxEstimatedTokens=%d caps=%d/%d",
					ctx.BudgetMaxCards, ctx.BudgetMaxTokens, maxCards, maxTokens),
			}
		},
	}
}

func defaultDenyRawRule(cfg config.PolicyConfig) Rule {
	denyRaw := cfg.DefaultDenyRaw
	allowBreakGlass := cfg.AllowBreakGlass
	return Rule{
		Name:     "defaultDenyRaw",
		Enabled:  true,
		Priority: 13,
		Evaluate: func(ctx Context) RuleResult {
			if !ctx.RawCodeRequested || !denyRaw {
				return RuleResult{Passed: true, Evidence: "raw code not requested, or denyRaw disabled"}
			}
			passed := allowBreakGlass && ctx.BreakGlass
			return RuleResult{
				Passed:   passed,
				Evidence: fmt.Sprintf("rawCodeRequested=true allowBreakGlass=%v breakGlass=%v", allowBreakGlass, ctx.BreakGlass),
			}
		},
	}
}
