// Package policy is the prioritized rule engine that gates slice and card
// requests (spec §4.10): an ascending-priority list of named rules, each
// either approving, denying, or downgrading a request, generalized from
// SimplyLiz-CodeMCP/internal/config/config.go's QueryPolicyConfig — a
// single flat struct of tunables consulted ad hoc by the query backend —
// into a pipeline of independently testable Rule values, since sdlctl's
// policy decisions need individual evidence and an auditHash per decision,
// not just a set of numbers the caller reads directly.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
)

// Tier names the priority band a rule's priority number falls into (spec
// §4.10: "1-10 critical, 11-20 feature, 21-30 optional").
type Tier string

const (
	TierCritical Tier = "critical"
	TierFeature  Tier = "feature"
	TierOptional Tier = "optional"
)

func TierOf(priority int) Tier {
	switch {
	case priority <= 10:
		return TierCritical
	case priority <= 20:
		return TierFeature
	default:
		return TierOptional
	}
}

// Context is everything a rule's evaluate function may read (spec §4.10's
// evaluate(context)).
type Context struct {
	RequestType        string
	RepoID              string
	SymbolID            string
	ExpectedLines       int
	EstimatedTokens     int
	RequireIdentifiers  bool
	IdentifiersToFind   []string
	BudgetMaxCards      int
	BudgetMaxTokens     int
	RawCodeRequested    bool
	BreakGlass          bool
	EvidenceUsed        []string
	Timestamp           string
}

// RuleResult is what a single rule's evaluation produces.
type RuleResult struct {
	Passed       bool
	Evidence     string
	DowngradeTo  string // "" | "skeleton" | "hotpath"
}

// Rule is one named, prioritized policy check.
type Rule struct {
	Name     string
	Enabled  bool
	Priority int
	Evaluate func(Context) RuleResult
}

// Decision is the outcome of evaluating the full rule set against a
// Context.
type Decision struct {
	Approved    bool
	DowngradeTo string
	DeniedBy    string
	Reason      string
	Evidence    []string
	AuditHash   string
}

// Engine holds the ordered rule set evaluated for every slice/card
// request.
type Engine struct {
	rules []Rule
}

// New builds an Engine from rules, sorted ascending by priority (spec
// §4.10: "Evaluation iterates in ascending priority").
func New(rules []Rule) *Engine {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Engine{rules: sorted}
}

// Evaluate runs the rule set against ctx. The first enabled rule that
// fails terminates evaluation with either a deny or a downgrade decision;
// if every rule passes, the decision approves (spec §4.10).
func (e *Engine) Evaluate(ctx Context) Decision {
	var evidence []string
	for _, rule := range e.rules {
		if !rule.Enabled {
			continue
		}
		result := rule.Evaluate(ctx)
		evidence = append(evidence, fmt.Sprintf("%s: %s", rule.Name, result.Evidence))
		if result.Passed {
			continue
		}
		decision := Decision{Approved: false, Evidence: evidence, Reason: result.Evidence}
		if result.DowngradeTo != "" {
			decision.DowngradeTo = result.DowngradeTo
		} else {
			decision.DeniedBy = rule.Name
		}
		decision.AuditHash = auditHash(ctx, evidence)
		return decision
	}
	return Decision{Approved: true, Evidence: evidence, AuditHash: auditHash(ctx, evidence)}
}

// auditHash computes spec §4.10's "SHA-256 of (timestamp, requestType,
// repoId, symbolId, evidenceUsed)".
func auditHash(ctx Context, evidence []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", ctx.Timestamp, ctx.RequestType, ctx.RepoID, ctx.SymbolID)
	for _, e := range evidence {
		fmt.Fprintf(h, "|%s", e)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AsError converts a denying Decision into the structured error envelope
// spec §6 defines for policy denials (nextBestAction + requiredFieldsForNext).
func (d Decision) AsError() *sdlerrors.SdlError {
	if d.Approved {
		return nil
	}
	if d.DowngradeTo != "" {
		return sdlerrors.NewPolicyDeniedError("downgrade", "downgraded to "+d.DowngradeTo).
			WithNextBestAction("get"+capitalize(d.DowngradeTo), "symbolId", "repoId")
	}
	return sdlerrors.NewPolicyDeniedError(d.DeniedBy, d.Reason)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}
