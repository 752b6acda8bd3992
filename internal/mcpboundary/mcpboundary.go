// Package mcpboundary is sdlctl's narrow MCP tool surface: the wire
// protocol and tool registration spec.md scopes as an external
// collaborator ("the wire protocol carrying requests/responses ... are
// specified only at their interface to the core"). It registers one tool
// per core operation (getContextSlice, getCard, getSkeleton, getDelta,
// getAuditTrail, listRepos, indexRepo) against the real
// github.com/modelcontextprotocol/go-sdk/mcp server, the way
// standardbeagle-lci/internal/mcp/server.go registers its own tool set
// with mcp.NewServer + server.AddTool(&mcp.Tool{...}, handlerFunc) and
// google/jsonschema-go input schemas, blended with
// SimplyLiz-CodeMCP/internal/mcp/server.go's structural split between
// server construction and a Start() stdio loop. Every handler here is a
// thin translation layer: unmarshal arguments, call into
// internal/slice, internal/cardcache, internal/delta, internal/policy,
// internal/audit and internal/repo, and marshal the result back out —
// no domain logic lives in this package.
package mcpboundary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sdlctl/sdlctl/internal/audit"
	"github.com/sdlctl/sdlctl/internal/cardcache"
	"github.com/sdlctl/sdlctl/internal/config"
	"github.com/sdlctl/sdlctl/internal/delta"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/obsmetrics"
	"github.com/sdlctl/sdlctl/internal/policy"
	"github.com/sdlctl/sdlctl/internal/repo"
	"github.com/sdlctl/sdlctl/internal/slice"
)

// Boundary owns every dependency an MCP tool handler needs. One Boundary
// serves every configured repo; repoId selects among them per call, the
// way ckb's MCPServer dispatches a multi-repo request to the right
// registry entry.
type Boundary struct {
	server *mcp.Server

	repos      *repo.Service
	sliceBldr  *slice.Builder
	sliceCache *slice.Cache
	cards      *cardcache.Cache
	deltaEng   *delta.Engine
	policyEng  *policy.Engine
	auditLog   *audit.Log
	metrics    *obsmetrics.Registry
	logger     *logging.Logger

	sliceCfg config.SliceConfig
}

// Deps groups the constructor's dependencies.
type Deps struct {
	Repos      *repo.Service
	SliceBldr  *slice.Builder
	SliceCache *slice.Cache
	Cards      *cardcache.Cache
	DeltaEng   *delta.Engine
	PolicyEng  *policy.Engine
	AuditLog   *audit.Log
	Metrics    *obsmetrics.Registry
	Logger     *logging.Logger
	SliceCfg   config.SliceConfig
}

// New builds a Boundary and registers every tool against a fresh MCP
// server, named the way ckb names its own stdio server.
func New(d Deps) *Boundary {
	b := &Boundary{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "sdlctl",
			Version: "0.1.0",
		}, nil),
		repos:      d.Repos,
		sliceBldr:  d.SliceBldr,
		sliceCache: d.SliceCache,
		cards:      d.Cards,
		deltaEng:   d.DeltaEng,
		policyEng:  d.PolicyEng,
		auditLog:   d.AuditLog,
		metrics:    d.Metrics,
		logger:     d.Logger,
		sliceCfg:   d.SliceCfg,
	}
	b.registerTools()
	return b
}

// Run serves the MCP boundary over stdio until ctx is canceled, ckb's
// NewMCPServerForCLI + Start() shape collapsed into one call since sdlctl
// has no interactive REPL mode to branch on.
func (b *Boundary) Run(ctx context.Context) error {
	return b.server.Run(ctx, &mcp.StdioTransport{})
}

func (b *Boundary) registerTools() {
	b.server.AddTool(&mcp.Tool{
		Name:        "listRepos",
		Description: "List every configured repo and its latest indexed version, if any.",
		InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}},
	}, b.handleListRepos)

	b.server.AddTool(&mcp.Tool{
		Name:        "indexRepo",
		Description: "Run (or re-run) indexing for one configured repo, producing a new version.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId":    {Type: "string", Description: "Configured repo identifier"},
				"commitSha": {Type: "string", Description: "Commit SHA to record against the new version"},
				"force":     {Type: "boolean", Description: "Re-extract every file even if unchanged"},
			},
			Required: []string{"repoId"},
		},
	}, b.handleIndexRepo)

	b.server.AddTool(&mcp.Tool{
		Name: "getContextSlice",
		Description: "Build a budget-bounded context slice: a BFS-expanded neighborhood of the " +
			"symbol graph around entrySymbols or symbols matched from taskText.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId":             {Type: "string"},
				"versionId":          {Type: "string", Description: "Defaults to the repo's latest version"},
				"taskText":           {Type: "string", Description: "Free text used to derive entrySymbols when none are given"},
				"entrySymbols":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"maxCards":           {Type: "integer"},
				"maxEstimatedTokens": {Type: "integer"},
			},
			Required: []string{"repoId"},
		},
	}, b.handleGetContextSlice)

	b.server.AddTool(&mcp.Tool{
		Name:        "getCard",
		Description: "Fetch one symbol's full SymbolCard: signature, summary, dependencies and metrics.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId":    {Type: "string"},
				"symbolId":  {Type: "string"},
				"versionId": {Type: "string", Description: "Defaults to the repo's latest version"},
			},
			Required: []string{"repoId", "symbolId"},
		},
	}, b.handleGetCard)

	b.server.AddTool(&mcp.Tool{
		Name: "getSkeleton",
		Description: "Fetch one symbol's card with its summary, invariants, side effects and " +
			"dependencies dropped — the policy engine's lower-tier downgrade target.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId":    {Type: "string"},
				"symbolId":  {Type: "string"},
				"versionId": {Type: "string"},
			},
			Required: []string{"repoId", "symbolId"},
		},
	}, b.handleGetSkeleton)

	b.server.AddTool(&mcp.Tool{
		Name:        "getDelta",
		Description: "Compute added/modified/removed symbols and staleness tiers between two versions.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId":        {Type: "string"},
				"fromVersionId": {Type: "string"},
				"toVersionId":   {Type: "string"},
			},
			Required: []string{"repoId", "fromVersionId", "toVersionId"},
		},
	}, b.handleGetDelta)

	b.server.AddTool(&mcp.Tool{
		Name:        "getAuditTrail",
		Description: "List recent audit events (tool calls, policy decisions, index runs) in descending time order.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"repoId": {Type: "string"},
				"limit":  {Type: "integer"},
			},
		},
	}, b.handleGetAuditTrail)
}

// withTool wraps a handler with metrics, audit logging and panic recovery,
// the same three concerns standardbeagle-lci's recoverFromPanic plus ckb's
// audit-on-every-call idiom apply per request, collapsed into one wrapper
// since sdlctl's audit event shape is uniform across tools.
func (b *Boundary) withTool(name, repoID string, fn func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic recovered in mcp tool", map[string]interface{}{"tool": name, "panic": fmt.Sprint(r)})
			result, err = errorResult(sdlerrors.New(sdlerrors.InternalError, "internal error", fmt.Errorf("%v", r)))
		}
		outcome := "ok"
		if result != nil && result.IsError {
			outcome = "error"
		}
		if err != nil {
			outcome = "error"
		}
		if b.metrics != nil {
			b.metrics.ObserveToolCall(name, outcome)
		}
		b.auditLog.Append(audit.Event{
			RepoID:    repoID,
			Actor:     "mcp",
			Operation: name,
			Details:   map[string]interface{}{"elapsedMs": time.Since(start).Milliseconds(), "outcome": outcome},
		})
	}()
	return fn()
}

func (b *Boundary) handleListRepos(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.withTool("listRepos", "", func() (*mcp.CallToolResult, error) {
		entries, err := b.repos.List()
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(entries)
	})
}

type indexRepoParams struct {
	RepoID    string `json:"repoId"`
	CommitSHA string `json:"commitSha"`
	Force     bool   `json:"force"`
}

func (b *Boundary) handleIndexRepo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexRepoParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(sdlerrors.NewInvalidParameterError("arguments", err.Error()))
	}
	return b.withTool("indexRepo", p.RepoID, func() (*mcp.CallToolResult, error) {
		result, err := b.repos.Index(ctx, p.RepoID, p.CommitSHA, p.Force)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	})
}

type getContextSliceParams struct {
	RepoID             string   `json:"repoId"`
	VersionID          string   `json:"versionId"`
	TaskText           string   `json:"taskText"`
	EntrySymbols       []string `json:"entrySymbols"`
	MaxCards           int      `json:"maxCards"`
	MaxEstimatedTokens int      `json:"maxEstimatedTokens"`
}

func (b *Boundary) handleGetContextSlice(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p getContextSliceParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(sdlerrors.NewInvalidParameterError("arguments", err.Error()))
	}

	return b.withTool("getContextSlice", p.RepoID, func() (*mcp.CallToolResult, error) {
		versionID, err := b.resolveVersion(p.RepoID, p.VersionID)
		if err != nil {
			return errorResult(err)
		}

		budget := slice.DefaultBudget
		if p.MaxCards > 0 {
			budget.MaxCards = p.MaxCards
		}
		if p.MaxEstimatedTokens > 0 {
			budget.MaxEstimatedTokens = p.MaxEstimatedTokens
		}

		decision := b.policyEng.Evaluate(policy.Context{
			RequestType:     "getContextSlice",
			RepoID:          p.RepoID,
			BudgetMaxCards:  budget.MaxCards,
			BudgetMaxTokens: budget.MaxEstimatedTokens,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		})
		if !decision.Approved {
			return b.policyDeniedResult(decision)
		}
		if decision.DowngradeTo == "skeleton" {
			budget.MaxCards = 1
		}

		sl, err := b.sliceBldr.BuildCached(b.sliceCache, slice.Request{
			RepoID:       p.RepoID,
			VersionID:    versionID,
			TaskText:     p.TaskText,
			EntrySymbols: p.EntrySymbols,
			Budget:       budget,
		})
		if err != nil {
			return errorResult(err)
		}
		wire, err := slice.EncodeCompact(sl)
		if err != nil {
			return errorResult(sdlerrors.New(sdlerrors.InternalError, "encoding slice", err))
		}
		return jsonResult(wire)
	})
}

type getCardParams struct {
	RepoID    string `json:"repoId"`
	SymbolID  string `json:"symbolId"`
	VersionID string `json:"versionId"`
}

func (b *Boundary) handleGetCard(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.getCardTool(ctx, req, "getCard", "full")
}

func (b *Boundary) handleGetSkeleton(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.getCardTool(ctx, req, "getSkeleton", "skeleton")
}

func (b *Boundary) getCardTool(ctx context.Context, req *mcp.CallToolRequest, toolName, detailLevel string) (*mcp.CallToolResult, error) {
	var p getCardParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(sdlerrors.NewInvalidParameterError("arguments", err.Error()))
	}

	return b.withTool(toolName, p.RepoID, func() (*mcp.CallToolResult, error) {
		versionID, err := b.resolveVersion(p.RepoID, p.VersionID)
		if err != nil {
			return errorResult(err)
		}

		decision := b.policyEng.Evaluate(policy.Context{
			RequestType: toolName,
			RepoID:      p.RepoID,
			SymbolID:    p.SymbolID,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
		if !decision.Approved {
			return b.policyDeniedResult(decision)
		}
		if decision.DowngradeTo != "" {
			detailLevel = decision.DowngradeTo
		}

		key := cardcache.Key{SymbolID: p.SymbolID, VersionID: versionID, DetailLevel: detailLevel}
		if cached, etag, ok := b.cards.Get(key); ok {
			return jsonResult(map[string]interface{}{"card": cached, "etag": etag})
		}

		sl, err := b.sliceBldr.Build(slice.Request{
			RepoID:       p.RepoID,
			VersionID:    versionID,
			EntrySymbols: []string{p.SymbolID},
			Budget:       slice.Budget{MaxCards: 1, MaxEstimatedTokens: b.sliceCfg.MaxBudgetTokens},
		})
		if err != nil {
			return errorResult(err)
		}
		if len(sl.Cards) == 0 {
			return errorResult(sdlerrors.NewNoEntriesError([]string{p.SymbolID}))
		}

		card := sl.Cards[0]
		if detailLevel == "skeleton" {
			card = skeletonize(card)
		}
		etag, err := identity.HashCard(card)
		if err != nil {
			return errorResult(sdlerrors.New(sdlerrors.InternalError, "hashing card", err))
		}
		b.cards.Put(key, card, etag)
		return jsonResult(map[string]interface{}{"card": card, "etag": etag})
	})
}

// skeletonize drops everything but a card's identity, range and metrics —
// the lower-tier rendering a policy downgrade or an explicit getSkeleton
// call asks for (spec §6's nextBestAction="getSkeleton").
func skeletonize(c slice.SymbolCard) slice.SymbolCard {
	c.Summary = ""
	c.Invariants = nil
	c.SideEffects = nil
	c.Deps = slice.Deps{}
	c.DetailLevel = "skeleton"
	return c
}

type getDeltaParams struct {
	RepoID        string `json:"repoId"`
	FromVersionID string `json:"fromVersionId"`
	ToVersionID   string `json:"toVersionId"`
}

func (b *Boundary) handleGetDelta(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p getDeltaParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(sdlerrors.NewInvalidParameterError("arguments", err.Error()))
	}
	return b.withTool("getDelta", p.RepoID, func() (*mcp.CallToolResult, error) {
		result, err := b.deltaEng.Compute(p.RepoID, p.FromVersionID, p.ToVersionID)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	})
}

type getAuditTrailParams struct {
	RepoID string `json:"repoId"`
	Limit  int    `json:"limit"`
}

func (b *Boundary) handleGetAuditTrail(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p getAuditTrailParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(sdlerrors.NewInvalidParameterError("arguments", err.Error()))
	}
	limit := p.Limit
	if limit <= 0 {
		limit = audit.DefaultTrailLimit
	}
	return b.withTool("getAuditTrail", p.RepoID, func() (*mcp.CallToolResult, error) {
		events, err := b.auditLog.Trail(p.RepoID, limit)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(events)
	})
}

func (b *Boundary) resolveVersion(repoID, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	v, err := b.repos.LatestVersion(repoID)
	if err != nil {
		return "", err
	}
	return v.VersionID, nil
}

func (b *Boundary) policyDeniedResult(decision policy.Decision) (*mcp.CallToolResult, error) {
	if b.metrics != nil {
		effect := "deny"
		rule := decision.DeniedBy
		if decision.DowngradeTo != "" {
			effect = "downgrade"
			rule = "downgradeTo:" + decision.DowngradeTo
		}
		b.metrics.ObservePolicyDecision(rule, effect)
	}
	return errorResult(decision.AsError())
}

// jsonResult marshals v as the tool's sole text content block.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: marshaling tool response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}}, nil
}

// errorResult reports err inside the result object with IsError set,
// per the MCP spec's guidance that tool-level errors must be visible to
// the calling model rather than surfaced as a protocol-level error (the
// same rule standardbeagle-lci/internal/mcp/response.go's
// createErrorResponse comment quotes).
func errorResult(err error) (*mcp.CallToolResult, error) {
	envelope := map[string]interface{}{"error": map[string]interface{}{"message": err.Error()}}
	if sdlErr, ok := err.(*sdlerrors.SdlError); ok {
		inner := map[string]interface{}{"message": sdlErr.Message, "code": string(sdlErr.Code)}
		if sdlErr.NextBestAction != "" {
			inner["nextBestAction"] = sdlErr.NextBestAction
		}
		if len(sdlErr.RequiredFieldsForNext) > 0 {
			inner["requiredFieldsForNext"] = sdlErr.RequiredFieldsForNext
		}
		envelope["error"] = inner
	}
	body, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		body = []byte(`{"error":{"message":"internal error"}}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		IsError: true,
	}, nil
}
