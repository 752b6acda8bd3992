//go:build cgo

package mcpboundary

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/audit"
	"github.com/sdlctl/sdlctl/internal/cardcache"
	"github.com/sdlctl/sdlctl/internal/config"
	"github.com/sdlctl/sdlctl/internal/delta"
	"github.com/sdlctl/sdlctl/internal/indexer"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/obsmetrics"
	"github.com/sdlctl/sdlctl/internal/policy"
	"github.com/sdlctl/sdlctl/internal/redaction"
	"github.com/sdlctl/sdlctl/internal/repo"
	"github.com/sdlctl/sdlctl/internal/slice"
	"github.com/sdlctl/sdlctl/internal/storage"
)

func newTestBoundary(t *testing.T, root string) *Boundary {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})
	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := indexer.New(db, indexer.Limits{Workers: 2, QueueTimeoutMs: 2000, TaskTimeoutMs: 2000}, logger)
	t.Cleanup(ix.Stop)

	repoSvc := repo.New([]config.RepoConfig{{RepoID: "r1", Root: root}}, storage.NewRepoRepository(db), storage.NewVersionRepository(db), ix, logger)
	require.NoError(t, repoSvc.EnsureRegistered())

	sliceBldr := slice.NewBuilder(
		storage.NewSymbolRepository(db), storage.NewEdgeRepository(db),
		storage.NewFileRepository(db), storage.NewImportRepository(db), storage.NewMetricsRepository(db),
	)
	sliceCache, err := slice.NewCache(64)
	require.NoError(t, err)
	cardCache, err := cardcache.New(64, 1<<20)
	require.NoError(t, err)
	deltaEng := delta.New(storage.NewSymbolRepository(db), storage.NewVersionRepository(db), delta.Weights{Interface: 40, Behavior: 40, SideEffects: 20})

	policyCfg := config.Default().Policy
	policyEng := policy.New(policy.StandardRules(policyCfg))

	redactor, err := redaction.New(false, "")
	require.NoError(t, err)
	auditLog := audit.New(storage.NewAuditRepository(db), redactor)

	return New(Deps{
		Repos:      repoSvc,
		SliceBldr:  sliceBldr,
		SliceCache: sliceCache,
		Cards:      cardCache,
		DeltaEng:   deltaEng,
		PolicyEng:  policyEng,
		AuditLog:   auditLog,
		Metrics:    obsmetrics.New(),
		Logger:     logger,
		SliceCfg:   config.Default().Slice,
	})
}

func callTool(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), params map[string]interface{}) (map[string]interface{}, *mcp.CallToolResult) {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	result, err := handler(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	// List tools return JSON arrays; only object results are returned as a map.
	var decoded interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	asMap, _ := decoded.(map[string]interface{})
	return asMap, result
}

func TestListRepos_ReturnsConfiguredRepo(t *testing.T) {
	b := newTestBoundary(t, t.TempDir())
	_, raw := callTool(t, b.handleListRepos, map[string]interface{}{})
	assert.False(t, raw.IsError)
	assert.Contains(t, raw.Content[0].(*mcp.TextContent).Text, `"RepoID":"r1"`)
}

func TestIndexRepoThenGetContextSlice(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))
	b := newTestBoundary(t, root)

	_, raw := callTool(t, b.handleIndexRepo, map[string]interface{}{"repoId": "r1"})
	require.False(t, raw.IsError)

	sliceResult, raw := callTool(t, b.handleGetContextSlice, map[string]interface{}{
		"repoId":       "r1",
		"entrySymbols": []string{},
		"taskText":     "Run",
	})
	require.False(t, raw.IsError)
	assert.Equal(t, "r1", sliceResult["rid"])
}

func TestGetContextSlice_UnknownRepoReturnsErrorResult(t *testing.T) {
	b := newTestBoundary(t, t.TempDir())
	_, raw := callTool(t, b.handleGetContextSlice, map[string]interface{}{"repoId": "does-not-exist"})
	assert.True(t, raw.IsError)
}

func TestGetCardThenGetSkeleton(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))
	b := newTestBoundary(t, root)
	_, raw := callTool(t, b.handleIndexRepo, map[string]interface{}{"repoId": "r1"})
	require.False(t, raw.IsError)

	sliceResult, raw := callTool(t, b.handleGetContextSlice, map[string]interface{}{"repoId": "r1", "taskText": "Run"})
	require.False(t, raw.IsError)
	cards, ok := sliceResult["c"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, cards)
	card := cards[0].(map[string]interface{})
	symbolID := card["sid"].(string)

	full, raw := callTool(t, b.handleGetCard, map[string]interface{}{"repoId": "r1", "symbolId": symbolID})
	require.False(t, raw.IsError)
	fullCard := full["card"].(map[string]interface{})
	assert.Equal(t, "full", fullCard["DetailLevel"])

	skeleton, raw := callTool(t, b.handleGetSkeleton, map[string]interface{}{"repoId": "r1", "symbolId": symbolID})
	require.False(t, raw.IsError)
	skeletonCard := skeleton["card"].(map[string]interface{})
	assert.Equal(t, "skeleton", skeletonCard["DetailLevel"])
}

func TestGetAuditTrail_RecordsPriorToolCalls(t *testing.T) {
	b := newTestBoundary(t, t.TempDir())
	_, _ = callTool(t, b.handleListRepos, map[string]interface{}{})

	_, raw := callTool(t, b.handleGetAuditTrail, map[string]interface{}{"repoId": "", "limit": 10})
	require.False(t, raw.IsError)
	assert.Contains(t, raw.Content[0].(*mcp.TextContent).Text, `"Operation":"listRepos"`)
}
