//go:build cgo

package slice

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/indexer"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/storage"
)

func newTestBuilder(t *testing.T) (*Builder, *storage.DB, *indexer.Indexer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})
	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := indexer.New(db, indexer.Limits{Workers: 2, QueueTimeoutMs: 2000, TaskTimeoutMs: 2000}, logger)
	t.Cleanup(ix.Stop)

	builder := NewBuilder(
		storage.NewSymbolRepository(db),
		storage.NewEdgeRepository(db),
		storage.NewFileRepository(db),
		storage.NewImportRepository(db),
		storage.NewMetricsRepository(db),
	)
	return builder, db, ix
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestBuild_ExpandsFromEntrySymbol(t *testing.T) {
	builder, db, ix := newTestBuilder(t)
	root := t.TempDir()
	writeFile(t, root, "widget.go", `package main

func NewWidget() *Widget {
	return &Widget{}
}

type Widget struct{}

func Run() {
	NewWidget()
}
`)
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))
	result, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	symbols, err := storage.NewSymbolRepository(db).ListByRepo("r1")
	require.NoError(t, err)
	var runID string
	for _, s := range symbols {
		if s.Name == "Run" {
			runID = s.SymbolID
		}
	}
	require.NotEmpty(t, runID)

	out, err := builder.Build(Request{
		RepoID:       "r1",
		VersionID:    result.VersionID,
		EntrySymbols: []string{runID},
		Budget:       DefaultBudget,
	})
	require.NoError(t, err)
	assert.False(t, out.Truncation.Truncated)
	assert.Contains(t, out.SymbolIndex, runID)
	names := make([]string, 0, len(out.Cards))
	for _, c := range out.Cards {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Run")
	assert.Contains(t, names, "NewWidget")
}

func TestBuild_RespectsMaxCardsBudget(t *testing.T) {
	builder, db, ix := newTestBuilder(t)
	root := t.TempDir()
	writeFile(t, root, "chain.go", `package main

func A() { B() }
func B() { C() }
func C() { D() }
func D() {}
`)
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))
	result, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	symbols, err := storage.NewSymbolRepository(db).ListByRepo("r1")
	require.NoError(t, err)
	var aID string
	for _, s := range symbols {
		if s.Name == "A" {
			aID = s.SymbolID
		}
	}
	require.NotEmpty(t, aID)

	out, err := builder.Build(Request{
		RepoID:       "r1",
		VersionID:    result.VersionID,
		EntrySymbols: []string{aID},
		Budget:       Budget{MaxCards: 2},
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Cards), 2)
	assert.True(t, out.Truncation.Truncated)
	assert.NotNil(t, out.Truncation.HowToResume)
}

func TestBuild_NoEntriesWithoutSymbolsOrText(t *testing.T) {
	builder, db, _ := newTestBuilder(t)
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: t.TempDir()}))

	_, err := builder.Build(Request{RepoID: "r1", VersionID: "v1"})
	require.Error(t, err)
	sdlErr, ok := err.(*sdlerrors.SdlError)
	require.True(t, ok)
	assert.Equal(t, sdlerrors.NoEntries, sdlErr.Code)
}

func TestWireRoundTrip(t *testing.T) {
	original := &ContextSlice{
		RepoID:       "r1",
		VersionID:    "v1",
		Budget:       Budget{MaxCards: 10, MaxEstimatedTokens: 500},
		StartSymbols: []string{"sym1"},
		SymbolIndex:  []string{"sym1", "sym2"},
		Cards: []SymbolCard{
			{
				SymbolID:    "sym1",
				File:        "widget.go",
				Range:       Range{1, 0, 5, 1},
				Kind:        "function",
				Name:        "Run",
				Exported:    true,
				Visibility:  "public",
				Summary:     "runs the widget",
				Invariants:  []string{"never nil"},
				SideEffects: []string{"writes stdout"},
				Deps:        Deps{Calls: []string{"NewWidget"}},
				Metrics:     CardMetrics{FanIn: 1, FanOut: 2},
				DetailLevel: "full",
			},
		},
		Edges: []WireEdge{{FromIdx: 0, ToIdx: 0, Type: "call", ConfidenceX100: 90}},
		Truncation: Truncation{
			Truncated:    true,
			DroppedCards: 3,
			HowToResume:  &Resume{Type: "cursor", Value: "sym9"},
		},
	}

	encoded, err := EncodeCompact(original)
	require.NoError(t, err)
	decoded, err := DecodeCompact(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.RepoID, decoded.RepoID)
	assert.Equal(t, original.VersionID, decoded.VersionID)
	assert.Equal(t, original.StartSymbols, decoded.StartSymbols)
	assert.Equal(t, original.SymbolIndex, decoded.SymbolIndex)
	require.Len(t, decoded.Cards, 1)
	assert.Equal(t, original.Cards[0].Name, decoded.Cards[0].Name)
	assert.Equal(t, original.Cards[0].Invariants, decoded.Cards[0].Invariants)
	assert.Equal(t, original.Cards[0].Deps.Calls, decoded.Cards[0].Deps.Calls)
	assert.Equal(t, original.Edges, decoded.Edges)
	assert.True(t, decoded.Truncation.Truncated)
	assert.Equal(t, original.Truncation.HowToResume.Value, decoded.Truncation.HowToResume.Value)
}

func TestCache_InvalidateRepoEvicts(t *testing.T) {
	cache, err := NewCache(10)
	require.NoError(t, err)

	req := Request{RepoID: "r1", VersionID: "v1", EntrySymbols: []string{"sym1"}}
	s := &ContextSlice{RepoID: "r1", VersionID: "v1"}
	cache.Put(req, s)

	_, ok := cache.Get(req)
	assert.True(t, ok)

	cache.InvalidateRepo("r1")
	_, ok = cache.Get(req)
	assert.False(t, ok)
}
