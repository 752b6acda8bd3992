//go:build cgo

package indexer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/storage"
)

func newTestIndexer(t *testing.T) (*Indexer, *storage.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})

	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := New(db, Limits{Workers: 2, QueueTimeoutMs: 2000, TaskTimeoutMs: 2000}, logger)
	t.Cleanup(ix.Stop)
	return ix, db
}

func writeRepoFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestIndex_ExtractsSymbolsAndResolvesCalls(t *testing.T) {
	ix, db := newTestIndexer(t)
	root := t.TempDir()

	writeRepoFile(t, root, "widget.go", `package main

func NewWidget() *Widget {
	return &Widget{}
}

type Widget struct{}

func Run() {
	NewWidget()
}
`)

	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))

	result, err := ix.Index(context.Background(), Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, 1, result.FilesIndexed)
	assert.Empty(t, result.ParseErrors)
	assert.Greater(t, result.SymbolsTotal, 0)

	symbols, err := storage.NewSymbolRepository(db).ListByRepo("r1")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
	}
	assert.True(t, names["NewWidget"])
	assert.True(t, names["Run"])

	edges, err := storage.NewEdgeRepository(db).OutgoingFrom(result.VersionID, symbolIDByName(symbols, "Run"))
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	assert.Equal(t, "call", edges[0].Kind)
	assert.True(t, edges[0].ToSymbolID.Valid)
}

func TestIndex_ReusesUnchangedFilesOnReindex(t *testing.T) {
	ix, db := newTestIndexer(t)
	root := t.TempDir()

	writeRepoFile(t, root, "a.go", "package main\n\nfunc A() {}\n")
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))

	_, err := ix.Index(context.Background(), Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	result, err := ix.Index(context.Background(), Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesReused)
	assert.Equal(t, 0, result.FilesIndexed)
}

func TestIndex_UnsupportedExtensionIsScannedWithoutParseError(t *testing.T) {
	ix, db := newTestIndexer(t)
	root := t.TempDir()

	writeRepoFile(t, root, "ok.go", "package main\n\nfunc OK() {}\n")
	writeRepoFile(t, root, "note.txt", "not a source file")
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))

	result, err := ix.Index(context.Background(), Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesScanned)
	assert.Empty(t, result.ParseErrors, "unsupported extensions are skipped, not errored")
}

func symbolIDByName(symbols []storage.Symbol, name string) string {
	for _, s := range symbols {
		if s.Name == name {
			return s.SymbolID
		}
	}
	return ""
}
