//go:build cgo

package delta

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

func newTestEngine(t *testing.T) (*Engine, *storage.DB, *indexer.Indexer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})

	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := indexer.New(db, indexer.Limits{Workers: 2, QueueTimeoutMs: 2000, TaskTimeoutMs: 2000}, logger)
	t.Cleanup(ix.Stop)

	engine := New(storage.NewSymbolRepository(db), storage.NewVersionRepository(db), DefaultWeights)
	return engine, db, ix
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCompute_AddedAndModifiedSymbols(t *testing.T) {
	engine, db, ix := newTestEngine(t)
	root := t.TempDir()

	writeFile(t, root, "widget.go", "package main\n\nfunc A() {}\n")
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))

	v1, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	writeFile(t, root, "widget.go", "package main\n\nfunc A(x int) {}\n\nfunc B() {}\n")
	v2, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	result, err := engine.Compute("r1", v1.VersionID, v2.VersionID)
	require.NoError(t, err)

	names := map[string]ChangeType{}
	for _, c := range result.Changes {
		names[c.Name] = c.ChangeType
	}
	assert.Equal(t, ChangeAdded, names["B"])
	assert.Equal(t, ChangeModified, names["A"])

	for _, c := range result.Changes {
		if c.Name != "A" {
			continue
		}
		// The signature change also changes the body fingerprint (it's hashed
		// over kind/range/signature together), so neither interface nor
		// behavior reads as stable here; side effects are untouched.
		assert.False(t, c.InterfaceStable, "signature changed, interface should not be stable")
		assert.False(t, c.BehaviorStable)
		assert.True(t, c.SideEffectsStable)
		assert.Equal(t, DefaultWeights.SideEffects, c.StabilityScore)
		assert.Equal(t, 100-DefaultWeights.SideEffects, c.RiskScore)
	}
}

func TestCompute_RemovedSymbolHasMaxRisk(t *testing.T) {
	engine, db, ix := newTestEngine(t)
	root := t.TempDir()

	writeFile(t, root, "widget.go", "package main\n\nfunc A() {}\n\nfunc B() {}\n")
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: root}))

	v1, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	writeFile(t, root, "widget.go", "package main\n\nfunc A() {}\n")
	v2, err := ix.Index(context.Background(), indexer.Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)

	result, err := engine.Compute("r1", v1.VersionID, v2.VersionID)
	require.NoError(t, err)

	var found bool
	for _, c := range result.Changes {
		if c.Name != "B" {
			continue
		}
		found = true
		assert.Equal(t, ChangeRemoved, c.ChangeType)
		assert.Equal(t, 100, c.RiskScore)
		assert.False(t, c.InterfaceStable)
		assert.False(t, c.BehaviorStable)
		assert.False(t, c.SideEffectsStable)
	}
	assert.True(t, found, "expected a removed delta entry for B")
}

func TestCompute_UnknownVersionReturnsNoSnapshot(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	require.NoError(t, storage.NewRepoRepository(db).Upsert(storage.Repo{RepoID: "r1", Root: t.TempDir()}))

	_, err := engine.Compute("r1", "ver_missing_from", "ver_missing_to")
	require.Error(t, err)

	sdlErr, ok := err.(*sdlerrors.SdlError)
	require.True(t, ok, "expected a *sdlerrors.SdlError")
	assert.Equal(t, sdlerrors.NoSnapshot, sdlErr.Code)
}
