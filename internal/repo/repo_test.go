//go:build cgo

package repo

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/config"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/indexer"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/storage"
)

func newTestService(t *testing.T, repoRoot string) (*Service, *storage.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})

	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := indexer.New(db, indexer.Limits{Workers: 2, QueueTimeoutMs: 2000, TaskTimeoutMs: 2000}, logger)
	t.Cleanup(ix.Stop)

	cfg := []config.RepoConfig{{RepoID: "r1", Root: repoRoot}}
	svc := New(cfg, storage.NewRepoRepository(db), storage.NewVersionRepository(db), ix, logger)
	return svc, db
}

func TestEnsureRegistered_UpsertsConfiguredRepos(t *testing.T) {
	root := t.TempDir()
	svc, db := newTestService(t, root)

	require.NoError(t, svc.EnsureRegistered())

	got, err := storage.NewRepoRepository(db).Get("r1")
	require.NoError(t, err)
	assert.Equal(t, root, got.Root)
}

func TestLatestVersion_ReturnsNoSnapshotBeforeFirstIndex(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())
	require.NoError(t, svc.EnsureRegistered())

	_, err := svc.LatestVersion("r1")
	require.Error(t, err)
	sdlErr, ok := err.(*sdlerrors.SdlError)
	require.True(t, ok)
	assert.Equal(t, sdlerrors.NoSnapshot, sdlErr.Code)
}

func TestIndex_UnknownRepoReturnsInvalidParameter(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())

	_, err := svc.Index(context.Background(), "does-not-exist", "", false)
	require.Error(t, err)
	sdlErr, ok := err.(*sdlerrors.SdlError)
	require.True(t, ok)
	assert.Equal(t, sdlerrors.InvalidParameter, sdlErr.Code)
}

func TestIndex_RunsAndMakesVersionLatest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))

	svc, _ := newTestService(t, root)
	require.NoError(t, svc.EnsureRegistered())

	result, err := svc.Index(context.Background(), "r1", "deadbeef", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesIndexed)

	latest, err := svc.LatestVersion("r1")
	require.NoError(t, err)
	assert.Equal(t, result.VersionID, latest.VersionID)
}

func TestList_PairsConfigWithLatestVersion(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))

	svc, _ := newTestService(t, root)
	require.NoError(t, svc.EnsureRegistered())
	_, err := svc.Index(context.Background(), "r1", "", false)
	require.NoError(t, err)

	entries, err := svc.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].RepoID)
	require.NotNil(t, entries[0].LatestVersion)
}
