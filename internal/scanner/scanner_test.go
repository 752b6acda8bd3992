package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScan_SkipsIgnoredAndOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, "big.txt", "0123456789")

	files, err := Scan(Options{
		RepoID:       "r1",
		RepoRoot:     root,
		MaxFileBytes: 5,
	})
	require.NoError(t, err)

	byPath := map[string]ScannedFile{}
	for _, f := range files {
		byPath[f.RelPath] = f
	}

	require.Contains(t, byPath, "src/main.go")
	assert.False(t, byPath["src/main.go"].Skipped)

	require.NotContains(t, byPath, "node_modules/pkg/index.js")

	require.Contains(t, byPath, "big.txt")
	assert.True(t, byPath["big.txt"].Skipped)
	assert.Equal(t, "exceeds maxFileBytes", byPath["big.txt"].SkipReason)
}

func TestScan_DirectoryDerivation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/sub/file.go", "package sub")

	files, err := Scan(Options{RepoID: "r1", RepoRoot: root})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "pkg/sub", files[0].Directory)
}

func TestDeriveWorkspaceGlobs_ArrayForm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"workspaces": ["packages/*", "apps/*"]}`)

	globs, err := DeriveWorkspaceGlobs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/*", "apps/*"}, globs)
}

func TestDeriveWorkspaceGlobs_ObjectForm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"workspaces": {"packages": ["libs/*"]}}`)

	globs, err := DeriveWorkspaceGlobs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"libs/*"}, globs)
}

func TestDeriveWorkspaceGlobs_NoPackageJSON(t *testing.T) {
	root := t.TempDir()
	globs, err := DeriveWorkspaceGlobs(root)
	require.NoError(t, err)
	assert.Nil(t, globs)
}
