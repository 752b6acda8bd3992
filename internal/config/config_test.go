package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(1<<20), cfg.Indexing.MaxFileBytes)
	assert.Equal(t, 4000, cfg.Slice.DefaultBudgetTokens)
	assert.Equal(t, "allow", cfg.Policy.DefaultEffect)
	assert.False(t, cfg.Redaction.Enabled)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SDLCTL_TEST_TOKEN", "secret-value")
	assert.Equal(t, "prefix-secret-value-suffix", expandEnv("prefix-${SDLCTL_TEST_TOKEN}-suffix"))
	assert.Equal(t, "${UNSET_VARIABLE_XYZ}", expandEnv("${UNSET_VARIABLE_XYZ}"))
}

func TestExpandConfigStrings(t *testing.T) {
	t.Setenv("SDLCTL_TEST_ROOT", "/repos/widget")
	cfg := Default()
	cfg.Repos = []RepoConfig{{RepoID: "widget", Root: "${SDLCTL_TEST_ROOT}"}}
	expandConfigStrings(cfg)
	assert.Equal(t, "/repos/widget", cfg.Repos[0].Root)
}

func TestValidate_RequiresRoot(t *testing.T) {
	cfg := Default()
	cfg.Repos = []RepoConfig{{RepoID: "widget", Root: "/does/not/exist"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget")
}

func TestValidate_DuplicateRepoID(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Repos = []RepoConfig{
		{RepoID: "widget", Root: dir},
		{RepoID: "widget", Root: dir},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate repoId")
}

func TestValidate_OK(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Repos = []RepoConfig{{RepoID: "widget", Root: dir}}
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SDL_LOG_LEVEL", "debug")
	t.Setenv("SDL_SLICE_MAX_BUDGET_TOKENS", "99000")

	cfg := Default()
	overrides := applyEnvOverrides(cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 99000, cfg.Slice.MaxBudgetTokens)
	assert.GreaterOrEqual(t, len(overrides), 2)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repoDir := t.TempDir()

	cfg := Default()
	cfg.Repos = []RepoConfig{{RepoID: "widget", Root: repoDir}}

	cfgPath := filepath.Join(dir, "sdlctl.toml")
	require.NoError(t, cfg.Save(cfgPath))

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "widget")
}

func TestLoadWithDetails_UsesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	result, err := LoadWithDetails(dir)
	require.NoError(t, err)
	assert.True(t, result.UsedDefaults)
	assert.NotNil(t, result.Config)
}
