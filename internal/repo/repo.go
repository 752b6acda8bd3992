// Package repo is the runtime repository registry: it reconciles the
// repos configured in sdlctl.toml against storage.RepoRepository, drives
// index runs through internal/indexer, and answers "what's the latest
// version of this repo" for every other package that needs a versionId.
// It plays the role SimplyLiz-CodeMCP/internal/repos/registry.go plays for
// that codebase's multi-repo mode, adapted from a standalone
// ~/.ckb/repos.json registry file to rows in the same SQLite database
// everything else in this process already uses, since sdlctl's repos are
// declared statically in its config rather than registered at runtime.
package repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sdlctl/sdlctl/internal/config"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/indexer"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/storage"
)

// Entry describes one registered repository and its most recent snapshot,
// the shape `sdlctl repo list` and a `listRepos` MCP tool both render.
type Entry struct {
	RepoID        string
	Root          string
	DefaultBranch string
	LatestVersion *storage.Version // nil if never successfully indexed
}

// Service reconciles config.RepoConfig entries with storage.RepoRepository
// rows and runs indexing for them.
type Service struct {
	cfg      []config.RepoConfig
	repos    *storage.RepoRepository
	versions *storage.VersionRepository
	indexer  *indexer.Indexer
	logger   *logging.Logger
}

// New builds a Service over the given repositories and indexer.
func New(cfg []config.RepoConfig, repos *storage.RepoRepository, versions *storage.VersionRepository, ix *indexer.Indexer, logger *logging.Logger) *Service {
	return &Service{cfg: cfg, repos: repos, versions: versions, indexer: ix, logger: logger}
}

// findConfig returns the RepoConfig for repoID, or nil if it isn't
// configured.
func (s *Service) findConfig(repoID string) *config.RepoConfig {
	for i := range s.cfg {
		if s.cfg[i].RepoID == repoID {
			return &s.cfg[i]
		}
	}
	return nil
}

// EnsureRegistered upserts a storage.Repo row for every configured repo.
// Called once at startup (spec §4, repo registration precedes first index
// run) so getSlice/getCard can resolve a repoId even before anything has
// been indexed.
func (s *Service) EnsureRegistered() error {
	for _, rc := range s.cfg {
		if err := s.repos.Upsert(storage.Repo{
			RepoID:        rc.RepoID,
			Root:          rc.Root,
			DefaultBranch: rc.DefaultBranch,
			CreatedAt:     time.Now(),
		}); err != nil {
			return fmt.Errorf("sdlctl: repo: registering %s: %w", rc.RepoID, err)
		}
	}
	return nil
}

// List returns every configured repo paired with its latest complete
// version, if any.
func (s *Service) List() ([]Entry, error) {
	entries := make([]Entry, 0, len(s.cfg))
	for _, rc := range s.cfg {
		latest, err := s.versions.Latest(rc.RepoID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading latest version for "+rc.RepoID, err)
		}
		entries = append(entries, Entry{
			RepoID:        rc.RepoID,
			Root:          rc.Root,
			DefaultBranch: rc.DefaultBranch,
			LatestVersion: latest,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RepoID < entries[j].RepoID })
	return entries, nil
}

// LatestVersion resolves repoID's most recent complete version, returning
// a NoSnapshot error if the repo has never been successfully indexed (spec
// §7).
func (s *Service) LatestVersion(repoID string) (*storage.Version, error) {
	v, err := s.versions.Latest(repoID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading latest version for "+repoID, err)
	}
	if v == nil {
		return nil, sdlerrors.NewNoSnapshotError(repoID)
	}
	return v, nil
}

// Index runs a full index for repoID using its configured root and ignore
// globs. There is no per-repo file-size limit: the indexer's global
// indexing.maxFileBytes applies.
func (s *Service) Index(ctx context.Context, repoID string, commitSHA string, force bool) (*indexer.Result, error) {
	rc := s.findConfig(repoID)
	if rc == nil {
		return nil, sdlerrors.NewInvalidParameterError("repoId", fmt.Sprintf("%q is not configured", repoID))
	}

	result, err := s.indexer.Index(ctx, indexer.Options{
		RepoID:      rc.RepoID,
		RepoRoot:    rc.Root,
		CommitSHA:   commitSHA,
		IgnoreGlobs: rc.IgnoreGlobs,
		Force:       force,
	})
	if err != nil {
		s.logger.Error("index run failed", map[string]interface{}{"repoId": repoID, "error": err.Error()})
		return nil, err
	}

	s.logger.Info("index run complete", map[string]interface{}{
		"repoId": repoID, "versionId": result.VersionID,
		"filesIndexed": result.FilesIndexed, "symbolsTotal": result.SymbolsTotal,
	})
	return result, nil
}
