// Package scanner enumerates the files of a repository that the indexer
// should parse, honoring ignore globs and a maximum file size (spec §2
// File discovery, §4.2). It also provides DeriveWorkspaceGlobs, a
// package.json workspace heuristic that Scan does not call (SPEC_FULL §5(b)).
package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/paths"
)

// DefaultIgnoreGlobs are applied in addition to any repo-configured
// ignoreGlobs, matching common build/VCS/dependency directories.
var DefaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/.sdlctl/**",
}

// ScannedFile is one file discovered under a repo root.
type ScannedFile struct {
	FileID    string
	RelPath   string
	Directory string
	AbsPath   string
	SizeBytes int64

	// Skipped is true when the file exceeded maxFileBytes; such files are
	// recorded (spec §4.2) but never parsed. Files matching an ignore glob
	// are left out of Scan's result entirely.
	Skipped    bool
	SkipReason string
}

// Options configures a Scan call.
type Options struct {
	RepoID        string
	RepoRoot      string
	IgnoreGlobs   []string
	MaxFileBytes  int64
}

// Scan walks repoRoot and returns every regular file that no ignore glob
// matches, sorted by relPath. Files over MaxFileBytes are returned with
// Skipped set rather than omitted, so callers can report them (spec §4.2
// edge cases).
func Scan(opts Options) ([]ScannedFile, error) {
	ignoreGlobs := append(append([]string(nil), DefaultIgnoreGlobs...), opts.IgnoreGlobs...)

	var files []ScannedFile

	err := filepath.WalkDir(opts.RepoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, canonErr := paths.CanonicalizePath(path, opts.RepoRoot)
		if canonErr != nil {
			return nil
		}

		if matchesAny(ignoreGlobs, relPath) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}

		sf := ScannedFile{
			FileID:    identity.FileID(opts.RepoID, relPath),
			RelPath:   relPath,
			Directory: paths.Dir(relPath),
			AbsPath:   path,
			SizeBytes: info.Size(),
		}

		if opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes {
			sf.Skipped = true
			sf.SkipReason = "exceeds maxFileBytes"
		}

		files = append(files, sf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func matchesAny(globs []string, relPath string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, relPath); ok {
			return true
		}
	}
	return false
}

// packageJSON is the minimal shape read by DeriveWorkspaceGlobs.
type packageJSON struct {
	Workspaces json.RawMessage `json:"workspaces"`
}

// DeriveWorkspaceGlobs heuristically derives workspace globs from a repo's
// package.json "workspaces" field, in either its array or {packages: [...]}
// form (spec §9 Open Question (b), SPEC_FULL §5(b)). A missing or malformed
// package.json yields nil. Neither Scan nor the indexer calls it, and
// RepoConfig.WorkspaceGlobs is not read.
func DeriveWorkspaceGlobs(repoRoot string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(repoRoot, "package.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil || len(pkg.Workspaces) == 0 {
		return nil, nil
	}

	var asList []string
	if err := json.Unmarshal(pkg.Workspaces, &asList); err == nil {
		return asList, nil
	}

	var asObject struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(pkg.Workspaces, &asObject); err == nil {
		return asObject.Packages, nil
	}

	return nil, nil
}
