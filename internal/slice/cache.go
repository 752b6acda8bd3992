package slice

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes ContextSlice builds keyed by every input that affects the
// output (spec §4.8: "slice cache keyed by repoId, versionId, taskText,
// entrySymbols, budget"), the same per-key hashed-LRU shape
// standardbeagle-lci/internal/semantic/lru_cache.go applies to its
// translation cache, generalized from a single global key namespace to one
// partitioned by repo so a new version can be invalidated in one sweep.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *ContextSlice]
	byRepo  map[string]map[string]bool
}

// NewCache builds a Cache bounded to maxEntries ContextSlices.
func NewCache(maxEntries int) (*Cache, error) {
	entries, err := lru.New[string, *ContextSlice](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, byRepo: map[string]map[string]bool{}}, nil
}

// Key hashes a slice request's inputs into the cache's lookup key.
func Key(req Request) string {
	entries := append([]string(nil), req.EntrySymbols...)
	sort.Strings(entries)
	h := sha256.New()
	fmt.Fprintf(h, "%s:%s:%s:%s:%d:%d",
		req.RepoID, req.VersionID, req.TaskText, strings.Join(entries, ","),
		req.Budget.MaxCards, req.Budget.MaxEstimatedTokens)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached slice for req, if present.
func (c *Cache) Get(req Request) (*ContextSlice, bool) {
	return c.entries.Get(Key(req))
}

// Put stores a built slice, tracking its key against the owning repo so
// InvalidateRepo can evict every slice built for it in one pass.
func (c *Cache) Put(req Request, s *ContextSlice) {
	key := Key(req)
	c.entries.Add(key, s)

	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.byRepo[req.RepoID]
	if !ok {
		keys = map[string]bool{}
		c.byRepo[req.RepoID] = keys
	}
	keys[key] = true
}

// InvalidateRepo evicts every cached slice built for repoID. The indexer
// does not call it; since versionId is part of every key, a slice cached
// for an older version is never returned for a newer one.
func (c *Cache) InvalidateRepo(repoID string) {
	c.mu.Lock()
	keys := c.byRepo[repoID]
	delete(c.byRepo, repoID)
	c.mu.Unlock()

	for key := range keys {
		c.entries.Remove(key)
	}
}
