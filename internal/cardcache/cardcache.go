// Package cardcache is the LRU cache for individually-requested SymbolCards
// (spec §4.9), separate from internal/slice's whole-slice cache. It plays
// the role standardbeagle-lci/internal/semantic/lru_cache.go plays for that
// codebase's normalized-query cache — a mutex-guarded map plus an ordered
// list promoting on get/set — generalized from a single maxSize bound to
// the two independent bounds spec §4.9 requires (entry count AND total
// serialized byte size), and from manual container/list bookkeeping onto
// github.com/hashicorp/golang-lru/v2, which already solves the
// promote-on-touch/evict-on-overflow mechanics.
package cardcache

import (
	"encoding/json"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sdlctl/sdlctl/internal/slice"
)

// Key identifies one cached card. detailLevel is part of the key because a
// "full" and a "skeleton" rendering of the same symbol are different
// payloads (spec §4.10's downgrade-to-skeleton policy outcome).
type Key struct {
	SymbolID    string
	VersionID   string
	DetailLevel string
}

func (k Key) String() string {
	return k.SymbolID + ":" + k.VersionID + ":" + k.DetailLevel
}

type entry struct {
	card      slice.SymbolCard
	etag      string
	sizeBytes int
}

// Cache is the bounded, version-invalidatable card cache.
type Cache struct {
	mu           sync.Mutex
	maxEntries   int
	maxSizeBytes int
	curSizeBytes int
	items        *lru.Cache[string, *entry]
	hits         int64
	misses       int64
}

// New builds a Cache bounded by both maxEntries and maxSizeBytes (spec
// §4.9: "Bounded by maxEntries AND maxSizeBytes").
func New(maxEntries, maxSizeBytes int) (*Cache, error) {
	c := &Cache{maxEntries: maxEntries, maxSizeBytes: maxSizeBytes}
	items, err := lru.NewWithEvict[string, *entry](maxEntries, func(_ string, e *entry) {
		c.curSizeBytes -= e.sizeBytes
	})
	if err != nil {
		return nil, err
	}
	c.items = items
	return c, nil
}

// Get returns the cached card for key, promoting it to most-recently-used
// on a hit and counting the hit/miss either way (spec §4.9: "get counts
// hits/misses; get-on-hit promotes the entry").
func (c *Cache) Get(key Key) (slice.SymbolCard, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Get(key.String())
	if !ok {
		c.misses++
		return slice.SymbolCard{}, "", false
	}
	c.hits++
	return e.card, e.etag, true
}

// Put stores a card keyed by key, with etag identifying the card's content
// version (spec §6 cardRefs.etag) for cheap client-side freshness checks.
// If adding it would push total size over maxSizeBytes, the least-recently
// used entries are evicted first, oldest first, until it fits.
func (c *Cache) Put(key Key, card slice.SymbolCard, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := estimateSize(card)
	if c.maxSizeBytes > 0 {
		for c.curSizeBytes+size > c.maxSizeBytes {
			if _, _, evicted := c.items.RemoveOldest(); !evicted {
				break
			}
		}
	}
	c.items.Add(key.String(), &entry{card: card, etag: etag, sizeBytes: size})
	c.curSizeBytes += size
}

// InvalidateVersion deletes every cached entry for versionID (spec §4.9:
// "invalidateVersion(versionId) deletes all entries whose key carries that
// version").
func (c *Cache) InvalidateVersion(versionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	suffix := ":" + versionID + ":"
	for _, k := range c.items.Keys() {
		if strings.Contains(k, suffix) {
			c.items.Remove(k)
		}
	}
}

// Stats reports cumulative hit/miss counts.
type Stats struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

func estimateSize(card slice.SymbolCard) int {
	b, err := json.Marshal(card)
	if err != nil {
		return 0
	}
	return len(b)
}
