package cardcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/slice"
)

func TestCache_GetSetCountsHitsAndMisses(t *testing.T) {
	c, err := New(10, 1<<20)
	require.NoError(t, err)

	key := Key{SymbolID: "s1", VersionID: "v1", DetailLevel: "full"}
	_, _, ok := c.Get(key)
	assert.False(t, ok)

	card := slice.SymbolCard{SymbolID: "s1", Name: "Run"}
	c.Put(key, card, "etag1")

	got, etag, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "Run", got.Name)
	assert.Equal(t, "etag1", etag)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_MaxEntriesEvictsOldest(t *testing.T) {
	// Boundary from spec §8: LRU with maxEntries=2; inserting a third
	// distinct key drops the LRU; touching the oldest before the third
	// insert saves it.
	c, err := New(2, 1<<20)
	require.NoError(t, err)

	k1 := Key{SymbolID: "s1", VersionID: "v1", DetailLevel: "full"}
	k2 := Key{SymbolID: "s2", VersionID: "v1", DetailLevel: "full"}
	k3 := Key{SymbolID: "s3", VersionID: "v1", DetailLevel: "full"}

	c.Put(k1, slice.SymbolCard{SymbolID: "s1"}, "e1")
	c.Put(k2, slice.SymbolCard{SymbolID: "s2"}, "e2")
	_, _, _ = c.Get(k1) // touch s1 so it outlives s2

	c.Put(k3, slice.SymbolCard{SymbolID: "s3"}, "e3")

	_, _, ok1 := c.Get(k1)
	_, _, ok2 := c.Get(k2)
	_, _, ok3 := c.Get(k3)
	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
}

func TestCache_InvalidateVersionRemovesOnlyThatVersion(t *testing.T) {
	c, err := New(10, 1<<20)
	require.NoError(t, err)

	kv1 := Key{SymbolID: "s1", VersionID: "v1", DetailLevel: "full"}
	kv2 := Key{SymbolID: "s1", VersionID: "v2", DetailLevel: "full"}
	c.Put(kv1, slice.SymbolCard{SymbolID: "s1"}, "e1")
	c.Put(kv2, slice.SymbolCard{SymbolID: "s1"}, "e2")

	c.InvalidateVersion("v1")

	_, _, ok1 := c.Get(kv1)
	_, _, ok2 := c.Get(kv2)
	assert.False(t, ok1)
	assert.True(t, ok2)
}

func TestCache_MaxSizeBytesEvicts(t *testing.T) {
	c, err := New(100, 1)
	require.NoError(t, err)

	k1 := Key{SymbolID: "s1", VersionID: "v1", DetailLevel: "full"}
	k2 := Key{SymbolID: "s2", VersionID: "v1", DetailLevel: "full"}
	c.Put(k1, slice.SymbolCard{SymbolID: "s1", Name: "A"}, "e1")
	c.Put(k2, slice.SymbolCard{SymbolID: "s2", Name: "B"}, "e2")

	_, _, ok1 := c.Get(k1)
	assert.False(t, ok1, "tiny maxSizeBytes should have evicted the first entry")
}
