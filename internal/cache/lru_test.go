package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/resource"
)

func result(bins int) *aggregate.Result {
	return &aggregate.Result{
		Kind:       aggregate.KindHistogram,
		Field:      "x",
		Edges:      make([]float64, bins+1),
		Background: make([]uint64, bins),
		Foreground: make([]uint64, bins),
	}
}

func TestCache_HitAndMiss(t *testing.T) {
	c := New(1<<20, nil)
	key := Key{Shape: 1, Generation: 1}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, result(4))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Len(t, got.Background, 4)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_GenerationKeysAreDistinct(t *testing.T) {
	c := New(1<<20, nil)
	shape := uint64(42)

	c.Set(Key{Shape: shape, Generation: 1}, result(4))

	// Same shape at a newer generation is a miss: the old entry is not
	// eagerly invalidated, it just stops matching.
	_, ok := c.Get(Key{Shape: shape, Generation: 2})
	assert.False(t, ok)

	_, ok = c.Get(Key{Shape: shape, Generation: 1})
	assert.True(t, ok)
}

func TestCache_EvictsOldestFirst(t *testing.T) {
	// Capacity fits roughly two entries; the untouched oldest goes first.
	one := result(8)
	capacity := one.SizeBytes()*2 + 32

	c := New(capacity, nil)
	c.Set(Key{Shape: 1, Generation: 1}, result(8))
	c.Set(Key{Shape: 2, Generation: 1}, result(8))

	// Touch the first so the second becomes LRU.
	_, ok := c.Get(Key{Shape: 1, Generation: 1})
	require.True(t, ok)

	c.Set(Key{Shape: 3, Generation: 2}, result(8))

	_, ok = c.Get(Key{Shape: 2, Generation: 1})
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(Key{Shape: 1, Generation: 1})
	assert.True(t, ok)
	_, ok = c.Get(Key{Shape: 3, Generation: 2})
	assert.True(t, ok)
}

func TestCache_OversizedEntryNotCached(t *testing.T) {
	c := New(64, nil)
	c.Set(Key{Shape: 1, Generation: 1}, result(1024))

	_, ok := c.Get(Key{Shape: 1, Generation: 1})
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestCache_OverwriteSameKey(t *testing.T) {
	c := New(1<<20, nil)
	key := Key{Shape: 7, Generation: 3}

	c.Set(key, result(4))
	c.Set(key, result(16))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Len(t, got.Background, 16)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ResourceControllerCharges(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	c := New(1<<19, rc)

	c.Set(Key{Shape: 1, Generation: 1}, result(8))
	assert.Equal(t, c.Size(), rc.MemoryUsage())

	c.Set(Key{Shape: 2, Generation: 1}, result(8))
	assert.Equal(t, c.Size(), rc.MemoryUsage())
}

func TestCache_ResourceLimitDeniesGrowth(t *testing.T) {
	small := result(2)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: small.SizeBytes() + 8})
	c := New(1<<20, rc)

	key := Key{Shape: 1, Generation: 1}
	c.Set(key, small)

	// Growing the entry would blow the engine-wide budget; the old value
	// stays.
	c.Set(key, result(4096))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Len(t, got.Background, 2)
}
