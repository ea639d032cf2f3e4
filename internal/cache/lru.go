// Package cache memoizes aggregate results keyed by request shape and filter
// generation.
//
// Keys pair a shape hash with the generation the result was computed at, so a
// lookup is an integer compare rather than a filter-content hash. Entries are
// never eagerly invalidated when the generation advances: stale entries
// simply stop being looked up and age out of the LRU under the configured
// byte ceiling, which evicts oldest-generation entries first because nothing
// touches them anymore.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/resource"
)

// Key identifies a cached result. Two requests with the same shape at the
// same generation are interchangeable by construction, so the pair prevents
// collisions structurally.
type Key struct {
	Shape      uint64
	Generation uint64
}

// Cache is a byte-bounded LRU of aggregate results.
type Cache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key    Key
	result *aggregate.Result
	size   int64
}

// New creates a cache with the given capacity in bytes.
// If rc is provided, entry sizes are charged against its memory budget.
func New(capacity int64, rc *resource.Controller) *Cache {
	return &Cache{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns the cached result for key, if present.
func (c *Cache) Get(key Key) (*aggregate.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).result, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores a result under key. Results larger than the whole capacity are
// not cached. Storing under an existing key overwrites it.
func (c *Cache) Set(key Key, result *aggregate.Result) {
	itemSize := result.SizeBytes()
	if itemSize > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry)
		if grow := itemSize - e.size; grow > 0 && c.rc != nil {
			// Keep the old value if the controller denies the growth.
			if !c.rc.TryAcquireMemory(grow) {
				return
			}
		} else if grow < 0 && c.rc != nil {
			c.rc.ReleaseMemory(-grow)
		}
		c.size += itemSize - e.size
		e.result = result
		e.size = itemSize
		c.evict()
		return
	}

	// Evict within local capacity before charging the controller, so freed
	// bytes are released before new ones are acquired.
	for c.size+itemSize > c.capacity {
		if !c.removeOldest() {
			break
		}
	}

	if c.rc != nil && !c.rc.TryAcquireMemory(itemSize) {
		// Under engine-wide pressure: evict and retry once.
		if !c.removeOldest() || !c.rc.TryAcquireMemory(itemSize) {
			return
		}
	}

	ent := c.evictList.PushFront(&entry{key: key, result: result, size: itemSize})
	c.items[key] = ent
	c.size += itemSize
}

func (c *Cache) evict() {
	for c.size > c.capacity {
		if !c.removeOldest() {
			return
		}
	}
}

func (c *Cache) removeOldest() bool {
	ent := c.evictList.Back()
	if ent == nil {
		return false
	}
	e := ent.Value.(*entry)
	c.evictList.Remove(ent)
	delete(c.items, e.key)
	c.size -= e.size
	if c.rc != nil {
		c.rc.ReleaseMemory(e.size)
	}
	return true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current cached bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
