// Package resource tracks the engine's memory and worker budgets.
//
// The Controller provides centralized management of two resource types:
//
//   - Memory: track and bound heap charged by the aggregate cache
//     (non-blocking, fail-fast)
//   - Concurrency: bound the number of background aggregation workers
//
// Memory tracking uses a weighted semaphore for the hard ceiling plus an
// atomic counter for usage. TryAcquireMemory never blocks: the cache treats a
// denied acquisition as eviction pressure, not an error.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if !rc.TryAcquireMemory(entrySize) {
//	    // evict before retrying
//	}
//	defer rc.ReleaseMemory(entrySize)
//
// All methods are safe for concurrent use and handle a nil *Controller
// gracefully, so resource limiting stays optional without nil checks at every
// call site.
package resource
