package crossfilter

import (
	"time"

	"github.com/hupe1980/crossfilter/internal/resource"
)

const (
	// DefaultCacheCapacity bounds memoized aggregate results.
	DefaultCacheCapacity = 64 << 20 // 64 MiB

	// DefaultWorkers is the background aggregation worker count.
	DefaultWorkers = 4
)

type options struct {
	logger          *Logger
	metrics         MetricsCollector
	workers         int
	inline          bool
	cacheCapacity   int64
	previewInterval time.Duration
	updateBuffer    int
	resourceCfg     resource.Config
}

// Option configures engine construction.
type Option func(*options)

// WithLogger sets the structured logger. Pass nil to keep the default
// stderr text logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithWorkers sets the number of background aggregation workers.
// Default: DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithInlineCompute runs aggregation synchronously on the dispatching
// goroutine instead of a worker pool. The correctness contract (generation
// tagging, monotonic apply) is identical; this is primarily for
// deterministic tests and single-threaded embedding.
func WithInlineCompute() Option {
	return func(o *options) {
		o.inline = true
	}
}

// WithCacheCapacity sets the aggregate cache ceiling in bytes.
// Default: DefaultCacheCapacity. A capacity <= 0 disables memoization
// pressure handling entirely by keeping the default.
func WithCacheCapacity(capacity int64) Option {
	return func(o *options) {
		if capacity > 0 {
			o.cacheCapacity = capacity
		}
	}
}

// WithPreviewInterval sets the rendering interval used to throttle
// preview-phase brush feedback. At most one preview event per field passes
// per interval. Default: filterstore.DefaultPreviewInterval (~60/s).
func WithPreviewInterval(d time.Duration) Option {
	return func(o *options) {
		o.previewInterval = d
	}
}

// WithUpdateBuffer sets the per-view update channel depth. A subscriber that
// falls more than this many updates behind starts losing the oldest queued
// updates (delivery is keep-latest); a larger buffer lets slower consumers
// observe every commit. Values <= 0 keep the default of 16.
func WithUpdateBuffer(n int) Option {
	return func(o *options) {
		o.updateBuffer = n
	}
}

// WithMemoryLimit sets a hard engine-wide ceiling for cache-managed memory,
// enforced by the resource controller on top of the cache's own capacity.
// 0 means tracking only.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resourceCfg.MemoryLimitBytes = bytes
	}
}
