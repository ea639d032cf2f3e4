package crossfilter

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordCommit is called after each committed filter change has been
	// fanned out. views is the number of requests issued.
	RecordCommit(generation uint64, views int, d time.Duration)

	// RecordPreview is called for each preview event fan-out.
	RecordPreview(views int)

	// RecordAggregate is called after each aggregate computation or cache
	// hit. d is zero for cache hits.
	RecordAggregate(d time.Duration, cacheHit bool, err error)

	// RecordStaleDrop is called when a stale-generation response is
	// silently discarded for a view. Frequent drops while brushing are
	// normal, not a failure signal.
	RecordStaleDrop(view string)

	// RecordMaskBuild is called after each selection mask derivation.
	RecordMaskBuild(d time.Duration, selected uint64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCommit(uint64, int, time.Duration)    {}
func (NoopMetricsCollector) RecordPreview(int)                          {}
func (NoopMetricsCollector) RecordAggregate(time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordStaleDrop(string)                     {}
func (NoopMetricsCollector) RecordMaskBuild(time.Duration, uint64)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CommitCount      atomic.Int64
	CommitTotalNanos atomic.Int64
	PreviewCount     atomic.Int64
	AggregateCount   atomic.Int64
	AggregateErrors  atomic.Int64
	AggregateHits    atomic.Int64
	AggregateNanos   atomic.Int64
	StaleDrops       atomic.Int64
	MaskBuilds       atomic.Int64
	MaskBuildNanos   atomic.Int64
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(_ uint64, _ int, d time.Duration) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(d.Nanoseconds())
}

// RecordPreview implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPreview(int) {
	b.PreviewCount.Add(1)
}

// RecordAggregate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAggregate(d time.Duration, cacheHit bool, err error) {
	b.AggregateCount.Add(1)
	b.AggregateNanos.Add(d.Nanoseconds())
	if cacheHit {
		b.AggregateHits.Add(1)
	}
	if err != nil {
		b.AggregateErrors.Add(1)
	}
}

// RecordStaleDrop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStaleDrop(string) {
	b.StaleDrops.Add(1)
}

// RecordMaskBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMaskBuild(d time.Duration, _ uint64) {
	b.MaskBuilds.Add(1)
	b.MaskBuildNanos.Add(d.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CommitCount:     b.CommitCount.Load(),
		PreviewCount:    b.PreviewCount.Load(),
		AggregateCount:  b.AggregateCount.Load(),
		AggregateErrors: b.AggregateErrors.Load(),
		AggregateHits:   b.AggregateHits.Load(),
		StaleDrops:      b.StaleDrops.Load(),
		MaskBuilds:      b.MaskBuilds.Load(),
		CommitAvgNanos:  avg(b.CommitTotalNanos.Load(), b.CommitCount.Load()),
		AggAvgNanos:     avg(b.AggregateNanos.Load(), b.AggregateCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CommitCount     int64
	PreviewCount    int64
	AggregateCount  int64
	AggregateErrors int64
	AggregateHits   int64
	StaleDrops      int64
	MaskBuilds      int64
	CommitAvgNanos  int64
	AggAvgNanos     int64
}
