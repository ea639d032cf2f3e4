package crossfilter

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/cache"
	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/coordinator"
	"github.com/hupe1980/crossfilter/internal/filter"
	"github.com/hupe1980/crossfilter/internal/filterstore"
	"github.com/hupe1980/crossfilter/internal/resource"
)

// Re-exported data model. The facade owns no semantics of its own for these;
// they are the engine's working vocabulary.
type (
	// ColumnSpec describes one column handed to New by the loading
	// collaborator.
	ColumnSpec = column.Spec
	// Kind identifies a column's physical type.
	Kind = column.Kind

	// Filter is one structured constraint on a single field.
	Filter = filter.Filter
	// Range keeps rows with Min <= value < Max.
	Range = filter.Range
	// Set keeps rows whose category code is in Codes.
	Set = filter.Set
	// Angle keeps rows inside a wrap-aware arc in degrees.
	Angle = filter.Angle
	// Envelope is the combined set of active filters across fields.
	Envelope = filter.Envelope

	// Request describes one aggregation shape.
	Request = aggregate.Request
	// RequestKind selects the aggregation shape.
	RequestKind = aggregate.Kind
	// Result is the outcome of one aggregation.
	Result = aggregate.Result
	// Summary holds one-pass statistics over the selected rows.
	Summary = aggregate.Summary

	// Update is one delivery on a view's result stream.
	Update = coordinator.Update
)

const (
	// KindNumeric is a float64-backed column.
	KindNumeric = column.KindNumeric
	// KindCategorical is a code-backed column with a label table.
	KindCategorical = column.KindCategorical

	// KindHistogram bins one numeric field.
	KindHistogram = aggregate.KindHistogram
	// KindCategory counts one categorical field per code.
	KindCategory = aggregate.KindCategory
	// KindJoint bins two numeric fields into a 2-D grid.
	KindJoint = aggregate.KindJoint
)

// NewSet builds a Set filter keeping rows whose category code is one of
// codes.
func NewSet(field string, codes ...uint32) Set {
	return filter.NewSet(field, codes...)
}

// BrushPhase distinguishes draft feedback from canonical changes.
type BrushPhase uint8

const (
	// PhasePreview updates the draft only: throttled visual feedback, no
	// generation advance.
	PhasePreview BrushPhase = iota
	// PhaseCommit finalizes the brush: the envelope changes, the generation
	// advances, and every subscribed view re-aggregates.
	PhaseCommit
)

// String implements fmt.Stringer.
func (p BrushPhase) String() string {
	if p == PhaseCommit {
		return "commit"
	}
	return "preview"
}

// Engine is the cross-filtering engine instance. Construct with New, tear
// down with Close; it is not a process-wide singleton.
type Engine struct {
	store   *column.Store
	filters *filterstore.Store
	agg     *aggregate.Aggregator
	results *cache.Cache
	coord   *coordinator.Coordinator
	rc      *resource.Controller
	logger  *Logger
	metrics MetricsCollector
	closed  atomic.Bool
}

// New validates the dataset and starts the engine. A column length or type
// mismatch fails with an ErrLoad-wrapped error before anything is running.
// The dataset is immutable from here on.
func New(ctx context.Context, specs []ColumnSpec, optFns ...Option) (*Engine, error) {
	opts := options{
		logger:        NewLogger(nil),
		metrics:       NoopMetricsCollector{},
		workers:       DefaultWorkers,
		cacheCapacity: DefaultCacheCapacity,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.resourceCfg.MaxWorkers == 0 {
		opts.resourceCfg.MaxWorkers = int64(opts.workers)
	}

	store, err := column.Load(specs)
	if err != nil {
		opts.logger.LogLoad(len(specs), 0, err)
		return nil, translateLoadError(err)
	}
	opts.logger.LogLoad(len(specs), store.Len(), nil)

	rc := resource.NewController(opts.resourceCfg)
	workers := opts.workers
	if opts.inline {
		workers = 0
	}

	e := &Engine{
		store:   store,
		filters: filterstore.New(opts.previewInterval),
		agg:     aggregate.New(store),
		results: cache.New(opts.cacheCapacity, rc),
		rc:      rc,
		logger:  opts.logger,
		metrics: opts.metrics,
	}

	e.coord = coordinator.New(coordinator.Config{
		Store:        store,
		Filters:      e.filters,
		Agg:          e.agg,
		Cache:        e.results,
		Workers:      workers,
		Logger:       opts.logger.Logger,
		Observer:     opts.metrics,
		Resource:     rc,
		UpdateBuffer: opts.updateBuffer,
	})

	return e, nil
}

// Subscribe registers a view and returns its result stream: a push-based
// sequence of one Update per resolved generation for the life of the
// subscription. An invalid request spec is rejected synchronously and
// affects no other view. Resubscribing under the same ID after Unsubscribe
// restarts the stream.
//
// Every commit is computed and dispatched in order, but delivery is
// keep-latest: a subscriber that falls more than the channel buffer (see
// WithUpdateBuffer) behind loses the oldest queued updates, never the newest.
func (e *Engine) Subscribe(viewID string, spec Request) (<-chan Update, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	updates, err := e.coord.Subscribe(viewID, spec)
	e.logger.LogSubscribe(viewID, err)
	if err != nil {
		return nil, translateRequestError(err)
	}
	return updates, nil
}

// Unsubscribe removes a view and closes its stream.
func (e *Engine) Unsubscribe(viewID string) {
	e.coord.Unsubscribe(viewID)
}

// BeginBrush enters the previewing state for field, discarding any draft from
// a previously brushed field. Calling EmitBrush with PhasePreview begins a
// brush implicitly; BeginBrush exists for callers that want the state change
// on gesture start, before the first movement.
func (e *Engine) BeginBrush(field string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if _, err := e.store.Column(field); err != nil {
		return translateRequestError(err)
	}
	e.filters.BeginBrush(field)
	return nil
}

// EmitBrush feeds one brush gesture into the filter state machine. The
// filter's field must match field; preview gestures update the draft only,
// commit gestures advance the generation and re-filter every view.
func (e *Engine) EmitBrush(field string, f Filter, phase BrushPhase) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	err := e.validateFilter(field, f)
	e.logger.LogBrush(field, phase, err)
	if err != nil {
		return translateRequestError(err)
	}

	if phase == PhaseCommit {
		e.filters.CommitBrush(f)
	} else {
		e.filters.UpdateBrush(f)
	}
	return nil
}

// validateFilter checks the filter against the store synchronously, so a bad
// brush is rejected before it can enter the state machine.
func (e *Engine) validateFilter(field string, f Filter) error {
	if f.Field() != field {
		return &ErrFieldMismatch{Field: field, FilterField: f.Field()}
	}
	col, err := e.store.Column(field)
	if err != nil {
		return err
	}
	_, err = f.Compile(col)
	return err
}

// ClearFilter removes one field's committed filter. Clearing an
// unconstrained field is not an error but is still a committed mutation.
func (e *Engine) ClearFilter(field string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	e.filters.ClearFilter(field)
	return nil
}

// ResetAll empties the envelope as a single committed mutation. Afterwards
// foreground equals background in every panel.
func (e *Engine) ResetAll() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	e.filters.ResetAll()
	return nil
}

// ExportRows returns a lazy sequence of the row indices passing env, for an
// external formatting/export component to materialize. A nil env exports
// every row. Filters are evaluated during iteration; no mask is
// materialized.
func (e *Engine) ExportRows(env Envelope) (iter.Seq[uint32], error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	type bound struct {
		pred filter.Predicate
	}
	bounds := make([]bound, 0, len(env))
	for _, field := range env.Fields() {
		col, err := e.store.Column(field)
		if err != nil {
			return nil, translateRequestError(err)
		}
		pred, err := env[field].Compile(col)
		if err != nil {
			return nil, translateRequestError(err)
		}
		bounds = append(bounds, bound{pred: pred})
	}

	n := e.store.Len()
	return func(yield func(uint32) bool) {
		for row := 0; row < n; row++ {
			pass := true
			for _, b := range bounds {
				if !b.pred(row) {
					pass = false
					break
				}
			}
			if pass && !yield(uint32(row)) {
				return
			}
		}
	}, nil
}

// Stats reports the engine's current selection and cache state.
type Stats struct {
	TotalRows       int
	SelectedRows    uint64
	SelectedPercent float64
	Generation      uint64
	CacheHits       int64
	CacheMisses     int64
	CacheBytes      int64
}

// Stats returns a consistent snapshot of selection and cache counters.
func (e *Engine) Stats() Stats {
	gen, sel := e.coord.Selection()
	hits, misses := e.results.Stats()

	s := Stats{
		TotalRows:    e.store.Len(),
		SelectedRows: sel.Count(),
		Generation:   gen,
		CacheHits:    hits,
		CacheMisses:  misses,
		CacheBytes:   e.results.Size(),
	}
	if s.TotalRows > 0 {
		s.SelectedPercent = 100 * float64(s.SelectedRows) / float64(s.TotalRows)
	}
	return s
}

// FilteredCount returns the number of rows passing the committed envelope.
func (e *Engine) FilteredCount() uint64 {
	_, sel := e.coord.Selection()
	return sel.Count()
}

// Fields returns the dataset's column names in load order.
func (e *Engine) Fields() []string { return e.store.Fields() }

// NumRows returns N, the dataset row count.
func (e *Engine) NumRows() int { return e.store.Len() }

// Close tears the engine down: in-flight work drains and every view stream
// is closed. Close is idempotent.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	start := time.Now()
	e.coord.Close()
	e.logger.LogClose(time.Since(start))
}

// ErrFieldMismatch indicates a brush whose filter targets a different field
// than the gesture names.
type ErrFieldMismatch struct {
	Field       string
	FilterField string
}

func (e *ErrFieldMismatch) Error() string {
	return "brush field " + e.Field + " does not match filter field " + e.FilterField
}
