// Package coordinator orchestrates filter changes into consistent view
// updates.
//
// On every committed filter change it derives the selection mask exactly
// once, then issues one snapshot-stamped aggregate request per subscribed
// view, so all panels render against the same generation - never a mix of
// old and new filter state. Responses from the compute boundary may arrive
// out of order; the monotonic-apply rule drops anything older than what a
// view has already rendered. Stale drops are expected and silent, not
// errors.
package coordinator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/cache"
	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/compute"
	"github.com/hupe1980/crossfilter/internal/filter"
	"github.com/hupe1980/crossfilter/internal/filterstore"
	"github.com/hupe1980/crossfilter/internal/mask"
	"github.com/hupe1980/crossfilter/internal/resource"
)

// Observer receives operational signals. Implementations must be safe for
// concurrent use.
type Observer interface {
	RecordCommit(generation uint64, views int, d time.Duration)
	RecordPreview(views int)
	RecordAggregate(d time.Duration, cacheHit bool, err error)
	RecordStaleDrop(view string)
	RecordMaskBuild(d time.Duration, selected uint64)
}

// Update is one delivery on a view's result stream.
type Update struct {
	Generation uint64
	Result     *aggregate.Result
	Err        error
}

const defaultUpdateBuffer = 16

type view struct {
	id   string
	spec aggregate.Request
	out  chan Update

	appliedGen uint64
	appliedSeq uint64

	previewInflight bool
	pendingPreview  *previewBatch
}

// previewBatch is a preview selection shared by every view the preview event
// fans out to, so a superseded dispatch can reuse it without another O(N)
// pass.
type previewBatch struct {
	sel *mask.Selection
	gen uint64
}

// Coordinator wires the filter store, aggregator, cache, and compute pool to
// the subscribed views.
type Coordinator struct {
	store   *column.Store
	fstore  *filterstore.Store
	agg     *aggregate.Aggregator
	results *cache.Cache
	pool    *compute.Pool
	log     *slog.Logger
	obs     Observer

	updateBuf int

	mu     sync.Mutex
	views  map[string]*view
	curGen uint64
	curSel *mask.Selection
	seq    uint64
	closed bool

	wg sync.WaitGroup
}

// Config carries the coordinator's collaborators.
type Config struct {
	Store    *column.Store
	Filters  *filterstore.Store
	Agg      *aggregate.Aggregator
	Cache    *cache.Cache
	Workers  int
	Logger   *slog.Logger
	Observer Observer
	Resource *resource.Controller
	// UpdateBuffer sizes each view's update channel; <= 0 uses the default.
	UpdateBuffer int
}

// New builds a coordinator and starts its event loop. The initial selection
// is the full dataset at generation zero.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		store:     cfg.Store,
		fstore:    cfg.Filters,
		agg:       cfg.Agg,
		results:   cfg.Cache,
		log:       cfg.Logger,
		obs:       cfg.Observer,
		updateBuf: cfg.UpdateBuffer,
		views:     make(map[string]*view),
		curSel:    mask.Full(cfg.Store.Len()),
	}
	if c.updateBuf <= 0 {
		c.updateBuf = defaultUpdateBuffer
	}
	c.pool = compute.NewPool(cfg.Workers, cfg.Resource, c.execute)

	c.wg.Add(1)
	go c.run()
	return c
}

// execute resolves one request, consulting the cache for committed
// generations. Previews bypass the cache: they are not generation-keyed.
func (c *Coordinator) execute(req compute.Request) (*aggregate.Result, error) {
	if !req.Preview {
		key := cache.Key{Shape: req.Spec.ShapeHash(), Generation: req.Generation}
		if res, ok := c.results.Get(key); ok {
			c.obs.RecordAggregate(0, true, nil)
			return res, nil
		}

		start := time.Now()
		res, err := c.agg.Run(req.Spec, req.Sel)
		c.obs.RecordAggregate(time.Since(start), false, err)
		if err == nil {
			c.results.Set(key, res)
		}
		return res, err
	}

	start := time.Now()
	res, err := c.agg.Run(req.Spec, req.Sel)
	c.obs.RecordAggregate(time.Since(start), false, err)
	return res, err
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	events := c.fstore.Events()
	responses := c.pool.Responses()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case filterstore.EventCommit:
				c.handleCommit(ev)
			case filterstore.EventPreview:
				c.handlePreview(ev)
			}

		case resp := <-responses:
			c.apply(resp)
		}
	}
}

// handleCommit derives the generation's selection once and fans out one
// stamped request per view. Commits are processed strictly in commit order
// and never coalesced.
func (c *Coordinator) handleCommit(ev filterstore.Event) {
	start := time.Now()

	sel, err := c.buildSelection(ev.Envelope, start)
	if err != nil {
		// Committed envelopes were validated at commit time; a failure here
		// means a column disappeared, which cannot happen on an immutable
		// store. Log and keep the previous selection.
		c.log.Error("selection rebuild failed", "generation", ev.Generation, "error", err)
		return
	}

	c.mu.Lock()
	c.curGen = ev.Generation
	c.curSel = sel
	targets := make([]*view, 0, len(c.views))
	for _, v := range c.views {
		targets = append(targets, v)
	}
	n := len(targets)
	c.mu.Unlock()

	for _, v := range targets {
		c.dispatch(v, ev.Generation, sel, false)
	}

	c.obs.RecordCommit(ev.Generation, n, time.Since(start))
	c.log.Debug("commit processed",
		"generation", ev.Generation,
		"field", ev.Field,
		"selected", sel.Count(),
		"views", n,
	)
}

// handlePreview fans draft feedback out to the views, holding to at most one
// outstanding preview compute per view. A newer preview supersedes an older
// pending one; the superseded dispatch simply never happens.
func (c *Coordinator) handlePreview(ev filterstore.Event) {
	sel, err := c.buildSelection(ev.Envelope, time.Now())
	if err != nil {
		c.log.Debug("preview selection failed", "field", ev.Field, "error", err)
		return
	}
	batch := &previewBatch{sel: sel, gen: ev.Generation}

	c.mu.Lock()
	var ready []*view
	for _, v := range c.views {
		if v.previewInflight {
			v.pendingPreview = batch
			continue
		}
		v.previewInflight = true
		ready = append(ready, v)
	}
	n := len(c.views)
	c.mu.Unlock()

	for _, v := range ready {
		c.dispatch(v, batch.gen, batch.sel, true)
	}
	c.obs.RecordPreview(n)
}

func (c *Coordinator) buildSelection(env filter.Envelope, start time.Time) (*mask.Selection, error) {
	sel, err := mask.Build(c.store, env)
	if err != nil {
		return nil, err
	}
	c.obs.RecordMaskBuild(time.Since(start), sel.Count())
	return sel, nil
}

func (c *Coordinator) dispatch(v *view, gen uint64, sel *mask.Selection, preview bool) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.pool.Submit(compute.Request{
		ID:         uuid.New(),
		View:       v.id,
		Spec:       v.spec,
		Generation: gen,
		Seq:        seq,
		Sel:        sel,
		Preview:    preview,
	})
}

// apply enforces monotonic-apply: a response lands only if it is not older,
// by (generation, seq), than what the view already rendered. Anything older
// is dropped silently - that is the staleness-discard mechanism, not an
// error path.
func (c *Coordinator) apply(resp compute.Response) {
	c.mu.Lock()
	v, ok := c.views[resp.View]
	if !ok {
		c.mu.Unlock()
		return
	}

	var pending *previewBatch
	if resp.Preview {
		v.previewInflight = false
		pending, v.pendingPreview = v.pendingPreview, nil
		if pending != nil {
			v.previewInflight = true
		}
	}

	stale := resp.Generation < v.appliedGen ||
		(resp.Generation == v.appliedGen && resp.Seq < v.appliedSeq)
	if !stale {
		v.appliedGen = resp.Generation
		v.appliedSeq = resp.Seq
		deliver(v, Update{Generation: resp.Generation, Result: resp.Result, Err: resp.Err})
	}
	c.mu.Unlock()

	if stale {
		c.obs.RecordStaleDrop(resp.View)
		c.log.Debug("stale response dropped",
			"view", resp.View,
			"generation", resp.Generation,
			"seq", resp.Seq,
		)
	}

	if pending != nil {
		c.dispatch(v, pending.gen, pending.sel, true)
	}
}

// deliver pushes an update, keeping the latest under backpressure: if the
// subscriber's buffer is full the oldest queued update is discarded.
func deliver(v *view, u Update) {
	for {
		select {
		case v.out <- u:
			return
		default:
		}
		select {
		case <-v.out:
		default:
		}
	}
}

// Subscribe registers a view and returns its result stream. The request
// spec is validated synchronously; an invalid spec affects no other view.
// The new view immediately receives a result for the current generation.
//
// Every commit is computed and dispatched in order, but delivery is
// keep-latest: if the subscriber falls more than the channel buffer behind,
// the oldest queued updates are discarded so the stream always ends at the
// newest generation. Size the buffer via Config.UpdateBuffer.
func (c *Coordinator) Subscribe(viewID string, spec aggregate.Request) (<-chan Update, error) {
	if err := spec.Validate(c.store); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := c.views[viewID]; exists {
		c.mu.Unlock()
		return nil, &ErrDuplicateView{View: viewID}
	}

	v := &view{
		id:   viewID,
		spec: spec,
		out:  make(chan Update, c.updateBuf),
	}
	c.views[viewID] = v
	gen, sel := c.curGen, c.curSel
	c.mu.Unlock()

	c.dispatch(v, gen, sel, false)
	c.log.Debug("view subscribed", "view", viewID, "generation", gen)
	return v.out, nil
}

// Unsubscribe removes a view and closes its stream. Unknown views are a
// no-op.
func (c *Coordinator) Unsubscribe(viewID string) {
	c.mu.Lock()
	v, ok := c.views[viewID]
	if ok {
		delete(c.views, viewID)
	}
	c.mu.Unlock()

	if ok {
		close(v.out)
		c.log.Debug("view unsubscribed", "view", viewID)
	}
}

// Selection returns the current committed generation and its selection.
func (c *Coordinator) Selection() (uint64, *mask.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curGen, c.curSel
}

// Close tears the coordinator down: the filter store's event stream is
// closed, in-flight work drains, and every view stream is closed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.fstore.Close()
	c.wg.Wait()
	c.pool.Close()
	for range c.pool.Responses() {
		// shutdown discards whatever was still in flight
	}

	c.mu.Lock()
	for id, v := range c.views {
		close(v.out)
		delete(c.views, id)
	}
	c.mu.Unlock()
}
