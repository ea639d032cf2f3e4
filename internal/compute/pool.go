// Package compute executes aggregation work off the interactive path.
//
// Requests and responses are correlated by ID and tagged with the generation
// they were issued at. Responses may complete out of order relative to
// requests; ordering is the consumer's problem (the coordinator's
// monotonic-apply rule), not the pool's. There is no cancellation of
// in-flight work: a stale result costs one wasted pass and is discarded on
// arrival.
package compute

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/mask"
	"github.com/hupe1980/crossfilter/internal/resource"
)

// Request is one unit of aggregation work.
type Request struct {
	ID         uuid.UUID
	View       string
	Spec       aggregate.Request
	Generation uint64
	// Seq totally orders dispatches within a generation, so late preview
	// results can be told apart from the preview that superseded them.
	Seq uint64
	// Sel is the selection shared by every request of this generation.
	Sel *mask.Selection
	// Preview marks non-canonical draft feedback, which bypasses the cache.
	Preview bool
}

// Response carries the outcome back to the consumer. Exactly one of Result
// and Err is set.
type Response struct {
	ID         uuid.UUID
	View       string
	Generation uint64
	Seq        uint64
	Preview    bool
	Result     *aggregate.Result
	Err        error
}

// Error wraps a failure inside a background computation, correlated to its
// request. The engine stays usable; only the owning view sees it.
type Error struct {
	RequestID uuid.UUID
	View      string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compute request %s for view %q failed: %v", e.RequestID, e.View, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// ExecFunc performs the actual aggregation for one request.
type ExecFunc func(Request) (*aggregate.Result, error)

const (
	requestBuffer = 256
	// responseBuffer must exceed requestBuffer plus the worker count so a
	// producer blocked on Submit can never wedge the response side.
	responseBuffer = 1024
)

// Pool runs requests on background workers. With workers <= 0 it runs
// inline: Submit executes synchronously in the caller's goroutine, which
// keeps tests deterministic under the same correctness contract.
type Pool struct {
	exec      ExecFunc
	rc        *resource.Controller
	inline    bool
	requests  chan Request
	responses chan Response
	group     *errgroup.Group
}

// NewPool creates and starts a pool. exec must be safe for concurrent use.
func NewPool(workers int, rc *resource.Controller, exec ExecFunc) *Pool {
	p := &Pool{
		exec:      exec,
		rc:        rc,
		responses: make(chan Response, responseBuffer),
	}

	if workers <= 0 {
		p.inline = true
		return p
	}

	p.requests = make(chan Request, requestBuffer)
	p.group = &errgroup.Group{}
	for i := 0; i < workers; i++ {
		p.group.Go(p.worker)
	}
	return p
}

func (p *Pool) worker() error {
	ctx := context.Background()
	for req := range p.requests {
		if err := p.rc.AcquireWorker(ctx); err != nil {
			p.responses <- p.run(req) // budget unavailable only on ctx cancel
			continue
		}
		resp := p.run(req)
		p.rc.ReleaseWorker()
		p.responses <- resp
	}
	return nil
}

// run executes one request, converting a panic in the aggregation into an
// error response so a bad request cannot take the engine down.
func (p *Pool) run(req Request) (resp Response) {
	resp = Response{
		ID:         req.ID,
		View:       req.View,
		Generation: req.Generation,
		Seq:        req.Seq,
		Preview:    req.Preview,
	}

	defer func() {
		if r := recover(); r != nil {
			resp.Result = nil
			resp.Err = &Error{RequestID: req.ID, View: req.View, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err := p.exec(req)
	if err != nil {
		resp.Err = &Error{RequestID: req.ID, View: req.View, Cause: err}
		return resp
	}
	resp.Result = result
	return resp
}

// Submit enqueues a request. In inline mode it executes immediately.
func (p *Pool) Submit(req Request) {
	if p.inline {
		p.responses <- p.run(req)
		return
	}
	p.requests <- req
}

// Responses returns the completion stream. Closed after Close once all
// in-flight work has drained.
func (p *Pool) Responses() <-chan Response { return p.responses }

// Close stops accepting work, waits for in-flight requests, and closes the
// response stream.
func (p *Pool) Close() {
	if !p.inline {
		close(p.requests)
		_ = p.group.Wait()
	}
	close(p.responses)
}
