package aggregate

import (
	"math"
	"sync"

	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/mask"
)

// Aggregator computes results against one store. It memoizes the fixed bin
// edges per (field, bin count); everything else is stateless.
type Aggregator struct {
	store *column.Store

	mu    sync.Mutex
	edges map[edgeKey][]float64
}

type edgeKey struct {
	field string
	bins  int
}

// New creates an Aggregator for the store.
func New(store *column.Store) *Aggregator {
	return &Aggregator{
		store: store,
		edges: make(map[edgeKey][]float64),
	}
}

// Run executes the request against the selection. The caller must have
// validated the request; Run still surfaces column lookup errors defensively
// but performs no bin-spec checking of its own.
func (a *Aggregator) Run(req Request, sel *mask.Selection) (*Result, error) {
	switch req.Kind {
	case KindCategory:
		return a.runCategory(req, sel)
	case KindJoint:
		return a.runJoint(req, sel)
	default:
		return a.runHistogram(req, sel)
	}
}

// fieldEdges returns the fixed edges for a field at a bin count. Edges are
// derived from the full-data range on first use and never recomputed:
// per-filter edges would make axes jump while brushing.
func (a *Aggregator) fieldEdges(col column.Column, bins int) []float64 {
	key := edgeKey{field: col.Name(), bins: bins}

	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.edges[key]; ok {
		return e
	}

	lo, hi := col.Min(), col.Max()
	if hi <= lo {
		// Constant column: widen so every row lands in bin 0.
		hi = lo + 1
	}

	e := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := 0; i <= bins; i++ {
		e[i] = lo + float64(i)*width
	}
	e[bins] = hi

	a.edges[key] = e
	return e
}

// binIndex places v on edges, clamping the extremes so that every row lands
// in some bin and background totals always sum to N. The last bin is closed
// on the right.
func binIndex(v float64, edges []float64) int {
	bins := len(edges) - 1
	lo, hi := edges[0], edges[bins]
	if v <= lo {
		return 0
	}
	if v >= hi {
		return bins - 1
	}

	idx := int(float64(bins) * (v - lo) / (hi - lo))
	if idx >= bins {
		idx = bins - 1
	}
	// Uniform-width estimate can be off by one at bin boundaries due to
	// floating point; nudge into the true half-open interval.
	for idx > 0 && v < edges[idx] {
		idx--
	}
	for idx < bins-1 && v >= edges[idx+1] {
		idx++
	}
	return idx
}

func (a *Aggregator) runHistogram(req Request, sel *mask.Selection) (*Result, error) {
	col, err := a.store.Column(req.Field)
	if err != nil {
		return nil, err
	}

	edges := req.Edges
	if len(edges) == 0 {
		edges = a.fieldEdges(col, req.Bins)
	}
	bins := len(edges) - 1

	res := &Result{
		Kind:       KindHistogram,
		Field:      req.Field,
		Edges:      edges,
		Background: make([]uint64, bins),
		Foreground: make([]uint64, bins),
	}

	var acc summaryAcc
	n := col.Len()
	for row := 0; row < n; row++ {
		v := col.Float(row)
		b := binIndex(v, edges)
		res.Background[b]++
		if sel.Contains(uint32(row)) {
			res.Foreground[b]++
			acc.add(v)
		}
	}

	res.Summary = acc.summary()
	return res, nil
}

func (a *Aggregator) runCategory(req Request, sel *mask.Selection) (*Result, error) {
	col, err := a.store.Column(req.Field)
	if err != nil {
		return nil, err
	}

	numCodes := col.NumCodes()
	res := &Result{
		Kind:       KindCategory,
		Field:      req.Field,
		Background: make([]uint64, numCodes),
		Foreground: make([]uint64, numCodes),
		Labels:     make([]string, numCodes),
		Shares:     make([]float64, numCodes),
	}
	for code := 0; code < numCodes; code++ {
		res.Labels[code] = col.Label(uint32(code))
	}

	n := col.Len()
	for row := 0; row < n; row++ {
		code := col.Code(row)
		res.Background[code]++
		if sel.Contains(uint32(row)) {
			res.Foreground[code]++
		}
	}

	for code := range res.Shares {
		if res.Background[code] > 0 {
			res.Shares[code] = float64(res.Foreground[code]) / float64(res.Background[code])
		}
	}
	return res, nil
}

func (a *Aggregator) runJoint(req Request, sel *mask.Selection) (*Result, error) {
	colX, err := a.store.Column(req.Field)
	if err != nil {
		return nil, err
	}
	colY, err := a.store.Column(req.Field2)
	if err != nil {
		return nil, err
	}

	edgesX := req.Edges
	if len(edgesX) == 0 {
		edgesX = a.fieldEdges(colX, req.Bins)
	}
	// Each axis follows the fixed-edges rule independently.
	edgesY := a.fieldEdges(colY, req.Bins2)

	binsX := len(edgesX) - 1
	binsY := len(edgesY) - 1

	res := &Result{
		Kind:       KindJoint,
		Field:      req.Field,
		Field2:     req.Field2,
		Edges:      edgesX,
		EdgesY:     edgesY,
		BinsX:      binsX,
		BinsY:      binsY,
		Background: make([]uint64, binsX*binsY),
		Foreground: make([]uint64, binsX*binsY),
	}

	n := colX.Len()
	for row := 0; row < n; row++ {
		bx := binIndex(colX.Float(row), edgesX)
		by := binIndex(colY.Float(row), edgesY)
		cell := bx*binsY + by
		res.Background[cell]++
		if sel.Contains(uint32(row)) {
			res.Foreground[cell]++
		}
	}
	return res, nil
}

// summaryAcc accumulates count, mean, and M2 in a single pass (Welford), plus
// min/max of the selection.
type summaryAcc struct {
	count uint64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

func (s *summaryAcc) add(v float64) {
	s.count++
	if s.count == 1 {
		s.min, s.max = v, v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (v - s.mean)
}

func (s *summaryAcc) summary() Summary {
	out := Summary{Count: s.count, Mean: s.mean, Min: s.min, Max: s.max}
	if s.count > 1 {
		out.Stddev = math.Sqrt(s.m2 / float64(s.count-1))
	}
	return out
}
