package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/filter"
	"github.com/hupe1980/crossfilter/internal/mask"
)

func testStore(t *testing.T) *column.Store {
	t.Helper()
	store, err := column.Load([]column.Spec{
		{Name: "x", Kind: column.KindNumeric, Floats: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{Name: "y", Kind: column.KindNumeric, Floats: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
		{Name: "cat", Kind: column.KindCategorical, Codes: []uint32{0, 0, 0, 1, 1, 1, 1, 2, 2, 2}, Labels: []string{"A", "B", "C"}},
	})
	require.NoError(t, err)
	return store
}

func selection(t *testing.T, store *column.Store, env filter.Envelope) *mask.Selection {
	t.Helper()
	sel, err := mask.Build(store, env)
	require.NoError(t, err)
	return sel
}

func TestHistogram_BackgroundSumsToN(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	res, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 4}, mask.Full(store.Len()))
	require.NoError(t, err)

	var total uint64
	for _, c := range res.Background {
		total += c
	}
	assert.Equal(t, uint64(store.Len()), total)
	assert.Len(t, res.Edges, 5)
}

func TestHistogram_ForegroundNeverExceedsBackground(t *testing.T) {
	store := testStore(t)
	agg := New(store)
	sel := selection(t, store, filter.Envelope{}.With(filter.Range{FieldName: "x", Min: 3, Max: 8}))

	res, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 5}, sel)
	require.NoError(t, err)

	for b := range res.Background {
		assert.LessOrEqual(t, res.Foreground[b], res.Background[b], "bin %d", b)
	}
}

func TestHistogram_EdgesStableUnderFilters(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	unfiltered, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 4}, mask.Full(store.Len()))
	require.NoError(t, err)

	sel := selection(t, store, filter.Envelope{}.With(filter.Range{FieldName: "x", Min: 4, Max: 6}))
	filtered, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 4}, sel)
	require.NoError(t, err)

	// Axis stability: edges derive from the full data range, never from the
	// filtered subset.
	assert.Equal(t, unfiltered.Edges, filtered.Edges)
	assert.Equal(t, 1.0, filtered.Edges[0])
	assert.Equal(t, 10.0, filtered.Edges[len(filtered.Edges)-1])
}

func TestHistogram_ExplicitEdges(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	res, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Edges: []float64{0, 5, 20}}, mask.Full(store.Len()))
	require.NoError(t, err)

	// [0,5) holds 1..4, [5,20) holds 5..10.
	assert.Equal(t, []uint64{4, 6}, res.Background)
}

func TestHistogram_Summary(t *testing.T) {
	store := testStore(t)
	agg := New(store)
	sel := selection(t, store, filter.Envelope{}.With(filter.Range{FieldName: "x", Min: 2, Max: 5}))

	res, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 3}, sel)
	require.NoError(t, err)

	// Selection holds {2,3,4}.
	assert.Equal(t, uint64(3), res.Summary.Count)
	assert.InDelta(t, 3.0, res.Summary.Mean, 1e-12)
	assert.InDelta(t, 1.0, res.Summary.Stddev, 1e-12) // sample stddev of {2,3,4}
	assert.Equal(t, 2.0, res.Summary.Min)
	assert.Equal(t, 4.0, res.Summary.Max)
}

func TestHistogram_LastBinClosed(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	res, err := agg.Run(Request{Kind: KindHistogram, Field: "x", Bins: 3}, mask.Full(store.Len()))
	require.NoError(t, err)

	// The max value 10 lands in the last bin, not outside it.
	var total uint64
	for _, c := range res.Background {
		total += c
	}
	assert.Equal(t, uint64(10), total)
	assert.NotZero(t, res.Background[2])
}

func TestCategory_Shares(t *testing.T) {
	store := testStore(t)
	agg := New(store)
	sel := selection(t, store, filter.Envelope{}.With(filter.NewSet("cat", 0, 2)))

	res, err := agg.Run(Request{Kind: KindCategory, Field: "cat"}, sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, res.Labels)
	assert.Equal(t, []uint64{3, 4, 3}, res.Background)
	assert.Equal(t, []uint64{3, 0, 3}, res.Foreground)
	assert.InDelta(t, 1.0, res.Shares[0], 1e-12)
	assert.InDelta(t, 0.0, res.Shares[1], 1e-12)
	assert.InDelta(t, 1.0, res.Shares[2], 1e-12)
}

func TestJoint_GridCounts(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	res, err := agg.Run(Request{Kind: KindJoint, Field: "x", Field2: "y", Bins: 2, Bins2: 2}, mask.Full(store.Len()))
	require.NoError(t, err)

	assert.Equal(t, 2, res.BinsX)
	assert.Equal(t, 2, res.BinsY)
	require.Len(t, res.Background, 4)

	var total uint64
	for _, c := range res.Background {
		total += c
	}
	assert.Equal(t, uint64(10), total)

	// x and y are perfectly correlated: off-diagonal cells stay empty.
	assert.Zero(t, res.Background[0*2+1])
	assert.Zero(t, res.Background[1*2+0])
}

func TestJoint_AxesIndependentlyStable(t *testing.T) {
	store := testStore(t)
	agg := New(store)

	first, err := agg.Run(Request{Kind: KindJoint, Field: "x", Field2: "y", Bins: 2, Bins2: 2}, mask.Full(store.Len()))
	require.NoError(t, err)

	sel := selection(t, store, filter.Envelope{}.With(filter.Range{FieldName: "x", Min: 1, Max: 2}))
	second, err := agg.Run(Request{Kind: KindJoint, Field: "x", Field2: "y", Bins: 2, Bins2: 2}, sel)
	require.NoError(t, err)

	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.EdgesY, second.EdgesY)
}

func TestRun_Deterministic(t *testing.T) {
	store := testStore(t)
	agg := New(store)
	sel := selection(t, store, filter.Envelope{}.With(filter.Range{FieldName: "x", Min: 2, Max: 9}))

	req := Request{Kind: KindHistogram, Field: "x", Bins: 4}
	a, err := agg.Run(req, sel)
	require.NoError(t, err)
	b, err := agg.Run(req, sel)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestValidate(t *testing.T) {
	store := testStore(t)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "valid histogram", req: Request{Kind: KindHistogram, Field: "x", Bins: 10}},
		{name: "valid category", req: Request{Kind: KindCategory, Field: "cat"}},
		{name: "valid joint", req: Request{Kind: KindJoint, Field: "x", Field2: "y", Bins: 4, Bins2: 4}},
		{name: "zero bins", req: Request{Kind: KindHistogram, Field: "x"}, wantErr: ErrInvalidBinCount},
		{name: "negative bins", req: Request{Kind: KindHistogram, Field: "x", Bins: -1}, wantErr: ErrInvalidBinCount},
		{name: "histogram over categorical", req: Request{Kind: KindHistogram, Field: "cat", Bins: 4}, wantErr: ErrFieldKind},
		{name: "category over numeric", req: Request{Kind: KindCategory, Field: "x"}, wantErr: ErrFieldKind},
		{name: "joint missing second field", req: Request{Kind: KindJoint, Field: "x", Bins: 4, Bins2: 4}, wantErr: ErrMissingField},
		{name: "non-increasing edges", req: Request{Kind: KindHistogram, Field: "x", Edges: []float64{0, 0}}, wantErr: ErrInvalidEdges},
		{name: "single edge", req: Request{Kind: KindHistogram, Field: "x", Edges: []float64{1}}, wantErr: ErrInvalidEdges},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(store)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_UnknownField(t *testing.T) {
	store := testStore(t)
	err := Request{Kind: KindHistogram, Field: "ghost", Bins: 4}.Validate(store)

	var unknown *column.ErrUnknownColumn
	assert.ErrorAs(t, err, &unknown)
}

func TestShapeHash_DistinguishesShapes(t *testing.T) {
	a := Request{Kind: KindHistogram, Field: "x", Bins: 10}
	b := Request{Kind: KindHistogram, Field: "x", Bins: 20}
	c := Request{Kind: KindHistogram, Field: "y", Bins: 10}
	d := Request{Kind: KindCategory, Field: "x"}

	hashes := map[uint64]bool{
		a.ShapeHash(): true,
		b.ShapeHash(): true,
		c.ShapeHash(): true,
		d.ShapeHash(): true,
	}
	assert.Len(t, hashes, 4)
	assert.Equal(t, a.ShapeHash(), Request{Kind: KindHistogram, Field: "x", Bins: 10}.ShapeHash())
}

func TestBinIndex_BoundaryExactness(t *testing.T) {
	edges := []float64{0, 1, 2, 3}

	assert.Equal(t, 0, binIndex(0, edges))
	assert.Equal(t, 1, binIndex(1, edges))
	assert.Equal(t, 2, binIndex(2, edges))
	assert.Equal(t, 2, binIndex(3, edges))   // max closes the last bin
	assert.Equal(t, 0, binIndex(-5, edges))  // clamp low
	assert.Equal(t, 2, binIndex(100, edges)) // clamp high
	assert.Equal(t, 1, binIndex(math.Nextafter(2, 0), edges))
}
