// Package crossfilter provides the interactive cross-filtering and
// aggregation engine behind a multi-panel data-exploration dashboard.
//
// The engine keeps many linked visual panels (histograms, category bars,
// scatter views) consistent and responsive while a user brushes ranges
// against a dataset of up to ~10M rows. It guarantees consistent aggregates
// across concurrently-updating views, avoids recomputation storms during
// interactive dragging, and stays correct under out-of-order asynchronous
// computation.
//
// # Quick Start
//
//	eng, err := crossfilter.New(ctx, []crossfilter.ColumnSpec{
//	    {Name: "price", Kind: crossfilter.KindNumeric, Floats: prices},
//	    {Name: "region", Kind: crossfilter.KindCategorical, Codes: codes, Labels: labels},
//	})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	updates, _ := eng.Subscribe("price-histogram", crossfilter.Request{
//	    Kind:  crossfilter.KindHistogram,
//	    Field: "price",
//	    Bins:  40,
//	})
//
//	// Interactive brushing: previews give visual feedback, the commit is
//	// the canonical change that re-filters every panel.
//	eng.EmitBrush("price", crossfilter.Range{FieldName: "price", Min: 10, Max: 20}, crossfilter.PhasePreview)
//	eng.EmitBrush("price", crossfilter.Range{FieldName: "price", Min: 10, Max: 25}, crossfilter.PhaseCommit)
//
//	for u := range updates {
//	    render(u.Generation, u.Result)
//	}
//
// # Filtering Model
//
// Filters are structured values, not a query language. An envelope holds at
// most one filter per field; fields combine by intersection, and committing
// a filter for an already-filtered field overwrites that field's prior
// filter. Every committed change advances a generation counter; aggregate
// results are tagged with the generation they were computed against, and a
// view only ever renders forward in generation order.
//
// # Key Features
//
//   - Typed columnar storage, immutable after load
//   - Two-phase (preview/commit) brush state machine
//   - Fixed bin edges per field: axes never jump while filtering
//   - Background/foreground counts per bin for every panel
//   - Generation-keyed memoization of aggregate results (LRU, byte-bounded)
//   - Out-of-order-safe delivery via monotonic apply
//   - Session snapshot/restore of filter state and lazy filtered-row export
//
// Data loading, chart rendering, and export formatting are external
// collaborators; the engine owns only in-memory session state.
package crossfilter
