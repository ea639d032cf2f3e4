// Package aggregate computes binned and summary statistics against the
// column store for a given selection.
//
// Running a request is a pure function of (store, selection, request):
// deterministic, one pass over the relevant column(s), O(N). Bin edges for a
// field are computed once from the field's full-data range and held fixed for
// the life of the aggregator; they never move when filters change, so chart
// axes stay stable while brushing.
package aggregate
