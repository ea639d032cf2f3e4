// Package column implements the typed, immutable columnar dataset backing the
// cross-filtering engine.
//
// A Store owns the raw buffers for every column. All other components hold
// read-only Column views; no caller may mutate a buffer after Load. Numeric
// columns capture their full-data min/max at load time, which is the basis
// for filter-independent bin edges. Categorical columns intern their labels
// into a single backing buffer with an offset index rather than holding one
// heap string per row.
package column
