package aggregate

// Summary holds one-pass statistics over the selected rows of a numeric
// field.
type Summary struct {
	Count  uint64
	Mean   float64
	Stddev float64
	Min    float64
	Max    float64
}

// Result is the outcome of one aggregation.
//
// For KindHistogram: Edges has len(Background)+1 entries, Background counts
// every row, Foreground counts selected rows, Summary covers the selection.
//
// For KindCategory: Labels, Background, Foreground, and Shares are indexed by
// category code; Shares is foreground/background per code.
//
// For KindJoint: EdgesY is populated and Background/Foreground are flattened
// row-major grids of BinsX*BinsY cells.
type Result struct {
	Kind   Kind
	Field  string
	Field2 string

	Edges      []float64
	EdgesY     []float64
	BinsX      int
	BinsY      int
	Background []uint64
	Foreground []uint64

	Summary Summary

	Labels []string
	Shares []float64
}

// SizeBytes estimates the heap footprint of the result for cache accounting.
func (r *Result) SizeBytes() int64 {
	size := int64(len(r.Edges)+len(r.EdgesY)+len(r.Shares)) * 8
	size += int64(len(r.Background)+len(r.Foreground)) * 8
	for _, l := range r.Labels {
		size += int64(len(l)) + 16
	}
	return size + 128
}
