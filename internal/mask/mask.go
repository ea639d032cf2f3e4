// Package mask builds and holds row selection masks.
//
// A Selection is derived from a filter envelope exactly once per committed
// generation and shared read-only by every aggregate request of that
// generation, avoiding duplicate O(N) passes per view. It is backed by a
// Roaring bitmap, which keeps the empty-envelope (all rows) and sparse cases
// cheap and gives the export path an allocation-free iterator.
package mask

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/filter"
)

// Selection is an immutable set of passing rows over 0..N-1.
type Selection struct {
	bm   *roaring.Bitmap
	n    int
	card uint64
}

// Build evaluates the envelope against the store. Fields combine by
// intersection. An empty envelope selects every row.
func Build(store *column.Store, env filter.Envelope) (*Selection, error) {
	n := store.Len()

	if len(env) == 0 {
		bm := roaring.New()
		bm.AddRange(0, uint64(n))
		return &Selection{bm: bm, n: n, card: uint64(n)}, nil
	}

	var acc *roaring.Bitmap
	for _, field := range env.Fields() {
		col, err := store.Column(field)
		if err != nil {
			return nil, err
		}
		pred, err := env[field].Compile(col)
		if err != nil {
			return nil, err
		}

		fieldBM := roaring.New()
		if acc == nil {
			// First field scans every row.
			for row := 0; row < n; row++ {
				if pred(row) {
					fieldBM.Add(uint32(row))
				}
			}
			acc = fieldBM
			continue
		}

		// Later fields only test rows still alive, shrinking the scan as
		// the intersection narrows.
		it := acc.Iterator()
		for it.HasNext() {
			row := it.Next()
			if pred(int(row)) {
				fieldBM.Add(row)
			}
		}
		acc = fieldBM
	}

	return &Selection{bm: acc, n: n, card: acc.GetCardinality()}, nil
}

// Full returns a selection of every row without evaluating anything.
func Full(n int) *Selection {
	bm := roaring.New()
	bm.AddRange(0, uint64(n))
	return &Selection{bm: bm, n: n, card: uint64(n)}
}

// Len returns N, the universe size. Always equals the dataset row count.
func (s *Selection) Len() int { return s.n }

// Count returns the number of passing rows.
func (s *Selection) Count() uint64 { return s.card }

// Contains reports whether row passes.
func (s *Selection) Contains(row uint32) bool { return s.bm.Contains(row) }

// Rows returns a lazy iterator over passing row indices in ascending order.
func (s *Selection) Rows() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := s.bm.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}
