package aggregate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/hupe1980/crossfilter/internal/column"
)

var (
	// ErrInvalidBinCount is returned for a non-positive bin count.
	ErrInvalidBinCount = errors.New("bin count must be positive")
	// ErrInvalidEdges is returned for explicit edges that are not strictly
	// increasing or have fewer than two entries.
	ErrInvalidEdges = errors.New("explicit edges must be strictly increasing with at least two entries")
	// ErrFieldKind is returned when a request targets a column of the wrong
	// kind, e.g. a histogram over a categorical field.
	ErrFieldKind = errors.New("request kind does not match column kind")
	// ErrMissingField is returned when a joint request lacks its second field.
	ErrMissingField = errors.New("joint request needs two fields")
)

// Kind selects the aggregation shape.
type Kind uint8

const (
	// KindHistogram bins one numeric field.
	KindHistogram Kind = iota
	// KindCategory counts one categorical field per code.
	KindCategory
	// KindJoint bins two numeric fields into a 2-D grid.
	KindJoint
)

// Request describes one aggregation. The generation snapshot is stamped at
// dispatch time by the coordinator, not carried here: the same shape at two
// generations is the same Request.
type Request struct {
	Kind   Kind
	Field  string
	Field2 string    // KindJoint only
	Bins   int       // bin count for Field; ignored when Edges is set
	Bins2  int       // bin count for Field2 (KindJoint)
	Edges  []float64 // optional explicit edges for Field
}

// Validate rejects malformed requests synchronously, before any computation
// is scheduled. It checks field existence, kind compatibility, and the bin
// specification.
func (r Request) Validate(store *column.Store) error {
	col, err := store.Column(r.Field)
	if err != nil {
		return err
	}

	switch r.Kind {
	case KindHistogram:
		if col.Kind() != column.KindNumeric {
			return fmt.Errorf("histogram over %q: %w", r.Field, ErrFieldKind)
		}
		return r.validateBinSpec()

	case KindCategory:
		if col.Kind() != column.KindCategorical {
			return fmt.Errorf("category counts over %q: %w", r.Field, ErrFieldKind)
		}
		return nil

	case KindJoint:
		if r.Field2 == "" {
			return ErrMissingField
		}
		col2, err := store.Column(r.Field2)
		if err != nil {
			return err
		}
		if col.Kind() != column.KindNumeric || col2.Kind() != column.KindNumeric {
			return fmt.Errorf("joint binning over %q, %q: %w", r.Field, r.Field2, ErrFieldKind)
		}
		if err := r.validateBinSpec(); err != nil {
			return err
		}
		if r.Bins2 <= 0 {
			return fmt.Errorf("field %q: %w", r.Field2, ErrInvalidBinCount)
		}
		return nil

	default:
		return fmt.Errorf("unknown request kind %d", r.Kind)
	}
}

func (r Request) validateBinSpec() error {
	if len(r.Edges) > 0 {
		if len(r.Edges) < 2 {
			return ErrInvalidEdges
		}
		for i := 1; i < len(r.Edges); i++ {
			if r.Edges[i] <= r.Edges[i-1] {
				return ErrInvalidEdges
			}
		}
		return nil
	}
	if r.Bins <= 0 {
		return fmt.Errorf("field %q: %w", r.Field, ErrInvalidBinCount)
	}
	return nil
}

// ShapeHash returns a stable hash of the request shape. Combined with a
// generation it forms the cache key; two requests with equal shape and
// generation are interchangeable, so collisions across distinct shapes are
// the only thing the hash has to avoid.
func (r Request) ShapeHash() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	buf[0] = byte(r.Kind)
	h.Write(buf[:1])
	h.Write([]byte(r.Field))
	h.Write([]byte{0})
	h.Write([]byte(r.Field2))
	h.Write([]byte{0})

	binary.LittleEndian.PutUint64(buf[:], uint64(r.Bins))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(r.Bins2))
	h.Write(buf[:])

	for _, e := range r.Edges {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e))
		h.Write(buf[:])
	}

	return h.Sum64()
}
