package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/crossfilter/internal/column"
)

// ErrKindMismatch is returned when a filter targets a column of the wrong kind.
var ErrKindMismatch = errors.New("filter kind does not match column kind")

// ErrUnknownFilterType is returned when decoding a session filter with an
// unrecognized type tag.
var ErrUnknownFilterType = errors.New("unknown filter type")

// Predicate reports whether a single row passes a filter.
type Predicate func(row int) bool

// Filter is one structured constraint on a single field.
type Filter interface {
	// Field returns the constrained field name.
	Field() string
	// Compile binds the filter to its column and returns a per-row predicate.
	Compile(col column.Column) (Predicate, error)
}

// Range keeps rows with Min <= value < Max.
type Range struct {
	FieldName string
	Min       float64
	Max       float64
}

// Field implements Filter.
func (r Range) Field() string { return r.FieldName }

// Compile implements Filter.
func (r Range) Compile(col column.Column) (Predicate, error) {
	if col.Kind() != column.KindNumeric {
		return nil, fmt.Errorf("range filter on %q: %w", r.FieldName, ErrKindMismatch)
	}
	lo, hi := r.Min, r.Max
	return func(row int) bool {
		v := col.Float(row)
		return v >= lo && v < hi
	}, nil
}

// Set keeps rows whose category code is in Codes.
type Set struct {
	FieldName string
	Codes     *roaring.Bitmap
}

// NewSet builds a Set filter from explicit codes.
func NewSet(field string, codes ...uint32) Set {
	return Set{FieldName: field, Codes: roaring.BitmapOf(codes...)}
}

// Field implements Filter.
func (s Set) Field() string { return s.FieldName }

// Compile implements Filter.
func (s Set) Compile(col column.Column) (Predicate, error) {
	if col.Kind() != column.KindCategorical {
		return nil, fmt.Errorf("set filter on %q: %w", s.FieldName, ErrKindMismatch)
	}
	codes := s.Codes
	if codes == nil {
		return func(int) bool { return false }, nil
	}
	return func(row int) bool {
		return codes.Contains(col.Code(row))
	}, nil
}

// Angle keeps rows whose value, interpreted in degrees, lies in the arc from
// StartDeg to EndDeg going clockwise. The arc may wrap across the 0/360
// boundary: Angle{start: 350, end: 10} covers [350,360) plus [0,10). A span
// of 360 degrees or more covers the whole dial.
type Angle struct {
	FieldName string
	StartDeg  float64
	EndDeg    float64
}

// Field implements Filter.
func (a Angle) Field() string { return a.FieldName }

// Compile implements Filter.
func (a Angle) Compile(col column.Column) (Predicate, error) {
	if col.Kind() != column.KindNumeric {
		return nil, fmt.Errorf("angle filter on %q: %w", a.FieldName, ErrKindMismatch)
	}
	// A full circle must be caught before normalization folds the end onto
	// the start and turns it into an empty arc.
	if a.EndDeg-a.StartDeg >= 360 {
		return func(int) bool { return true }, nil
	}
	start, end := normDeg(a.StartDeg), normDeg(a.EndDeg)
	if start <= end {
		return func(row int) bool {
			v := normDeg(col.Float(row))
			return v >= start && v < end
		}, nil
	}
	// Wrapped arc.
	return func(row int) bool {
		v := normDeg(col.Float(row))
		return v >= start || v < end
	}, nil
}

// normDeg maps any degree value into [0, 360).
func normDeg(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
