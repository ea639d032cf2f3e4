package column

import (
	"math"
)

// Kind identifies the physical type of a column.
type Kind uint8

const (
	// KindNumeric is a float64-backed column.
	KindNumeric Kind = iota
	// KindCategorical is a uint32-code-backed column with a label table.
	KindCategorical
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Spec describes one column handed to Load by the loading collaborator.
// Exactly one of Floats or Codes must be populated, matching Kind.
type Spec struct {
	Name   string
	Kind   Kind
	Floats []float64
	Codes  []uint32
	Labels []string // code -> label, KindCategorical only
}

// labelTable interns categorical labels into one backing buffer plus an
// offset index, so a 10M-row column carries no per-row string headers.
type labelTable struct {
	buf     []byte
	offsets []uint32 // len(labels)+1 entries
}

func newLabelTable(labels []string) labelTable {
	t := labelTable{offsets: make([]uint32, 0, len(labels)+1)}
	for _, l := range labels {
		t.offsets = append(t.offsets, uint32(len(t.buf)))
		t.buf = append(t.buf, l...)
	}
	t.offsets = append(t.offsets, uint32(len(t.buf)))
	return t
}

func (t labelTable) label(code uint32) string {
	if int(code)+1 >= len(t.offsets) {
		return ""
	}
	return string(t.buf[t.offsets[code]:t.offsets[code+1]])
}

func (t labelTable) size() int { return len(t.offsets) - 1 }

// Column is a read-only view of one column. The zero value is invalid;
// views are obtained from Store.Column.
type Column struct {
	name   string
	kind   Kind
	floats []float64
	codes  []uint32
	labels labelTable
	min    float64
	max    float64
}

// Name returns the column's field name.
func (c Column) Name() string { return c.name }

// Kind returns the column's physical type.
func (c Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c Column) Len() int {
	if c.kind == KindNumeric {
		return len(c.floats)
	}
	return len(c.codes)
}

// Float returns the value at row i. Valid only for KindNumeric.
func (c Column) Float(i int) float64 { return c.floats[i] }

// Code returns the category code at row i. Valid only for KindCategorical.
func (c Column) Code(i int) uint32 { return c.codes[i] }

// Label resolves a category code to its label.
func (c Column) Label(code uint32) string { return c.labels.label(code) }

// NumCodes returns the size of the category code space.
func (c Column) NumCodes() int { return c.labels.size() }

// Min returns the full-data minimum captured at load. KindNumeric only.
func (c Column) Min() float64 { return c.min }

// Max returns the full-data maximum captured at load. KindNumeric only.
func (c Column) Max() float64 { return c.max }

// Store owns the immutable dataset. It is safe for concurrent readers after
// Load returns; nothing mutates it afterwards.
type Store struct {
	cols  map[string]Column
	order []string
	n     int
}

// Load validates the specs and builds the store. It fails with
// ErrLengthMismatch if any column's length differs from the first column's,
// with ErrTypeMismatch if a declared kind does not match the backing buffer
// or a code exceeds the label table, and with ErrDuplicateColumn if two
// specs share a name.
func Load(specs []Spec) (*Store, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyDataset
	}

	s := &Store{cols: make(map[string]Column, len(specs))}
	s.n = specLen(specs[0])

	for _, spec := range specs {
		if _, ok := s.cols[spec.Name]; ok {
			return nil, &ErrDuplicateColumn{Column: spec.Name}
		}
		if l := specLen(spec); l != s.n {
			return nil, &ErrLengthMismatch{Column: spec.Name, Len: l, Want: s.n}
		}

		col, err := buildColumn(spec)
		if err != nil {
			return nil, err
		}

		s.cols[spec.Name] = col
		s.order = append(s.order, spec.Name)
	}

	return s, nil
}

func specLen(spec Spec) int {
	if spec.Kind == KindNumeric {
		return len(spec.Floats)
	}
	return len(spec.Codes)
}

func buildColumn(spec Spec) (Column, error) {
	switch spec.Kind {
	case KindNumeric:
		if spec.Floats == nil {
			return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "no float buffer"}
		}
		if spec.Codes != nil || spec.Labels != nil {
			return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "categorical buffers present"}
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range spec.Floats {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "non-finite value"}
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if len(spec.Floats) == 0 {
			lo, hi = 0, 0
		}

		return Column{name: spec.Name, kind: spec.Kind, floats: spec.Floats, min: lo, max: hi}, nil

	case KindCategorical:
		if spec.Codes == nil {
			return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "no code buffer"}
		}
		if spec.Floats != nil {
			return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "float buffer present"}
		}

		for _, code := range spec.Codes {
			if int(code) >= len(spec.Labels) {
				return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "code outside label table"}
			}
		}

		return Column{name: spec.Name, kind: spec.Kind, codes: spec.Codes, labels: newLabelTable(spec.Labels)}, nil

	default:
		return Column{}, &ErrTypeMismatch{Column: spec.Name, Kind: spec.Kind, Reason: "unknown kind"}
	}
}

// Len returns the row count N shared by every column.
func (s *Store) Len() int { return s.n }

// Column returns the read-only view for field, or ErrUnknownColumn.
func (s *Store) Column(field string) (Column, error) {
	col, ok := s.cols[field]
	if !ok {
		return Column{}, &ErrUnknownColumn{Column: field}
	}
	return col, nil
}

// Fields returns the column names in load order.
func (s *Store) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
