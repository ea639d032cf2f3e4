package filter

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Envelope maps field name to the single active Filter for that field.
// Absence means unconstrained. A nil Envelope is a valid empty envelope.
type Envelope map[string]Filter

// Clone returns an independent copy. Filter values are immutable, so a
// shallow copy of the map suffices.
func (e Envelope) Clone() Envelope {
	out := make(Envelope, len(e))
	for f, flt := range e {
		out[f] = flt
	}
	return out
}

// With returns a copy with f's field replaced (overwrite, not union).
func (e Envelope) With(f Filter) Envelope {
	out := e.Clone()
	out[f.Field()] = f
	return out
}

// Without returns a copy with field removed. Removing an absent field is a
// no-op, not an error.
func (e Envelope) Without(field string) Envelope {
	out := e.Clone()
	delete(out, field)
	return out
}

// Fields returns the constrained field names, sorted for deterministic
// iteration.
func (e Envelope) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Encoded is the wire/session form of one Filter, used by snapshot save and
// restore. Exactly one variant's fields are meaningful, selected by Type.
type Encoded struct {
	Type     string   `json:"type"`
	Field    string   `json:"field"`
	Min      float64  `json:"min,omitempty"`
	Max      float64  `json:"max,omitempty"`
	Codes    []uint32 `json:"codes,omitempty"`
	StartDeg float64  `json:"startDeg,omitempty"`
	EndDeg   float64  `json:"endDeg,omitempty"`
}

const (
	encodedRange = "range"
	encodedSet   = "set"
	encodedAngle = "angle"
)

// Encode converts the envelope to its session form, ordered by field name.
func (e Envelope) Encode() []Encoded {
	out := make([]Encoded, 0, len(e))
	for _, field := range e.Fields() {
		switch f := e[field].(type) {
		case Range:
			out = append(out, Encoded{Type: encodedRange, Field: field, Min: f.Min, Max: f.Max})
		case Set:
			var codes []uint32
			if f.Codes != nil {
				codes = f.Codes.ToArray()
			}
			out = append(out, Encoded{Type: encodedSet, Field: field, Codes: codes})
		case Angle:
			out = append(out, Encoded{Type: encodedAngle, Field: field, StartDeg: f.StartDeg, EndDeg: f.EndDeg})
		}
	}
	return out
}

// Decode rebuilds an Envelope from its session form.
func Decode(encoded []Encoded) (Envelope, error) {
	env := make(Envelope, len(encoded))
	for _, enc := range encoded {
		switch enc.Type {
		case encodedRange:
			env[enc.Field] = Range{FieldName: enc.Field, Min: enc.Min, Max: enc.Max}
		case encodedSet:
			env[enc.Field] = Set{FieldName: enc.Field, Codes: roaring.BitmapOf(enc.Codes...)}
		case encodedAngle:
			env[enc.Field] = Angle{FieldName: enc.Field, StartDeg: enc.StartDeg, EndDeg: enc.EndDeg}
		default:
			return nil, fmt.Errorf("%w %q for field %q", ErrUnknownFilterType, enc.Type, enc.Field)
		}
	}
	return env, nil
}
