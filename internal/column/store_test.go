package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	store, err := Load([]Spec{
		{Name: "x", Kind: KindNumeric, Floats: []float64{1, 2, 3, 4, 5}},
		{Name: "cat", Kind: KindCategorical, Codes: []uint32{0, 1, 2, 1, 0}, Labels: []string{"A", "B", "C"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, store.Len())
	assert.Equal(t, []string{"x", "cat"}, store.Fields())

	x, err := store.Column("x")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, x.Kind())
	assert.Equal(t, 1.0, x.Min())
	assert.Equal(t, 5.0, x.Max())
	assert.Equal(t, 3.0, x.Float(2))

	cat, err := store.Column("cat")
	require.NoError(t, err)
	assert.Equal(t, KindCategorical, cat.Kind())
	assert.Equal(t, 3, cat.NumCodes())
	assert.Equal(t, "B", cat.Label(1))
	assert.Equal(t, uint32(2), cat.Code(2))
}

func TestLoad_LengthMismatch(t *testing.T) {
	_, err := Load([]Spec{
		{Name: "x", Kind: KindNumeric, Floats: []float64{1, 2, 3}},
		{Name: "y", Kind: KindNumeric, Floats: []float64{1, 2}},
	})
	require.Error(t, err)

	var lm *ErrLengthMismatch
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, "y", lm.Column)
	assert.Equal(t, 2, lm.Len)
	assert.Equal(t, 3, lm.Want)
}

func TestLoad_TypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "numeric without floats",
			spec: Spec{Name: "x", Kind: KindNumeric},
		},
		{
			name: "numeric with codes",
			spec: Spec{Name: "x", Kind: KindNumeric, Floats: []float64{1}, Codes: []uint32{0}},
		},
		{
			name: "categorical without codes",
			spec: Spec{Name: "x", Kind: KindCategorical, Labels: []string{"A"}},
		},
		{
			name: "code outside label table",
			spec: Spec{Name: "x", Kind: KindCategorical, Codes: []uint32{5}, Labels: []string{"A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]Spec{tt.spec})
			var tm *ErrTypeMismatch
			require.ErrorAs(t, err, &tm)
			assert.Equal(t, "x", tm.Column)
		})
	}
}

func TestLoad_DuplicateName(t *testing.T) {
	_, err := Load([]Spec{
		{Name: "x", Kind: KindNumeric, Floats: []float64{1, 2}},
		{Name: "x", Kind: KindNumeric, Floats: []float64{3, 4}},
	})
	require.Error(t, err)

	var dup *ErrDuplicateColumn
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Column)
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestStore_UnknownColumn(t *testing.T) {
	store, err := Load([]Spec{{Name: "x", Kind: KindNumeric, Floats: []float64{1}}})
	require.NoError(t, err)

	_, err = store.Column("nope")
	var unknown *ErrUnknownColumn
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Column)
}

func TestLabelTable_Interning(t *testing.T) {
	store, err := Load([]Spec{{
		Name:   "cat",
		Kind:   KindCategorical,
		Codes:  []uint32{0, 1, 2},
		Labels: []string{"alpha", "beta", "gamma"},
	}})
	require.NoError(t, err)

	cat, err := store.Column("cat")
	require.NoError(t, err)
	assert.Equal(t, "alpha", cat.Label(0))
	assert.Equal(t, "beta", cat.Label(1))
	assert.Equal(t, "gamma", cat.Label(2))
	assert.Equal(t, "", cat.Label(99))
}
