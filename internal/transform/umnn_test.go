package transform

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/flows/internal/tensor"
)

func newTestUMNN(t *testing.T, features, context int) *MaskedUMNN {
	t.Helper()
	tr, err := NewMaskedUMNN(features, context, 8, 20, []int{16, 16}, ConditionerConfig{HiddenFeatures: 32})
	require.NoError(t, err)
	return tr
}

func TestNewMaskedUMNN_Errors(t *testing.T) {
	_, err := NewMaskedUMNN(2, 0, 8, 0, []int{16}, ConditionerConfig{})
	assert.Error(t, err)

	_, err = NewMaskedUMNN(2, 0, 0, 20, []int{16}, ConditionerConfig{})
	assert.Error(t, err)

	_, err = NewMaskedUMNN(2, 0, 8, 20, nil, ConditionerConfig{})
	assert.Error(t, err)
}

func TestMaskedUMNN_RoundTrip(t *testing.T) {
	tr := newTestUMNN(t, 2, 0)
	assert.Equal(t, 2, tr.Features())
	assert.Equal(t, 8, tr.CondSize())
	assert.Equal(t, 20, tr.NumSteps())

	x := mustTensor(t, []float64{
		0.4, -1.1,
		-0.3, 0.8,
		1.6, 0.0,
	}, tensor.Shape{3, 2})

	z, fwd, err := tr.Forward(x, nil)
	require.NoError(t, err)
	back, inv, err := tr.Inverse(z, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.InDeltaSlice(t, x.Row(i), back.Row(i), 1e-5)
		assert.InDelta(t, 0, fwd[i]+inv[i], 1e-4)
	}
}

func TestMaskedUMNN_Conditional(t *testing.T) {
	tr := newTestUMNN(t, 2, 3)

	x := tensor.Randn(tensor.Shape{2, 2})
	ctx := tensor.Randn(tensor.Shape{2, 3})
	z, _, err := tr.Forward(x, ctx)
	require.NoError(t, err)
	back, _, err := tr.Inverse(z, ctx)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDeltaSlice(t, x.Row(i), back.Row(i), 1e-5)
	}

	_, _, err = tr.Forward(x, nil)
	assert.Error(t, err, "context is required")
}

// A single-feature UMNN is a fixed monotone scalar map.
func TestMaskedUMNN_Monotone(t *testing.T) {
	tr := newTestUMNN(t, 1, 0)

	inputs := []float64{-3, -1.2, -0.1, 0, 0.4, 1.7, 4}
	outputs := make([]float64, len(inputs))
	for i, v := range inputs {
		z, _, err := tr.Forward(mustTensor(t, []float64{v}, tensor.Shape{1, 1}), nil)
		require.NoError(t, err)
		outputs[i] = z.At(0, 0)
	}
	assert.True(t, sort.Float64sAreSorted(outputs), "outputs %v must increase with the input", outputs)
}

func TestMaskedUMNN_StateDictRoundTrip(t *testing.T) {
	a := newTestUMNN(t, 2, 0)
	b := newTestUMNN(t, 2, 0)
	require.NoError(t, b.LoadStateDict(a.StateDict()))

	x := tensor.Randn(tensor.Shape{2, 2})
	za, lda, err := a.Forward(x, nil)
	require.NoError(t, err)
	zb, ldb, err := b.Forward(x, nil)
	require.NoError(t, err)
	assert.Equal(t, za.Data(), zb.Data())
	assert.Equal(t, lda, ldb)
}
