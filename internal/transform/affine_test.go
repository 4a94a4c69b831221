package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/flows/internal/tensor"
)

func TestMaskedAffineAutoregressive_RoundTrip(t *testing.T) {
	tr, err := NewMaskedAffineAutoregressive(3, 2, ConditionerConfig{HiddenFeatures: 32})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Features())

	x := tensor.Randn(tensor.Shape{4, 3})
	ctx := tensor.Randn(tensor.Shape{4, 2})

	z, fwd, err := tr.Forward(x, ctx)
	require.NoError(t, err)
	back, inv, err := tr.Inverse(z, ctx)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.InDeltaSlice(t, x.Row(i), back.Row(i), 1e-9)
		assert.InDelta(t, 0, fwd[i]+inv[i], 1e-9, "log-Jacobians must cancel")
	}
}

func TestMaskedAffineAutoregressive_ScaleBounds(t *testing.T) {
	tr, err := NewMaskedAffineAutoregressive(2, 0, ConditionerConfig{})
	require.NoError(t, err)

	x := tensor.Randn(tensor.Shape{8, 2})
	_, fwd, err := tr.Forward(x, nil)
	require.NoError(t, err)

	// Scales live in (1e-3, 1 + 1e-3), so each per-row log-Jacobian is
	// bounded by features * log of the extremes.
	lo := 2 * math.Log(affineEpsilon)
	hi := 2 * math.Log(1+affineEpsilon)
	for _, ld := range fwd {
		assert.Greater(t, ld, lo)
		assert.LessOrEqual(t, ld, hi)
	}
}

// With a single feature the conditioner output cannot depend on the input,
// so the transform degenerates to a fixed affine map and the log-Jacobian
// matches the finite-difference slope.
func TestMaskedAffineAutoregressive_SingleFeatureSlope(t *testing.T) {
	tr, err := NewMaskedAffineAutoregressive(1, 0, ConditionerConfig{})
	require.NoError(t, err)

	eval := func(v float64) (float64, float64) {
		z, ld, err := tr.Forward(mustTensor(t, []float64{v}, tensor.Shape{1, 1}), nil)
		require.NoError(t, err)
		return z.At(0, 0), ld[0]
	}

	const h = 1e-5
	y0, ld := eval(0.3)
	yp, _ := eval(0.3 + h)
	ym, _ := eval(0.3 - h)
	slope := (yp - ym) / (2 * h)
	assert.InDelta(t, math.Exp(ld), slope, 1e-6)
	assert.NotZero(t, y0)
}

func TestMaskedAffineAutoregressive_InputErrors(t *testing.T) {
	tr, err := NewMaskedAffineAutoregressive(3, 2, ConditionerConfig{})
	require.NoError(t, err)

	_, _, err = tr.Forward(tensor.Zeros(tensor.Shape{1, 4}), tensor.Zeros(tensor.Shape{1, 2}))
	assert.Error(t, err)

	_, _, err = tr.Forward(tensor.Zeros(tensor.Shape{1, 3}), nil)
	assert.Error(t, err, "context is required")

	_, _, err = tr.Forward(tensor.Zeros(tensor.Shape{2, 3}), tensor.Zeros(tensor.Shape{1, 2}))
	assert.Error(t, err, "batch sizes must match")
}
