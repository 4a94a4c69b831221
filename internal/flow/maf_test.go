package flow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/flows/internal/tensor"
	"github.com/born-ml/flows/internal/transform"
)

func TestParseArchitecture(t *testing.T) {
	for _, tag := range []string{"affine", "PRQ", "UMNN"} {
		arch, err := ParseArchitecture(tag)
		require.NoError(t, err)
		assert.Equal(t, Architecture(tag), arch)
	}

	_, err := ParseArchitecture("NSF")
	assert.ErrorContains(t, err, "unknown architecture")

	// Tags are case-sensitive.
	_, err = ParseArchitecture("prq")
	assert.Error(t, err)
}

func TestNewMAF_StackLength(t *testing.T) {
	for _, arch := range []Architecture{Affine, PRQ} {
		f, err := NewMAF(MAFConfig{XSize: 2, YSize: 1, Architecture: arch, NumTransforms: 3})
		require.NoError(t, err, "architecture %v", arch)
		// One autoregressive transform plus one permutation per block.
		assert.Equal(t, 6, f.Transform().Len(), "architecture %v", arch)
		assert.Equal(t, 2, f.Features())
	}
}

func TestNewMAF_Defaults(t *testing.T) {
	f, err := NewMAF(MAFConfig{XSize: 2})
	require.NoError(t, err)
	// Default 5 blocks, default affine family.
	assert.Equal(t, 10, f.Transform().Len())
	_, ok := f.Transform().Transforms()[0].(*transform.MaskedAffineAutoregressive)
	assert.True(t, ok)
}

func TestNewMAF_SplineDefaults(t *testing.T) {
	f, err := NewMAF(MAFConfig{XSize: 2, Architecture: PRQ, NumTransforms: 1})
	require.NoError(t, err)

	spline, ok := f.Transform().Transforms()[0].(*transform.MaskedPiecewiseRQ)
	require.True(t, ok)
	assert.Equal(t, 8, spline.NumBins())
	assert.Equal(t, 1.0, spline.TailBound())
}

func TestNewMAF_MomentsPrependStandardization(t *testing.T) {
	f, err := NewMAF(MAFConfig{
		XSize:         2,
		NumTransforms: 2,
		Moments:       &Moments{Shift: []float64{1, -1}, Scale: []float64{2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, f.Transform().Len())
	_, ok := f.Transform().Transforms()[0].(*transform.PointwiseAffine)
	assert.True(t, ok, "standardization comes first in the data-to-noise direction")
}

func TestNewMAF_Errors(t *testing.T) {
	_, err := NewMAF(MAFConfig{XSize: 0})
	assert.Error(t, err)

	_, err = NewMAF(MAFConfig{XSize: 2, YSize: -1})
	assert.Error(t, err)

	_, err = NewMAF(MAFConfig{XSize: 2, NumTransforms: -1})
	assert.Error(t, err)

	_, err = NewMAF(MAFConfig{XSize: 2, Architecture: "NSF"})
	assert.ErrorContains(t, err, "unknown architecture")

	_, err = NewMAF(MAFConfig{XSize: 2, Moments: &Moments{Shift: []float64{0}, Scale: []float64{1}}})
	assert.ErrorContains(t, err, "moments")

	_, err = NewMAF(MAFConfig{XSize: 1, Moments: &Moments{Shift: []float64{0}, Scale: []float64{0}}})
	assert.Error(t, err)
}

func TestNewMAF_ConditionalEndToEnd(t *testing.T) {
	f, err := NewMAF(MAFConfig{XSize: 3, YSize: 2, Architecture: Affine, NumTransforms: 2})
	require.NoError(t, err)

	x, err := f.Sample(tensor.Zeros(tensor.Shape{2}), 5)
	require.NoError(t, err)
	require.True(t, x.Shape().Equal(tensor.Shape{5, 3}))

	y := tensor.Zeros(tensor.Shape{5, 2})
	logProb, err := f.LogProb(x, y)
	require.NoError(t, err)
	require.Len(t, logProb, 5)
	for _, lp := range logProb {
		assert.False(t, math.IsNaN(lp) || math.IsInf(lp, 0))
	}
}

// A 1-D conditional flow must still condition on y: the context bypasses
// the autoregressive input masks through the hidden layer.
func TestNewMAF_SingleFeatureConditioning(t *testing.T) {
	f, err := NewMAF(MAFConfig{XSize: 1, YSize: 2, NumTransforms: 2})
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float64{0.5}, tensor.Shape{1, 1})
	require.NoError(t, err)
	ya, err := tensor.FromSlice([]float64{0, 0}, tensor.Shape{1, 2})
	require.NoError(t, err)
	yb, err := tensor.FromSlice([]float64{5, -7}, tensor.Shape{1, 2})
	require.NoError(t, err)

	la, err := f.LogProb(x, ya)
	require.NoError(t, err)
	lb, err := f.LogProb(x, yb)
	require.NoError(t, err)
	assert.NotEqual(t, la[0], lb[0], "log p(x|y) must depend on y")
}

func TestNewMAF_UMNNEndToEnd(t *testing.T) {
	f, err := NewMAF(MAFConfig{
		XSize:         2,
		YSize:         1,
		Architecture:  UMNN,
		NumTransforms: 1,
		UMNN:          UMNNConfig{IntegrandLayers: []int{16}, CondSize: 4, NumSteps: 10},
	})
	require.NoError(t, err)

	umnn, ok := f.Transform().Transforms()[0].(*transform.MaskedUMNN)
	require.True(t, ok)
	assert.Equal(t, 4, umnn.CondSize())
	assert.Equal(t, 10, umnn.NumSteps())

	x, err := f.Sample(tensor.Zeros(tensor.Shape{1}), 3)
	require.NoError(t, err)
	require.True(t, x.Shape().Equal(tensor.Shape{3, 2}))

	logProb, err := f.LogProb(x, tensor.Zeros(tensor.Shape{3, 1}))
	require.NoError(t, err)
	for _, lp := range logProb {
		assert.False(t, math.IsNaN(lp) || math.IsInf(lp, 0))
	}
}
