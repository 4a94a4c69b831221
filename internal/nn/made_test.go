package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/flows/internal/tensor"
)

func TestMaskedLinear_MaskSurvivesLoad(t *testing.T) {
	inDeg := inputDegrees(3)
	outDeg := []int{1, 1, 2, 2, 3, 3}
	l := NewMaskedLinear(inDeg, outDeg, true)

	ones := tensor.Full(tensor.Shape{6, 3}, 1)
	err := l.LoadStateDict(map[string]*tensor.Tensor{
		"weight": ones,
		"bias":   tensor.Zeros(tensor.Shape{6}),
	})
	require.NoError(t, err)

	w := l.Parameters()[0].Tensor()
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			if l.Masked(i, j) {
				assert.Zero(t, w.At(i, j), "masked weight (%d,%d) must stay zero", i, j)
			} else {
				assert.Equal(t, 1.0, w.At(i, j))
			}
		}
	}
	// Strict mode: output degree 1 sees nothing, degree 3 sees inputs 1 and 2.
	assert.True(t, l.Masked(0, 0))
	assert.True(t, l.Masked(4, 2))
	assert.False(t, l.Masked(4, 0))
}

func TestHiddenDegrees_Cycle(t *testing.T) {
	assert.Equal(t, []int{1, 2, 1, 2, 1}, hiddenDegrees(5, 3))
	// With a single feature the hidden degrees drop to 0: the hidden units
	// may not see the input, but the strict output mask (out > in) still
	// lets them feed the output, so context conditioning survives.
	assert.Equal(t, []int{0, 0, 0}, hiddenDegrees(3, 1))
}

// A single-feature conditional MADE must still respond to its context:
// the hidden layer cannot read x, but the context enters there and must
// reach the outputs.
func TestMADE_SingleFeatureContext(t *testing.T) {
	m, err := NewMADE(MADEConfig{Features: 1, Context: 2, OutputMultiplier: 2, Activation: Tanh})
	require.NoError(t, err)

	x := tensor.Zeros(tensor.Shape{1, 1})
	a := m.Forward(x, mustTensor(t, []float64{0, 0}, tensor.Shape{1, 2}))
	b := m.Forward(x, mustTensor(t, []float64{5, -7}, tensor.Shape{1, 2}))
	assert.NotEqual(t, a.Data(), b.Data())

	// The output must still be independent of the input itself.
	x2 := mustTensor(t, []float64{3.5}, tensor.Shape{1, 1})
	c := m.Forward(x2, mustTensor(t, []float64{0, 0}, tensor.Shape{1, 2}))
	assert.Equal(t, a.Data(), c.Data())
}

// TestMADE_AutoregressiveStructure checks the defining MADE property: the
// outputs for feature i never depend on input i or any later input.
func TestMADE_AutoregressiveStructure(t *testing.T) {
	const (
		features   = 4
		multiplier = 2
	)
	for _, residual := range []bool{false, true} {
		m, err := NewMADE(MADEConfig{
			Features:         features,
			HiddenFeatures:   32,
			NumBlocks:        2,
			OutputMultiplier: multiplier,
			Activation:       Tanh,
			Residual:         residual,
		})
		require.NoError(t, err)

		x := tensor.Randn(tensor.Shape{1, features})
		base := m.Forward(x, nil)
		require.True(t, base.Shape().Equal(tensor.Shape{1, features * multiplier}))

		for j := 0; j < features; j++ {
			perturbed := x.Clone()
			perturbed.Set(0, j, x.At(0, j)+1.5)
			out := m.Forward(perturbed, nil)
			for i := 0; i <= j; i++ {
				for k := 0; k < multiplier; k++ {
					col := i*multiplier + k
					assert.Equal(t, base.At(0, col), out.At(0, col),
						"residual=%v: output of feature %d changed after perturbing input %d", residual, i, j)
				}
			}
		}
	}
}

func TestMADE_ContextRequired(t *testing.T) {
	m, err := NewMADE(MADEConfig{Features: 2, Context: 3})
	require.NoError(t, err)

	assert.Panics(t, func() {
		m.Forward(tensor.Zeros(tensor.Shape{1, 2}), nil)
	})

	out := m.Forward(tensor.Zeros(tensor.Shape{2, 2}), tensor.Zeros(tensor.Shape{2, 3}))
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
}

func TestMADE_ContextShiftsOutput(t *testing.T) {
	m, err := NewMADE(MADEConfig{Features: 3, Context: 2, Activation: Tanh})
	require.NoError(t, err)

	x := tensor.Randn(tensor.Shape{1, 3})
	a := m.Forward(x, mustTensor(t, []float64{0, 0}, tensor.Shape{1, 2}))
	b := m.Forward(x, mustTensor(t, []float64{2, -3}, tensor.Shape{1, 2}))
	assert.NotEqual(t, a.Data(), b.Data())
}

func TestMADE_StateDictRoundTrip(t *testing.T) {
	cfg := MADEConfig{
		Features:         3,
		Context:          2,
		HiddenFeatures:   16,
		NumBlocks:        2,
		OutputMultiplier: 2,
		Residual:         true,
	}
	a, err := NewMADE(cfg)
	require.NoError(t, err)
	b, err := NewMADE(cfg)
	require.NoError(t, err)

	require.NoError(t, b.LoadStateDict(a.StateDict()))

	x := tensor.Randn(tensor.Shape{2, 3})
	ctx := tensor.Randn(tensor.Shape{2, 2})
	assert.Equal(t, a.Forward(x, ctx).Data(), b.Forward(x, ctx).Data())
}

func TestMADE_StateDictKeys(t *testing.T) {
	m, err := NewMADE(MADEConfig{Features: 2, Context: 1, NumBlocks: 1, Residual: true})
	require.NoError(t, err)

	sd := m.StateDict()
	for _, key := range []string{
		"initial.weight", "initial.bias",
		"context.weight", "context.bias",
		"blocks.0.0.weight", "blocks.0.1.weight",
		"final.weight", "final.bias",
	} {
		assert.Contains(t, sd, key)
	}
}

func TestNewMADE_Errors(t *testing.T) {
	_, err := NewMADE(MADEConfig{Features: 0})
	assert.Error(t, err)

	_, err = NewMADE(MADEConfig{Features: 2, Context: -1})
	assert.Error(t, err)

	_, err = NewMADE(MADEConfig{Features: 2, Activation: "swish"})
	assert.Error(t, err)
}
