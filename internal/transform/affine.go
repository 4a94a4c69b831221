package transform

import (
	"math"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// ConditionerConfig configures the MADE conditioner behind an
// autoregressive transform. Zero values select the library defaults
// (64 hidden features, 2 blocks, ReLU, no residual connections).
type ConditionerConfig struct {
	HiddenFeatures int
	NumBlocks      int
	Activation     nn.Activation
	Residual       bool
}

func (c ConditionerConfig) made(features, context, multiplier int) (*nn.MADE, error) {
	return nn.NewMADE(nn.MADEConfig{
		Features:         features,
		Context:          context,
		HiddenFeatures:   c.HiddenFeatures,
		NumBlocks:        c.NumBlocks,
		OutputMultiplier: multiplier,
		Activation:       c.Activation,
		Residual:         c.Residual,
	})
}

// affineEpsilon keeps the scale bounded away from zero.
const affineEpsilon = 1e-3

// MaskedAffineAutoregressive is a per-dimension affine autoregressive
// transform (Papamakarios et al., 2017). The conditioner emits an
// unconstrained scale and a shift per dimension; the scale is squashed to
// sigmoid(u + 2) + 1e-3 so the transform stays invertible.
type MaskedAffineAutoregressive struct {
	features int
	context  int
	cond     *nn.MADE
}

// NewMaskedAffineAutoregressive creates an affine autoregressive transform.
func NewMaskedAffineAutoregressive(features, context int, cfg ConditionerConfig) (*MaskedAffineAutoregressive, error) {
	cond, err := cfg.made(features, context, 2)
	if err != nil {
		return nil, err
	}
	return &MaskedAffineAutoregressive{features: features, context: context, cond: cond}, nil
}

// Features returns the event dimensionality.
func (t *MaskedAffineAutoregressive) Features() int { return t.features }

// scaleAndShift decodes the conditioner outputs for row i, feature j.
func (t *MaskedAffineAutoregressive) scaleAndShift(params *tensor.Tensor, i, j int) (scale, shift float64) {
	u := params.At(i, 2*j)
	shift = params.At(i, 2*j+1)
	scale = 1/(1+math.Exp(-(u+2))) + affineEpsilon
	return scale, shift
}

// Forward computes z = scale*x + shift in one conditioner pass.
func (t *MaskedAffineAutoregressive) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(x, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	params := t.cond.Forward(x, ctx)
	out := tensor.Zeros(x.Shape())
	logdet := make([]float64, x.Rows())
	for i := 0; i < x.Rows(); i++ {
		for j := 0; j < t.features; j++ {
			scale, shift := t.scaleAndShift(params, i, j)
			out.Set(i, j, scale*x.At(i, j)+shift)
			logdet[i] += math.Log(scale)
		}
	}
	return out, logdet, nil
}

// Inverse solves x = (z - shift)/scale dimension by dimension. The
// autoregressive structure guarantees convergence after features passes.
func (t *MaskedAffineAutoregressive) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(z, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	x := tensor.Zeros(z.Shape())
	logdet := make([]float64, z.Rows())
	for pass := 0; pass < t.features; pass++ {
		params := t.cond.Forward(x, ctx)
		for i := range logdet {
			logdet[i] = 0
		}
		for i := 0; i < z.Rows(); i++ {
			for j := 0; j < t.features; j++ {
				scale, shift := t.scaleAndShift(params, i, j)
				x.Set(i, j, (z.At(i, j)-shift)/scale)
				logdet[i] -= math.Log(scale)
			}
		}
	}
	return x, logdet, nil
}

// Parameters returns the conditioner parameters.
func (t *MaskedAffineAutoregressive) Parameters() []*nn.Parameter { return t.cond.Parameters() }

// StateDict returns the conditioner state.
func (t *MaskedAffineAutoregressive) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	nn.MergeStateDict(sd, "conditioner", t.cond.StateDict())
	return sd
}

// LoadStateDict restores the conditioner state.
func (t *MaskedAffineAutoregressive) LoadStateDict(sd map[string]*tensor.Tensor) error {
	return t.cond.LoadStateDict(nn.SubStateDict(sd, "conditioner"))
}
