// Package flow implements conditional normalizing flows: invertible
// transformations between a simple base distribution and a complex target,
// supporting exact log-density evaluation and sampling.
package flow

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/flows/internal/distribution"
	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
	"github.com/born-ml/flows/internal/transform"
)

// NormalizingFlow models a conditional density
//
//	p(x|y) = p_base(T(x; y)) · |det ∂T/∂x|
//
// where T is a composite transform mapping data to the base (noise) space.
// It owns the base distribution and the transform stack.
type NormalizingFlow struct {
	base      distribution.Distribution
	transform *transform.Composite
}

// New creates a flow from a base distribution and an ordered list of
// transforms, which are composed left to right in the data-to-noise
// direction. The transforms' feature size must match the base
// dimensionality.
func New(base distribution.Distribution, transforms []transform.Transform) (*NormalizingFlow, error) {
	composite, err := transform.NewComposite(transforms...)
	if err != nil {
		return nil, err
	}
	if composite.Features() != base.Dim() {
		return nil, fmt.Errorf("flow: transform features %d do not match base dimensionality %d",
			composite.Features(), base.Dim())
	}
	return &NormalizingFlow{base: base, transform: composite}, nil
}

// Base returns the base distribution.
func (f *NormalizingFlow) Base() distribution.Distribution { return f.base }

// Transform returns the composite transform stack.
func (f *NormalizingFlow) Transform() *transform.Composite { return f.transform }

// Features returns the event dimensionality of x.
func (f *NormalizingFlow) Features() int { return f.base.Dim() }

// LogProb returns log p(x|y) for each row of x. x must be
// [batch, features]; y, when the flow is conditional, must be
// [batch, context] with the same batch size. The computation is exact:
// x is pushed through the composite transform, the base log-density is
// evaluated, and the log-Jacobian is added.
func (f *NormalizingFlow) LogProb(x, y *tensor.Tensor) ([]float64, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != f.Features() {
		return nil, fmt.Errorf("flow: expected [batch, %d] input, got shape %v", f.Features(), shape)
	}
	if shape[0] == 0 {
		return []float64{}, nil
	}
	z, logdet, err := f.transform.Forward(x, y)
	if err != nil {
		return nil, err
	}
	logProb, err := f.base.LogProb(z)
	if err != nil {
		return nil, err
	}
	floats.Add(logProb, logdet)
	return logProb, nil
}

// Sample draws x ~ p(x|y). The context y is a single vector [context] or a
// batch [..., context]; shape gives the per-context sample dimensions. The
// result has shape y.shape[:-1] + shape + [features]: Numel(shape)
// independent draws per context row, un-flattened into the requested
// dimensions. An empty shape yields one sample per context. Calls are
// stateless; each draws fresh base randomness.
func (f *NormalizingFlow) Sample(y *tensor.Tensor, shape ...int) (*tensor.Tensor, error) {
	sampleShape := tensor.Shape(shape)
	if err := sampleShape.Validate(); err != nil {
		return nil, fmt.Errorf("flow: invalid sample shape: %w", err)
	}

	var (
		batchShape tensor.Shape
		ctxFlat    *tensor.Tensor
		rows       = 1
	)
	if y != nil {
		ys := y.Shape()
		if len(ys) == 0 {
			return nil, fmt.Errorf("flow: context must have at least one dimension")
		}
		batchShape = ys[:len(ys)-1].Clone()
		rows = batchShape.Numel()
		var err error
		ctxFlat, err = y.Reshape(tensor.Shape{rows, ys[len(ys)-1]})
		if err != nil {
			return nil, err
		}
	}

	perContext := sampleShape.Numel()
	total := rows * perContext
	outShape := tensor.Concat(batchShape, sampleShape, tensor.Shape{f.Features()})
	if total == 0 {
		return tensor.Zeros(outShape), nil
	}

	z := f.base.Sample(total)

	var ctx *tensor.Tensor
	if ctxFlat != nil {
		ctx = tensor.Zeros(tensor.Shape{total, ctxFlat.Cols()})
		for r := 0; r < total; r++ {
			copy(ctx.Row(r), ctxFlat.Row(r/perContext))
		}
	}

	x, _, err := f.transform.Inverse(z, ctx)
	if err != nil {
		return nil, err
	}
	return x.Reshape(outShape)
}

// Parameters returns the learnable parameters of the transform stack.
func (f *NormalizingFlow) Parameters() []*nn.Parameter {
	return f.transform.Parameters()
}

// StateDict returns all parameters keyed by path, for checkpointing.
func (f *NormalizingFlow) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	nn.MergeStateDict(sd, "transform", f.transform.StateDict())
	return sd
}

// LoadStateDict restores parameters from a state dictionary produced by a
// flow of the same architecture.
func (f *NormalizingFlow) LoadStateDict(sd map[string]*tensor.Tensor) error {
	return f.transform.LoadStateDict(nn.SubStateDict(sd, "transform"))
}
