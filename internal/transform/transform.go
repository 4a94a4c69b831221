// Package transform implements conditional bijective transforms with
// tractable log-Jacobians.
//
// Every transform maps [batch, features] tensors in two directions.
// Forward is the data-to-noise direction used by density evaluation;
// Inverse is the noise-to-data direction used by sampling. Autoregressive
// transforms evaluate Forward in a single conditioner pass and Inverse by
// the usual sequential per-dimension solve.
package transform

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// Transform is an invertible, context-conditioned mapping over feature
// vectors.
type Transform interface {
	// Features returns the event dimensionality the transform acts on.
	Features() int

	// Forward maps x to noise space, returning the transformed tensor and
	// the per-row log|det J| of the mapping.
	Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error)

	// Inverse maps z back to data space, returning the transformed tensor
	// and the per-row log|det J| of the inverse mapping.
	Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error)

	// Parameters returns the learnable parameters, if any.
	Parameters() []*nn.Parameter

	// StateDict and LoadStateDict expose parameters for persistence.
	StateDict() map[string]*tensor.Tensor
	LoadStateDict(sd map[string]*tensor.Tensor) error
}

// Composite applies an ordered sequence of transforms. Its Forward applies
// constituents left to right and its log-Jacobian is the sum of theirs.
type Composite struct {
	features   int
	transforms []Transform
}

// NewComposite creates a composite of the given transforms. All
// constituents must share the same feature size.
func NewComposite(transforms ...Transform) (*Composite, error) {
	if len(transforms) == 0 {
		return nil, fmt.Errorf("transform: composite needs at least one transform")
	}
	features := transforms[0].Features()
	for i, t := range transforms {
		if t.Features() != features {
			return nil, fmt.Errorf("transform: composite constituent %d has %d features, expected %d",
				i, t.Features(), features)
		}
	}
	return &Composite{features: features, transforms: transforms}, nil
}

// Features returns the event dimensionality.
func (c *Composite) Features() int { return c.features }

// Len returns the number of constituent transforms.
func (c *Composite) Len() int { return len(c.transforms) }

// Transforms returns the constituent transforms in application order.
func (c *Composite) Transforms() []Transform { return c.transforms }

// Forward applies the constituents left to right.
func (c *Composite) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	total := make([]float64, x.Shape()[0])
	cur := x
	for i, t := range c.transforms {
		var (
			ld  []float64
			err error
		)
		cur, ld, err = t.Forward(cur, ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("transform: composite forward at %d: %w", i, err)
		}
		floats.Add(total, ld)
	}
	return cur, total, nil
}

// Inverse applies the constituents' inverses right to left.
func (c *Composite) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	total := make([]float64, z.Shape()[0])
	cur := z
	for i := len(c.transforms) - 1; i >= 0; i-- {
		var (
			ld  []float64
			err error
		)
		cur, ld, err = c.transforms[i].Inverse(cur, ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("transform: composite inverse at %d: %w", i, err)
		}
		floats.Add(total, ld)
	}
	return cur, total, nil
}

// Parameters returns the parameters of all constituents.
func (c *Composite) Parameters() []*nn.Parameter {
	var params []*nn.Parameter
	for _, t := range c.transforms {
		params = append(params, t.Parameters()...)
	}
	return params
}

// StateDict returns the composite state keyed by constituent index.
func (c *Composite) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	for i, t := range c.transforms {
		nn.MergeStateDict(sd, strconv.Itoa(i), t.StateDict())
	}
	return sd
}

// LoadStateDict restores the composite state.
func (c *Composite) LoadStateDict(sd map[string]*tensor.Tensor) error {
	for i, t := range c.transforms {
		if err := t.LoadStateDict(nn.SubStateDict(sd, strconv.Itoa(i))); err != nil {
			return fmt.Errorf("transform: composite constituent %d: %w", i, err)
		}
	}
	return nil
}

// checkInputs validates a [batch, features] input and an optional context
// with a matching batch dimension.
func checkInputs(x, ctx *tensor.Tensor, features, context int) error {
	shape := x.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("expected [batch, %d] input, got shape %v", features, shape)
	}
	if shape[1] != features {
		return fmt.Errorf("expected %d features, got %d", features, shape[1])
	}
	if context > 0 {
		if ctx == nil {
			return fmt.Errorf("transform conditions on a %d-dimensional context, got none", context)
		}
		cs := ctx.Shape()
		if len(cs) != 2 || cs[1] != context {
			return fmt.Errorf("expected [batch, %d] context, got shape %v", context, cs)
		}
		if cs[0] != shape[0] {
			return fmt.Errorf("context batch %d does not match input batch %d", cs[0], shape[0])
		}
	}
	return nil
}

// emptyStateDict is shared by transforms without learnable parameters.
func emptyStateDict() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{}
}
