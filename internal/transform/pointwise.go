package transform

import (
	"fmt"
	"math"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// PointwiseAffine is a fixed, non-learnable elementwise affine transform
// z = x*scale + shift. Flow builders use it to standardize inputs before
// the learnable stack.
type PointwiseAffine struct {
	shift  []float64
	scale  []float64
	logdet float64 // sum of log|scale|, constant across rows
}

// NewPointwiseAffine creates a pointwise affine transform. Every scale
// entry must be non-zero.
func NewPointwiseAffine(shift, scale []float64) (*PointwiseAffine, error) {
	if len(shift) != len(scale) {
		return nil, fmt.Errorf("transform: shift length %d does not match scale length %d", len(shift), len(scale))
	}
	if len(shift) == 0 {
		return nil, fmt.Errorf("transform: pointwise affine needs at least one feature")
	}
	var logdet float64
	for i, s := range scale {
		if s == 0 {
			return nil, fmt.Errorf("transform: scale[%d] is zero, transform would not be invertible", i)
		}
		logdet += math.Log(math.Abs(s))
	}
	return &PointwiseAffine{
		shift:  append([]float64(nil), shift...),
		scale:  append([]float64(nil), scale...),
		logdet: logdet,
	}, nil
}

// Features returns the event dimensionality.
func (t *PointwiseAffine) Features() int { return len(t.shift) }

// Forward computes x*scale + shift.
func (t *PointwiseAffine) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(x, nil, len(t.shift), 0); err != nil {
		return nil, nil, err
	}
	out := tensor.Zeros(x.Shape())
	logdet := make([]float64, x.Rows())
	for i := 0; i < x.Rows(); i++ {
		src, dst := x.Row(i), out.Row(i)
		for j := range dst {
			dst[j] = src[j]*t.scale[j] + t.shift[j]
		}
		logdet[i] = t.logdet
	}
	return out, logdet, nil
}

// Inverse computes (z - shift)/scale.
func (t *PointwiseAffine) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(z, nil, len(t.shift), 0); err != nil {
		return nil, nil, err
	}
	out := tensor.Zeros(z.Shape())
	logdet := make([]float64, z.Rows())
	for i := 0; i < z.Rows(); i++ {
		src, dst := z.Row(i), out.Row(i)
		for j := range dst {
			dst[j] = (src[j] - t.shift[j]) / t.scale[j]
		}
		logdet[i] = -t.logdet
	}
	return out, logdet, nil
}

// Parameters returns nil; the transform is fixed at construction.
func (t *PointwiseAffine) Parameters() []*nn.Parameter { return nil }

// StateDict returns an empty dictionary.
func (t *PointwiseAffine) StateDict() map[string]*tensor.Tensor { return emptyStateDict() }

// LoadStateDict is a no-op.
func (t *PointwiseAffine) LoadStateDict(map[string]*tensor.Tensor) error { return nil }
