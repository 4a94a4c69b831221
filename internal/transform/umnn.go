package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// MaskedUMNN is an unconstrained monotonic neural-network autoregressive
// transform (Wehenkel & Louppe, 2019). For each dimension the conditioner
// emits a conditioning embedding plus an additive offset; the transform is
//
//	z_j = ∫₀^{x_j} f(t, h_j) dt + offset_j
//
// where f is a strictly positive integrand network shared across
// dimensions. The integral is evaluated with fixed Gauss-Legendre
// quadrature; the log-Jacobian is log f(x_j, h_j). The inverse has no
// closed form and is solved by bisection.
type MaskedUMNN struct {
	features  int
	context   int
	condSize  int
	numSteps  int
	cond      *nn.MADE // multiplier condSize+1
	integrand *nn.IntegrandNet
}

// NewMaskedUMNN creates a monotonic autoregressive transform.
// integrandLayers gives the hidden widths of the integrand network.
func NewMaskedUMNN(features, context, condSize, numSteps int, integrandLayers []int, cfg ConditionerConfig) (*MaskedUMNN, error) {
	if numSteps < 1 {
		return nil, fmt.Errorf("transform: UMNN needs at least one integration step, got %d", numSteps)
	}
	integrand, err := nn.NewIntegrandNet(condSize, integrandLayers)
	if err != nil {
		return nil, err
	}
	cond, err := cfg.made(features, context, condSize+1)
	if err != nil {
		return nil, err
	}
	return &MaskedUMNN{
		features:  features,
		context:   context,
		condSize:  condSize,
		numSteps:  numSteps,
		cond:      cond,
		integrand: integrand,
	}, nil
}

// Features returns the event dimensionality.
func (t *MaskedUMNN) Features() int { return t.features }

// CondSize returns the conditioning embedding size.
func (t *MaskedUMNN) CondSize() int { return t.condSize }

// NumSteps returns the quadrature node count.
func (t *MaskedUMNN) NumSteps() int { return t.numSteps }

// Forward integrates the positive integrand up to each input value.
func (t *MaskedUMNN) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(x, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	params := t.cond.Forward(x, ctx)
	out := tensor.Zeros(x.Shape())
	logdet := make([]float64, x.Rows())
	m := t.condSize + 1
	for i := 0; i < x.Rows(); i++ {
		p := params.Row(i)
		for j := 0; j < t.features; j++ {
			h := p[j*m : j*m+t.condSize]
			offset := p[j*m+t.condSize]
			xi := x.At(i, j)
			out.Set(i, j, t.integral(xi, h)+offset)
			logdet[i] += math.Log(t.integrand.Eval(xi, h))
		}
	}
	return out, logdet, nil
}

// Inverse solves each monotone scalar equation by bisection inside the
// sequential autoregressive loop.
func (t *MaskedUMNN) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(z, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	x := tensor.Zeros(z.Shape())
	logdet := make([]float64, z.Rows())
	m := t.condSize + 1
	for pass := 0; pass < t.features; pass++ {
		params := t.cond.Forward(x, ctx)
		for i := range logdet {
			logdet[i] = 0
		}
		for i := 0; i < z.Rows(); i++ {
			p := params.Row(i)
			for j := 0; j < t.features; j++ {
				h := p[j*m : j*m+t.condSize]
				offset := p[j*m+t.condSize]
				v, err := t.solve(z.At(i, j)-offset, h)
				if err != nil {
					return nil, nil, err
				}
				x.Set(i, j, v)
				logdet[i] -= math.Log(t.integrand.Eval(v, h))
			}
		}
	}
	return x, logdet, nil
}

// integral computes ∫₀^x f(t, h) dt with fixed Gauss-Legendre quadrature.
func (t *MaskedUMNN) integral(x float64, h []float64) float64 {
	if x == 0 {
		return 0
	}
	f := func(v float64) float64 { return t.integrand.Eval(v, h) }
	if x > 0 {
		return quad.Fixed(f, 0, x, t.numSteps, nil, 0)
	}
	return -quad.Fixed(f, x, 0, t.numSteps, nil, 0)
}

// solve finds x with ∫₀^x f(t, h) dt = target by expanding a bracket and
// bisecting. The integrand is strictly positive, so the integral is
// strictly increasing in x.
func (t *MaskedUMNN) solve(target float64, h []float64) (float64, error) {
	lo, hi := -1.0, 1.0
	for i := 0; t.integral(lo, h) > target; i++ {
		if i >= 64 {
			return 0, fmt.Errorf("transform: UMNN inverse failed to bracket %v from below", target)
		}
		lo *= 2
	}
	for i := 0; t.integral(hi, h) < target; i++ {
		if i >= 64 {
			return 0, fmt.Errorf("transform: UMNN inverse failed to bracket %v from above", target)
		}
		hi *= 2
	}
	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := 0.5 * (lo + hi)
		if t.integral(mid, h) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), nil
}

// Parameters returns the conditioner and integrand parameters.
func (t *MaskedUMNN) Parameters() []*nn.Parameter {
	return append(t.cond.Parameters(), t.integrand.Parameters()...)
}

// StateDict returns the transform state.
func (t *MaskedUMNN) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	nn.MergeStateDict(sd, "conditioner", t.cond.StateDict())
	nn.MergeStateDict(sd, "integrand", t.integrand.StateDict())
	return sd
}

// LoadStateDict restores the transform state.
func (t *MaskedUMNN) LoadStateDict(sd map[string]*tensor.Tensor) error {
	if err := t.cond.LoadStateDict(nn.SubStateDict(sd, "conditioner")); err != nil {
		return err
	}
	return t.integrand.LoadStateDict(nn.SubStateDict(sd, "integrand"))
}
