package transform

import (
	"fmt"
	"math"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// Spline knot floors, matching the reference rational-quadratic spline
// implementation (Durkan et al., 2019).
const (
	minBinWidth   = 1e-3
	minBinHeight  = 1e-3
	minDerivative = 1e-3
)

// MaskedPiecewiseRQ is a piecewise rational-quadratic spline autoregressive
// transform with linear (unbounded) tails. Inside [-tailBound, tailBound]
// each dimension passes through a monotone rational-quadratic spline whose
// knots come from the conditioner; outside, the transform is the identity.
type MaskedPiecewiseRQ struct {
	features  int
	context   int
	numBins   int
	tailBound float64
	cond      *nn.MADE
}

// NewMaskedPiecewiseRQ creates a spline autoregressive transform.
func NewMaskedPiecewiseRQ(features, context, numBins int, tailBound float64, cfg ConditionerConfig) (*MaskedPiecewiseRQ, error) {
	if numBins < 1 {
		return nil, fmt.Errorf("transform: spline needs at least one bin, got %d", numBins)
	}
	if tailBound <= 0 {
		return nil, fmt.Errorf("transform: spline tail bound must be positive, got %v", tailBound)
	}
	cond, err := cfg.made(features, context, 3*numBins-1)
	if err != nil {
		return nil, err
	}
	return &MaskedPiecewiseRQ{
		features:  features,
		context:   context,
		numBins:   numBins,
		tailBound: tailBound,
		cond:      cond,
	}, nil
}

// Features returns the event dimensionality.
func (t *MaskedPiecewiseRQ) Features() int { return t.features }

// NumBins returns the number of spline bins per dimension.
func (t *MaskedPiecewiseRQ) NumBins() int { return t.numBins }

// TailBound returns the half-width of the spline interval.
func (t *MaskedPiecewiseRQ) TailBound() float64 { return t.tailBound }

// Forward applies the spline elementwise in one conditioner pass.
func (t *MaskedPiecewiseRQ) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(x, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	params := t.cond.Forward(x, ctx)
	out := tensor.Zeros(x.Shape())
	logdet := make([]float64, x.Rows())
	m := 3*t.numBins - 1
	for i := 0; i < x.Rows(); i++ {
		p := params.Row(i)
		for j := 0; j < t.features; j++ {
			y, ld, err := t.spline(x.At(i, j), p[j*m:(j+1)*m], false)
			if err != nil {
				return nil, nil, err
			}
			out.Set(i, j, y)
			logdet[i] += ld
		}
	}
	return out, logdet, nil
}

// Inverse applies the analytic spline inverse with the usual sequential
// autoregressive solve.
func (t *MaskedPiecewiseRQ) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(z, ctx, t.features, t.context); err != nil {
		return nil, nil, err
	}
	x := tensor.Zeros(z.Shape())
	logdet := make([]float64, z.Rows())
	m := 3*t.numBins - 1
	for pass := 0; pass < t.features; pass++ {
		params := t.cond.Forward(x, ctx)
		for i := range logdet {
			logdet[i] = 0
		}
		for i := 0; i < z.Rows(); i++ {
			p := params.Row(i)
			for j := 0; j < t.features; j++ {
				v, ld, err := t.spline(z.At(i, j), p[j*m:(j+1)*m], true)
				if err != nil {
					return nil, nil, err
				}
				x.Set(i, j, v)
				logdet[i] += ld
			}
		}
	}
	return x, logdet, nil
}

// spline evaluates the rational-quadratic spline (or its inverse) for one
// scalar, given the 3K-1 unnormalized knot parameters.
func (t *MaskedPiecewiseRQ) spline(input float64, params []float64, inverse bool) (float64, float64, error) {
	bound := t.tailBound
	if input < -bound || input > bound {
		// Linear tails: identity with zero log-Jacobian.
		return input, 0, nil
	}

	k := t.numBins
	xKnots := knots(params[:k], minBinWidth, bound)
	yKnots := knots(params[k:2*k], minBinHeight, bound)

	derivs := make([]float64, k+1)
	derivs[0], derivs[k] = 1, 1
	for i := 1; i < k; i++ {
		derivs[i] = minDerivative + softplus(params[2*k+i-1])
	}

	var bin int
	if inverse {
		bin = findBin(yKnots, input)
	} else {
		bin = findBin(xKnots, input)
	}

	width := xKnots[bin+1] - xKnots[bin]
	height := yKnots[bin+1] - yKnots[bin]
	delta := height / width
	dLo, dHi := derivs[bin], derivs[bin+1]

	if inverse {
		dy := input - yKnots[bin]
		a := dy*(dLo+dHi-2*delta) + height*(delta-dLo)
		b := height*dLo - dy*(dLo+dHi-2*delta)
		c := -delta * dy
		disc := b*b - 4*a*c
		if disc < 0 {
			return 0, 0, fmt.Errorf("transform: spline inverse discriminant is negative")
		}
		theta := 2 * c / (-b - math.Sqrt(disc))
		output := theta*width + xKnots[bin]

		tt := theta * (1 - theta)
		den := delta + (dLo+dHi-2*delta)*tt
		num := delta * delta * (dHi*theta*theta + 2*delta*tt + dLo*(1-theta)*(1-theta))
		return output, -(math.Log(num) - 2*math.Log(den)), nil
	}

	theta := (input - xKnots[bin]) / width
	tt := theta * (1 - theta)
	den := delta + (dLo+dHi-2*delta)*tt
	num := height * (delta*theta*theta + dLo*tt)
	output := yKnots[bin] + num/den

	dnum := delta * delta * (dHi*theta*theta + 2*delta*tt + dLo*(1-theta)*(1-theta))
	return output, math.Log(dnum) - 2*math.Log(den), nil
}

// knots converts k unnormalized bin sizes into k+1 monotone knot positions
// spanning [-bound, bound], flooring each bin at minSize.
func knots(unnormalized []float64, minSize, bound float64) []float64 {
	k := len(unnormalized)
	sizes := softmax(unnormalized)
	for i := range sizes {
		sizes[i] = minSize + (1-minSize*float64(k))*sizes[i]
	}
	out := make([]float64, k+1)
	out[0] = -bound
	for i, s := range sizes {
		out[i+1] = out[i] + 2*bound*s
	}
	out[k] = bound
	return out
}

// findBin returns the index of the bin containing v, clamped to the valid
// range so boundary values fall into the edge bins.
func findBin(knots []float64, v float64) int {
	lo, hi := 0, len(knots)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if v >= knots[mid] {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func softmax(v []float64) []float64 {
	maxV := math.Inf(-1)
	for _, x := range v {
		maxV = math.Max(maxV, x)
	}
	out := make([]float64, len(v))
	var sum float64
	for i, x := range v {
		out[i] = math.Exp(x - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// Parameters returns the conditioner parameters.
func (t *MaskedPiecewiseRQ) Parameters() []*nn.Parameter { return t.cond.Parameters() }

// StateDict returns the conditioner state.
func (t *MaskedPiecewiseRQ) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	nn.MergeStateDict(sd, "conditioner", t.cond.StateDict())
	return sd
}

// LoadStateDict restores the conditioner state.
func (t *MaskedPiecewiseRQ) LoadStateDict(sd map[string]*tensor.Tensor) error {
	return t.cond.LoadStateDict(nn.SubStateDict(sd, "conditioner"))
}
