package flow

import (
	"fmt"

	"github.com/born-ml/flows/internal/distribution"
	"github.com/born-ml/flows/internal/transform"
)

// Architecture selects the autoregressive transform family of a MAF.
type Architecture string

// Supported architectures.
const (
	// Affine uses per-dimension affine autoregressive transforms.
	Affine Architecture = "affine"
	// PRQ uses piecewise rational-quadratic spline transforms with
	// linear tails.
	PRQ Architecture = "PRQ"
	// UMNN uses unconstrained monotonic neural-network transforms.
	UMNN Architecture = "UMNN"
)

// ParseArchitecture converts a tag into an Architecture, rejecting unknown
// tags explicitly rather than falling back to a default family.
func ParseArchitecture(tag string) (Architecture, error) {
	switch Architecture(tag) {
	case Affine, PRQ, UMNN:
		return Architecture(tag), nil
	default:
		return "", fmt.Errorf("flow: unknown architecture %q (want affine, PRQ or UMNN)", tag)
	}
}

// Moments holds per-dimension statistics (shift, scale) used to build a
// fixed standardization transform computing (x - shift) / scale ahead of
// the learnable stack.
type Moments struct {
	Shift []float64
	Scale []float64
}

// SplineConfig holds the PRQ-specific options. Zero values select the
// defaults: 8 bins with tail bound 1. Tails are always linear (unbounded).
type SplineConfig struct {
	NumBins   int
	TailBound float64
}

func (c *SplineConfig) fillDefaults() {
	if c.NumBins == 0 {
		c.NumBins = 8
	}
	if c.TailBound == 0 {
		c.TailBound = 1.0
	}
}

// UMNNConfig holds the UMNN-specific options. Zero values select the
// defaults: integrand layers [64, 64, 64], conditioning embedding size 32,
// 32 integration steps.
type UMNNConfig struct {
	IntegrandLayers []int
	CondSize        int
	NumSteps        int
}

func (c *UMNNConfig) fillDefaults() {
	if len(c.IntegrandLayers) == 0 {
		c.IntegrandLayers = []int{64, 64, 64}
	}
	if c.CondSize == 0 {
		c.CondSize = 32
	}
	if c.NumSteps == 0 {
		c.NumSteps = 32
	}
}

// MAFConfig configures a masked autoregressive flow.
//
// Zero values select the documented defaults: the affine architecture,
// 5 transform blocks, and a conditioner with 64 hidden features, 2 blocks
// and ReLU activation.
type MAFConfig struct {
	XSize         int
	YSize         int
	Architecture  Architecture
	NumTransforms int
	Moments       *Moments
	Conditioner   transform.ConditionerConfig
	Spline        SplineConfig
	UMNN          UMNNConfig
}

// NewMAF builds a masked autoregressive flow (Papamakarios et al., 2017):
// NumTransforms blocks of one autoregressive transform followed by one
// fixed random permutation, over a standard normal base. When Moments is
// set, a fixed standardization transform is prepended.
func NewMAF(cfg MAFConfig) (*NormalizingFlow, error) {
	if cfg.XSize < 1 {
		return nil, fmt.Errorf("flow: x size must be >= 1, got %d", cfg.XSize)
	}
	if cfg.YSize < 0 {
		return nil, fmt.Errorf("flow: y size must be >= 0, got %d", cfg.YSize)
	}
	if cfg.NumTransforms < 0 {
		return nil, fmt.Errorf("flow: number of transforms must be >= 0, got %d", cfg.NumTransforms)
	}
	if cfg.NumTransforms == 0 {
		cfg.NumTransforms = 5
	}
	if cfg.Architecture == "" {
		cfg.Architecture = Affine
	}
	cfg.Spline.fillDefaults()
	cfg.UMNN.fillDefaults()

	var transforms []transform.Transform

	if cfg.Moments != nil {
		standardize, err := standardization(cfg.Moments, cfg.XSize)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, standardize)
	}

	for i := 0; i < cfg.NumTransforms; i++ {
		tf, err := newAutoregressive(cfg)
		if err != nil {
			return nil, err
		}
		perm, err := transform.NewRandomPermutation(cfg.XSize)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, tf, perm)
	}

	return New(distribution.NewStandardNormal(cfg.XSize), transforms)
}

// newAutoregressive builds one transform of the configured family.
func newAutoregressive(cfg MAFConfig) (transform.Transform, error) {
	switch cfg.Architecture {
	case Affine:
		return transform.NewMaskedAffineAutoregressive(cfg.XSize, cfg.YSize, cfg.Conditioner)
	case PRQ:
		return transform.NewMaskedPiecewiseRQ(cfg.XSize, cfg.YSize,
			cfg.Spline.NumBins, cfg.Spline.TailBound, cfg.Conditioner)
	case UMNN:
		return transform.NewMaskedUMNN(cfg.XSize, cfg.YSize,
			cfg.UMNN.CondSize, cfg.UMNN.NumSteps, cfg.UMNN.IntegrandLayers, cfg.Conditioner)
	default:
		return nil, fmt.Errorf("flow: unknown architecture %q (want affine, PRQ or UMNN)", string(cfg.Architecture))
	}
}

// standardization builds the fixed affine transform (x - shift) / scale,
// expressed as offset -shift/scale with scale 1/scale.
func standardization(m *Moments, xSize int) (transform.Transform, error) {
	if len(m.Shift) != xSize || len(m.Scale) != xSize {
		return nil, fmt.Errorf("flow: moments must have %d entries, got shift %d and scale %d",
			xSize, len(m.Shift), len(m.Scale))
	}
	offset := make([]float64, xSize)
	scale := make([]float64, xSize)
	for i := range offset {
		if m.Scale[i] == 0 {
			return nil, fmt.Errorf("flow: moments scale[%d] is zero", i)
		}
		offset[i] = -m.Shift[i] / m.Scale[i]
		scale[i] = 1 / m.Scale[i]
	}
	return transform.NewPointwiseAffine(offset, scale)
}
