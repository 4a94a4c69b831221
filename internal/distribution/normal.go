// Package distribution implements the base distributions a normalizing flow
// transforms. Densities and sampling delegate to gonum's stat/distuv.
package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/flows/internal/tensor"
)

// Distribution is a fixed-dimensionality distribution over vectors,
// exposing exact log-densities and sampling.
type Distribution interface {
	// Dim returns the event dimensionality.
	Dim() int

	// LogProb returns the log-density of each row of a [batch, dim] tensor.
	LogProb(x *tensor.Tensor) ([]float64, error)

	// Sample draws n independent vectors into a [n, dim] tensor.
	// Each call uses fresh randomness.
	Sample(n int) *tensor.Tensor
}

// StandardNormal is the isotropic standard normal N(0, I) over dim
// dimensions.
type StandardNormal struct {
	dim  int
	norm distuv.Normal
}

// NewStandardNormal creates a standard normal over dim dimensions.
func NewStandardNormal(dim int) *StandardNormal {
	return &StandardNormal{
		dim:  dim,
		norm: distuv.Normal{Mu: 0, Sigma: 1},
	}
}

// SetSource sets the random source used for sampling. A nil source selects
// the global one.
func (s *StandardNormal) SetSource(src rand.Source) {
	s.norm.Src = src
}

// Dim returns the event dimensionality.
func (s *StandardNormal) Dim() int { return s.dim }

// LogProb returns the per-row log-density of a [batch, dim] tensor.
func (s *StandardNormal) LogProb(x *tensor.Tensor) ([]float64, error) {
	if err := checkEvent(x, s.dim); err != nil {
		return nil, err
	}
	out := make([]float64, x.Rows())
	for i := range out {
		for _, v := range x.Row(i) {
			out[i] += s.norm.LogProb(v)
		}
	}
	return out, nil
}

// Sample draws n vectors from N(0, I).
func (s *StandardNormal) Sample(n int) *tensor.Tensor {
	t := tensor.Zeros(tensor.Shape{n, s.dim})
	data := t.Data()
	for i := range data {
		data[i] = s.norm.Rand()
	}
	return t
}

// DiagonalNormal is a normal distribution with per-dimension mean and
// standard deviation.
type DiagonalNormal struct {
	dims []distuv.Normal
}

// NewDiagonalNormal creates a diagonal normal from per-dimension moments.
func NewDiagonalNormal(mean, stddev []float64) (*DiagonalNormal, error) {
	if len(mean) != len(stddev) {
		return nil, fmt.Errorf("distribution: mean length %d does not match stddev length %d", len(mean), len(stddev))
	}
	if len(mean) == 0 {
		return nil, fmt.Errorf("distribution: diagonal normal needs at least one dimension")
	}
	d := &DiagonalNormal{dims: make([]distuv.Normal, len(mean))}
	for i := range mean {
		if stddev[i] <= 0 {
			return nil, fmt.Errorf("distribution: stddev[%d] = %v must be positive", i, stddev[i])
		}
		d.dims[i] = distuv.Normal{Mu: mean[i], Sigma: stddev[i]}
	}
	return d, nil
}

// SetSource sets the random source used for sampling.
func (d *DiagonalNormal) SetSource(src rand.Source) {
	for i := range d.dims {
		d.dims[i].Src = src
	}
}

// Dim returns the event dimensionality.
func (d *DiagonalNormal) Dim() int { return len(d.dims) }

// LogProb returns the per-row log-density of a [batch, dim] tensor.
func (d *DiagonalNormal) LogProb(x *tensor.Tensor) ([]float64, error) {
	if err := checkEvent(x, len(d.dims)); err != nil {
		return nil, err
	}
	out := make([]float64, x.Rows())
	for i := range out {
		row := x.Row(i)
		for j, v := range row {
			out[i] += d.dims[j].LogProb(v)
		}
	}
	return out, nil
}

// Sample draws n vectors.
func (d *DiagonalNormal) Sample(n int) *tensor.Tensor {
	t := tensor.Zeros(tensor.Shape{n, len(d.dims)})
	for i := 0; i < n; i++ {
		row := t.Row(i)
		for j := range row {
			row[j] = d.dims[j].Rand()
		}
	}
	return t
}

func checkEvent(x *tensor.Tensor, dim int) error {
	shape := x.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("distribution: expected [batch, %d] input, got shape %v", dim, shape)
	}
	if shape[1] != dim {
		return fmt.Errorf("distribution: expected event size %d, got %d", dim, shape[1])
	}
	return nil
}
