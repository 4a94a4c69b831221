package transform

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"
)

// Permutation reorders the feature dimensions. It carries no parameters and
// has a zero log-Jacobian. Between autoregressive blocks a permutation
// breaks the fixed conditioning order; without one, every block would
// condition dimension i only on dimensions before i in the same order.
type Permutation struct {
	perm []int
	inv  []int
}

// NewPermutation creates a permutation transform from an explicit
// permutation of 0..features-1.
func NewPermutation(perm []int) (*Permutation, error) {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("transform: %v is not a permutation of 0..%d", perm, len(perm)-1)
		}
		seen[p] = true
	}
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return &Permutation{perm: append([]int(nil), perm...), inv: inv}, nil
}

// NewRandomPermutation creates a permutation drawn once at construction
// from the global math/rand source; it stays fixed afterwards.
func NewRandomPermutation(features int) (*Permutation, error) {
	if features < 1 {
		return nil, fmt.Errorf("transform: permutation needs at least one feature, got %d", features)
	}
	//nolint:gosec // structural shuffling, not security-sensitive
	return NewPermutation(rand.Perm(features))
}

// Features returns the event dimensionality.
func (t *Permutation) Features() int { return len(t.perm) }

// Permutation returns the fixed permutation, output column i reading input
// column Permutation()[i].
func (t *Permutation) Permutation() []int {
	return append([]int(nil), t.perm...)
}

// Forward permutes the feature columns.
func (t *Permutation) Forward(x, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	return t.apply(x, t.perm)
}

// Inverse applies the inverse permutation.
func (t *Permutation) Inverse(z, ctx *tensor.Tensor) (*tensor.Tensor, []float64, error) {
	return t.apply(z, t.inv)
}

func (t *Permutation) apply(x *tensor.Tensor, order []int) (*tensor.Tensor, []float64, error) {
	if err := checkInputs(x, nil, len(t.perm), 0); err != nil {
		return nil, nil, err
	}
	out := tensor.Zeros(x.Shape())
	for i := 0; i < x.Rows(); i++ {
		src, dst := x.Row(i), out.Row(i)
		for j, p := range order {
			dst[j] = src[p]
		}
	}
	return out, make([]float64, x.Rows()), nil
}

// Parameters returns nil; permutations carry no learnable parameters.
func (t *Permutation) Parameters() []*nn.Parameter { return nil }

// StateDict includes the permutation itself. It is structural rather than
// learnable state, but a restored flow must apply the same ordering as the
// one that produced the checkpoint.
func (t *Permutation) StateDict() map[string]*tensor.Tensor {
	buf := tensor.Zeros(tensor.Shape{len(t.perm)})
	for i, p := range t.perm {
		buf.Data()[i] = float64(p)
	}
	return map[string]*tensor.Tensor{"permutation": buf}
}

// LoadStateDict restores the permutation.
func (t *Permutation) LoadStateDict(sd map[string]*tensor.Tensor) error {
	src, ok := sd["permutation"]
	if !ok {
		return fmt.Errorf("transform: missing \"permutation\" in state dict")
	}
	if src.Numel() != len(t.perm) {
		return fmt.Errorf("transform: permutation length %d, expected %d", src.Numel(), len(t.perm))
	}
	perm := make([]int, len(t.perm))
	for i, v := range src.Data() {
		perm[i] = int(v)
	}
	restored, err := NewPermutation(perm)
	if err != nil {
		return err
	}
	t.perm, t.inv = restored.perm, restored.inv
	return nil
}
