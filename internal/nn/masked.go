package nn

import (
	"fmt"

	"github.com/born-ml/flows/internal/tensor"
)

// MaskedLinear is a Linear layer whose weight is constrained by a fixed
// binary mask derived from input and output degrees.
//
// A connection from input j to output i is kept when
// outDegrees[i] >= inDegrees[j], or outDegrees[i] > inDegrees[j] in strict
// mode. Output layers of a MADE use strict mode so that output i never sees
// input i; hidden layers use the non-strict form.
//
// The mask is applied eagerly: masked weight entries are zeroed at
// construction and again after LoadStateDict, so Forward is a plain matmul.
type MaskedLinear struct {
	*Linear
	inDegrees  []int
	outDegrees []int
	strict     bool
}

// NewMaskedLinear creates a masked layer for the given degree vectors.
func NewMaskedLinear(inDegrees, outDegrees []int, strict bool) *MaskedLinear {
	l := &MaskedLinear{
		Linear:     NewLinear(len(inDegrees), len(outDegrees)),
		inDegrees:  append([]int(nil), inDegrees...),
		outDegrees: append([]int(nil), outDegrees...),
		strict:     strict,
	}
	l.applyMask()
	return l
}

// LoadStateDict copies parameter values and re-applies the mask, so loaded
// weights cannot break the autoregressive structure.
func (l *MaskedLinear) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	if err := l.Linear.LoadStateDict(stateDict); err != nil {
		return err
	}
	l.applyMask()
	return nil
}

// Masked reports whether the connection from input j to output i is severed.
func (l *MaskedLinear) Masked(i, j int) bool {
	if l.strict {
		return l.outDegrees[i] <= l.inDegrees[j]
	}
	return l.outDegrees[i] < l.inDegrees[j]
}

func (l *MaskedLinear) applyMask() {
	w := l.weight.Tensor()
	for i := 0; i < l.outFeatures; i++ {
		for j := 0; j < l.inFeatures; j++ {
			if l.Masked(i, j) {
				w.Set(i, j, 0)
			}
		}
	}
}

// inputDegrees returns the sequential degrees 1..features assigned to the
// inputs of an autoregressive conditioner.
func inputDegrees(features int) []int {
	degrees := make([]int, features)
	for i := range degrees {
		degrees[i] = i + 1
	}
	return degrees
}

// hiddenDegrees returns degrees for n hidden units, cycling through
// 1..features-1 so every hidden unit can feed at least one output. With a
// single feature every hidden unit gets degree 0: it may not read the
// input, but it still feeds the output through the strict mask, which
// keeps the context path alive.
func hiddenDegrees(n, features int) []int {
	modulo := features - 1
	if modulo < 1 {
		modulo = 1
	}
	offset := 1
	if features == 1 {
		offset = 0
	}
	degrees := make([]int, n)
	for i := range degrees {
		degrees[i] = i%modulo + offset
	}
	return degrees
}

// validateDegrees guards constructors against empty degree vectors.
func validateDegrees(features int) error {
	if features < 1 {
		return fmt.Errorf("nn: features must be >= 1, got %d", features)
	}
	return nil
}
