// Package nn implements the conditioner networks behind the autoregressive
// transforms: plain and masked linear layers, the MADE conditioner, and the
// positive integrand network used by monotonic transforms.
//
// There is no gradient machinery here. Modules run forward only; trained
// weights arrive through LoadStateDict.
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/flows/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ W.T + b.
//
// Weights use Xavier/Glorot initialization, biases start at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a Linear layer.
func NewLinear(inFeatures, outFeatures int) *Linear {
	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures})),
		bias:        NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures})),
	}
}

// Forward computes the layer output for a [batch, in_features] input.
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("nn: Linear.Forward expected input [batch, %d], got shape %v", l.inFeatures, shape))
	}

	var out mat.Dense
	out.Mul(input.Matrix(), l.weight.Tensor().Matrix().T())

	result := tensor.FromMatrix(&out)
	bias := l.bias.Tensor().Data()
	for i := 0; i < result.Rows(); i++ {
		row := result.Row(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return result
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// Parameters returns the weight and bias.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// StateDict returns the layer parameters keyed by name.
func (l *Linear) StateDict() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"weight": l.weight.Tensor(),
		"bias":   l.bias.Tensor(),
	}
}

// LoadStateDict copies parameter values from a state dictionary.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	if err := loadInto(stateDict, "weight", l.weight.Tensor()); err != nil {
		return err
	}
	return loadInto(stateDict, "bias", l.bias.Tensor())
}

// loadInto copies the named entry of a state dictionary into dst after
// validating shapes.
func loadInto(stateDict map[string]*tensor.Tensor, name string, dst *tensor.Tensor) error {
	src, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("nn: missing %q in state dict", name)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("nn: %q shape mismatch: expected %v, got %v", name, dst.Shape(), src.Shape())
	}
	copy(dst.Data(), src.Data())
	return nil
}
