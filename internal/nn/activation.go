package nn

import (
	"fmt"
	"math"
)

// Activation selects the nonlinearity used between conditioner layers.
type Activation string

// Supported activations.
const (
	ReLU Activation = "relu"
	Tanh Activation = "tanh"
	ELU  Activation = "elu"
)

// Func returns the scalar activation function.
func (a Activation) Func() (func(float64) float64, error) {
	switch a {
	case ReLU:
		return func(x float64) float64 { return math.Max(0, x) }, nil
	case Tanh:
		return math.Tanh, nil
	case ELU:
		return elu, nil
	default:
		return nil, fmt.Errorf("nn: unknown activation %q", string(a))
	}
}

// elu computes the exponential linear unit with alpha = 1.
func elu(x float64) float64 {
	if x >= 0 {
		return x
	}
	return math.Exp(x) - 1
}
