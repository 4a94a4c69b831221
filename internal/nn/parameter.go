package nn

import (
	"github.com/born-ml/flows/internal/tensor"
)

// Parameter is a named tensor owned by a network module.
//
// The flows library does not compute gradients; parameters are initialized
// at construction time and may be replaced wholesale by LoadStateDict when
// weights trained elsewhere are loaded.
type Parameter struct {
	name  string
	value *tensor.Tensor
}

// NewParameter creates a parameter with the given name and value.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name, e.g. "weight".
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter value.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.value
}
