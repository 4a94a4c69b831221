// Package tensor implements the float64 tensor used throughout the flows
// library.
//
// Density arithmetic is done in float64 to match gonum. Tensors are a flat
// backing slice plus a Shape; 2D tensors bridge to gonum's mat.Dense without
// copying, which is how the conditioner networks run their matrix products.
package tensor

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense, row-major tensor of float64 values.
type Tensor struct {
	shape Shape
	data  []float64
}

// New wraps the given slice in a tensor without copying.
// The slice length must match the shape's element count.
func New(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Numel() {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v", len(data), shape)
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// FromSlice creates a tensor by copying the given slice.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	buf := make([]float64, len(data))
	copy(buf, data)
	return New(buf, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.Numel())}
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Randn creates a tensor filled with draws from the standard normal
// distribution N(0, 1), using the global math/rand source.
func Randn(shape Shape) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = rand.NormFloat64()
	}
	return t
}

// Shape returns the tensor's shape. The returned slice must not be mutated.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Numel returns the total number of elements.
func (t *Tensor) Numel() int {
	return len(t.data)
}

// Data returns the backing slice. Mutations are visible to the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float64, len(t.data))
	copy(buf, t.data)
	return &Tensor{shape: t.shape.Clone(), data: buf}
}

// Reshape returns a view of the tensor with a new shape. The view shares the
// backing slice. The element count must be preserved.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.Numel() != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v into %v", t.shape, shape)
	}
	return &Tensor{shape: shape.Clone(), data: t.data}, nil
}

// Rows returns the first dimension of a 2D tensor.
func (t *Tensor) Rows() int {
	t.require2D("Rows")
	return t.shape[0]
}

// Cols returns the second dimension of a 2D tensor.
func (t *Tensor) Cols() int {
	t.require2D("Cols")
	return t.shape[1]
}

// At returns the element (i, j) of a 2D tensor.
func (t *Tensor) At(i, j int) float64 {
	t.require2D("At")
	return t.data[i*t.shape[1]+j]
}

// Set assigns the element (i, j) of a 2D tensor.
func (t *Tensor) Set(i, j int, v float64) {
	t.require2D("Set")
	t.data[i*t.shape[1]+j] = v
}

// Row returns row i of a 2D tensor as a slice view into the backing data.
func (t *Tensor) Row(i int) []float64 {
	t.require2D("Row")
	c := t.shape[1]
	return t.data[i*c : (i+1)*c]
}

// Matrix returns a gonum view of a 2D tensor. The matrix shares the backing
// slice, so writes through either are visible in both.
func (t *Tensor) Matrix() *mat.Dense {
	t.require2D("Matrix")
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// FromMatrix wraps a gonum matrix as a 2D tensor without copying.
func FromMatrix(m *mat.Dense) *Tensor {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		// Non-contiguous views need a copy.
		out := Zeros(Shape{raw.Rows, raw.Cols})
		for i := 0; i < raw.Rows; i++ {
			copy(out.Row(i), raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
		}
		return out
	}
	return &Tensor{shape: Shape{raw.Rows, raw.Cols}, data: raw.Data}
}

func (t *Tensor) require2D(op string) {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor.%s: expected 2D tensor, got shape %v", op, t.shape))
	}
}
