// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/flows/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} represents a 2D tensor with dimensions 2×3.
type Shape = tensor.Shape

// Tensor is a dense, row-major tensor of float64 values.
type Tensor = tensor.Tensor

// New wraps the given slice in a tensor without copying.
func New(data []float64, shape Shape) (*Tensor, error) {
	return tensor.New(data, shape)
}

// FromSlice creates a tensor by copying the given slice.
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Randn creates a tensor filled with draws from the standard normal
// distribution N(0, 1).
func Randn(shape Shape) *Tensor {
	return tensor.Randn(shape)
}

// FromMatrix wraps a gonum matrix as a 2D tensor without copying.
func FromMatrix(m *mat.Dense) *Tensor {
	return tensor.FromMatrix(m)
}

// Concat returns a new shape with the dimensions of all arguments in order.
func Concat(shapes ...Shape) Shape {
	return tensor.Concat(shapes...)
}
