// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the float64 tensor type used by the flows
// library.
//
// # Overview
//
// Tensors are a flat backing slice plus a Shape. Two-dimensional tensors
// bridge to gonum's mat.Dense without copying, which is how the
// conditioner networks run their matrix products.
//
// # Basic Usage
//
//	x := tensor.Zeros(tensor.Shape{2, 3})
//	y, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	m := y.Matrix() // *mat.Dense view over the same data
//
// Density arithmetic is done in float64 throughout; there is no dtype or
// device abstraction in this library.
package tensor
