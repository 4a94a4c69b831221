// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transform provides conditional bijective transforms with
// tractable log-Jacobians, the building blocks of normalizing flows.
//
// Every transform maps [batch, features] tensors in two directions:
// Forward (data to noise, used by density evaluation) and Inverse (noise
// to data, used by sampling). Both return the per-row log|det J| of the
// applied direction.
package transform

import (
	"github.com/born-ml/flows/internal/transform"
)

// Transform is an invertible, context-conditioned mapping over feature
// vectors.
type Transform = transform.Transform

// Composite applies an ordered sequence of transforms; its log-Jacobian is
// the sum of the constituents'.
type Composite = transform.Composite

// NewComposite creates a composite of the given transforms.
func NewComposite(transforms ...Transform) (*Composite, error) {
	return transform.NewComposite(transforms...)
}

// ConditionerConfig configures the MADE conditioner behind an
// autoregressive transform. Zero values select the defaults: 64 hidden
// features, 2 blocks, ReLU activation, no residual connections.
type ConditionerConfig = transform.ConditionerConfig

// MaskedAffineAutoregressive is a per-dimension affine autoregressive
// transform.
type MaskedAffineAutoregressive = transform.MaskedAffineAutoregressive

// NewMaskedAffineAutoregressive creates an affine autoregressive transform
// over the given feature and context sizes.
func NewMaskedAffineAutoregressive(features, context int, cfg ConditionerConfig) (*MaskedAffineAutoregressive, error) {
	return transform.NewMaskedAffineAutoregressive(features, context, cfg)
}

// MaskedPiecewiseRQ is a piecewise rational-quadratic spline
// autoregressive transform with linear tails.
type MaskedPiecewiseRQ = transform.MaskedPiecewiseRQ

// NewMaskedPiecewiseRQ creates a spline autoregressive transform.
func NewMaskedPiecewiseRQ(features, context, numBins int, tailBound float64, cfg ConditionerConfig) (*MaskedPiecewiseRQ, error) {
	return transform.NewMaskedPiecewiseRQ(features, context, numBins, tailBound, cfg)
}

// MaskedUMNN is an unconstrained monotonic neural-network autoregressive
// transform.
type MaskedUMNN = transform.MaskedUMNN

// NewMaskedUMNN creates a monotonic autoregressive transform.
func NewMaskedUMNN(features, context, condSize, numSteps int, integrandLayers []int, cfg ConditionerConfig) (*MaskedUMNN, error) {
	return transform.NewMaskedUMNN(features, context, condSize, numSteps, integrandLayers, cfg)
}

// Permutation reorders the feature dimensions with a zero log-Jacobian.
type Permutation = transform.Permutation

// NewPermutation creates a permutation transform from an explicit
// permutation of 0..features-1.
func NewPermutation(perm []int) (*Permutation, error) {
	return transform.NewPermutation(perm)
}

// NewRandomPermutation creates a permutation drawn once at construction
// and fixed afterwards.
func NewRandomPermutation(features int) (*Permutation, error) {
	return transform.NewRandomPermutation(features)
}

// PointwiseAffine is a fixed, non-learnable elementwise affine transform.
type PointwiseAffine = transform.PointwiseAffine

// NewPointwiseAffine creates a pointwise affine transform computing
// x*scale + shift.
func NewPointwiseAffine(shift, scale []float64) (*PointwiseAffine, error) {
	return transform.NewPointwiseAffine(shift, scale)
}
