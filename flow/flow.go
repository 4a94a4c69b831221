// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/born-ml/flows/internal/flow"
	"github.com/born-ml/flows/internal/nn"
	"github.com/born-ml/flows/internal/tensor"

	"github.com/born-ml/flows/distribution"
	"github.com/born-ml/flows/transform"
)

// NormalizingFlow models a conditional density p(x|y) as a base
// distribution pushed through a composite invertible transform. It exposes
// exact log-density evaluation and sampling.
type NormalizingFlow = flow.NormalizingFlow

// New creates a flow from a base distribution and an ordered list of
// conditional transforms.
//
// Example:
//
//	tf, _ := transform.NewMaskedAffineAutoregressive(3, 2, transform.ConditionerConfig{})
//	f, err := flow.New(distribution.NewStandardNormal(3), []transform.Transform{tf})
func New(base distribution.Distribution, transforms []transform.Transform) (*NormalizingFlow, error) {
	return flow.New(base, transforms)
}

// Architecture selects the autoregressive transform family of a MAF.
type Architecture = flow.Architecture

// Supported architectures.
const (
	Affine = flow.Affine
	PRQ    = flow.PRQ
	UMNN   = flow.UMNN
)

// ParseArchitecture converts a tag into an Architecture, rejecting unknown
// tags explicitly.
func ParseArchitecture(tag string) (Architecture, error) {
	return flow.ParseArchitecture(tag)
}

// Activation selects the nonlinearity of the conditioner networks.
type Activation = nn.Activation

// Supported activations.
const (
	ReLU = nn.ReLU
	Tanh = nn.Tanh
	ELU  = nn.ELU
)

// Moments holds per-dimension statistics (shift, scale) used to build a
// fixed standardization transform ahead of the learnable stack.
type Moments = flow.Moments

// SplineConfig holds the PRQ-specific options.
type SplineConfig = flow.SplineConfig

// UMNNConfig holds the UMNN-specific options.
type UMNNConfig = flow.UMNNConfig

// MAFConfig configures a masked autoregressive flow.
type MAFConfig = flow.MAFConfig

// NewMAF builds a masked autoregressive flow: NumTransforms blocks of one
// autoregressive transform followed by one fixed random permutation, over
// a standard normal base.
//
// Example:
//
//	f, err := flow.NewMAF(flow.MAFConfig{XSize: 3, YSize: 2, NumTransforms: 2})
//	x, err := f.Sample(y, 5)          // [5, 3] for a single context vector y
//	logp, err := f.LogProb(batch, ys) // one log-density per row
func NewMAF(cfg MAFConfig) (*NormalizingFlow, error) {
	return flow.NewMAF(cfg)
}

// StateDict is a flat map of parameter paths to values, the unit of
// checkpointing.
type StateDict = map[string]*tensor.Tensor
