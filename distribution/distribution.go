// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package distribution provides the base distributions a normalizing flow
// transforms, built on gonum's stat/distuv.
package distribution

import (
	"github.com/born-ml/flows/internal/distribution"
)

// Distribution is a fixed-dimensionality distribution over vectors,
// exposing exact log-densities and sampling.
type Distribution = distribution.Distribution

// StandardNormal is the isotropic standard normal N(0, I).
type StandardNormal = distribution.StandardNormal

// NewStandardNormal creates a standard normal over dim dimensions.
//
// Example:
//
//	base := distribution.NewStandardNormal(3)
//	samples := base.Sample(100) // [100, 3]
func NewStandardNormal(dim int) *StandardNormal {
	return distribution.NewStandardNormal(dim)
}

// DiagonalNormal is a normal distribution with per-dimension mean and
// standard deviation.
type DiagonalNormal = distribution.DiagonalNormal

// NewDiagonalNormal creates a diagonal normal from per-dimension moments.
func NewDiagonalNormal(mean, stddev []float64) (*DiagonalNormal, error) {
	return distribution.NewDiagonalNormal(mean, stddev)
}
