// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package flow provides conditional normalizing-flow density estimators:
// given a context vector y, a flow models an invertible transformation
// from a standard normal base distribution to a complex target
// distribution over x, supporting both exact log-density evaluation
// log p(x|y) and sampling x ~ p(x|y).
//
// # Masked autoregressive flows
//
// NewMAF assembles a masked autoregressive flow from a small
// configuration: dimensionalities, a transform family, the number of
// transform blocks, and optional standardization moments.
//
//	f, err := flow.NewMAF(flow.MAFConfig{
//	    XSize:         3,
//	    YSize:         2,
//	    Architecture:  flow.PRQ,
//	    NumTransforms: 4,
//	})
//
// Three transform families are available:
//
//   - Affine: per-dimension affine autoregressive transforms (the
//     classic MAF of Papamakarios et al., 2017)
//   - PRQ: piecewise rational-quadratic spline transforms with linear
//     tails (Durkan et al., 2019)
//   - UMNN: unconstrained monotonic neural-network transforms
//     (Wehenkel & Louppe, 2019)
//
// Each transform block is followed by a fixed random permutation of the
// feature dimensions, which breaks the fixed autoregressive ordering
// between blocks.
//
// # Custom stacks
//
// New accepts any base distribution and transform list, so flows beyond
// the MAF layout can be assembled from the transform package directly.
//
// # Training
//
// This library evaluates and samples flows; it does not train them.
// Parameters are randomly initialized at construction and can be replaced
// with trained weights via LoadStateDict and the checkpoint package.
package flow
