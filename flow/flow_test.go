// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package flow_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/flows/checkpoint"
	"github.com/born-ml/flows/distribution"
	"github.com/born-ml/flows/flow"
	"github.com/born-ml/flows/tensor"
	"github.com/born-ml/flows/transform"
)

// The typical workflow: build a conditional MAF, checkpoint it, restore it
// into a second flow and get identical densities.
func TestMAF_CheckpointWorkflow(t *testing.T) {
	cfg := flow.MAFConfig{
		XSize:         3,
		YSize:         2,
		Architecture:  flow.PRQ,
		NumTransforms: 2,
		Conditioner:   transform.ConditionerConfig{HiddenFeatures: 32, Activation: flow.Tanh},
	}
	trained, err := flow.NewMAF(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "maf.flows")
	require.NoError(t, checkpoint.Save(path, trained.StateDict(), map[string]string{"architecture": "PRQ"}))

	restored, err := flow.NewMAF(cfg)
	require.NoError(t, err)
	hdr, sd, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PRQ", hdr.Metadata["architecture"])
	require.NoError(t, restored.LoadStateDict(sd))

	x := tensor.Randn(tensor.Shape{6, 3})
	y := tensor.Randn(tensor.Shape{6, 2})
	want, err := trained.LogProb(x, y)
	require.NoError(t, err)
	got, err := restored.LogProb(x, y)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Flows are not limited to the MAF builder: any transform stack over a base
// distribution works.
func TestCustomStack(t *testing.T) {
	affine, err := transform.NewMaskedAffineAutoregressive(2, 0, transform.ConditionerConfig{})
	require.NoError(t, err)
	perm, err := transform.NewPermutation([]int{1, 0})
	require.NoError(t, err)
	standardize, err := transform.NewPointwiseAffine([]float64{-1, 2}, []float64{0.5, 0.5})
	require.NoError(t, err)

	f, err := flow.New(distribution.NewStandardNormal(2),
		[]transform.Transform{standardize, affine, perm})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Features())

	samples, err := f.Sample(nil, 4)
	require.NoError(t, err)
	assert.True(t, samples.Shape().Equal(tensor.Shape{4, 2}))

	logProb, err := f.LogProb(samples, nil)
	require.NoError(t, err)
	assert.Len(t, logProb, 4)
}

func TestParseArchitecture_RoundTrip(t *testing.T) {
	arch, err := flow.ParseArchitecture("UMNN")
	require.NoError(t, err)
	assert.Equal(t, flow.UMNN, arch)

	_, err = flow.ParseArchitecture("realnvp")
	assert.Error(t, err)
}
