// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint persists flow parameters to disk, so weights trained
// elsewhere can be loaded into a freshly constructed flow of the same
// architecture.
//
// Example:
//
//	err := checkpoint.Save("maf.flows", f.StateDict(), nil)
//
//	_, sd, err := checkpoint.Load("maf.flows")
//	err = f.LoadStateDict(sd)
package checkpoint

import (
	"github.com/born-ml/flows/internal/checkpoint"
	"github.com/born-ml/flows/internal/tensor"
)

// FormatVersion identifies the checkpoint file layout.
const FormatVersion = checkpoint.FormatVersion

// Header describes a checkpoint file.
type Header = checkpoint.Header

// Save writes a state dictionary to path, with optional metadata recorded
// in the header.
func Save(path string, stateDict map[string]*tensor.Tensor, metadata map[string]string) error {
	return checkpoint.Save(path, stateDict, metadata)
}

// Load reads a checkpoint from path and returns its header and state
// dictionary.
func Load(path string) (Header, map[string]*tensor.Tensor, error) {
	return checkpoint.Load(path)
}
