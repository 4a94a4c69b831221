// Package checkpoint persists flow parameters. A checkpoint is a gob file
// with a versioned header followed by the state dictionary, so weights
// trained elsewhere can be loaded into a freshly constructed flow of the
// same architecture.
package checkpoint

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/born-ml/flows/internal/tensor"
)

// FormatVersion is bumped on incompatible file layout changes.
const FormatVersion = 1

// magic guards against loading unrelated gob files.
const magic = "flows-checkpoint"

// Header describes a checkpoint file.
type Header struct {
	Magic         string
	FormatVersion int
	CreatedAt     time.Time
	Metadata      map[string]string
}

// entry is the serialized form of one parameter.
type entry struct {
	Shape []int
	Data  []float64
}

type file struct {
	Header  Header
	Entries map[string]entry
}

// Save writes a state dictionary to path, with optional metadata recorded
// in the header.
func Save(path string, stateDict map[string]*tensor.Tensor, metadata map[string]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out := file{
		Header: Header{
			Magic:         magic,
			FormatVersion: FormatVersion,
			CreatedAt:     time.Now().UTC(),
			Metadata:      metadata,
		},
		Entries: make(map[string]entry, len(stateDict)),
	}
	for name, t := range stateDict {
		out.Entries[name] = entry{Shape: t.Shape().Clone(), Data: t.Data()}
	}

	if err := gob.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("checkpoint: encode %s: %w", path, err)
	}
	return nil
}

// Load reads a checkpoint from path and returns its header and state
// dictionary.
func Load(path string) (Header, map[string]*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	var in file
	if err := gob.NewDecoder(f).Decode(&in); err != nil {
		return Header{}, nil, fmt.Errorf("checkpoint: decode %s: %w", path, err)
	}
	if in.Header.Magic != magic {
		return Header{}, nil, fmt.Errorf("checkpoint: %s is not a flows checkpoint", path)
	}
	if in.Header.FormatVersion != FormatVersion {
		return Header{}, nil, fmt.Errorf("checkpoint: %s has format version %d, want %d",
			path, in.Header.FormatVersion, FormatVersion)
	}

	stateDict := make(map[string]*tensor.Tensor, len(in.Entries))
	for name, e := range in.Entries {
		t, err := tensor.New(e.Data, tensor.Shape(e.Shape))
		if err != nil {
			return Header{}, nil, fmt.Errorf("checkpoint: entry %q: %w", name, err)
		}
		stateDict[name] = t
	}
	return in.Header, stateDict, nil
}
